package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/assettracer/assettracer/app/repository"
	"github.com/assettracer/assettracer/internal/pkg/cache"
	"github.com/assettracer/assettracer/internal/pkg/database"
	"github.com/assettracer/assettracer/internal/pkg/env"
	"github.com/assettracer/assettracer/internal/pkg/jobqueue"
	"github.com/assettracer/assettracer/internal/pkg/mail"
	"github.com/assettracer/assettracer/internal/pkg/objectstore"
	"github.com/assettracer/assettracer/internal/pkg/payments"
	"github.com/assettracer/assettracer/internal/pkg/response"
	"github.com/assettracer/assettracer/internal/pkg/router"
)

const openAPIFile = "public/docs/v1/openapi.yml"

func main() {
	app := NewApplication()

	queue := jobqueue.GetManager().GetQueue()
	queue.SetMailer(mail.NewFromEnv())
	queue.SetStore(objectstore.Default())
	jobqueue.GetManager().Start()

	go func() {
		addr := fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000"))
		if err := app.Listen(addr); err != nil {
			log.Fatalf("[Server] Listen failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("[Server] Shutting down...")
	jobqueue.GetManager().Stop()
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Errorf("[Server] Shutdown failed: %v", err)
	}
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	for _, warning := range env.ValidateStartup() {
		log.Warnf("[Startup] %s", warning)
	}

	database.SetupDatabase()
	repository.InitializeFactory(database.GetDB())
	cache.SetupCache()

	storeConfig, err := objectstore.LoadConfig()
	if err != nil {
		log.Fatalf("[ObjectStore] %v", err)
	}
	store, err := objectstore.New(storeConfig)
	if err != nil {
		log.Fatalf("[ObjectStore] %v", err)
	}
	objectstore.SetDefault(store)
	payments.SetDefault(payments.NewRegistryFromEnv())

	// Define possible base paths
	basePaths := []string{
		"./",     // Current directory
		"../../", // From cmd/assettracer to project root
	}
	basePath := ""
	for _, path := range basePaths {
		if _, err := os.Stat(path + openAPIFile); err == nil {
			basePath = path
			break
		}
	}

	// init fiber app
	// Forwarding headers are honoured only from TRUSTED_PROXIES.
	trustedProxies := splitList(env.GetEnv("TRUSTED_PROXIES", ""))
	proxyHeader := ""
	if len(trustedProxies) > 0 {
		proxyHeader = env.GetEnv("PROXY_HEADER", fiber.HeaderXForwardedFor)
	}
	app := fiber.New(fiber.Config{
		AppName:                 "AssetTracer",
		BodyLimit:               12 << 20, // photo uploads plus multipart overhead
		ErrorHandler:            response.ErrorHandler,
		EnableTrustedProxyCheck: len(trustedProxies) > 0,
		TrustedProxies:          trustedProxies,
		ProxyHeader:             proxyHeader,
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// SWAGGER / OPENAPI
	if basePath != "" {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/docs/api/",
			FilePath: basePath + openAPIFile,
			Path:     "v1",
			Title:    "AssetTracer API",
		}))
	} else {
		log.Warnf("[Startup] %s not found, API docs disabled", openAPIFile)
	}

	// ROUTER
	router.InstallRouter(app)

	return app
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
