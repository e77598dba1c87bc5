package router

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/assettracer/assettracer/app/controllers"
	"github.com/assettracer/assettracer/app/repository"
	apiv1 "github.com/assettracer/assettracer/internal/api/v1"
	"github.com/assettracer/assettracer/internal/pkg/auth"
	"github.com/assettracer/assettracer/internal/pkg/env"
	"github.com/assettracer/assettracer/internal/pkg/response"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New(limiter.Config{
		Max:          env.GetEnvInt("API_RATE_LIMIT", 120),
		Expiration:   time.Minute,
		KeyGenerator: controllers.ClientIP,
		LimitReached: func(c *fiber.Ctx) error {
			return response.Error(c, fiber.StatusTooManyRequests, "rate_limited", "too many requests")
		},
	}))
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
			"docs":    "/docs/api/v1",
		})
	})

	// API v1 routes
	v1 := api.Group("/v1")
	verifier := auth.NewTokenVerifier(env.GetEnv("SUPABASE_JWT_SECRET", ""), env.GetEnv("SUPABASE_JWT_AUDIENCE", "authenticated"))
	apiServer := apiv1.NewAPIServer(verifier, repository.GetGlobalFactory().GetQueueRepository())
	apiv1.RegisterHandlers(v1, apiServer)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
