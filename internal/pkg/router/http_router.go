package router

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/monitor"

	"github.com/assettracer/assettracer/app/controllers"
	"github.com/assettracer/assettracer/internal/pkg/env"
	"github.com/assettracer/assettracer/internal/pkg/metrics"
	"github.com/assettracer/assettracer/internal/pkg/middleware"
	"github.com/assettracer/assettracer/internal/pkg/oauth"
	"github.com/assettracer/assettracer/internal/pkg/session"
)

type HttpRouter struct {
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	// init session
	session.NewSessionStore()

	// init oauth providers
	oauth.Setup()

	app.Use(metrics.Default.Middleware())

	// Apply UserContext middleware globally
	app.Use(middleware.UserContextMiddleware)

	h.registerOperatorRoutes(app)
	h.registerAuthRoutes(app)
}

func NewHttpRouter() *HttpRouter {
	return &HttpRouter{}
}

// registerOperatorRoutes exposes Prometheus metrics and the fiber monitor
// behind basic auth. Both stay off without METRICS_PASSWORD.
func (h HttpRouter) registerOperatorRoutes(app *fiber.App) {
	password := env.GetEnv("METRICS_PASSWORD", "")
	if password == "" {
		return
	}
	operator := basicauth.New(basicauth.Config{
		Users: map[string]string{
			env.GetEnv("METRICS_USER", "admin"): password,
		},
	})
	app.Get("/metrics", operator, metrics.Handler())
	app.Get("/monitor", operator, monitor.New(monitor.Config{Title: "AssetTracer Monitor"}))
}

func (h HttpRouter) registerAuthRoutes(app *fiber.App) {
	// Social OAuth
	app.Get("/auth/:provider", controllers.HandleOAuthBegin)
	app.Get("/auth/:provider/callback", controllers.HandleOAuthCallback)

	csrfConf := csrf.Config{
		KeyLookup:      "header:X-CSRF-Token",
		ContextKey:     "csrf",
		CookieName:     "csrf_",
		CookieSameSite: "Lax",
		Expiration:     1 * time.Hour,
		CookieSecure:   !env.IsDev(),
		Next: func(c *fiber.Ctx) bool {
			return strings.HasPrefix(c.Path(), "/api/")
		},
	}
	web := app.Group("", cors.New(cors.Config{
		AllowOrigins:     env.GetEnv("CORS_ALLOW_ORIGINS", strings.TrimRight(env.PublicURL(""), "/")),
		AllowCredentials: true,
	}), csrf.New(csrfConf))
	web.Post("/logout", middleware.RequireAuth, controllers.HandleLogout)
}
