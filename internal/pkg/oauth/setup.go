package oauth

import (
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/session"
	redisstorage "github.com/gofiber/storage/redis"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/github"
	"github.com/markbates/goth/providers/google"
	gothfiber "github.com/shareed2k/goth_fiber"

	"github.com/assettracer/assettracer/internal/pkg/env"
	appsession "github.com/assettracer/assettracer/internal/pkg/session"
)

// Supported login providers.
const (
	ProviderGoogle = "google"
	ProviderGitHub = "github"
)

// CallbackURL returns the absolute callback URL for provider.
func CallbackURL(provider string) string {
	return env.PublicURL("/auth/" + provider + "/callback")
}

// Setup registers the providers that have credentials configured and puts the
// OAuth state on Redis DB 2. It is safe to call multiple times.
func Setup() {
	var providers []goth.Provider
	if key := env.GetEnv("GOOGLE_KEY", ""); key != "" {
		providers = append(providers, google.New(key, env.GetEnv("GOOGLE_SECRET", ""), CallbackURL(ProviderGoogle), "email", "profile"))
	}
	if key := env.GetEnv("GITHUB_KEY", ""); key != "" {
		providers = append(providers, github.New(key, env.GetEnv("GITHUB_SECRET", ""), CallbackURL(ProviderGitHub), "read:user", "user:email"))
	}
	if len(providers) == 0 {
		log.Warn("[OAuth] No providers configured, social login disabled")
		return
	}
	goth.UseProviders(providers...)

	gothfiber.SessionStore = session.New(session.Config{
		Storage:        redisstorage.New(appsession.RedisConfig(2)),
		KeyLookup:      "cookie:" + gothic.SessionName,
		CookieHTTPOnly: true,
		CookieSameSite: "Lax",
		CookieSecure:   !env.IsDev(),
		Expiration:     time.Hour,
	})
	log.Infof("[OAuth] %d provider(s) enabled", len(providers))
}

// Enabled reports whether provider was registered by Setup.
func Enabled(provider string) bool {
	_, err := goth.GetProvider(provider)
	return err == nil
}
