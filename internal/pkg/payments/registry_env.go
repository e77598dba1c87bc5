package payments

import (
	"github.com/gofiber/fiber/v2/log"

	"github.com/assettracer/assettracer/internal/pkg/env"
)

var defaultRegistry = NewRegistry()

// Default returns the process wide registry.
func Default() *Registry {
	return defaultRegistry
}

// SetDefault replaces the process wide registry.
func SetDefault(r *Registry) {
	defaultRegistry = r
}

// NewRegistryFromEnv registers every provider whose credentials are set.
func NewRegistryFromEnv() *Registry {
	r := NewRegistry()
	if key := env.GetEnv("STRIPE_SECRET_KEY", ""); key != "" {
		r.Register(NewStripe(key))
	}
	if token := env.GetEnv("POLAR_ACCESS_TOKEN", ""); token != "" {
		r.Register(NewPolar(token, env.GetEnv("POLAR_API_URL", polarDefaultURL)))
	}
	if token := env.GetEnv("DPO_COMPANY_TOKEN", ""); token != "" {
		r.Register(NewDPO(token, env.GetEnv("DPO_API_URL", dpoDefaultURL)))
	}
	log.Infof("[Payments] Providers enabled: %v", r.Names())
	return r
}
