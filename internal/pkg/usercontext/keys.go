package usercontext

// Shared Locals keys used across controllers and middlewares
const (
	KeyUserContext = "USER_CONTEXT"
	KeyTier        = "tier"
)

// Authentication methods recorded on the context
const (
	AuthSession = "session"
	AuthAPIKey  = "api_key"
	AuthBearer  = "bearer"
)
