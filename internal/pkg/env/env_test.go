package env

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func withEnv(t *testing.T, vals map[string]string) {
	t.Helper()
	prev := Env
	Env = vals
	t.Cleanup(func() { Env = prev })
}

func TestGetEnvHelpers(t *testing.T) {
	withEnv(t, map[string]string{"WORKERS": "4", "BROKEN": "x", "FLAG": "Yes"})

	assert.Equal(t, 4, GetEnvInt("WORKERS", 1))
	assert.Equal(t, 1, GetEnvInt("BROKEN", 1))
	assert.Equal(t, 7, GetEnvInt("MISSING_INT_KEY", 7))
	assert.True(t, GetEnvBool("FLAG", false))
	assert.True(t, GetEnvBool("MISSING_BOOL_KEY", true))
	assert.Equal(t, "fallback", GetEnv("MISSING_STR_KEY", "fallback"))
}

func TestValidateStartupReportsMissingKeys(t *testing.T) {
	withEnv(t, map[string]string{
		"MAIL_PROVIDER":       "resend",
		"RESEND_API_KEY":      "re_123",
		"MAIL_FROM":           "billing@example.com",
		"STRIPE_SECRET_KEY":   "sk_test",
		"SUPABASE_JWT_SECRET": "secret",
	})

	warnings := ValidateStartup()

	joined := ""
	for _, w := range warnings {
		joined += w + "\n"
	}
	assert.Contains(t, joined, "stripe disabled or degraded: missing STRIPE_WEBHOOK_SECRET")
	assert.NotContains(t, joined, "email (resend)")
	assert.NotContains(t, joined, "email (smtp)")
	assert.NotContains(t, joined, "bearer tokens")
	assert.NotContains(t, joined, "object storage")
}

func TestPublicURL(t *testing.T) {
	withEnv(t, map[string]string{"APP_PORT": "8080"})
	assert.Equal(t, "http://localhost:8080/pay/abc", PublicURL("/pay/abc"))

	withEnv(t, map[string]string{"PUBLIC_DOMAIN": "https://app.example.com/"})
	assert.Equal(t, "https://app.example.com/auth/google/callback", PublicURL("auth/google/callback"))
}
