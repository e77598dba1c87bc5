package env

import (
	"fmt"
	"strings"
)

type requirement struct {
	feature string
	keys    []string
	enabled func() bool
}

var requirements = []requirement{
	{feature: "database", keys: []string{"DB_HOST", "DB_USER", "DB_NAME"}},
	{feature: "session auth", keys: []string{"SESSION_SECRET"}},
	{feature: "bearer tokens", keys: []string{"SUPABASE_JWT_SECRET"}},
	{
		feature: "email (smtp)",
		keys:    []string{"SMTP_HOST", "SMTP_PORT", "MAIL_FROM"},
		enabled: func() bool { return mailProvider() == "smtp" },
	},
	{
		feature: "email (resend)",
		keys:    []string{"RESEND_API_KEY", "MAIL_FROM"},
		enabled: func() bool { return mailProvider() == "resend" },
	},
	{
		feature: "object storage",
		keys:    []string{"S3_ACCESS_KEY_ID", "S3_SECRET_ACCESS_KEY", "S3_BUCKET_NAME"},
		enabled: func() bool { return GetEnvBool("S3_ENABLED", false) },
	},
	{feature: "stripe", keys: []string{"STRIPE_SECRET_KEY", "STRIPE_WEBHOOK_SECRET"}},
	{feature: "polar", keys: []string{"POLAR_ACCESS_TOKEN", "POLAR_WEBHOOK_SECRET"}},
	{feature: "dpo", keys: []string{"DPO_COMPANY_TOKEN"}},
	{feature: "google login", keys: []string{"GOOGLE_KEY", "GOOGLE_SECRET"}},
	{feature: "github login", keys: []string{"GITHUB_KEY", "GITHUB_SECRET"}},
}

func mailProvider() string {
	return strings.ToLower(strings.TrimSpace(GetEnv("MAIL_PROVIDER", "smtp")))
}

// ValidateStartup reports missing configuration for optional integrations.
// Nothing here is fatal; affected integrations stay disabled.
func ValidateStartup() []string {
	var warnings []string
	for _, req := range requirements {
		if req.enabled != nil && !req.enabled() {
			continue
		}
		var missing []string
		for _, key := range req.keys {
			if strings.TrimSpace(GetEnv(key, "")) == "" {
				missing = append(missing, key)
			}
		}
		if len(missing) > 0 {
			warnings = append(warnings, fmt.Sprintf("%s disabled or degraded: missing %s", req.feature, strings.Join(missing, ", ")))
		}
	}
	return warnings
}
