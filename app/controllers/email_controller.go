package controllers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/assettracer/assettracer/internal/pkg/mail"
	"github.com/assettracer/assettracer/internal/pkg/response"
	"github.com/assettracer/assettracer/internal/pkg/usercontext"
)

// newMailer builds the mailer for test sends. Tests replace it.
var newMailer = mail.NewFromEnv

type testEmailRequest struct {
	To string `json:"to" validate:"omitempty,email,max=200"`
}

// HandleSendTestEmail delivers a test message right away so a provider
// misconfiguration shows up in the response. Defaults to the caller's
// address.
func HandleSendTestEmail(c *fiber.Ctx) error {
	var req testEmailRequest
	if len(c.Body()) > 0 {
		if err := bindJSON(c, &req); err != nil {
			return apiError(c, err)
		}
	}
	to := strings.TrimSpace(req.To)
	if to == "" {
		to = usercontext.GetUserContext(c).Email
	}

	org, err := repos().Organization.GetByID(orgID(c))
	if err != nil {
		return apiError(c, err)
	}
	mailer := newMailer()
	msg, err := mail.TestMessage(org, to, mailer.Provider())
	if err != nil {
		return apiError(c, err)
	}
	if err := mail.Deliver(c.UserContext(), mailer, msg); err != nil {
		if errors.Is(err, mail.ErrNotConfigured) {
			return response.Error(c, fiber.StatusServiceUnavailable, "mail_not_configured", err.Error())
		}
		return response.Error(c, fiber.StatusBadGateway, "mail_failed", err.Error())
	}
	return c.JSON(fiber.Map{"sent": true, "to": to, "provider": mailer.Provider()})
}
