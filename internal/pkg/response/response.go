// Package response renders the JSON error envelope shared by all API
// handlers and maps domain errors to HTTP status codes.
package response

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/utils"
	"gorm.io/gorm"

	"github.com/assettracer/assettracer/internal/pkg/entitlements"
	"github.com/assettracer/assettracer/internal/pkg/metrics"
)

var validate = validator.New()

// Error writes {"error": code, "message": message}.
func Error(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{"error": code, "message": message})
}

// Validate runs struct validation on v.
func Validate(v interface{}) error {
	return validate.Struct(v)
}

// PolicyError renders a tier policy rejection. QuotaExceeded maps to 402,
// FeatureNotAvailable to 403 and InvalidArgument to 400.
func PolicyError(c *fiber.Ctx, pe *entitlements.PolicyError) error {
	switch pe.Kind {
	case entitlements.KindQuotaExceeded:
		log.Debugf("[Policy] Quota exceeded: tier=%s resource=%s usage=%d limit=%s", pe.Tier, pe.Resource, pe.Usage, pe.Limit)
		return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{
			"error":         string(entitlements.KindQuotaExceeded),
			"message":       pe.Error(),
			"resource":      pe.Resource,
			"limit":         pe.Limit,
			"usage":         pe.Usage,
			"tier":          pe.Tier,
			"required_tier": pe.RequiredTier,
		})
	case entitlements.KindFeatureNotAvailable:
		log.Debugf("[Policy] Feature %s rejected for tier %s", pe.Feature, pe.Tier)
		metrics.ObserveFeatureRejection(string(pe.Tier), string(pe.Feature))
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error":         string(entitlements.KindFeatureNotAvailable),
			"message":       pe.Error(),
			"feature":       pe.Feature,
			"tier":          pe.Tier,
			"required_tier": pe.RequiredTier,
		})
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   string(entitlements.KindInvalidArgument),
			"message": pe.Msg,
		})
	}
}

// ValidationError renders validator failures as 400 with the failing fields.
func ValidationError(c *fiber.Ctx, verrs validator.ValidationErrors) error {
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[strings.ToLower(fe.Field())] = fe.Tag()
	}
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error":   "validation_failed",
		"message": "request validation failed",
		"fields":  fields,
	})
}

// FromError maps err to the matching response. Unknown errors are logged and
// answered with 500 without leaking details.
func FromError(c *fiber.Ctx, err error) error {
	if pe, ok := entitlements.AsPolicyError(err); ok {
		return PolicyError(c, pe)
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return ValidationError(c, verrs)
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Error(c, fiber.StatusNotFound, "not_found", "resource not found")
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return Error(c, fe.Code, strings.ReplaceAll(strings.ToLower(fiberStatusText(fe.Code)), " ", "_"), fe.Message)
	}
	log.Errorf("[API] %s %s failed: %v", c.Method(), c.Path(), err)
	return Error(c, fiber.StatusInternalServerError, "internal_server_error", "internal server error")
}

func fiberStatusText(code int) string {
	if txt := utils.StatusMessage(code); txt != "" {
		return txt
	}
	return "error"
}

// ErrorHandler is the app wide fiber error handler so unmatched routes and
// middleware errors answer in the same JSON shape as the controllers.
func ErrorHandler(c *fiber.Ctx, err error) error {
	return FromError(c, err)
}
