package controllers

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/assettracer/assettracer/app/models"
	"github.com/assettracer/assettracer/app/repository"
	"github.com/assettracer/assettracer/internal/pkg/photo"
	"github.com/assettracer/assettracer/internal/pkg/reporting"
	"github.com/assettracer/assettracer/internal/pkg/response"
	"github.com/assettracer/assettracer/internal/pkg/usercontext"
)

const (
	defaultPageSize = 25
	maxPageSize     = 100
)

// now is the clock used by handlers. Tests replace it.
var now = func() time.Time { return time.Now().UTC() }

// orgID returns the organization the request acts on.
func orgID(c *fiber.Ctx) uint {
	return usercontext.GetOrganizationID(c)
}

func repos() *repository.Repositories {
	return repository.GetGlobalRepositories()
}

// paramID parses a positive numeric route parameter.
func paramID(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || id == 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid "+name)
	}
	return uint(id), nil
}

// listOptions reads page, per_page, q and status from the query string.
func listOptions(c *fiber.Ctx) repository.ListOptions {
	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	perPage := c.QueryInt("per_page", defaultPageSize)
	if perPage < 1 {
		perPage = defaultPageSize
	}
	if perPage > maxPageSize {
		perPage = maxPageSize
	}
	return repository.ListOptions{
		Offset: (page - 1) * perPage,
		Limit:  perPage,
		Search: strings.TrimSpace(c.Query("q")),
		Status: strings.TrimSpace(c.Query("status")),
	}
}

// page renders a list response with paging metadata.
func page(c *fiber.Ctx, data interface{}, total int64, opts repository.ListOptions) error {
	return c.JSON(fiber.Map{
		"data":     data,
		"total":    total,
		"page":     opts.Offset/opts.Limit + 1,
		"per_page": opts.Limit,
	})
}

// bindJSON parses the body into v and validates it.
func bindJSON(c *fiber.Ctx, v interface{}) error {
	if err := c.BodyParser(v); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	return response.Validate(v)
}

// apiError maps repository and domain errors to responses and hands the rest
// to response.FromError.
func apiError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, repository.ErrInsufficientStock):
		return response.Error(c, fiber.StatusConflict, "insufficient_stock", err.Error())
	case errors.Is(err, repository.ErrReservationConflict):
		return response.Error(c, fiber.StatusConflict, "reservation_conflict", err.Error())
	case errors.Is(err, repository.ErrQuotationNotConvertible):
		return response.Error(c, fiber.StatusConflict, "not_convertible", err.Error())
	case errors.Is(err, repository.ErrLastOwner):
		return response.Error(c, fiber.StatusConflict, "last_owner", err.Error())
	case errors.Is(err, repository.ErrOwnerRemoval):
		return response.Error(c, fiber.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, repository.ErrInvitationNotUsable):
		return response.Error(c, fiber.StatusGone, "invitation_not_usable", err.Error())
	case errors.Is(err, models.ErrInvalidLineItem), errors.Is(err, models.ErrInvalidReservationRange):
		return response.Error(c, fiber.StatusBadRequest, "invalid_argument", err.Error())
	case errors.Is(err, reporting.ErrInvalidRange):
		return response.Error(c, fiber.StatusBadRequest, "invalid_range", err.Error())
	case errors.Is(err, photo.ErrTooLarge):
		return response.Error(c, fiber.StatusRequestEntityTooLarge, "too_large", err.Error())
	case errors.Is(err, photo.ErrUnsupportedFormat), errors.Is(err, photo.ErrScriptableContent):
		return response.Error(c, fiber.StatusUnsupportedMediaType, "unsupported_media_type", err.Error())
	}
	return response.FromError(c, err)
}

// GetClientIP returns the client IPv4 and IPv6 address. Cloudflare and
// proxy headers are read only when the request came through a configured
// trusted proxy. Either value may be empty.
func GetClientIP(c *fiber.Ctx) (string, string) {
	ipv4, ipv6 := "", ""
	assign := func(ip string) {
		ip = strings.TrimSpace(ip)
		if ip == "" {
			return
		}
		if strings.Contains(ip, ":") {
			if ipv6 == "" {
				ipv6 = ip
			}
		} else if ipv4 == "" {
			ipv4 = ip
		}
	}

	if behindTrustedProxy(c) {
		// Cloudflare and X-Forwarded-For carry the original client first.
		assign(c.Get("CF-Connecting-IP"))
		for _, ip := range strings.Split(c.Get(fiber.HeaderXForwardedFor), ",") {
			assign(ip)
		}
		assign(c.Get("X-Real-IP"))
		if ipv4 != "" || ipv6 != "" {
			return ipv4, ipv6
		}
	}

	ipAddr := c.IP()
	if strings.HasPrefix(ipAddr, "::ffff:") && strings.Contains(ipAddr, ".") {
		// IPv4-mapped IPv6
		ipAddr = strings.TrimPrefix(ipAddr, "::ffff:")
	}
	assign(ipAddr)
	return ipv4, ipv6
}

// behindTrustedProxy is false unless the app enables the trusted proxy
// check and the peer is one of its TrustedProxies.
func behindTrustedProxy(c *fiber.Ctx) bool {
	return c.App().Config().EnableTrustedProxyCheck && c.IsProxyTrusted()
}

// ClientIP is the single address used for rate limiting, IPv4 preferred.
func ClientIP(c *fiber.Ctx) string {
	ipv4, ipv6 := GetClientIP(c)
	if ipv4 != "" {
		return ipv4
	}
	return ipv6
}
