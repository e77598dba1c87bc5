package controllers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/assettracer/assettracer/internal/pkg/entitlements"
	"github.com/assettracer/assettracer/internal/pkg/middleware"
)

type organizationRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=150"`
	Currency string `json:"currency" validate:"omitempty,len=3,alpha"`
}

type brandingRequest struct {
	BrandName  string `json:"brand_name" validate:"max=150"`
	BrandColor string `json:"brand_color" validate:"omitempty,hexcolor,len=7"`
	LogoURL    string `json:"logo_url" validate:"omitempty,url,max=255"`
}

// HandleGetOrganization returns the active organization with its tier.
func HandleGetOrganization(c *fiber.Ctx) error {
	org, err := repos().Organization.GetByID(orgID(c))
	if err != nil {
		return apiError(c, err)
	}
	return c.JSON(fiber.Map{
		"organization": org,
		"tier":         org.EffectiveTier(),
		"display_name": org.DisplayName(),
	})
}

// HandleUpdateOrganization changes name and default currency.
func HandleUpdateOrganization(c *fiber.Ctx) error {
	var req organizationRequest
	if err := bindJSON(c, &req); err != nil {
		return apiError(c, err)
	}
	r := repos()
	org, err := r.Organization.GetByID(orgID(c))
	if err != nil {
		return apiError(c, err)
	}
	org.Name = strings.TrimSpace(req.Name)
	if req.Currency != "" {
		org.Currency = strings.ToUpper(req.Currency)
	}
	if err := r.Organization.Update(org); err != nil {
		return apiError(c, err)
	}
	return c.JSON(org)
}

// HandleUpdateBranding sets the name, colour and logo printed on documents
// and emails. Stored branding only shows while the tier allows it.
func HandleUpdateBranding(c *fiber.Ctx) error {
	var req brandingRequest
	if err := bindJSON(c, &req); err != nil {
		return apiError(c, err)
	}
	r := repos()
	org, err := r.Organization.GetByID(orgID(c))
	if err != nil {
		return apiError(c, err)
	}
	org.BrandName = strings.TrimSpace(req.BrandName)
	org.BrandColor = strings.ToLower(req.BrandColor)
	org.LogoURL = req.LogoURL
	if err := r.Organization.Update(org); err != nil {
		return apiError(c, err)
	}
	return c.JSON(fiber.Map{
		"organization":  org,
		"display_name":  org.DisplayName(),
		"display_color": org.DisplayColor(),
		"active":        entitlements.LimitsFor(middleware.Tier(c)).HasCustomBranding,
	})
}
