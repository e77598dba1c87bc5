package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/assettracer/assettracer/app/models"
)

type adjustRequest struct {
	Delta  int64  `json:"delta" validate:"required"`
	Reason string `json:"reason" validate:"max=255"`
}

// HandleListInventory returns a page of inventory items.
func HandleListInventory(c *fiber.Ctx) error {
	opts := listOptions(c)
	items, total, err := repos().Inventory.List(orgID(c), opts)
	if err != nil {
		return apiError(c, err)
	}
	return page(c, items, total, opts)
}

func HandleGetInventoryItem(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return apiError(c, err)
	}
	item, err := repos().Inventory.GetByID(orgID(c), id)
	if err != nil {
		return apiError(c, err)
	}
	return c.JSON(item)
}

// HandleCreateInventoryItem creates an item within the maxInventoryItems quota.
func HandleCreateInventoryItem(c *fiber.Ctx) error {
	var item models.InventoryItem
	if err := bindJSON(c, &item); err != nil {
		return apiError(c, err)
	}
	item.ID = 0
	item.OrganizationID = orgID(c)

	if err := repos().Inventory.Create(c.UserContext(), &item); err != nil {
		return apiError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(item)
}

func HandleUpdateInventoryItem(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return apiError(c, err)
	}
	r := repos()
	item, err := r.Inventory.GetByID(orgID(c), id)
	if err != nil {
		return apiError(c, err)
	}
	if err := bindJSON(c, item); err != nil {
		return apiError(c, err)
	}
	item.ID, item.OrganizationID = id, orgID(c)

	if err := r.Inventory.Update(item); err != nil {
		return apiError(c, err)
	}
	return c.JSON(item)
}

func HandleDeleteInventoryItem(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return apiError(c, err)
	}
	if err := repos().Inventory.Delete(orgID(c), id); err != nil {
		return apiError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// HandleAdjustInventory adds or removes stock. Stock never goes negative.
func HandleAdjustInventory(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return apiError(c, err)
	}
	var req adjustRequest
	if err := bindJSON(c, &req); err != nil {
		return apiError(c, err)
	}
	item, err := repos().Inventory.Adjust(orgID(c), id, req.Delta)
	if err != nil {
		return apiError(c, err)
	}
	return c.JSON(fiber.Map{
		"item":          item,
		"needs_reorder": item.NeedsReorder(),
		"stock_value":   item.StockValue(),
	})
}
