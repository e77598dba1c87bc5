package controllers

import (
	"fmt"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdjustInventory(t *testing.T) {
	env := newTestEnv(t, "free")
	env.app.Post("/inventory", HandleCreateInventoryItem)
	env.app.Post("/inventory/:id/adjust", HandleAdjustInventory)

	resp, body := env.do(t, fiber.MethodPost, "/inventory", fiber.Map{
		"sku": "BAT-01", "name": "Battery", "quantity": 2, "unit_cost": 1500, "reorder_level": 3,
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	path := fmt.Sprintf("/inventory/%v/adjust", body["id"])

	resp, body = env.do(t, fiber.MethodPost, path, fiber.Map{"delta": -5})
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	assert.Equal(t, "insufficient_stock", body["error"])

	resp, body = env.do(t, fiber.MethodPost, path, fiber.Map{"delta": 3, "reason": "restock"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	item := body["item"].(map[string]interface{})
	assert.EqualValues(t, 5, item["quantity"])
	assert.Equal(t, false, body["needs_reorder"])
	assert.EqualValues(t, 7500, body["stock_value"])

	resp, body = env.do(t, fiber.MethodPost, path, fiber.Map{"delta": -3})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["needs_reorder"])

	resp, _ = env.do(t, fiber.MethodPost, path, fiber.Map{"delta": 0})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestInventorySKUIsRequired(t *testing.T) {
	env := newTestEnv(t, "free")
	env.app.Post("/inventory", HandleCreateInventoryItem)

	resp, body := env.do(t, fiber.MethodPost, "/inventory", fiber.Map{"name": "No SKU"})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "validation_failed", body["error"])
}
