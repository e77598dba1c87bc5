package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/assettracer/assettracer/app/models"
)

func HandleListClients(c *fiber.Ctx) error {
	opts := listOptions(c)
	clients, total, err := repos().Client.List(orgID(c), opts)
	if err != nil {
		return apiError(c, err)
	}
	return page(c, clients, total, opts)
}

func HandleGetClient(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return apiError(c, err)
	}
	client, err := repos().Client.GetByID(orgID(c), id)
	if err != nil {
		return apiError(c, err)
	}
	return c.JSON(client)
}

// HandleCreateClient creates a client. Clients are not quota limited.
func HandleCreateClient(c *fiber.Ctx) error {
	var client models.Client
	if err := bindJSON(c, &client); err != nil {
		return apiError(c, err)
	}
	client.ID = 0
	client.OrganizationID = orgID(c)

	if err := repos().Client.Create(&client); err != nil {
		return apiError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(client)
}

func HandleUpdateClient(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return apiError(c, err)
	}
	r := repos()
	client, err := r.Client.GetByID(orgID(c), id)
	if err != nil {
		return apiError(c, err)
	}
	if err := bindJSON(c, client); err != nil {
		return apiError(c, err)
	}
	client.ID, client.OrganizationID = id, orgID(c)

	if err := r.Client.Update(client); err != nil {
		return apiError(c, err)
	}
	return c.JSON(client)
}

func HandleDeleteClient(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return apiError(c, err)
	}
	if err := repos().Client.Delete(orgID(c), id); err != nil {
		return apiError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
