package controllers

import (
	"bytes"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/assettracer/assettracer/internal/pkg/document"
	"github.com/assettracer/assettracer/internal/pkg/response"
)

const (
	formatCSV  = "csv"
	formatXLSX = "xlsx"
)

func exportTable(orgID uint, resource string) (document.Table, error) {
	r := repos()
	switch resource {
	case document.ExportAssets:
		assets, err := r.Asset.ListAll(orgID)
		return document.AssetsTable(assets), err
	case document.ExportInventory:
		items, err := r.Inventory.ListAll(orgID)
		return document.InventoryTable(items), err
	case document.ExportClients:
		clients, err := r.Client.ListAll(orgID)
		return document.ClientsTable(clients), err
	case document.ExportInvoices:
		invoices, err := r.Invoice.ListAll(orgID)
		return document.InvoicesTable(invoices), err
	}
	return document.Table{}, fiber.NewError(fiber.StatusNotFound, "unknown export "+resource)
}

// HandleExport streams assets, inventory, clients or invoices as CSV or XLSX.
func HandleExport(c *fiber.Ctx) error {
	resource, format := c.Params("resource"), c.Params("format")
	if format != formatCSV && format != formatXLSX {
		return response.Error(c, fiber.StatusNotFound, "not_found", "unsupported export format "+format)
	}
	table, err := exportTable(orgID(c), resource)
	if err != nil {
		return apiError(c, err)
	}

	var buf bytes.Buffer
	contentType := "text/csv; charset=utf-8"
	if format == formatXLSX {
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		err = document.WriteXLSX(&buf, table)
	} else {
		err = document.WriteCSV(&buf, table)
	}
	if err != nil {
		return apiError(c, err)
	}

	filename := fmt.Sprintf("%s-%s.%s", resource, now().Format("20060102"), format)
	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Send(buf.Bytes())
}
