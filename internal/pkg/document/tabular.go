package document

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/assettracer/assettracer/app/models"
)

// Export resources.
const (
	ExportAssets    = "assets"
	ExportInventory = "inventory"
	ExportClients   = "clients"
	ExportInvoices  = "invoices"
)

// ExportResources lists what can be exported.
var ExportResources = []string{ExportAssets, ExportInventory, ExportClients, ExportInvoices}

// Table is a header plus rows of cell values. Cells are strings, int64 or
// Money so XLSX keeps numbers numeric.
type Table struct {
	Sheet   string
	Headers []string
	Rows    [][]interface{}
}

// Money is an amount in minor units, written as a decimal.
type Money int64

func (m Money) decimal() float64 { return float64(m) / 100 }

func (m Money) String() string {
	v := int64(m)
	sign := ""
	if v < 0 {
		sign, v = "-", -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

func formatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

// AssetsTable builds the asset export.
func AssetsTable(assets []models.Asset) Table {
	t := Table{Sheet: "Assets", Headers: []string{"ID", "Name", "Serial number", "Category", "Status", "Location", "Purchase date", "Purchase price", "Current value", "Daily rate"}}
	for _, a := range assets {
		t.Rows = append(t.Rows, []interface{}{int64(a.ID), a.Name, a.SerialNumber, a.Category, a.Status, a.Location, formatDate(a.PurchaseDate), Money(a.PurchasePrice), Money(a.CurrentValue), Money(a.DailyRate)})
	}
	return t
}

// InventoryTable builds the inventory export.
func InventoryTable(items []models.InventoryItem) Table {
	t := Table{Sheet: "Inventory", Headers: []string{"ID", "SKU", "Name", "Category", "Quantity", "Unit cost", "Stock value", "Reorder level", "Location"}}
	for _, it := range items {
		t.Rows = append(t.Rows, []interface{}{int64(it.ID), it.SKU, it.Name, it.Category, it.Quantity, Money(it.UnitCost), Money(it.StockValue()), it.ReorderLevel, it.Location})
	}
	return t
}

// ClientsTable builds the client export.
func ClientsTable(clients []models.Client) Table {
	t := Table{Sheet: "Clients", Headers: []string{"ID", "Name", "Company", "Email", "Phone", "Tax ID", "Address"}}
	for _, c := range clients {
		t.Rows = append(t.Rows, []interface{}{int64(c.ID), c.Name, c.Company, c.Email, c.Phone, c.TaxID, c.Address})
	}
	return t
}

// InvoicesTable builds the invoice export.
func InvoicesTable(invoices []models.Invoice) Table {
	t := Table{Sheet: "Invoices", Headers: []string{"Number", "Client", "Status", "Issue date", "Due date", "Currency", "Subtotal", "Tax", "Total", "Paid", "Balance"}}
	for _, inv := range invoices {
		client := ""
		if inv.Client != nil {
			client = inv.Client.Name
		}
		t.Rows = append(t.Rows, []interface{}{inv.Number, client, inv.Status, formatDate(&inv.IssueDate), formatDate(&inv.DueDate), inv.Currency, Money(inv.Subtotal), Money(inv.TaxAmount), Money(inv.Total), Money(inv.AmountPaid), Money(inv.Balance())})
	}
	return t
}

func cellString(v interface{}) string {
	switch x := v.(type) {
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case Money:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

// csvText neutralises user text that a spreadsheet would evaluate as a
// formula by prefixing it with a quote.
func csvText(v interface{}) string {
	s := cellString(v)
	if _, text := v.(string); text && s != "" && strings.ContainsRune("=+-@\t\r", rune(s[0])) {
		return "'" + s
	}
	return s
}

// WriteCSV writes t as RFC 4180 CSV. Text cells that start like a formula
// are quoted; numbers and amounts are written as is.
func WriteCSV(w io.Writer, t Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Headers); err != nil {
		return err
	}
	record := make([]string, len(t.Headers))
	for _, row := range t.Rows {
		for i, v := range row {
			record[i] = csvText(v)
		}
		if err := cw.Write(record[:len(row)]); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes t as a single-sheet workbook with a bold header row.
func WriteXLSX(w io.Writer, t Table) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := t.Sheet
	if sheet == "" {
		sheet = "Sheet1"
	}
	if err := f.SetSheetName(f.GetSheetName(f.GetActiveSheetIndex()), sheet); err != nil {
		return err
	}

	header := make([]interface{}, len(t.Headers))
	for i, h := range t.Headers {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := f.SetRowStyle(sheet, 1, 1, bold); err != nil {
		return err
	}

	for i, row := range t.Rows {
		out := make([]interface{}, len(row))
		for j, v := range row {
			if m, ok := v.(Money); ok {
				out[j] = m.decimal()
				continue
			}
			out[j] = v
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &out); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	return f.Write(w)
}
