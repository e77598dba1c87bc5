package document

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-pdf/fpdf"

	"github.com/assettracer/assettracer/app/models"
)

const (
	pageMargin   = 15.0
	footerHeight = 20.0
	rowHeight    = 7.0
)

type rgb struct{ r, g, b int }

var defaultAccent = rgb{37, 99, 235}

// parseColor reads "#rrggbb", falling back to the default accent.
func parseColor(hex string) rgb {
	hex = strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if len(hex) != 6 {
		return defaultAccent
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return defaultAccent
	}
	return rgb{int(v >> 16 & 0xff), int(v >> 8 & 0xff), int(v & 0xff)}
}

// RenderPDF renders d as an A4 PDF.
func RenderPDF(d Document) ([]byte, error) {
	pdf := buildPDF(d)
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render %s %s: %w", d.Kind, d.Number, err)
	}
	return buf.Bytes(), nil
}

func buildPDF(d Document) *fpdf.Fpdf {
	accent := parseColor(d.BrandColor)
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(d.Title+" "+d.Number, true)
	pdf.SetCreator("AssetTracer", true)
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, footerHeight)
	pdf.AliasNbPages("")

	pdf.SetHeaderFunc(func() {
		pdf.SetFillColor(accent.r, accent.g, accent.b)
		pdf.Rect(0, 0, 210, 4, "F")
		pdf.SetY(10)
		pdf.SetFont("Helvetica", "B", 14)
		pdf.SetTextColor(accent.r, accent.g, accent.b)
		pdf.CellFormat(120, 8, tr(d.Issuer), "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "B", 18)
		pdf.SetTextColor(40, 40, 40)
		pdf.CellFormat(0, 8, tr(strings.ToUpper(d.Title)), "", 1, "R", false, 0, "")
		pdf.Ln(6)
	})
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(120, 120, 120)
		pdf.CellFormat(0, 10, tr(fmt.Sprintf("%s %s", d.Title, d.Number)), "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "R", false, 0, "")
	})

	pdf.AddPage()
	writeParties(pdf, tr, d)
	writeLines(pdf, tr, d, accent)
	writeTotals(pdf, d)

	if d.Notes != "" {
		pdf.Ln(6)
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(0, 6, "Notes", "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 9)
		pdf.MultiCell(0, 5, tr(d.Notes), "", "L", false)
	}
	return pdf
}

func writeParties(pdf *fpdf.Fpdf, tr func(string) string, d Document) {
	top := pdf.GetY()
	pdf.SetTextColor(40, 40, 40)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(100, 6, "Bill to", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	for _, line := range []string{d.Client.Name, d.Client.Company, d.Client.Email, d.Client.Address, d.Client.TaxID} {
		if strings.TrimSpace(line) == "" {
			continue
		}
		pdf.MultiCell(100, 5, tr(line), "", "L", false)
	}
	left := pdf.GetY()

	pdf.SetY(top)
	for _, f := range d.Meta {
		pdf.SetX(120)
		pdf.SetFont("Helvetica", "B", 9)
		pdf.CellFormat(35, 5, tr(f.Label), "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 9)
		pdf.CellFormat(0, 5, tr(f.Value), "", 1, "R", false, 0, "")
	}
	if pdf.GetY() < left {
		pdf.SetY(left)
	}
	pdf.Ln(8)
}

var columnWidths = []float64{95, 20, 32.5, 32.5}

func writeTableHeader(pdf *fpdf.Fpdf, accent rgb) {
	pdf.SetFillColor(accent.r, accent.g, accent.b)
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Helvetica", "B", 9)
	for i, h := range []string{"Description", "Qty", "Unit price", "Amount"} {
		align := "R"
		if i == 0 {
			align = "L"
		}
		pdf.CellFormat(columnWidths[i], rowHeight, h, "", 0, align, true, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetTextColor(40, 40, 40)
	pdf.SetFont("Helvetica", "", 9)
}

func writeLines(pdf *fpdf.Fpdf, tr func(string) string, d Document, accent rgb) {
	writeTableHeader(pdf, accent)
	_, pageHeight := pdf.GetPageSize()
	for i, l := range d.Lines {
		// Repeat the header on every page the table spills onto.
		if pdf.GetY()+rowHeight > pageHeight-footerHeight {
			pdf.AddPage()
			writeTableHeader(pdf, accent)
		}
		fill := i%2 == 1
		pdf.SetFillColor(245, 247, 250)
		pdf.CellFormat(columnWidths[0], rowHeight, tr(truncate(l.Description, 60)), "", 0, "L", fill, 0, "")
		pdf.CellFormat(columnWidths[1], rowHeight, strconv.FormatInt(l.Quantity, 10), "", 0, "R", fill, 0, "")
		pdf.CellFormat(columnWidths[2], rowHeight, models.FormatAmount(l.UnitPrice, d.Currency), "", 0, "R", fill, 0, "")
		pdf.CellFormat(columnWidths[3], rowHeight, models.FormatAmount(l.Total, d.Currency), "", 1, "R", fill, 0, "")
	}
}

func writeTotals(pdf *fpdf.Fpdf, d Document) {
	pdf.Ln(4)
	rows := []Field{{"Subtotal", models.FormatAmount(d.Subtotal, d.Currency)}}
	if d.TaxRate > 0 || d.Tax > 0 {
		rows = append(rows, Field{fmt.Sprintf("Tax (%d.%02d%%)", d.TaxRate/100, d.TaxRate%100), models.FormatAmount(d.Tax, d.Currency)})
	}
	rows = append(rows, Field{"Total", models.FormatAmount(d.Total, d.Currency)})
	if d.AmountPaid > 0 {
		rows = append(rows,
			Field{"Paid", models.FormatAmount(d.AmountPaid, d.Currency)},
			Field{"Balance due", models.FormatAmount(d.Total-d.AmountPaid, d.Currency)},
		)
	}
	for i, r := range rows {
		style := ""
		if r.Label == "Total" || i == len(rows)-1 {
			style = "B"
		}
		pdf.SetX(115)
		pdf.SetFont("Helvetica", style, 10)
		pdf.CellFormat(40, 6, r.Label, "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 6, r.Value, "", 1, "R", false, 0, "")
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
