// Package document renders invoices, quotations and reservations as PDF and
// tabular exports as CSV or XLSX.
package document

import (
	"fmt"
	"strings"

	"github.com/assettracer/assettracer/app/models"
)

// Kind is the type of a printable document.
type Kind string

const (
	KindInvoice     Kind = "invoice"
	KindQuotation   Kind = "quotation"
	KindReservation Kind = "reservation"
)

const dateLayout = "2006-01-02"

// Field is a label/value pair printed in the document header.
type Field struct {
	Label string
	Value string
}

// Line is a printed line item. Money is in minor units.
type Line struct {
	Description string
	Quantity    int64
	UnitPrice   int64
	Total       int64
}

// Party is the addressee block.
type Party struct {
	Name    string
	Company string
	Email   string
	Address string
	TaxID   string
}

// Document is the renderer's input, independent of the stored model.
type Document struct {
	Kind       Kind
	Title      string
	Number     string
	Issuer     string
	BrandColor string
	Client     Party
	Meta       []Field
	Lines      []Line
	Currency   string
	TaxRate    int64
	Subtotal   int64
	Tax        int64
	Total      int64
	AmountPaid int64
	Notes      string
}

// Filename returns a download name such as "invoice-INV-000001.pdf".
func (d Document) Filename(ext string) string {
	return fmt.Sprintf("%s-%s.%s", d.Kind, strings.ReplaceAll(d.Number, "/", "-"), ext)
}

func partyFrom(c *models.Client) Party {
	if c == nil {
		return Party{}
	}
	return Party{Name: c.Name, Company: c.Company, Email: c.Email, Address: c.Address, TaxID: c.TaxID}
}

// FromInvoice maps an invoice with items and client loaded.
func FromInvoice(org *models.Organization, inv *models.Invoice) Document {
	d := Document{
		Kind:       KindInvoice,
		Title:      "Invoice",
		Number:     inv.Number,
		Issuer:     org.DisplayName(),
		BrandColor: org.DisplayColor(),
		Client:     partyFrom(inv.Client),
		Meta: []Field{
			{"Invoice number", inv.Number},
			{"Issue date", inv.IssueDate.Format(dateLayout)},
			{"Due date", inv.DueDate.Format(dateLayout)},
			{"Status", inv.Status},
		},
		Currency:   inv.Currency,
		TaxRate:    inv.TaxRate,
		Subtotal:   inv.Subtotal,
		Tax:        inv.TaxAmount,
		Total:      inv.Total,
		AmountPaid: inv.AmountPaid,
		Notes:      inv.Notes,
	}
	for _, it := range inv.Items {
		d.Lines = append(d.Lines, Line{it.Description, it.Quantity, it.UnitPrice, it.Total})
	}
	return d
}

// FromQuotation maps a quotation with items and client loaded.
func FromQuotation(org *models.Organization, q *models.Quotation) Document {
	d := Document{
		Kind:       KindQuotation,
		Title:      "Quotation",
		Number:     q.Number,
		Issuer:     org.DisplayName(),
		BrandColor: org.DisplayColor(),
		Client:     partyFrom(q.Client),
		Meta: []Field{
			{"Quotation number", q.Number},
			{"Issue date", q.IssueDate.Format(dateLayout)},
			{"Valid until", q.ValidUntil.Format(dateLayout)},
			{"Status", q.Status},
		},
		Currency: q.Currency,
		TaxRate:  q.TaxRate,
		Subtotal: q.Subtotal,
		Tax:      q.TaxAmount,
		Total:    q.Total,
		Notes:    q.Notes,
	}
	for _, it := range q.Items {
		d.Lines = append(d.Lines, Line{it.Description, it.Quantity, it.UnitPrice, it.Total})
	}
	return d
}

// FromReservation maps a reservation with asset and client loaded. The whole
// booking is printed as a single line.
func FromReservation(org *models.Organization, r *models.Reservation) Document {
	assetName := fmt.Sprintf("Asset #%d", r.AssetID)
	if r.Asset != nil {
		assetName = r.Asset.Name
	}
	number := fmt.Sprintf("RES-%06d", r.ID)
	return Document{
		Kind:       KindReservation,
		Title:      "Reservation",
		Number:     number,
		Issuer:     org.DisplayName(),
		BrandColor: org.DisplayColor(),
		Client:     partyFrom(r.Client),
		Meta: []Field{
			{"Reservation", number},
			{"From", r.StartsAt.UTC().Format("2006-01-02 15:04")},
			{"Until", r.EndsAt.UTC().Format("2006-01-02 15:04")},
			{"Status", r.Status},
		},
		Lines: []Line{{
			Description: fmt.Sprintf("%s (%d days)", assetName, r.Days()),
			Quantity:    1,
			UnitPrice:   r.Amount,
			Total:       r.Amount,
		}},
		Currency: org.Currency,
		Subtotal: r.Amount,
		Total:    r.Amount,
		Notes:    r.Notes,
	}
}
