package models

import (
	"errors"
	"fmt"
)

// ErrInvalidLineItem is returned for line items with non-positive quantity or
// negative price.
var ErrInvalidLineItem = errors.New("invalid line item")

// LineItem holds the billable columns shared by invoice and quotation items.
type LineItem struct {
	Description string `gorm:"type:varchar(255);not null" json:"description" validate:"required,max=255"`
	Quantity    int64  `gorm:"not null;default:1" json:"quantity" validate:"gt=0"`
	UnitPrice   int64  `gorm:"not null;default:0" json:"unit_price" validate:"gte=0"`
	Total       int64  `gorm:"not null;default:0" json:"total"`
}

// Compute fills Total.
func (li *LineItem) Compute() error {
	if li.Quantity <= 0 || li.UnitPrice < 0 {
		return ErrInvalidLineItem
	}
	li.Total = li.Quantity * li.UnitPrice
	return nil
}

// Totals is the money summary of a document.
type Totals struct {
	Subtotal int64
	Tax      int64
	Total    int64
}

// ComputeTotals sums the items and applies taxRateBasisPoints (1/100 of a
// percent) with half-up rounding.
func ComputeTotals(items []*LineItem, taxRateBasisPoints int64) (Totals, error) {
	var t Totals
	for _, it := range items {
		if err := it.Compute(); err != nil {
			return Totals{}, err
		}
		t.Subtotal += it.Total
	}
	t.Tax = (t.Subtotal*taxRateBasisPoints + 5000) / 10000
	t.Total = t.Subtotal + t.Tax
	return t, nil
}

// FormatAmount renders minor units as "1234.50 USD".
func FormatAmount(cents int64, currency string) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d %s", sign, cents/100, cents%100, currency)
}
