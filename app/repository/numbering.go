package repository

import (
	"fmt"

	"gorm.io/gorm"
)

const (
	InvoiceNumberPrefix   = "INV"
	QuotationNumberPrefix = "QUO"
)

// FormatNumber renders a document number like INV-000123.
func FormatNumber(prefix string, seq int64) string {
	return fmt.Sprintf("%s-%06d", prefix, seq)
}

// nextNumber returns the next document number of an organization. It must
// run inside the quota transaction that holds the organization row lock;
// soft-deleted rows are counted so numbers are never reused.
func nextNumber(tx *gorm.DB, model interface{}, orgID uint, prefix string) (string, error) {
	var n int64
	if err := tx.Unscoped().Model(model).Where("organization_id = ?", orgID).Count(&n).Error; err != nil {
		return "", fmt.Errorf("next %s number: %w", prefix, err)
	}
	return FormatNumber(prefix, n+1), nil
}
