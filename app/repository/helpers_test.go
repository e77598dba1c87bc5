package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/assettracer/assettracer/app/models"
	"github.com/assettracer/assettracer/internal/pkg/testutil"
)

func newTestDB(t *testing.T) *gorm.DB {
	return testutil.NewDB(t)
}

func seedOrg(t *testing.T, db *gorm.DB, tier string) (*models.Organization, *models.User) {
	return testutil.SeedOrganization(t, db, tier)
}

func seedClient(t *testing.T, db *gorm.DB, orgID uint) *models.Client {
	t.Helper()
	c := &models.Client{OrganizationID: orgID, Name: "Client"}
	require.NoError(t, db.Create(c).Error)
	return c
}

func newInvoice(orgID, clientID uint) *models.Invoice {
	now := time.Now().UTC()
	return &models.Invoice{
		OrganizationID: orgID,
		ClientID:       clientID,
		IssueDate:      now,
		DueDate:        now.AddDate(0, 0, 14),
		Items: []models.InvoiceItem{
			{LineItem: models.LineItem{Description: "Rental", Quantity: 2, UnitPrice: 1500}},
		},
	}
}
