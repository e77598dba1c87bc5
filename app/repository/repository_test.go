package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/assettracer/assettracer/app/models"
	"github.com/assettracer/assettracer/internal/pkg/entitlements"
)

func TestRowsAreIsolatedPerOrganization(t *testing.T) {
	db := newTestDB(t)
	repos := NewRepositories(db)
	orgA, _ := seedOrg(t, db, "pro")
	orgB, _ := seedOrg(t, db, "pro")
	ctx := context.Background()

	asset := &models.Asset{OrganizationID: orgA.ID, Name: "Drill"}
	require.NoError(t, repos.Asset.Create(ctx, asset))

	_, err := repos.Asset.GetByID(orgB.ID, asset.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.ErrorIs(t, repos.Asset.Delete(orgB.ID, asset.ID), gorm.ErrRecordNotFound)

	asset.OrganizationID = orgB.ID
	asset.Name = "Stolen"
	assert.ErrorIs(t, repos.Asset.Update(asset), gorm.ErrRecordNotFound)

	got, err := repos.Asset.GetByID(orgA.ID, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, "Drill", got.Name)

	clientB := seedClient(t, db, orgB.ID)
	err = repos.Invoice.Create(ctx, newInvoice(orgA.ID, clientB.ID))
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestAssetListFiltersAndPhotos(t *testing.T) {
	db := newTestDB(t)
	repos := NewRepositories(db)
	org, _ := seedOrg(t, db, "pro")
	ctx := context.Background()

	require.NoError(t, repos.Asset.Create(ctx, &models.Asset{OrganizationID: org.ID, Name: "Camera", Category: "Photo"}))
	require.NoError(t, repos.Asset.Create(ctx, &models.Asset{OrganizationID: org.ID, Name: "Van", Status: models.AssetStatusMaintenance}))

	list, total, err := repos.Asset.List(org.ID, ListOptions{Search: "cam"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "Camera", list[0].Name)
	assert.Equal(t, models.AssetStatusAvailable, list[0].Status)

	_, total, err = repos.Asset.List(org.ID, ListOptions{Status: models.AssetStatusMaintenance})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	photo := &models.AssetPhoto{OrganizationID: org.ID, AssetID: list[0].ID, ObjectKey: "a/1.jpg", ThumbnailKey: "a/1_thumb.jpg"}
	require.NoError(t, repos.Asset.AddPhoto(photo))
	got, err := repos.Asset.GetByID(org.ID, list[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "a/1_thumb.jpg", got.ThumbnailKey)
	assert.Len(t, got.Photos, 1)
}

func TestInventoryAdjust(t *testing.T) {
	db := newTestDB(t)
	repos := NewRepositories(db)
	org, _ := seedOrg(t, db, "free")

	item := &models.InventoryItem{OrganizationID: org.ID, SKU: "CBL-1", Name: "Cable", Quantity: 5, ReorderLevel: 3}
	require.NoError(t, repos.Inventory.Create(context.Background(), item))

	got, err := repos.Inventory.Adjust(org.ID, item.ID, -2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.Quantity)
	assert.True(t, got.NeedsReorder())

	_, err = repos.Inventory.Adjust(org.ID, item.ID, -4)
	assert.ErrorIs(t, err, ErrInsufficientStock)

	_, err = repos.Inventory.Adjust(org.ID, 12345, 1)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	low, total, err := repos.Inventory.List(org.ID, ListOptions{Status: "low"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "CBL-1", low[0].SKU)
}

func TestQuotationConvertConsumesInvoiceQuota(t *testing.T) {
	db := newTestDB(t)
	repos := NewRepositories(db)
	org, _ := seedOrg(t, db, "free")
	client := seedClient(t, db, org.ID)
	ctx := context.Background()
	now := time.Now().UTC()

	q := &models.Quotation{
		OrganizationID: org.ID,
		ClientID:       client.ID,
		Status:         models.QuotationStatusSent,
		IssueDate:      now,
		ValidUntil:     now.AddDate(0, 0, 30),
		Items:          []models.QuotationItem{{LineItem: models.LineItem{Description: "Stage", Quantity: 1, UnitPrice: 50000}}},
	}
	require.NoError(t, repos.Quotation.Create(ctx, q))
	assert.Equal(t, "QUO-000001", q.Number)

	inv, err := repos.Quotation.Convert(ctx, org.ID, q.ID, now, 14)
	require.NoError(t, err)
	assert.Equal(t, "INV-000001", inv.Number)
	assert.Equal(t, int64(50000), inv.Total)

	reloaded, err := repos.Quotation.GetByID(org.ID, q.ID)
	require.NoError(t, err)
	assert.Equal(t, models.QuotationStatusAccepted, reloaded.Status)
	require.NotNil(t, reloaded.InvoiceID)
	assert.Equal(t, inv.ID, *reloaded.InvoiceID)

	_, err = repos.Quotation.Convert(ctx, org.ID, q.ID, now, 14)
	assert.ErrorIs(t, err, ErrQuotationNotConvertible)

	usage, err := repos.Usage.Count(org.ID, entitlements.ResourceInvoicesPerMonth, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), usage)
}

func TestInvoiceUpdateReplacesItemsAndDueQueries(t *testing.T) {
	db := newTestDB(t)
	repos := NewRepositories(db)
	org, _ := seedOrg(t, db, "pro")
	client := seedClient(t, db, org.ID)
	now := time.Now().UTC()

	inv := newInvoice(org.ID, client.ID)
	require.NoError(t, repos.Invoice.Create(context.Background(), inv))

	loaded, err := repos.Invoice.GetByID(org.ID, inv.ID)
	require.NoError(t, err)
	loaded.Items = []models.InvoiceItem{
		{LineItem: models.LineItem{Description: "A", Quantity: 1, UnitPrice: 100}},
		{LineItem: models.LineItem{Description: "B", Quantity: 3, UnitPrice: 200}},
	}
	loaded.Status = models.InvoiceStatusSent
	loaded.DueDate = now.AddDate(0, 0, -3)
	require.NoError(t, repos.Invoice.Update(loaded))

	again, err := repos.Invoice.GetByID(org.ID, inv.ID)
	require.NoError(t, err)
	assert.Len(t, again.Items, 2)
	assert.Equal(t, int64(700), again.Total)

	n, err := repos.Invoice.MarkOverdue(now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	due, err := repos.Invoice.ListDue(now, 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, models.InvoiceStatusOverdue, due[0].Status)

	require.NoError(t, repos.Invoice.MarkReminded(inv.ID, now))
	due, err = repos.Invoice.ListDue(now.Add(time.Hour), 10)
	require.NoError(t, err)
	assert.Empty(t, due)

	due, err = repos.Invoice.ListDue(now.Add(ReminderInterval), 10)
	require.NoError(t, err)
	assert.Len(t, due, 1)
}

func TestReservationConflictAndAmount(t *testing.T) {
	db := newTestDB(t)
	repos := NewRepositories(db)
	org, _ := seedOrg(t, db, "pro")
	client := seedClient(t, db, org.ID)
	asset := &models.Asset{OrganizationID: org.ID, Name: "Tent", DailyRate: 2500}
	require.NoError(t, repos.Asset.Create(context.Background(), asset))

	start := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	r1 := &models.Reservation{OrganizationID: org.ID, AssetID: asset.ID, ClientID: client.ID, StartsAt: start, EndsAt: start.Add(48 * time.Hour)}
	require.NoError(t, repos.Reservation.Create(r1))
	assert.Equal(t, int64(5000), r1.Amount)

	r2 := &models.Reservation{OrganizationID: org.ID, AssetID: asset.ID, ClientID: client.ID, StartsAt: start.Add(24 * time.Hour), EndsAt: start.Add(72 * time.Hour)}
	assert.ErrorIs(t, repos.Reservation.Create(r2), ErrReservationConflict)

	require.NoError(t, repos.Reservation.UpdateStatus(org.ID, r1.ID, models.ReservationStatusCancelled))
	assert.NoError(t, repos.Reservation.Create(r2))

	bad := &models.Reservation{OrganizationID: org.ID, AssetID: asset.ID, ClientID: client.ID, StartsAt: start, EndsAt: start}
	assert.ErrorIs(t, repos.Reservation.Create(bad), models.ErrInvalidReservationRange)
}

func TestPaymentStatusUpdatesInvoice(t *testing.T) {
	db := newTestDB(t)
	repos := NewRepositories(db)
	org, _ := seedOrg(t, db, "pro")
	client := seedClient(t, db, org.ID)
	inv := newInvoice(org.ID, client.ID)
	inv.Status = models.InvoiceStatusSent
	require.NoError(t, repos.Invoice.Create(context.Background(), inv))

	p := &models.Payment{OrganizationID: org.ID, InvoiceID: inv.ID, Provider: "stripe", ProviderRef: "pi_1", Amount: inv.Total}
	require.NoError(t, repos.Payment.Create(p))
	now := time.Now()

	require.NoError(t, repos.Payment.ApplyStatus(p, models.PaymentStatusPaid, 0, now))
	got, err := repos.Invoice.GetByID(org.ID, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusPaid, got.Status)
	assert.Equal(t, inv.Total, got.AmountPaid)

	// repeated status does not double count
	require.NoError(t, repos.Payment.ApplyStatus(p, models.PaymentStatusPaid, 0, now))
	got, err = repos.Invoice.GetByID(org.ID, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, inv.Total, got.AmountPaid)

	require.NoError(t, repos.Payment.ApplyStatus(p, models.PaymentStatusPartiallyRefunded, 1000, now))
	got, err = repos.Invoice.GetByID(org.ID, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusSent, got.Status)
	assert.Equal(t, inv.Total-1000, got.AmountPaid)
	assert.Equal(t, int64(1000), p.RefundedAmount)
}

func TestInvitationAcceptance(t *testing.T) {
	db := newTestDB(t)
	repos := NewRepositories(db)
	org, _ := seedOrg(t, db, "pro")
	now := time.Now()

	inv := &models.Invitation{OrganizationID: org.ID, Email: "new@example.com", Role: models.MemberRoleAdmin}
	raw, err := inv.IssueToken(now)
	require.NoError(t, err)
	require.NoError(t, repos.Organization.CreateInvitation(context.Background(), inv))

	user := &models.User{Name: "Newbie", Email: "new@example.com", Role: models.ROLE_USER, Status: models.STATUS_ACTIVE}
	require.NoError(t, repos.User.Create(user))

	found, err := repos.Organization.GetInvitationByToken(raw)
	require.NoError(t, err)
	member, err := repos.Organization.AcceptInvitation(found, user.ID, now)
	require.NoError(t, err)
	assert.Equal(t, models.MemberRoleAdmin, member.Role)

	_, err = repos.Organization.AcceptInvitation(found, user.ID, now)
	assert.ErrorIs(t, err, ErrInvitationNotUsable)

	settings, err := repos.User.GetSettings(user.ID)
	require.NoError(t, err)
	assert.Equal(t, org.ID, settings.ActiveOrganizationID)

	usage, err := repos.Usage.Count(org.ID, entitlements.ResourceUsers, now)
	require.NoError(t, err)
	assert.Equal(t, int64(2), usage)

	members, err := repos.Organization.ListMembers(org.ID)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.ErrorIs(t, repos.Organization.RemoveMember(org.ID, members[0].ID, models.MemberRoleOwner), ErrLastOwner)
	assert.NoError(t, repos.Organization.RemoveMember(org.ID, members[1].ID, models.MemberRoleOwner))
}

func TestOnlyOwnersRemoveOwners(t *testing.T) {
	db := newTestDB(t)
	repos := NewRepositories(db)
	org, _ := seedOrg(t, db, "business")

	addMember := func(email, role string) *models.OrganizationMember {
		user := &models.User{Name: email, Email: email, Role: models.ROLE_USER, Status: models.STATUS_ACTIVE}
		require.NoError(t, db.Create(user).Error)
		m := &models.OrganizationMember{OrganizationID: org.ID, UserID: user.ID, Role: role}
		require.NoError(t, db.Create(m).Error)
		return m
	}
	coOwner := addMember("co@example.com", models.MemberRoleOwner)
	crew := addMember("crew@example.com", models.MemberRoleMember)

	assert.ErrorIs(t, repos.Organization.RemoveMember(org.ID, coOwner.ID, models.MemberRoleAdmin), ErrOwnerRemoval)
	assert.NoError(t, repos.Organization.RemoveMember(org.ID, crew.ID, models.MemberRoleAdmin))
	assert.NoError(t, repos.Organization.RemoveMember(org.ID, coOwner.ID, models.MemberRoleOwner))

	members, err := repos.Organization.ListMembers(org.ID)
	require.NoError(t, err)
	assert.Len(t, members, 1)
}

func TestUserProviderLinkAndAPIKey(t *testing.T) {
	db := newTestDB(t)
	repos := NewRepositories(db)
	_, user := seedOrg(t, db, "free")

	require.NoError(t, repos.User.LinkProvider(&models.ProviderAccount{UserID: user.ID, Provider: "github", ProviderUserID: "42"}))
	got, err := repos.User.GetByProvider("github", "42")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	settings, err := repos.User.GetSettings(user.ID)
	require.NoError(t, err)
	raw, err := settings.IssueAPIKey(time.Now())
	require.NoError(t, err)
	require.NoError(t, repos.User.SaveSettings(settings))

	byKey, _, err := repos.User.GetByAPIKeyHash(models.HashAPIKey(raw))
	require.NoError(t, err)
	assert.Equal(t, user.ID, byKey.ID)
}
