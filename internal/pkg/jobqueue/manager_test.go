package jobqueue

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/assettracer/assettracer/app/models"
	"github.com/assettracer/assettracer/app/repository"
	"github.com/assettracer/assettracer/internal/pkg/objectstore"
	"github.com/assettracer/assettracer/internal/pkg/testutil"
)

type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (m *memStore) Enabled() bool { return true }

func (m *memStore) Put(_ context.Context, key string, data []byte, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return nil
}

func (m *memStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.objects[key]; ok {
		return b, nil
	}
	return nil, objectstore.ErrNotFound
}

func (m *memStore) PresignGet(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://bucket.test/" + key, nil
}

func (m *memStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func resetManager(t *testing.T) *Manager {
	t.Helper()
	globalManager = nil
	managerOnce = sync.Once{}
	t.Cleanup(func() {
		if globalManager != nil {
			globalManager.Stop()
		}
		globalManager = nil
		managerOnce = sync.Once{}
	})
	m := GetManager()
	m.queue.retryDelay = func(int) time.Duration { return time.Hour }
	return m
}

// setupJobs wires a fresh database, Redis and manager.
func setupJobs(t *testing.T) (*gorm.DB, *Manager, *fakeMailer) {
	t.Helper()
	db := testutil.NewDB(t)
	testutil.NewRedis(t)
	repository.SetGlobalFactory(repository.NewFactory(db))
	m := resetManager(t)
	mailer := &fakeMailer{}
	m.queue.SetMailer(mailer)
	return db, m, mailer
}

func seedSentInvoice(t *testing.T, db *gorm.DB, tier string, due time.Time) (*models.Organization, *models.Invoice) {
	t.Helper()
	org, _ := testutil.SeedOrganization(t, db, tier)
	client := &models.Client{OrganizationID: org.ID, Name: "Bob", Email: "bob@example.com"}
	require.NoError(t, db.Create(client).Error)

	inv := &models.Invoice{
		OrganizationID: org.ID,
		ClientID:       client.ID,
		IssueDate:      due.AddDate(0, 0, -14),
		DueDate:        due,
		PublicToken:    "pubtoken123",
		Items: []models.InvoiceItem{
			{LineItem: models.LineItem{Description: "Excavator rental", Quantity: 2, UnitPrice: 15000}},
		},
	}
	require.NoError(t, repository.GetGlobalRepositories().Invoice.Create(context.Background(), inv))
	require.NoError(t, db.Model(inv).Update("status", models.InvoiceStatusSent).Error)
	return org, inv
}

func TestGetManagerSingleton(t *testing.T) {
	testutil.NewRedis(t)
	m1 := resetManager(t)
	m2 := GetManager()

	assert.Same(t, m1, m2)
	assert.Same(t, m1.queue, m1.GetQueue())
	assert.False(t, m1.IsRunning())

	// Stop without Start is a no-op.
	m1.Stop()
	assert.False(t, m1.IsRunning())
}

func TestManagerStartStop(t *testing.T) {
	testutil.NewRedis(t)
	m := resetManager(t)

	m.Start()
	assert.True(t, m.IsRunning())
	m.Stop()
	assert.False(t, m.IsRunning())

	m.Start()
	assert.True(t, m.IsRunning())
	m.Stop()
}

func TestOverdueSweepQueuesOneReminderPerInvoice(t *testing.T) {
	db, m, mailer := setupJobs(t)
	now := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	_, inv := seedSentInvoice(t, db, "pro", now.AddDate(0, 0, -3))

	queued, err := m.RunOverdueSweep(now)
	require.NoError(t, err)
	assert.Equal(t, 1, queued)

	var stored models.Invoice
	require.NoError(t, db.First(&stored, inv.ID).Error)
	assert.Equal(t, models.InvoiceStatusOverdue, stored.Status)

	// The Redis lock holds until the reminder interval passed.
	queued, err = m.RunOverdueSweep(now.Add(time.Hour))
	require.NoError(t, err)
	assert.Zero(t, queued)

	m.queue.now = func() time.Time { return now }
	job, err := m.queue.ProcessNext(context.Background(), time.Second)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, JobTypeInvoiceReminder, job.Type)
	assert.Equal(t, JobStatusCompleted, job.Status)

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "bob@example.com", mailer.sent[0].To)
	assert.Contains(t, mailer.sent[0].Subject, inv.Number)
	assert.Contains(t, mailer.sent[0].HTML, "/api/v1/public/invoices/pubtoken123")

	require.NoError(t, db.First(&stored, inv.ID).Error)
	require.NotNil(t, stored.LastReminderAt)
}

func TestReminderSkipsPaidInvoice(t *testing.T) {
	db, m, mailer := setupJobs(t)
	now := time.Now().UTC()
	_, inv := seedSentInvoice(t, db, "pro", now.AddDate(0, 0, -3))
	require.NoError(t, db.Model(inv).Updates(map[string]interface{}{"status": models.InvoiceStatusPaid, "amount_paid": inv.Total}).Error)

	_, err := m.queue.EnqueueJob(JobTypeInvoiceReminder, InvoiceReminderJobPayload{OrganizationID: inv.OrganizationID, InvoiceID: inv.ID}.ToMap())
	require.NoError(t, err)
	job, err := m.queue.ProcessNext(context.Background(), time.Second)
	require.NoError(t, err)
	assert.Equal(t, JobStatusCompleted, job.Status)
	assert.Empty(t, mailer.sent)
}

func TestReminderIsTenantScoped(t *testing.T) {
	db, m, mailer := setupJobs(t)
	_, inv := seedSentInvoice(t, db, "pro", time.Now().AddDate(0, 0, -3))
	other, _ := testutil.SeedOrganization(t, db, "pro")

	_, err := m.queue.EnqueueJob(JobTypeInvoiceReminder, InvoiceReminderJobPayload{OrganizationID: other.ID, InvoiceID: inv.ID}.ToMap())
	require.NoError(t, err)
	_, err = m.queue.ProcessNext(context.Background(), time.Second)
	require.NoError(t, err)
	assert.Empty(t, mailer.sent)
}

func TestRenderDocumentStoresInvoicePDF(t *testing.T) {
	db, m, _ := setupJobs(t)
	store := &memStore{objects: map[string][]byte{}}
	m.queue.SetStore(store)
	org, inv := seedSentInvoice(t, db, "business", time.Now().AddDate(0, 0, 14))

	_, err := EnqueueRenderDocument(org.ID, "invoice", inv.ID)
	require.NoError(t, err)
	job, err := m.queue.ProcessNext(context.Background(), time.Second)
	require.NoError(t, err)
	require.Equal(t, JobStatusCompleted, job.Status, job.ErrorMsg)

	var stored models.Invoice
	require.NoError(t, db.First(&stored, inv.ID).Error)
	require.NotEmpty(t, stored.DocumentKey)
	assert.Equal(t, objectstore.DocumentKey(org.ID, "invoice", "invoice-"+inv.Number+".pdf"), stored.DocumentKey)

	pdf, err := store.Get(context.Background(), stored.DocumentKey)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))
}

func TestEnqueueHelpersValidateInput(t *testing.T) {
	testutil.NewRedis(t)
	resetManager(t)

	_, err := EnqueueRenderDocument(0, "invoice", 1)
	assert.Error(t, err)
	_, err = EnqueueInvoiceReminder(nil)
	assert.Error(t, err)

	job, err := EnqueueInvoiceReminder(&models.Invoice{ID: 3, OrganizationID: 2})
	require.NoError(t, err)
	assert.Equal(t, JobTypeInvoiceReminder, job.Type)
}
