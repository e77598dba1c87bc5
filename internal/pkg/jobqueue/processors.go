package jobqueue

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/assettracer/assettracer/app/models"
	"github.com/assettracer/assettracer/app/repository"
	"github.com/assettracer/assettracer/internal/pkg/database"
	"github.com/assettracer/assettracer/internal/pkg/document"
	"github.com/assettracer/assettracer/internal/pkg/env"
	"github.com/assettracer/assettracer/internal/pkg/mail"
	"github.com/assettracer/assettracer/internal/pkg/objectstore"
)

// InvoicePayURL is the public link printed in invoice emails.
func InvoicePayURL(inv *models.Invoice) string {
	if inv.PublicToken == "" {
		return ""
	}
	return env.PublicURL("/api/v1/public/invoices/" + inv.PublicToken)
}

func (q *Queue) processSendEmailJob(ctx context.Context, job *Job) error {
	payload, err := SendEmailJobPayloadFromMap(job.Payload)
	if err != nil {
		return fmt.Errorf("invalid send_email payload: %w", err)
	}
	msg := mail.Message{To: payload.To, Subject: payload.Subject, HTML: payload.HTML}
	if err := mail.Deliver(ctx, q.mailerOrDefault(), msg); err != nil {
		return err
	}
	log.Infof("[JobQueue] Sent %s email for organization %d", payload.Kind, payload.OrganizationID)
	return nil
}

// processInvoiceReminderJob emails the client of an unpaid invoice. Invoices
// that were paid or cancelled since the job was queued are skipped.
func (q *Queue) processInvoiceReminderJob(ctx context.Context, job *Job) error {
	payload, err := InvoiceReminderJobPayloadFromMap(job.Payload)
	if err != nil {
		return fmt.Errorf("invalid invoice_reminder payload: %w", err)
	}
	repos := repository.GetGlobalRepositories()

	inv, err := repos.Invoice.GetByID(payload.OrganizationID, payload.InvoiceID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		log.Warnf("[JobQueue] Reminder for missing invoice %d skipped", payload.InvoiceID)
		return nil
	}
	if err != nil {
		return err
	}
	if (inv.Status != models.InvoiceStatusSent && inv.Status != models.InvoiceStatusOverdue) || inv.Balance() == 0 {
		log.Infof("[JobQueue] Invoice %s is %s, reminder skipped", inv.Number, inv.Status)
		return nil
	}
	org, err := repos.Organization.GetByID(inv.OrganizationID)
	if err != nil {
		return err
	}

	msg, err := mail.InvoiceMessage(mail.TemplateInvoiceReminder, org, inv, InvoicePayURL(inv))
	if err != nil {
		// No client email; retrying will not help.
		log.Warnf("[JobQueue] Reminder for invoice %s not sent: %v", inv.Number, err)
		return nil
	}
	if err := mail.Deliver(ctx, q.mailerOrDefault(), msg); err != nil {
		return err
	}
	return repos.Invoice.MarkReminded(inv.ID, q.now())
}

// processRenderDocumentJob renders a PDF and stores it in object storage.
// Invoices remember the object key so later downloads can be presigned.
func (q *Queue) processRenderDocumentJob(ctx context.Context, job *Job) error {
	payload, err := RenderDocumentJobPayloadFromMap(job.Payload)
	if err != nil {
		return fmt.Errorf("invalid render_document payload: %w", err)
	}
	store := q.storeOrDefault()
	if !store.Enabled() {
		log.Debugf("[JobQueue] Object storage disabled, %s %d not rendered", payload.Kind, payload.DocumentID)
		return nil
	}

	repos := repository.GetGlobalRepositories()
	org, err := repos.Organization.GetByID(payload.OrganizationID)
	if err != nil {
		return err
	}
	doc, err := document.Load(repos, org, payload.Kind, payload.DocumentID)
	if err != nil {
		return err
	}
	pdf, err := document.RenderPDF(doc)
	if err != nil {
		return err
	}

	key := objectstore.DocumentKey(org.ID, string(doc.Kind), doc.Filename("pdf"))
	if err := store.Put(ctx, key, pdf, "application/pdf"); err != nil {
		return err
	}
	if document.Kind(payload.Kind) == document.KindInvoice {
		if err := database.GetDB().Model(&models.Invoice{}).
			Where("id = ? AND organization_id = ?", payload.DocumentID, org.ID).
			Update("document_key", key).Error; err != nil {
			return err
		}
	}
	log.Infof("[JobQueue] Stored %s (%d bytes) at %s", doc.Filename("pdf"), len(pdf), key)
	return nil
}
