package jobqueue

import (
	"fmt"

	"github.com/assettracer/assettracer/app/models"
	"github.com/assettracer/assettracer/internal/pkg/mail"
)

// EnqueueEmail queues a rendered message for delivery.
func EnqueueEmail(orgID uint, kind string, msg mail.Message) (*Job, error) {
	if msg.To == "" {
		return nil, fmt.Errorf("cannot enqueue %s email without recipient", kind)
	}
	payload := SendEmailJobPayload{
		OrganizationID: orgID,
		To:             msg.To,
		Subject:        msg.Subject,
		HTML:           msg.HTML,
		Kind:           kind,
	}
	return GetManager().GetQueue().EnqueueJob(JobTypeSendEmail, payload.ToMap())
}

// EnqueueInvoiceReminder queues a reminder for an unpaid invoice.
func EnqueueInvoiceReminder(inv *models.Invoice) (*Job, error) {
	if inv == nil || inv.ID == 0 {
		return nil, fmt.Errorf("cannot enqueue reminder for invalid invoice")
	}
	payload := InvoiceReminderJobPayload{OrganizationID: inv.OrganizationID, InvoiceID: inv.ID}
	return GetManager().GetQueue().EnqueueJob(JobTypeInvoiceReminder, payload.ToMap())
}

// EnqueueRenderDocument queues PDF rendering and upload.
func EnqueueRenderDocument(orgID uint, kind string, id uint) (*Job, error) {
	if orgID == 0 || id == 0 {
		return nil, fmt.Errorf("cannot enqueue render for %s without ids", kind)
	}
	payload := RenderDocumentJobPayload{OrganizationID: orgID, Kind: kind, DocumentID: id}
	return GetManager().GetQueue().EnqueueJob(JobTypeRenderDocument, payload.ToMap())
}
