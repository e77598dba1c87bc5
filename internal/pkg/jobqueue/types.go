package jobqueue

import (
	"encoding/json"
	"time"
)

// JobType defines the type of job
type JobType string

const (
	JobTypeSendEmail       JobType = "send_email"
	JobTypeInvoiceReminder JobType = "invoice_reminder"
	JobTypeRenderDocument  JobType = "render_document"
)

// JobStatus defines the status of a job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusRetrying   JobStatus = "retrying"
)

// Job represents a background job
type Job struct {
	ID          string                 `json:"id"`
	Type        JobType                `json:"type"`
	Status      JobStatus              `json:"status"`
	Payload     map[string]interface{} `json:"payload"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
	ProcessedAt *time.Time             `json:"processed_at,omitempty"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	ErrorMsg    string                 `json:"error_msg,omitempty"`
	RetryCount  int                    `json:"retry_count"`
	MaxRetries  int                    `json:"max_retries"`
}

// SendEmailJobPayload carries a fully rendered message.
type SendEmailJobPayload struct {
	OrganizationID uint   `json:"organization_id"`
	To             string `json:"to"`
	Subject        string `json:"subject"`
	HTML           string `json:"html"`
	Kind           string `json:"kind"` // template name, for logs
}

// ToMap converts the payload to a map for storage
func (p SendEmailJobPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"organization_id": p.OrganizationID,
		"to":              p.To,
		"subject":         p.Subject,
		"html":            p.HTML,
		"kind":            p.Kind,
	}
}

func SendEmailJobPayloadFromMap(data map[string]interface{}) (*SendEmailJobPayload, error) {
	var payload SendEmailJobPayload
	err := decodePayload(data, &payload)
	return &payload, err
}

// InvoiceReminderJobPayload identifies an overdue invoice to remind about.
type InvoiceReminderJobPayload struct {
	OrganizationID uint `json:"organization_id"`
	InvoiceID      uint `json:"invoice_id"`
}

// ToMap converts the payload to a map for storage
func (p InvoiceReminderJobPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"organization_id": p.OrganizationID,
		"invoice_id":      p.InvoiceID,
	}
}

func InvoiceReminderJobPayloadFromMap(data map[string]interface{}) (*InvoiceReminderJobPayload, error) {
	var payload InvoiceReminderJobPayload
	err := decodePayload(data, &payload)
	return &payload, err
}

// RenderDocumentJobPayload asks for a PDF to be rendered and stored.
type RenderDocumentJobPayload struct {
	OrganizationID uint   `json:"organization_id"`
	Kind           string `json:"kind"` // invoice, quotation, reservation
	DocumentID     uint   `json:"document_id"`
}

// ToMap converts the payload to a map for storage
func (p RenderDocumentJobPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"organization_id": p.OrganizationID,
		"kind":            p.Kind,
		"document_id":     p.DocumentID,
	}
}

func RenderDocumentJobPayloadFromMap(data map[string]interface{}) (*RenderDocumentJobPayload, error) {
	var payload RenderDocumentJobPayload
	err := decodePayload(data, &payload)
	return &payload, err
}

// decodePayload round-trips through JSON so numbers stored as float64 land in
// the typed fields.
func decodePayload(data map[string]interface{}, out interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return json.Unmarshal(jsonData, out)
}

// IsRetryable checks if the job can be retried
func (j *Job) IsRetryable() bool {
	return j.Status == JobStatusFailed && j.RetryCount < j.MaxRetries
}

// MarkAsProcessing updates the job status to processing
func (j *Job) MarkAsProcessing() {
	now := time.Now()
	j.Status = JobStatusProcessing
	j.UpdatedAt = now
	j.ProcessedAt = &now
}

// MarkAsCompleted updates the job status to completed
func (j *Job) MarkAsCompleted() {
	now := time.Now()
	j.Status = JobStatusCompleted
	j.UpdatedAt = now
	j.CompletedAt = &now
	j.ErrorMsg = ""
}

// MarkAsFailed updates the job status to failed
func (j *Job) MarkAsFailed(errorMsg string) {
	j.Status = JobStatusFailed
	j.UpdatedAt = time.Now()
	j.ErrorMsg = errorMsg
	j.RetryCount++
}

// MarkAsRetrying updates the job status to retrying
func (j *Job) MarkAsRetrying() {
	j.Status = JobStatusRetrying
	j.UpdatedAt = time.Now()
}
