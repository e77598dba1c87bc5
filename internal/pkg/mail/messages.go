package mail

import (
	"fmt"

	"github.com/assettracer/assettracer/app/models"
)

const dateLayout = "2006-01-02"

func orgData(org *models.Organization) map[string]interface{} {
	return map[string]interface{}{
		"OrganizationName": org.DisplayName(),
		"BrandColor":       org.DisplayColor(),
	}
}

// InvoiceMessage renders the invoice_sent or invoice_reminder email for the
// invoice's client. The invoice must have its Client loaded.
func InvoiceMessage(template string, org *models.Organization, inv *models.Invoice, payURL string) (Message, error) {
	if inv.Client == nil || inv.Client.Email == "" {
		return Message{}, fmt.Errorf("invoice %s has no client email", inv.Number)
	}
	var subject string
	amount := inv.Total
	switch template {
	case TemplateInvoiceSent:
		subject = fmt.Sprintf("Invoice %s from %s", inv.Number, org.DisplayName())
	case TemplateInvoiceReminder:
		subject = fmt.Sprintf("Reminder: invoice %s is overdue", inv.Number)
		amount = inv.Balance()
	default:
		return Message{}, fmt.Errorf("unknown invoice template %q", template)
	}
	data := orgData(org)
	data["Subject"] = subject
	data["ClientName"] = inv.Client.Name
	data["Number"] = inv.Number
	data["Amount"] = models.FormatAmount(amount, inv.Currency)
	data["DueDate"] = inv.DueDate.Format(dateLayout)
	data["PayURL"] = payURL

	body, err := Render(template, data)
	if err != nil {
		return Message{}, err
	}
	return Message{To: inv.Client.Email, Subject: subject, HTML: body}, nil
}

// InvitationMessage renders the team invitation email.
func InvitationMessage(org *models.Organization, inv *models.Invitation, inviterName, acceptURL string) (Message, error) {
	subject := fmt.Sprintf("You have been invited to %s", org.DisplayName())
	data := orgData(org)
	data["Subject"] = subject
	data["InviterName"] = inviterName
	data["Role"] = inv.Role
	data["AcceptURL"] = acceptURL
	data["ExpiresAt"] = inv.ExpiresAt.Format(dateLayout)

	body, err := Render(TemplateInvitation, data)
	if err != nil {
		return Message{}, err
	}
	return Message{To: inv.Email, Subject: subject, HTML: body}, nil
}

// TestMessage renders the delivery check email.
func TestMessage(org *models.Organization, to, provider string) (Message, error) {
	subject := "AssetTracer test email"
	data := orgData(org)
	data["Subject"] = subject
	data["Provider"] = provider

	body, err := Render(TemplateTest, data)
	if err != nil {
		return Message{}, err
	}
	return Message{To: to, Subject: subject, HTML: body}, nil
}
