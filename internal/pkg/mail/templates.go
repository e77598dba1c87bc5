package mail

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"sync"

	"github.com/gofiber/template/html/v2"
)

//go:embed templates
var templatesFS embed.FS

// Template names.
const (
	TemplateInvoiceSent     = "invoice_sent"
	TemplateInvoiceReminder = "invoice_reminder"
	TemplateInvitation      = "invitation"
	TemplateTest            = "test"
)

const defaultBrandColor = "#2563eb"

var (
	engine     *html.Engine
	engineOnce sync.Once
	engineErr  error
)

func loadEngine() (*html.Engine, error) {
	engineOnce.Do(func() {
		sub, err := fs.Sub(templatesFS, "templates")
		if err != nil {
			engineErr = err
			return
		}
		engine = html.NewFileSystem(http.FS(sub), ".html")
		engineErr = engine.Load()
	})
	return engine, engineErr
}

// Render executes template name inside the email layout.
func Render(name string, data map[string]interface{}) (string, error) {
	e, err := loadEngine()
	if err != nil {
		return "", fmt.Errorf("load mail templates: %w", err)
	}
	if _, ok := data["BrandColor"]; !ok || data["BrandColor"] == "" {
		data["BrandColor"] = defaultBrandColor
	}
	var buf bytes.Buffer
	if err := e.Render(&buf, name, data, "layouts/email"); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}
