package mailqueue

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"

	"github.com/collexus/erp/backend/internal/domain"
	"github.com/wneessen/go-mail"
)

//go:embed templates/*.html
var templateFS embed.FS

var ErrUnsupportedMailType = errors.New("unsupported mail type")

type mailTemplate struct {
	file    string
	subject string
}

var mailTemplates = map[string]mailTemplate{
	domain.MailTypeWelcome:        {file: "templates/welcome.html", subject: "Collexus ERP - Welcome"},
	domain.MailTypeAccountCreated: {file: "templates/account_created.html", subject: "Collexus ERP - Your account"},
	domain.MailTypeResetPassword:  {file: "templates/reset_password.html", subject: "Collexus ERP - Password reset code"},
	domain.MailTypeChangeEmail:    {file: "templates/change_email.html", subject: "Collexus ERP - Confirm your new email"},
}

// Renderer turns queued mail messages into ready-to-send go-mail messages.
type Renderer struct {
	from      string
	templates map[string]*template.Template
}

func NewRenderer(from string) (*Renderer, error) {
	r := &Renderer{
		from:      from,
		templates: make(map[string]*template.Template, len(mailTemplates)),
	}
	for mailType, mt := range mailTemplates {
		tmpl, err := template.ParseFS(templateFS, mt.file)
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", mailType, err)
		}
		r.templates[mailType] = tmpl
	}
	return r, nil
}

func (r *Renderer) Render(message domain.MailMessage) (*mail.Msg, error) {
	tmpl, ok := r.templates[message.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedMailType, message.Type)
	}

	msg := mail.NewMsg()
	if err := msg.From(r.from); err != nil {
		return nil, fmt.Errorf("set sender: %w", err)
	}
	if err := msg.To(message.To); err != nil {
		return nil, fmt.Errorf("set recipient: %w", err)
	}
	msg.Subject(mailTemplates[message.Type].subject)

	data, err := templateData(message.Data)
	if err != nil {
		return nil, fmt.Errorf("decode %s data: %w", message.Type, err)
	}
	if err := msg.SetBodyHTMLTemplate(tmpl, data); err != nil {
		return nil, fmt.Errorf("render %s body: %w", message.Type, err)
	}
	return msg, nil
}

// templateData brings typed payloads into the same shape as payloads decoded off the queue,
// so templates can always address fields by their JSON names.
func templateData(data any) (map[string]any, error) {
	if m, ok := data.(map[string]any); ok {
		return m, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	m := map[string]any{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}
