package smtp

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/smtp"

	"github.com/jordan-wright/email"
	"github.com/marketplace-auth/internal/config"
)

//go:embed templates/*.html
var templateFS embed.FS

// Mailer sends templated emails.
type Mailer interface {
	SendTemplate(ctx context.Context, to, subject, name string, data map[string]any) error
}

type mailer struct {
	addr      string
	from      string
	auth      smtp.Auth
	templates *template.Template
	send      func(e *email.Email, addr string, auth smtp.Auth) error
}

func NewMailer(cfg *config.Config) (Mailer, error) {
	tpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse mail templates: %w", err)
	}
	var auth smtp.Auth
	if cfg.SMTPUsername != "" {
		auth = smtp.PlainAuth("", cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPHost)
	}
	return &mailer{
		addr:      fmt.Sprintf("%s:%s", cfg.SMTPHost, cfg.SMTPPort),
		from:      cfg.SMTPFrom,
		auth:      auth,
		templates: tpl,
		send: func(e *email.Email, addr string, auth smtp.Auth) error {
			return e.Send(addr, auth)
		},
	}, nil
}

// SendTemplate renders templates/<name>.html with data and delivers it as an HTML mail.
func (m *mailer) SendTemplate(ctx context.Context, to, subject, name string, data map[string]any) error {
	body, err := m.render(name, data)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	e := &email.Email{
		To:      []string{to},
		From:    m.from,
		Subject: subject,
		HTML:    body,
	}
	if err := m.send(e, m.addr, m.auth); err != nil {
		slog.Error("error when trying to send email", "template", name, "err", err)
		return fmt.Errorf("send %s mail: %w", name, err)
	}
	return nil
}

func (m *mailer) render(name string, data map[string]any) ([]byte, error) {
	var buf bytes.Buffer
	if err := m.templates.ExecuteTemplate(&buf, name+".html", data); err != nil {
		return nil, fmt.Errorf("render %s: %w", name, err)
	}
	return buf.Bytes(), nil
}
