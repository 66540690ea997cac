package infra

import (
	"errors"
	"fmt"
	"net/smtp"
	"os"
	"path/filepath"
	"strings"

	"magirls/internal/config"

	"github.com/jordan-wright/email"
)

// ErrMailerDisabled is returned by Send when no SMTP host is configured.
var ErrMailerDisabled = errors.New("mailer: SMTP_HOST not configured")

// Mail is one outgoing store message. ReceiptPath, when set, is attached as
// a PDF under its base name.
type Mail struct {
	To          string
	Subject     string
	Body        string
	ReceiptPath string
}

// Mailer sends store mail from "<store name> <SMTP_USER>".
type Mailer struct {
	from     string
	user     string
	password string
	host     string
	addr     string

	send func(e *email.Email, addr string, auth smtp.Auth) error
}

func NewMailer(cfg *config.Config) *Mailer {
	from := cfg.SMTPUser
	if name := strings.TrimSpace(cfg.StoreName); name != "" && from != "" {
		from = fmt.Sprintf("%q <%s>", name, cfg.SMTPUser)
	}
	return &Mailer{
		from:     from,
		user:     cfg.SMTPUser,
		password: cfg.SMTPPassword,
		host:     cfg.SMTPHost,
		addr:     fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort),
		send: func(e *email.Email, addr string, auth smtp.Auth) error {
			return e.Send(addr, auth)
		},
	}
}

// Enabled reports whether an SMTP host is configured.
func (m *Mailer) Enabled() bool { return m.host != "" }

func (m *Mailer) Send(msg Mail) error {
	if !m.Enabled() {
		return ErrMailerDisabled
	}
	e, err := m.compose(msg)
	if err != nil {
		return err
	}
	return m.send(e, m.addr, smtp.PlainAuth("", m.user, m.password, m.host))
}

func (m *Mailer) compose(msg Mail) (*email.Email, error) {
	if strings.TrimSpace(msg.To) == "" {
		return nil, errors.New("mailer: empty recipient")
	}
	e := email.NewEmail()
	e.From = m.from
	e.To = []string{msg.To}
	e.Subject = msg.Subject
	e.Text = []byte(msg.Body)

	if msg.ReceiptPath != "" {
		f, err := os.Open(msg.ReceiptPath)
		if err != nil {
			return nil, fmt.Errorf("mailer: open receipt: %w", err)
		}
		defer f.Close()
		if _, err := e.Attach(f, filepath.Base(msg.ReceiptPath), "application/pdf"); err != nil {
			return nil, fmt.Errorf("mailer: attach receipt: %w", err)
		}
	}
	return e, nil
}
