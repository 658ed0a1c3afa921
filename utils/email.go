package utils

import (
	"crypto/tls"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/lgcert/indigene-certificate/config"
)

// Mailer sends plain HTML mail over SMTP with STARTTLS.
type Mailer struct {
	host      string
	port      string
	username  string
	password  string
	fromName  string
	fromEmail string
}

func NewMailer(cfg *config.Config) *Mailer {
	from := cfg.SMTPFromEmail
	if from == "" {
		from = cfg.SMTPUsername
	}
	return &Mailer{
		host:      cfg.SMTPHost,
		port:      cfg.SMTPPort,
		username:  cfg.SMTPUsername,
		password:  cfg.SMTPPassword,
		fromName:  cfg.SMTPFromName,
		fromEmail: from,
	}
}

// Enabled reports whether SMTP credentials are configured.
func (m *Mailer) Enabled() bool {
	return m.host != "" && m.username != "" && m.password != ""
}

func (m *Mailer) Send(to []string, subject, htmlBody string) error {
	if !m.Enabled() || len(to) == 0 {
		return nil
	}

	client, err := smtp.Dial(m.host + ":" + m.port)
	if err != nil {
		return fmt.Errorf("failed to dial SMTP server: %w", err)
	}
	defer client.Close()

	if err := client.StartTLS(&tls.Config{ServerName: m.host}); err != nil {
		return fmt.Errorf("failed to start TLS: %w", err)
	}
	if err := client.Auth(smtp.PlainAuth("", m.username, m.password, m.host)); err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}
	if err := client.Mail(m.fromEmail); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("failed to add recipient %s: %w", rcpt, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to open data writer: %w", err)
	}
	if _, err := w.Write(BuildMessage(m.fromName, m.fromEmail, to, subject, htmlBody)); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}
	return client.Quit()
}

// BuildMessage renders the RFC 5322 message the mailer sends.
func BuildMessage(fromName, fromEmail string, to []string, subject, htmlBody string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s <%s>\r\n", fromName, fromEmail)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n")
	b.WriteString(htmlBody)
	return []byte(b.String())
}
