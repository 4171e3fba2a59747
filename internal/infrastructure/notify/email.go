// Package notify implements briefing and alert delivery channels.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"net/smtp"
	"strings"

	"techbriefing/internal/config"
	"techbriefing/internal/domain"
	"techbriefing/internal/ports"
)

// EmailNotifier delivers briefings as multipart text+HTML mail and
// alerts as plain text.
type EmailNotifier struct {
	cfg    config.EmailConfig
	logger *slog.Logger
	send   func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error
}

var _ ports.Notifier = (*EmailNotifier)(nil)

// NewEmailNotifier wires SMTP settings.
func NewEmailNotifier(cfg config.EmailConfig, logger *slog.Logger) *EmailNotifier {
	return &EmailNotifier{cfg: cfg, logger: logger, send: smtp.SendMail}
}

// SendBriefing mails the rendered briefing to every subscriber.
func (n *EmailNotifier) SendBriefing(_ context.Context, briefing *domain.Briefing) error {
	if !n.cfg.Enabled || len(n.cfg.ToAddresses) == 0 {
		return fmt.Errorf("email notifier disabled or no recipients")
	}

	msg := buildMultipartMessage(n.cfg.From, n.cfg.ToAddresses, briefing.Title,
		briefing.ContentText, briefing.ContentHTML)

	if err := n.deliver(msg); err != nil {
		return fmt.Errorf("send briefing mail: %w", err)
	}
	if n.logger != nil {
		n.logger.Info("briefing mailed", "title", briefing.Title, "recipients", len(n.cfg.ToAddresses))
	}
	return nil
}

// SendAlert mails a plain-text operational alert.
func (n *EmailNotifier) SendAlert(_ context.Context, title, message string) error {
	if !n.cfg.Enabled || len(n.cfg.ToAddresses) == 0 {
		return fmt.Errorf("email notifier disabled or no recipients")
	}

	var b strings.Builder
	writeHeaders(&b, n.cfg.From, n.cfg.ToAddresses, "[alert] "+title)
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(message)
	b.WriteString("\r\n")

	if err := n.deliver([]byte(b.String())); err != nil {
		return fmt.Errorf("send alert mail: %w", err)
	}
	return nil
}

func (n *EmailNotifier) deliver(msg []byte) error {
	addr := fmt.Sprintf("%s:%d", n.cfg.SMTPHost, n.cfg.SMTPPort)
	var auth smtp.Auth
	if n.cfg.SMTPUser != "" {
		auth = smtp.PlainAuth("", n.cfg.SMTPUser, n.cfg.SMTPPass, n.cfg.SMTPHost)
	}
	return n.send(addr, auth, n.cfg.From, n.cfg.ToAddresses, msg)
}

const multipartBoundary = "briefing-boundary-7f3a"

func buildMultipartMessage(from string, to []string, subject, text, html string) []byte {
	var b strings.Builder
	writeHeaders(&b, from, to, subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", multipartBoundary)

	fmt.Fprintf(&b, "--%s\r\n", multipartBoundary)
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(text)
	b.WriteString("\r\n")

	fmt.Fprintf(&b, "--%s\r\n", multipartBoundary)
	b.WriteString("Content-Type: text/html; charset=utf-8\r\n\r\n")
	b.WriteString(html)
	b.WriteString("\r\n")

	fmt.Fprintf(&b, "--%s--\r\n", multipartBoundary)
	return []byte(b.String())
}

func writeHeaders(b *strings.Builder, from string, to []string, subject string) {
	fmt.Fprintf(b, "From: %s\r\n", from)
	fmt.Fprintf(b, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
}
