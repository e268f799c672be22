// Package mail delivers transactional email over SMTP, SendGrid, or the log.
package mail

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/schoolhub-api/pkg/config"
)

// Message is a provider-neutral email.
type Message struct {
	To       string
	ReplyTo  string
	Subject  string
	TextBody string
	HTMLBody string
}

// Sender delivers a single message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// From identifies the sending mailbox.
type From struct {
	Name    string
	Address string
}

// NewSender picks a transport from MAIL_DRIVER.
func NewSender(cfg config.MailConfig, logger *zap.Logger) (Sender, error) {
	from := From{Name: cfg.FromName, Address: cfg.From}
	switch cfg.Driver {
	case config.MailDriverSMTP:
		if cfg.SMTPHost == "" {
			return nil, fmt.Errorf("mail driver smtp requires SMTP_HOST")
		}
		return NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, from), nil
	case config.MailDriverSendGrid:
		if cfg.SendGridAPIKey == "" {
			return nil, fmt.Errorf("mail driver sendgrid requires SENDGRID_API_KEY")
		}
		return NewSendGridSender(cfg.SendGridAPIKey, from), nil
	case config.MailDriverLog, "":
		return NewLogSender(logger), nil
	default:
		return nil, fmt.Errorf("unknown mail driver %q", cfg.Driver)
	}
}

func validate(msg Message) error {
	if msg.To == "" {
		return fmt.Errorf("mail: missing recipient")
	}
	if msg.TextBody == "" && msg.HTMLBody == "" {
		return fmt.Errorf("mail: empty body for %q", msg.Subject)
	}
	return nil
}
