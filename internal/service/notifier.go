package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/schoolhub-api/internal/models"
	"github.com/noah-isme/schoolhub-api/pkg/config"
	"github.com/noah-isme/schoolhub-api/pkg/jobs"
	"github.com/noah-isme/schoolhub-api/pkg/mail"
)

// Mail job types.
const (
	MailJobOTP                = "otp"
	MailJobContactNotify      = "contact_notify"
	MailJobContactAcknowledge = "contact_ack"
)

type mailQueue interface {
	Enqueue(ctx context.Context, job jobs.Job[mail.Message]) error
}

// NewMailQueue builds the delivery queue. Jobs that exhaust their retries are
// counted and logged, never surfaced to the original request.
func NewMailQueue(sender mail.Sender, cfg config.MailConfig, metrics *MetricsService, logger *zap.Logger) *jobs.Queue[mail.Message] {
	if logger == nil {
		logger = zap.NewNop()
	}
	queue := jobs.NewQueue("mail", func(ctx context.Context, job jobs.Job[mail.Message]) error {
		return sender.Send(ctx, job.Payload)
	}, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.Retries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})
	queue.OnDrop(func(job jobs.Job[mail.Message], err error) {
		metrics.RecordMailFailure(job.Type)
		logger.Error("mail delivery abandoned",
			zap.String("job_id", job.ID),
			zap.String("type", job.Type),
			zap.Int("attempts", job.Attempt),
			zap.Error(err))
	})
	return queue
}

// MailNotifier renders outbound emails and hands them to the delivery queue.
type MailNotifier struct {
	queue    mailQueue
	siteName string
	notifyTo string
	support  string
	logger   *zap.Logger
}

// NewMailNotifier constructs MailNotifier.
func NewMailNotifier(queue mailQueue, cfg config.MailConfig, logger *zap.Logger) *MailNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	site := cfg.FromName
	if site == "" {
		site = "SchoolHub"
	}
	return &MailNotifier{queue: queue, siteName: site, notifyTo: cfg.AdminNotifyEmail, support: cfg.SupportEmail, logger: logger}
}

// SendOTP queues a password reset code.
func (n *MailNotifier) SendOTP(ctx context.Context, to, name, code string, ttl time.Duration) error {
	msg := mail.BuildOTPEmail(mail.OTPEmailData{SiteName: n.siteName, Name: name, Code: code, ExpiresIn: ttl})
	msg.To = to
	return n.enqueue(ctx, MailJobOTP, msg)
}

// ContactReceived notifies operators and acknowledges the sender.
func (n *MailNotifier) ContactReceived(ctx context.Context, contact models.ContactMessage) error {
	data := mail.ContactEmailData{
		SiteName: n.siteName,
		Name:     contact.Name,
		Email:    contact.Email,
		Subject:  contact.Subject,
		Message:  contact.Message,
		Received: contact.CreatedAt,
	}
	if n.notifyTo != "" {
		notify := mail.BuildContactNotification(data)
		notify.To = n.notifyTo
		if err := n.enqueue(ctx, MailJobContactNotify, notify); err != nil {
			return err
		}
	}
	return n.enqueue(ctx, MailJobContactAcknowledge, mail.BuildContactAcknowledgement(data, n.support))
}

func (n *MailNotifier) enqueue(ctx context.Context, kind string, msg mail.Message) error {
	job := jobs.Job[mail.Message]{ID: uuid.NewString(), Type: kind, Payload: msg}
	if err := n.queue.Enqueue(ctx, job); err != nil {
		n.logger.Error("failed to queue email", zap.String("type", kind), zap.Error(err))
		return err
	}
	return nil
}
