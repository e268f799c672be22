package service

import (
	"context"
	"html"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"github.com/noah-isme/schoolhub-api/internal/models"
)

type contactStore interface {
	Create(ctx context.Context, msg *models.ContactMessage) error
}

type contactNotifier interface {
	ContactReceived(ctx context.Context, msg models.ContactMessage) error
}

// ContactRequest is the public contact form.
type ContactRequest struct {
	Name    string `json:"name" validate:"required,max=100"`
	Email   string `json:"email" validate:"required,email"`
	Subject string `json:"subject" validate:"required,max=200"`
	Message string `json:"message" validate:"required,max=5000"`
}

// ContactService stores contact messages and notifies operators.
type ContactService struct {
	repo      contactStore
	notifier  contactNotifier
	policy    *bluemonday.Policy
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewContactService constructs ContactService.
func NewContactService(repo contactStore, notifier contactNotifier, validate *validator.Validate, logger *zap.Logger) *ContactService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ContactService{repo: repo, notifier: notifier, policy: bluemonday.StrictPolicy(), validator: validate, logger: logger, now: time.Now}
}

// Submit sanitises and stores the message, then queues the emails. A queueing
// failure is logged; the stored message is still reported as accepted.
func (s *ContactService) Submit(ctx context.Context, req ContactRequest) (*models.ContactMessage, error) {
	msg := &models.ContactMessage{
		Name:      s.clean(req.Name),
		Email:     normalizeEmail(req.Email),
		Subject:   s.clean(req.Subject),
		Message:   s.clean(req.Message),
		CreatedAt: s.now().UTC(),
	}
	check := ContactRequest{Name: msg.Name, Email: msg.Email, Subject: msg.Subject, Message: msg.Message}
	if err := validateStruct(s.validator, check, "contact"); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, msg); err != nil {
		return nil, internalErr(err, "failed to store contact message")
	}
	if err := s.notifier.ContactReceived(ctx, *msg); err != nil {
		s.logger.Warn("contact notification not queued", zap.String("contact_id", msg.ID), zap.Error(err))
	}
	return msg, nil
}

// clean strips every tag and returns plain text. Entities the sanitiser emits
// are decoded so stored values and plain-text mail read as typed; html/template
// escapes them again for HTML bodies. Decoding can surface markup that was sent
// pre-escaped, so the pass repeats until the text is stable.
func (s *ContactService) clean(v string) string {
	for i := 0; i < maxCleanPasses; i++ {
		next := html.UnescapeString(s.policy.Sanitize(v))
		if next == v {
			break
		}
		v = next
	}
	return strings.TrimSpace(v)
}

const maxCleanPasses = 4
