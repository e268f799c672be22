package mail

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/schoolhub-api/pkg/config"
)

func TestNewSenderSelectsDriver(t *testing.T) {
	s, err := NewSender(config.MailConfig{Driver: config.MailDriverLog}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &LogSender{}, s)

	s, err = NewSender(config.MailConfig{Driver: config.MailDriverSMTP, SMTPHost: "smtp.example.com", SMTPPort: 587, From: "a@b.c"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &SMTPSender{}, s)

	s, err = NewSender(config.MailConfig{Driver: config.MailDriverSendGrid, SendGridAPIKey: "SG.x"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &SendGridSender{}, s)

	_, err = NewSender(config.MailConfig{Driver: config.MailDriverSendGrid}, nil)
	assert.Error(t, err)

	_, err = NewSender(config.MailConfig{Driver: "pigeon"}, nil)
	assert.Error(t, err)
}

func TestLogSenderRejectsEmptyRecipient(t *testing.T) {
	err := NewLogSender(nil).Send(context.Background(), Message{Subject: "x", TextBody: "y"})
	assert.Error(t, err)
}

func TestLogSenderWritesEntry(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	s := NewLogSender(zap.New(core))

	require.NoError(t, s.Send(context.Background(), Message{To: "t@example.com", Subject: "hi", TextBody: "body"}))
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "t@example.com", logs.All()[0].ContextMap()["to"])
}

func TestBuildOTPEmail(t *testing.T) {
	msg := BuildOTPEmail(OTPEmailData{SiteName: "SchoolHub", Name: "Ana", Code: "123456", ExpiresIn: 10 * time.Minute})

	assert.Contains(t, msg.Subject, "SchoolHub")
	assert.Contains(t, msg.TextBody, "123456")
	assert.Contains(t, msg.TextBody, "10 minutes")
	assert.Contains(t, msg.HTMLBody, "123456")
	assert.Contains(t, msg.HTMLBody, "Hello Ana")
}

func TestContactNotificationEscapesHTML(t *testing.T) {
	msg := BuildContactNotification(ContactEmailData{
		SiteName: "SchoolHub",
		Name:     "Eve",
		Email:    "eve@example.com",
		Subject:  "Hi",
		Message:  "<b>bold</b>",
		Received: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	})

	assert.Equal(t, "eve@example.com", msg.ReplyTo)
	assert.False(t, strings.Contains(msg.HTMLBody, "<b>bold</b>"))
	assert.Contains(t, msg.HTMLBody, "&lt;b&gt;bold&lt;/b&gt;")
}

func TestSMTPBuildSetsReplyTo(t *testing.T) {
	s := NewSMTPSender("smtp.example.com", 587, "user@example.com", "pw", From{Name: "SchoolHub"})
	m := s.build(Message{To: "x@example.com", ReplyTo: "support@example.com", Subject: "s", TextBody: "t", HTMLBody: "<p>t</p>"})

	assert.Equal(t, []string{"support@example.com"}, m.GetHeader("Reply-To"))
	assert.Equal(t, []string{"x@example.com"}, m.GetHeader("To"))
}

func TestSendGridBuild(t *testing.T) {
	s := NewSendGridSender("SG.key", From{Name: "SchoolHub", Address: "no-reply@example.com"})
	m := s.build(Message{To: "x@example.com", ReplyTo: "support@example.com", Subject: "s", TextBody: "t"})

	require.Len(t, m.Personalizations, 1)
	assert.Equal(t, "x@example.com", m.Personalizations[0].To[0].Address)
	assert.Equal(t, "support@example.com", m.ReplyTo.Address)
	require.Len(t, m.Content, 1)
	assert.Equal(t, "text/plain", m.Content[0].Type)
}
