package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/schoolhub-api/internal/models"
	"github.com/noah-isme/schoolhub-api/pkg/config"
	"github.com/noah-isme/schoolhub-api/pkg/jobs"
	"github.com/noah-isme/schoolhub-api/pkg/mail"
)

type recordingQueue struct {
	jobs []jobs.Job[mail.Message]
}

func (q *recordingQueue) Enqueue(ctx context.Context, job jobs.Job[mail.Message]) error {
	q.jobs = append(q.jobs, job)
	return nil
}

var testMailConfig = config.MailConfig{
	FromName:         "SchoolHub",
	AdminNotifyEmail: "ops@schoolhub.test",
	SupportEmail:     "support@schoolhub.test",
}

func TestMailNotifierSendOTP(t *testing.T) {
	queue := &recordingQueue{}
	n := NewMailNotifier(queue, testMailConfig, zap.NewNop())

	require.NoError(t, n.SendOTP(context.Background(), "sam@school.test", "Sam", "123456", 10*time.Minute))
	require.Len(t, queue.jobs, 1)
	job := queue.jobs[0]
	assert.Equal(t, MailJobOTP, job.Type)
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, "sam@school.test", job.Payload.To)
	assert.Contains(t, job.Payload.TextBody, "123456")
}

func TestMailNotifierContactReceived(t *testing.T) {
	queue := &recordingQueue{}
	n := NewMailNotifier(queue, testMailConfig, zap.NewNop())

	err := n.ContactReceived(context.Background(), models.ContactMessage{
		Name: "Pat", Email: "pat@example.com", Subject: "Admissions", Message: "When?", CreatedAt: fixedNow,
	})
	require.NoError(t, err)
	require.Len(t, queue.jobs, 2)

	notify, ack := queue.jobs[0], queue.jobs[1]
	assert.Equal(t, MailJobContactNotify, notify.Type)
	assert.Equal(t, "ops@schoolhub.test", notify.Payload.To)
	assert.Equal(t, "pat@example.com", notify.Payload.ReplyTo)

	assert.Equal(t, MailJobContactAcknowledge, ack.Type)
	assert.Equal(t, "pat@example.com", ack.Payload.To)
	assert.Equal(t, "support@schoolhub.test", ack.Payload.ReplyTo)
}

type failingSender struct{}

func (failingSender) Send(ctx context.Context, msg mail.Message) error {
	return errors.New("relay refused")
}

func TestMailQueueCountsAbandonedDeliveries(t *testing.T) {
	metrics := NewMetricsService()
	cfg := testMailConfig
	cfg.Workers, cfg.Retries, cfg.RetryDelay = 1, 0, time.Millisecond
	queue := NewMailQueue(failingSender{}, cfg, metrics, zap.NewNop())
	queue.Start(context.Background())
	defer queue.Stop()

	n := NewMailNotifier(queue, cfg, zap.NewNop())
	require.NoError(t, n.SendOTP(context.Background(), "sam@school.test", "Sam", "654321", time.Minute))

	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(metrics.mailFailures.WithLabelValues(MailJobOTP)) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestMetricsServiceExposesCounters(t *testing.T) {
	metrics := NewMetricsService()
	metrics.RecordPayment(12.5)
	metrics.RecordOTPIssued("teacher")
	metrics.RecordAttendance("marked", 3)
	metrics.RecordAttendance("failed", 0)

	assert.Equal(t, 12.5, testutil.ToFloat64(metrics.paymentAmount))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.otpIssued.WithLabelValues("teacher")))
	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.attendanceMarks.WithLabelValues("marked")))

	var nilMetrics *MetricsService
	assert.NotPanics(t, func() {
		nilMetrics.RecordPayment(1)
		nilMetrics.RecordRateLimited("/x")
	})

	body := strings.Builder{}
	families, err := metrics.registry.Gather()
	require.NoError(t, err)
	for _, f := range families {
		body.WriteString(f.GetName() + "\n")
	}
	assert.Contains(t, body.String(), "fee_payments_recorded_total")
}
