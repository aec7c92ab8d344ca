package notification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/508dev/interview-service/internal/config"
	"github.com/508dev/interview-service/internal/event_bus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var mailer = &StubMailer{}

func setupNotifier(t *testing.T) *Notifier {
	t.Helper()
	t.Cleanup(mailer.Reset)
	n, err := NewNotifier(mailer)
	require.NoError(t, err)
	return n
}

func confirmedBooking() event_bus.BookingConfirmed {
	return event_bus.BookingConfirmed{
		BookingId:          7,
		ScheduledAt:        time.Date(2025, 1, 5, 14, 30, 0, 0, time.UTC),
		DurationMinutes:    60,
		CustomerName:       "Test User",
		CustomerEmail:      "test@example.com",
		CustomerBackground: "5 years of backend development",
		InterviewFocus:     "System design",
		InterviewerName:    "Jane Doe",
		InterviewerEmail:   "jane@508.dev",
	}
}

func TestNotifier_SendCustomerConfirmation(t *testing.T) {
	// given
	n := setupNotifier(t)

	// when
	err := n.SendCustomerConfirmation(context.Background(), confirmedBooking())

	// then
	require.NoError(t, err)
	require.Len(t, mailer.Sent, 1)
	msg := mailer.Sent[0]
	assert.Equal(t, "test@example.com", msg.To)
	assert.Equal(t, "Interview Booking Confirmed - January 05, 2025", msg.Subject)
	assert.Contains(t, msg.Text, "Interviewer: Jane Doe")
	assert.Contains(t, msg.Text, "Date: January 05, 2025 at 02:30 PM UTC")
	assert.Contains(t, msg.Text, "Duration: 60 minutes")
	assert.Contains(t, msg.HTML, "Jane Doe")
}

func TestNotifier_SendInterviewerNotification(t *testing.T) {
	t.Run("should use placeholders for optional fields", func(t *testing.T) {
		n := setupNotifier(t)

		err := n.SendInterviewerNotification(context.Background(), confirmedBooking())

		require.NoError(t, err)
		require.Len(t, mailer.Sent, 1)
		msg := mailer.Sent[0]
		assert.Equal(t, "jane@508.dev", msg.To)
		assert.Equal(t, "New Interview Booking - Test User", msg.Subject)
		assert.Contains(t, msg.Text, "Target Companies:\nNot specified")
		assert.Contains(t, msg.Text, "Additional Info:\nNone")
		assert.NotContains(t, msg.Text, "resume")
		assert.Contains(t, msg.HTML, "Not specified")
	})

	t.Run("should include provided details", func(t *testing.T) {
		n := setupNotifier(t)
		b := confirmedBooking()
		b.TargetCompanies = "Google, Stripe"
		b.AdditionalInfo = "Prefers Go"
		b.HasResume = true

		require.NoError(t, n.SendInterviewerNotification(context.Background(), b))

		msg := mailer.Sent[0]
		assert.Contains(t, msg.Text, "Target Companies:\nGoogle, Stripe")
		assert.Contains(t, msg.Text, "Additional Info:\nPrefers Go")
		assert.Contains(t, msg.Text, "download their resume")
	})

	t.Run("should escape customer input in html body", func(t *testing.T) {
		n := setupNotifier(t)
		b := confirmedBooking()
		b.CustomerBackground = "<script>alert(1)</script>"

		require.NoError(t, n.SendInterviewerNotification(context.Background(), b))

		assert.NotContains(t, mailer.Sent[0].HTML, "<script>")
		assert.Contains(t, mailer.Sent[0].Text, "<script>alert(1)</script>")
	})
}

func TestNotifier_Subscribe(t *testing.T) {
	t.Run("should send both emails on confirmation", func(t *testing.T) {
		// given
		n := setupNotifier(t)
		bus := event_bus.NewEventBus()
		n.Subscribe(bus)

		// when
		err := bus.Publish(event_bus.NewEvent(context.Background(), event_bus.BookingConfirmedEvent, confirmedBooking()))

		// then
		require.NoError(t, err)
		require.Len(t, mailer.Sent, 2)
		assert.Equal(t, "test@example.com", mailer.Sent[0].To)
		assert.Equal(t, "jane@508.dev", mailer.Sent[1].To)
	})

	t.Run("should swallow delivery failures", func(t *testing.T) {
		// given
		n := setupNotifier(t)
		mailer.Err = errors.New("connection refused")
		bus := event_bus.NewEventBus()
		n.Subscribe(bus)

		// when
		err := bus.Publish(event_bus.NewEvent(context.Background(), event_bus.BookingConfirmedEvent, confirmedBooking()))

		// then
		assert.NoError(t, err)
		assert.Empty(t, mailer.Sent)
	})
}

func TestNewMailer(t *testing.T) {
	m, err := NewMailer(config.Email{Backend: "console", From: "noreply@508.dev"})
	require.NoError(t, err)
	assert.IsType(t, &ConsoleMailer{}, m)
	assert.NoError(t, m.Send(context.Background(), Message{To: "a@example.com", Subject: "hi", Text: "body"}))

	m, err = NewMailer(config.Email{Backend: "smtp", Host: "localhost", Port: 2525, From: "noreply@508.dev"})
	require.NoError(t, err)
	assert.IsType(t, &SMTPMailer{}, m)

	_, err = NewMailer(config.Email{Backend: "carrier-pigeon"})
	assert.Error(t, err)
}
