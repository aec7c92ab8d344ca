package booking

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/508dev/interview-service/internal/event_bus"
	"github.com/508dev/interview-service/internal/utils"
	"github.com/508dev/interview-service/pkg/interviewer"
	"github.com/508dev/interview-service/pkg/payment"
	"github.com/508dev/interview-service/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ctx = context.Background()

var now = time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)

type fixture struct {
	service      *ServiceImpl
	repo         *StubRepository
	gateway      *payment.StubGateway
	store        *storage.MemoryStorage
	bus          *event_bus.EventBus
	interviewers *interviewer.ServiceImpl
	owner        interviewer.Interviewer
	confirmed    []event_bus.BookingConfirmed
}

func setupService(t *testing.T) *fixture {
	t.Helper()
	store := storage.NewMemoryStorage()
	interviewers := interviewer.NewService(interviewer.NewStubRepository(), store)
	owner, err := interviewers.CreateInterviewer(ctx, interviewer.Interviewer{
		UserId:          1,
		FirstName:       "Jane",
		LastName:        "Doe",
		Email:           "jane@508.dev",
		Bio:             "Staff engineer",
		CalEventTypeId:  "jane/60min",
		HourlyRateCents: 15000,
		IsActive:        true,
	})
	require.NoError(t, err)

	f := &fixture{
		repo:         NewStubRepository(),
		gateway:      payment.NewStubGateway(),
		store:        store,
		bus:          event_bus.NewEventBus(),
		interviewers: interviewers,
		owner:        owner,
	}
	f.service = NewService(f.repo, interviewers, f.gateway, store, f.bus, utils.NewFixedClock(now), "https://interviews.508.dev/")
	event_bus.SubscribeTyped(f.bus, event_bus.BookingConfirmedEvent, func(e event_bus.EventT[event_bus.BookingConfirmed]) error {
		f.confirmed = append(f.confirmed, e.Data)
		return nil
	})
	return f
}

func (f *fixture) book(t *testing.T, scheduledAt time.Time) Booking {
	t.Helper()
	req := validRequest()
	req.ScheduledAt = scheduledAt
	checkout, err := f.service.CreateBooking(ctx, f.owner.Id, req, nil)
	require.NoError(t, err)
	b, err := f.repo.Get(ctx, checkout.BookingId)
	require.NoError(t, err)
	return b
}

func TestService_CreateBooking(t *testing.T) {
	t.Run("should store pending booking and create checkout", func(t *testing.T) {
		// given
		f := setupService(t)
		req := validRequest()
		req.DurationMinutes = 30
		resume := &storage.Upload{Filename: "cv.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.4")}

		// when
		checkout, err := f.service.CreateBooking(ctx, f.owner.Id, req, resume)

		// then
		require.NoError(t, err)
		assert.Equal(t, "https://checkout.stripe.com/c/pay/cs_test_1", checkout.URL)

		b, err := f.repo.Get(ctx, checkout.BookingId)
		require.NoError(t, err)
		assert.Equal(t, StatusPending, b.Status)
		assert.Equal(t, "cs_test_1", b.StripeCheckoutSessionId)
		assert.True(t, storage.HasPrefix(b.ResumeKey, storage.ResumePrefix))
		assert.Equal(t, 30, b.DurationMinutes)

		require.Len(t, f.gateway.Requests, 1)
		sent := f.gateway.Requests[0]
		assert.Equal(t, int64(7500), sent.AmountCents)
		assert.Equal(t, "Jane Doe", sent.InterviewerName)
		assert.Equal(t, "test@example.com", sent.CustomerEmail)
		assert.Equal(t, "https://interviews.508.dev/bookings/success/?session_id={CHECKOUT_SESSION_ID}", sent.SuccessURL)
		assert.Equal(t, "https://interviews.508.dev/bookings/cancel/?booking_id=1", sent.CancelURL)
		assert.Equal(t, f.owner.Id, sent.InterviewerId)
	})

	t.Run("should still hand out checkout when session id can not be recorded", func(t *testing.T) {
		// given
		f := setupService(t)
		f.repo.FailCheckoutSession = errors.New("connection reset")

		// when
		checkout, err := f.service.CreateBooking(ctx, f.owner.Id, validRequest(), nil)

		// then
		require.NoError(t, err)
		assert.Equal(t, "https://checkout.stripe.com/c/pay/cs_test_1", checkout.URL)
		b, err := f.repo.Get(ctx, checkout.BookingId)
		require.NoError(t, err)
		assert.Equal(t, StatusPending, b.Status)
		assert.Empty(t, b.StripeCheckoutSessionId)

		confirmed, err := f.service.ConfirmPayment(ctx, checkout.BookingId, "pi_1")
		require.NoError(t, err)
		assert.Equal(t, StatusConfirmed, confirmed.Status)
		assert.Len(t, f.confirmed, 1)
	})

	t.Run("should remove booking and resume when checkout fails", func(t *testing.T) {
		// given
		f := setupService(t)
		f.gateway.Err = errors.New("card payments are not enabled")
		resume := &storage.Upload{Filename: "cv.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.4")}

		// when
		_, err := f.service.CreateBooking(ctx, f.owner.Id, validRequest(), resume)

		// then
		assert.ErrorIs(t, err, ErrPaymentSetup)
		var setupErr *PaymentSetupError
		require.ErrorAs(t, err, &setupErr)
		assert.Equal(t, "card payments are not enabled", setupErr.Cause.Error())
		_, err = f.repo.Get(ctx, 1)
		assert.ErrorIs(t, err, ErrBookingNotFound)
		assert.Empty(t, f.store.Keys())
	})

	t.Run("should reject invalid requests before touching storage", func(t *testing.T) {
		f := setupService(t)
		req := validRequest()
		req.CustomerEmail = ""

		_, err := f.service.CreateBooking(ctx, f.owner.Id, req, nil)

		var validation *ValidationError
		assert.ErrorAs(t, err, &validation)
		assert.Empty(t, f.gateway.Requests)
	})

	t.Run("should refuse inactive interviewers", func(t *testing.T) {
		f := setupService(t)
		inactive, err := f.interviewers.CreateInterviewer(ctx, interviewer.Interviewer{UserId: 2, Bio: "b", CalEventTypeId: "x"})
		require.NoError(t, err)

		_, err = f.service.CreateBooking(ctx, inactive.Id, validRequest(), nil)

		assert.ErrorIs(t, err, interviewer.ErrInterviewerNotFound)
	})
}

func TestService_ConfirmPayment(t *testing.T) {
	t.Run("should confirm pending booking and publish once", func(t *testing.T) {
		// given
		f := setupService(t)
		b := f.book(t, now.Add(24*time.Hour))

		// when
		confirmed, err := f.service.ConfirmPayment(ctx, b.Id, "pi_123")
		require.NoError(t, err)
		again, err := f.service.ConfirmPayment(ctx, b.Id, "pi_123")
		require.NoError(t, err)

		// then
		assert.Equal(t, StatusConfirmed, confirmed.Status)
		assert.Equal(t, "pi_123", confirmed.StripePaymentIntentId)
		assert.Equal(t, StatusConfirmed, again.Status)
		require.Len(t, f.confirmed, 1)
		assert.Equal(t, "Jane Doe", f.confirmed[0].InterviewerName)
		assert.Equal(t, "jane@508.dev", f.confirmed[0].InterviewerEmail)
		assert.Equal(t, "test@example.com", f.confirmed[0].CustomerEmail)
	})

	t.Run("should confirm a booking cancelled through the cancel url", func(t *testing.T) {
		f := setupService(t)
		b := f.book(t, now.Add(24*time.Hour))
		require.NoError(t, f.service.CancelPending(ctx, b.Id))

		confirmed, err := f.service.ConfirmPayment(ctx, b.Id, "pi_late")

		require.NoError(t, err)
		assert.Equal(t, StatusConfirmed, confirmed.Status)
		assert.Len(t, f.confirmed, 1)
	})

	t.Run("should leave completed bookings untouched", func(t *testing.T) {
		f := setupService(t)
		b := f.book(t, now.Add(24*time.Hour))
		_, err := f.service.ConfirmPayment(ctx, b.Id, "pi_1")
		require.NoError(t, err)
		_, err = f.service.MarkCompleted(ctx, f.owner.Id, b.Id)
		require.NoError(t, err)

		result, err := f.service.ConfirmPayment(ctx, b.Id, "pi_2")

		require.NoError(t, err)
		assert.Equal(t, StatusCompleted, result.Status)
		assert.Equal(t, "pi_1", result.StripePaymentIntentId)
	})

	t.Run("should report unknown booking", func(t *testing.T) {
		f := setupService(t)

		_, err := f.service.ConfirmPayment(ctx, 999, "pi_1")

		assert.ErrorIs(t, err, ErrBookingNotFound)
	})

	t.Run("should not fail when a subscriber fails", func(t *testing.T) {
		f := setupService(t)
		f.bus.Subscribe(event_bus.BookingConfirmedEvent, func(e event_bus.Event) error {
			return errors.New("smtp unreachable")
		})
		b := f.book(t, now.Add(24*time.Hour))

		confirmed, err := f.service.ConfirmPayment(ctx, b.Id, "pi_1")

		require.NoError(t, err)
		assert.Equal(t, StatusConfirmed, confirmed.Status)
	})
}

func TestService_CancelPending(t *testing.T) {
	f := setupService(t)
	b := f.book(t, now.Add(24*time.Hour))
	var cancelled []event_bus.BookingCancelled
	event_bus.SubscribeTyped(f.bus, event_bus.BookingCancelledEvent, func(e event_bus.EventT[event_bus.BookingCancelled]) error {
		cancelled = append(cancelled, e.Data)
		return nil
	})

	require.NoError(t, f.service.CancelPending(ctx, b.Id))
	require.NoError(t, f.service.CancelPending(ctx, b.Id))

	got, err := f.repo.Get(ctx, b.Id)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, got.Status)
	require.Len(t, cancelled, 1)
	assert.Equal(t, f.owner.Id, cancelled[0].InterviewerId)

	confirmedBooking := f.book(t, now.Add(48*time.Hour))
	_, err = f.service.ConfirmPayment(ctx, confirmedBooking.Id, "pi")
	require.NoError(t, err)
	require.NoError(t, f.service.CancelPending(ctx, confirmedBooking.Id))
	got, err = f.repo.Get(ctx, confirmedBooking.Id)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, got.Status)
}

func TestService_MarkCompleted(t *testing.T) {
	t.Run("should complete confirmed booking for its owner", func(t *testing.T) {
		f := setupService(t)
		b := f.book(t, now.Add(-time.Hour))
		_, err := f.service.ConfirmPayment(ctx, b.Id, "pi")
		require.NoError(t, err)

		completed, err := f.service.MarkCompleted(ctx, f.owner.Id, b.Id)

		require.NoError(t, err)
		assert.Equal(t, StatusCompleted, completed.Status)
	})

	t.Run("should refuse pending bookings", func(t *testing.T) {
		f := setupService(t)
		b := f.book(t, now.Add(-time.Hour))

		_, err := f.service.MarkCompleted(ctx, f.owner.Id, b.Id)

		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("should hide bookings of other interviewers", func(t *testing.T) {
		f := setupService(t)
		b := f.book(t, now.Add(-time.Hour))
		_, err := f.service.ConfirmPayment(ctx, b.Id, "pi")
		require.NoError(t, err)

		_, err = f.service.MarkCompleted(ctx, f.owner.Id+100, b.Id)

		assert.ErrorIs(t, err, ErrBookingNotFound)
	})
}

func TestService_UpcomingAndPast(t *testing.T) {
	// given
	f := setupService(t)
	later := f.book(t, now.Add(48*time.Hour))
	soon := f.book(t, now.Add(2*time.Hour))
	cancelledFuture := f.book(t, now.Add(3*time.Hour))
	require.NoError(t, f.service.CancelPending(ctx, cancelledFuture.Id))
	for n := 1; n <= 7; n++ {
		f.book(t, now.Add(-time.Duration(n)*time.Hour))
	}

	// when
	upcoming, err := f.service.Upcoming(ctx, f.owner.Id)
	require.NoError(t, err)
	past, err := f.service.Past(ctx, f.owner.Id)
	require.NoError(t, err)

	// then
	require.Len(t, upcoming, 2)
	assert.Equal(t, soon.Id, upcoming[0].Id)
	assert.Equal(t, later.Id, upcoming[1].Id)
	require.Len(t, past, PastLimit)
	assert.True(t, past[0].ScheduledAt.Equal(now.Add(-time.Hour)))
}

func TestService_GetBySession(t *testing.T) {
	f := setupService(t)
	b := f.book(t, now.Add(time.Hour))

	got, err := f.service.GetBySession(ctx, b.StripeCheckoutSessionId)
	require.NoError(t, err)
	assert.Equal(t, b.Id, got.Id)

	_, err = f.service.GetBySession(ctx, "cs_unknown")
	assert.ErrorIs(t, err, payment.ErrSessionNotFound)

	f.gateway.AddSession(payment.CheckoutSession{Id: "cs_no_meta"})
	_, err = f.service.GetBySession(ctx, "cs_no_meta")
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestService_Resume(t *testing.T) {
	f := setupService(t)
	checkout, err := f.service.CreateBooking(ctx, f.owner.Id, validRequest(),
		&storage.Upload{Filename: "cv.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.4")})
	require.NoError(t, err)
	withoutResume := f.book(t, now.Add(time.Hour))

	obj, err := f.service.Resume(ctx, f.owner.Id, checkout.BookingId)
	require.NoError(t, err)
	data, err := io.ReadAll(obj.Body)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(data))

	_, err = f.service.Resume(ctx, f.owner.Id, withoutResume.Id)
	assert.ErrorIs(t, err, ErrResumeNotFound)

	_, err = f.service.Resume(ctx, f.owner.Id+1, checkout.BookingId)
	assert.ErrorIs(t, err, ErrBookingNotFound)
}
