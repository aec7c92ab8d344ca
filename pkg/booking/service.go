package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/508dev/interview-service/internal/event_bus"
	"github.com/508dev/interview-service/internal/metrics"
	"github.com/508dev/interview-service/internal/utils"
	"github.com/508dev/interview-service/pkg/interviewer"
	"github.com/508dev/interview-service/pkg/payment"
	"github.com/508dev/interview-service/pkg/storage"
	log "github.com/sirupsen/logrus"
)

const (
	UpcomingLimit  = 10
	PastLimit      = 5
	MaxResumeBytes = 10 << 20
)

var ErrResumeNotFound = errors.New("booking has no resume")

// PaymentSetupError wraps the checkout provider failure that aborted a booking.
type PaymentSetupError struct {
	Cause error
}

func (e *PaymentSetupError) Error() string {
	return ErrPaymentSetup.Error() + ": " + e.Cause.Error()
}

func (e *PaymentSetupError) Unwrap() []error {
	return []error{ErrPaymentSetup, e.Cause}
}

// Checkout is where the customer is sent to pay for a new booking.
type Checkout struct {
	BookingId int
	URL       string
}

type Service interface {
	CreateBooking(ctx context.Context, interviewerId int, req Request, resume *storage.Upload) (Checkout, error)
	ConfirmPayment(ctx context.Context, bookingId int, paymentIntentId string) (Booking, error)
	CancelPending(ctx context.Context, bookingId int) error
	MarkCompleted(ctx context.Context, interviewerId, bookingId int) (Booking, error)
	GetForInterviewer(ctx context.Context, interviewerId, bookingId int) (Booking, error)
	GetBySession(ctx context.Context, sessionId string) (Booking, error)
	Upcoming(ctx context.Context, interviewerId int) ([]Booking, error)
	Past(ctx context.Context, interviewerId int) ([]Booking, error)
	Resume(ctx context.Context, interviewerId, bookingId int) (storage.Object, error)
}

type ServiceImpl struct {
	repo         Repository
	interviewers interviewer.Service
	gateway      payment.Gateway
	storage      storage.Storage
	bus          *event_bus.EventBus
	clock        utils.Clock
	host         string
}

func NewService(
	repo Repository,
	interviewers interviewer.Service,
	gateway payment.Gateway,
	store storage.Storage,
	bus *event_bus.EventBus,
	clock utils.Clock,
	host string,
) *ServiceImpl {
	return &ServiceImpl{
		repo:         repo,
		interviewers: interviewers,
		gateway:      gateway,
		storage:      store,
		bus:          bus,
		clock:        clock,
		host:         strings.TrimRight(host, "/"),
	}
}

func (s *ServiceImpl) CreateBooking(ctx context.Context, interviewerId int, req Request, resume *storage.Upload) (Checkout, error) {
	req.normalize()
	if err := req.Validate(); err != nil {
		return Checkout{}, err
	}
	owner, err := s.interviewers.GetActive(ctx, interviewerId)
	if err != nil {
		return Checkout{}, err
	}

	b := Booking{
		InterviewerId:      owner.Id,
		InterviewerName:    owner.DisplayName(),
		InterviewerEmail:   owner.Email,
		CustomerName:       req.CustomerName,
		CustomerEmail:      req.CustomerEmail,
		CustomerBackground: req.CustomerBackground,
		InterviewFocus:     req.InterviewFocus,
		TargetCompanies:    req.TargetCompanies,
		AdditionalInfo:     req.AdditionalInfo,
		ScheduledAt:        req.ScheduledAt.UTC(),
		DurationMinutes:    req.DurationMinutes,
		Status:             StatusPending,
		CalBookingUid:      req.CalBookingUid,
	}
	id, err := s.repo.Create(ctx, b)
	if err != nil {
		return Checkout{}, err
	}
	b.Id = id

	if resume != nil {
		key, err := storage.Store(ctx, s.storage, storage.ResumePrefix, resume)
		if err != nil {
			s.discard(ctx, b)
			return Checkout{}, fmt.Errorf("could not store resume: %w", err)
		}
		b.ResumeKey = key
		if err := s.repo.SetResume(ctx, id, key); err != nil {
			s.discard(ctx, b)
			return Checkout{}, err
		}
	}

	session, err := s.gateway.CreateCheckoutSession(ctx, payment.CheckoutRequest{
		BookingId:       id,
		InterviewerId:   owner.Id,
		InterviewerName: owner.DisplayName(),
		DurationMinutes: b.DurationMinutes,
		AmountCents:     b.AmountCents(owner.HourlyRateCents),
		CustomerEmail:   b.CustomerEmail,
		SuccessURL:      s.host + "/bookings/success/?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:       fmt.Sprintf("%s/bookings/cancel/?booking_id=%d", s.host, id),
	})
	if err != nil {
		s.discard(ctx, b)
		metrics.RecordBookingEvent("payment_setup_failed")
		return Checkout{}, &PaymentSetupError{Cause: err}
	}
	// The webhook resolves bookings from session metadata, not the stored id.
	if err := s.repo.SetCheckoutSession(ctx, id, session.Id); err != nil {
		log.Errorf("failed to record checkout session %s for booking %d: %v", session.Id, id, err)
	}

	metrics.RecordBookingEvent("created")
	log.Infof("booking %d created for interviewer %d, checkout session %s", id, owner.Id, session.Id)
	return Checkout{BookingId: id, URL: session.URL}, nil
}

// discard removes a booking that never reached checkout, with its resume.
func (s *ServiceImpl) discard(ctx context.Context, b Booking) {
	if b.ResumeKey != "" {
		if err := s.storage.Delete(ctx, b.ResumeKey); err != nil {
			log.Errorf("failed to delete resume %s: %v", b.ResumeKey, err)
		}
	}
	if err := s.repo.Delete(ctx, b.Id); err != nil {
		log.Errorf("failed to delete booking %d: %v", b.Id, err)
	}
}

func (s *ServiceImpl) ConfirmPayment(ctx context.Context, bookingId int, paymentIntentId string) (Booking, error) {
	changed, err := s.repo.Confirm(ctx, bookingId, paymentIntentId)
	if err != nil {
		return Booking{}, err
	}
	b, err := s.repo.Get(ctx, bookingId)
	if err != nil {
		return Booking{}, err
	}
	if !changed {
		log.Infof("booking %d already %s, skipping confirmation", bookingId, b.Status)
		return b, nil
	}

	log.Infof("booking %d confirmed with payment intent %s", bookingId, paymentIntentId)
	err = s.bus.Publish(event_bus.NewEvent(ctx, event_bus.BookingConfirmedEvent, event_bus.BookingConfirmed{
		BookingId:          b.Id,
		ScheduledAt:        b.ScheduledAt,
		DurationMinutes:    b.DurationMinutes,
		CustomerName:       b.CustomerName,
		CustomerEmail:      b.CustomerEmail,
		CustomerBackground: b.CustomerBackground,
		InterviewFocus:     b.InterviewFocus,
		TargetCompanies:    b.TargetCompanies,
		AdditionalInfo:     b.AdditionalInfo,
		HasResume:          b.HasResume(),
		InterviewerName:    b.InterviewerName,
		InterviewerEmail:   b.InterviewerEmail,
	}))
	if err != nil {
		log.Errorf("booking %d confirmed but subscribers failed: %v", bookingId, err)
	}
	return b, nil
}

func (s *ServiceImpl) CancelPending(ctx context.Context, bookingId int) error {
	changed, err := s.repo.CancelPending(ctx, bookingId)
	if err != nil {
		return err
	}
	if !changed {
		log.Debugf("booking %d is not pending, nothing to cancel", bookingId)
		return nil
	}
	log.Infof("booking %d cancelled", bookingId)
	b, err := s.repo.Get(ctx, bookingId)
	if err != nil {
		return err
	}
	err = s.bus.Publish(event_bus.NewEvent(ctx, event_bus.BookingCancelledEvent, event_bus.BookingCancelled{
		BookingId:     b.Id,
		InterviewerId: b.InterviewerId,
		Reason:        "checkout not completed",
	}))
	if err != nil {
		log.Errorf("booking %d cancelled but subscribers failed: %v", bookingId, err)
	}
	return nil
}

func (s *ServiceImpl) MarkCompleted(ctx context.Context, interviewerId, bookingId int) (Booking, error) {
	changed, err := s.repo.Complete(ctx, interviewerId, bookingId)
	if err != nil {
		return Booking{}, err
	}
	if !changed {
		return Booking{}, ErrInvalidTransition
	}
	metrics.RecordBookingEvent("completed")
	return s.repo.GetForInterviewer(ctx, interviewerId, bookingId)
}

func (s *ServiceImpl) GetForInterviewer(ctx context.Context, interviewerId, bookingId int) (Booking, error) {
	return s.repo.GetForInterviewer(ctx, interviewerId, bookingId)
}

// GetBySession resolves the booking a checkout session was created for.
func (s *ServiceImpl) GetBySession(ctx context.Context, sessionId string) (Booking, error) {
	session, err := s.gateway.GetCheckoutSession(ctx, sessionId)
	if err != nil {
		return Booking{}, err
	}
	id, err := session.BookingId()
	if err != nil {
		return Booking{}, fmt.Errorf("%w: %v", ErrBookingNotFound, err)
	}
	return s.repo.Get(ctx, id)
}

func (s *ServiceImpl) Upcoming(ctx context.Context, interviewerId int) ([]Booking, error) {
	return s.repo.ListUpcoming(ctx, interviewerId, s.clock.Now(), UpcomingLimit)
}

func (s *ServiceImpl) Past(ctx context.Context, interviewerId int) ([]Booking, error) {
	return s.repo.ListPast(ctx, interviewerId, s.clock.Now(), PastLimit)
}

// Resume opens the uploaded resume. Callers must close the object body.
func (s *ServiceImpl) Resume(ctx context.Context, interviewerId, bookingId int) (storage.Object, error) {
	b, err := s.repo.GetForInterviewer(ctx, interviewerId, bookingId)
	if err != nil {
		return storage.Object{}, err
	}
	if !b.HasResume() {
		return storage.Object{}, ErrResumeNotFound
	}
	obj, err := s.storage.Get(ctx, b.ResumeKey)
	if errors.Is(err, storage.ErrNotFound) {
		return storage.Object{}, ErrResumeNotFound
	}
	return obj, err
}
