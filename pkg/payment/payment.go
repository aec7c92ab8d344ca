package payment

import (
	"context"
	"errors"
	"fmt"
	"strconv"
)

var ErrInvalidSignature = errors.New("invalid webhook signature")
var ErrInvalidPayload = errors.New("invalid webhook payload")
var ErrSessionNotFound = errors.New("checkout session not found")

const (
	EventCheckoutCompleted = "checkout.session.completed"
	EventCheckoutExpired   = "checkout.session.expired"

	MetadataBookingId     = "booking_id"
	MetadataInterviewerId = "interviewer_id"

	SignatureHeader = "Stripe-Signature"
)

type CheckoutRequest struct {
	BookingId       int
	InterviewerId   int
	InterviewerName string
	DurationMinutes int
	AmountCents     int64
	Currency        string
	CustomerEmail   string
	SuccessURL      string
	CancelURL       string
}

type CheckoutSession struct {
	Id              string
	URL             string
	Status          string
	PaymentIntentId string
	Metadata        map[string]string
}

// BookingId reads the booking reference stored in the session metadata.
func (s CheckoutSession) BookingId() (int, error) {
	raw, ok := s.Metadata[MetadataBookingId]
	if !ok || raw == "" {
		return 0, fmt.Errorf("checkout session %s has no booking id", s.Id)
	}
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("checkout session %s has invalid booking id %q", s.Id, raw)
	}
	return id, nil
}

// Event is a verified webhook notification. Session is set for checkout
// session events only.
type Event struct {
	Id      string
	Type    string
	Session *CheckoutSession
}

type Gateway interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (CheckoutSession, error)
	GetCheckoutSession(ctx context.Context, id string) (CheckoutSession, error)
}

type WebhookVerifier interface {
	VerifyEvent(payload []byte, signatureHeader string) (Event, error)
}
