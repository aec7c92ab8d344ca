package booking

import (
	"errors"
	"io"
	"net/http"

	"github.com/508dev/interview-service/internal/metrics"
	"github.com/508dev/interview-service/pkg/payment"
	log "github.com/sirupsen/logrus"
)

const MaxWebhookBytes = 64 << 10

// WebhookHandler reconciles booking state from payment provider callbacks.
type WebhookHandler struct {
	service  Service
	verifier payment.WebhookVerifier
}

func NewWebhookHandler(service Service, verifier payment.WebhookVerifier) *WebhookHandler {
	return &WebhookHandler{service: service, verifier: verifier}
}

func (h *WebhookHandler) Stripe(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxWebhookBytes))
	if err != nil {
		log.Warnf("webhook body rejected: %v", err)
		metrics.RecordWebhook("", "invalid_payload")
		http.Error(w, "Invalid payload", http.StatusBadRequest)
		return
	}

	event, err := h.verifier.VerifyEvent(payload, r.Header.Get(payment.SignatureHeader))
	if err != nil {
		if errors.Is(err, payment.ErrInvalidSignature) {
			log.Warnf("webhook signature rejected: %v", err)
			metrics.RecordWebhook("", "invalid_signature")
			http.Error(w, "Invalid signature", http.StatusBadRequest)
			return
		}
		log.Warnf("webhook payload rejected: %v", err)
		metrics.RecordWebhook("", "invalid_payload")
		http.Error(w, "Invalid payload", http.StatusBadRequest)
		return
	}
	log.Debugf("webhook event %s (%s)", event.Id, event.Type)

	switch event.Type {
	case payment.EventCheckoutCompleted:
		h.handle(w, event, func(bookingId int) error {
			_, err := h.service.ConfirmPayment(r.Context(), bookingId, event.Session.PaymentIntentId)
			return err
		})
	case payment.EventCheckoutExpired:
		h.handle(w, event, func(bookingId int) error {
			return h.service.CancelPending(r.Context(), bookingId)
		})
	default:
		metrics.RecordWebhook(event.Type, "ignored")
		w.WriteHeader(http.StatusOK)
	}
}

// handle applies fn to the booking referenced by the event. Bookings that
// cannot be identified are acknowledged so the provider stops retrying;
// storage failures return 500 so it retries.
func (h *WebhookHandler) handle(w http.ResponseWriter, event payment.Event, fn func(bookingId int) error) {
	if event.Session == nil {
		log.Warnf("webhook event %s carries no checkout session", event.Id)
		metrics.RecordWebhook(event.Type, "unmatched")
		w.WriteHeader(http.StatusOK)
		return
	}
	bookingId, err := event.Session.BookingId()
	if err != nil {
		log.Warnf("webhook event %s: %v", event.Id, err)
		metrics.RecordWebhook(event.Type, "unmatched")
		w.WriteHeader(http.StatusOK)
		return
	}
	if err := fn(bookingId); err != nil {
		if errors.Is(err, ErrBookingNotFound) {
			log.Warnf("webhook event %s references unknown booking %d", event.Id, bookingId)
			metrics.RecordWebhook(event.Type, "unmatched")
			w.WriteHeader(http.StatusOK)
			return
		}
		log.Errorf("webhook event %s failed for booking %d: %v", event.Id, bookingId, err)
		metrics.RecordWebhook(event.Type, "error")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	metrics.RecordWebhook(event.Type, "processed")
	w.WriteHeader(http.StatusOK)
}
