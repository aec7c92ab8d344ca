package booking

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/508dev/interview-service/pkg/payment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const signature = "t=1,v1=ok"

func sendWebhook(h *WebhookHandler, body, sig string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/bookings/webhook/stripe/", strings.NewReader(body))
	if sig != "" {
		req.Header.Set(payment.SignatureHeader, sig)
	}
	w := httptest.NewRecorder()
	h.Stripe(w, req)
	return w
}

func sessionEvent(eventType string, bookingId string) payment.Event {
	return payment.Event{
		Id:   "evt_1",
		Type: eventType,
		Session: &payment.CheckoutSession{
			Id:              "cs_test_1",
			PaymentIntentId: "pi_123",
			Metadata:        map[string]string{payment.MetadataBookingId: bookingId},
		},
	}
}

func TestWebhookHandler_Stripe(t *testing.T) {
	t.Run("should confirm booking on completed checkout", func(t *testing.T) {
		// given
		f := setupService(t)
		b := f.book(t, now.Add(24*time.Hour))
		verifier := &payment.StubVerifier{Signature: signature, Event: sessionEvent(payment.EventCheckoutCompleted, strconv.Itoa(b.Id))}
		h := NewWebhookHandler(f.service, verifier)

		// when
		first := sendWebhook(h, "{}", signature)
		second := sendWebhook(h, "{}", signature)

		// then
		assert.Equal(t, http.StatusOK, first.Code)
		assert.Equal(t, http.StatusOK, second.Code)
		got, err := f.repo.Get(ctx, b.Id)
		require.NoError(t, err)
		assert.Equal(t, StatusConfirmed, got.Status)
		assert.Equal(t, "pi_123", got.StripePaymentIntentId)
		assert.Len(t, f.confirmed, 1)
	})

	t.Run("should cancel pending booking on expired checkout", func(t *testing.T) {
		f := setupService(t)
		b := f.book(t, now.Add(24*time.Hour))
		verifier := &payment.StubVerifier{Signature: signature, Event: sessionEvent(payment.EventCheckoutExpired, strconv.Itoa(b.Id))}

		w := sendWebhook(NewWebhookHandler(f.service, verifier), "{}", signature)

		assert.Equal(t, http.StatusOK, w.Code)
		got, err := f.repo.Get(ctx, b.Id)
		require.NoError(t, err)
		assert.Equal(t, StatusCancelled, got.Status)
	})

	t.Run("should reject invalid signature", func(t *testing.T) {
		f := setupService(t)
		verifier := &payment.StubVerifier{Signature: signature}

		w := sendWebhook(NewWebhookHandler(f.service, verifier), "{}", "t=1,v1=forged")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "Invalid signature")
	})

	t.Run("should reject invalid payload", func(t *testing.T) {
		f := setupService(t)
		verifier := &payment.StubVerifier{Err: payment.ErrInvalidPayload}

		w := sendWebhook(NewWebhookHandler(f.service, verifier), "not json", signature)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "Invalid payload")
	})

	t.Run("should reject oversized body", func(t *testing.T) {
		f := setupService(t)
		verifier := &payment.StubVerifier{Signature: signature}

		w := sendWebhook(NewWebhookHandler(f.service, verifier), strings.Repeat("a", MaxWebhookBytes+1), signature)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("should acknowledge events for unknown bookings", func(t *testing.T) {
		f := setupService(t)
		for _, id := range []string{"999", "abc", ""} {
			verifier := &payment.StubVerifier{Signature: signature, Event: sessionEvent(payment.EventCheckoutCompleted, id)}

			w := sendWebhook(NewWebhookHandler(f.service, verifier), "{}", signature)

			assert.Equal(t, http.StatusOK, w.Code, id)
		}
	})

	t.Run("should acknowledge unrelated event types", func(t *testing.T) {
		f := setupService(t)
		verifier := &payment.StubVerifier{Signature: signature, Event: payment.Event{Id: "evt_2", Type: "invoice.paid"}}

		w := sendWebhook(NewWebhookHandler(f.service, verifier), "{}", signature)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("should ask for retry when storage fails", func(t *testing.T) {
		f := setupService(t)
		b := f.book(t, now.Add(24*time.Hour))
		f.repo.FailWith = assert.AnError
		verifier := &payment.StubVerifier{Signature: signature, Event: sessionEvent(payment.EventCheckoutCompleted, strconv.Itoa(b.Id))}

		w := sendWebhook(NewWebhookHandler(f.service, verifier), "{}", signature)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}
