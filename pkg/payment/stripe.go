package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/508dev/interview-service/internal/config"
	log "github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"
	"github.com/stripe/stripe-go/v81/webhook"
)

type StripeGateway struct {
	api      *client.API
	currency string
}

func NewStripeGateway(cfg config.Stripe) *StripeGateway {
	currency := strings.ToLower(cfg.Currency)
	if currency == "" {
		currency = "usd"
	}
	return &StripeGateway{api: client.New(cfg.SecretKey, nil), currency: currency}
}

func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (CheckoutSession, error) {
	currency := req.Currency
	if currency == "" {
		currency = g.currency
	}
	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(currency),
					UnitAmount: stripe.Int64(req.AmountCents),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:        stripe.String(LineItemName(req.InterviewerName)),
						Description: stripe.String(LineItemDescription(req.DurationMinutes)),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL:    stripe.String(req.SuccessURL),
		CancelURL:     stripe.String(req.CancelURL),
		CustomerEmail: stripe.String(req.CustomerEmail),
	}
	params.Context = ctx
	params.AddMetadata(MetadataBookingId, strconv.Itoa(req.BookingId))
	params.AddMetadata(MetadataInterviewerId, strconv.Itoa(req.InterviewerId))

	s, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		log.Errorf("failed to create checkout session for booking %d: %v", req.BookingId, err)
		return CheckoutSession{}, fmt.Errorf("could not create checkout session: %w", err)
	}
	log.Infof("created checkout session %s for booking %d", s.ID, req.BookingId)
	return fromStripe(s), nil
}

func (g *StripeGateway) GetCheckoutSession(ctx context.Context, id string) (CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	s, err := g.api.CheckoutSessions.Get(id, params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.HTTPStatusCode == 404 {
			return CheckoutSession{}, ErrSessionNotFound
		}
		return CheckoutSession{}, fmt.Errorf("could not retrieve checkout session: %w", err)
	}
	return fromStripe(s), nil
}

func LineItemName(interviewerName string) string {
	return "Interview Session with " + interviewerName
}

func LineItemDescription(durationMinutes int) string {
	return fmt.Sprintf("%d minute interview session", durationMinutes)
}

func fromStripe(s *stripe.CheckoutSession) CheckoutSession {
	session := CheckoutSession{
		Id:       s.ID,
		URL:      s.URL,
		Status:   string(s.Status),
		Metadata: s.Metadata,
	}
	if s.PaymentIntent != nil {
		session.PaymentIntentId = s.PaymentIntent.ID
	}
	if session.Metadata == nil {
		session.Metadata = map[string]string{}
	}
	return session
}

// StripeVerifier checks the Stripe-Signature header of webhook requests.
type StripeVerifier struct {
	secret string
}

func NewStripeVerifier(secret string) *StripeVerifier {
	return &StripeVerifier{secret: secret}
}

func (v *StripeVerifier) VerifyEvent(payload []byte, signatureHeader string) (Event, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signatureHeader, v.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		if errors.Is(err, webhook.ErrNotSigned) || errors.Is(err, webhook.ErrInvalidHeader) ||
			errors.Is(err, webhook.ErrNoValidSignature) || errors.Is(err, webhook.ErrTooOld) {
			return Event{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
		}
		return Event{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	result := Event{Id: event.ID, Type: string(event.Type)}
	if !strings.HasPrefix(result.Type, "checkout.session.") {
		return result, nil
	}
	if event.Data == nil {
		return Event{}, fmt.Errorf("%w: event %s has no data", ErrInvalidPayload, event.ID)
	}
	var s stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &s); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	session := fromStripe(&s)
	result.Session = &session
	return result, nil
}
