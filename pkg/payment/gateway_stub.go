package payment

import (
	"context"
	"fmt"
	"strconv"
	"sync"
)

// StubGateway records checkout requests and hands out fake sessions.
type StubGateway struct {
	mu       sync.Mutex
	sessions map[string]CheckoutSession
	Requests []CheckoutRequest
	Err      error
	seq      int
}

func NewStubGateway() *StubGateway {
	return &StubGateway{sessions: map[string]CheckoutSession{}}
}

func (g *StubGateway) CreateCheckoutSession(_ context.Context, req CheckoutRequest) (CheckoutSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Requests = append(g.Requests, req)
	if g.Err != nil {
		return CheckoutSession{}, g.Err
	}
	g.seq++
	id := fmt.Sprintf("cs_test_%d", g.seq)
	s := CheckoutSession{
		Id:     id,
		URL:    "https://checkout.stripe.com/c/pay/" + id,
		Status: "open",
		Metadata: map[string]string{
			MetadataBookingId:     strconv.Itoa(req.BookingId),
			MetadataInterviewerId: strconv.Itoa(req.InterviewerId),
		},
	}
	g.sessions[id] = s
	return s, nil
}

func (g *StubGateway) GetCheckoutSession(_ context.Context, id string) (CheckoutSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	s, ok := g.sessions[id]
	if !ok {
		return CheckoutSession{}, ErrSessionNotFound
	}
	return s, nil
}

// AddSession registers a session as if it had been created remotely.
func (g *StubGateway) AddSession(s CheckoutSession) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sessions[s.Id] = s
}

func (g *StubGateway) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sessions = map[string]CheckoutSession{}
	g.Requests = nil
	g.Err = nil
	g.seq = 0
}

// StubVerifier returns a preset event for a known signature header.
type StubVerifier struct {
	Signature string
	Event     Event
	Err       error
}

func (v *StubVerifier) VerifyEvent(_ []byte, signatureHeader string) (Event, error) {
	if v.Err != nil {
		return Event{}, v.Err
	}
	if signatureHeader != v.Signature {
		return Event{}, ErrInvalidSignature
	}
	return v.Event, nil
}
