package booking

import (
	"context"
	"sort"
	"sync"
	"time"
)

type StubRepository struct {
	mu       sync.Mutex
	bookings map[int]Booking
	nextId   int
	// FailWith makes every write return the error.
	FailWith error
	// FailCheckoutSession makes only SetCheckoutSession return the error.
	FailCheckoutSession error
}

func NewStubRepository() *StubRepository {
	return &StubRepository{bookings: map[int]Booking{}}
}

func (s *StubRepository) Create(_ context.Context, b Booking) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return 0, s.FailWith
	}
	s.nextId++
	b.Id = s.nextId
	if b.Status == "" {
		b.Status = StatusPending
	}
	if b.DurationMinutes == 0 {
		b.DurationMinutes = DefaultDurationMinutes
	}
	s.bookings[b.Id] = b
	return b.Id, nil
}

func (s *StubRepository) Get(_ context.Context, id int) (Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return Booking{}, ErrBookingNotFound
	}
	return b, nil
}

func (s *StubRepository) GetForInterviewer(ctx context.Context, interviewerId, id int) (Booking, error) {
	b, err := s.Get(ctx, id)
	if err != nil {
		return Booking{}, err
	}
	if b.InterviewerId != interviewerId {
		return Booking{}, ErrBookingNotFound
	}
	return b, nil
}

func (s *StubRepository) Delete(_ context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.bookings, id)
	return nil
}

func (s *StubRepository) SetResume(_ context.Context, id int, resumeKey string) error {
	return s.modify(id, func(b *Booking) bool { b.ResumeKey = resumeKey; return true })
}

func (s *StubRepository) SetCheckoutSession(_ context.Context, id int, sessionId string) error {
	s.mu.Lock()
	failure := s.FailCheckoutSession
	s.mu.Unlock()
	if failure != nil {
		return failure
	}
	return s.modify(id, func(b *Booking) bool { b.StripeCheckoutSessionId = sessionId; return true })
}

func (s *StubRepository) Confirm(_ context.Context, id int, paymentIntentId string) (bool, error) {
	changed := false
	err := s.modify(id, func(b *Booking) bool {
		if b.Status != StatusPending && b.Status != StatusCancelled {
			return false
		}
		b.Status = StatusConfirmed
		b.StripePaymentIntentId = paymentIntentId
		changed = true
		return true
	})
	return changed, err
}

func (s *StubRepository) CancelPending(_ context.Context, id int) (bool, error) {
	changed := false
	err := s.modify(id, func(b *Booking) bool {
		if b.Status != StatusPending {
			return false
		}
		b.Status = StatusCancelled
		changed = true
		return true
	})
	return changed, err
}

func (s *StubRepository) Complete(_ context.Context, interviewerId, id int) (bool, error) {
	changed := false
	found := false
	err := s.modify(id, func(b *Booking) bool {
		if b.InterviewerId != interviewerId {
			return false
		}
		found = true
		if b.Status != StatusConfirmed {
			return false
		}
		b.Status = StatusCompleted
		changed = true
		return true
	})
	if err == nil && !found {
		return false, ErrBookingNotFound
	}
	return changed, err
}

func (s *StubRepository) modify(id int, fn func(b *Booking) bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return s.FailWith
	}
	b, ok := s.bookings[id]
	if !ok {
		return ErrBookingNotFound
	}
	if fn(&b) {
		s.bookings[id] = b
	}
	return nil
}

func (s *StubRepository) ListUpcoming(_ context.Context, interviewerId int, now time.Time, limit int) ([]Booking, error) {
	return s.filter(func(b Booking) bool {
		return b.InterviewerId == interviewerId && !b.ScheduledAt.Before(now) &&
			(b.Status == StatusConfirmed || b.Status == StatusPending)
	}, func(a, b Booking) bool { return a.ScheduledAt.Before(b.ScheduledAt) }, limit), nil
}

func (s *StubRepository) ListPast(_ context.Context, interviewerId int, now time.Time, limit int) ([]Booking, error) {
	return s.filter(func(b Booking) bool {
		return b.InterviewerId == interviewerId && b.ScheduledAt.Before(now)
	}, func(a, b Booking) bool { return a.ScheduledAt.After(b.ScheduledAt) }, limit), nil
}

func (s *StubRepository) filter(keep func(Booking) bool, less func(a, b Booking) bool, limit int) []Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]Booking, 0)
	for _, b := range s.bookings {
		if keep(b) {
			result = append(result, b)
		}
	}
	sort.Slice(result, func(i, j int) bool { return less(result[i], result[j]) })
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result
}

func (s *StubRepository) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bookings = map[int]Booking{}
	s.nextId = 0
	s.FailWith = nil
	s.FailCheckoutSession = nil
}
