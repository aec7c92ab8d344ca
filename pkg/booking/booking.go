package booking

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrBookingNotFound = errors.New("booking not found")
var ErrInvalidTransition = errors.New("booking status does not allow this change")
var ErrPaymentSetup = errors.New("payment setup failed")
var ErrInvalidDateTime = errors.New("invalid date/time")

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

func (s Status) Label() string {
	switch s {
	case StatusPending:
		return "Pending Payment"
	case StatusConfirmed:
		return "Confirmed"
	case StatusCompleted:
		return "Completed"
	case StatusCancelled:
		return "Cancelled"
	default:
		return string(s)
	}
}

const DefaultDurationMinutes = 60

type Booking struct {
	Id                      int
	InterviewerId           int
	InterviewerName         string
	InterviewerEmail        string
	CustomerName            string
	CustomerEmail           string
	CustomerBackground      string
	InterviewFocus          string
	TargetCompanies         string
	AdditionalInfo          string
	ResumeKey               string
	ScheduledAt             time.Time
	DurationMinutes         int
	StripePaymentIntentId   string
	StripeCheckoutSessionId string
	Status                  Status
	CalBookingUid           string
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

func (b Booking) String() string {
	return fmt.Sprintf("Booking with %s on %s", b.InterviewerName, b.ScheduledAt.Format("2006-01-02 15:04:05-07:00"))
}

func (b Booking) HasResume() bool {
	return b.ResumeKey != ""
}

func (b Booking) CanComplete() bool {
	return b.Status == StatusConfirmed
}

// AmountCents is the session price: the hourly rate prorated by duration,
// truncated to whole cents.
func AmountCents(hourlyRateCents int64, durationMinutes int) int64 {
	return hourlyRateCents * int64(durationMinutes) / 60
}

func (b Booking) AmountCents(hourlyRateCents int64) int64 {
	return AmountCents(hourlyRateCents, b.DurationMinutes)
}

var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// ParseDateTime accepts the ISO 8601 forms the scheduling widget emits.
// Values without an offset are read as UTC.
func ParseDateTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, ErrInvalidDateTime
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, ErrInvalidDateTime
}
