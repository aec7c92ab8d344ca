package event_bus

import "time"

const (
	BookingConfirmedEvent EventType = "booking.confirmed"
	BookingCancelledEvent EventType = "booking.cancelled"
)

// BookingConfirmed is published once a booking's payment has been reconciled.
// It carries everything the notification emails need so subscribers never
// have to load the booking again.
type BookingConfirmed struct {
	BookingId          int
	ScheduledAt        time.Time
	DurationMinutes    int
	CustomerName       string
	CustomerEmail      string
	CustomerBackground string
	InterviewFocus     string
	TargetCompanies    string
	AdditionalInfo     string
	HasResume          bool
	InterviewerName    string
	InterviewerEmail   string
}

type BookingCancelled struct {
	BookingId     int
	InterviewerId int
	Reason        string
}
