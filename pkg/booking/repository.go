package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/508dev/interview-service/pkg/interviewer"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

type Repository interface {
	Create(ctx context.Context, booking Booking) (int, error)
	Get(ctx context.Context, id int) (Booking, error)
	GetForInterviewer(ctx context.Context, interviewerId, id int) (Booking, error)
	Delete(ctx context.Context, id int) error
	SetResume(ctx context.Context, id int, resumeKey string) error
	SetCheckoutSession(ctx context.Context, id int, sessionId string) error
	// Confirm moves a pending or cancelled booking to confirmed. It reports
	// false when the booking was already past that point.
	Confirm(ctx context.Context, id int, paymentIntentId string) (bool, error)
	CancelPending(ctx context.Context, id int) (bool, error)
	Complete(ctx context.Context, interviewerId, id int) (bool, error)
	ListUpcoming(ctx context.Context, interviewerId int, now time.Time, limit int) ([]Booking, error)
	ListPast(ctx context.Context, interviewerId int, now time.Time, limit int) ([]Booking, error)
}

type RepositoryImpl struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *RepositoryImpl {
	return &RepositoryImpl{db: db}
}

const selectBooking = `SELECT b.id, b.interviewer_id, u.first_name, u.last_name, u.username, u.email,
		b.customer_name, b.customer_email, b.customer_background, b.interview_focus,
		b.target_companies, b.additional_info, b.resume_key, b.scheduled_at, b.duration_minutes,
		b.stripe_payment_intent_id, b.stripe_checkout_session_id, b.status, b.cal_booking_uid,
		b.created_at, b.updated_at
	FROM booking b
	JOIN interviewer i ON i.id = b.interviewer_id
	JOIN users u ON u.id = i.user_id`

func scanBooking(row pgx.Row) (Booking, error) {
	var b Booking
	var owner interviewer.Interviewer
	var status string
	err := row.Scan(&b.Id, &b.InterviewerId, &owner.FirstName, &owner.LastName, &owner.Username, &b.InterviewerEmail,
		&b.CustomerName, &b.CustomerEmail, &b.CustomerBackground, &b.InterviewFocus,
		&b.TargetCompanies, &b.AdditionalInfo, &b.ResumeKey, &b.ScheduledAt, &b.DurationMinutes,
		&b.StripePaymentIntentId, &b.StripeCheckoutSessionId, &status, &b.CalBookingUid,
		&b.CreatedAt, &b.UpdatedAt)
	b.Status = Status(status)
	b.InterviewerName = owner.DisplayName()
	return b, err
}

func (r *RepositoryImpl) Create(ctx context.Context, b Booking) (int, error) {
	if b.Status == "" {
		b.Status = StatusPending
	}
	if b.DurationMinutes == 0 {
		b.DurationMinutes = DefaultDurationMinutes
	}
	var id int
	err := r.db.QueryRow(ctx,
		`INSERT INTO booking (interviewer_id, customer_name, customer_email, customer_background,
				interview_focus, target_companies, additional_info, resume_key, scheduled_at,
				duration_minutes, status, cal_booking_uid)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12) RETURNING id`,
		b.InterviewerId,
		b.CustomerName,
		b.CustomerEmail,
		b.CustomerBackground,
		b.InterviewFocus,
		b.TargetCompanies,
		b.AdditionalInfo,
		b.ResumeKey,
		b.ScheduledAt,
		b.DurationMinutes,
		string(b.Status),
		b.CalBookingUid,
	).Scan(&id)
	if err != nil {
		log.Errorf("failed to create booking: %v", err)
		return 0, fmt.Errorf("could not create booking: %w", err)
	}
	return id, nil
}

func (r *RepositoryImpl) Get(ctx context.Context, id int) (Booking, error) {
	b, err := scanBooking(r.db.QueryRow(ctx, selectBooking+" WHERE b.id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Booking{}, ErrBookingNotFound
	}
	if err != nil {
		return Booking{}, fmt.Errorf("could not get booking: %w", err)
	}
	return b, nil
}

func (r *RepositoryImpl) GetForInterviewer(ctx context.Context, interviewerId, id int) (Booking, error) {
	b, err := scanBooking(r.db.QueryRow(ctx, selectBooking+" WHERE b.id = $1 AND b.interviewer_id = $2", id, interviewerId))
	if errors.Is(err, pgx.ErrNoRows) {
		return Booking{}, ErrBookingNotFound
	}
	if err != nil {
		return Booking{}, fmt.Errorf("could not get booking: %w", err)
	}
	return b, nil
}

func (r *RepositoryImpl) Delete(ctx context.Context, id int) error {
	_, err := r.db.Exec(ctx, "DELETE FROM booking WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("could not delete booking: %w", err)
	}
	return nil
}

func (r *RepositoryImpl) SetResume(ctx context.Context, id int, resumeKey string) error {
	return r.update(ctx, "UPDATE booking SET resume_key = $2, updated_at = now() WHERE id = $1", id, resumeKey)
}

func (r *RepositoryImpl) SetCheckoutSession(ctx context.Context, id int, sessionId string) error {
	return r.update(ctx, "UPDATE booking SET stripe_checkout_session_id = $2, updated_at = now() WHERE id = $1", id, sessionId)
}

func (r *RepositoryImpl) update(ctx context.Context, query string, id int, value string) error {
	tag, err := r.db.Exec(ctx, query, id, value)
	if err != nil {
		return fmt.Errorf("could not update booking: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrBookingNotFound
	}
	return nil
}

func (r *RepositoryImpl) Confirm(ctx context.Context, id int, paymentIntentId string) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE booking SET status = 'confirmed', stripe_payment_intent_id = $2, updated_at = now()
		WHERE id = $1 AND status IN ('pending', 'cancelled')`,
		id, paymentIntentId)
	if err != nil {
		return false, fmt.Errorf("could not confirm booking: %w", err)
	}
	return r.transitioned(ctx, id, tag.RowsAffected())
}

func (r *RepositoryImpl) CancelPending(ctx context.Context, id int) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE booking SET status = 'cancelled', updated_at = now() WHERE id = $1 AND status = 'pending'`, id)
	if err != nil {
		return false, fmt.Errorf("could not cancel booking: %w", err)
	}
	return r.transitioned(ctx, id, tag.RowsAffected())
}

func (r *RepositoryImpl) Complete(ctx context.Context, interviewerId, id int) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE booking SET status = 'completed', updated_at = now()
		WHERE id = $1 AND interviewer_id = $2 AND status = 'confirmed'`, id, interviewerId)
	if err != nil {
		return false, fmt.Errorf("could not complete booking: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return true, nil
	}
	if _, err := r.GetForInterviewer(ctx, interviewerId, id); err != nil {
		return false, err
	}
	return false, nil
}

// transitioned tells an unchanged row apart from a missing one.
func (r *RepositoryImpl) transitioned(ctx context.Context, id int, affected int64) (bool, error) {
	if affected > 0 {
		return true, nil
	}
	var exists bool
	if err := r.db.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM booking WHERE id = $1)", id).Scan(&exists); err != nil {
		return false, err
	}
	if !exists {
		return false, ErrBookingNotFound
	}
	return false, nil
}

func (r *RepositoryImpl) ListUpcoming(ctx context.Context, interviewerId int, now time.Time, limit int) ([]Booking, error) {
	return r.list(ctx, selectBooking+`
		WHERE b.interviewer_id = $1 AND b.scheduled_at >= $2 AND b.status IN ('confirmed', 'pending')
		ORDER BY b.scheduled_at ASC, b.id ASC
		LIMIT $3`, interviewerId, now, limit)
}

func (r *RepositoryImpl) ListPast(ctx context.Context, interviewerId int, now time.Time, limit int) ([]Booking, error) {
	return r.list(ctx, selectBooking+`
		WHERE b.interviewer_id = $1 AND b.scheduled_at < $2
		ORDER BY b.scheduled_at DESC, b.id DESC
		LIMIT $3`, interviewerId, now, limit)
}

func (r *RepositoryImpl) list(ctx context.Context, query string, args ...any) ([]Booking, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("could not list bookings: %w", err)
	}
	defer rows.Close()

	bookings := make([]Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("could not scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}
