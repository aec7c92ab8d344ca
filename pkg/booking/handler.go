package booking

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/508dev/interview-service/internal/view"
	"github.com/508dev/interview-service/pkg/account"
	"github.com/508dev/interview-service/pkg/interviewer"
	"github.com/508dev/interview-service/pkg/storage"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

// multipart overhead allowed on top of the resume itself
const formOverheadBytes = 1 << 20

type StartData struct {
	Interviewer interviewer.Interviewer
	EmbedOrigin string
	FormURL     string
}

type FormData struct {
	Interviewer    interviewer.Interviewer
	ScheduledAt    time.Time
	ScheduledAtRaw string
	Form           Request
	Errors         []string
}

type SuccessData struct {
	Booking         *Booking
	InterviewerName string
}

type Handler struct {
	service      Service
	interviewers interviewer.Service
	sessions     *account.SessionManager
	views        *view.Renderer
	embedOrigin  string
}

func NewHandler(service Service, interviewers interviewer.Service, sessions *account.SessionManager, views *view.Renderer, embedOrigin string) *Handler {
	return &Handler{
		service:      service,
		interviewers: interviewers,
		sessions:     sessions,
		views:        views,
		embedOrigin:  strings.TrimRight(embedOrigin, "/"),
	}
}

func startURL(interviewerId int) string {
	return fmt.Sprintf("/bookings/%d/", interviewerId)
}

// activeInterviewer resolves the path interviewer, writing a 404 when it is missing or inactive.
func (h *Handler) activeInterviewer(w http.ResponseWriter, r *http.Request) (interviewer.Interviewer, bool) {
	id, err := strconv.Atoi(mux.Vars(r)["interviewerId"])
	if err != nil {
		h.views.NotFound(w, r)
		return interviewer.Interviewer{}, false
	}
	i, err := h.interviewers.GetActive(r.Context(), id)
	if err != nil {
		if errors.Is(err, interviewer.ErrInterviewerNotFound) {
			h.views.NotFound(w, r)
		} else {
			log.Errorf("failed to get interviewer %d: %v", id, err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		}
		return interviewer.Interviewer{}, false
	}
	return i, true
}

func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	log.Debug("Showing booking calendar")
	i, ok := h.activeInterviewer(w, r)
	if !ok {
		return
	}
	h.views.Page(w, r, http.StatusOK, "bookings/start", "Book "+i.DisplayName(), StartData{
		Interviewer: i,
		EmbedOrigin: h.embedOrigin,
		FormURL:     fmt.Sprintf("/bookings/%d/form/", i.Id),
	})
}

func (h *Handler) Form(w http.ResponseWriter, r *http.Request) {
	log.Debug("Showing booking form")
	i, ok := h.activeInterviewer(w, r)
	if !ok {
		return
	}
	raw := r.URL.Query().Get("datetime")
	if raw == "" {
		h.sessions.Error(w, r, "Please select a time slot first.")
		http.Redirect(w, r, startURL(i.Id), http.StatusFound)
		return
	}
	scheduledAt, err := ParseDateTime(raw)
	if err != nil {
		h.sessions.Error(w, r, "Invalid date/time format.")
		http.Redirect(w, r, startURL(i.Id), http.StatusFound)
		return
	}
	h.views.Page(w, r, http.StatusOK, "bookings/form", "Your Details", FormData{
		Interviewer:    i,
		ScheduledAt:    scheduledAt,
		ScheduledAtRaw: raw,
		Form: Request{
			DurationMinutes: DefaultDurationMinutes,
			CalBookingUid:   r.URL.Query().Get("uid"),
		},
	})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	log.Debug("Creating booking")
	i, ok := h.activeInterviewer(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxResumeBytes+formOverheadBytes)
	if err := r.ParseMultipartForm(formOverheadBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.sessions.Error(w, r, "Resume must be 10 MB or smaller.")
			http.Redirect(w, r, startURL(i.Id), http.StatusFound)
			return
		}
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	raw := r.PostFormValue("scheduled_at")
	scheduledAt, err := ParseDateTime(raw)
	if err != nil {
		h.sessions.Error(w, r, "Invalid date/time.")
		http.Redirect(w, r, startURL(i.Id), http.StatusFound)
		return
	}

	req := Request{
		ScheduledAt:        scheduledAt,
		CustomerName:       r.PostFormValue("customer_name"),
		CustomerEmail:      r.PostFormValue("customer_email"),
		CustomerBackground: r.PostFormValue("customer_background"),
		InterviewFocus:     r.PostFormValue("interview_focus"),
		TargetCompanies:    r.PostFormValue("target_companies"),
		AdditionalInfo:     r.PostFormValue("additional_info"),
		DurationMinutes:    parseDuration(r.PostFormValue("duration_minutes")),
		CalBookingUid:      r.PostFormValue("cal_booking_uid"),
	}
	formData := FormData{Interviewer: i, ScheduledAt: scheduledAt, ScheduledAtRaw: raw, Form: req}

	var resume *storage.Upload
	if r.MultipartForm != nil {
		resume, err = storage.FormFile(r, "resume", MaxResumeBytes)
		if err != nil {
			formData.Errors = []string{"Resume must be 10 MB or smaller."}
			if !errors.Is(err, storage.ErrTooLarge) {
				formData.Errors = []string{"Could not read the uploaded resume."}
			}
			h.views.Page(w, r, http.StatusBadRequest, "bookings/form", "Your Details", formData)
			return
		}
	}

	checkout, err := h.service.CreateBooking(r.Context(), i.Id, req, resume)
	if err != nil {
		var validation *ValidationError
		var paymentErr *PaymentSetupError
		switch {
		case errors.As(err, &validation):
			formData.Errors = validation.Messages
			h.views.Page(w, r, http.StatusBadRequest, "bookings/form", "Your Details", formData)
		case errors.As(err, &paymentErr):
			h.sessions.Error(w, r, "Payment setup failed: "+paymentErr.Cause.Error())
			http.Redirect(w, r, startURL(i.Id), http.StatusFound)
		case errors.Is(err, interviewer.ErrInterviewerNotFound):
			h.views.NotFound(w, r)
		default:
			log.Errorf("failed to create booking: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		}
		return
	}
	http.Redirect(w, r, checkout.URL, http.StatusSeeOther)
}

func parseDuration(value string) int {
	if strings.TrimSpace(value) == "" {
		return DefaultDurationMinutes
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return -1
	}
	return n
}

func (h *Handler) Success(w http.ResponseWriter, r *http.Request) {
	log.Debug("Checkout success")
	sessionId := r.URL.Query().Get("session_id")
	if sessionId == "" {
		h.sessions.Error(w, r, "Invalid checkout session.")
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	data := SuccessData{}
	b, err := h.service.GetBySession(r.Context(), sessionId)
	if err != nil {
		log.Infof("could not resolve checkout session %s: %v", sessionId, err)
	} else {
		data.Booking = &b
		data.InterviewerName = b.InterviewerName
	}
	h.views.Page(w, r, http.StatusOK, "bookings/success", "Booking Confirmed", data)
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	log.Debug("Checkout cancelled")
	if raw := r.URL.Query().Get("booking_id"); raw != "" {
		if id, err := strconv.Atoi(raw); err == nil {
			if err := h.service.CancelPending(r.Context(), id); err != nil && !errors.Is(err, ErrBookingNotFound) {
				log.Errorf("failed to cancel booking %d: %v", id, err)
			}
		}
	}
	h.views.Page(w, r, http.StatusOK, "bookings/cancel", "Payment Cancelled", nil)
}
