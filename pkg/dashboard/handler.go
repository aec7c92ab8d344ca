package dashboard

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/508dev/interview-service/internal/view"
	"github.com/508dev/interview-service/pkg/account"
	"github.com/508dev/interview-service/pkg/booking"
	"github.com/508dev/interview-service/pkg/interviewer"
	"github.com/508dev/interview-service/pkg/storage"
	"github.com/508dev/interview-service/pkg/user"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

const (
	HomeURL       = "/dashboard/"
	ProfileURL    = "/dashboard/profile/"
	MaxPhotoBytes = 3 << 20

	formOverheadBytes = 1 << 20
)

type HomeData struct {
	Interviewer interviewer.Interviewer
	Upcoming    []booking.Booking
	Past        []booking.Booking
}

type ProfileData struct {
	Interviewer  interviewer.Interviewer
	Technologies []interviewer.Tag
	Subjects     []interviewer.Tag
	Errors       []string
	// Partial is set when only the form is rendered for an HTMX swap.
	Partial bool
}

type BookingData struct {
	Booking booking.Booking
}

type Handler struct {
	interviewers interviewer.Service
	bookings     booking.Service
	sessions     *account.SessionManager
	views        *view.Renderer
}

func NewHandler(interviewers interviewer.Service, bookings booking.Service, sessions *account.SessionManager, views *view.Renderer) *Handler {
	return &Handler{
		interviewers: interviewers,
		bookings:     bookings,
		sessions:     sessions,
		views:        views,
	}
}

func bookingURL(id int) string {
	return fmt.Sprintf("/dashboard/bookings/%d/", id)
}

// current resolves the interviewer profile of the logged in user. When there
// is none the response has already been written.
func (h *Handler) current(w http.ResponseWriter, r *http.Request) (interviewer.Interviewer, bool) {
	u, err := user.CurrentUser(r.Context())
	if err != nil {
		http.Redirect(w, r, account.LoginURL, http.StatusFound)
		return interviewer.Interviewer{}, false
	}
	i, err := h.interviewers.GetByUserId(r.Context(), u.Id)
	if err != nil {
		if errors.Is(err, interviewer.ErrInterviewerNotFound) {
			h.sessions.Error(w, r, "You don't have an interviewer profile.")
			http.Redirect(w, r, "/", http.StatusFound)
		} else {
			log.Errorf("failed to load interviewer for user %d: %v", u.Id, err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		}
		return interviewer.Interviewer{}, false
	}
	return i, true
}

func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	log.Debug("Showing dashboard")
	i, ok := h.current(w, r)
	if !ok {
		return
	}
	upcoming, err := h.bookings.Upcoming(r.Context(), i.Id)
	if err != nil {
		log.Errorf("failed to list upcoming bookings: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	past, err := h.bookings.Past(r.Context(), i.Id)
	if err != nil {
		log.Errorf("failed to list past bookings: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	h.views.Page(w, r, http.StatusOK, "dashboard/home", "Dashboard", HomeData{Interviewer: i, Upcoming: upcoming, Past: past})
}

func (h *Handler) profileData(r *http.Request, i interviewer.Interviewer) (ProfileData, error) {
	data := ProfileData{Interviewer: i, Partial: view.IsHTMX(r)}
	var err error
	if data.Technologies, err = h.interviewers.ListTechnologies(r.Context()); err != nil {
		return data, err
	}
	data.Subjects, err = h.interviewers.ListSubjects(r.Context())
	return data, err
}

func (h *Handler) renderProfile(w http.ResponseWriter, r *http.Request, status int, data ProfileData) {
	if data.Partial {
		h.views.Partial(w, r, status, "profile_form", data)
		return
	}
	h.views.Page(w, r, status, "dashboard/profile", "Edit Profile", data)
}

func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	log.Debug("Showing profile")
	i, ok := h.current(w, r)
	if !ok {
		return
	}
	data, err := h.profileData(r, i)
	if err != nil {
		log.Errorf("failed to load tags: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	data.Partial = false
	h.renderProfile(w, r, http.StatusOK, data)
}

func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	log.Debug("Updating profile")
	i, ok := h.current(w, r)
	if !ok {
		return
	}
	data, err := h.profileData(r, i)
	if err != nil {
		log.Errorf("failed to load tags: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxPhotoBytes+formOverheadBytes)
	if err := r.ParseMultipartForm(formOverheadBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			data.Errors = []string{"Photo must be 3 MB or smaller."}
			h.renderProfile(w, r, http.StatusBadRequest, data)
			return
		}
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	update := interviewer.ProfileUpdate{
		Bio:             formValue(r, "bio", i.Bio),
		Companies:       formValue(r, "companies", i.Companies),
		HourlyRateCents: i.HourlyRateCents,
		TechnologyIds:   formIds(r, "technologies"),
		SubjectIds:      formIds(r, "subjects"),
	}
	if raw := strings.TrimSpace(r.PostFormValue("hourly_rate")); raw != "" {
		cents, err := interviewer.ParseRate(raw)
		if err != nil {
			data.Errors = append(data.Errors, "Enter a valid hourly rate, e.g. 150.00.")
		}
		update.HourlyRateCents = cents
	}

	var photo *storage.Upload
	if r.MultipartForm != nil {
		photo, err = storage.FormFile(r, "photo", MaxPhotoBytes)
		if errors.Is(err, storage.ErrTooLarge) {
			data.Errors = append(data.Errors, "Photo must be 3 MB or smaller.")
		} else if err != nil {
			data.Errors = append(data.Errors, "Could not read the uploaded photo.")
		}
	}
	if len(data.Errors) > 0 {
		h.renderProfile(w, r, http.StatusBadRequest, data)
		return
	}

	updated, err := h.interviewers.UpdateProfile(r.Context(), i.Id, update, photo)
	if err != nil {
		if errors.Is(err, interviewer.ErrInvalidPhoto) {
			data.Errors = []string{"Upload a valid image file."}
			h.renderProfile(w, r, http.StatusBadRequest, data)
			return
		}
		log.Errorf("failed to update profile of interviewer %d: %v", i.Id, err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	h.sessions.Success(w, r, "Profile updated successfully!")
	if data.Partial {
		data.Interviewer = updated
		h.renderProfile(w, r, http.StatusOK, data)
		return
	}
	http.Redirect(w, r, ProfileURL, http.StatusFound)
}

// formValue returns the submitted value, or fallback when the field was not sent.
func formValue(r *http.Request, field, fallback string) string {
	values, ok := r.PostForm[field]
	if !ok || len(values) == 0 {
		return fallback
	}
	return strings.TrimSpace(values[0])
}

func formIds(r *http.Request, field string) []int {
	ids := make([]int, 0)
	for _, raw := range r.PostForm[field] {
		if id, err := strconv.Atoi(raw); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}

// ownedBooking loads the path booking for the current interviewer, writing 404 otherwise.
func (h *Handler) ownedBooking(w http.ResponseWriter, r *http.Request, i interviewer.Interviewer) (booking.Booking, bool) {
	id, err := strconv.Atoi(mux.Vars(r)["bookingId"])
	if err != nil {
		h.views.NotFound(w, r)
		return booking.Booking{}, false
	}
	b, err := h.bookings.GetForInterviewer(r.Context(), i.Id, id)
	if err != nil {
		if errors.Is(err, booking.ErrBookingNotFound) {
			h.views.NotFound(w, r)
		} else {
			log.Errorf("failed to get booking %d: %v", id, err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		}
		return booking.Booking{}, false
	}
	return b, true
}

func (h *Handler) BookingDetail(w http.ResponseWriter, r *http.Request) {
	log.Debug("Showing booking detail")
	i, ok := h.current(w, r)
	if !ok {
		return
	}
	b, ok := h.ownedBooking(w, r, i)
	if !ok {
		return
	}
	h.views.Page(w, r, http.StatusOK, "dashboard/booking_detail", "Booking", BookingData{Booking: b})
}

func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	log.Debug("Completing booking")
	i, ok := h.current(w, r)
	if !ok {
		return
	}
	b, ok := h.ownedBooking(w, r, i)
	if !ok {
		return
	}
	if r.Method != http.MethodPost {
		http.Redirect(w, r, bookingURL(b.Id), http.StatusFound)
		return
	}

	_, err := h.bookings.MarkCompleted(r.Context(), i.Id, b.Id)
	switch {
	case err == nil:
		h.sessions.Success(w, r, "Booking marked as completed.")
	case errors.Is(err, booking.ErrInvalidTransition):
		h.sessions.Error(w, r, "Only confirmed bookings can be marked as completed.")
	case errors.Is(err, booking.ErrBookingNotFound):
		h.views.NotFound(w, r)
		return
	default:
		log.Errorf("failed to complete booking %d: %v", b.Id, err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, bookingURL(b.Id), http.StatusFound)
}

func (h *Handler) Resume(w http.ResponseWriter, r *http.Request) {
	log.Debug("Downloading resume")
	i, ok := h.current(w, r)
	if !ok {
		return
	}
	b, ok := h.ownedBooking(w, r, i)
	if !ok {
		return
	}
	obj, err := h.bookings.Resume(r.Context(), i.Id, b.Id)
	if err != nil {
		if errors.Is(err, booking.ErrResumeNotFound) || errors.Is(err, booking.ErrBookingNotFound) {
			h.views.NotFound(w, r)
			return
		}
		log.Errorf("failed to open resume of booking %d: %v", b.Id, err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	defer obj.Body.Close()

	filename := fmt.Sprintf("resume-%d%s", b.Id, path.Ext(obj.Key))
	w.Header().Set("Content-Type", obj.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(obj.Size, 10))
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	if _, err := io.Copy(w, obj.Body); err != nil {
		log.Debugf("failed to stream resume: %v", err)
	}
}
