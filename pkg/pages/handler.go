package pages

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/508dev/interview-service/internal/view"
	"github.com/508dev/interview-service/pkg/interviewer"
	log "github.com/sirupsen/logrus"
)

const pingTimeout = 2 * time.Second

type Pinger interface {
	Ping(ctx context.Context) error
}

type HomeData struct {
	Interviewers []interviewer.Interviewer
}

type healthDTO struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

type Handler struct {
	interviewers interviewer.Service
	views        *view.Renderer
	db           Pinger
}

func NewHandler(interviewers interviewer.Service, views *view.Renderer, db Pinger) *Handler {
	return &Handler{interviewers: interviewers, views: views, db: db}
}

func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	log.Debug("Showing home page")
	featured, err := h.interviewers.Featured(r.Context())
	if err != nil {
		log.Errorf("failed to load featured interviewers: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	h.views.Page(w, r, http.StatusOK, "home", "Mock Technical Interviews", HomeData{Interviewers: featured})
}

func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.views.NotFound(w, r)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
	defer cancel()

	status := http.StatusOK
	dto := healthDTO{Status: "ok", Database: "ok"}
	if err := h.db.Ping(ctx); err != nil {
		log.Errorf("health check: database ping failed: %v", err)
		status = http.StatusServiceUnavailable
		dto = healthDTO{Status: "unavailable", Database: "unreachable"}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(dto); err != nil {
		log.Errorf("failed to encode health response: %v", err)
	}
}
