package interviewer

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/508dev/interview-service/internal/view"
	"github.com/508dev/interview-service/pkg/storage"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type ListData struct {
	Interviewers       []Interviewer
	Technologies       []Tag
	Subjects           []Tag
	SelectedTechnology string
	SelectedSubject    string
}

type Handler struct {
	service Service
	views   *view.Renderer
	storage storage.Storage
}

func NewHandler(service Service, views *view.Renderer, store storage.Storage) *Handler {
	return &Handler{service: service, views: views, storage: store}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	log.Debug("Listing interviewers")
	filter := Filter{
		TechnologySlug: r.URL.Query().Get("technology"),
		SubjectSlug:    r.URL.Query().Get("subject"),
	}
	interviewers, err := h.service.ListActive(r.Context(), filter)
	if err != nil {
		log.Errorf("failed to list interviewers: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	data := ListData{
		Interviewers:       interviewers,
		SelectedTechnology: filter.TechnologySlug,
		SelectedSubject:    filter.SubjectSlug,
	}

	if view.IsHTMX(r) {
		h.views.Partial(w, r, http.StatusOK, "interviewer_grid", data)
		return
	}

	if data.Technologies, err = h.service.ListTechnologies(r.Context()); err != nil {
		log.Errorf("failed to list technologies: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if data.Subjects, err = h.service.ListSubjects(r.Context()); err != nil {
		log.Errorf("failed to list subjects: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	h.views.Page(w, r, http.StatusOK, "interviewers/list", "Interviewers", data)
}

func (h *Handler) Featured(w http.ResponseWriter, r *http.Request) {
	log.Debug("Listing featured interviewers")
	interviewers, err := h.service.Featured(r.Context())
	if err != nil {
		log.Errorf("failed to list featured interviewers: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	h.views.Partial(w, r, http.StatusOK, "interviewer_grid", ListData{Interviewers: interviewers})
}

func (h *Handler) Modal(w http.ResponseWriter, r *http.Request) {
	log.Debug("Showing interviewer modal")
	id, err := strconv.Atoi(mux.Vars(r)["interviewerId"])
	if err != nil {
		h.views.NotFound(w, r)
		return
	}
	i, err := h.service.GetActive(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrInterviewerNotFound) {
			h.views.NotFound(w, r)
			return
		}
		log.Errorf("failed to get interviewer %d: %v", id, err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	h.views.Partial(w, r, http.StatusOK, "interviewer_modal", i)
}

// Photo serves public profile photos. Only keys below the photo prefix are reachable.
func (h *Handler) Photo(w http.ResponseWriter, r *http.Request) {
	key := storage.PhotoPrefix + "/" + mux.Vars(r)["name"]
	if err := storage.ValidateKey(key); err != nil {
		http.NotFound(w, r)
		return
	}
	obj, err := h.storage.Get(r.Context(), key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			log.Errorf("failed to read photo %s: %v", key, err)
		}
		http.NotFound(w, r)
		return
	}
	defer obj.Body.Close()
	if !strings.HasPrefix(obj.ContentType, "image/") {
		log.Warnf("refusing to serve non-image photo %s (%s)", key, obj.ContentType)
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", obj.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(obj.Size, 10))
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	if _, err := io.Copy(w, obj.Body); err != nil {
		log.Debugf("failed to write photo %s: %v", key, err)
	}
}
