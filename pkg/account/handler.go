package account

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/508dev/interview-service/internal/view"
	"github.com/508dev/interview-service/pkg/user"
	log "github.com/sirupsen/logrus"
)

const DefaultRedirect = "/dashboard/"

type LoginData struct {
	Next     string
	Username string
	Error    string
}

type Handler struct {
	users    user.Service
	sessions *SessionManager
	views    *view.Renderer
}

func NewHandler(users user.Service, sessions *SessionManager, views *view.Renderer) *Handler {
	return &Handler{users: users, sessions: sessions, views: views}
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	log.Debug("Login")
	if _, err := user.CurrentUser(r.Context()); err == nil {
		http.Redirect(w, r, DefaultRedirect, http.StatusFound)
		return
	}

	data := LoginData{Next: r.URL.Query().Get("next")}
	if r.Method != http.MethodPost {
		h.views.Page(w, r, http.StatusOK, "accounts/login", "Interviewer Login", data)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	data.Username = strings.TrimSpace(r.PostFormValue("username"))
	if next := r.PostFormValue("next"); next != "" {
		data.Next = next
	}

	u, err := h.users.Authenticate(r.Context(), data.Username, r.PostFormValue("password"))
	if err != nil {
		if errors.Is(err, user.ErrInvalidCredentials) {
			data.Error = "Please enter a correct username and password. Note that both fields may be case-sensitive."
			h.views.Page(w, r, http.StatusOK, "accounts/login", "Interviewer Login", data)
			return
		}
		log.Errorf("failed to authenticate %q: %v", data.Username, err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if err := h.sessions.Login(w, r, u.Id); err != nil {
		log.Errorf("failed to save session: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	log.Infof("user %s logged in", u.Username)
	http.Redirect(w, r, SafeNext(data.Next), http.StatusFound)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	log.Debug("Logout")
	if err := h.sessions.Logout(w, r); err != nil {
		log.Errorf("failed to clear session: %v", err)
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

// SafeNext returns next when it is a local path, otherwise the dashboard.
func SafeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, "\\") {
		return DefaultRedirect
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return DefaultRedirect
	}
	return next
}
