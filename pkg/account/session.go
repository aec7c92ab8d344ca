package account

import (
	"encoding/gob"
	"net/http"

	"github.com/508dev/interview-service/internal/view"
	"github.com/gorilla/sessions"
	log "github.com/sirupsen/logrus"
)

const (
	sessionName = "interviews_session"
	userIdKey   = "user_id"
	maxAge      = 14 * 24 * 60 * 60
)

func init() {
	gob.Register(view.Message{})
}

// SessionManager keeps the logged in user and flash messages in a signed cookie.
type SessionManager struct {
	store sessions.Store
}

func NewSessionManager(secret []byte, secure bool) *SessionManager {
	store := sessions.NewCookieStore(secret)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &SessionManager{store: store}
}

func (m *SessionManager) session(r *http.Request) *sessions.Session {
	s, err := m.store.Get(r, sessionName)
	if err != nil {
		// A cookie signed with another key decodes into a fresh session.
		log.Debugf("discarding invalid session cookie: %v", err)
	}
	return s
}

func (m *SessionManager) Login(w http.ResponseWriter, r *http.Request, userId int) error {
	s := m.session(r)
	s.Values[userIdKey] = userId
	return s.Save(r, w)
}

func (m *SessionManager) Logout(w http.ResponseWriter, r *http.Request) error {
	s := m.session(r)
	delete(s.Values, userIdKey)
	s.Options = &sessions.Options{Path: "/", MaxAge: -1}
	return s.Save(r, w)
}

// UserId returns the id stored at login, if any.
func (m *SessionManager) UserId(r *http.Request) (int, bool) {
	id, ok := m.session(r).Values[userIdKey].(int)
	return id, ok && id > 0
}

func (m *SessionManager) AddFlash(w http.ResponseWriter, r *http.Request, level, text string) {
	s := m.session(r)
	s.AddFlash(view.Message{Level: level, Text: text})
	if err := s.Save(r, w); err != nil {
		log.Errorf("failed to save flash message: %v", err)
	}
}

func (m *SessionManager) Error(w http.ResponseWriter, r *http.Request, text string) {
	m.AddFlash(w, r, view.LevelError, text)
}

func (m *SessionManager) Success(w http.ResponseWriter, r *http.Request, text string) {
	m.AddFlash(w, r, view.LevelSuccess, text)
}

// Flashes pops pending messages. It writes a cookie, so call it before the response status.
func (m *SessionManager) Flashes(w http.ResponseWriter, r *http.Request) []view.Message {
	s := m.session(r)
	flashes := s.Flashes()
	if len(flashes) == 0 {
		return nil
	}
	if err := s.Save(r, w); err != nil {
		log.Errorf("failed to clear flash messages: %v", err)
	}
	messages := make([]view.Message, 0, len(flashes))
	for _, f := range flashes {
		if msg, ok := f.(view.Message); ok {
			messages = append(messages, msg)
		}
	}
	return messages
}
