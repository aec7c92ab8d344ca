package account

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/508dev/interview-service/pkg/user"
	log "github.com/sirupsen/logrus"
)

const LoginURL = "/accounts/login/"

// LoadUser puts the session's user into the request context.
func LoadUser(sessions *SessionManager, users user.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userId, ok := sessions.UserId(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			u, err := users.GetUser(r.Context(), userId)
			if err != nil {
				if errors.Is(err, user.ErrUserNotFound) {
					log.Debugf("session user %d no longer exists", userId)
					if err := sessions.Logout(w, r); err != nil {
						log.Errorf("failed to clear session: %v", err)
					}
				} else {
					log.Errorf("failed to load session user %d: %v", userId, err)
				}
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(user.WithUser(r.Context(), u)))
		})
	}
}

// RequireLogin redirects anonymous requests to the login page.
func RequireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := user.CurrentUser(r.Context()); err != nil {
			http.Redirect(w, r, LoginURL+"?next="+url.QueryEscape(r.URL.RequestURI()), http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}
