package app

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestLimiter(now *time.Time) *RateLimiter {
	rl := NewRateLimiter(loginRate, loginBurst)
	rl.now = func() time.Time { return *now }
	return rl
}

func TestRateLimiter_Allow(t *testing.T) {
	// given
	now := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)
	rl := newTestLimiter(&now)

	// when
	allowed := 0
	for i := 0; i < loginBurst+3; i++ {
		if rl.Allow("192.0.2.1") {
			allowed++
		}
	}

	// then
	assert.Equal(t, loginBurst, allowed)
	assert.True(t, rl.Allow("192.0.2.2"), "other clients keep their own budget")

	now = now.Add(12 * time.Second)
	assert.True(t, rl.Allow("192.0.2.1"))
	assert.False(t, rl.Allow("192.0.2.1"))
}

func TestRateLimiter_Cleanup(t *testing.T) {
	now := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)
	rl := newTestLimiter(&now)
	rl.Allow("192.0.2.1")
	now = now.Add(5 * time.Minute)
	rl.Allow("192.0.2.2")

	now = now.Add(6 * time.Minute)
	rl.Cleanup(limiterIdleTTL)

	assert.Len(t, rl.limiters, 1)
	assert.Contains(t, rl.limiters, "192.0.2.2")
}

func TestRateLimiter_Limit(t *testing.T) {
	now := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)
	rl := newTestLimiter(&now)
	h := rl.Limit("/accounts/login/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	for i := 0; i < loginBurst; i++ {
		w := httptest.NewRecorder()
		h(w, httptest.NewRequest(http.MethodPost, "/accounts/login/", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}

	blocked := httptest.NewRecorder()
	h(blocked, httptest.NewRequest(http.MethodPost, "/accounts/login/", nil))
	assert.Equal(t, http.StatusTooManyRequests, blocked.Code)
	assert.Equal(t, "60", blocked.Header().Get("Retry-After"))

	get := httptest.NewRecorder()
	h(get, httptest.NewRequest(http.MethodGet, "/accounts/login/", nil))
	assert.Equal(t, http.StatusOK, get.Code)
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.9:51234"
	assert.Equal(t, "203.0.113.9", clientIP(req))

	req.RemoteAddr = "203.0.113.9"
	assert.Equal(t, "203.0.113.9", clientIP(req))
}
