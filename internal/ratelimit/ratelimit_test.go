package ratelimit

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiterAllowsUpToLimit(t *testing.T) {
	l := NewLimiter(3, time.Minute)

	assert.True(t, l.Allow("1.2.3.4"))
	assert.True(t, l.Allow("1.2.3.4"))
	assert.True(t, l.Allow("1.2.3.4"))
	assert.False(t, l.Allow("1.2.3.4"))

	// Other keys are unaffected.
	assert.True(t, l.Allow("5.6.7.8"))
}

func TestLimiterWindowSlides(t *testing.T) {
	l := NewLimiter(2, time.Minute)
	now := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	require.True(t, l.Allow("k"))
	require.True(t, l.Allow("k"))
	require.False(t, l.Allow("k"))

	now = now.Add(61 * time.Second)
	assert.True(t, l.Allow("k"))
}

func TestLimiterReset(t *testing.T) {
	l := NewLimiter(1, time.Minute)
	require.True(t, l.Allow("k"))
	require.False(t, l.Allow("k"))

	l.Reset("k")
	assert.True(t, l.Allow("k"))
}

func TestMiddleware(t *testing.T) {
	l := NewLimiter(1, time.Minute)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := Middleware(l, logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.RemoteAddr = "9.8.7.6:1234"

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "rate_limited")

	// A different client still gets through.
	other := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	other.RemoteAddr = "1.1.1.1:1234"
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, other)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
