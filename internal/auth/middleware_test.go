package auth

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func echoActor() (http.Handler, *Actor) {
	var seen Actor
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = ActorFrom(r.Context())
		w.WriteHeader(http.StatusOK)
	}), &seen
}

func TestIdentifyAnonymousWithoutCredentials(t *testing.T) {
	issuer := NewTokenIssuer("test-signing-key", time.Hour)
	next, seen := echoActor()
	handler := Identify(issuer, nil, discardLogger())(next)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/countries", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, Anonymous, *seen)
}

func TestIdentifyResolvesBearerToken(t *testing.T) {
	issuer := NewTokenIssuer("test-signing-key", time.Hour)
	sessions := NewInMemorySessionStore()
	actor := Actor{Kind: KindDelegate, CountryID: "c1"}
	token, sessionID, err := issuer.Issue(actor)
	require.NoError(t, err)
	require.NoError(t, sessions.Create(context.Background(), sessionID, actor))

	next, seen := echoActor()
	handler := Identify(issuer, sessions, discardLogger())(next)

	req := httptest.NewRequest(http.MethodGet, "/countries", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, actor, *seen)
}

func TestIdentifyRejectsRevokedSession(t *testing.T) {
	issuer := NewTokenIssuer("test-signing-key", time.Hour)
	sessions := NewInMemorySessionStore()
	token, _, err := issuer.Issue(Actor{Kind: KindDelegate, CountryID: "c1"})
	require.NoError(t, err)
	// Session never created: equivalent to revoked or expired.

	next, _ := echoActor()
	handler := Identify(issuer, sessions, discardLogger())(next)

	req := httptest.NewRequest(http.MethodGet, "/countries", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAdminToken(t *testing.T) {
	handler := RequireAdminToken("ops-secret", discardLogger())(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))

	req := httptest.NewRequest(http.MethodPut, "/event/boundaries", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodPut, "/event/boundaries", nil)
	req.Header.Set("X-Admin-Token", "ops-secret")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRequireAdminActor(t *testing.T) {
	handler := RequireAdmin(discardLogger())(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))

	req := httptest.NewRequest(http.MethodPost, "/import/countries", nil)
	req = req.WithContext(WithActor(req.Context(), Actor{Kind: KindDelegate, CountryID: "c1"}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/import/countries", nil)
	req = req.WithContext(WithActor(req.Context(), Actor{Kind: KindAdmin}))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
