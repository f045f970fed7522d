package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventreg/internal/identity"
	id "eventreg/pkg/domain"
	dErrors "eventreg/pkg/domain-errors"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRequestID_AssignsOnePerRequest(t *testing.T) {
	var seen string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, seen)

	first := seen
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEqual(t, first, seen)
}

func TestRecovery_ConvertsPanicTo500(t *testing.T) {
	handler := Recovery(discardLogger())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	require.NotPanics(t, func() {
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	})
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

type stubResolver struct {
	ident *identity.Identity
	err   error
}

func (s stubResolver) FromToken(string) (*identity.Identity, error) {
	return s.ident, s.err
}

func TestOptionalAuth(t *testing.T) {
	memberID := id.NewMemberID()

	t.Run("valid token resolves an identity", func(t *testing.T) {
		var got *identity.Identity
		resolver := stubResolver{ident: &identity.Identity{MemberID: memberID, Name: "Member", Email: "member@example.com"}}
		handler := OptionalAuth(resolver, discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = GetIdentity(r.Context())
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer some-token")
		handler.ServeHTTP(httptest.NewRecorder(), req)

		require.NotNil(t, got)
		assert.Equal(t, memberID, got.MemberID)
	})

	t.Run("missing header stays anonymous", func(t *testing.T) {
		var got *identity.Identity
		resolver := stubResolver{ident: &identity.Identity{MemberID: memberID}}
		handler := OptionalAuth(resolver, discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = GetIdentity(r.Context())
		}))

		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Nil(t, got)
	})

	t.Run("invalid token falls through as anonymous", func(t *testing.T) {
		var got *identity.Identity
		resolver := stubResolver{err: dErrors.New(dErrors.CodeUnauthorized, "invalid token")}
		rr := httptest.NewRecorder()
		handler := OptionalAuth(resolver, discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = GetIdentity(r.Context())
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer garbage")
		handler.ServeHTTP(rr, req)

		assert.Nil(t, got)
		assert.Equal(t, http.StatusOK, rr.Code)
	})
}
