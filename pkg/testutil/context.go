package testutil

import (
	"context"
	"net/http"

	"eventreg/internal/identity"
	"eventreg/internal/platform/middleware"
)

// WithIdentity attaches an authenticated identity to the request context,
// simulating what the optional-auth middleware does for a valid bearer token.
func WithIdentity(req *http.Request, ident *identity.Identity) *http.Request {
	if ident == nil {
		return req
	}
	ctx := context.WithValue(req.Context(), middleware.ContextKeyIdentity, ident)
	return req.WithContext(ctx)
}

// WithRequestID attaches a request ID to the request context for tests that
// assert log correlation fields.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	ctx := context.WithValue(req.Context(), middleware.ContextKeyRequestID, requestID)
	return req.WithContext(ctx)
}

// WithContextValue adds an arbitrary key-value pair to the request context.
func WithContextValue(req *http.Request, key, value any) *http.Request {
	ctx := context.WithValue(req.Context(), key, value)
	return req.WithContext(ctx)
}
