// Package authmw provides HTTP middleware for the two kinds of callers the
// API serves: patients holding a signed session token, and clinic staff
// holding the shared admin token.
package authmw

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/linnemanlabs/smilecare/internal/account"
)

const bearerPrefix = "Bearer "

type ctxKey struct{}

// TokenParser verifies a session token. *account.Tokens satisfies it.
type TokenParser interface {
	Parse(token string) (*account.Claims, error)
}

// Session returns middleware that requires a valid patient or guest session
// token and stores its claims on the request context.
func Session(tokens TokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearer(r)
			if !ok {
				unauthorized(w, "missing or malformed authorization header")
				return
			}
			claims, err := tokens.Parse(raw)
			if err != nil {
				unauthorized(w, "invalid token")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// BearerToken returns middleware that validates the Authorization header
// carries exactly the staff token. Comparison is constant-time.
func BearerToken(token string) func(http.Handler) http.Handler {
	expected := []byte(token)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearer(r)
			if !ok {
				unauthorized(w, "missing or malformed authorization header")
				return
			}
			if subtle.ConstantTimeCompare([]byte(raw), expected) != 1 {
				unauthorized(w, "invalid token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithClaims returns a copy of ctx carrying claims.
func WithClaims(ctx context.Context, claims *account.Claims) context.Context {
	return context.WithValue(ctx, ctxKey{}, claims)
}

// FromContext returns the session claims stored by Session.
func FromContext(ctx context.Context) (*account.Claims, bool) {
	c, ok := ctx.Value(ctxKey{}).(*account.Claims)
	return c, ok && c != nil
}

// PatientID returns the session subject, or "" outside a session.
func PatientID(ctx context.Context) string {
	if c, ok := FromContext(ctx); ok {
		return c.Subject
	}
	return ""
}

func bearer(r *http.Request) (string, bool) {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, bearerPrefix) {
		return "", false
	}
	return auth[len(bearerPrefix):], true
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"` + msg + `"}`))
}
