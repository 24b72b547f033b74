package middleware

import (
	"context"
	"net/http"
	"strings"
)

// UsernameHeader carries the acting user's username. Authentication happens
// upstream; the ledger trusts the header.
const UsernameHeader = "X-Username"

type actingUserKey struct{}

// ActingUser stores the request's acting username in its context.
func ActingUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username := strings.TrimSpace(r.Header.Get(UsernameHeader))
		if username != "" {
			r = r.WithContext(WithActingUsername(r.Context(), username))
		}
		next.ServeHTTP(w, r)
	})
}

// WithActingUsername returns a copy of ctx carrying username.
func WithActingUsername(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, actingUserKey{}, username)
}

// ActingUsername returns the acting username, or "" when none was sent.
func ActingUsername(ctx context.Context) string {
	username, _ := ctx.Value(actingUserKey{}).(string)
	return username
}
