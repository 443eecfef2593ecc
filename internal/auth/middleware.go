package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

var errNoToken = errors.New("auth: no bearer token")

// contextKey is an unexported type used for context keys in this package.
//
// WHY A CUSTOM TYPE FOR CONTEXT KEYS?
// context.WithValue keys are compared by type AND value. With a plain string
// key like "userID", any package that knows the string can read or shadow
// the value. A package-private type makes collisions impossible: only this
// package can mint keys of type contextKey.
type contextKey string

const userIDKey contextKey = "userID"

// RequireAuth is a middleware that enforces bearer authentication on
// protected routes.
//
// It reads the JWT from the Authorization header ("Bearer <token>"),
// validates it, and stores the user ID in the request context. A missing or
// malformed credential is rejected with 401 before any business logic runs —
// handlers behind this middleware can assume UserIDFromContext succeeds.
//
// Note the middleware only proves the token is genuine and fresh. The
// service layer still re-checks that the user behind the ID exists: a valid
// token for a deleted account must not resolve to an identity.
func RequireAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := extractUserID(r, tokens)
			if err != nil {
				w.Header().Set("WWW-Authenticate", "Bearer")
				http.Error(w, `{"error":"unauthenticated","message":"authentication required"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFromContext retrieves the authenticated user's ID from the request
// context. Returns (0, false) if the request carries no authenticated
// identity.
func UserIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userIDKey).(int64)
	return id, ok && id > 0
}

// extractUserID pulls the bearer token out of the Authorization header and
// validates it.
//
// Header shape: "Authorization: Bearer eyJhbGciOi...". The scheme comparison
// is case-insensitive per RFC 7235.
func extractUserID(r *http.Request, tokens *TokenService) (int64, error) {
	header := r.Header.Get("Authorization")
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return 0, errNoToken
	}

	return tokens.Validate(strings.TrimSpace(header[len(prefix):]))
}
