package server

import (
	"context"
	"net/http"
	"strings"

	apperrors "github.com/jrsteele09/ailab-client/internal/errors"
	"github.com/jrsteele09/ailab-client/token/jwt"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ContextKeyUserID stores the authenticated user ID
	ContextKeyUserID ContextKey = "user_id"
	// ContextKeyClaims stores the validated access token claims
	ContextKeyClaims ContextKey = "claims"
)

// RequireAuth is middleware that validates a Bearer access token
// Used for API routes that expect an access token in the Authorization header
func (s *Server) RequireAuth() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			// Extract Bearer token from Authorization header
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				unauthorized(w, "Missing Authorization header")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				unauthorized(w, "Invalid Authorization header format")
				return
			}

			claims, err := s.validator.Validate(strings.TrimSpace(parts[1]))
			if err != nil {
				switch {
				case apperrors.Is(err, apperrors.ErrNoToken):
					unauthorized(w, "Empty token")
				case apperrors.Is(err, apperrors.ErrTokenExpired):
					unauthorized(w, "Token expired")
				default:
					unauthorized(w, "Invalid token")
				}
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyUserID, claims.Subject)
			ctx = context.WithValue(ctx, ContextKeyClaims, claims)
			next(w, r.WithContext(ctx))
		}
	}
}

func unauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="ailab"`)
	writeJSONError(w, "unauthorized", description, http.StatusUnauthorized)
}

func claimsFromContext(ctx context.Context) (*jwt.AccessClaims, bool) {
	claims, ok := ctx.Value(ContextKeyClaims).(*jwt.AccessClaims)
	return claims, ok
}
