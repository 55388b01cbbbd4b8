package auth

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/noah-isme/backend-quotes/internal/common"
)

// TokenParser turns a bearer token into a user id.
type TokenParser interface {
	ParseAccessToken(token string) (string, error)
}

// RoleSource looks up the profile role of a user. An unknown user yields "".
type RoleSource interface {
	Role(ctx context.Context, userID string) (string, error)
}

// Middleware guards the API routes.
type Middleware struct {
	Tokens TokenParser
	Roles  RoleSource
}

var errUnauthorized = common.NewAppError("UNAUTHORIZED", "missing or invalid token", http.StatusUnauthorized, nil)

// RequireAuth rejects requests without a valid bearer token and stores the token subject
// on the request context.
func (m Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" || m.Tokens == nil {
			common.WriteError(w, errUnauthorized)
			return
		}
		userID, err := m.Tokens.ParseAccessToken(token)
		if err != nil {
			var appErr *common.AppError
			if !errors.As(err, &appErr) {
				appErr = errUnauthorized
			}
			common.WriteError(w, appErr)
			return
		}
		next.ServeHTTP(w, r.WithContext(common.WithUserID(r.Context(), userID)))
	})
}

// RequireRole admits users whose profile role is one of roles. It must run after
// RequireAuth. Lookup failures are treated as a missing role.
func (m Middleware) RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := common.UserID(r.Context())
			if !ok {
				common.WriteError(w, errUnauthorized)
				return
			}
			var role string
			if m.Roles != nil {
				if found, err := m.Roles.Role(r.Context(), userID); err == nil {
					role = strings.ToLower(strings.TrimSpace(found))
				}
			}
			if role == "" || !slices.Contains(roles, role) {
				common.JSONError(w, http.StatusForbidden, "FORBIDDEN", "insufficient permissions", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
