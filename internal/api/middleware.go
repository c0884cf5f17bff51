package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"reviewhub/internal/auth"
	"reviewhub/internal/db"
	"reviewhub/internal/models"
	"reviewhub/internal/policy"
)

type contextKey string

const actorKey contextKey = "actor"

type AuthMiddleware struct {
	tokens *auth.TokenService
	users  *db.UserRepository
}

func NewAuthMiddleware(tokens *auth.TokenService, users *db.UserRepository) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, users: users}
}

// Identify resolves an optional bearer token into an actor. Requests
// without an Authorization header pass through as the anonymous actor;
// requests with a malformed or stale token are rejected outright.
func (m *AuthMiddleware) Identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			next.ServeHTTP(w, r)
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			unauthorized(w, "Invalid authorization header format")
			return
		}

		claims, err := m.tokens.Validate(parts[1])
		if err != nil {
			unauthorized(w, "Invalid or expired token")
			return
		}

		user, err := m.users.FindByID(r.Context(), claims.UserID)
		if errors.Is(err, db.ErrNotFound) {
			unauthorized(w, "Invalid or expired token")
			return
		}
		if err != nil {
			slog.Error("error loading token user", "error", err)
			internalError(w)
			return
		}

		actor := policy.Actor{ID: user.ID, Role: user.Role}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), actorKey, actor)))
	})
}

// RequireAuth rejects anonymous requests. It runs after Identify.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if CurrentActor(r).Anonymous() {
			unauthorized(w, "Authorization required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin gates the user-management surface, which is not part of
// the read-anything policy applied to catalog resources.
func (m *AuthMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := CurrentActor(r)
		if actor.Anonymous() {
			unauthorized(w, "Authorization required")
			return
		}
		if actor.Role != models.RoleAdmin {
			forbidden(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// CurrentActor returns the request's actor; the zero value is anonymous.
func CurrentActor(r *http.Request) policy.Actor {
	if v := r.Context().Value(actorKey); v != nil {
		if actor, ok := v.(policy.Actor); ok {
			return actor
		}
	}
	return policy.Actor{}
}

// authorize runs the policy engine and writes the rejection when the
// action is denied. Anonymous actors attempting a non-read action get
// 401; everything else denied gets 403.
func authorize(w http.ResponseWriter, r *http.Request, action policy.Action, kind policy.Kind, ownerID string) bool {
	actor := CurrentActor(r)
	if policy.Authorize(actor, action, kind, ownerID) {
		return true
	}
	if actor.Anonymous() && action != policy.ActionRead {
		unauthorized(w, "Authorization required")
		return false
	}
	forbidden(w)
	return false
}
