package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	"notely/internal/apperr"
	"notely/internal/auth"
	"notely/internal/models"
)

// ActorResolver turns a request token into the calling actor.
type ActorResolver interface {
	Resolve(ctx context.Context, token string) (models.Actor, error)
}

// Auth resolves the request token and adds the actor to the context.
// Public endpoints pass through untouched.
func Auth(resolver ActorResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isPublicEndpoint(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			actor, err := resolver.Resolve(r.Context(), auth.TokenFromRequest(r))
			if err != nil {
				deny(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithActor(r.Context(), actor)))
		})
	}
}

// RequireAdmin rejects callers that are not admins. It must run after Auth.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := auth.ActorFromContext(r.Context())
		if !ok {
			deny(w, apperr.Unauthenticated("Unauthorized"))
			return
		}
		if !actor.IsAdmin() {
			deny(w, apperr.Forbidden("Admin access required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func isPublicEndpoint(path string) bool {
	switch path {
	case "/api/auth/register", "/api/auth/login", "/health":
		return true
	}
	return false
}

func deny(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apperr.HTTPStatus(apperr.KindOf(err)))
	_ = json.NewEncoder(w).Encode(map[string]string{"message": apperr.MessageOf(err)})
}
