package middleware

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"notely/internal/apperr"
	"notely/internal/auth"
	"notely/internal/models"
)

type stubResolver map[string]models.Actor

func (s stubResolver) Resolve(_ context.Context, token string) (models.Actor, error) {
	if a, ok := s[token]; ok {
		return a, nil
	}
	return models.Actor{}, apperr.Unauthenticated("Unauthorized")
}

var resolver = stubResolver{
	"member": {ID: "u1", Role: models.RoleMember},
	"admin":  {ID: "u2", Role: models.RoleAdmin},
}

func echoActor(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())
	_, _ = w.Write([]byte(actor.ID))
}

func request(h http.Handler, path, token string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func TestAuth(t *testing.T) {
	h := Auth(resolver)(http.HandlerFunc(echoActor))

	w := request(h, "/api/notes", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"message":"Unauthorized"}`, w.Body.String())

	w = request(h, "/api/notes", "member")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u1", w.Body.String())

	w = request(h, "/api/auth/login", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "", w.Body.String())
}

func TestRequireAdmin(t *testing.T) {
	h := Auth(resolver)(RequireAdmin(http.HandlerFunc(echoActor)))

	assert.Equal(t, http.StatusUnauthorized, request(h, "/mcp", "").Code)
	assert.Equal(t, http.StatusForbidden, request(h, "/mcp", "member").Code)
	assert.Equal(t, http.StatusOK, request(h, "/mcp", "admin").Code)

	// without Auth in front there is no actor
	bare := RequireAdmin(http.HandlerFunc(echoActor))
	assert.Equal(t, http.StatusUnauthorized, request(bare, "/mcp", "admin").Code)
}

func TestLoggingWritesAccessLine(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)
	h := Logging(log)(Auth(resolver)(ActorFields(http.HandlerFunc(echoActor))))

	w := request(h, "/api/notes", "admin")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, buf.String(), `"path":"/api/notes"`)
	assert.Contains(t, buf.String(), `"status":200`)
	assert.Contains(t, buf.String(), `"user_id":"u2"`)
	assert.Contains(t, buf.String(), `"req_id"`)
}
