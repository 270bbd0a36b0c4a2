package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"notely/internal/analytics"
	"notely/internal/auth"
	"notely/internal/models"
	"notely/internal/notes"
	"notely/internal/store/sqlstore"
	"notely/internal/users"
)

type fakeAnalyzer struct {
	notes    []models.Note
	question string
}

func (f *fakeAnalyzer) Analyze(_ context.Context, notes []models.Note, question string, _ []models.ChatMessage) (string, error) {
	f.notes, f.question = notes, question
	return "42", nil
}

type testEnv struct {
	handler  http.Handler
	dir      *users.Directory
	analyzer *fakeAnalyzer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	st, err := sqlstore.New("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	log := zerolog.Nop()
	dir := users.NewDirectory(st, log).WithHashCost(bcrypt.MinCost)
	issuer := auth.NewIssuer("api-test-secret-0123456789", time.Hour, nil)
	analyzer := &fakeAnalyzer{}
	srv := NewServer(Deps{
		Users:     dir,
		Notes:     notes.NewService(st, dir, log),
		Analytics: analytics.NewAggregator(st, time.UTC),
		Issuer:    issuer,
		Resolver:  auth.NewResolver(issuer, dir),
		Analyzer:  analyzer,
		MCP: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		}),
	}, log)
	return &testEnv{handler: srv.Handler(), dir: dir, analyzer: analyzer}
}

type session struct {
	id     string
	cookie *http.Cookie
}

func (e *testEnv) do(t *testing.T, s *session, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if s != nil {
		req.AddCookie(s.cookie)
	}
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

func (e *testEnv) register(t *testing.T, name, email string) *session {
	t.Helper()
	w := e.do(t, nil, http.MethodPost, "/api/auth/register", map[string]string{"name": name, "email": email, "password": "password123"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp authResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	for _, c := range w.Result().Cookies() {
		if c.Name == auth.CookieName {
			return &session{id: resp.User.ID, cookie: c}
		}
	}
	t.Fatal("expected auth cookie")
	return nil
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(w.Body).Decode(&v))
	return v
}

func TestRegisterLoginLogout(t *testing.T) {
	e := newTestEnv(t)
	alice := e.register(t, "Alice", "alice@example.com")

	w := e.do(t, nil, http.MethodPost, "/api/auth/register", map[string]string{"name": "A", "email": "ALICE@example.com", "password": "x"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = e.do(t, nil, http.MethodPost, "/api/auth/register", map[string]string{"email": "b@example.com"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"message":"All fields are required"}`, w.Body.String())

	w = e.do(t, nil, http.MethodPost, "/api/auth/login", map[string]string{"email": "alice@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = e.do(t, nil, http.MethodPost, "/api/auth/login", map[string]string{"email": "alice@example.com", "password": "password123"})
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[authResponse](t, w)
	assert.NotEmpty(t, resp.Token)

	// the bearer header works as well as the cookie
	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+resp.Token)
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	w = e.do(t, alice, http.MethodGet, "/api/auth/me", nil)
	require.Equal(t, http.StatusOK, w.Code)
	me := decode[map[string]any](t, w)
	assert.Equal(t, "alice@example.com", me["email"])
	assert.NotContains(t, me, "PasswordHash")

	w = e.do(t, alice, http.MethodPost, "/api/auth/logout", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = e.do(t, alice, http.MethodGet, "/api/auth/me", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUnauthenticatedRequests(t *testing.T) {
	e := newTestEnv(t)

	for _, path := range []string{"/api/notes", "/api/notes/filter", "/api/dashboard/notes-per-day", "/api/auth/me"} {
		w := e.do(t, nil, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}

	w := e.do(t, &session{cookie: &http.Cookie{Name: auth.CookieName, Value: "forged"}}, http.MethodGet, "/api/notes", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = e.do(t, nil, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSharingFlow(t *testing.T) {
	e := newTestEnv(t)
	owner := e.register(t, "Owner", "owner@example.com")
	bob := e.register(t, "Bob", "bob@example.com")

	w := e.do(t, owner, http.MethodPost, "/api/notes", map[string]any{"title": "A", "content": "x", "tags": []string{"work"}})
	require.Equal(t, http.StatusCreated, w.Code)
	created := decode[noteResponse](t, w)
	noteURL := "/api/notes/" + created.Note.ID

	w = e.do(t, bob, http.MethodGet, noteURL, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = e.do(t, owner, http.MethodPost, noteURL+"/share", shareRequest{UserID: bob.id, Access: "read"})
	require.Equal(t, http.StatusOK, w.Code)

	w = e.do(t, bob, http.MethodPut, noteURL, map[string]any{"title": "Z"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = e.do(t, bob, http.MethodGet, noteURL, nil)
	require.Equal(t, http.StatusOK, w.Code)
	view := decode[models.NoteView](t, w)
	assert.False(t, view.CanEdit)
	assert.Equal(t, "A", view.Title)

	w = e.do(t, owner, http.MethodPost, noteURL+"/change-access", shareRequest{UserID: bob.id, Access: "write"})
	require.Equal(t, http.StatusOK, w.Code)

	w = e.do(t, bob, http.MethodPut, noteURL, map[string]any{"content": "y"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "y", decode[noteResponse](t, w).Note.Content)

	w = e.do(t, bob, http.MethodDelete, noteURL, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = e.do(t, bob, http.MethodGet, "/api/notes/filter?tags=work", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.Note](t, w), 1)

	w = e.do(t, owner, http.MethodPost, noteURL+"/unshare", shareRequest{UserID: bob.id})
	require.Equal(t, http.StatusOK, w.Code)
	w = e.do(t, owner, http.MethodPost, noteURL+"/change-access", shareRequest{UserID: bob.id, Access: "read"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"message":"User not found in shared list"}`, w.Body.String())

	w = e.do(t, owner, http.MethodPost, noteURL+"/archive", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[noteResponse](t, w).Note.IsArchived)

	w = e.do(t, owner, http.MethodGet, "/api/notes/filter?isArchived=false", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[[]models.Note](t, w))

	w = e.do(t, owner, http.MethodGet, "/api/notes/filter?isArchived=maybe", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(t, owner, http.MethodDelete, noteURL, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = e.do(t, owner, http.MethodGet, noteURL, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestShareCandidatesEndpoint(t *testing.T) {
	e := newTestEnv(t)
	owner := e.register(t, "Owner", "owner@example.com")
	e.register(t, "Bob", "bob@example.com")
	e.register(t, "Carol", "carol@example.com")

	w := e.do(t, owner, http.MethodGet, "/api/notes/users?search=o&limit=1&page=2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[models.UserPage](t, w)
	assert.Equal(t, 2, page.Total)
	require.Len(t, page.Users, 1)
	assert.Equal(t, "Carol", page.Users[0].Name)
}

func TestDashboardRequiresAdmin(t *testing.T) {
	e := newTestEnv(t)
	userA := e.register(t, "userA", "a@example.com")
	userB := e.register(t, "userB", "b@example.com")

	for i, s := range []*session{userA, userA, userB} {
		w := e.do(t, s, http.MethodPost, "/api/notes", map[string]any{"title": "n", "content": "c", "tags": []string{"t"}})
		require.Equal(t, http.StatusCreated, w.Code, i)
	}

	w := e.do(t, userA, http.MethodGet, "/api/dashboard/most-active-users", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = e.do(t, userA, http.MethodGet, "/mcp", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// promote directly, then the same token carries the new role
	_, err := e.dir.Promote(context.Background(), models.Actor{ID: "bootstrap", Role: models.RoleAdmin}, userA.id)
	require.NoError(t, err)

	w = e.do(t, userA, http.MethodGet, "/api/dashboard/most-active-users", nil)
	require.Equal(t, http.StatusOK, w.Code)
	top := decode[[]models.UserNoteCount](t, w)
	require.Len(t, top, 2)
	assert.Equal(t, userA.id, top[0].UserID)
	assert.Equal(t, 2, top[0].NoteCount)

	w = e.do(t, userA, http.MethodGet, "/api/dashboard/most-used-tags", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []models.TagCount{{Tag: "t", Count: 3}}, decode[[]models.TagCount](t, w))

	w = e.do(t, userA, http.MethodGet, "/api/dashboard/notes-per-day", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.DayCount](t, w), 7)

	w = e.do(t, userA, http.MethodGet, "/mcp", nil)
	assert.Equal(t, http.StatusTeapot, w.Code)
}

func TestPromoteEndpoint(t *testing.T) {
	e := newTestEnv(t)
	admin := e.register(t, "Admin", "admin@example.com")
	member := e.register(t, "Member", "member@example.com")

	w := e.do(t, member, http.MethodPost, "/api/auth/users/"+admin.id+"/promote", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	_, err := e.dir.Promote(context.Background(), models.Actor{Role: models.RoleAdmin}, admin.id)
	require.NoError(t, err)

	w = e.do(t, admin, http.MethodPost, "/api/auth/users/"+member.id+"/promote", nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = e.do(t, admin, http.MethodPost, "/api/auth/users/"+member.id+"/promote", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = e.do(t, admin, http.MethodPost, "/api/auth/users/nobody/promote", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAskUsesAccessibleNotes(t *testing.T) {
	e := newTestEnv(t)
	owner := e.register(t, "Owner", "owner@example.com")
	other := e.register(t, "Other", "other@example.com")

	e.do(t, owner, http.MethodPost, "/api/notes", map[string]any{"title": "mine", "content": "c"})
	e.do(t, other, http.MethodPost, "/api/notes", map[string]any{"title": "theirs", "content": "c"})

	w := e.do(t, owner, http.MethodPost, "/api/notes/ask", map[string]any{"question": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(t, owner, http.MethodPost, "/api/notes/ask", map[string]any{"question": "what?"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"answer":"42"}`, w.Body.String())
	assert.Equal(t, "what?", e.analyzer.question)
	require.Len(t, e.analyzer.notes, 1)
	assert.Equal(t, "mine", e.analyzer.notes[0].Title)
}

func TestSystemInstructionListsNotes(t *testing.T) {
	got := systemInstruction([]models.Note{
		{Title: "Plan", Content: "ship it", Tags: []string{"work"}, IsArchived: true},
	})
	assert.Contains(t, got, "Plan")
	assert.Contains(t, got, "ship it")
	assert.Contains(t, got, "tags: work")
	assert.Contains(t, got, "archived")
}
