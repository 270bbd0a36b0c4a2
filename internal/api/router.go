// Package api exposes the note services over HTTP.
package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"notely/internal/analytics"
	"notely/internal/auth"
	"notely/internal/middleware"
	"notely/internal/notes"
	"notely/internal/users"
)

// Deps are the services the HTTP layer dispatches to.
type Deps struct {
	Users     *users.Directory
	Notes     *notes.Service
	Analytics *analytics.Aggregator
	Issuer    *auth.Issuer
	Resolver  *auth.Resolver

	// Analyzer answers questions about notes. Nil disables /api/notes/ask.
	Analyzer NoteAnalyzer
	// MCP is mounted at /mcp for admins when set.
	MCP http.Handler

	CookieSecure bool
}

type Server struct {
	Deps
	log zerolog.Logger
}

func NewServer(deps Deps, log zerolog.Logger) *Server {
	return &Server{Deps: deps, log: log}
}

// Handler builds the routed handler with logging and authentication applied.
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()
	router.Use(middleware.Logging(s.log), middleware.Auth(s.Resolver), middleware.ActorFields)
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeMessage(w, http.StatusNotFound, "Route not found")
	})

	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()

	authRoutes := api.PathPrefix("/auth").Subrouter()
	authRoutes.HandleFunc("/register", s.handleRegister).Methods(http.MethodPost)
	authRoutes.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost)
	authRoutes.HandleFunc("/logout", s.handleLogout).Methods(http.MethodPost)
	authRoutes.HandleFunc("/me", s.handleMe).Methods(http.MethodGet)
	authRoutes.HandleFunc("/users/{userId}/promote", s.handlePromote).Methods(http.MethodPost)

	// Fixed paths are registered before /{id} so they are not captured as ids.
	n := api.PathPrefix("/notes").Subrouter()
	n.HandleFunc("", s.handleCreateNote).Methods(http.MethodPost)
	n.HandleFunc("", s.handleListNotes).Methods(http.MethodGet)
	n.HandleFunc("/filter", s.handleFilterNotes).Methods(http.MethodGet)
	n.HandleFunc("/users", s.handleShareCandidates).Methods(http.MethodGet)
	if s.Analyzer != nil {
		n.HandleFunc("/ask", s.handleAsk).Methods(http.MethodPost)
	}
	n.HandleFunc("/{id}", s.handleGetNote).Methods(http.MethodGet)
	n.HandleFunc("/{id}", s.handleUpdateNote).Methods(http.MethodPut)
	n.HandleFunc("/{id}", s.handleDeleteNote).Methods(http.MethodDelete)
	n.HandleFunc("/{id}/share", s.handleShare).Methods(http.MethodPost)
	n.HandleFunc("/{id}/unshare", s.handleUnshare).Methods(http.MethodPost)
	n.HandleFunc("/{id}/change-access", s.handleChangeAccess).Methods(http.MethodPost)
	n.HandleFunc("/{id}/archive", s.handleArchive).Methods(http.MethodPost)
	n.HandleFunc("/{id}/unarchive", s.handleUnarchive).Methods(http.MethodPost)

	d := api.PathPrefix("/dashboard").Subrouter()
	d.HandleFunc("/most-active-users", s.handleMostActiveUsers).Methods(http.MethodGet)
	d.HandleFunc("/most-used-tags", s.handleMostUsedTags).Methods(http.MethodGet)
	d.HandleFunc("/notes-per-day", s.handleNotesPerDay).Methods(http.MethodGet)

	if s.MCP != nil {
		router.PathPrefix("/mcp").Handler(middleware.RequireAdmin(s.MCP))
	}

	return router
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
