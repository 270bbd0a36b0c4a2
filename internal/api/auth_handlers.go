package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/hlog"

	"notely/internal/auth"
	"notely/internal/models"
)

type credentials struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Message string       `json:"message"`
	User    *models.User `json:"user"`
	Token   string       `json:"token"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	user, err := s.Users.Register(r.Context(), in.Name, in.Email, in.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	token := s.startSession(w, user)
	writeJSON(w, http.StatusCreated, authResponse{Message: "User registered successfully", User: user, Token: token})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	user, err := s.Users.Authenticate(r.Context(), in.Email, in.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	token := s.startSession(w, user)
	writeJSON(w, http.StatusOK, authResponse{Message: "Login successful", User: user, Token: token})
}

func (s *Server) startSession(w http.ResponseWriter, user *models.User) string {
	token, expiresAt := s.Issuer.Issue(models.ActorOf(user))
	auth.SetAuthCookie(w, token, expiresAt, s.CookieSecure)
	return token
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.Issuer.Revoke(auth.TokenFromRequest(r))
	auth.ClearAuthCookie(w, s.CookieSecure)
	writeMessage(w, http.StatusOK, "Logged out successfully")
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	user, err := s.Users.Get(r.Context(), actor.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handlePromote(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	user, err := s.Users.Promote(r.Context(), actor, mux.Vars(r)["userId"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	hlog.FromRequest(r).Info().Str("promoted", user.ID).Msg("admin granted")
	writeJSON(w, http.StatusOK, map[string]any{"message": "User promoted to admin successfully", "user": user})
}
