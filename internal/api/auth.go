package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/erazemk/oglasnik/internal/backend"
	"github.com/erazemk/oglasnik/internal/model"
	"github.com/erazemk/oglasnik/internal/session"
)

// AuthHandler handles session endpoints for API clients.
type AuthHandler struct {
	Auth backend.Auth
	Hub  *session.Hub
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Email == "" || req.Password == "" {
		jsonError(w, http.StatusBadRequest, "email and password required")
		return
	}

	s, err := h.Auth.SignIn(r.Context(), req.Email, req.Password)
	if errors.Is(err, backend.ErrInvalidCredentials) {
		slog.Warn("login failed", "email", req.Email, "remote", r.RemoteAddr)
		jsonError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if err != nil {
		slog.Error("sign in failed", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.publish(session.SignedIn, &s.User)
	jsonResponse(w, http.StatusOK, s)
}

// Logout handles POST /api/auth/logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.Auth.SignOut(r.Context(), GetToken(r.Context())); err != nil {
		slog.Error("sign out failed", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	h.publish(session.SignedOut, GetUser(r.Context()))
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /api/auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, GetUser(r.Context()))
}

func (h *AuthHandler) publish(kind session.Kind, u *model.User) {
	if h.Hub == nil || u == nil {
		return
	}
	h.Hub.Publish(session.Event{Kind: kind, UserID: u.ID, Email: u.Email})
}
