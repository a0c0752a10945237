package api

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/erazemk/oglasnik/internal/backend"
	"github.com/erazemk/oglasnik/internal/model"
	"github.com/erazemk/oglasnik/internal/session"
)

// ResetHandler serves the password recovery functions.
type ResetHandler struct {
	Auth backend.Auth
	Hub  *session.Hub
	// AllowedOrigins limits where reset links may redirect. "*" allows any
	// http(s) origin.
	AllowedOrigins []string
}

type resetRequest struct {
	Email      string `json:"email"`
	RedirectTo string `json:"redirectTo"`
}

type resetResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// RequestReset handles POST /functions/v1/request-password-reset.
func (h *ResetHandler) RequestReset(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	if err := h.Auth.SendPasswordReset(r.Context(), req.Email, req.RedirectTo); err != nil {
		slog.Error("password reset request failed", "error", err)
		jsonError(w, http.StatusInternalServerError, "Failed to send password reset email")
		return
	}

	h.publish(session.Event{Kind: session.PasswordRecovery, Email: req.Email})
	jsonResponse(w, http.StatusOK, resetResponse{
		Success: true,
		Message: "If an account exists for this email, a password reset link has been sent",
	})
}

// AdminReset handles POST /functions/v1/admin-password-reset. Unlike
// RequestReset it reports unknown addresses, so it is only served to
// signed-in callers.
func (h *ResetHandler) AdminReset(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	user, err := h.Auth.FindUserByEmail(r.Context(), req.Email)
	if err != nil {
		slog.Error("admin user lookup failed", "error", err)
		jsonError(w, http.StatusInternalServerError, "Failed to look up user")
		return
	}
	if user == nil {
		jsonError(w, http.StatusNotFound, "User not found")
		return
	}

	if err := h.Auth.SendPasswordReset(r.Context(), user.Email, req.RedirectTo); err != nil {
		slog.Error("admin password reset failed", "user", user.ID, "error", err)
		jsonError(w, http.StatusInternalServerError, "Failed to send password reset email")
		return
	}

	slog.Info("admin password reset sent", "user", user.ID, "by", GetUser(r.Context()).ID)
	h.publish(session.Event{Kind: session.PasswordRecovery, UserID: user.ID, Email: user.Email})
	jsonResponse(w, http.StatusOK, resetResponse{
		Success: true,
		Message: "Password reset email sent",
	})
}

// Preflight answers OPTIONS requests. CORS headers are added by the router.
func Preflight(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func (h *ResetHandler) decode(w http.ResponseWriter, r *http.Request) (resetRequest, bool) {
	var req resetRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "Invalid JSON body")
		return req, false
	}

	req.Email = strings.TrimSpace(req.Email)
	switch model.ValidateEmail(req.Email) {
	case nil:
	case model.ErrEmailRequired:
		jsonError(w, http.StatusBadRequest, "Email is required")
		return req, false
	default:
		jsonError(w, http.StatusBadRequest, "Invalid email address")
		return req, false
	}

	if !h.redirectAllowed(req.RedirectTo) {
		jsonError(w, http.StatusBadRequest, "Redirect URL is not allowed")
		return req, false
	}
	return req, true
}

func (h *ResetHandler) redirectAllowed(raw string) bool {
	if raw == "" {
		return true
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return false
	}
	origin := u.Scheme + "://" + u.Host
	for _, o := range h.AllowedOrigins {
		if o == "*" || strings.EqualFold(strings.TrimRight(o, "/"), origin) {
			return true
		}
	}
	return false
}

func (h *ResetHandler) publish(e session.Event) {
	if h.Hub != nil {
		h.Hub.Publish(e)
	}
}
