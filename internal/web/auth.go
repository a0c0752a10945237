package web

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/erazemk/oglasnik/internal/backend"
	"github.com/erazemk/oglasnik/internal/model"
	"github.com/erazemk/oglasnik/internal/session"
)

type authPage struct {
	PageData
	Email string
	Name  string
	Next  string
	Token string
	// CanReset is false when the backend completes resets itself.
	CanReset bool
}

func (s *Server) renderAuth(w http.ResponseWriter, r *http.Request, name, titleKey string, p authPage) {
	base := s.page(r, titleKey, nil)
	base.Error, base.Success = p.Error, p.Success
	p.PageData = base
	status := http.StatusOK
	if p.Error != "" {
		status = http.StatusBadRequest
	}
	s.Templates.RenderStatus(w, status, name, &p)
}

func (s *Server) publish(kind session.Kind, u *model.User, email string) {
	if s.Hub == nil {
		return
	}
	e := session.Event{Kind: kind, Email: email}
	if u != nil {
		e.UserID, e.Email = u.ID, u.Email
	}
	s.Hub.Publish(e)
}

// authMessage maps auth failures to translation keys.
func authMessage(err error) string {
	switch {
	case errors.Is(err, model.ErrEmailRequired):
		return "auth.email_required"
	case errors.Is(err, model.ErrEmailMalformed):
		return "auth.email_invalid"
	case errors.Is(err, model.ErrPasswordTooShort):
		return "auth.password_short"
	case errors.Is(err, backend.ErrEmailTaken):
		return "auth.email_taken"
	case errors.Is(err, backend.ErrInvalidCredentials):
		return "auth.invalid_credentials"
	default:
		return "auth.failed"
	}
}

// LoginPage handles GET /login.
func (s *Server) LoginPage(w http.ResponseWriter, r *http.Request) {
	s.renderAuth(w, r, "login.html", "auth.login_title", authPage{Next: r.URL.Query().Get("next")})
}

// LoginSubmit handles POST /login.
func (s *Server) LoginSubmit(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")
	next := r.FormValue("next")
	t := func(key string) string { return s.Bundle.T(GetLocale(r.Context()), key) }

	if email == "" || password == "" {
		s.renderAuth(w, r, "login.html", "auth.login_title", authPage{
			PageData: PageData{Error: t("auth.invalid_credentials")},
			Email:    email,
			Next:     next,
		})
		return
	}

	sess, err := s.Backend.Auth.SignIn(r.Context(), email, password)
	if err != nil {
		if errors.Is(err, backend.ErrInvalidCredentials) {
			slog.Warn("login failed", "email", email, "remote", r.RemoteAddr)
		} else {
			slog.Error("sign in failed", "error", err)
		}
		s.renderAuth(w, r, "login.html", "auth.login_title", authPage{
			PageData: PageData{Error: t(authMessage(err))},
			Email:    email,
			Next:     next,
		})
		return
	}

	setAuthCookie(w, sess)
	s.publish(session.SignedIn, &sess.User, "")
	slog.Info("user logged in", "user", sess.User.ID)
	http.Redirect(w, r, localPath(next), http.StatusSeeOther)
}

// SignupPage handles GET /signup.
func (s *Server) SignupPage(w http.ResponseWriter, r *http.Request) {
	s.renderAuth(w, r, "signup.html", "auth.signup_title", authPage{})
}

// SignupSubmit handles POST /signup.
func (s *Server) SignupSubmit(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.FormValue("name"))
	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")
	t := func(key string) string { return s.Bundle.T(GetLocale(r.Context()), key) }

	fail := func(err error) {
		s.renderAuth(w, r, "signup.html", "auth.signup_title", authPage{
			PageData: PageData{Error: t(authMessage(err))},
			Email:    email,
			Name:     name,
		})
	}

	if err := model.ValidateEmail(email); err != nil {
		fail(err)
		return
	}
	if err := model.ValidatePassword(password); err != nil {
		fail(err)
		return
	}

	sess, err := s.Backend.Auth.SignUp(r.Context(), email, password, name)
	if errors.Is(err, backend.ErrConfirmEmail) {
		s.publish(session.SignedUp, nil, email)
		s.renderAuth(w, r, "login.html", "auth.login_title", authPage{
			PageData: PageData{Success: t("auth.confirm_email")},
			Email:    email,
		})
		return
	}
	if err != nil {
		if !errors.Is(err, backend.ErrEmailTaken) {
			slog.Error("sign up failed", "error", err)
		}
		fail(err)
		return
	}

	setAuthCookie(w, sess)
	s.publish(session.SignedUp, &sess.User, "")
	slog.Info("user signed up", "user", sess.User.ID)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Logout handles POST /logout.
func (s *Server) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(tokenCookie); err == nil && cookie.Value != "" {
		user, _ := s.Backend.Auth.User(r.Context(), cookie.Value)
		if err := s.Backend.Auth.SignOut(r.Context(), cookie.Value); err != nil {
			slog.Error("failed to sign out", "error", err)
		}
		if user != nil {
			s.publish(session.SignedOut, user, "")
		}
	}
	clearAuthCookie(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// ForgotPasswordPage handles GET /forgot-password.
func (s *Server) ForgotPasswordPage(w http.ResponseWriter, r *http.Request) {
	s.renderAuth(w, r, "forgot_password.html", "auth.forgot_title", authPage{})
}

// ForgotPasswordSubmit handles POST /forgot-password. The response does not
// reveal whether the address is registered.
func (s *Server) ForgotPasswordSubmit(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.FormValue("email"))
	t := func(key string) string { return s.Bundle.T(GetLocale(r.Context()), key) }

	if err := model.ValidateEmail(email); err != nil {
		s.renderAuth(w, r, "forgot_password.html", "auth.forgot_title", authPage{
			PageData: PageData{Error: t(authMessage(err))},
			Email:    email,
		})
		return
	}

	redirect := strings.TrimRight(s.BaseURL, "/") + "/reset-password"
	if err := s.Backend.Auth.SendPasswordReset(r.Context(), email, redirect); err != nil {
		slog.Error("failed to send password reset", "error", err)
		s.renderAuth(w, r, "forgot_password.html", "auth.forgot_title", authPage{
			PageData: PageData{Error: t("auth.failed")},
			Email:    email,
		})
		return
	}

	s.publish(session.PasswordRecovery, nil, email)
	s.renderAuth(w, r, "forgot_password.html", "auth.forgot_title", authPage{
		PageData: PageData{Success: t("auth.forgot_sent")},
	})
}

// ResetPasswordPage handles GET /reset-password?token=.
func (s *Server) ResetPasswordPage(w http.ResponseWriter, r *http.Request) {
	_, ok := s.Backend.Resetter()
	p := authPage{Token: r.URL.Query().Get("token"), CanReset: ok}
	if !ok {
		p.Success = s.Bundle.T(GetLocale(r.Context()), "auth.reset_unavailable")
	}
	s.renderAuth(w, r, "reset_password.html", "auth.reset_title", p)
}

// ResetPasswordSubmit handles POST /reset-password.
func (s *Server) ResetPasswordSubmit(w http.ResponseWriter, r *http.Request) {
	t := func(key string) string { return s.Bundle.T(GetLocale(r.Context()), key) }
	resetter, ok := s.Backend.Resetter()
	if !ok {
		http.Error(w, "not supported", http.StatusNotFound)
		return
	}

	token := r.FormValue("token")
	err := resetter.ResetPassword(r.Context(), token, r.FormValue("password"))
	switch {
	case err == nil:
		slog.Info("password reset completed")
		s.renderAuth(w, r, "login.html", "auth.login_title", authPage{
			PageData: PageData{Success: t("auth.reset_done")},
		})
	case errors.Is(err, model.ErrPasswordTooShort):
		s.renderAuth(w, r, "reset_password.html", "auth.reset_title", authPage{
			PageData: PageData{Error: t("auth.password_short")},
			Token:    token,
			CanReset: true,
		})
	case errors.Is(err, backend.ErrResetInvalid):
		s.renderAuth(w, r, "reset_password.html", "auth.reset_title", authPage{
			PageData: PageData{Error: t("auth.reset_invalid")},
			CanReset: false,
		})
	default:
		slog.Error("failed to reset password", "error", err)
		s.renderAuth(w, r, "reset_password.html", "auth.reset_title", authPage{
			PageData: PageData{Error: t("auth.failed")},
			Token:    token,
			CanReset: true,
		})
	}
}
