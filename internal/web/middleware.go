package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/erazemk/oglasnik/internal/backend"
	"github.com/erazemk/oglasnik/internal/i18n"
	"github.com/erazemk/oglasnik/internal/model"
)

type webContextKey string

const (
	webUserKey   webContextKey = "webuser"
	webTokenKey  webContextKey = "webtoken"
	webLocaleKey webContextKey = "weblocale"
)

const (
	tokenCookie  = "token"
	localeCookie = "lang"
)

// CookieAuthMiddleware resolves the session cookie through the backend and
// adds the user to the context. Visitors without a valid session are sent
// to the login page.
func CookieAuthMiddleware(a backend.Auth) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			loginURL := "/login?next=" + url.QueryEscape(r.URL.RequestURI())

			cookie, err := r.Cookie(tokenCookie)
			if err != nil || cookie.Value == "" {
				http.Redirect(w, r, loginURL, http.StatusSeeOther)
				return
			}

			user, err := a.User(r.Context(), cookie.Value)
			if err != nil {
				if !errors.Is(err, backend.ErrUnauthorized) {
					slog.Error("failed to resolve session", "error", err)
				}
				clearAuthCookie(w)
				http.Redirect(w, r, loginURL, http.StatusSeeOther)
				return
			}

			ctx := context.WithValue(r.Context(), webUserKey, user)
			ctx = context.WithValue(ctx, webTokenKey, cookie.Value)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// LocaleMiddleware negotiates the page locale from the language cookie and
// the Accept-Language header.
func LocaleMiddleware(b *i18n.Bundle) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var preferred string
			if c, err := r.Cookie(localeCookie); err == nil {
				preferred = c.Value
			}
			locale := b.Negotiate(preferred, r.Header.Get("Accept-Language"))
			ctx := context.WithValue(r.Context(), webLocaleKey, locale)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func setAuthCookie(w http.ResponseWriter, s *model.Session) {
	maxAge := 86400
	if !s.ExpiresAt.IsZero() {
		maxAge = int(time.Until(s.ExpiresAt).Seconds())
	}
	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookie,
		Value:    s.AccessToken,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   maxAge,
	})
}

// clearAuthCookie clears the authentication cookie with consistent attributes.
func clearAuthCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

// GetWebUser retrieves the signed-in user from web context.
func GetWebUser(ctx context.Context) *model.User {
	u, _ := ctx.Value(webUserKey).(*model.User)
	return u
}

// GetWebToken retrieves the raw session token from web context.
func GetWebToken(ctx context.Context) string {
	token, _ := ctx.Value(webTokenKey).(string)
	return token
}

// GetLocale retrieves the negotiated locale from web context.
func GetLocale(ctx context.Context) string {
	locale, _ := ctx.Value(webLocaleKey).(string)
	return locale
}

// localPath returns next when it is a path on this site, otherwise "/".
func localPath(next string) string {
	if next == "" || next[0] != '/' || (len(next) > 1 && (next[1] == '/' || next[1] == '\\')) {
		return "/"
	}
	return next
}
