package web

import (
	"net/http"

	"github.com/erazemk/oglasnik/internal/backend"
	"github.com/erazemk/oglasnik/internal/catalog"
	"github.com/erazemk/oglasnik/internal/i18n"
	"github.com/erazemk/oglasnik/internal/listing"
	"github.com/erazemk/oglasnik/internal/media"
	"github.com/erazemk/oglasnik/internal/session"
	webembed "github.com/erazemk/oglasnik/web"
)

// Deps are the services page handlers are built on.
type Deps struct {
	Backend  *backend.Backend
	Loader   *listing.Loader
	Catalog  *catalog.Catalog
	Resolver *media.Resolver
	Bundle   *i18n.Bundle
	Hub      *session.Hub
	// BaseURL is the public address of the site, used in reset links.
	BaseURL string
}

// NewRouter creates the web page router with all page routes registered.
func NewRouter(d Deps) (http.Handler, error) {
	templates, err := LoadTemplates(FuncMap(d.Resolver))
	if err != nil {
		return nil, err
	}

	s := &Server{Deps: d, Templates: templates}

	mux := http.NewServeMux()
	cookieAuth := CookieAuthMiddleware(d.Backend.Auth)

	// Static assets.
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(webembed.StaticFS()))))

	// Public routes.
	mux.HandleFunc("GET /{$}", s.Home)
	mux.HandleFunc("GET /listings/{id}", s.ListingPage)
	mux.HandleFunc("GET /login", s.LoginPage)
	mux.HandleFunc("POST /login", s.LoginSubmit)
	mux.HandleFunc("GET /signup", s.SignupPage)
	mux.HandleFunc("POST /signup", s.SignupSubmit)
	mux.HandleFunc("POST /logout", s.Logout)
	mux.HandleFunc("GET /forgot-password", s.ForgotPasswordPage)
	mux.HandleFunc("POST /forgot-password", s.ForgotPasswordSubmit)
	mux.HandleFunc("GET /reset-password", s.ResetPasswordPage)
	mux.HandleFunc("POST /reset-password", s.ResetPasswordSubmit)
	mux.HandleFunc("POST /language", s.LanguageSubmit)

	// Authenticated routes.
	mux.Handle("GET /post", cookieAuth(http.HandlerFunc(s.PostPage)))
	mux.Handle("POST /post", cookieAuth(http.HandlerFunc(s.PostSubmit)))
	mux.Handle("POST /listings/{id}/sold", cookieAuth(http.HandlerFunc(s.MarkSoldSubmit)))

	mux.HandleFunc("/", s.NotFound)

	return LocaleMiddleware(d.Bundle)(mux), nil
}
