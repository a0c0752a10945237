package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/erazemk/oglasnik/internal/backend"
	"github.com/erazemk/oglasnik/internal/catalog"
	"github.com/erazemk/oglasnik/internal/listing"
	"github.com/erazemk/oglasnik/internal/media"
	"github.com/erazemk/oglasnik/internal/session"
)

// Deps are the services the API is built on.
type Deps struct {
	Backend        *backend.Backend
	Loader         *listing.Loader
	Catalog        *catalog.Catalog
	Resolver       *media.Resolver
	Hub            *session.Hub
	AllowedOrigins []string
}

// NewRouter creates the API router with all endpoints registered. It serves
// /api/ and /functions/v1/.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		jsonError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		jsonError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	authHandler := &AuthHandler{Auth: d.Backend.Auth, Hub: d.Hub}
	resetHandler := &ResetHandler{Auth: d.Backend.Auth, Hub: d.Hub, AllowedOrigins: d.AllowedOrigins}
	listingsHandler := &ListingsHandler{
		Loader:   d.Loader,
		Catalog:  d.Catalog,
		Resolver: d.Resolver,
		Listings: d.Backend.Listings,
	}

	authMW := AuthMiddleware(d.Backend.Auth)

	// Edge functions, callable cross-origin.
	r.Route("/functions/v1", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:     d.AllowedOrigins,
			AllowedMethods:     []string{"POST", "OPTIONS"},
			AllowedHeaders:     []string{"Authorization", "X-Client-Info", "Apikey", "Content-Type"},
			OptionsPassthrough: true,
			MaxAge:             300,
		}))

		r.Post("/request-password-reset", resetHandler.RequestReset)
		r.Options("/request-password-reset", Preflight)
		r.With(authMW).Post("/admin-password-reset", resetHandler.AdminReset)
		r.Options("/admin-password-reset", Preflight)
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", authHandler.Login)
		r.With(authMW).Post("/auth/logout", authHandler.Logout)
		r.With(authMW).Get("/auth/me", authHandler.Me)

		r.Get("/categories", listingsHandler.Categories)
		r.Get("/listings", listingsHandler.List)
		r.Get("/listings/{id}", listingsHandler.Get)
		r.With(authMW).Post("/listings/{id}/sold", listingsHandler.MarkSold)
	})

	return r
}
