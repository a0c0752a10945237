package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/erazemk/oglasnik/internal/backend"
	"github.com/erazemk/oglasnik/internal/catalog"
	"github.com/erazemk/oglasnik/internal/listing"
	"github.com/erazemk/oglasnik/internal/media"
	"github.com/erazemk/oglasnik/internal/model"
)

// ListingsHandler serves listing and category data as JSON.
type ListingsHandler struct {
	Loader   *listing.Loader
	Catalog  *catalog.Catalog
	Resolver *media.Resolver
	Listings backend.Listings
}

type listingsResponse struct {
	Query      listing.Query   `json:"query"`
	Listings   []model.Listing `json:"listings"`
	Total      int             `json:"total"`
	Origin     listing.Origin  `json:"origin"`
	Diagnostic string          `json:"diagnostic,omitempty"`
}

type listingResponse struct {
	Listing model.Listing  `json:"listing"`
	Origin  listing.Origin `json:"origin"`
}

type categoriesResponse struct {
	Categories []model.Category `json:"categories"`
	Counts     map[string]int   `json:"counts"`
}

// List handles GET /api/listings?q=&sub=.
func (h *ListingsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := listing.Query{
		Text:        r.URL.Query().Get("q"),
		Subcategory: r.URL.Query().Get("sub"),
	}

	res := h.Loader.Load(r.Context())
	matched := listing.Filter(res.Listings, q)
	for i := range matched {
		matched[i].Image = h.Resolver.Resolve(matched[i].Image)
	}

	jsonResponse(w, http.StatusOK, listingsResponse{
		Query:      q,
		Listings:   matched,
		Total:      len(res.Listings),
		Origin:     res.Origin,
		Diagnostic: res.Diagnostic,
	})
}

// Get handles GET /api/listings/{id}.
func (h *ListingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	l, origin, err := h.Loader.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, listing.ErrNotFound) {
		jsonError(w, http.StatusNotFound, "listing not found")
		return
	}
	if errors.Is(err, listing.ErrUnavailable) {
		slog.Warn("listing store unavailable", "error", err)
		jsonError(w, http.StatusServiceUnavailable, "listing store unavailable")
		return
	}
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}

	l.Image = h.Resolver.Resolve(l.Image)
	jsonResponse(w, http.StatusOK, listingResponse{Listing: l, Origin: origin})
}

// MarkSold handles POST /api/listings/{id}/sold.
func (h *ListingsHandler) MarkSold(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	err := h.Listings.MarkSold(r.Context(), GetToken(r.Context()), id)
	switch {
	case err == nil:
		slog.Info("listing marked sold", "listing", id, "user", GetUser(r.Context()).ID)
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, backend.ErrForbidden):
		jsonError(w, http.StatusForbidden, "only the seller can mark a listing as sold")
	case errors.Is(err, backend.ErrUnauthorized):
		jsonError(w, http.StatusUnauthorized, "not authenticated")
	default:
		slog.Error("marking listing sold failed", "listing", id, "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
	}
}

// Categories handles GET /api/categories. Counts cover the listings
// currently served, live or static.
func (h *ListingsHandler) Categories(w http.ResponseWriter, r *http.Request) {
	res := h.Loader.Load(r.Context())
	jsonResponse(w, http.StatusOK, categoriesResponse{
		Categories: h.Catalog.Categories(),
		Counts:     listing.CountBySubcategory(res.Listings),
	})
}
