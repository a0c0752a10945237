package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/erazemk/oglasnik/internal/backend"
	"github.com/erazemk/oglasnik/internal/listing"
	"github.com/erazemk/oglasnik/internal/model"
)

// sessionUser resolves the session cookie without requiring one.
func (s *Server) sessionUser(r *http.Request) listing.AuthCheck {
	return func(ctx context.Context) (*model.User, error) {
		cookie, err := r.Cookie(tokenCookie)
		if err != nil || cookie.Value == "" {
			return nil, nil
		}
		return s.Backend.Auth.User(ctx, cookie.Value)
	}
}

// Home handles GET /.
func (s *Server) Home(w http.ResponseWriter, r *http.Request) {
	q := listing.Query{
		Text:        r.URL.Query().Get("q"),
		Subcategory: r.URL.Query().Get("sub"),
	}

	pg := listing.LoadPage(r.Context(), s.Loader, s.sessionUser(r))
	if r.Context().Err() != nil {
		return
	}

	data := s.page(r, "home.title", pg.User)
	if pg.Result.Diagnostic != "" {
		data.Error = data.T("home.offline_notice")
	} else if pg.Result.Empty {
		data.Success = data.T("home.empty_notice")
	}

	s.Templates.Render(w, "home.html", &struct {
		PageData
		Query    listing.Query
		Listings []model.Listing
		Counts   map[string]int
		Origin   listing.Origin
	}{
		PageData: data,
		Query:    q,
		Listings: listing.Filter(pg.Result.Listings, q),
		Counts:   listing.CountBySubcategory(pg.Result.Listings),
		Origin:   pg.Result.Origin,
	})
}

// ListingPage handles GET /listings/{id}.
func (s *Server) ListingPage(w http.ResponseWriter, r *http.Request) {
	user, _ := s.sessionUser(r)(r.Context())

	l, _, err := s.Loader.Get(r.Context(), r.PathValue("id"))
	if errors.Is(err, listing.ErrNotFound) {
		s.renderNotFound(w, r, user, "listing.not_found_title", "listing.not_found_body")
		return
	}
	if err != nil {
		slog.Error("failed to get listing", "error", err)
		s.renderMessage(w, r, user, http.StatusServiceUnavailable, "errors.generic", "")
		return
	}

	data := s.page(r, "", user)
	data.Title = l.Title
	switch r.URL.Query().Get("status") {
	case "sold":
		data.Success = data.T("listing.marked_sold")
	case "forbidden":
		data.Error = data.T("listing.mark_sold_failed")
	case "failed":
		data.Error = data.T("errors.generic")
	}

	s.Templates.Render(w, "listing.html", &struct {
		PageData
		Listing model.Listing
	}{
		PageData: data,
		Listing:  l,
	})
}

// MarkSoldSubmit handles POST /listings/{id}/sold.
func (s *Server) MarkSoldSubmit(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	user := GetWebUser(r.Context())

	status := "sold"
	err := s.Backend.Listings.MarkSold(r.Context(), GetWebToken(r.Context()), id)
	switch {
	case err == nil:
		slog.Info("listing marked sold", "listing", id, "user", user.ID)
	case errors.Is(err, backend.ErrForbidden):
		status = "forbidden"
	default:
		slog.Error("failed to mark listing sold", "listing", id, "error", err)
		status = "failed"
	}
	http.Redirect(w, r, "/listings/"+url.PathEscape(id)+"?status="+status, http.StatusSeeOther)
}

// LanguageSubmit handles POST /language.
func (s *Server) LanguageSubmit(w http.ResponseWriter, r *http.Request) {
	locale := r.FormValue("locale")
	if s.Bundle.Has(locale) {
		http.SetCookie(w, &http.Cookie{
			Name:     localeCookie,
			Value:    locale,
			Path:     "/",
			MaxAge:   365 * 86400,
			SameSite: http.SameSiteLaxMode,
		})
	}
	http.Redirect(w, r, localPath(r.FormValue("next")), http.StatusSeeOther)
}

// NotFound renders the 404 page for unknown paths.
func (s *Server) NotFound(w http.ResponseWriter, r *http.Request) {
	user, _ := s.sessionUser(r)(r.Context())
	s.renderNotFound(w, r, user, "errors.not_found", "")
}

func (s *Server) renderNotFound(w http.ResponseWriter, r *http.Request, user *model.User, titleKey, bodyKey string) {
	s.renderMessage(w, r, user, http.StatusNotFound, titleKey, bodyKey)
}

func (s *Server) renderMessage(w http.ResponseWriter, r *http.Request, user *model.User, status int, titleKey, bodyKey string) {
	data := s.page(r, titleKey, user)
	var body string
	if bodyKey != "" {
		body = data.T(bodyKey)
	}
	s.Templates.RenderStatus(w, status, "not_found.html", &struct {
		PageData
		Body string
	}{
		PageData: data,
		Body:     body,
	})
}
