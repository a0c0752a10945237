package web

import (
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"math"
	"net/http"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/erazemk/oglasnik/internal/catalog"
	"github.com/erazemk/oglasnik/internal/i18n"
	"github.com/erazemk/oglasnik/internal/media"
	"github.com/erazemk/oglasnik/internal/model"
	webembed "github.com/erazemk/oglasnik/web"
)

// Templates holds parsed HTML templates.
type Templates struct {
	templates map[string]*template.Template
}

// FuncMap returns the template function map. Image references go through
// resolver; the placeholder is also used by the onerror fallback.
func FuncMap(resolver *media.Resolver) template.FuncMap {
	return template.FuncMap{
		"image": resolver.Resolve,
		"placeholder": func() string {
			if resolver.Placeholder != "" {
				return resolver.Placeholder
			}
			return media.DefaultPlaceholder
		},
		"date": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("2. 1. 2006")
		},
	}
}

var pages = []string{
	"home.html",
	"listing.html",
	"not_found.html",
	"post.html",
	"login.html",
	"signup.html",
	"forgot_password.html",
	"reset_password.html",
}

// LoadTemplates parses all page templates with the layout.
func LoadTemplates(funcs template.FuncMap) (*Templates, error) {
	tfs := webembed.TemplatesFS()

	layoutBytes, err := fs.ReadFile(tfs, "layout.html")
	if err != nil {
		return nil, fmt.Errorf("reading layout template: %w", err)
	}

	ts := &Templates{templates: make(map[string]*template.Template)}

	for _, page := range pages {
		pageBytes, err := fs.ReadFile(tfs, page)
		if err != nil {
			return nil, fmt.Errorf("reading template %s: %w", page, err)
		}

		tmpl := template.New(page).Funcs(funcs)
		tmpl, err = tmpl.Parse(string(layoutBytes))
		if err != nil {
			return nil, fmt.Errorf("parsing layout for %s: %w", page, err)
		}
		tmpl, err = tmpl.Parse(string(pageBytes))
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", page, err)
		}

		ts.templates[page] = tmpl
	}

	return ts, nil
}

// Render renders a template with the given data.
func (ts *Templates) Render(w http.ResponseWriter, name string, data any) {
	ts.RenderStatus(w, http.StatusOK, name, data)
}

// RenderStatus renders a template with an explicit status code.
func (ts *Templates) RenderStatus(w http.ResponseWriter, status int, name string, data any) {
	tmpl, ok := ts.templates[name]
	if !ok {
		http.Error(w, "template not found", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := tmpl.ExecuteTemplate(w, "layout", data); err != nil {
		slog.Error("failed to render template", "template", name, "error", err)
	}
}

// PageData is the base data passed to all templates.
type PageData struct {
	Title   string
	User    *model.User
	Locale  string
	Locales []string
	Path    string
	Error   string
	Success string

	bundle  *i18n.Bundle
	catalog *catalog.Catalog
}

// T translates key into the page locale.
func (p PageData) T(key string, args ...any) string {
	return p.bundle.T(p.Locale, key, args...)
}

// Categories returns the catalog's category tree.
func (p PageData) Categories() []model.Category {
	return p.catalog.Categories()
}

// CategoryName returns the localized name of a subcategory id, or the id
// itself for references outside the catalog.
func (p PageData) CategoryName(id string) string {
	sub, _, ok := p.catalog.Subcategory(id)
	if !ok {
		return id
	}
	return p.T(sub.NameKey)
}

// ConditionName localizes the known conditions and passes free text through.
func (p PageData) ConditionName(c string) string {
	key := "conditions." + c
	if msg := p.T(key); msg != key {
		return msg
	}
	return c
}

// Price formats an amount in euros with the locale's digit grouping.
func (p PageData) Price(v float64) string {
	printer := message.NewPrinter(language.Make(p.Locale))
	if v == math.Trunc(v) {
		return printer.Sprintf("%.0f €", v)
	}
	return printer.Sprintf("%.2f €", v)
}

// Server holds all dependencies for page handlers.
type Server struct {
	Deps
	Templates *Templates
}

// page builds the base page data for r.
func (s *Server) page(r *http.Request, titleKey string, user *model.User) PageData {
	locale := GetLocale(r.Context())
	p := PageData{
		User:    user,
		Locale:  locale,
		Locales: s.Bundle.Locales(),
		Path:    r.URL.RequestURI(),
		bundle:  s.Bundle,
		catalog: s.Catalog,
	}
	if titleKey != "" {
		p.Title = p.T(titleKey)
	}
	return p
}
