package listing

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/erazemk/oglasnik/internal/model"
)

// State is the data-loading state of a listing page.
type State int

const (
	StateInitializing State = iota
	StateLoading
	StateReady
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// AuthCheck resolves the current user, or nil for an anonymous visitor.
type AuthCheck func(ctx context.Context) (*model.User, error)

// Page is the data behind one listing page view. There is no error state:
// a failed fetch still ends in StateReady with catalog listings and a
// diagnostic in Result.
type Page struct {
	State       State
	AuthChecked bool
	User        *model.User
	Result      Result
}

// NewPage returns a page in its initial state.
func NewPage() *Page {
	return &Page{State: StateInitializing}
}

// Load runs the listing fetch and the auth check concurrently and moves the
// page to StateReady once both have finished. A failing auth check leaves
// the page anonymous.
func (p *Page) Load(ctx context.Context, loader *Loader, checkAuth AuthCheck) {
	if p.State != StateInitializing {
		return
	}
	p.State = StateLoading

	var (
		g      errgroup.Group
		result Result
		user   *model.User
	)
	g.Go(func() error {
		result = loader.Load(ctx)
		return nil
	})
	g.Go(func() error {
		if checkAuth == nil {
			return nil
		}
		u, err := checkAuth(ctx)
		if err != nil {
			return fmt.Errorf("checking session: %w", err)
		}
		user = u
		return nil
	})
	if err := g.Wait(); err != nil {
		slog.Debug("auth check failed, continuing anonymously", "error", err)
	}

	p.Result = result
	p.User = user
	p.AuthChecked = true
	p.State = StateReady
}

// LoadPage creates a page and loads it.
func LoadPage(ctx context.Context, loader *Loader, checkAuth AuthCheck) *Page {
	p := NewPage()
	p.Load(ctx, loader, checkAuth)
	return p
}
