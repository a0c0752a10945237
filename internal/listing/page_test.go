package listing

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/erazemk/oglasnik/internal/catalog"
	"github.com/erazemk/oglasnik/internal/model"
)

// rendezvousSource blocks until the auth check has started, so a sequential
// loader would time out.
type rendezvousSource struct {
	fetchStarted chan struct{}
	authStarted  chan struct{}
}

func (s *rendezvousSource) FetchListings(ctx context.Context) ([]Row, error) {
	close(s.fetchStarted)
	select {
	case <-s.authStarted:
		return []Row{{ID: "1", Title: "Together"}}, nil
	case <-time.After(2 * time.Second):
		return nil, errors.New("auth check never started")
	}
}

func (s *rendezvousSource) GetListing(ctx context.Context, id string) (*Row, error) {
	return nil, nil
}

func TestPageLoadsConcurrently(t *testing.T) {
	src := &rendezvousSource{fetchStarted: make(chan struct{}), authStarted: make(chan struct{})}
	loader := &Loader{Source: src, Catalog: catalog.Default()}

	checkAuth := func(ctx context.Context) (*model.User, error) {
		close(src.authStarted)
		select {
		case <-src.fetchStarted:
			return &model.User{ID: "u1", Email: "ana@example.com"}, nil
		case <-time.After(2 * time.Second):
			return nil, errors.New("fetch never started")
		}
	}

	page := LoadPage(context.Background(), loader, checkAuth)

	if page.State != StateReady || !page.AuthChecked {
		t.Fatalf("expected ready and auth checked, got %s/%v", page.State, page.AuthChecked)
	}
	if page.Result.Origin != OriginRemote {
		t.Errorf("expected remote listings, got %q (%s)", page.Result.Origin, page.Result.Diagnostic)
	}
	if page.User == nil || page.User.ID != "u1" {
		t.Errorf("expected user u1, got %+v", page.User)
	}
}

func TestPageAuthFailureIsAnonymous(t *testing.T) {
	var logs bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })

	loader := &Loader{Catalog: catalog.Default()}
	checkAuth := func(ctx context.Context) (*model.User, error) {
		return nil, errors.New("session expired")
	}

	page := LoadPage(context.Background(), loader, checkAuth)
	if page.State != StateReady || !page.AuthChecked {
		t.Fatalf("expected ready page, got %s", page.State)
	}
	if page.User != nil {
		t.Errorf("expected anonymous page, got %+v", page.User)
	}
	if len(page.Result.Listings) == 0 {
		t.Error("expected catalog listings")
	}
	if !strings.Contains(logs.String(), "session expired") {
		t.Errorf("expected auth error in log, got %q", logs.String())
	}
}

func TestPageLoadOnlyOnce(t *testing.T) {
	src := &fakeSource{rows: []Row{{ID: "1", Title: "x"}}}
	loader := &Loader{Source: src, Catalog: catalog.Default()}

	page := NewPage()
	if page.State != StateInitializing {
		t.Fatalf("expected initializing, got %s", page.State)
	}
	page.Load(context.Background(), loader, nil)
	page.Load(context.Background(), loader, nil)

	if src.calls != 1 {
		t.Errorf("expected one fetch, got %d", src.calls)
	}
	if page.State.String() != "ready" {
		t.Errorf("expected ready, got %s", page.State)
	}
}
