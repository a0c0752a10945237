package listing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/erazemk/oglasnik/internal/catalog"
	"github.com/erazemk/oglasnik/internal/model"
)

// ErrNotFound is returned when neither the store nor the catalog has a listing.
var ErrNotFound = errors.New("listing not found")

// ErrUnavailable is returned when the store could not be reached and the
// catalog has no listing with the requested id.
var ErrUnavailable = errors.New("listing store unavailable")

// Source is the external store listings are read from.
type Source interface {
	// FetchListings returns every listing row, seller profiles embedded.
	FetchListings(ctx context.Context) ([]Row, error)
	// GetListing returns a single row, or nil when it does not exist.
	GetListing(ctx context.Context, id string) (*Row, error)
}

// Origin records where a page's listings came from.
type Origin string

const (
	OriginRemote Origin = "remote"
	OriginStatic Origin = "static"
)

// Result is the outcome of one load. Diagnostic is set when the remote fetch
// failed and the static catalog was substituted.
type Result struct {
	Listings   []model.Listing `json:"listings"`
	Origin     Origin          `json:"origin"`
	Empty      bool            `json:"empty,omitempty"`
	Diagnostic string          `json:"diagnostic,omitempty"`
}

// Loader fetches listings from Source and falls back to Catalog.
// A nil Source serves the catalog only.
type Loader struct {
	Source  Source
	Catalog *catalog.Catalog
}

// Load makes a single attempt against the source. Errors and empty results
// both yield the catalog listings; it never returns an error.
func (l *Loader) Load(ctx context.Context) Result {
	if l.Source == nil {
		return l.static(false, "")
	}

	start := time.Now()
	rows, err := l.fetch(ctx)
	if err != nil {
		slog.Warn("listing fetch failed, serving static catalog", "error", err, "duration", time.Since(start).Round(time.Millisecond))
		return l.static(false, fmt.Sprintf("could not load live listings: %v", err))
	}
	if len(rows) == 0 {
		slog.Info("listing store returned no rows, serving static catalog")
		return l.static(true, "")
	}

	now := time.Now()
	listings := make([]model.Listing, len(rows))
	for i, r := range rows {
		listings[i] = NormalizeAt(r, now)
	}
	return Result{Listings: listings, Origin: OriginRemote}
}

// Get resolves one listing, trying the source before the catalog. A source
// failure that the catalog cannot cover wraps ErrUnavailable rather than
// reporting a miss.
func (l *Loader) Get(ctx context.Context, id string) (model.Listing, Origin, error) {
	var srcErr error
	if l.Source != nil {
		row, err := l.get(ctx, id)
		switch {
		case err != nil:
			slog.Warn("listing lookup failed", "id", id, "error", err)
			srcErr = err
		case row != nil:
			return Normalize(*row), OriginRemote, nil
		}
	}
	if l.Catalog != nil {
		if found, ok := l.Catalog.Listing(id); ok {
			return found, OriginStatic, nil
		}
	}
	if srcErr != nil {
		return model.Listing{}, "", fmt.Errorf("%w: %w", ErrUnavailable, srcErr)
	}
	return model.Listing{}, "", ErrNotFound
}

func (l *Loader) static(empty bool, diagnostic string) Result {
	var listings []model.Listing
	if l.Catalog != nil {
		listings = l.Catalog.Listings()
	}
	return Result{
		Listings:   listings,
		Origin:     OriginStatic,
		Empty:      empty,
		Diagnostic: diagnostic,
	}
}

func (l *Loader) fetch(ctx context.Context) (rows []Row, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("listing source panicked: %v", r)
		}
	}()
	return l.Source.FetchListings(ctx)
}

func (l *Loader) get(ctx context.Context, id string) (row *Row, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("listing source panicked: %v", r)
		}
	}()
	return l.Source.GetListing(ctx, id)
}
