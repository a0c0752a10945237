// Package pgsource reads listings straight from the hosted Postgres
// database, bypassing the REST layer.
package pgsource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/erazemk/oglasnik/internal/listing"
)

// DefaultMaxConns bounds the pool; the frontend only issues short reads.
const DefaultMaxConns = 4

// Querier is the subset of *pgxpool.Pool the source needs.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Source implements listing.Source on a Postgres connection pool.
type Source struct {
	db Querier
}

// New wraps an existing pool or connection.
func New(db Querier) *Source {
	return &Source{db: db}
}

// Open connects a pool to dsn and verifies it with a ping.
func Open(ctx context.Context, dsn string, maxConns int) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing database URL: %w", err)
	}
	if maxConns <= 0 {
		maxConns = DefaultMaxConns
	}
	cfg.MaxConns = int32(maxConns)

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return pool, nil
}

const selectListing = `
	SELECT l.id::text, l.title, l.description, l.price::float8, l.category, l.location,
	       l.image_url, l.condition, to_jsonb(l.features)::text, l.is_sold, l.created_at,
	       p.id::text, p.full_name, p.phone, p.rating::float8, p.total_sales,
	       p.response_rate, p.created_at
	FROM listings l
	LEFT JOIN profiles p ON p.id = l.seller_id`

// FetchListings returns every listing, newest first.
func (s *Source) FetchListings(ctx context.Context) ([]listing.Row, error) {
	rows, err := s.db.Query(ctx, selectListing+` ORDER BY l.created_at DESC NULLS LAST`)
	if err != nil {
		return nil, fmt.Errorf("querying listings: %w", err)
	}
	defer rows.Close()

	var result []listing.Row
	for rows.Next() {
		r, err := scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning listing: %w", err)
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading listings: %w", err)
	}
	return result, nil
}

// GetListing returns one listing, or nil when the id is unknown.
func (s *Source) GetListing(ctx context.Context, id string) (*listing.Row, error) {
	r, err := scanRow(s.db.QueryRow(ctx, selectListing+` WHERE l.id::text = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting listing: %w", err)
	}
	return &r, nil
}

// scanRow maps a joined row onto the REST row shape so it shares the
// normalizer with the other sources.
func scanRow(row pgx.Row) (listing.Row, error) {
	var (
		r           listing.Row
		id          string
		features    *string
		price       *float64
		created     *time.Time
		sellerID    *string
		sellerName  *string
		sellerPhone *string
		rating      *float64
		sales       *int32
		rate        *int32
		joined      *time.Time
	)
	err := row.Scan(&id, &r.Title, &r.Description, &price, &r.Category, &r.Location,
		&r.ImageURL, &r.Condition, &features, &r.Sold, &created,
		&sellerID, &sellerName, &sellerPhone, &rating, &sales, &rate, &joined)
	if err != nil {
		return listing.Row{}, err
	}

	r.ID = listing.FlexString(id)
	if price != nil {
		r.Price = *price
	}
	if features != nil {
		r.Features = json.RawMessage(*features)
	}
	if created != nil {
		r.CreatedAt = listing.NewTimestamp(*created)
	}

	if sellerID != nil {
		seller := &listing.SellerRow{
			FullName: sellerName,
			Phone:    sellerPhone,
			Rating:   rating,
		}
		if sales != nil {
			n := int(*sales)
			seller.TotalSales = &n
		}
		if rate != nil {
			n := int(*rate)
			seller.ResponseRate = &n
		}
		if joined != nil {
			seller.CreatedAt = listing.NewTimestamp(*joined)
		}
		r.Seller = seller
	}
	return r, nil
}
