package pgsource

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/erazemk/oglasnik/internal/listing"
)

// fakeRow scans fixed values into the destinations in order. A nil value
// leaves the pointer destination nil, as pgx does for NULL.
type fakeRow struct {
	values []any
	err    error
}

func (f fakeRow) Scan(dest ...any) error {
	if f.err != nil {
		return f.err
	}
	for i, d := range dest {
		v := f.values[i]
		if v == nil {
			continue
		}
		switch d := d.(type) {
		case *string:
			*d = v.(string)
		case **string:
			s := v.(string)
			*d = &s
		case **float64:
			x := v.(float64)
			*d = &x
		case **bool:
			b := v.(bool)
			*d = &b
		case **int32:
			n := v.(int32)
			*d = &n
		case **time.Time:
			tm := v.(time.Time)
			*d = &tm
		}
	}
	return nil
}

type fakeQuerier struct {
	row pgx.Row
}

func (f fakeQuerier) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

func (f fakeQuerier) QueryRow(context.Context, string, ...any) pgx.Row {
	return f.row
}

func TestScanRowWithSeller(t *testing.T) {
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	joined := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	row := fakeRow{values: []any{
		"42", "Bike", "Fast", 250.0, "bicycles", "Maribor",
		"listings/b.jpg", "good", `["lights"]`, true, created,
		"u1", "Maja", "041", 4.9, int32(12), int32(80), joined,
	}}

	src := New(fakeQuerier{row: row})
	r, err := src.GetListing(context.Background(), "42")
	if err != nil {
		t.Fatalf("GetListing: %v", err)
	}

	l := listing.Normalize(*r)
	if l.ID != "42" || l.Title != "Bike" || l.Price != 250 || !l.Sold {
		t.Errorf("unexpected listing %+v", l)
	}
	if !l.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt = %v", l.CreatedAt)
	}
	if len(l.Features) != 1 || l.Features[0] != "lights" {
		t.Errorf("Features = %v", l.Features)
	}
	if l.Seller.Name != "Maja" || l.Seller.TotalSales != 12 || l.Seller.ResponseRate != 80 {
		t.Errorf("unexpected seller %+v", l.Seller)
	}
	if !l.Seller.JoinedAt.Equal(joined) {
		t.Errorf("JoinedAt = %v", l.Seller.JoinedAt)
	}
}

func TestScanRowWithoutSeller(t *testing.T) {
	row := fakeRow{values: []any{
		"7", "Lamp", nil, 5.0, nil, nil,
		nil, nil, nil, nil, nil,
		nil, nil, nil, nil, nil, nil, nil,
	}}

	r, err := scanRow(row)
	if err != nil {
		t.Fatalf("scanRow: %v", err)
	}
	if r.Seller != nil {
		t.Errorf("expected no seller, got %+v", r.Seller)
	}

	l := listing.Normalize(r)
	if l.Seller.Name != listing.DefaultSellerName || len(l.Features) != 0 || l.Sold {
		t.Errorf("unexpected defaults %+v", l)
	}
}

func TestGetListingNotFound(t *testing.T) {
	src := New(fakeQuerier{row: fakeRow{err: pgx.ErrNoRows}})

	r, err := src.GetListing(context.Background(), "missing")
	if err != nil || r != nil {
		t.Errorf("expected (nil, nil), got %v, %v", r, err)
	}
}

func TestFetchListingsLive(t *testing.T) {
	dsn := os.Getenv("OGLASNIK_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("OGLASNIK_TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := Open(ctx, dsn, 1)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer pool.Close()

	if _, err := New(pool).FetchListings(ctx); err != nil {
		t.Fatalf("FetchListings: %v", err)
	}
}
