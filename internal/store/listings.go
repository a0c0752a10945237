package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/erazemk/oglasnik/internal/listing"
	"github.com/erazemk/oglasnik/internal/model"
)

// CreateListing stores a new listing and returns its ID.
func CreateListing(ctx context.Context, db *sql.DB, nl model.NewListing) (string, error) {
	if nl.Price < 0 {
		return "", fmt.Errorf("creating listing: negative price %v", nl.Price)
	}

	features := nl.Features
	if features == nil {
		features = []string{}
	}
	featuresJSON, err := json.Marshal(features)
	if err != nil {
		return "", fmt.Errorf("encoding features: %w", err)
	}

	id := uuid.NewString()
	_, err = db.ExecContext(ctx,
		`INSERT INTO listings
		 (id, seller_id, title, description, price, category, location, image_url, condition, features, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, nullString(nl.SellerID), nl.Title, nullString(nl.Description), nl.Price,
		nullString(nl.Category), nullString(nl.Location), nullString(nl.Image),
		nullString(nl.Condition), string(featuresJSON), time.Now().UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("creating listing: %w", err)
	}
	return id, nil
}

const selectListing = `
	SELECT l.id, l.title, l.description, l.price, l.category, l.location, l.image_url,
	       l.condition, l.features, l.is_sold, l.created_at,
	       p.id, p.full_name, p.phone, p.rating, p.total_sales, p.response_rate, p.created_at
	FROM listings l LEFT JOIN profiles p ON p.id = l.seller_id`

type scanner interface {
	Scan(dest ...any) error
}

// scanListing maps a joined listing row onto the same shape the hosted
// data API returns, so both go through one normalizer.
func scanListing(s scanner) (listing.Row, error) {
	var (
		r                                   listing.Row
		id                                  string
		desc, cat, loc, img, cond, features sql.NullString
		sold                                bool
		created                             time.Time
		sellerID, sellerName, sellerPhone   sql.NullString
		rating                              sql.NullFloat64
		sales, rate                         sql.NullInt64
		joined                              sql.NullTime
	)
	err := s.Scan(&id, &r.Title, &desc, &r.Price, &cat, &loc, &img, &cond, &features, &sold, &created,
		&sellerID, &sellerName, &sellerPhone, &rating, &sales, &rate, &joined)
	if err != nil {
		return listing.Row{}, err
	}

	r.ID = listing.FlexString(id)
	r.Description = ptr(desc)
	r.Category = ptr(cat)
	r.Location = ptr(loc)
	r.ImageURL = ptr(img)
	r.Condition = ptr(cond)
	if features.Valid {
		r.Features = json.RawMessage(features.String)
	}
	r.Sold = &sold
	r.CreatedAt = listing.NewTimestamp(created)

	if sellerID.Valid {
		seller := &listing.SellerRow{
			FullName: ptr(sellerName),
			Phone:    ptr(sellerPhone),
		}
		if rating.Valid {
			seller.Rating = &rating.Float64
		}
		if sales.Valid {
			n := int(sales.Int64)
			seller.TotalSales = &n
		}
		if rate.Valid {
			n := int(rate.Int64)
			seller.ResponseRate = &n
		}
		if joined.Valid {
			seller.CreatedAt = listing.NewTimestamp(joined.Time)
		}
		r.Seller = seller
	}
	return r, nil
}

// ListListings returns every listing, newest first.
func ListListings(ctx context.Context, db *sql.DB) ([]listing.Row, error) {
	rows, err := db.QueryContext(ctx, selectListing+` ORDER BY l.created_at DESC, l.id`)
	if err != nil {
		return nil, fmt.Errorf("listing listings: %w", err)
	}
	defer rows.Close()

	var result []listing.Row
	for rows.Next() {
		r, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning listing: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// GetListing returns a listing by ID.
func GetListing(ctx context.Context, db *sql.DB, id string) (*listing.Row, error) {
	r, err := scanListing(db.QueryRowContext(ctx, selectListing+` WHERE l.id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting listing: %w", err)
	}
	return &r, nil
}

// MarkListingSold flags a seller's listing as sold and bumps their sales
// counter. It reports false when the listing does not belong to sellerID
// or was already sold.
func MarkListingSold(ctx context.Context, db *sql.DB, id, sellerID string) (bool, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE listings SET is_sold = 1 WHERE id = ? AND seller_id = ? AND is_sold = 0`,
		id, sellerID,
	)
	if err != nil {
		return false, fmt.Errorf("marking listing sold: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return false, nil
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE profiles SET total_sales = total_sales + 1 WHERE id = ?`, sellerID,
	)
	if err != nil {
		return false, fmt.Errorf("recording sale: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("committing sale: %w", err)
	}
	return true, nil
}

func ptr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
