package listing

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/erazemk/oglasnik/internal/model"
)

// Seller defaults applied when a row carries no profile or an incomplete one.
const (
	DefaultSellerName   = "Anonymous"
	DefaultRating       = 4.5
	DefaultResponseRate = 95
)

// Normalize maps a store row into the canonical listing shape, stamping
// missing timestamps with the current time.
func Normalize(r Row) model.Listing {
	return NormalizeAt(r, time.Now())
}

// NormalizeAt is Normalize with an explicit clock. It never fails: every
// optional field has a default.
func NormalizeAt(r Row, now time.Time) model.Listing {
	l := model.Listing{
		ID:          string(r.ID),
		Title:       r.Title,
		Description: deref(r.Description),
		Price:       max(r.Price, 0),
		Category:    deref(r.Category),
		Location:    deref(r.Location),
		Image:       strings.TrimSpace(deref(r.ImageURL)),
		Condition:   deref(r.Condition),
		Features:    parseFeatures(r.Features),
		CreatedAt:   now,
	}
	if r.CreatedAt != nil && r.CreatedAt.Valid {
		l.CreatedAt = r.CreatedAt.Time
	}
	if r.Sold != nil {
		l.Sold = *r.Sold
	}
	l.Seller = normalizeSeller(r.Seller, l.CreatedAt)
	return l
}

func normalizeSeller(s *SellerRow, listed time.Time) model.Seller {
	seller := model.Seller{
		Name:         DefaultSellerName,
		Rating:       DefaultRating,
		JoinedAt:     listed,
		ResponseRate: DefaultResponseRate,
	}
	if s == nil {
		return seller
	}
	if s.FullName != nil && strings.TrimSpace(*s.FullName) != "" {
		seller.Name = *s.FullName
	}
	if s.Rating != nil {
		seller.Rating = min(max(*s.Rating, 0), 5)
	}
	if s.Phone != nil {
		seller.Phone = *s.Phone
	}
	if s.CreatedAt != nil && s.CreatedAt.Valid {
		seller.JoinedAt = s.CreatedAt.Time
	}
	if s.TotalSales != nil {
		seller.TotalSales = max(*s.TotalSales, 0)
	}
	if s.ResponseRate != nil {
		seller.ResponseRate = min(max(*s.ResponseRate, 0), 100)
	}
	return seller
}

// parseFeatures keeps the string elements of a JSON array. Anything that is
// not an array yields an empty list.
func parseFeatures(raw json.RawMessage) []string {
	features := []string{}
	if len(raw) == 0 {
		return features
	}
	var items []any
	if err := json.Unmarshal(raw, &items); err != nil {
		return features
	}
	for _, item := range items {
		if s, ok := item.(string); ok {
			features = append(features, s)
		}
	}
	return features
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
