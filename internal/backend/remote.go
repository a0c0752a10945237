package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/erazemk/oglasnik/internal/baas"
	"github.com/erazemk/oglasnik/internal/listing"
	"github.com/erazemk/oglasnik/internal/model"
)

const (
	listingsTable   = "listings"
	listingsColumns = "*,profiles(*)"
)

// Remote adapts the hosted service client.
func Remote(c *baas.Client, bucket string) *Backend {
	return &Backend{
		Name:     "remote",
		Listings: &remoteListings{client: c},
		Images:   &remoteImages{storage: c.Storage(bucket)},
		Auth:     &remoteAuth{client: c},
	}
}

type remoteListings struct {
	client *baas.Client
}

func (r *remoteListings) FetchListings(ctx context.Context) ([]listing.Row, error) {
	var body json.RawMessage
	opts := baas.SelectOptions{Order: "created_at.desc"}
	if err := r.client.Select(ctx, listingsTable, listingsColumns, opts, &body); err != nil {
		return nil, err
	}

	rows, rejected, err := listing.ParseRows(body)
	if err != nil {
		return nil, err
	}
	for _, re := range rejected {
		slog.Warn("dropping malformed listing row", "index", re.Index, "error", re.Err)
	}
	return rows, nil
}

func (r *remoteListings) GetListing(ctx context.Context, id string) (*listing.Row, error) {
	var raw json.RawMessage
	err := r.client.SelectOne(ctx, listingsTable, listingsColumns, id, &raw)
	if errors.Is(err, baas.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	row, err := listing.ParseRow(raw)
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// listingInsert is the column set written when posting.
type listingInsert struct {
	SellerID    string   `json:"seller_id,omitempty"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Price       float64  `json:"price"`
	Category    string   `json:"category,omitempty"`
	Location    string   `json:"location,omitempty"`
	ImageURL    string   `json:"image_url,omitempty"`
	Condition   string   `json:"condition,omitempty"`
	Features    []string `json:"features"`
}

func (r *remoteListings) CreateListing(ctx context.Context, token string, nl model.NewListing) (string, error) {
	features := nl.Features
	if features == nil {
		features = []string{}
	}
	row := listingInsert{
		SellerID:    nl.SellerID,
		Title:       nl.Title,
		Description: nl.Description,
		Price:       nl.Price,
		Category:    nl.Category,
		Location:    nl.Location,
		ImageURL:    nl.Image,
		Condition:   nl.Condition,
		Features:    features,
	}

	var out struct {
		ID listing.FlexString `json:"id"`
	}
	if err := r.client.Insert(ctx, token, listingsTable, row, &out); err != nil {
		return "", mapRemoteErr(err)
	}
	return string(out.ID), nil
}

func (r *remoteListings) MarkSold(ctx context.Context, token, id string) error {
	n, err := r.client.Update(ctx, token, listingsTable,
		[]baas.Filter{baas.Eq("id", id)}, map[string]bool{"is_sold": true})
	if err != nil {
		return mapRemoteErr(err)
	}
	if n == 0 {
		return ErrForbidden
	}
	return nil
}

type remoteImages struct {
	storage *baas.Storage
}

func (r *remoteImages) Upload(ctx context.Context, token, key string, data []byte, contentType string) error {
	return mapRemoteErr(r.storage.Upload(ctx, token, key, data, contentType))
}

func (r *remoteImages) PublicURL(key string) string {
	return r.storage.PublicURL(key)
}

func (r *remoteImages) Remove(ctx context.Context, token string, keys ...string) error {
	return mapRemoteErr(r.storage.Remove(ctx, token, keys...))
}

func (r *remoteImages) Bucket() string {
	return r.storage.Bucket()
}

type remoteAuth struct {
	client *baas.Client
}

func (r *remoteAuth) SignUp(ctx context.Context, email, password, name string) (*model.Session, error) {
	s, err := r.client.SignUp(ctx, email, password, name)
	if err != nil {
		var apiErr *baas.Error
		if errors.As(err, &apiErr) && (apiErr.Code == "user_already_exists" ||
			strings.Contains(strings.ToLower(apiErr.Message), "already registered")) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	if s.AccessToken == "" {
		return s, ErrConfirmEmail
	}
	return s, nil
}

func (r *remoteAuth) SignIn(ctx context.Context, email, password string) (*model.Session, error) {
	s, err := r.client.SignInWithPassword(ctx, email, password)
	if errors.Is(err, baas.ErrUnauthorized) {
		return nil, ErrInvalidCredentials
	}
	return s, err
}

func (r *remoteAuth) SignOut(ctx context.Context, token string) error {
	err := r.client.SignOut(ctx, token)
	if errors.Is(err, baas.ErrUnauthorized) {
		return nil
	}
	return err
}

func (r *remoteAuth) User(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, ErrUnauthorized
	}
	u, err := r.client.GetUser(ctx, token)
	if errors.Is(err, baas.ErrUnauthorized) {
		return nil, ErrUnauthorized
	}
	return u, err
}

func (r *remoteAuth) FindUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.client.AdminFindUserByEmail(ctx, email)
}

func (r *remoteAuth) SendPasswordReset(ctx context.Context, email, redirectTo string) error {
	return r.client.ResetPasswordForEmail(ctx, email, redirectTo)
}

// mapRemoteErr translates service errors into the shared sentinels.
func mapRemoteErr(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *baas.Error
	switch {
	case errors.Is(err, baas.ErrDuplicate):
		return fmt.Errorf("%w: %w", ErrDuplicate, err)
	case errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized:
		return fmt.Errorf("%w: %w", ErrUnauthorized, err)
	case errors.As(err, &apiErr) && apiErr.Status == http.StatusForbidden:
		return fmt.Errorf("%w: %w", ErrForbidden, err)
	}
	return err
}
