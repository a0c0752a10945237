package baas

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// Filter is a PostgREST column filter such as {"id", "eq", "42"}.
type Filter struct {
	Column   string
	Operator string
	Value    string
}

// Eq builds an equality filter.
func Eq(column, value string) Filter {
	return Filter{Column: column, Operator: "eq", Value: value}
}

// SelectOptions narrows a Select.
type SelectOptions struct {
	Filters []Filter
	// Order is a PostgREST order clause, for example "created_at.desc".
	Order string
	Limit int
}

func (o SelectOptions) values(columns string) url.Values {
	q := url.Values{}
	if columns == "" {
		columns = "*"
	}
	q.Set("select", columns)
	for _, f := range o.Filters {
		q.Add(f.Column, f.Operator+"."+f.Value)
	}
	if o.Order != "" {
		q.Set("order", o.Order)
	}
	if o.Limit > 0 {
		q.Set("limit", fmt.Sprint(o.Limit))
	}
	return q
}

// Select reads rows of table into out, which is usually a pointer to a
// slice or a *json.RawMessage. Columns may embed a relation, for example
// "*,profiles(*)".
func (c *Client) Select(ctx context.Context, table, columns string, opts SelectOptions, out any) error {
	return c.do(ctx, request{
		method: http.MethodGet,
		url:    c.endpoint(opts.values(columns), "rest", "v1", table),
	}, out)
}

// SelectOne reads the row of table whose id column equals id. It returns
// ErrNotFound when no row matches.
func (c *Client) SelectOne(ctx context.Context, table, columns, id string, out any) error {
	var rows []json.RawMessage
	opts := SelectOptions{Filters: []Filter{Eq("id", id)}, Limit: 1}
	if err := c.Select(ctx, table, columns, opts, &rows); err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("%s %s: %w", table, id, ErrNotFound)
	}
	if raw, ok := out.(*json.RawMessage); ok {
		*raw = rows[0]
		return nil
	}
	if err := json.Unmarshal(rows[0], out); err != nil {
		return fmt.Errorf("decoding %s row: %w", table, err)
	}
	return nil
}

// Insert adds row to table and decodes the stored representation into out
// (if non-nil). The request is made with the caller's access token so row
// level security applies to the signed-in user.
func (c *Client) Insert(ctx context.Context, token, table string, row any, out any) error {
	var rows []json.RawMessage
	err := c.do(ctx, request{
		method:  http.MethodPost,
		url:     c.endpoint(nil, "rest", "v1", table),
		body:    row,
		token:   token,
		headers: map[string]string{"Prefer": "return=representation"},
	}, &rows)
	if err != nil {
		return err
	}
	if out == nil || len(rows) == 0 {
		return nil
	}
	if err := json.Unmarshal(rows[0], out); err != nil {
		return fmt.Errorf("decoding inserted %s row: %w", table, err)
	}
	return nil
}

// Update patches the rows of table matching filters with the caller's
// access token and returns how many rows were changed. Row level security
// silently hides rows the caller may not touch, so zero is not an error.
func (c *Client) Update(ctx context.Context, token, table string, filters []Filter, patch any) (int, error) {
	var rows []json.RawMessage
	err := c.do(ctx, request{
		method:  http.MethodPatch,
		url:     c.endpoint(SelectOptions{Filters: filters}.values("id"), "rest", "v1", table),
		body:    patch,
		token:   token,
		headers: map[string]string{"Prefer": "return=representation"},
	}, &rows)
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}
