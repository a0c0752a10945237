package listing

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed row.schema.json
var rowSchemaJSON string

var rowSchema = jsonschema.MustCompileString("row.schema.json", rowSchemaJSON)

// Row is a listing record as the data store returns it, with the seller
// profile embedded under "profiles". Optional columns are pointers so an
// absent value can be told apart from a zero one.
type Row struct {
	ID          FlexString      `json:"id"`
	Title       string          `json:"title"`
	Description *string         `json:"description"`
	Price       float64         `json:"price"`
	Category    *string         `json:"category"`
	Location    *string         `json:"location"`
	ImageURL    *string         `json:"image_url"`
	Condition   *string         `json:"condition"`
	Features    json.RawMessage `json:"features"`
	CreatedAt   *Timestamp      `json:"created_at"`
	Sold        *bool           `json:"is_sold"`
	Seller      *SellerRow      `json:"profiles"`
}

// SellerRow is the profile sub-record joined onto a listing row.
type SellerRow struct {
	FullName     *string    `json:"full_name"`
	Rating       *float64   `json:"rating"`
	Phone        *string    `json:"phone"`
	CreatedAt    *Timestamp `json:"created_at"`
	TotalSales   *int       `json:"total_sales"`
	ResponseRate *int       `json:"response_rate"`
}

// RowError reports a row that was dropped at the boundary.
type RowError struct {
	Index int
	Err   error
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Index, e.Err)
}

func (e RowError) Unwrap() error { return e.Err }

// ParseRows decodes a JSON array of listing rows. Rows that do not satisfy
// the row schema are skipped and reported; only a body that is not a JSON
// array at all is an error.
func ParseRows(body []byte) ([]Row, []RowError, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(body, &raws); err != nil {
		return nil, nil, fmt.Errorf("decoding listing rows: %w", err)
	}

	rows := make([]Row, 0, len(raws))
	var rejected []RowError
	for i, raw := range raws {
		row, err := ParseRow(raw)
		if err != nil {
			rejected = append(rejected, RowError{Index: i, Err: err})
			continue
		}
		rows = append(rows, row)
	}
	return rows, rejected, nil
}

// ParseRow validates and decodes a single listing row.
func ParseRow(raw []byte) (Row, error) {
	var v any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return Row{}, fmt.Errorf("decoding row: %w", err)
	}
	if err := rowSchema.Validate(v); err != nil {
		return Row{}, fmt.Errorf("validating row: %w", err)
	}

	var row Row
	if err := json.Unmarshal(raw, &row); err != nil {
		return Row{}, fmt.Errorf("decoding row: %w", err)
	}
	return row, nil
}

// FlexString accepts a JSON string or number; ids are opaque strings here
// even when the store uses numeric keys.
type FlexString string

func (s *FlexString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = FlexString(str)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*s = FlexString(n.String())
	return nil
}

// Timestamp parses the timestamp layouts the store emits. Unparseable
// values decode as invalid rather than failing the row.
type Timestamp struct {
	Time  time.Time
	Valid bool
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05.999999-07",
	"2006-01-02 15:04:05.999999",
	"2006-01-02",
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	*t = Timestamp{}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return nil
	}
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			t.Valid = true
			return nil
		}
	}
	return nil
}

// NewTimestamp wraps a time as a valid Timestamp.
func NewTimestamp(tm time.Time) *Timestamp {
	return &Timestamp{Time: tm, Valid: true}
}
