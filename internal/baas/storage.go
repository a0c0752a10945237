package baas

import (
	"bytes"
	"context"
	"net/http"
	"strings"
)

// Storage is one object storage bucket.
type Storage struct {
	client *Client
	bucket string
}

// Storage returns a handle for bucket.
func (c *Client) Storage(bucket string) *Storage {
	return &Storage{client: c, bucket: bucket}
}

// Bucket returns the bucket name.
func (s *Storage) Bucket() string {
	return s.bucket
}

// Upload stores data under key. Existing objects are never overwritten;
// a key collision returns an error matching ErrDuplicate.
func (s *Storage) Upload(ctx context.Context, token, key string, data []byte, contentType string) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return s.client.do(ctx, request{
		method: http.MethodPost,
		url:    s.client.endpoint(nil, "storage", "v1", "object", s.bucket, cleanKey(key)),
		raw:    bytes.NewReader(data),
		token:  token,
		headers: map[string]string{
			"Content-Type":  contentType,
			"x-upsert":      "false",
			"Cache-Control": "max-age=3600",
		},
	}, nil)
}

// PublicURL returns the public address of key. It does not check that the
// object exists.
func (s *Storage) PublicURL(key string) string {
	return s.client.endpoint(nil, "storage", "v1", "object", "public", s.bucket, cleanKey(key))
}

// Remove deletes the given keys. Missing keys are not an error.
func (s *Storage) Remove(ctx context.Context, token string, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	prefixes := make([]string, len(keys))
	for i, k := range keys {
		prefixes[i] = cleanKey(k)
	}
	return s.client.do(ctx, request{
		method: http.MethodDelete,
		url:    s.client.endpoint(nil, "storage", "v1", "object", s.bucket),
		body:   map[string][]string{"prefixes": prefixes},
		token:  token,
	}, nil)
}

func cleanKey(key string) string {
	return strings.TrimLeft(key, "/")
}
