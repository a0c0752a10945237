// Package media resolves image references to displayable URLs and prepares
// uploaded images for the bucket.
package media

import (
	"strings"
)

// DefaultPlaceholder is shown for listings without a usable image.
const DefaultPlaceholder = "/static/placeholder.svg"

// Resolver turns stored image references into URLs. A reference is either
// an absolute http(s) URL or an object key in Bucket, optionally prefixed
// with the bucket name or a leading slash.
type Resolver struct {
	Bucket      string
	PublicURL   func(key string) string
	Placeholder string
}

// Resolve returns a displayable URL for ref. It never fails; anything it
// cannot resolve becomes the placeholder.
func (r *Resolver) Resolve(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return r.placeholder()
	}
	if isAbsoluteURL(ref) {
		return ref
	}

	key := ObjectKey(r.Bucket, ref)
	if key == "" || r.PublicURL == nil {
		return r.placeholder()
	}
	return r.PublicURL(key)
}

func (r *Resolver) placeholder() string {
	if r.Placeholder == "" {
		return DefaultPlaceholder
	}
	return r.Placeholder
}

// ObjectKey strips a leading slash and bucket prefix from ref.
func ObjectKey(bucket, ref string) string {
	key := strings.TrimLeft(ref, "/")
	if bucket != "" {
		key = strings.TrimPrefix(key, bucket+"/")
	}
	return key
}

func isAbsoluteURL(ref string) bool {
	lower := strings.ToLower(ref)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
