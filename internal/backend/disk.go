package backend

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// MediaPrefix is the URL path the disk bucket is served under.
const MediaPrefix = "/media/"

// DiskBucket is a directory standing in for an object storage bucket.
type DiskBucket struct {
	dir  string
	name string
}

// NewDiskBucket creates dir if needed.
func NewDiskBucket(dir, name string) (*DiskBucket, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating media directory: %w", err)
	}
	return &DiskBucket{dir: dir, name: name}, nil
}

// path maps an object key to a file path inside the bucket directory.
func (b *DiskBucket) path(key string) (string, error) {
	key = strings.TrimLeft(key, "/")
	if key == "" || !filepath.IsLocal(filepath.FromSlash(key)) {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return filepath.Join(b.dir, filepath.FromSlash(key)), nil
}

func (b *DiskBucket) Upload(_ context.Context, _, key string, data []byte, _ string) error {
	p, err := b.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("creating object directory: %w", err)
	}

	f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("%w: %s", ErrDuplicate, key)
	}
	if err != nil {
		return fmt.Errorf("creating object: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(p)
		return fmt.Errorf("writing object: %w", err)
	}
	return f.Close()
}

func (b *DiskBucket) PublicURL(key string) string {
	return MediaPrefix + path.Clean(strings.TrimLeft(key, "/"))
}

func (b *DiskBucket) Remove(_ context.Context, _ string, keys ...string) error {
	for _, key := range keys {
		p, err := b.path(key)
		if err != nil {
			return err
		}
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("removing object: %w", err)
		}
	}
	return nil
}

func (b *DiskBucket) Bucket() string {
	return b.name
}

// Handler serves the bucket's files. Directory listings are refused.
func (b *DiskBucket) Handler() http.Handler {
	files := http.FileServer(http.Dir(b.dir))
	return http.StripPrefix(strings.TrimSuffix(MediaPrefix, "/"), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		files.ServeHTTP(w, r)
	}))
}
