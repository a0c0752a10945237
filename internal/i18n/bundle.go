// Package i18n loads per-locale message trees and resolves dotted keys.
package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/language"
)

//go:embed locales/*.json
var embedded embed.FS

// DefaultPrimary is the locale every other locale is synced from.
const DefaultPrimary = "en"

// Embedded returns the locale files compiled into the binary.
func Embedded() fs.FS {
	sub, err := fs.Sub(embedded, "locales")
	if err != nil {
		panic(err)
	}
	return sub
}

// Bundle holds the flattened messages of every locale.
type Bundle struct {
	mu       sync.RWMutex
	primary  string
	messages map[string]map[string]string
	tags     []language.Tag
	names    []string
	matcher  language.Matcher
}

// Load reads every <locale>.json file in fsys. The primary locale must be
// present.
func Load(fsys fs.FS, primary string) (*Bundle, error) {
	b := &Bundle{primary: primary}
	if err := b.Reload(fsys); err != nil {
		return nil, err
	}
	return b, nil
}

// Reload replaces the bundle's messages with the files in fsys. On error
// the previous messages stay in place.
func (b *Bundle) Reload(fsys fs.FS) error {
	trees, err := ReadDir(fsys)
	if err != nil {
		return err
	}
	if _, ok := trees[b.primary]; !ok {
		return fmt.Errorf("primary locale %q not found", b.primary)
	}

	messages := make(map[string]map[string]string, len(trees))
	names := make([]string, 0, len(trees))
	for name, tree := range trees {
		messages[name] = Flatten(tree)
		names = append(names, name)
	}

	// The primary locale comes first so the matcher falls back to it.
	sort.Slice(names, func(i, j int) bool {
		if names[i] == b.primary || names[j] == b.primary {
			return names[i] == b.primary
		}
		return names[i] < names[j]
	})
	tags := make([]language.Tag, len(names))
	for i, name := range names {
		tags[i] = language.Make(name)
	}

	b.mu.Lock()
	b.messages = messages
	b.names = names
	b.tags = tags
	b.matcher = language.NewMatcher(tags)
	b.mu.Unlock()
	return nil
}

// ReadDir decodes every .json file in fsys, keyed by file name without
// extension.
func ReadDir(fsys fs.FS) (map[string]map[string]any, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("reading locales: %w", err)
	}

	trees := make(map[string]map[string]any)
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".json" {
			continue
		}
		data, err := fs.ReadFile(fsys, e.Name())
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", e.Name(), err)
		}
		var tree map[string]any
		if err := json.Unmarshal(data, &tree); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", e.Name(), err)
		}
		trees[strings.TrimSuffix(e.Name(), ".json")] = tree
	}
	return trees, nil
}

// Primary returns the primary locale.
func (b *Bundle) Primary() string {
	return b.primary
}

// Locales returns the loaded locales, primary first.
func (b *Bundle) Locales() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]string(nil), b.names...)
}

// Has reports whether locale is loaded.
func (b *Bundle) Has(locale string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.messages[locale]
	return ok
}

// T resolves key in locale, then in the primary locale, and finally
// returns the key itself. Args are applied with fmt.Sprintf.
func (b *Bundle) T(locale, key string, args ...any) string {
	b.mu.RLock()
	msg, ok := b.messages[locale][key]
	if !ok {
		msg, ok = b.messages[b.primary][key]
	}
	b.mu.RUnlock()

	if !ok {
		return key
	}
	if len(args) > 0 {
		return fmt.Sprintf(msg, args...)
	}
	return msg
}

// Negotiate picks a locale: an explicit preference (from a cookie) wins
// when it is loaded, otherwise the Accept-Language header is matched.
func (b *Bundle) Negotiate(preferred, acceptLanguage string) string {
	if preferred != "" && b.Has(preferred) {
		return preferred
	}

	b.mu.RLock()
	matcher, names := b.matcher, b.names
	b.mu.RUnlock()

	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return b.primary
	}
	_, index, confidence := matcher.Match(tags...)
	if confidence == language.No {
		return b.primary
	}
	return names[index]
}

// Flatten turns a nested tree into dotted keys. Non-string leaves are
// formatted with %v.
func Flatten(tree map[string]any) map[string]string {
	out := make(map[string]string)
	flatten("", tree, out)
	return out
}

func flatten(prefix string, tree map[string]any, out map[string]string) {
	for k, v := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch v := v.(type) {
		case map[string]any:
			flatten(key, v, out)
		case string:
			out[key] = v
		default:
			out[key] = fmt.Sprint(v)
		}
	}
}
