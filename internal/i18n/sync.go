package i18n

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"
)

// TranslateMarker prefixes values copied from the primary locale that
// still need a translator.
const TranslateMarker = "[TRANSLATE] "

// Sync returns a copy of target with every key path of primary that target
// lacks, each valued TranslateMarker followed by the primary value. Values
// already in target are never changed, including leaves that sit where
// primary has an object. added lists the inserted dotted keys, sorted.
func Sync(primary, target map[string]any) (result map[string]any, added []string) {
	result = deepCopy(target)
	syncInto("", primary, result, &added)
	sort.Strings(added)
	return result, added
}

func syncInto(prefix string, primary, target map[string]any, added *[]string) {
	for k, pv := range primary {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		tv, exists := target[k]

		if pTree, ok := pv.(map[string]any); ok {
			if !exists {
				sub := make(map[string]any)
				target[k] = sub
				syncInto(key, pTree, sub, added)
				continue
			}
			if tTree, ok := tv.(map[string]any); ok {
				syncInto(key, pTree, tTree, added)
			}
			continue
		}

		if !exists {
			target[k] = marked(pv)
			*added = append(*added, key)
		}
	}
}

func marked(v any) any {
	if s, ok := v.(string); ok {
		return TranslateMarker + s
	}
	// Numbers and booleans carry no text to translate.
	return v
}

func deepCopy(tree map[string]any) map[string]any {
	out := make(map[string]any, len(tree))
	for k, v := range tree {
		if sub, ok := v.(map[string]any); ok {
			out[k] = deepCopy(sub)
			continue
		}
		out[k] = v
	}
	return out
}

// Missing lists dotted keys of primary that target lacks.
func Missing(primary, target map[string]any) []string {
	want, have := Flatten(primary), Flatten(target)
	var missing []string
	for k := range want {
		if _, ok := have[k]; !ok {
			missing = append(missing, k)
		}
	}
	sort.Strings(missing)
	return missing
}

// Untranslated lists dotted keys whose value still carries the marker.
func Untranslated(tree map[string]any) []string {
	var keys []string
	for k, v := range Flatten(tree) {
		if strings.HasPrefix(v, TranslateMarker) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// Encode renders a locale tree the way the files are kept in the
// repository: sorted keys, two-space indent, trailing newline and no HTML
// escaping.
func Encode(tree map[string]any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(tree); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
