package i18n

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func parse(t *testing.T, s string) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		t.Fatal(err)
	}
	return m
}

func TestSyncAddsNestedKey(t *testing.T) {
	primary := parse(t, `{"a": {"b": "Hello"}, "c": "Bye"}`)
	target := parse(t, `{"c": "Adijo"}`)

	got, added := Sync(primary, target)

	want := parse(t, `{"a": {"b": "[TRANSLATE] Hello"}, "c": "Adijo"}`)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Sync mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"a.b"}, added); diff != "" {
		t.Errorf("added mismatch (-want +got):\n%s", diff)
	}
}

func TestSyncPreservesExistingValues(t *testing.T) {
	primary := parse(t, `{"a": {"b": "B", "c": "C"}, "d": {"e": "E"}, "n": 3}`)
	target := parse(t, `{"a": {"b": "bb"}, "d": "flat", "x": "extra"}`)

	got, added := Sync(primary, target)

	want := parse(t, `{"a": {"b": "bb", "c": "[TRANSLATE] C"}, "d": "flat", "x": "extra", "n": 3}`)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Sync mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"a.c", "n"}, added); diff != "" {
		t.Errorf("added mismatch (-want +got):\n%s", diff)
	}
}

func TestSyncDoesNotMutateInput(t *testing.T) {
	primary := parse(t, `{"a": {"b": "B"}}`)
	target := parse(t, `{"a": {}}`)

	Sync(primary, target)

	if len(target["a"].(map[string]any)) != 0 {
		t.Error("target was modified")
	}
}

func TestSyncIdempotent(t *testing.T) {
	primary := parse(t, `{"a": {"b": "B"}, "c": "C"}`)
	once, _ := Sync(primary, map[string]any{})
	twice, added := Sync(primary, once)

	if len(added) != 0 {
		t.Errorf("second sync added %v", added)
	}
	if diff := cmp.Diff(once, twice); diff != "" {
		t.Errorf("second sync changed result (-once +twice):\n%s", diff)
	}
}

func TestMissingAndUntranslated(t *testing.T) {
	primary := parse(t, `{"a": {"b": "B", "c": "C"}, "d": "D"}`)
	target := parse(t, `{"a": {"b": "[TRANSLATE] B"}, "d": "dd"}`)

	if diff := cmp.Diff([]string{"a.c"}, Missing(primary, target)); diff != "" {
		t.Errorf("Missing mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"a.b"}, Untranslated(target)); diff != "" {
		t.Errorf("Untranslated mismatch (-want +got):\n%s", diff)
	}
}

func TestEncode(t *testing.T) {
	data, err := Encode(map[string]any{"z": "<b>", "a": map[string]any{"c": "1", "b": "2"}})
	if err != nil {
		t.Fatal(err)
	}
	want := "{\n  \"a\": {\n    \"b\": \"2\",\n    \"c\": \"1\"\n  },\n  \"z\": \"<b>\"\n}\n"
	if string(data) != want {
		t.Errorf("Encode =\n%s\nwant\n%s", data, want)
	}
}
