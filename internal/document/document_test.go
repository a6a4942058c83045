package document

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestStoreLookupByURI(t *testing.T) {
	res := Resource{URI: "jsondoc://a.json", Name: "a", Content: json.RawMessage(`{}`)}
	store, err := NewStore(res)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	got, ok := store.Get("jsondoc://a.json")
	if !ok {
		t.Fatal("expected to find the registered resource")
	}
	if got.Name != "a" {
		t.Errorf("name: want %q, got %q", "a", got.Name)
	}
	if _, ok := store.Get("jsondoc://other"); ok {
		t.Error("unknown uri must not resolve")
	}
	if store.Len() != 1 {
		t.Errorf("len: want 1, got %d", store.Len())
	}
}

func TestStoreRejectsDuplicateURI(t *testing.T) {
	res := Resource{URI: "jsondoc://a.json", Content: json.RawMessage(`{}`)}
	if _, err := NewStore(res, res); err == nil {
		t.Error("duplicate uris must be a construction error")
	}
}

func TestStoreRejectsEmptyURI(t *testing.T) {
	if _, err := NewStore(Resource{Name: "nameless"}); err == nil {
		t.Error("a resource without a uri must be a construction error")
	}
}

func TestStoreListPreservesOrder(t *testing.T) {
	store, err := NewStore(
		Resource{URI: "jsondoc://b", Content: json.RawMessage(`{}`)},
		Resource{URI: "jsondoc://a", Content: json.RawMessage(`{}`)},
	)
	if err != nil {
		t.Fatal(err)
	}
	list := store.List()
	if len(list) != 2 || list[0].URI != "jsondoc://b" || list[1].URI != "jsondoc://a" {
		t.Errorf("unexpected order: %+v", list)
	}
}

func TestLoadFile(t *testing.T) {
	t.Run("strict json", func(t *testing.T) {
		path := writeTemp(t, `{"a": 1}`)
		content, err := LoadFile(path)
		if err != nil {
			t.Fatalf("LoadFile failed: %v", err)
		}
		if !json.Valid(content) {
			t.Error("loaded content must be valid JSON")
		}
	})

	t.Run("jsonc comments are tolerated", func(t *testing.T) {
		path := writeTemp(t, "{\n  // comment\n  \"a\": 1,\n}\n")
		content, err := LoadFile(path)
		if err != nil {
			t.Fatalf("LoadFile failed: %v", err)
		}
		var decoded map[string]any
		if err := json.Unmarshal(content, &decoded); err != nil {
			t.Fatalf("cleaned content does not parse: %v", err)
		}
		if decoded["a"] != float64(1) {
			t.Errorf("unexpected content: %v", decoded)
		}
	})

	t.Run("invalid json fails", func(t *testing.T) {
		path := writeTemp(t, `{"a": `)
		if _, err := LoadFile(path); err == nil {
			t.Error("expected an error for truncated JSON")
		}
	})

	t.Run("missing file fails", func(t *testing.T) {
		if _, err := LoadFile(filepath.Join(t.TempDir(), "absent.json")); err == nil {
			t.Error("expected an error for a missing file")
		}
	})
}

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}
