package element

import (
	"errors"
	"reflect"
	"testing"
)

func TestNormalizeAssignsMissingIDs(t *testing.T) {
	payload := []any{
		map[string]any{"type": "hero", "content": "", "props": map[string]any{}},
		map[string]any{"id": "keep-me", "type": "text", "content": "hi"},
	}

	out, err := Normalize(payload)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 elements, got %d", len(out))
	}
	if out[0].ID == "" {
		t.Error("missing id must be synthesized")
	}
	if out[1].ID != "keep-me" {
		t.Errorf("existing id must be preserved, got %q", out[1].ID)
	}
	if dups := DuplicateIDs(out); len(dups) != 0 {
		t.Errorf("normalize produced duplicate ids: %v", dups)
	}
}

func TestNormalizeRecursesIntoChildren(t *testing.T) {
	payload := []any{
		map[string]any{
			"type": "section",
			"children": []any{
				map[string]any{"type": "text", "content": "nested"},
			},
		},
	}

	out, err := Normalize(payload)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if len(out[0].Children) != 1 {
		t.Fatalf("expected 1 child, got %d", len(out[0].Children))
	}
	if out[0].Children[0].ID == "" {
		t.Error("nested child must get an id")
	}
}

func TestNormalizeExtractionPrecedence(t *testing.T) {
	payload := map[string]any{
		"template_data": map[string]any{
			"content": []any{map[string]any{"type": "hero"}},
		},
		"elements": []any{map[string]any{"type": "text"}},
		"content":  []any{map[string]any{"type": "image"}},
	}

	out, err := Normalize(payload)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if len(out) != 1 || out[0].Type != "hero" {
		t.Fatalf("template_data.content must win, got %+v", out)
	}
}

func TestNormalizeFallbackShapes(t *testing.T) {
	cases := []struct {
		name    string
		payload any
		want    string
	}{
		{"elements key", map[string]any{"elements": []any{map[string]any{"type": "navbar"}}}, "navbar"},
		{"content key", map[string]any{"content": []any{map[string]any{"type": "footer"}}}, "footer"},
		{"direct array", []any{map[string]any{"type": "card"}}, "card"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := Normalize(tc.payload)
			if err != nil {
				t.Fatalf("Normalize failed: %v", err)
			}
			if len(out) != 1 || out[0].Type != tc.want {
				t.Fatalf("got %+v, want one %s", out, tc.want)
			}
		})
	}
}

func TestNormalizeIdempotentOnIDs(t *testing.T) {
	payload := []any{
		map[string]any{"type": "section", "children": []any{
			map[string]any{"type": "text"},
		}},
	}

	first, err := Normalize(payload)
	if err != nil {
		t.Fatalf("first pass: %v", err)
	}
	second, err := Normalize(first)
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}

	if !reflect.DeepEqual(CollectIDs(first), CollectIDs(second)) {
		t.Errorf("ids changed across passes: %v vs %v", CollectIDs(first), CollectIDs(second))
	}
}

func TestNormalizeNoElements(t *testing.T) {
	for _, payload := range []any{
		nil,
		map[string]any{"title": "not a template"},
		map[string]any{"elements": "not an array"},
		42,
	} {
		if _, err := Normalize(payload); !errors.Is(err, ErrNoElements) {
			t.Errorf("payload %v: expected ErrNoElements, got %v", payload, err)
		}
	}
}

func TestNormalizeJSON(t *testing.T) {
	raw := []byte(`{"template_data": {"content": [{"type": "hero", "content": "", "props": {}}]}}`)

	out, err := NormalizeJSON(raw)
	if err != nil {
		t.Fatalf("NormalizeJSON failed: %v", err)
	}
	if len(out) != 1 || out[0].Type != "hero" || out[0].ID == "" {
		t.Fatalf("got %+v, want one hero with generated id", out)
	}

	if _, err := NormalizeJSON([]byte(`{invalid`)); err == nil {
		t.Error("expected decode error for malformed JSON")
	}
}

func TestNormalizeUnknownTypesPreserved(t *testing.T) {
	payload := []any{
		map[string]any{"type": "animated-sparkline-3d", "props": map[string]any{"speed": float64(3)}},
	}
	out, err := Normalize(payload)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if out[0].Type != "animated-sparkline-3d" {
		t.Errorf("unknown type must round-trip, got %q", out[0].Type)
	}
	if out[0].Props["speed"] != float64(3) {
		t.Errorf("props must round-trip, got %v", out[0].Props)
	}
}
