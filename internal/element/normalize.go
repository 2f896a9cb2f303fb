package element

import (
	"encoding/json"
	"errors"
	"fmt"

	"siteforge/api/internal/util"
)

// ErrNoElements is returned when no element array can be extracted from a
// template payload. Callers surface it as "template contains no valid
// elements" rather than silently starting blank.
var ErrNoElements = errors.New("template contains no valid elements")

// Normalize converts an arbitrary template payload into a canonical element
// tree. Payloads come from hand-authored templates, stored template records,
// AI output and previously persisted site data, so the shape is probed in a
// fixed precedence order:
//
//	template_data.content (array) > direct array > .elements > .content
//
// Every node in the result has a non-empty id; ids already present are
// preserved, so normalizing twice is a no-op on identity. Children default
// to empty when absent. If no array can be extracted, ErrNoElements is
// returned.
func Normalize(payload any) ([]BuilderElement, error) {
	items, ok := extractArray(payload)
	if !ok {
		return nil, ErrNoElements
	}
	return normalizeItems(items), nil
}

// NormalizeJSON decodes raw JSON and normalizes it.
func NormalizeJSON(raw []byte) ([]BuilderElement, error) {
	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("decode template payload: %w", err)
	}
	return Normalize(payload)
}

// extractArray tries each known payload shape in precedence order and
// returns the first candidate element array.
func extractArray(payload any) ([]any, bool) {
	switch p := payload.(type) {
	case nil:
		return nil, false
	case []BuilderElement:
		items := make([]any, len(p))
		for i := range p {
			items[i] = p[i]
		}
		return items, true
	case []any:
		return p, true
	case json.RawMessage:
		var decoded any
		if err := json.Unmarshal(p, &decoded); err != nil {
			return nil, false
		}
		return extractArray(decoded)
	case map[string]any:
		if td, ok := p["template_data"].(map[string]any); ok {
			if arr, ok := td["content"].([]any); ok {
				return arr, true
			}
		}
		if arr, ok := p["elements"].([]any); ok {
			return arr, true
		}
		if arr, ok := p["content"].([]any); ok {
			return arr, true
		}
		return nil, false
	default:
		return nil, false
	}
}

func normalizeItems(items []any) []BuilderElement {
	out := make([]BuilderElement, 0, len(items))
	for _, item := range items {
		switch node := item.(type) {
		case BuilderElement:
			out = append(out, normalizeElement(node))
		case map[string]any:
			out = append(out, normalizeNode(node))
		}
		// Non-object entries carry no renderable content and are dropped.
	}
	return out
}

func normalizeElement(el BuilderElement) BuilderElement {
	out := el.clone()
	if out.ID == "" {
		out.ID = util.NewID("el")
	}
	if out.Children == nil {
		out.Children = []BuilderElement{}
	}
	for i := range out.Children {
		out.Children[i] = normalizeElement(out.Children[i])
	}
	return out
}

func normalizeNode(node map[string]any) BuilderElement {
	el := BuilderElement{
		Children: []BuilderElement{},
	}
	if id, ok := node["id"].(string); ok {
		el.ID = id
	}
	if el.ID == "" {
		el.ID = util.NewID("el")
	}
	if t, ok := node["type"].(string); ok {
		el.Type = t
	}
	if c, ok := node["content"].(string); ok {
		el.Content = c
	}
	if props, ok := node["props"].(map[string]any); ok {
		el.Props = copyProps(props)
	}
	if children, ok := node["children"].([]any); ok {
		el.Children = normalizeItems(children)
	}
	return el
}
