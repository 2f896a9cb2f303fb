// Package element defines the builder's document tree and the pure
// operations that manipulate it. Nothing in this package does I/O; every
// operation is copy-on-write and leaves its input untouched.
package element

import (
	"siteforge/api/internal/util"
)

// BuilderElement is one node of a page's content tree. Type is an open set
// (text, image, section, hero, navbar, product grids, animation variants and
// so on) — unknown types round-trip untouched rather than being rejected.
type BuilderElement struct {
	ID       string           `json:"id"`
	Type     string           `json:"type"`
	Content  string           `json:"content"`
	Props    map[string]any   `json:"props,omitempty"`
	Children []BuilderElement `json:"children,omitempty"`
}

// Patch describes a partial update. Nil fields are left alone. Props is a
// whole-object replacement: callers that want to keep existing keys must
// spread them into the new map themselves.
type Patch struct {
	Type     *string
	Content  *string
	Props    map[string]any
	Children []BuilderElement
}

// Find does a depth-first search over the tree, including nested children.
func Find(tree []BuilderElement, id string) (BuilderElement, bool) {
	for i := range tree {
		if tree[i].ID == id {
			return tree[i].clone(), true
		}
		if found, ok := Find(tree[i].Children, id); ok {
			return found, true
		}
	}
	return BuilderElement{}, false
}

// Insert appends el to the root sequence. Selection follow-up is the
// session's job, not this layer's.
func Insert(tree []BuilderElement, el BuilderElement) []BuilderElement {
	out := make([]BuilderElement, 0, len(tree)+1)
	for i := range tree {
		out = append(out, tree[i].clone())
	}
	return append(out, el.clone())
}

// Update shallow-merges patch into the element with the given id, searching
// nested children. Sibling order is never disturbed. Unknown ids are a
// caller error and leave the tree unchanged.
func Update(tree []BuilderElement, id string, patch Patch) []BuilderElement {
	out := make([]BuilderElement, len(tree))
	for i := range tree {
		out[i] = tree[i].clone()
		if out[i].ID == id {
			applyPatch(&out[i], patch)
			continue
		}
		out[i].Children = Update(out[i].Children, id, patch)
	}
	return out
}

// Remove drops the first element with the given id from the root level only.
// It deliberately does not descend into children: nested removal is
// parent-mediated (edit the parent's Children and write it back with
// Update). Removing an unknown id leaves the tree unchanged.
func Remove(tree []BuilderElement, id string) []BuilderElement {
	out := make([]BuilderElement, 0, len(tree))
	removed := false
	for i := range tree {
		if !removed && tree[i].ID == id {
			removed = true
			continue
		}
		out = append(out, tree[i].clone())
	}
	return out
}

// Move removes the item at src and reinserts it at dst. It operates on
// whatever flat sequence it is given (root elements or a children slice).
// Out-of-range indices are a precondition violation; the input is returned
// unchanged.
func Move(seq []BuilderElement, src, dst int) []BuilderElement {
	if src < 0 || src >= len(seq) || dst < 0 || dst >= len(seq) {
		return seq
	}
	out := make([]BuilderElement, 0, len(seq))
	for i := range seq {
		out = append(out, seq[i].clone())
	}
	moved := out[src]
	out = append(out[:src], out[src+1:]...)
	rest := make([]BuilderElement, 0, len(out)+1)
	rest = append(rest, out[:dst]...)
	rest = append(rest, moved)
	rest = append(rest, out[dst:]...)
	return rest
}

// Duplicate deep-copies the element with the given id, gives the copy a
// fresh id, and inserts it immediately after the original in its sibling
// sequence. Descendant ids are NOT regenerated — the copy's children keep
// their original ids, so a nested duplicate can introduce duplicate ids
// deeper in the tree. Callers that need full re-identification use
// CloneWithNewIDs. Returns the new tree and the copy's id ("" if id was not
// found).
func Duplicate(tree []BuilderElement, id string) ([]BuilderElement, string) {
	out := make([]BuilderElement, 0, len(tree)+1)
	newID := ""
	for i := range tree {
		el := tree[i].clone()
		if newID == "" {
			el.Children, newID = Duplicate(el.Children, id)
		}
		out = append(out, el)
		if newID == "" && el.ID == id {
			dup := el.clone()
			dup.ID = util.NewID("el")
			newID = dup.ID
			out = append(out, dup)
		}
	}
	return out, newID
}

// CloneWithNewIDs deep-copies the whole subtree, assigning fresh ids to
// every node including nested children.
func CloneWithNewIDs(el BuilderElement) BuilderElement {
	out := el.clone()
	out.ID = util.NewID("el")
	for i := range out.Children {
		out.Children[i] = CloneWithNewIDs(out.Children[i])
	}
	return out
}

// CollectIDs returns every id in the tree in depth-first order, including
// duplicates if any exist.
func CollectIDs(tree []BuilderElement) []string {
	var ids []string
	for i := range tree {
		ids = append(ids, tree[i].ID)
		ids = append(ids, CollectIDs(tree[i].Children)...)
	}
	return ids
}

// DuplicateIDs returns the set of ids that appear more than once anywhere
// in the tree.
func DuplicateIDs(tree []BuilderElement) []string {
	seen := map[string]int{}
	for _, id := range CollectIDs(tree) {
		seen[id]++
	}
	var dups []string
	for _, id := range CollectIDs(tree) {
		if seen[id] > 1 {
			dups = append(dups, id)
			seen[id] = 0
		}
	}
	return dups
}

func applyPatch(el *BuilderElement, patch Patch) {
	if patch.Type != nil {
		el.Type = *patch.Type
	}
	if patch.Content != nil {
		el.Content = *patch.Content
	}
	if patch.Props != nil {
		el.Props = copyProps(patch.Props)
	}
	if patch.Children != nil {
		children := make([]BuilderElement, len(patch.Children))
		for i := range patch.Children {
			children[i] = patch.Children[i].clone()
		}
		el.Children = children
	}
}

func (el BuilderElement) clone() BuilderElement {
	out := el
	out.Props = copyProps(el.Props)
	if el.Children != nil {
		out.Children = make([]BuilderElement, len(el.Children))
		for i := range el.Children {
			out.Children[i] = el.Children[i].clone()
		}
	}
	return out
}

// Clone deep-copies the element, ids included.
func (el BuilderElement) Clone() BuilderElement {
	return el.clone()
}

func copyProps(props map[string]any) map[string]any {
	if props == nil {
		return nil
	}
	out := make(map[string]any, len(props))
	for k, v := range props {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			out[k] = copyValue(inner)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = copyValue(inner)
		}
		return out
	default:
		return v
	}
}
