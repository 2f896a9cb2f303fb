// Package builder holds the in-memory editing session for one open website:
// the live element tree, selection, breakpoint state and the save
// coordinator. One Session is the sole owner of its tree; the persistence
// gateway only sees it at explicit load/save boundaries.
package builder

import (
	"fmt"
	"sync"
	"time"

	"siteforge/api/internal/element"
)

// Session is the builder's editing state machine over one page's element
// tree plus session metadata. All methods are safe for concurrent use;
// mutations are atomic with respect to each other.
type Session struct {
	mu sync.Mutex

	elements      []element.BuilderElement
	pages         map[string][]element.BuilderElement
	currentPageID string

	selectedID        string
	currentBreakpoint element.Breakpoint
	previewBreakpoint element.Breakpoint

	unsaved   bool
	lastSaved time.Time
}

// NewSession starts an empty session editing and previewing desktop.
func NewSession() *Session {
	return &Session{
		pages:             map[string][]element.BuilderElement{},
		currentBreakpoint: element.BreakpointDesktop,
		previewBreakpoint: element.BreakpointDesktop,
	}
}

// LoadElements replaces the entire tree and clears selection. Used on
// initial load and on page switch; it does not touch the dirty flag.
func (s *Session) LoadElements(tree []element.BuilderElement) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.elements = cloneTree(tree)
	s.selectedID = ""
}

// Elements returns a copy of the current tree. This is the pull accessor
// the persistence gateway serializes from; the session never calls the
// network itself.
func (s *Session) Elements() []element.BuilderElement {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneTree(s.elements)
}

// AddElement appends el to the root sequence, selects it and marks the
// session dirty.
func (s *Session) AddElement(el element.BuilderElement) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.elements = element.Insert(s.elements, el)
	s.selectedID = el.ID
	s.unsaved = true
}

// UpdateElement shallow-merges patch into the element with the given id.
func (s *Session) UpdateElement(id string, patch element.Patch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.elements = element.Update(s.elements, id, patch)
	s.unsaved = true
}

// RemoveElement drops a root-level element. If it was selected, selection
// falls back to none — the session never keeps a dangling selection.
func (s *Session) RemoveElement(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.elements = element.Remove(s.elements, id)
	if s.selectedID == id {
		s.selectedID = ""
	}
	s.unsaved = true
}

// MoveElement reorders the root sequence. Out-of-range indices no-op.
func (s *Session) MoveElement(src, dst int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.elements = element.Move(s.elements, src, dst)
	s.unsaved = true
}

// DuplicateElement copies the element with the given id and selects the
// copy. Returns the copy's id, or "" when id was not found.
func (s *Session) DuplicateElement(id string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	tree, newID := element.Duplicate(s.elements, id)
	if newID == "" {
		return ""
	}
	s.elements = tree
	s.selectedID = newID
	s.unsaved = true
	return newID
}

// SelectElement sets the selection. Selecting an id that does not exist in
// the tree clears selection instead of leaving a dangling reference.
func (s *Session) SelectElement(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id == "" {
		s.selectedID = ""
		return
	}
	if _, ok := element.Find(s.elements, id); ok {
		s.selectedID = id
		return
	}
	s.selectedID = ""
}

// SelectedElementID returns the current selection, "" when nothing is
// selected.
func (s *Session) SelectedElementID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectedID
}

// SetBreakpoint changes the breakpoint being edited. The edit and preview
// axes are independent: editing mobile while previewing desktop is legal.
func (s *Session) SetBreakpoint(bp element.Breakpoint) error {
	if !bp.Valid() {
		return fmt.Errorf("unknown breakpoint %q", bp)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentBreakpoint = bp
	return nil
}

// SetPreviewBreakpoint changes the breakpoint being previewed.
func (s *Session) SetPreviewBreakpoint(bp element.Breakpoint) error {
	if !bp.Valid() {
		return fmt.Errorf("unknown breakpoint %q", bp)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.previewBreakpoint = bp
	return nil
}

// Breakpoint returns the breakpoint being edited.
func (s *Session) Breakpoint() element.Breakpoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentBreakpoint
}

// PreviewBreakpoint returns the breakpoint being previewed.
func (s *Session) PreviewBreakpoint() element.Breakpoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.previewBreakpoint
}

// ResolvedProps computes the effective props of an element at the preview
// breakpoint.
func (s *Session) ResolvedProps(id string) (map[string]any, bool) {
	s.mu.Lock()
	bp := s.previewBreakpoint
	tree := s.elements
	s.mu.Unlock()

	el, ok := element.Find(tree, id)
	if !ok {
		return nil, false
	}
	return element.ResolveProps(el.Props, bp), true
}

// LoadPages seeds the multi-page map and switches to currentPageID.
func (s *Session) LoadPages(pages map[string][]element.BuilderElement, currentPageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tree, ok := pages[currentPageID]
	if !ok {
		return fmt.Errorf("unknown page %q", currentPageID)
	}
	s.pages = map[string][]element.BuilderElement{}
	for id, t := range pages {
		s.pages[id] = cloneTree(t)
	}
	s.currentPageID = currentPageID
	s.elements = cloneTree(tree)
	s.selectedID = ""
	return nil
}

// SwitchPage stashes the current tree under its page id and loads the
// target page's tree, clearing selection.
func (s *Session) SwitchPage(pageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tree, ok := s.pages[pageID]
	if !ok {
		return fmt.Errorf("unknown page %q", pageID)
	}
	if s.currentPageID != "" {
		s.pages[s.currentPageID] = s.elements
	}
	s.currentPageID = pageID
	s.elements = cloneTree(tree)
	s.selectedID = ""
	return nil
}

// CurrentPageID returns the page currently being edited, "" before any
// pages are loaded.
func (s *Session) CurrentPageID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentPageID
}

// PageElements returns a copy of every page's tree, the current page's
// in-progress edits included.
func (s *Session) PageElements() map[string][]element.BuilderElement {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[string][]element.BuilderElement{}
	for id, tree := range s.pages {
		out[id] = cloneTree(tree)
	}
	if s.currentPageID != "" {
		out[s.currentPageID] = cloneTree(s.elements)
	}
	return out
}

// UnsavedChanges reports whether any mutation happened since the last
// confirmed save.
func (s *Session) UnsavedChanges() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unsaved
}

// MarkSaved clears the dirty flag and records the save time. Only a
// confirmed successful save calls this.
func (s *Session) MarkSaved(at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unsaved = false
	s.lastSaved = at
}

// LastSaved returns the time of the last successful save, zero before one.
func (s *Session) LastSaved() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSaved
}

func cloneTree(tree []element.BuilderElement) []element.BuilderElement {
	out := make([]element.BuilderElement, len(tree))
	for i := range tree {
		out[i] = tree[i].Clone()
	}
	return out
}
