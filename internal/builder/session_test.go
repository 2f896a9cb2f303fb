package builder

import (
	"testing"
	"time"

	"siteforge/api/internal/element"
)

func seededSession() *Session {
	s := NewSession()
	s.LoadElements([]element.BuilderElement{
		{ID: "A", Type: "section", Children: []element.BuilderElement{
			{ID: "A1", Type: "text", Content: "nested"},
		}},
		{ID: "B", Type: "text", Content: "hi"},
	})
	return s
}

func TestLoadElementsClearsSelection(t *testing.T) {
	s := seededSession()
	s.SelectElement("B")
	if s.SelectedElementID() != "B" {
		t.Fatal("expected B selected")
	}

	s.LoadElements([]element.BuilderElement{{ID: "X", Type: "hero"}})
	if s.SelectedElementID() != "" {
		t.Errorf("selection must reset on load, got %q", s.SelectedElementID())
	}
}

func TestRemoveClearsSelection(t *testing.T) {
	s := seededSession()
	s.SelectElement("B")
	s.RemoveElement("B")

	if s.SelectedElementID() != "" {
		t.Errorf("removing the selected element must clear selection, got %q", s.SelectedElementID())
	}
	if _, ok := element.Find(s.Elements(), "B"); ok {
		t.Error("B should be gone")
	}
}

func TestRemoveOtherKeepsSelection(t *testing.T) {
	s := seededSession()
	s.SelectElement("A")
	s.RemoveElement("B")

	if s.SelectedElementID() != "A" {
		t.Errorf("selection of surviving element must hold, got %q", s.SelectedElementID())
	}
}

func TestSelectUnknownIDClears(t *testing.T) {
	s := seededSession()
	s.SelectElement("A")
	s.SelectElement("nope")

	if s.SelectedElementID() != "" {
		t.Errorf("selecting an unknown id must clear, got %q", s.SelectedElementID())
	}
}

func TestAddElementSelectsAndDirties(t *testing.T) {
	s := seededSession()
	if s.UnsavedChanges() {
		t.Fatal("fresh load must not be dirty")
	}

	s.AddElement(element.BuilderElement{ID: "C", Type: "button"})
	if s.SelectedElementID() != "C" {
		t.Errorf("insert must select the new element, got %q", s.SelectedElementID())
	}
	if !s.UnsavedChanges() {
		t.Error("mutation must set the dirty flag")
	}
}

func TestDuplicateSelectsCopy(t *testing.T) {
	s := seededSession()
	newID := s.DuplicateElement("B")
	if newID == "" || newID == "B" {
		t.Fatalf("expected fresh id, got %q", newID)
	}
	if s.SelectedElementID() != newID {
		t.Errorf("duplicate must select the copy, got %q", s.SelectedElementID())
	}

	if got := s.DuplicateElement("missing"); got != "" {
		t.Errorf("duplicating an unknown id must return empty, got %q", got)
	}
}

func TestMarkSavedClearsDirty(t *testing.T) {
	s := seededSession()
	s.AddElement(element.BuilderElement{ID: "C", Type: "text"})

	at := time.Now()
	s.MarkSaved(at)
	if s.UnsavedChanges() {
		t.Error("MarkSaved must clear the dirty flag")
	}
	if !s.LastSaved().Equal(at) {
		t.Errorf("LastSaved = %v, want %v", s.LastSaved(), at)
	}
}

func TestBreakpointAxesAreIndependent(t *testing.T) {
	s := seededSession()
	if err := s.SetBreakpoint(element.BreakpointMobile); err != nil {
		t.Fatal(err)
	}
	if err := s.SetPreviewBreakpoint(element.BreakpointDesktop); err != nil {
		t.Fatal(err)
	}

	if s.Breakpoint() != element.BreakpointMobile {
		t.Errorf("edit breakpoint = %s, want mobile", s.Breakpoint())
	}
	if s.PreviewBreakpoint() != element.BreakpointDesktop {
		t.Errorf("preview breakpoint = %s, want desktop", s.PreviewBreakpoint())
	}

	if err := s.SetBreakpoint("ultrawide"); err == nil {
		t.Error("unknown breakpoint must be rejected")
	}
}

func TestResolvedPropsUsesPreviewBreakpoint(t *testing.T) {
	s := NewSession()
	s.LoadElements([]element.BuilderElement{{
		ID:   "X",
		Type: "text",
		Props: map[string]any{
			"color": "red",
			"breakpoints": map[string]any{
				"mobile": map[string]any{"color": "blue"},
			},
		},
	}})

	if err := s.SetPreviewBreakpoint(element.BreakpointMobile); err != nil {
		t.Fatal(err)
	}
	props, ok := s.ResolvedProps("X")
	if !ok {
		t.Fatal("expected to resolve props for X")
	}
	if props["color"] != "blue" {
		t.Errorf("color = %v, want blue", props["color"])
	}
}

func TestPageSwitchRoundTrip(t *testing.T) {
	s := NewSession()
	err := s.LoadPages(map[string][]element.BuilderElement{
		"home":  {{ID: "H", Type: "hero"}},
		"about": {{ID: "T", Type: "text"}},
	}, "home")
	if err != nil {
		t.Fatal(err)
	}

	s.AddElement(element.BuilderElement{ID: "H2", Type: "text"})
	s.SelectElement("H2")

	if err := s.SwitchPage("about"); err != nil {
		t.Fatal(err)
	}
	if s.SelectedElementID() != "" {
		t.Error("page switch must clear selection")
	}
	if len(s.Elements()) != 1 || s.Elements()[0].ID != "T" {
		t.Fatalf("expected about page tree, got %v", element.CollectIDs(s.Elements()))
	}

	// Edits on home survived the stash.
	if err := s.SwitchPage("home"); err != nil {
		t.Fatal(err)
	}
	if len(s.Elements()) != 2 {
		t.Fatalf("expected home edits preserved, got %v", element.CollectIDs(s.Elements()))
	}

	if err := s.SwitchPage("missing"); err == nil {
		t.Error("unknown page must error")
	}
}

func TestPageElementsIncludesCurrentEdits(t *testing.T) {
	s := NewSession()
	if err := s.LoadPages(map[string][]element.BuilderElement{"home": {}}, "home"); err != nil {
		t.Fatal(err)
	}
	s.AddElement(element.BuilderElement{ID: "N", Type: "navbar"})

	pages := s.PageElements()
	if len(pages["home"]) != 1 || pages["home"][0].ID != "N" {
		t.Fatalf("expected in-progress edits in snapshot, got %v", pages)
	}
}
