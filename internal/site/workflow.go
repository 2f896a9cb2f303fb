package site

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"siteforge/api/internal/builder"
	"siteforge/api/internal/element"
)

// WorkflowState is the template application lifecycle for one site.
type WorkflowState string

const (
	StateIdle     WorkflowState = "idle"
	StateOffering WorkflowState = "offering"
	StateApplying WorkflowState = "applying"
	StateApplied  WorkflowState = "applied"
)

// VisitedStore records that a user has been through the template chooser
// for a site, durably enough that the offer never reappears in later
// sessions.
type VisitedStore interface {
	IsVisited(ctx context.Context, userID, websiteID string) (bool, error)
	MarkVisited(ctx context.Context, userID, websiteID string) error
}

// TemplateWorkflow bootstraps a first-visit site: offer a template, apply
// the chosen payload (or a blank canvas), persist, and mark the site so the
// offer happens at most once. Failures return the workflow to offering —
// it never sticks in applying.
type TemplateWorkflow struct {
	mu      sync.Mutex
	state   WorkflowState
	gateway *Gateway
	session *builder.Session
	visited VisitedStore
	userID  string

	// applied backs the durable marker within this process, so a marker
	// write failure cannot re-trigger the offer mid-session.
	applied map[string]bool
}

func NewTemplateWorkflow(gateway *Gateway, session *builder.Session, visited VisitedStore, userID string) *TemplateWorkflow {
	return &TemplateWorkflow{
		state:   StateIdle,
		gateway: gateway,
		session: session,
		visited: visited,
		userID:  userID,
		applied: map[string]bool{},
	}
}

// State returns the current workflow state.
func (w *TemplateWorkflow) State() WorkflowState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// EvaluateOnLoad decides whether to offer the template chooser for a
// freshly loaded site. The offer fires only when the site loaded, its home
// page is empty, no visited marker exists, and nothing was applied this
// session.
func (w *TemplateWorkflow) EvaluateOnLoad(ctx context.Context, data *WebsiteData) WorkflowState {
	w.mu.Lock()
	defer w.mu.Unlock()

	if data == nil {
		w.state = StateIdle
		return w.state
	}
	if w.applied[data.ID] {
		w.state = StateApplied
		return w.state
	}
	if !siteEmpty(data) {
		w.state = StateIdle
		return w.state
	}
	visited, err := w.visited.IsVisited(ctx, w.userID, data.ID)
	if err != nil {
		// Can't tell; don't nag the user with an offer that might repeat.
		log.Printf("site: visited lookup for %s: %v", data.ID, err)
		w.state = StateIdle
		return w.state
	}
	if visited {
		w.state = StateIdle
		return w.state
	}
	w.state = StateOffering
	return w.state
}

// Apply normalizes the chosen template payload, replaces the session tree,
// persists and marks the site applied. It is legal from offering (the
// normal path) and from idle (explicit re-application).
func (w *TemplateWorkflow) Apply(ctx context.Context, data *WebsiteData, payload any) error {
	elements, err := element.Normalize(payload)
	if err != nil {
		return err
	}
	return w.apply(ctx, data, elements)
}

// Skip applies a blank canvas instead of a template.
func (w *TemplateWorkflow) Skip(ctx context.Context, data *WebsiteData) error {
	return w.apply(ctx, data, []element.BuilderElement{})
}

func (w *TemplateWorkflow) apply(ctx context.Context, data *WebsiteData, elements []element.BuilderElement) error {
	w.mu.Lock()
	if w.state == StateApplying {
		w.mu.Unlock()
		return fmt.Errorf("template application already in progress")
	}
	w.state = StateApplying
	w.mu.Unlock()

	home, ok := data.Settings.HomePage()
	if !ok {
		w.fail()
		return fmt.Errorf("website %s has no pages", data.ID)
	}

	w.session.LoadElements(elements)
	w.session.MarkSaved(time.Time{}) // fresh template, nothing dirty yet

	settings := data.Settings
	settings.PagesContent[home.ID] = elements
	pageSettings := settings.PagesSettings[home.ID]

	if ok := w.gateway.SaveWebsite(ctx, data.ID, data.Name, elements, pageSettings, &settings); !ok {
		w.fail()
		return fmt.Errorf("saving applied template for website %s failed", data.ID)
	}

	data.Settings = settings
	data.Content = elements

	if err := w.visited.MarkVisited(ctx, w.userID, data.ID); err != nil {
		// The in-memory applied set still suppresses the offer this
		// session; the durable marker heals on a future successful apply.
		log.Printf("site: mark visited for %s: %v", data.ID, err)
	}

	w.mu.Lock()
	w.applied[data.ID] = true
	w.state = StateApplied
	w.mu.Unlock()
	return nil
}

// fail returns the workflow to offering so the user can retry.
func (w *TemplateWorkflow) fail() {
	w.mu.Lock()
	w.state = StateOffering
	w.mu.Unlock()
}

func siteEmpty(data *WebsiteData) bool {
	if len(data.Content) > 0 {
		return false
	}
	for _, tree := range data.Settings.PagesContent {
		if len(tree) > 0 {
			return false
		}
	}
	return true
}
