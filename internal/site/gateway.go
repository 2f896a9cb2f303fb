package site

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"

	"siteforge/api/internal/element"
	"siteforge/api/internal/store"
	"siteforge/api/internal/util"
)

// WebsiteStore is the slice of the data store the gateway needs.
type WebsiteStore interface {
	GetWebsite(ctx context.Context, websiteID string) (store.Website, error)
	UpdateWebsiteDocument(ctx context.Context, websiteID, name string, content, settings []byte) error
	SetWebsitePublished(ctx context.Context, websiteID string, published bool) error
}

// Gateway round-trips website documents between the builder's in-memory
// shape and the persisted record. Backend errors never escape it: loads
// come back nil and writes come back as a boolean, per the error policy of
// this layer.
type Gateway struct {
	store WebsiteStore
}

func NewGateway(store WebsiteStore) *Gateway {
	return &Gateway{store: store}
}

// FetchWebsite loads and normalizes a website document. A missing record or
// a backend failure both return nil ("treat as not found").
//
// First load of a pre-multi-page record self-heals: when settings carry no
// pages, exactly one home page is synthesized, any legacy top-level content
// migrates into its bucket, and the migration is persisted immediately so
// subsequent loads skip it.
func (g *Gateway) FetchWebsite(ctx context.Context, websiteID string) *WebsiteData {
	record, err := g.store.GetWebsite(ctx, websiteID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Printf("site: fetch website %s: %v", websiteID, err)
		}
		return nil
	}

	settings := parseSettings(record.Settings)
	legacy := parseLegacyContent(record.Content)

	migrated := false
	if len(settings.Pages) == 0 {
		home := Page{
			ID:         util.NewID("page"),
			Title:      "Home",
			Slug:       "home",
			IsHomePage: true,
		}
		settings.Pages = []Page{home}
		settings.PagesContent[home.ID] = legacy
		settings.PagesSettings[home.ID] = PageSettings{Title: record.Name}
		migrated = true
	}

	// Downstream code indexes these maps without nil checks.
	if settings.PagesContent == nil {
		settings.PagesContent = map[string][]element.BuilderElement{}
	}
	if settings.PagesSettings == nil {
		settings.PagesSettings = map[string]PageSettings{}
	}
	for _, page := range settings.Pages {
		if _, ok := settings.PagesContent[page.ID]; !ok {
			settings.PagesContent[page.ID] = []element.BuilderElement{}
		}
	}

	if migrated {
		if ok := g.writeDocument(ctx, record.ID, record.Name, legacy, settings); !ok {
			// The in-memory view is still coherent; the migration retries
			// on the next load.
			log.Printf("site: persisting page migration for %s failed", websiteID)
		}
	}

	return &WebsiteData{
		ID:        record.ID,
		Name:      record.Name,
		Content:   legacy,
		Settings:  settings,
		Published: record.Published,
	}
}

// SaveWebsite is a full-replace write: name, the legacy content mirror of
// the current page's elements, and the complete settings blob built from
// pageSettings plus additional. Settings are NOT merged with what is
// stored — callers pass the entire desired settings, untouched pages and
// pagesContent included, or they lose them. Returns false on any backend
// failure; it never raises.
func (g *Gateway) SaveWebsite(ctx context.Context, websiteID, name string, elements []element.BuilderElement, pageSettings PageSettings, additional *Settings) bool {
	settings := Settings{}
	if additional != nil {
		settings = *additional
	}
	settings.LegacyPageSettings = &pageSettings
	return g.writeDocument(ctx, websiteID, name, elements, settings)
}

// PublishWebsite flips the published flag. No content validation happens
// here: publishing an empty or malformed tree is allowed, warning the user
// is the front-end's job.
func (g *Gateway) PublishWebsite(ctx context.Context, websiteID string) bool {
	if err := g.store.SetWebsitePublished(ctx, websiteID, true); err != nil {
		log.Printf("site: publish website %s: %v", websiteID, err)
		return false
	}
	return true
}

// UnpublishWebsite clears the published flag.
func (g *Gateway) UnpublishWebsite(ctx context.Context, websiteID string) bool {
	if err := g.store.SetWebsitePublished(ctx, websiteID, false); err != nil {
		log.Printf("site: unpublish website %s: %v", websiteID, err)
		return false
	}
	return true
}

func (g *Gateway) writeDocument(ctx context.Context, websiteID, name string, elements []element.BuilderElement, settings Settings) bool {
	if elements == nil {
		elements = []element.BuilderElement{}
	}
	content, err := json.Marshal(elements)
	if err != nil {
		log.Printf("site: marshal content for %s: %v", websiteID, err)
		return false
	}
	blob, err := json.Marshal(settings)
	if err != nil {
		log.Printf("site: marshal settings for %s: %v", websiteID, err)
		return false
	}
	if err := g.store.UpdateWebsiteDocument(ctx, websiteID, name, content, blob); err != nil {
		log.Printf("site: save website %s: %v", websiteID, err)
		return false
	}
	return true
}

// parseSettings tolerates the settings column being a JSON object, a JSON
// string containing an object (double-encoded by older clients), or empty.
func parseSettings(raw []byte) Settings {
	settings := Settings{
		PagesContent:  map[string][]element.BuilderElement{},
		PagesSettings: map[string]PageSettings{},
		Extra:         map[string]json.RawMessage{},
	}
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return settings
	}

	payload := []byte(trimmed)
	if trimmed[0] == '"' {
		var inner string
		if err := json.Unmarshal(payload, &inner); err != nil {
			log.Printf("site: decode string settings: %v", err)
			return settings
		}
		payload = []byte(inner)
	}

	var parsed Settings
	if err := json.Unmarshal(payload, &parsed); err != nil {
		log.Printf("site: decode settings: %v", err)
		return settings
	}
	if parsed.PagesContent == nil {
		parsed.PagesContent = map[string][]element.BuilderElement{}
	}
	if parsed.PagesSettings == nil {
		parsed.PagesSettings = map[string]PageSettings{}
	}
	if parsed.Extra == nil {
		parsed.Extra = map[string]json.RawMessage{}
	}
	return parsed
}

// parseLegacyContent normalizes the legacy content column; anything
// unreadable degrades to an empty tree rather than failing the load.
func parseLegacyContent(raw []byte) []element.BuilderElement {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return []element.BuilderElement{}
	}
	elements, err := element.NormalizeJSON([]byte(trimmed))
	if err != nil {
		return []element.BuilderElement{}
	}
	return elements
}
