// Package site owns the translation between the builder's in-memory state
// and the persisted website document: the persistence gateway and the
// first-visit template application workflow.
package site

import (
	"encoding/json"
	"fmt"

	"siteforge/api/internal/element"
)

// Page is one entry of a website's ordered page list. Insertion order is
// navigation order; at most one page carries IsHomePage.
type Page struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Slug       string `json:"slug"`
	IsHomePage bool   `json:"isHomePage,omitempty"`
}

// PageSettings is per-page SEO/meta configuration, independent of content.
type PageSettings struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Keywords    string `json:"keywords,omitempty"`
	Indexable   *bool  `json:"indexable,omitempty"`
}

// Settings is the website's settings blob. Pages/PagesContent/PagesSettings
// hold the authoritative multi-page state; LegacyPageSettings is the old
// single-page field kept for backward compatibility. Unknown keys written by
// other consumers are preserved through Extra so a save never drops them.
type Settings struct {
	Pages              []Page                               `json:"pages"`
	PagesContent       map[string][]element.BuilderElement  `json:"pagesContent"`
	PagesSettings      map[string]PageSettings              `json:"pagesSettings"`
	LegacyPageSettings *PageSettings                        `json:"pageSettings,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

var knownSettingsKeys = map[string]struct{}{
	"pages":         {},
	"pagesContent":  {},
	"pagesSettings": {},
	"pageSettings":  {},
}

// MarshalJSON emits the typed fields plus any preserved free-form keys.
func (s Settings) MarshalJSON() ([]byte, error) {
	out := map[string]json.RawMessage{}
	for key, raw := range s.Extra {
		if _, known := knownSettingsKeys[key]; known {
			continue
		}
		out[key] = raw
	}

	put := func(key string, value any) error {
		raw, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("marshal settings key %s: %w", key, err)
		}
		out[key] = raw
		return nil
	}
	if err := put("pages", s.pagesOrEmpty()); err != nil {
		return nil, err
	}
	if err := put("pagesContent", s.pagesContentOrEmpty()); err != nil {
		return nil, err
	}
	if err := put("pagesSettings", s.pagesSettingsOrEmpty()); err != nil {
		return nil, err
	}
	if s.LegacyPageSettings != nil {
		if err := put("pageSettings", s.LegacyPageSettings); err != nil {
			return nil, err
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON fills the typed fields and stashes every other key in Extra.
func (s *Settings) UnmarshalJSON(data []byte) error {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return err
	}

	*s = Settings{Extra: map[string]json.RawMessage{}}
	for key, raw := range keys {
		switch key {
		case "pages":
			// Tolerate a non-array value; the gateway re-initializes it.
			_ = json.Unmarshal(raw, &s.Pages)
		case "pagesContent":
			_ = json.Unmarshal(raw, &s.PagesContent)
		case "pagesSettings":
			_ = json.Unmarshal(raw, &s.PagesSettings)
		case "pageSettings":
			_ = json.Unmarshal(raw, &s.LegacyPageSettings)
		default:
			s.Extra[key] = raw
		}
	}
	return nil
}

func (s Settings) pagesOrEmpty() []Page {
	if s.Pages == nil {
		return []Page{}
	}
	return s.Pages
}

func (s Settings) pagesContentOrEmpty() map[string][]element.BuilderElement {
	if s.PagesContent == nil {
		return map[string][]element.BuilderElement{}
	}
	return s.PagesContent
}

func (s Settings) pagesSettingsOrEmpty() map[string]PageSettings {
	if s.PagesSettings == nil {
		return map[string]PageSettings{}
	}
	return s.PagesSettings
}

// HomePage returns the flagged home page, falling back to the first page.
func (s Settings) HomePage() (Page, bool) {
	for _, p := range s.Pages {
		if p.IsHomePage {
			return p, true
		}
	}
	if len(s.Pages) > 0 {
		return s.Pages[0], true
	}
	return Page{}, false
}

// WebsiteData is the gateway's normalized view of a persisted website.
// Content mirrors the legacy single-page field; multi-page state under
// Settings is authoritative.
type WebsiteData struct {
	ID        string
	Name      string
	Content   []element.BuilderElement
	Settings  Settings
	Published bool
}
