package site

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"siteforge/api/internal/element"
	"siteforge/api/internal/store"
)

type fakeWebsiteStore struct {
	getWebsiteFn            func(context.Context, string) (store.Website, error)
	updateWebsiteDocumentFn func(context.Context, string, string, []byte, []byte) error
	setWebsitePublishedFn   func(context.Context, string, bool) error
}

func (f *fakeWebsiteStore) GetWebsite(ctx context.Context, id string) (store.Website, error) {
	if f.getWebsiteFn != nil {
		return f.getWebsiteFn(ctx, id)
	}
	return store.Website{}, store.ErrNotFound
}

func (f *fakeWebsiteStore) UpdateWebsiteDocument(ctx context.Context, id, name string, content, settings []byte) error {
	if f.updateWebsiteDocumentFn != nil {
		return f.updateWebsiteDocumentFn(ctx, id, name, content, settings)
	}
	return nil
}

func (f *fakeWebsiteStore) SetWebsitePublished(ctx context.Context, id string, published bool) error {
	if f.setWebsitePublishedFn != nil {
		return f.setWebsitePublishedFn(ctx, id, published)
	}
	return nil
}

func TestFetchWebsiteSynthesizesHomePage(t *testing.T) {
	var savedSettings []byte
	fake := &fakeWebsiteStore{
		getWebsiteFn: func(ctx context.Context, id string) (store.Website, error) {
			return store.Website{ID: id, Name: "My Shop", Content: []byte(`[]`), Settings: []byte(`{}`)}, nil
		},
		updateWebsiteDocumentFn: func(ctx context.Context, id, name string, content, settings []byte) error {
			savedSettings = settings
			return nil
		},
	}

	data := NewGateway(fake).FetchWebsite(context.Background(), "site1")
	if data == nil {
		t.Fatal("expected website data")
	}
	if len(data.Settings.Pages) != 1 {
		t.Fatalf("expected 1 synthesized page, got %d", len(data.Settings.Pages))
	}
	home := data.Settings.Pages[0]
	if !home.IsHomePage || home.Title != "Home" {
		t.Errorf("unexpected home page: %+v", home)
	}
	if data.Settings.PagesContent == nil || data.Settings.PagesSettings == nil {
		t.Fatal("maps must never come back nil")
	}

	// The migration must have been written back immediately.
	if savedSettings == nil {
		t.Fatal("migration was not persisted")
	}
	var persisted Settings
	if err := json.Unmarshal(savedSettings, &persisted); err != nil {
		t.Fatalf("decode persisted settings: %v", err)
	}
	if len(persisted.Pages) != 1 || !persisted.Pages[0].IsHomePage {
		t.Errorf("persisted settings missing home page: %+v", persisted.Pages)
	}
}

func TestFetchWebsiteMigratesLegacyContent(t *testing.T) {
	fake := &fakeWebsiteStore{
		getWebsiteFn: func(ctx context.Context, id string) (store.Website, error) {
			return store.Website{
				ID:       id,
				Name:     "Legacy",
				Content:  []byte(`[{"id":"old1","type":"hero","content":"hi"}]`),
				Settings: []byte(`{}`),
			}, nil
		},
	}

	data := NewGateway(fake).FetchWebsite(context.Background(), "site1")
	if data == nil {
		t.Fatal("expected website data")
	}
	home := data.Settings.Pages[0]
	bucket := data.Settings.PagesContent[home.ID]
	if len(bucket) != 1 || bucket[0].ID != "old1" {
		t.Fatalf("legacy content not migrated into home bucket: %+v", bucket)
	}
}

func TestFetchWebsiteSkipsMigrationWhenPagesExist(t *testing.T) {
	writes := 0
	fake := &fakeWebsiteStore{
		getWebsiteFn: func(ctx context.Context, id string) (store.Website, error) {
			return store.Website{
				ID:       id,
				Name:     "Existing",
				Content:  []byte(`[]`),
				Settings: []byte(`{"pages":[{"id":"p1","title":"Home","slug":"home","isHomePage":true}]}`),
			}, nil
		},
		updateWebsiteDocumentFn: func(ctx context.Context, id, name string, content, settings []byte) error {
			writes++
			return nil
		},
	}

	data := NewGateway(fake).FetchWebsite(context.Background(), "site1")
	if data == nil {
		t.Fatal("expected website data")
	}
	if writes != 0 {
		t.Errorf("no migration write expected, got %d", writes)
	}
	// Content bucket for the existing page still gets defaulted.
	if _, ok := data.Settings.PagesContent["p1"]; !ok {
		t.Error("missing content bucket must default to empty")
	}
}

func TestFetchWebsiteParsesStringSettings(t *testing.T) {
	blob := `"{\"pages\":[{\"id\":\"p1\",\"title\":\"Home\",\"slug\":\"home\",\"isHomePage\":true}]}"`
	fake := &fakeWebsiteStore{
		getWebsiteFn: func(ctx context.Context, id string) (store.Website, error) {
			return store.Website{ID: id, Name: "Str", Content: []byte(`[]`), Settings: []byte(blob)}, nil
		},
	}

	data := NewGateway(fake).FetchWebsite(context.Background(), "site1")
	if data == nil {
		t.Fatal("expected website data")
	}
	if len(data.Settings.Pages) != 1 || data.Settings.Pages[0].ID != "p1" {
		t.Fatalf("string-encoded settings not parsed: %+v", data.Settings.Pages)
	}
}

func TestFetchWebsiteBackendFailureReturnsNil(t *testing.T) {
	fake := &fakeWebsiteStore{
		getWebsiteFn: func(ctx context.Context, id string) (store.Website, error) {
			return store.Website{}, errors.New("connection refused")
		},
	}
	if data := NewGateway(fake).FetchWebsite(context.Background(), "site1"); data != nil {
		t.Errorf("backend failure must read as not-found, got %+v", data)
	}
}

func TestSaveWebsiteOverwritesSettingsWholesale(t *testing.T) {
	var saved []byte
	fake := &fakeWebsiteStore{
		updateWebsiteDocumentFn: func(ctx context.Context, id, name string, content, settings []byte) error {
			saved = settings
			return nil
		},
	}

	full := &Settings{
		Pages:        []Page{{ID: "p1", Title: "Home", Slug: "home", IsHomePage: true}},
		PagesContent: map[string][]element.BuilderElement{"p1": {{ID: "a", Type: "text"}}},
		Extra:        map[string]json.RawMessage{"theme": json.RawMessage(`"dark"`)},
	}
	ok := NewGateway(fake).SaveWebsite(context.Background(), "site1", "Shop",
		[]element.BuilderElement{{ID: "a", Type: "text"}}, PageSettings{Title: "Shop"}, full)
	if !ok {
		t.Fatal("save must succeed")
	}

	var persisted map[string]json.RawMessage
	if err := json.Unmarshal(saved, &persisted); err != nil {
		t.Fatalf("decode saved settings: %v", err)
	}
	for _, key := range []string{"pages", "pagesContent", "pagesSettings", "pageSettings", "theme"} {
		if _, ok := persisted[key]; !ok {
			t.Errorf("saved settings missing %s", key)
		}
	}
}

func TestSaveWebsiteReturnsFalseOnBackendError(t *testing.T) {
	fake := &fakeWebsiteStore{
		updateWebsiteDocumentFn: func(ctx context.Context, id, name string, content, settings []byte) error {
			return errors.New("write failed")
		},
	}
	ok := NewGateway(fake).SaveWebsite(context.Background(), "site1", "Shop", nil, PageSettings{}, nil)
	if ok {
		t.Error("backend failure must surface as false")
	}
}

func TestPublishWebsite(t *testing.T) {
	var flipped *bool
	fake := &fakeWebsiteStore{
		setWebsitePublishedFn: func(ctx context.Context, id string, published bool) error {
			flipped = &published
			return nil
		},
	}
	if ok := NewGateway(fake).PublishWebsite(context.Background(), "site1"); !ok {
		t.Fatal("publish must succeed")
	}
	if flipped == nil || !*flipped {
		t.Error("published flag not set")
	}
}

func TestSettingsRoundTripPreservesUnknownKeys(t *testing.T) {
	raw := []byte(`{"pages":[],"customDomain":"shop.example.com","pagesContent":{}}`)

	var settings Settings
	if err := json.Unmarshal(raw, &settings); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	out, err := json.Marshal(settings)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var keys map[string]json.RawMessage
	if err := json.Unmarshal(out, &keys); err != nil {
		t.Fatal(err)
	}
	if string(keys["customDomain"]) != `"shop.example.com"` {
		t.Errorf("free-form key lost: %s", keys["customDomain"])
	}
}
