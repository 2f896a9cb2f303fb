// Package publish turns a website's builder document into static HTML pages
// and a preview screenshot.
package publish

import (
	"fmt"

	"siteforge/api/internal/site"
)

// PageOutput is one rendered page of a published site.
type PageOutput struct {
	PageID   string
	Slug     string
	Filename string
	HTML     string
}

// RenderSite renders every page of a website to a complete HTML document.
// The home page becomes index.html; other pages get <slug>.html.
func RenderSite(siteName string, settings site.Settings) ([]PageOutput, error) {
	if len(settings.Pages) == 0 {
		return nil, fmt.Errorf("render site: no pages")
	}

	nav := make([]NavLink, 0, len(settings.Pages))
	for _, p := range settings.Pages {
		nav = append(nav, NavLink{Title: p.Title, Href: pageHref(p)})
	}

	outputs := make([]PageOutput, 0, len(settings.Pages))
	for _, p := range settings.Pages {
		elements := settings.PagesContent[p.ID]
		fragment := RenderElements(elements)

		data := PageData{
			SiteName:    siteName,
			Title:       p.Title,
			Nav:         nav,
			ContentHTML: asHTML(fragment),
		}
		if ps, ok := settings.PagesSettings[p.ID]; ok {
			if ps.Title != "" {
				data.Title = ps.Title
			}
			data.Description = ps.Description
			data.Keywords = ps.Keywords
			data.NoIndex = ps.Indexable != nil && !*ps.Indexable
		}

		html, err := RenderPageHTML(data)
		if err != nil {
			return nil, fmt.Errorf("render page %s: %w", p.ID, err)
		}

		outputs = append(outputs, PageOutput{
			PageID:   p.ID,
			Slug:     p.Slug,
			Filename: pageFilename(p),
			HTML:     html,
		})
	}
	return outputs, nil
}

// HomePageHTML renders just the home page, used for preview screenshots.
func HomePageHTML(siteName string, settings site.Settings) (string, error) {
	home, ok := settings.HomePage()
	if !ok {
		return "", fmt.Errorf("render home page: no pages")
	}
	fragment := RenderElements(settings.PagesContent[home.ID])
	return RenderPageHTML(PageData{
		SiteName:    siteName,
		Title:       home.Title,
		ContentHTML: asHTML(fragment),
	})
}

func pageHref(p site.Page) string {
	if p.IsHomePage {
		return "index.html"
	}
	return pageFilename(p)
}

func pageFilename(p site.Page) string {
	if p.IsHomePage {
		return "index.html"
	}
	slug := p.Slug
	if slug == "" {
		slug = sanitizeFilename(p.Title)
	}
	return slug + ".html"
}
