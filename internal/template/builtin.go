// Package template ships the builtin starter templates offered to users on
// their first visit to an empty site.
package template

import "siteforge/api/internal/store"

// Builtin returns the starter template catalog. IDs are stable so seeding
// at startup upserts rather than duplicates.
func Builtin() []store.Template {
	return []store.Template{
		{
			ID:          "tpl-landing-launch",
			Name:        "Launch",
			Category:    "landing",
			Description: "A product launch page with a hero, feature list, and call to action.",
			TemplateData: []byte(`{
				"template_data": {
					"content": [
						{"type": "section", "props": {"padding": "64px", "textAlign": "center"}, "children": [
							{"type": "heading", "content": "Launch something great", "props": {"level": 1}},
							{"type": "paragraph", "content": "Tell the world what you are building and why it matters."},
							{"type": "button", "content": "Get started", "props": {"href": "#signup"}}
						]},
						{"type": "section", "props": {"padding": "48px"}, "children": [
							{"type": "heading", "content": "Why you will love it", "props": {"level": 2}},
							{"type": "list", "children": [
								{"type": "text", "content": "Fast to set up"},
								{"type": "text", "content": "Looks great everywhere"},
								{"type": "text", "content": "Grows with your business"}
							]}
						]}
					]
				}
			}`),
		},
		{
			ID:          "tpl-store-storefront",
			Name:        "Storefront",
			Category:    "store",
			Description: "An online shop front with a hero banner and product grid.",
			TemplateData: []byte(`{
				"template_data": {
					"content": [
						{"type": "section", "props": {"padding": "48px", "textAlign": "center"}, "children": [
							{"type": "heading", "content": "Welcome to our shop", "props": {"level": 1}},
							{"type": "paragraph", "content": "Handpicked products, shipped to your door."}
						]},
						{"type": "section", "props": {"padding": "32px"}, "children": [
							{"type": "productGrid", "props": {}}
						]}
					]
				}
			}`),
		},
		{
			ID:          "tpl-portfolio-studio",
			Name:        "Studio",
			Category:    "portfolio",
			Description: "A minimal portfolio with an intro and work gallery.",
			TemplateData: []byte(`{
				"template_data": {
					"content": [
						{"type": "section", "props": {"padding": "64px"}, "children": [
							{"type": "heading", "content": "Hi, I make things", "props": {"level": 1}},
							{"type": "paragraph", "content": "Selected work below. Say hello any time."}
						]},
						{"type": "section", "props": {"padding": "32px", "display": "flex", "gap": "24px"}, "children": [
							{"type": "image", "props": {"src": "", "alt": "Project one"}},
							{"type": "image", "props": {"src": "", "alt": "Project two"}},
							{"type": "image", "props": {"src": "", "alt": "Project three"}}
						]}
					]
				}
			}`),
		},
	}
}

// Find returns a builtin template by ID.
func Find(id string) (store.Template, bool) {
	for _, tpl := range Builtin() {
		if tpl.ID == id {
			return tpl, true
		}
	}
	return store.Template{}, false
}
