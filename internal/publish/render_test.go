package publish

import (
	"strings"
	"testing"

	"siteforge/api/internal/element"
	"siteforge/api/internal/site"
)

func TestRenderElements(t *testing.T) {
	tests := []struct {
		name     string
		input    []element.BuilderElement
		expected string
	}{
		{
			name:     "empty tree",
			input:    nil,
			expected: "",
		},
		{
			name: "paragraph with text",
			input: []element.BuilderElement{
				{ID: "el-1", Type: "paragraph", Content: "Hello world"},
			},
			expected: "<p>Hello world</p>",
		},
		{
			name: "heading with level prop",
			input: []element.BuilderElement{
				{ID: "el-1", Type: "heading", Content: "Section Title", Props: map[string]any{"level": 3.0}},
			},
			expected: "<h3>Section Title</h3>",
		},
		{
			name: "button with href becomes link",
			input: []element.BuilderElement{
				{ID: "el-1", Type: "button", Content: "Shop now", Props: map[string]any{"href": "/shop"}},
			},
			expected: `<a class="btn" href="/shop">Shop now</a>`,
		},
		{
			name: "image with src and alt",
			input: []element.BuilderElement{
				{ID: "el-1", Type: "image", Props: map[string]any{"src": "https://cdn.example.com/a.png", "alt": "A photo"}},
			},
			expected: `<img src="https://cdn.example.com/a.png" alt="A photo">`,
		},
		{
			name: "section nests children",
			input: []element.BuilderElement{
				{ID: "el-1", Type: "section", Children: []element.BuilderElement{
					{ID: "el-2", Type: "heading", Content: "Inner"},
				}},
			},
			expected: "<section>\n<h2>Inner</h2>\n</section>",
		},
		{
			name: "content is escaped",
			input: []element.BuilderElement{
				{ID: "el-1", Type: "paragraph", Content: "<script>alert(1)</script>"},
			},
			expected: "&lt;script&gt;alert(1)&lt;/script&gt;",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RenderElements(tt.input)
			if !strings.Contains(got, tt.expected) {
				t.Errorf("RenderElements() = %q, want substring %q", got, tt.expected)
			}
		})
	}
}

func TestRenderElementsStyleProps(t *testing.T) {
	input := []element.BuilderElement{
		{ID: "el-1", Type: "paragraph", Content: "Styled", Props: map[string]any{
			"color":    "#333",
			"padding":  "12px",
			"fontSize": 18.0,
			"href":     "/ignored", // not a style prop
		}},
	}

	got := RenderElements(input)
	if !strings.Contains(got, `style="color:#333;font-size:18px;padding:12px"`) {
		t.Errorf("unexpected style attribute in %q", got)
	}
	if strings.Contains(got, "/ignored") {
		t.Errorf("non-style prop leaked into output: %q", got)
	}
}

func TestRenderElementsUsesDesktopBaseNotOverrides(t *testing.T) {
	input := []element.BuilderElement{
		{ID: "el-1", Type: "paragraph", Content: "Responsive", Props: map[string]any{
			"padding": "24px",
			"breakpoints": map[string]any{
				"mobile": map[string]any{"padding": "8px"},
			},
		}},
	}

	got := RenderElements(input)
	if !strings.Contains(got, "padding:24px") {
		t.Errorf("expected desktop base padding, got %q", got)
	}
	if strings.Contains(got, "8px") || strings.Contains(got, "breakpoints") {
		t.Errorf("mobile override leaked into published output: %q", got)
	}
}

func TestRenderElementsUnknownTypePreservesSubtree(t *testing.T) {
	input := []element.BuilderElement{
		{ID: "el-1", Type: "customWidget", Children: []element.BuilderElement{
			{ID: "el-2", Type: "paragraph", Content: "Kept"},
		}},
	}

	got := RenderElements(input)
	if !strings.Contains(got, "<p>Kept</p>") {
		t.Errorf("unknown element dropped its children: %q", got)
	}
}

func TestRenderSite(t *testing.T) {
	settings := site.Settings{
		Pages: []site.Page{
			{ID: "pg-home", Title: "Home", IsHomePage: true},
			{ID: "pg-about", Title: "About", Slug: "about"},
		},
		PagesContent: map[string][]element.BuilderElement{
			"pg-home":  {{ID: "el-1", Type: "heading", Content: "Welcome"}},
			"pg-about": {{ID: "el-2", Type: "paragraph", Content: "About us"}},
		},
		PagesSettings: map[string]site.PageSettings{
			"pg-about": {Title: "About | Acme", Description: "Who we are", Indexable: boolPtr(false)},
		},
	}

	outputs, err := RenderSite("Acme", settings)
	if err != nil {
		t.Fatalf("RenderSite() error = %v", err)
	}
	if len(outputs) != 2 {
		t.Fatalf("expected 2 pages, got %d", len(outputs))
	}

	if outputs[0].Filename != "index.html" {
		t.Errorf("home page filename = %q, want index.html", outputs[0].Filename)
	}
	if !strings.Contains(outputs[0].HTML, "<h2>Welcome</h2>") {
		t.Errorf("home page missing content: %q", outputs[0].HTML)
	}
	if !strings.Contains(outputs[0].HTML, `href="about.html"`) {
		t.Errorf("home page missing nav link to about page")
	}

	about := outputs[1]
	if about.Filename != "about.html" {
		t.Errorf("about page filename = %q, want about.html", about.Filename)
	}
	if !strings.Contains(about.HTML, "<title>About | Acme</title>") {
		t.Errorf("about page should use SEO title override: %q", about.HTML)
	}
	if !strings.Contains(about.HTML, `content="Who we are"`) {
		t.Errorf("about page missing meta description")
	}
	if !strings.Contains(about.HTML, `content="noindex"`) {
		t.Errorf("non-indexable page missing robots meta")
	}
}

func TestRenderSiteNoPages(t *testing.T) {
	if _, err := RenderSite("Acme", site.Settings{}); err == nil {
		t.Fatal("expected error for site without pages")
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"My Cool Site", "My-Cool-Site"},
		{"weird/?*chars", "weirdchars"},
		{"", "site"},
	}
	for _, tt := range tests {
		if got := sanitizeFilename(tt.input); got != tt.expected {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func boolPtr(b bool) *bool { return &b }
