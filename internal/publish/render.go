package publish

import (
	"fmt"
	"html"
	"sort"
	"strings"

	"siteforge/api/internal/element"
)

// styleProps maps builder prop names to CSS properties. Props not listed
// here (href, src, level, ...) carry element behavior, not styling.
var styleProps = map[string]string{
	"color":           "color",
	"background":      "background",
	"backgroundColor": "background-color",
	"padding":         "padding",
	"margin":          "margin",
	"fontSize":        "font-size",
	"fontWeight":      "font-weight",
	"fontFamily":      "font-family",
	"textAlign":       "text-align",
	"width":           "width",
	"height":          "height",
	"maxWidth":        "max-width",
	"borderRadius":    "border-radius",
	"gap":             "gap",
	"display":         "display",
	"flexDirection":   "flex-direction",
	"justifyContent":  "justify-content",
	"alignItems":      "align-items",
}

// renderElement recursively renders one builder element to HTML. Published
// pages always render the desktop base values; viewport adaptation happens
// in the browser via the stylesheet, not by re-rendering.
func renderElement(el element.BuilderElement) string {
	props := element.ResolveProps(el.Props, element.BreakpointDesktop)
	style := styleAttr(props)

	switch el.Type {
	case "section":
		return fmt.Sprintf("<section%s>\n%s</section>\n", style, renderChildren(el.Children))
	case "container", "div":
		return fmt.Sprintf("<div%s>\n%s</div>\n", style, renderChildren(el.Children))
	case "heading":
		level := intProp(props, "level", 2)
		if level < 1 || level > 6 {
			level = 2
		}
		return fmt.Sprintf("<h%d%s>%s</h%d>\n", level, style, html.EscapeString(el.Content), level)
	case "paragraph", "text":
		return fmt.Sprintf("<p%s>%s</p>\n", style, html.EscapeString(el.Content))
	case "button":
		href := stringProp(props, "href")
		if href != "" {
			return fmt.Sprintf(`<a class="btn"%s href="%s">%s</a>%s`, style, html.EscapeString(href), html.EscapeString(el.Content), "\n")
		}
		return fmt.Sprintf("<button%s>%s</button>\n", style, html.EscapeString(el.Content))
	case "link":
		href := stringProp(props, "href")
		return fmt.Sprintf(`<a%s href="%s">%s</a>%s`, style, html.EscapeString(href), html.EscapeString(el.Content), "\n")
	case "image":
		src := stringProp(props, "src")
		alt := stringProp(props, "alt")
		return fmt.Sprintf(`<img%s src="%s" alt="%s">%s`, style, html.EscapeString(src), html.EscapeString(alt), "\n")
	case "video":
		src := stringProp(props, "src")
		return fmt.Sprintf(`<video%s src="%s" controls></video>%s`, style, html.EscapeString(src), "\n")
	case "list":
		var b strings.Builder
		for _, child := range el.Children {
			b.WriteString(fmt.Sprintf("<li>%s</li>\n", html.EscapeString(child.Content)))
		}
		return fmt.Sprintf("<ul%s>\n%s</ul>\n", style, b.String())
	case "divider":
		return fmt.Sprintf("<hr%s>\n", style)
	case "spacer":
		h := stringProp(props, "height")
		if h == "" {
			h = "24px"
		}
		return fmt.Sprintf(`<div style="height:%s"></div>%s`, html.EscapeString(h), "\n")
	case "productGrid":
		// Filled client-side from the site's product catalog.
		return fmt.Sprintf(`<div class="product-grid" data-products%s></div>%s`, style, "\n")
	case "form":
		return fmt.Sprintf("<form%s>\n%s</form>\n", style, renderChildren(el.Children))
	case "input":
		name := stringProp(props, "name")
		placeholder := stringProp(props, "placeholder")
		return fmt.Sprintf(`<input%s name="%s" placeholder="%s">%s`, style, html.EscapeString(name), html.EscapeString(placeholder), "\n")
	default:
		// Unknown element type: preserve the subtree rather than drop it.
		if len(el.Children) > 0 {
			return fmt.Sprintf("<div%s>\n%s</div>\n", style, renderChildren(el.Children))
		}
		if el.Content != "" {
			return fmt.Sprintf("<div%s>%s</div>\n", style, html.EscapeString(el.Content))
		}
		return ""
	}
}

func renderChildren(children []element.BuilderElement) string {
	var b strings.Builder
	for _, child := range children {
		b.WriteString(renderElement(child))
	}
	return b.String()
}

// RenderElements renders a page's element tree to an HTML fragment.
func RenderElements(elements []element.BuilderElement) string {
	var b strings.Builder
	for _, el := range elements {
		b.WriteString(renderElement(el))
	}
	return b.String()
}

func styleAttr(props map[string]any) string {
	type decl struct{ prop, value string }
	var decls []decl
	for key, raw := range props {
		cssProp, ok := styleProps[key]
		if !ok {
			continue
		}
		value := propString(raw)
		if value == "" {
			continue
		}
		decls = append(decls, decl{cssProp, value})
	}
	if len(decls) == 0 {
		return ""
	}
	sort.Slice(decls, func(i, j int) bool { return decls[i].prop < decls[j].prop })

	var b strings.Builder
	for i, d := range decls {
		if i > 0 {
			b.WriteString(";")
		}
		b.WriteString(d.prop)
		b.WriteString(":")
		b.WriteString(d.value)
	}
	return fmt.Sprintf(` style="%s"`, html.EscapeString(b.String()))
}

func propString(raw any) string {
	switch v := raw.(type) {
	case string:
		return v
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%dpx", int64(v))
		}
		return fmt.Sprintf("%gpx", v)
	case int:
		return fmt.Sprintf("%dpx", v)
	default:
		return ""
	}
}

func stringProp(props map[string]any, key string) string {
	if v, ok := props[key].(string); ok {
		return v
	}
	return ""
}

func intProp(props map[string]any, key string, fallback int) int {
	switch v := props[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return fallback
	}
}
