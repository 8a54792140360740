package visibility

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/zombar/visibility/models"
)

// SignalFromHTML derives a PageSignal from an already-fetched HTML document.
// No network I/O happens here; the caller owns fetching. maxTextLen <= 0
// applies the default cap.
func SignalFromHTML(rawHTML string, maxTextLen int) models.PageSignal {
	if maxTextLen <= 0 {
		maxTextLen = DefaultConfig().MaxTextLength
	}

	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		// html.Parse tolerates almost anything; a hard failure leaves an
		// empty signal, which the analyzers degrade on gracefully.
		return models.PageSignal{}
	}

	signal := extractMeta(doc)
	signal.Title = extractTitle(doc)
	signal.HasStructuredData = detectStructuredData(doc)

	text := extractText(doc)
	if len(text) > maxTextLen {
		text = text[:maxTextLen]
	}
	signal.Text = text

	return signal
}

// walk visits n and its descendants depth-first. A false return from visit
// prunes that node's subtree.
func walk(n *html.Node, visit func(*html.Node) bool) {
	if !visit(n) {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, visit)
	}
}

// metaAttrs splits a meta element's attributes into lowercased name and
// property keys plus the raw content value.
func metaAttrs(n *html.Node) (name, property, content string) {
	for _, attr := range n.Attr {
		switch attr.Key {
		case "name":
			name = strings.ToLower(attr.Val)
		case "property":
			property = strings.ToLower(attr.Val)
		case "content":
			content = attr.Val
		}
	}
	return name, property, content
}

// extractTitle picks the page title in priority order: og:title, then
// twitter:title, then the first h1, then the title element.
func extractTitle(doc *html.Node) string {
	var fromOG, fromTwitter, fromH1, fromTitle string

	walk(doc, func(n *html.Node) bool {
		if n.Type != html.ElementNode {
			return true
		}
		switch n.Data {
		case "meta":
			name, property, content := metaAttrs(n)
			if property == "og:title" && fromOG == "" {
				fromOG = content
			} else if name == "twitter:title" && fromTwitter == "" {
				fromTwitter = content
			}
		case "h1":
			if fromH1 == "" {
				fromH1 = nodeText(n)
			}
		case "title":
			if fromTitle == "" {
				fromTitle = nodeText(n)
			}
		}
		return true
	})

	for _, title := range []string{fromOG, fromTwitter, fromH1, fromTitle} {
		if trimmed := strings.TrimSpace(title); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

// nodeText collects the text content of a node's subtree, space-joined.
func nodeText(n *html.Node) string {
	var parts []string
	walk(n, func(c *html.Node) bool {
		if c.Type == html.TextNode {
			if trimmed := strings.TrimSpace(c.Data); trimmed != "" {
				parts = append(parts, trimmed)
			}
		}
		return true
	})
	return strings.Join(parts, " ")
}

// extractText extracts the visible text of the document. Script and style
// subtrees never contribute.
func extractText(doc *html.Node) string {
	var parts []string
	walk(doc, func(n *html.Node) bool {
		switch {
		case n.Type == html.TextNode:
			if trimmed := strings.TrimSpace(n.Data); trimmed != "" {
				parts = append(parts, trimmed)
			}
		case n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style"):
			return false
		}
		return true
	})
	return strings.Join(parts, " ")
}

// extractMeta pulls the metadata triple (description, keywords, author) plus
// the published date from meta tags.
func extractMeta(doc *html.Node) models.PageSignal {
	var signal models.PageSignal

	walk(doc, func(n *html.Node) bool {
		if n.Type != html.ElementNode || n.Data != "meta" {
			return true
		}
		name, property, content := metaAttrs(n)
		if content == "" {
			return true
		}

		switch {
		case name == "description" || property == "og:description":
			if signal.Description == "" {
				signal.Description = content
			}
		case name == "keywords":
			if len(signal.Keywords) == 0 {
				signal.Keywords = splitKeywords(content)
			}
		case name == "author" || property == "article:author":
			if signal.Author == "" {
				signal.Author = content
			}
		case property == "article:published_time":
			if signal.PublishedDate == "" {
				signal.PublishedDate = content
			}
		}
		return true
	})

	return signal
}

// splitKeywords splits a comma-separated keyword list, dropping empty pieces.
func splitKeywords(content string) []string {
	var keywords []string
	for _, kw := range strings.Split(content, ",") {
		if kw = strings.TrimSpace(kw); kw != "" {
			keywords = append(keywords, kw)
		}
	}
	return keywords
}

// detectStructuredData reports whether the document carries machine-readable
// markup: a non-empty JSON-LD script block or microdata itemscope attributes.
func detectStructuredData(doc *html.Node) bool {
	found := false
	walk(doc, func(n *html.Node) bool {
		if found {
			return false
		}
		if n.Type != html.ElementNode {
			return true
		}
		if n.Data == "script" && isJSONLD(n) {
			found = true
			return false
		}
		for _, attr := range n.Attr {
			if attr.Key == "itemscope" {
				found = true
				return false
			}
		}
		return true
	})
	return found
}

// isJSONLD reports whether a script element is a non-empty JSON-LD block.
func isJSONLD(n *html.Node) bool {
	for _, attr := range n.Attr {
		if attr.Key == "type" && strings.EqualFold(attr.Val, "application/ld+json") {
			return n.FirstChild != nil && strings.TrimSpace(n.FirstChild.Data) != ""
		}
	}
	return false
}
