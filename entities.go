package visibility

import (
	"net/url"
	"strings"
)

// Importance tiers for catalog entities. The tier drives the expected mention
// threshold and the weighting of the aggregate coverage score.
const (
	ImportanceCritical = "critical"
	ImportanceHigh     = "high"
	ImportanceMedium   = "medium"
)

// EntityDefinition is a static catalog entry: a named concept the analyzer
// checks for adequate coverage in page content. Keywords are lowercase.
type EntityDefinition struct {
	Name       string
	Type       string
	Importance string
	Weight     int
	Keywords   []string
}

// defaultEntities is the fixed domain catalog, loaded once per process and
// never mutated. Entities span the service, process, technology, and value
// categories of the AI visibility domain.
var defaultEntities = []EntityDefinition{
	{
		Name:       "AI Visibility",
		Type:       "service",
		Importance: ImportanceCritical,
		Weight:     3,
		Keywords:   []string{"ai visibility", "ai search", "ai presence"},
	},
	{
		Name:       "SEO Optimization",
		Type:       "service",
		Importance: ImportanceCritical,
		Weight:     3,
		Keywords:   []string{"seo", "search engine optimization", "search ranking"},
	},
	{
		Name:       "Content Analysis",
		Type:       "service",
		Importance: ImportanceHigh,
		Weight:     2,
		Keywords:   []string{"content analysis", "content audit", "content quality"},
	},
	{
		Name:       "Brand Monitoring",
		Type:       "service",
		Importance: ImportanceHigh,
		Weight:     2,
		Keywords:   []string{"brand monitoring", "brand mentions", "reputation"},
	},
	{
		Name:       "Schema Markup",
		Type:       "process",
		Importance: ImportanceCritical,
		Weight:     3,
		Keywords:   []string{"schema", "structured data", "json-ld", "markup"},
	},
	{
		Name:       "Entity Optimization",
		Type:       "process",
		Importance: ImportanceHigh,
		Weight:     2,
		Keywords:   []string{"entity", "knowledge graph", "entity recognition"},
	},
	{
		Name:       "Citation Building",
		Type:       "process",
		Importance: ImportanceHigh,
		Weight:     2,
		Keywords:   []string{"citation", "cited", "references", "sources"},
	},
	{
		Name:       "Content Strategy",
		Type:       "process",
		Importance: ImportanceMedium,
		Weight:     1,
		Keywords:   []string{"content strategy", "editorial", "publishing"},
	},
	{
		Name:       "AI Search Engines",
		Type:       "technology",
		Importance: ImportanceCritical,
		Weight:     3,
		Keywords:   []string{"chatgpt", "perplexity", "ai search engine", "copilot"},
	},
	{
		Name:       "Large Language Models",
		Type:       "technology",
		Importance: ImportanceHigh,
		Weight:     2,
		Keywords:   []string{"llm", "large language model", "language model", "gpt"},
	},
	{
		Name:       "Semantic Search",
		Type:       "technology",
		Importance: ImportanceHigh,
		Weight:     2,
		Keywords:   []string{"semantic search", "semantic", "vector search"},
	},
	{
		Name:       "Voice Search",
		Type:       "technology",
		Importance: ImportanceMedium,
		Weight:     1,
		Keywords:   []string{"voice search", "voice assistant", "alexa", "siri"},
	},
	{
		Name:       "Organic Traffic",
		Type:       "value",
		Importance: ImportanceHigh,
		Weight:     2,
		Keywords:   []string{"organic traffic", "organic search", "site traffic"},
	},
	{
		Name:       "Search Rankings",
		Type:       "value",
		Importance: ImportanceMedium,
		Weight:     1,
		Keywords:   []string{"ranking", "serp", "search results"},
	},
	{
		Name:       "Conversion",
		Type:       "value",
		Importance: ImportanceMedium,
		Weight:     1,
		Keywords:   []string{"conversion", "leads", "sales funnel"},
	},
	{
		Name:       "Online Authority",
		Type:       "value",
		Importance: ImportanceMedium,
		Weight:     1,
		Keywords:   []string{"authority", "trust", "credibility", "expertise"},
	},
}

// DefaultEntities returns a copy of the fixed domain catalog so callers can
// inspect it without aliasing the shared slice.
func DefaultEntities() []EntityDefinition {
	out := make([]EntityDefinition, len(defaultEntities))
	copy(out, defaultEntities)
	return out
}

// siteEntity builds the synthetic critical entity for the analyzed site. The
// display name comes from the URL host's first label (www stripped),
// capitalized; keywords are the raw token, the capitalized token, and the
// full host. Malformed URLs degrade to the raw input as the token source.
func siteEntity(targetURL string) EntityDefinition {
	host := hostFromURL(targetURL)

	token := host
	if i := strings.IndexByte(token, '.'); i > 0 {
		token = token[:i]
	}

	name := capitalize(token)
	if name == "" {
		name = "Site"
	}

	var keywords []string
	if token != "" {
		keywords = append(keywords, strings.ToLower(token), capitalize(token))
	}
	if host != "" && host != token {
		keywords = append(keywords, host)
	}

	return EntityDefinition{
		Name:       name,
		Type:       "brand",
		Importance: ImportanceCritical,
		Weight:     3,
		Keywords:   keywords,
	}
}

// hostFromURL extracts a lowercase host with any www prefix removed. When the
// input does not parse as a URL, the trimmed raw string stands in so the
// analyzer still has something to match against.
func hostFromURL(targetURL string) string {
	raw := strings.TrimSpace(targetURL)
	parsed, err := url.Parse(raw)
	host := ""
	if err == nil {
		host = parsed.Hostname()
	}
	if host == "" {
		// Bare domains like "example.com" parse with an empty host.
		host = raw
		if i := strings.Index(host, "://"); i >= 0 {
			host = host[i+3:]
		}
		if i := strings.IndexAny(host, "/?#"); i >= 0 {
			host = host[:i]
		}
	}
	host = strings.ToLower(strings.TrimSpace(host))
	return strings.TrimPrefix(host, "www.")
}

// capitalize upper-cases the first byte of an ASCII token.
func capitalize(s string) string {
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
