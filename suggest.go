package visibility

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/zombar/visibility/models"
)

// suggestionListKeys are the categorized lists an AI suggestion payload must
// supply, alongside a "summary" string.
var suggestionListKeys = []string{
	"voice_search",
	"faq_questions",
	"headlines",
	"featured_snippets",
	"long_tail",
	"comparisons",
	"how_to",
}

// GenerateSuggestions produces categorized prompt suggestions for a page:
// the phrasings users type or speak into AI assistants that the page should
// be able to answer. Shares the scorer's degradation path and never fails
// outward.
func (e *Engine) GenerateSuggestions(ctx context.Context, targetURL string, signal models.PageSignal) *models.SuggestionSet {
	signal = e.capSignal(signal)

	if e.ai == nil {
		return e.suggestFallback(signal, MethodHeuristicNoKey)
	}

	raw, err := e.generate(ctx, buildSuggestionPrompt(targetURL, signal, e.excerpt(signal.Text)))
	if err != nil {
		log.Printf("AI suggestion generation failed, using template fallback: %v", err)
		return e.suggestFallback(signal, fallbackMethod(err.Error()))
	}
	e.archiveResponse(raw, targetURL)

	payload, err := ExtractStructured(raw)
	if err != nil {
		log.Printf("AI suggestions returned no structured data, using template fallback")
		return e.suggestFallback(signal, fallbackMethod(err.Error()))
	}

	suggestions, err := suggestionsFromPayload(payload)
	if err != nil {
		log.Printf("AI suggestion payload invalid, using template fallback: %v", err)
		return e.suggestFallback(signal, fallbackMethod(err.Error()))
	}

	suggestions.AnalysisMethod = MethodAIPowered
	suggestions.CreatedAt = time.Now().UTC()
	return suggestions
}

// buildSuggestionPrompt crafts the suggestion-generation prompt.
func buildSuggestionPrompt(targetURL string, signal models.PageSignal, excerpt string) string {
	var b strings.Builder

	b.WriteString("Generate search prompt suggestions this web page should rank for in AI assistants and search engines.\n\n")
	fmt.Fprintf(&b, "URL: %s\n", targetURL)
	fmt.Fprintf(&b, "Title: %s\n", signal.Title)
	fmt.Fprintf(&b, "Meta description: %s\n\n", signal.Description)
	fmt.Fprintf(&b, "Page content excerpt:\n%s\n\n", excerpt)
	b.WriteString("Respond with ONLY this JSON object, each list holding 3-5 short strings:\n")
	b.WriteString(`{"voice_search": [], "faq_questions": [], "headlines": [], "featured_snippets": [], "long_tail": [], "comparisons": [], "how_to": [], "summary": "<one sentence>"}`)

	return b.String()
}

// suggestionsFromPayload validates the extracted payload: every category key
// must hold an array, summary must be a string. List entries that are not
// strings are rejected rather than coerced.
func suggestionsFromPayload(payload map[string]interface{}) (*models.SuggestionSet, error) {
	lists := make(map[string][]string, len(suggestionListKeys))
	for _, key := range suggestionListKeys {
		raw, ok := payload[key]
		if !ok {
			return nil, fmt.Errorf("missing suggestion list %q", key)
		}
		arr, ok := raw.([]interface{})
		if !ok {
			return nil, fmt.Errorf("suggestion list %q is not an array", key)
		}
		entries := make([]string, 0, len(arr))
		for _, item := range arr {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("suggestion list %q contains a non-string entry", key)
			}
			entries = append(entries, s)
		}
		lists[key] = entries
	}

	summary, ok := payload["summary"].(string)
	if !ok {
		return nil, fmt.Errorf("missing or non-string summary")
	}

	set := &models.SuggestionSet{
		VoiceSearch:      lists["voice_search"],
		FAQQuestions:     lists["faq_questions"],
		Headlines:        lists["headlines"],
		FeaturedSnippets: lists["featured_snippets"],
		LongTail:         lists["long_tail"],
		Comparisons:      lists["comparisons"],
		HowTo:            lists["how_to"],
		Summary:          summary,
	}
	set.Total = totalSuggestions(set)
	return set, nil
}

// suggestFallback synthesizes suggestions by templating the leading words of
// the page content into canned per-category patterns.
func (e *Engine) suggestFallback(signal models.PageSignal, method string) *models.SuggestionSet {
	topic := firstWords(signal.Text, 5)
	if topic == "" {
		topic = firstWords(signal.Title, 5)
	}
	if topic == "" {
		topic = "this topic"
	}

	set := &models.SuggestionSet{
		VoiceSearch: []string{
			fmt.Sprintf("What is %s?", topic),
			fmt.Sprintf("How does %s work?", topic),
			fmt.Sprintf("Where can I find %s?", topic),
		},
		FAQQuestions: []string{
			fmt.Sprintf("What are the benefits of %s?", topic),
			fmt.Sprintf("How much does %s cost?", topic),
			fmt.Sprintf("Is %s right for my business?", topic),
		},
		Headlines: []string{
			fmt.Sprintf("The Complete Guide to %s", topic),
			fmt.Sprintf("%s: What You Need to Know", topic),
			fmt.Sprintf("Why %s Matters Today", topic),
		},
		FeaturedSnippets: []string{
			fmt.Sprintf("Key facts about %s", topic),
			fmt.Sprintf("%s explained in plain terms", topic),
			fmt.Sprintf("Steps to get started with %s", topic),
		},
		LongTail: []string{
			fmt.Sprintf("best %s for small business", topic),
			fmt.Sprintf("%s examples and use cases", topic),
			fmt.Sprintf("how to improve %s", topic),
		},
		Comparisons: []string{
			fmt.Sprintf("%s vs traditional alternatives", topic),
			fmt.Sprintf("%s compared to competitors", topic),
			fmt.Sprintf("pros and cons of %s", topic),
		},
		HowTo: []string{
			fmt.Sprintf("How to get started with %s", topic),
			fmt.Sprintf("How to measure %s", topic),
			fmt.Sprintf("How to optimize %s", topic),
		},
		Summary:        "Template-generated suggestions from page content.",
		AnalysisMethod: method,
		CreatedAt:      time.Now().UTC(),
	}
	set.Total = totalSuggestions(set)
	return set
}

// totalSuggestions is the flattened count across all category lists.
func totalSuggestions(set *models.SuggestionSet) int {
	return len(set.VoiceSearch) + len(set.FAQQuestions) + len(set.Headlines) +
		len(set.FeaturedSnippets) + len(set.LongTail) + len(set.Comparisons) +
		len(set.HowTo)
}

// firstWords returns the first n whitespace-separated words of s.
func firstWords(s string, n int) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	if len(fields) > n {
		fields = fields[:n]
	}
	return strings.Join(fields, " ")
}
