package visibility

import (
	"context"
	"strings"
	"testing"

	"github.com/zombar/visibility/models"
)

func TestGenerateSuggestionsAIPath(t *testing.T) {
	client := &stubAIClient{
		response: "```json\n" +
			`{"voice_search": ["What is acme?"], ` +
			`"faq_questions": ["Does acme integrate?", "Is acme secure?"], ` +
			`"headlines": ["Acme in 2025"], ` +
			`"featured_snippets": ["Acme key facts"], ` +
			`"long_tail": ["acme for startups"], ` +
			`"comparisons": ["acme vs widgets"], ` +
			`"how_to": ["How to deploy acme"], ` +
			`"summary": "Prompts targeting acme buyers."}` +
			"\n```",
	}
	e := New(DefaultConfig(), client, nil)

	set := e.GenerateSuggestions(context.Background(), "https://acme.com", models.PageSignal{Text: "content"})

	if set.AnalysisMethod != MethodAIPowered {
		t.Fatalf("Expected method %q, got %q", MethodAIPowered, set.AnalysisMethod)
	}
	if len(set.VoiceSearch) != 1 || set.VoiceSearch[0] != "What is acme?" {
		t.Errorf("Unexpected voice search list: %v", set.VoiceSearch)
	}
	if len(set.FAQQuestions) != 2 {
		t.Errorf("Expected 2 FAQ questions, got %d", len(set.FAQQuestions))
	}
	if set.Summary != "Prompts targeting acme buyers." {
		t.Errorf("Unexpected summary: %q", set.Summary)
	}
	if set.Total != 8 {
		t.Errorf("Expected total 8, got %d", set.Total)
	}
	if set.CreatedAt.IsZero() {
		t.Error("Expected CreatedAt to be set")
	}
}

func TestGenerateSuggestionsAcceptsEmptyLists(t *testing.T) {
	client := &stubAIClient{
		response: `{"voice_search": [], "faq_questions": [], "headlines": [], "featured_snippets": [], "long_tail": [], "comparisons": [], "how_to": [], "summary": "Nothing to suggest."}`,
	}
	e := New(DefaultConfig(), client, nil)

	set := e.GenerateSuggestions(context.Background(), "https://acme.com", models.PageSignal{})

	if set.AnalysisMethod != MethodAIPowered {
		t.Errorf("Empty lists are valid, expected AI method, got %q", set.AnalysisMethod)
	}
	if set.Total != 0 {
		t.Errorf("Expected total 0, got %d", set.Total)
	}
}

func TestGenerateSuggestionsNoKey(t *testing.T) {
	e := New(DefaultConfig(), nil, nil)

	signal := models.PageSignal{Text: "alpha beta gamma delta epsilon zeta eta"}
	set := e.GenerateSuggestions(context.Background(), "https://example.com", signal)

	if set.AnalysisMethod != MethodHeuristicNoKey {
		t.Fatalf("Expected method %q, got %q", MethodHeuristicNoKey, set.AnalysisMethod)
	}

	// Topic is the first five words of the page text
	want := "What is alpha beta gamma delta epsilon?"
	if len(set.VoiceSearch) == 0 || set.VoiceSearch[0] != want {
		t.Errorf("Expected first voice search %q, got %v", want, set.VoiceSearch)
	}
	if set.Total != 21 {
		t.Errorf("Expected 21 template suggestions, got %d", set.Total)
	}
	if set.Summary != "Template-generated suggestions from page content." {
		t.Errorf("Unexpected fallback summary: %q", set.Summary)
	}
}

func TestGenerateSuggestionsFallbackTopic(t *testing.T) {
	tests := []struct {
		name   string
		signal models.PageSignal
		topic  string
	}{
		{
			name:   "topic from text",
			signal: models.PageSignal{Text: "cloud cost management", Title: "Pricing"},
			topic:  "cloud cost management",
		},
		{
			name:   "topic from title when text empty",
			signal: models.PageSignal{Title: "Acme Widget Platform"},
			topic:  "Acme Widget Platform",
		},
		{
			name:   "generic topic when both empty",
			signal: models.PageSignal{},
			topic:  "this topic",
		},
	}

	e := New(DefaultConfig(), nil, nil)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set := e.GenerateSuggestions(context.Background(), "https://example.com", tt.signal)

			want := "What is " + tt.topic + "?"
			if len(set.VoiceSearch) == 0 || set.VoiceSearch[0] != want {
				t.Errorf("GenerateSuggestions() first voice search = %v, expected %q", set.VoiceSearch, want)
			}
			if !strings.Contains(set.Headlines[0], tt.topic) {
				t.Errorf("Expected topic %q in headline %q", tt.topic, set.Headlines[0])
			}
		})
	}
}

func TestGenerateSuggestionsInvalidPayloadFallsBack(t *testing.T) {
	tests := []struct {
		name       string
		response   string
		wantReason string
	}{
		{
			name:       "missing list",
			response:   `{"voice_search": [], "faq_questions": [], "headlines": [], "featured_snippets": [], "long_tail": [], "comparisons": [], "summary": "s"}`,
			wantReason: "how_to",
		},
		{
			name:       "list is not an array",
			response:   `{"voice_search": "not a list", "faq_questions": [], "headlines": [], "featured_snippets": [], "long_tail": [], "comparisons": [], "how_to": [], "summary": "s"}`,
			wantReason: "not an array",
		},
		{
			name:       "non-string entry",
			response:   `{"voice_search": [42], "faq_questions": [], "headlines": [], "featured_snippets": [], "long_tail": [], "comparisons": [], "how_to": [], "summary": "s"}`,
			wantReason: "non-string entry",
		},
		{
			name:       "missing summary",
			response:   `{"voice_search": [], "faq_questions": [], "headlines": [], "featured_snippets": [], "long_tail": [], "comparisons": [], "how_to": []}`,
			wantReason: "summary",
		},
		{
			name:       "bare array response",
			response:   `["What is acme?", "How does acme work?"]`,
			wantReason: "voice_search",
		},
		{
			name:       "prose response",
			response:   "Here are some ideas for you to consider.",
			wantReason: "no structured data",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New(DefaultConfig(), &stubAIClient{response: tt.response}, nil)

			set := e.GenerateSuggestions(context.Background(), "https://example.com", models.PageSignal{Text: "widget catalog"})

			if !strings.HasPrefix(set.AnalysisMethod, "heuristic (") {
				t.Fatalf("Expected template fallback, got method %q", set.AnalysisMethod)
			}
			if !strings.Contains(set.AnalysisMethod, tt.wantReason) {
				t.Errorf("Expected reason mentioning %q, got %q", tt.wantReason, set.AnalysisMethod)
			}
			// Fallback still delivers usable suggestions
			if set.Total != 21 {
				t.Errorf("Expected 21 template suggestions, got %d", set.Total)
			}
			if !strings.Contains(set.VoiceSearch[0], "widget catalog") {
				t.Errorf("Expected page topic in fallback suggestion, got %q", set.VoiceSearch[0])
			}
		})
	}
}

func TestGenerateSuggestionsTransportErrorFallsBack(t *testing.T) {
	e := New(DefaultConfig(), &stubAIClient{err: context.DeadlineExceeded}, nil)

	set := e.GenerateSuggestions(context.Background(), "https://example.com", models.PageSignal{})

	if !strings.Contains(set.AnalysisMethod, "deadline exceeded") {
		t.Errorf("Expected failure reason in method, got %q", set.AnalysisMethod)
	}
	if set.Total == 0 {
		t.Error("Expected fallback suggestions despite transport failure")
	}
}

func TestBuildSuggestionPrompt(t *testing.T) {
	signal := models.PageSignal{Title: "Acme", Description: "Widgets for everyone"}

	prompt := buildSuggestionPrompt("https://acme.com", signal, "excerpt text")

	for _, want := range []string{
		"https://acme.com",
		"Acme",
		"Widgets for everyone",
		"excerpt text",
		"voice_search",
		"how_to",
		"summary",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("Prompt missing %q", want)
		}
	}
}

func TestFirstWords(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		n        int
		expected string
	}{
		{"fewer words than limit", "one two", 5, "one two"},
		{"exactly the limit", "a b c", 3, "a b c"},
		{"truncates beyond limit", "a b c d e f g", 3, "a b c"},
		{"collapses whitespace", "  a \t b\n c  ", 5, "a b c"},
		{"empty input", "", 5, ""},
		{"whitespace only", "   \n\t ", 5, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := firstWords(tt.input, tt.n); got != tt.expected {
				t.Errorf("firstWords(%q, %d) = %q, expected %q", tt.input, tt.n, got, tt.expected)
			}
		})
	}
}
