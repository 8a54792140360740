package models

import "time"

// PageSignal carries the extracted inputs for one analysis run: plain text,
// the metadata triple, and whether the page exposed structured data. It is
// derived once per call and never persisted.
type PageSignal struct {
	Text              string   `json:"text"`
	Title             string   `json:"title,omitempty"`
	Description       string   `json:"description,omitempty"`
	Keywords          []string `json:"keywords,omitempty"`
	Author            string   `json:"author,omitempty"`
	PublishedDate     string   `json:"published_date,omitempty"`
	HasStructuredData bool     `json:"has_structured_data"`
}

// EntityResult is the per-entity outcome of a coverage analysis. A fresh set
// is produced on every run and replaces the previous set for the site.
type EntityResult struct {
	ID           string    `json:"id"`
	SiteID       string    `json:"site_id"`
	EntityName   string    `json:"entity_name"`
	EntityType   string    `json:"entity_type"`
	MentionCount float64   `json:"mention_count"` // weighted mention score, may be fractional
	Gap          bool      `json:"gap"`
	CreatedAt    time.Time `json:"created_at"`
}

// CoverageMetrics holds the tier sub-counts behind a coverage score.
type CoverageMetrics struct {
	CriticalEntities int     `json:"critical_entities"`
	CriticalGaps     int     `json:"critical_gaps"`
	HighEntities     int     `json:"high_entities"`
	HighGaps         int     `json:"high_gaps"`
	TotalGaps        int     `json:"total_gaps"`
	TotalMentions    float64 `json:"total_mentions"` // sum of weighted mention scores
}

// CoverageReport is the complete output of an entity coverage analysis.
type CoverageReport struct {
	SiteID          string          `json:"site_id"`
	URL             string          `json:"url"`
	Slug            string          `json:"slug,omitempty"`
	Results         []EntityResult  `json:"entity_results"`
	AnalysisSummary string          `json:"analysis_summary"`
	TotalEntities   int             `json:"total_entities"`
	CoverageScore   int             `json:"coverage_score"` // 0-100
	Metrics         CoverageMetrics `json:"metrics"`
	CreatedAt       time.Time       `json:"created_at"`
}

// ScoreSet is the five-factor visibility score. Every sub-score is an integer
// in [1,100] regardless of which path produced it; AnalysisMethod records the
// path (AI-powered, heuristic with a failure reason, or heuristic without a
// configured key).
type ScoreSet struct {
	AIVisibility   int       `json:"ai_visibility"`
	Schema         int       `json:"schema"`
	Semantic       int       `json:"semantic"`
	Citation       int       `json:"citation"`
	TechnicalSEO   int       `json:"technical_seo"`
	AnalysisMethod string    `json:"analysis_method"`
	CreatedAt      time.Time `json:"created_at"`
}

// SuggestionSet groups generated prompt suggestions by category. Total is the
// flattened count across all lists.
type SuggestionSet struct {
	VoiceSearch      []string  `json:"voice_search"`
	FAQQuestions     []string  `json:"faq_questions"`
	Headlines        []string  `json:"headlines"`
	FeaturedSnippets []string  `json:"featured_snippets"`
	LongTail         []string  `json:"long_tail"`
	Comparisons      []string  `json:"comparisons"`
	HowTo            []string  `json:"how_to"`
	Summary          string    `json:"summary"`
	Total            int       `json:"total"`
	AnalysisMethod   string    `json:"analysis_method"`
	CreatedAt        time.Time `json:"created_at"`
}

// AnalysisResult combines the outputs of one full analysis run.
type AnalysisResult struct {
	URL         string          `json:"url"`
	SiteID      string          `json:"site_id"`
	Report      *CoverageReport `json:"report"`
	Scores      *ScoreSet       `json:"scores"`
	Suggestions *SuggestionSet  `json:"suggestions,omitempty"`
	Cached      bool            `json:"cached,omitempty"`
}

// AnalyzeRequest is the request body for a full analysis. Either HTML is
// supplied (the signal is derived from it) or the extracted fields are passed
// directly.
type AnalyzeRequest struct {
	URL                string   `json:"url"`
	SiteID             string   `json:"site_id"`
	HTML               string   `json:"html,omitempty"`
	Text               string   `json:"text,omitempty"`
	Title              string   `json:"title,omitempty"`
	Description        string   `json:"description,omitempty"`
	Keywords           []string `json:"keywords,omitempty"`
	HasStructuredData  bool     `json:"has_structured_data,omitempty"`
	IncludeSuggestions bool     `json:"include_suggestions,omitempty"`
	Force              bool     `json:"force,omitempty"` // re-analyze even when a stored report exists
}

// ScoreRequest is the request body for visibility scoring alone.
type ScoreRequest struct {
	URL               string   `json:"url"`
	HTML              string   `json:"html,omitempty"`
	Text              string   `json:"text,omitempty"`
	Title             string   `json:"title,omitempty"`
	Description       string   `json:"description,omitempty"`
	Keywords          []string `json:"keywords,omitempty"`
	HasStructuredData bool     `json:"has_structured_data,omitempty"`
}

// ScoreResponse wraps a ScoreSet with the URL it was computed for.
type ScoreResponse struct {
	URL    string   `json:"url"`
	Scores ScoreSet `json:"scores"`
}
