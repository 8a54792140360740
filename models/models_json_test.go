package models

import (
	"encoding/json"
	"testing"
	"time"
)

// TestScoreSetJSONSerialization verifies the wire key names consumers rely on
func TestScoreSetJSONSerialization(t *testing.T) {
	scores := &ScoreSet{
		AIVisibility:   72,
		Schema:         40,
		Semantic:       65,
		Citation:       55,
		TechnicalSEO:   80,
		AnalysisMethod: "ai_powered",
		CreatedAt:      time.Now().UTC(),
	}

	jsonBytes, err := json.Marshal(scores)
	if err != nil {
		t.Fatalf("Failed to marshal score set: %v", err)
	}

	var unmarshaled map[string]interface{}
	if err := json.Unmarshal(jsonBytes, &unmarshaled); err != nil {
		t.Fatalf("Failed to unmarshal JSON: %v", err)
	}

	for _, key := range []string{"ai_visibility", "schema", "semantic", "citation", "technical_seo", "analysis_method", "created_at"} {
		if _, exists := unmarshaled[key]; !exists {
			t.Errorf("%s field is missing from JSON", key)
		}
	}

	if unmarshaled["ai_visibility"].(float64) != 72 {
		t.Errorf("Expected ai_visibility 72, got %v", unmarshaled["ai_visibility"])
	}
	if unmarshaled["analysis_method"].(string) != "ai_powered" {
		t.Errorf("Expected analysis_method ai_powered, got %v", unmarshaled["analysis_method"])
	}
}

// TestCoverageReportJSONSerialization verifies the entity results land under
// the entity_results key with fractional mention counts intact
func TestCoverageReportJSONSerialization(t *testing.T) {
	report := &CoverageReport{
		SiteID: "site-1",
		URL:    "https://example.com",
		Slug:   "examplecom",
		Results: []EntityResult{
			{
				ID:           "res-1",
				SiteID:       "site-1",
				EntityName:   "AI Visibility",
				EntityType:   "service",
				MentionCount: 12.5,
				Gap:          false,
				CreatedAt:    time.Now().UTC(),
			},
		},
		AnalysisSummary: "Good entity coverage.",
		TotalEntities:   17,
		CoverageScore:   62,
		Metrics: CoverageMetrics{
			CriticalEntities: 5,
			CriticalGaps:     2,
			HighEntities:     7,
			HighGaps:         3,
			TotalGaps:        9,
			TotalMentions:    40.5,
		},
		CreatedAt: time.Now().UTC(),
	}

	jsonBytes, err := json.Marshal(report)
	if err != nil {
		t.Fatalf("Failed to marshal report: %v", err)
	}

	var unmarshaled map[string]interface{}
	if err := json.Unmarshal(jsonBytes, &unmarshaled); err != nil {
		t.Fatalf("Failed to unmarshal JSON: %v", err)
	}

	results, ok := unmarshaled["entity_results"].([]interface{})
	if !ok {
		t.Fatal("entity_results field is missing or not an array")
	}
	if len(results) != 1 {
		t.Fatalf("Expected 1 entity result, got %d", len(results))
	}

	entry := results[0].(map[string]interface{})
	if entry["mention_count"].(float64) != 12.5 {
		t.Errorf("Expected fractional mention_count preserved, got %v", entry["mention_count"])
	}

	metrics, ok := unmarshaled["metrics"].(map[string]interface{})
	if !ok {
		t.Fatal("metrics field is missing")
	}
	if metrics["critical_gaps"].(float64) != 2 {
		t.Errorf("Expected critical_gaps 2, got %v", metrics["critical_gaps"])
	}

	// Round-trip back into the struct
	var decoded CoverageReport
	if err := json.Unmarshal(jsonBytes, &decoded); err != nil {
		t.Fatalf("Failed to decode report: %v", err)
	}
	if decoded.Results[0].MentionCount != 12.5 {
		t.Errorf("Expected mention count 12.5 after round-trip, got %v", decoded.Results[0].MentionCount)
	}
}

// TestAnalysisResultOmitsEmptyFields verifies optional fields are omitted
func TestAnalysisResultOmitsEmptyFields(t *testing.T) {
	result := &AnalysisResult{
		URL:    "https://example.com",
		SiteID: "site-1",
		Report: &CoverageReport{},
		Scores: &ScoreSet{},
	}

	jsonBytes, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("Failed to marshal result: %v", err)
	}

	var unmarshaled map[string]interface{}
	if err := json.Unmarshal(jsonBytes, &unmarshaled); err != nil {
		t.Fatalf("Failed to unmarshal JSON: %v", err)
	}

	if _, exists := unmarshaled["suggestions"]; exists {
		t.Error("suggestions field should be omitted when nil")
	}
	if _, exists := unmarshaled["cached"]; exists {
		t.Error("cached field should be omitted when false")
	}

	result.Suggestions = &SuggestionSet{Summary: "s"}
	result.Cached = true

	jsonBytes, err = json.Marshal(result)
	if err != nil {
		t.Fatalf("Failed to marshal result with suggestions: %v", err)
	}
	if err := json.Unmarshal(jsonBytes, &unmarshaled); err != nil {
		t.Fatalf("Failed to unmarshal JSON: %v", err)
	}

	if _, exists := unmarshaled["suggestions"]; !exists {
		t.Error("suggestions field should be present when set")
	}
	if unmarshaled["cached"].(bool) != true {
		t.Error("cached field should be present when true")
	}
}

// TestAnalyzeRequestDecoding verifies request field mapping from client JSON
func TestAnalyzeRequestDecoding(t *testing.T) {
	body := `{
		"url": "https://example.com",
		"site_id": "site-1",
		"text": "page text",
		"keywords": ["a", "b"],
		"has_structured_data": true,
		"include_suggestions": true,
		"force": true
	}`

	var req AnalyzeRequest
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		t.Fatalf("Failed to decode request: %v", err)
	}

	if req.URL != "https://example.com" {
		t.Errorf("Expected URL decoded, got %q", req.URL)
	}
	if req.SiteID != "site-1" {
		t.Errorf("Expected site_id decoded, got %q", req.SiteID)
	}
	if len(req.Keywords) != 2 {
		t.Errorf("Expected 2 keywords, got %v", req.Keywords)
	}
	if !req.HasStructuredData || !req.IncludeSuggestions || !req.Force {
		t.Error("Expected boolean flags decoded")
	}
}
