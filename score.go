package visibility

import (
	"context"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/zombar/visibility/models"
)

// Analysis method labels carried on every ScoreSet and SuggestionSet for
// observability. Fallback labels embed the (truncated) failure reason.
const (
	MethodAIPowered      = "ai_powered"
	MethodHeuristicNoKey = "heuristic (no API key configured)"
)

// maxReasonLength bounds failure reasons carried in method labels.
const maxReasonLength = 120

// The five sub-score keys the AI response must supply, each numeric.
var scorePayloadKeys = []string{
	"ai_visibility_score",
	"schema_score",
	"semantic_score",
	"citation_score",
	"technical_seo_score",
}

// Content longer than this counts as substantial for the heuristic path.
const heuristicContentThreshold = 1500

// heuristicJitterMax bounds the random variety added to heuristic scores.
const heuristicJitterMax = 10

// ScoreVisibility produces the five-factor visibility score for a page. It
// never fails outward: an unavailable AI capability, a transport error, a
// timeout, unextractable output, or an invalid payload all degrade to the
// deterministic heuristic, with the reason recorded in the analysis method.
func (e *Engine) ScoreVisibility(ctx context.Context, targetURL string, signal models.PageSignal) *models.ScoreSet {
	signal = e.capSignal(signal)

	if e.ai == nil {
		return e.scoreHeuristic(signal, MethodHeuristicNoKey)
	}

	raw, err := e.generate(ctx, buildScorePrompt(targetURL, signal, e.excerpt(signal.Text)))
	if err != nil {
		log.Printf("AI scoring failed, using heuristic fallback: %v", err)
		return e.scoreHeuristic(signal, fallbackMethod(err.Error()))
	}
	e.archiveResponse(raw, targetURL)

	payload, err := ExtractStructured(raw)
	if err != nil {
		log.Printf("AI scoring returned no structured data, using heuristic fallback")
		return e.scoreHeuristic(signal, fallbackMethod(err.Error()))
	}

	scores, err := scoresFromPayload(payload)
	if err != nil {
		log.Printf("AI score payload invalid, using heuristic fallback: %v", err)
		return e.scoreHeuristic(signal, fallbackMethod(err.Error()))
	}

	scores.AnalysisMethod = MethodAIPowered
	scores.CreatedAt = time.Now().UTC()
	return scores
}

// buildScorePrompt crafts the single analysis prompt for the AI path.
func buildScorePrompt(targetURL string, signal models.PageSignal, excerpt string) string {
	var b strings.Builder

	b.WriteString("Analyze how visible this web page is to AI search engines and assistants.\n\n")
	fmt.Fprintf(&b, "URL: %s\n", targetURL)
	fmt.Fprintf(&b, "Title: %s\n", signal.Title)
	fmt.Fprintf(&b, "Meta description: %s\n", signal.Description)
	fmt.Fprintf(&b, "Structured data present: %t\n\n", signal.HasStructuredData)
	fmt.Fprintf(&b, "Page content excerpt:\n%s\n\n", excerpt)
	b.WriteString("Score each factor from 1 to 100 and respond with ONLY this JSON object, no other text:\n")
	b.WriteString(`{"ai_visibility_score": <int>, "schema_score": <int>, "semantic_score": <int>, "citation_score": <int>, "technical_seo_score": <int>}`)

	return b.String()
}

// scoresFromPayload validates the extracted payload: all five keys present
// and numeric. Out-of-range values are clamped rather than rejected.
func scoresFromPayload(payload map[string]interface{}) (*models.ScoreSet, error) {
	values := make(map[string]float64, len(scorePayloadKeys))
	for _, key := range scorePayloadKeys {
		raw, ok := payload[key]
		if !ok {
			return nil, fmt.Errorf("missing score key %q", key)
		}
		num, ok := raw.(float64)
		if !ok {
			return nil, fmt.Errorf("score key %q is not numeric", key)
		}
		values[key] = num
	}

	return &models.ScoreSet{
		AIVisibility: clampScore(values["ai_visibility_score"]),
		Schema:       clampScore(values["schema_score"]),
		Semantic:     clampScore(values["semantic_score"]),
		Citation:     clampScore(values["citation_score"]),
		TechnicalSEO: clampScore(values["technical_seo_score"]),
	}, nil
}

// scoreHeuristic computes the deterministic fallback score from page signal
// indicators. A bounded random jitter keeps unrelated sites from landing on
// identical scores; it never moves a score across the [1,100] bounds.
func (e *Engine) scoreHeuristic(signal models.PageSignal, method string) *models.ScoreSet {
	hasTitle := strings.TrimSpace(signal.Title) != ""
	hasDescription := strings.TrimSpace(signal.Description) != ""
	hasKeywords := len(signal.Keywords) > 0
	hasStructuredData := signal.HasStructuredData
	substantial := len(signal.Text) > heuristicContentThreshold

	aiVisibility := 25
	if hasStructuredData {
		aiVisibility += 20
	}
	if hasTitle {
		aiVisibility += 15
	}
	if hasDescription {
		aiVisibility += 10
	}
	if substantial {
		aiVisibility += 10
	}

	schema := 15
	if hasStructuredData {
		schema += 45
	}
	if hasTitle {
		schema += 5
	}
	if hasDescription {
		schema += 5
	}
	if substantial {
		schema += 5
	}

	semantic := 30
	if hasTitle {
		semantic += 15
	}
	if hasDescription {
		semantic += 15
	}
	if substantial {
		semantic += 10
	}
	if hasKeywords {
		semantic += 5
	}

	citation := 20
	if hasDescription {
		citation += 15
	}
	if substantial {
		citation += 15
	}
	if hasStructuredData {
		citation += 5
	}
	if hasTitle {
		citation += 5
	}

	technicalSEO := 20
	if hasTitle {
		technicalSEO += 15
	}
	if hasDescription {
		technicalSEO += 15
	}
	if hasKeywords {
		technicalSEO += 10
	}
	if hasStructuredData {
		technicalSEO += 10
	}
	if substantial {
		technicalSEO += 5
	}

	return &models.ScoreSet{
		AIVisibility:   clampScore(float64(aiVisibility + e.jitter(heuristicJitterMax+1))),
		Schema:         clampScore(float64(schema + e.jitter(heuristicJitterMax+1))),
		Semantic:       clampScore(float64(semantic + e.jitter(heuristicJitterMax+1))),
		Citation:       clampScore(float64(citation + e.jitter(heuristicJitterMax+1))),
		TechnicalSEO:   clampScore(float64(technicalSEO + e.jitter(heuristicJitterMax+1))),
		AnalysisMethod: method,
		CreatedAt:      time.Now().UTC(),
	}
}

// clampScore rounds a raw value and clamps it into the [1,100] score range.
func clampScore(v float64) int {
	score := int(math.Round(v))
	if score < 1 {
		return 1
	}
	if score > 100 {
		return 100
	}
	return score
}

// fallbackMethod builds the heuristic provenance label, truncating the
// failure reason so method strings stay log-friendly.
func fallbackMethod(reason string) string {
	reason = strings.TrimSpace(reason)
	if len(reason) > maxReasonLength {
		reason = reason[:maxReasonLength] + "..."
	}
	return fmt.Sprintf("heuristic (%s)", reason)
}
