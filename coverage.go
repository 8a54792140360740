package visibility

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zombar/visibility/models"
	"github.com/zombar/visibility/slug"
)

// Coverage score blend weights: critical-tier ratio dominates, then the
// high tier, then overall.
const (
	coverageCriticalWeight = 0.5
	coverageHighWeight     = 0.3
	coverageOverallWeight  = 0.2
)

// AnalyzeCoverage matches the entity catalog against the page signal and
// returns a full coverage report. It never fails: empty or garbage input
// produces a report with every entity flagged as a gap.
func (e *Engine) AnalyzeCoverage(targetURL, siteID string, signal models.PageSignal) *models.CoverageReport {
	signal = e.capSignal(signal)

	// Fresh catalog per run: the synthetic site entity followed by the fixed
	// domain entities.
	entities := make([]EntityDefinition, 0, len(defaultEntities)+1)
	entities = append(entities, siteEntity(targetURL))
	entities = append(entities, defaultEntities...)

	now := time.Now().UTC()
	contentLength := len(signal.Text)

	results := make([]models.EntityResult, 0, len(entities))
	metrics := models.CoverageMetrics{}

	var criticalCovered, highCovered, totalCovered int

	for _, entity := range entities {
		score, contextual := mentionScore(entity, signal)
		expected := expectedMentions(entity.Importance, contentLength, contextual)
		gap := score < expected

		results = append(results, models.EntityResult{
			ID:           uuid.New().String(),
			SiteID:       siteID,
			EntityName:   entity.Name,
			EntityType:   entity.Type,
			MentionCount: score,
			Gap:          gap,
			CreatedAt:    now,
		})

		metrics.TotalMentions += score
		switch entity.Importance {
		case ImportanceCritical:
			metrics.CriticalEntities++
			if gap {
				metrics.CriticalGaps++
			} else {
				criticalCovered++
			}
		case ImportanceHigh:
			metrics.HighEntities++
			if gap {
				metrics.HighGaps++
			} else {
				highCovered++
			}
		}
		if gap {
			metrics.TotalGaps++
		} else {
			totalCovered++
		}
	}

	coverageScore := blendCoverageScore(
		tierRatio(criticalCovered, metrics.CriticalEntities),
		tierRatio(highCovered, metrics.HighEntities),
		tierRatio(totalCovered, len(entities)),
	)

	return &models.CoverageReport{
		SiteID:          siteID,
		URL:             targetURL,
		Slug:            slug.GenerateWithFallback(hostFromURL(targetURL), siteID),
		Results:         results,
		AnalysisSummary: coverageSummary(coverageScore, metrics),
		TotalEntities:   len(entities),
		CoverageScore:   coverageScore,
		Metrics:         metrics,
		CreatedAt:       now,
	}
}

// mentionScore computes the weighted mention score for one entity and its
// contextual relevance counter. Exact whole-word matches count at full
// weight, remaining substring occurrences at half weight, with fixed bonuses
// when a keyword shows up in the title or meta description. Substring
// occurrences inside already-matched words are deliberately counted again;
// downstream calibration assumes it.
func mentionScore(entity EntityDefinition, signal models.PageSignal) (float64, int) {
	content := strings.ToLower(signal.Text + " " + signal.Title + " " + signal.Description)
	title := strings.ToLower(signal.Title)
	description := strings.ToLower(signal.Description)
	weight := float64(entity.Weight)

	var score float64
	contextual := 0

	for _, keyword := range entity.Keywords {
		kw := strings.ToLower(keyword)
		if kw == "" {
			continue
		}

		exact := countWholeWord(content, kw)
		score += float64(exact) * weight

		partial := strings.Count(content, kw) - exact
		if partial > 0 {
			score += float64(partial) * weight / 2
		}

		if strings.Contains(title, kw) {
			score += 3 * weight
			contextual += 2
		}
		if strings.Contains(description, kw) {
			score += 2 * weight
			contextual += 1
		}
	}

	return score, contextual
}

// countWholeWord counts case-insensitive whole-word occurrences of kw in s.
// Both inputs are expected to be lowercased already.
func countWholeWord(s, kw string) int {
	re, err := regexp.Compile(`\b` + regexp.QuoteMeta(kw) + `\b`)
	if err != nil {
		return 0
	}
	return len(re.FindAllStringIndex(s, -1))
}

// expectedMentions returns the mention threshold an entity must meet to avoid
// being flagged as a gap. Longer content raises expectations up to a cap;
// the max floors keep expectations finite for empty content. Contextual
// relevance (keyword present in title or description) relaxes the threshold
// by 20%.
func expectedMentions(importance string, contentLength, contextual int) float64 {
	factor := math.Min(float64(contentLength)/1000, 3)

	var expected float64
	switch importance {
	case ImportanceCritical:
		expected = math.Max(5, 3*factor)
	case ImportanceHigh:
		expected = math.Max(3, 2*factor)
	default:
		expected = math.Max(2, 1.5*factor)
	}

	if contextual > 0 {
		expected *= 0.8
	}
	return expected
}

// tierRatio guards the zero-member tier: with nobody to cover, the tier
// contributes nothing to the blend.
func tierRatio(covered, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(covered) / float64(total)
}

// blendCoverageScore folds the tier ratios into the 0-100 coverage score.
func blendCoverageScore(criticalRatio, highRatio, overallRatio float64) int {
	blended := coverageCriticalWeight*criticalRatio +
		coverageHighWeight*highRatio +
		coverageOverallWeight*overallRatio
	score := int(math.Round(100 * blended))
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score
}

// coverageSummary builds the human-readable summary, branching on score bands
// and appending gap counts for the important tiers.
func coverageSummary(score int, metrics models.CoverageMetrics) string {
	var b strings.Builder

	switch {
	case score >= 80:
		b.WriteString("Excellent entity coverage. The page mentions the topics AI search engines look for at the depth they expect.")
	case score >= 60:
		b.WriteString("Good entity coverage. Most important topics are present, with room to deepen a few.")
	default:
		b.WriteString("Entity coverage needs improvement. Key topics are missing or mentioned too thinly for AI search engines to pick up.")
	}

	if metrics.CriticalGaps > 0 {
		fmt.Fprintf(&b, " %d critical %s under-covered.", metrics.CriticalGaps, pluralEntity(metrics.CriticalGaps))
	}
	if metrics.HighGaps > 0 {
		fmt.Fprintf(&b, " %d high-importance %s under-covered.", metrics.HighGaps, pluralEntity(metrics.HighGaps))
	}

	return b.String()
}

func pluralEntity(n int) string {
	if n == 1 {
		return "entity is"
	}
	return "entities are"
}
