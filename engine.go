package visibility

import (
	"context"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/zombar/visibility/ai"
	"github.com/zombar/visibility/models"
	"github.com/zombar/visibility/slug"
	"github.com/zombar/visibility/storage"
)

// Config contains engine configuration.
type Config struct {
	AITimeout        time.Duration // Bound on a single AI generate call
	MaxExcerptLength int           // Page text excerpt embedded in prompts
	MaxTextLength    int           // Cap applied to page text before analysis
}

// DefaultConfig returns default engine configuration.
func DefaultConfig() Config {
	return Config{
		AITimeout:        20 * time.Second,
		MaxExcerptLength: 3000,
		MaxTextLength:    5000, // matches the upstream fetcher's cap
	}
}

// Engine runs content analysis: entity coverage, visibility scoring, and
// prompt suggestion generation. The AI client and archive are optional;
// without a client every probabilistic path degrades to its deterministic
// fallback, and without an archive raw AI responses are not retained. Engines
// are safe for concurrent use: runs share only the immutable entity catalog
// and the collaborator handles.
type Engine struct {
	config  Config
	ai      ai.Client
	archive storage.Store

	// jitter returns a pseudo-random int in [0,n). Swappable in tests to pin
	// heuristic scores.
	jitter func(n int) int
}

// New creates a new Engine. client may be nil when no AI capability is
// configured; scoring and suggestions then use the heuristic path only.
// archive may be nil.
func New(config Config, client ai.Client, archive storage.Store) *Engine {
	if config.AITimeout <= 0 {
		config.AITimeout = DefaultConfig().AITimeout
	}
	if config.MaxExcerptLength <= 0 {
		config.MaxExcerptLength = DefaultConfig().MaxExcerptLength
	}
	if config.MaxTextLength <= 0 {
		config.MaxTextLength = DefaultConfig().MaxTextLength
	}

	return &Engine{
		config:  config,
		ai:      client,
		archive: archive,
		jitter:  rand.Intn,
	}
}

// AIConfigured reports whether an AI capability is attached.
func (e *Engine) AIConfigured() bool {
	return e.ai != nil
}

// Analyze runs entity coverage and visibility scoring for one page, in
// parallel, and optionally prompt suggestions. It never fails: each component
// carries its own degradation path.
func (e *Engine) Analyze(ctx context.Context, targetURL, siteID string, signal models.PageSignal, includeSuggestions bool) *models.AnalysisResult {
	result := &models.AnalysisResult{
		URL:    targetURL,
		SiteID: siteID,
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		result.Report = e.AnalyzeCoverage(targetURL, siteID, signal)
	}()
	go func() {
		defer wg.Done()
		result.Scores = e.ScoreVisibility(ctx, targetURL, signal)
	}()
	if includeSuggestions {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result.Suggestions = e.GenerateSuggestions(ctx, targetURL, signal)
		}()
	}
	wg.Wait()

	return result
}

// capSignal enforces the configured page text cap. Upstream fetchers already
// truncate; this keeps prompt and threshold math bounded regardless.
func (e *Engine) capSignal(signal models.PageSignal) models.PageSignal {
	if len(signal.Text) > e.config.MaxTextLength {
		signal.Text = signal.Text[:e.config.MaxTextLength]
	}
	return signal
}

// generate runs one bounded AI call. The timeout converts into the same
// failure path as any transport error; there are no retries.
func (e *Engine) generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.config.AITimeout)
	defer cancel()
	return e.ai.Generate(ctx, prompt)
}

// archiveResponse retains raw AI output so operators can inspect what the
// model actually returned, extraction failures included. Best-effort: archive
// errors are logged, never surfaced.
func (e *Engine) archiveResponse(raw, targetURL string) {
	if e.archive == nil || raw == "" {
		return
	}
	name := slug.FromURL(targetURL)
	if name == "" {
		name = "response"
	}
	if _, err := e.archive.SaveResponse(raw, name); err != nil {
		log.Printf("Failed to archive AI response: %v", err)
	}
}

// excerpt returns the page text bounded to the prompt excerpt length.
func (e *Engine) excerpt(text string) string {
	if len(text) > e.config.MaxExcerptLength {
		return text[:e.config.MaxExcerptLength]
	}
	return text
}
