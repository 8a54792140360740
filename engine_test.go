package visibility

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/zombar/visibility/models"
)

func TestNewAppliesDefaults(t *testing.T) {
	e := New(Config{}, nil, nil)

	if e.config.AITimeout != 20*time.Second {
		t.Errorf("Expected default AI timeout 20s, got %v", e.config.AITimeout)
	}
	if e.config.MaxExcerptLength != 3000 {
		t.Errorf("Expected default excerpt length 3000, got %d", e.config.MaxExcerptLength)
	}
	if e.config.MaxTextLength != 5000 {
		t.Errorf("Expected default text cap 5000, got %d", e.config.MaxTextLength)
	}
	if e.jitter == nil {
		t.Error("Expected jitter source to be initialized")
	}
}

func TestAIConfigured(t *testing.T) {
	if New(DefaultConfig(), nil, nil).AIConfigured() {
		t.Error("Expected AIConfigured false without a client")
	}
	if !New(DefaultConfig(), &stubAIClient{}, nil).AIConfigured() {
		t.Error("Expected AIConfigured true with a client")
	}
}

func TestAnalyzeReturnsAllComponents(t *testing.T) {
	e := New(DefaultConfig(), nil, nil)

	signal := models.PageSignal{Text: "ai visibility content", Title: "AI Visibility"}
	result := e.Analyze(context.Background(), "https://example.com/page", "site-1", signal, true)

	if result.URL != "https://example.com/page" {
		t.Errorf("Expected URL propagated, got %q", result.URL)
	}
	if result.SiteID != "site-1" {
		t.Errorf("Expected site ID propagated, got %q", result.SiteID)
	}
	if result.Report == nil {
		t.Fatal("Expected coverage report")
	}
	if result.Report.SiteID != "site-1" {
		t.Errorf("Expected report site ID site-1, got %q", result.Report.SiteID)
	}
	if result.Scores == nil {
		t.Fatal("Expected score set")
	}
	if result.Scores.AnalysisMethod != MethodHeuristicNoKey {
		t.Errorf("Expected heuristic scores without AI client, got %q", result.Scores.AnalysisMethod)
	}
	if result.Suggestions == nil {
		t.Fatal("Expected suggestions when requested")
	}
}

func TestAnalyzeWithoutSuggestions(t *testing.T) {
	e := New(DefaultConfig(), nil, nil)

	result := e.Analyze(context.Background(), "https://example.com", "site-1", models.PageSignal{}, false)

	if result.Suggestions != nil {
		t.Error("Expected no suggestions when not requested")
	}
	if result.Report == nil || result.Scores == nil {
		t.Error("Expected report and scores regardless of suggestion flag")
	}
}

// rendezvousAIClient signals each Generate call and then blocks until
// released, so the test can observe calls in flight at the same time.
type rendezvousAIClient struct {
	arrived chan struct{}
	release chan struct{}
}

func (c *rendezvousAIClient) Generate(ctx context.Context, prompt string) (string, error) {
	c.arrived <- struct{}{}
	select {
	case <-c.release:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	return "", errors.New("released")
}

func TestAnalyzeRunsComponentsConcurrently(t *testing.T) {
	client := &rendezvousAIClient{
		arrived: make(chan struct{}, 2),
		release: make(chan struct{}),
	}
	e := New(DefaultConfig(), client, nil)

	done := make(chan *models.AnalysisResult, 1)
	go func() {
		done <- e.Analyze(context.Background(), "https://example.com", "site-1", models.PageSignal{}, true)
	}()

	// Scoring and suggestion generation must both reach the AI client while
	// neither has been released
	for i := 0; i < 2; i++ {
		select {
		case <-client.arrived:
		case <-time.After(5 * time.Second):
			t.Fatal("Expected scoring and suggestion calls to run concurrently")
		}
	}
	close(client.release)

	result := <-done
	if !strings.HasPrefix(result.Scores.AnalysisMethod, "heuristic (") {
		t.Errorf("Expected heuristic fallback after released stub, got %q", result.Scores.AnalysisMethod)
	}
	if result.Suggestions == nil || result.Suggestions.Total == 0 {
		t.Error("Expected fallback suggestions after released stub")
	}
}

func TestCapSignal(t *testing.T) {
	config := DefaultConfig()
	config.MaxTextLength = 10
	e := New(config, nil, nil)

	signal := models.PageSignal{
		Text:  "0123456789 overflow",
		Title: "kept as-is",
	}
	capped := e.capSignal(signal)

	if capped.Text != "0123456789" {
		t.Errorf("capSignal() text = %q, expected %q", capped.Text, "0123456789")
	}
	if capped.Title != "kept as-is" {
		t.Errorf("Expected title untouched, got %q", capped.Title)
	}

	short := e.capSignal(models.PageSignal{Text: "short"})
	if short.Text != "short" {
		t.Errorf("Expected short text untouched, got %q", short.Text)
	}
}

func TestExcerpt(t *testing.T) {
	config := DefaultConfig()
	config.MaxExcerptLength = 5
	e := New(config, nil, nil)

	if got := e.excerpt("abcdefgh"); got != "abcde" {
		t.Errorf("excerpt() = %q, expected %q", got, "abcde")
	}
	if got := e.excerpt("abc"); got != "abc" {
		t.Errorf("excerpt() = %q, expected %q", got, "abc")
	}
}
