package visibility

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

// ErrNoStructuredData is returned when no extraction strategy recovers a
// structured payload from the model output. Callers are expected to catch it
// and fall back to their deterministic path; the extractor never fabricates
// data.
var ErrNoStructuredData = errors.New("no structured data found in response")

var (
	taggedFenceRe   = regexp.MustCompile("(?s)```[a-zA-Z]+[ \t]*\r?\n(.*?)```")
	untaggedFenceRe = regexp.MustCompile("(?s)```[ \t]*\r?\n?(.*?)```")
)

// extractStrategy attempts to recover a structured object from raw model
// output. Strategies are pure and independent; the first success wins.
type extractStrategy func(string) (map[string]interface{}, bool)

var extractStrategies = []extractStrategy{
	fromTaggedFence,
	fromUntaggedFence,
	fromObjectSpan,
	fromArraySpan,
}

// ExtractStructured recovers a JSON object from free-form model output. It
// tries, in order: a language-tagged fenced block, an untagged fenced block,
// the first balanced {...} span, and the first balanced [...] span rewrapped
// as {"suggestions": ...}. Only a non-null object is accepted.
func ExtractStructured(raw string) (map[string]interface{}, error) {
	for _, strategy := range extractStrategies {
		if parsed, ok := strategy(raw); ok {
			return parsed, nil
		}
	}
	return nil, ErrNoStructuredData
}

func fromTaggedFence(raw string) (map[string]interface{}, bool) {
	m := taggedFenceRe.FindStringSubmatch(raw)
	if m == nil {
		return nil, false
	}
	return parseObject(m[1])
}

func fromUntaggedFence(raw string) (map[string]interface{}, bool) {
	m := untaggedFenceRe.FindStringSubmatch(raw)
	if m == nil {
		return nil, false
	}
	return parseObject(m[1])
}

func fromObjectSpan(raw string) (map[string]interface{}, bool) {
	span, ok := balancedSpan(raw, '{', '}')
	if !ok {
		return nil, false
	}
	return parseObject(span)
}

// fromArraySpan recovers a bare array and rewraps it as an object so
// downstream consumers always see the same shape.
func fromArraySpan(raw string) (map[string]interface{}, bool) {
	span, ok := balancedSpan(raw, '[', ']')
	if !ok {
		return nil, false
	}

	var arr []interface{}
	if err := json.Unmarshal([]byte(stripFenceMarkers(span)), &arr); err != nil {
		return nil, false
	}
	return map[string]interface{}{"suggestions": arr}, true
}

// parseObject strips residual fence markers and parses the candidate,
// accepting only a non-null JSON object.
func parseObject(candidate string) (map[string]interface{}, bool) {
	cleaned := stripFenceMarkers(candidate)
	if cleaned == "" {
		return nil, false
	}

	var parsed map[string]interface{}
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return nil, false
	}
	if parsed == nil {
		return nil, false
	}
	return parsed, true
}

// stripFenceMarkers removes leftover code-fence syntax from a candidate,
// including a leading language tag on its own line.
func stripFenceMarkers(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	// A bare language tag can survive when the closing fence was missing.
	if i := strings.IndexByte(s, '\n'); i > 0 {
		first := strings.TrimSpace(s[:i])
		if len(first) > 0 && len(first) < 16 && isAlpha(first) {
			s = strings.TrimSpace(s[i+1:])
		}
	}
	return s
}

func isAlpha(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < 'a' || c > 'z') && (c < 'A' || c > 'Z') {
			return false
		}
	}
	return true
}

// balancedSpan returns the first balanced-looking span delimited by open and
// close, found by greedy depth counting. Delimiters inside JSON strings are
// not interpreted; "balanced-looking" is all the AI output warrants.
func balancedSpan(s string, open, close byte) (string, bool) {
	start := strings.IndexByte(s, open)
	if start < 0 {
		return "", false
	}

	depth := 0
	for i := start; i < len(s); i++ {
		switch s[i] {
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
