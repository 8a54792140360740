// Package slug derives filesystem- and URL-safe names from titles, hosts,
// and page URLs.
package slug

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const maxLen = 100

var (
	nonAlnumRe  = regexp.MustCompile(`[^a-z0-9-]+`)
	hyphenRunRe = regexp.MustCompile(`-{2,}`)

	// Replacer is safe for concurrent use; the transform chain below is not,
	// so foldMarks builds it per call.
	hyphenate = strings.NewReplacer(" ", "-", "_", "-")
)

// Generate creates a URL-friendly slug: lowercase, accents folded to their
// ASCII base, words joined with single hyphens, at most 100 bytes. Characters
// with no ASCII base form are dropped, not transliterated, so an all-Cyrillic
// input yields "".
func Generate(s string) string {
	if s == "" {
		return ""
	}

	s = foldMarks(strings.ToLower(s))
	s = hyphenate.Replace(s)
	s = nonAlnumRe.ReplaceAllString(s, "")
	s = hyphenRunRe.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")

	// Safe to cut at a byte offset: only ASCII survives the filters above.
	if len(s) > maxLen {
		s = strings.TrimRight(s[:maxLen], "-")
	}
	return s
}

// GenerateWithFallback slugs s, or fallback when s produces an empty slug.
func GenerateWithFallback(s, fallback string) string {
	if slug := Generate(s); slug != "" {
		return slug
	}
	return Generate(fallback)
}

// FromURL generates a slug from a URL's host and path, dropping the scheme,
// query, and fragment so equivalent pages slug identically.
func FromURL(rawURL string) string {
	s := rawURL
	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
	}
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimPrefix(s, "www.")
	s = strings.Trim(s, "/")
	s = strings.ReplaceAll(s, "/", "-")
	s = strings.ReplaceAll(s, ".", "-")
	return Generate(s)
}

// foldMarks decomposes the string and strips combining marks, reducing
// accented characters to their base form.
func foldMarks(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return folded
}
