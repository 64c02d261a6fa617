package caption

import (
	"regexp"
	"strings"
	"unicode"
)

// Default limits applied when a zero value is configured.
const (
	DefaultMaxWords = 30
	DefaultMaxChars = 300
)

// Template lead-ins that CelebA-style captions repeat on every sentence.
var (
	leadInRe   = regexp.MustCompile(`(?i)(This|The) (person|woman|man|individual|girl|boy) (is|has)`)
	pronounRe  = regexp.MustCompile(`(?i)(She|He) (is|has|wears)`)
	spaceRunRe = regexp.MustCompile(`\s+`)
	commaRunRe = regexp.MustCompile(`,\s*,+`)
)

// Cleaner shortens verbose template captions into a single sentence.
type Cleaner struct {
	MaxWords int
}

// NewCleaner creates a Cleaner with the given word limit.
// Non-positive limits fall back to DefaultMaxWords.
func NewCleaner(maxWords int) *Cleaner {
	if maxWords <= 0 {
		maxWords = DefaultMaxWords
	}
	return &Cleaner{MaxWords: maxWords}
}

// Clean rewrites a verbose multi-sentence caption into one compact sentence:
// template lead-ins are dropped, sentences are joined with commas, whitespace
// and comma runs are collapsed, the result is capped at MaxWords words,
// capitalized, and closed with a period. Empty input stays empty.
func (c *Cleaner) Clean(text string) string {
	text = leadInRe.ReplaceAllString(text, "")
	text = pronounRe.ReplaceAllString(text, "")

	// Combine multiple sentences into one
	text = strings.ReplaceAll(text, ". ", ", ")
	text = strings.ReplaceAll(text, "..", ".")

	text = spaceRunRe.ReplaceAllString(text, " ")
	text = commaRunRe.ReplaceAllString(text, ",")
	text = strings.Trim(text, " .,")

	words := strings.Fields(text)
	if len(words) > c.MaxWords {
		text = strings.Join(words[:c.MaxWords], " ")
	}

	if text == "" {
		return ""
	}

	r := []rune(text)
	r[0] = unicode.ToUpper(r[0])
	text = string(r)

	text = strings.TrimSpace(strings.TrimRight(text, ","))
	return text + "."
}

// Normalize collapses whitespace and caps the caption at maxChars runes.
// This is the light profile used for captions of unknown origin, where
// sentence structure should be preserved as-is.
func Normalize(text string, maxChars int) string {
	if text == "" {
		return ""
	}
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	text = spaceRunRe.ReplaceAllString(strings.TrimSpace(text), " ")
	if r := []rune(text); len(r) > maxChars {
		text = string(r[:maxChars])
	}
	return strings.TrimSpace(text)
}
