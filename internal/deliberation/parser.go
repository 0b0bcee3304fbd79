package deliberation

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	defaultConfidence   = 0.7
	neutralReviewScore  = 5.0
	reasoningTruncation = 200
)

// Extractor pulls structured fields out of generated prose. Extraction
// never fails: an unparsable field resolves to its documented default.
type Extractor interface {
	// Confidence returns a value in [0,1], defaulting to 0.7.
	Confidence(text string) float64
	// Reasoning returns the labelled reasoning segment, or a truncated
	// prefix of the text.
	Reasoning(text string) string
	// ReviewScore returns a value in [0,10] and whether it was actually
	// parsed; unparsed defaults to the neutral 5.
	ReviewScore(text string) (float64, bool)
	// Strengths and Weaknesses are display-only heuristics.
	Strengths(text string) string
	Weaknesses(text string) string
}

var (
	confidenceRe = regexp.MustCompile(`(?i)confidence:?\s*(\d{1,3})\s*%`)
	reasoningRe  = regexp.MustCompile(`(?i)reasoning:?\s*([^\n]+)`)
	scoreRe      = regexp.MustCompile(`(?i)score:?\s*(\d+(?:\.\d+)?)\s*/\s*10`)
	strengthsRe  = regexp.MustCompile(`(?i)strengths?:?\s*([^\n]+)`)
	weaknessesRe = regexp.MustCompile(`(?i)weakness(?:es)?:?\s*([^\n]+)`)
)

// RegexExtractor is the pattern-based fallback extractor. Providers that
// support schema-constrained output should be preferred where available;
// this handles the free-text case.
type RegexExtractor struct{}

// NewExtractor returns the default extractor.
func NewExtractor() Extractor {
	return RegexExtractor{}
}

// Confidence implements Extractor.
func (RegexExtractor) Confidence(text string) float64 {
	m := confidenceRe.FindStringSubmatch(text)
	if m == nil {
		return defaultConfidence
	}
	pct, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return defaultConfidence
	}
	if pct > 100 {
		pct = 100
	}
	return pct / 100
}

// Reasoning implements Extractor.
func (RegexExtractor) Reasoning(text string) string {
	if m := reasoningRe.FindStringSubmatch(text); m != nil {
		return truncate(strings.TrimSpace(m[1]), reasoningTruncation)
	}
	return truncate(strings.TrimSpace(text), reasoningTruncation)
}

// ReviewScore implements Extractor.
func (RegexExtractor) ReviewScore(text string) (float64, bool) {
	m := scoreRe.FindStringSubmatch(text)
	if m == nil {
		return neutralReviewScore, false
	}
	score, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return neutralReviewScore, false
	}
	if score < 0 {
		score = 0
	}
	if score > 10 {
		score = 10
	}
	return score, true
}

// Strengths implements Extractor.
func (RegexExtractor) Strengths(text string) string {
	if m := strengthsRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// Weaknesses implements Extractor.
func (RegexExtractor) Weaknesses(text string) string {
	if m := weaknessesRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// truncate caps s at limit runes, never splitting a multi-byte character.
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
