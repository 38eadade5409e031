package examparse

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/hazyhaar/exametl/docpipe"
)

// Question is one extracted question record.
type Question struct {
	PaperID      string             `json:"paper_id"`
	QuestionType string             `json:"question_type"`
	Number       string             `json:"number"`
	Content      string             `json:"content"`
	Provenance   docpipe.Provenance `json:"provenance"`
	PageIndex    int                `json:"page_index"`
}

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	// junkRe: nothing but digits, option letters, whitespace and punctuation.
	junkRe = regexp.MustCompile(`^[0-9A-Da-d\s\p{P}]+$`)
)

// Extractor applies ordered question patterns to sections.
type Extractor struct {
	patterns Patterns
	minLen   int
	maxLen   int
}

// NewExtractor creates an Extractor. Content shorter than minLen runes is
// discarded, longer than maxLen truncated; non-positive values take the
// defaults (10, 800).
func NewExtractor(p Patterns, minLen, maxLen int) *Extractor {
	if minLen <= 0 {
		minLen = DefaultMinContentLen
	}
	if maxLen <= 0 {
		maxLen = DefaultMaxContentLen
	}
	return &Extractor{patterns: p, minLen: minLen, maxLen: maxLen}
}

// ExtractAll extracts every section in order.
func (e *Extractor) ExtractAll(sections []Section) []Question {
	var out []Question
	for _, s := range sections {
		out = append(out, e.Extract(s)...)
	}
	return out
}

// Extract returns the records of the first pattern producing at least one
// accepted record. Records from different patterns are never merged.
func (e *Extractor) Extract(s Section) []Question {
	content := s.Content()
	recognized := s.Provenance == docpipe.ProvenanceRecognized

	for _, re := range e.patternsFor(recognized) {
		var out []Question
		for _, m := range re.FindAllStringSubmatch(content, -1) {
			number, text, ok := e.clean(m[1], m[2], recognized)
			if !ok {
				continue
			}
			out = append(out, Question{
				PaperID:      s.PaperID,
				QuestionType: s.QuestionType,
				Number:       number,
				Content:      text,
				Provenance:   s.Provenance,
				PageIndex:    s.PageIndex,
			})
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

func (e *Extractor) patternsFor(recognized bool) []*regexp.Regexp {
	if !recognized {
		return e.patterns.Questions
	}
	all := make([]*regexp.Regexp, 0, len(e.patterns.OCRQuestions)+len(e.patterns.Questions))
	all = append(all, e.patterns.OCRQuestions...)
	return append(all, e.patterns.Questions...)
}

// clean normalizes one candidate and applies the content filters.
func (e *Extractor) clean(number, raw string, recognized bool) (string, string, bool) {
	number = strings.TrimSpace(number)
	if recognized {
		raw = CorrectRecognized(raw)
		number = normalizeNumber(number)
	}
	text := strings.TrimSpace(whitespaceRe.ReplaceAllString(raw, " "))
	if utf8.RuneCountInString(text) < e.minLen {
		return "", "", false
	}
	if junkRe.MatchString(text) {
		return "", "", false
	}
	if utf8.RuneCountInString(text) > e.maxLen {
		text = string([]rune(text)[:e.maxLen])
	}
	return number, text, true
}
