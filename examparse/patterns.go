// Package examparse turns extracted pages into papers, question-type
// sections and question records.
//
// Segment walks the merged line stream and cuts it at paper and type
// boundaries. An Extractor then applies an ordered list of question
// patterns to each section; the first pattern that yields a record wins.
// Sections whose text came from recognition try the OCR-tolerant patterns
// first and have known recognition artifacts corrected.
package examparse

import (
	"fmt"
	"regexp"
)

// Default pattern sources.
const (
	DefaultPaperPattern  = `卷([一二三四五六七八九十])`
	DefaultPaperMarker   = "卷"
	DefaultTypePattern   = `^[一二三四五六七八九十]+[、.．]\s*([^、\n]{2,15}?)(?:题|$)`
	DefaultMinContentLen = 10
	DefaultMaxContentLen = 800
)

// DefaultQuestionPatterns: stem plus continuation lines, then stem plus options.
var DefaultQuestionPatterns = []string{
	`(?m)^(\d+)[.．、][ \t\x{3000}]*([^\n]+(?:\n[^\dA-Da-d\n][^\n]*)*)`,
	`(?m)^(\d+)[.．、][ \t\x{3000}]*([^\n]+(?:\n[A-D][.．、][^\n]*)*)`,
}

// DefaultOCRQuestionPatterns tolerate misread digits and terminators. Lines
// opening with a bracketed number stay inside the current question.
var DefaultOCRQuestionPatterns = []string{
	`(?m)^([0-9OolI]{1,3})[.．、,，:：][ \t\x{3000}]*([^\n]+(?:\n[^\dA-Da-dOolI\n][^\n]*)*)`,
}

// PatternSpec is the textual, configurable form of Patterns.
type PatternSpec struct {
	Paper        string   `yaml:"paper_pattern" json:"paper_pattern"`
	PaperMarker  string   `yaml:"paper_marker" json:"paper_marker"`
	Type         string   `yaml:"type_pattern" json:"type_pattern"`
	Questions    []string `yaml:"question_patterns" json:"question_patterns"`
	OCRQuestions []string `yaml:"ocr_question_patterns" json:"ocr_question_patterns"`
}

// Patterns are the compiled boundary and question patterns of one subject.
type Patterns struct {
	Paper        *regexp.Regexp
	PaperMarker  string
	Type         *regexp.Regexp
	Questions    []*regexp.Regexp
	OCRQuestions []*regexp.Regexp
}

// Compile compiles s, filling empty fields with the defaults. Question
// patterns must capture (number, content).
func (s PatternSpec) Compile() (Patterns, error) {
	if s.Paper == "" {
		s.Paper = DefaultPaperPattern
	}
	if s.PaperMarker == "" {
		s.PaperMarker = DefaultPaperMarker
	}
	if s.Type == "" {
		s.Type = DefaultTypePattern
	}
	if len(s.Questions) == 0 {
		s.Questions = DefaultQuestionPatterns
	}
	if s.OCRQuestions == nil {
		s.OCRQuestions = DefaultOCRQuestionPatterns
	}

	var p Patterns
	var err error
	p.PaperMarker = s.PaperMarker
	if p.Paper, err = regexp.Compile(s.Paper); err != nil {
		return Patterns{}, fmt.Errorf("paper pattern: %w", err)
	}
	if p.Type, err = regexp.Compile(s.Type); err != nil {
		return Patterns{}, fmt.Errorf("type pattern: %w", err)
	}
	if p.Questions, err = compileQuestions(s.Questions); err != nil {
		return Patterns{}, err
	}
	if p.OCRQuestions, err = compileQuestions(s.OCRQuestions); err != nil {
		return Patterns{}, fmt.Errorf("ocr: %w", err)
	}
	return p, nil
}

func compileQuestions(srcs []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(srcs))
	for i, src := range srcs {
		re, err := regexp.Compile(src)
		if err != nil {
			return nil, fmt.Errorf("question pattern %d: %w", i, err)
		}
		if re.NumSubexp() < 2 {
			return nil, fmt.Errorf("question pattern %d: needs (number) and (content) groups, has %d", i, re.NumSubexp())
		}
		out = append(out, re)
	}
	return out, nil
}

// DefaultPatterns returns the compiled defaults.
func DefaultPatterns() Patterns {
	p, err := PatternSpec{}.Compile()
	if err != nil {
		panic("examparse: default patterns: " + err.Error())
	}
	return p
}
