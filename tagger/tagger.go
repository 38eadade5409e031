// Package tagger assigns knowledge-point tags and a difficulty level to
// extracted questions using ordered keyword rules.
package tagger

import (
	"strings"

	"github.com/hazyhaar/exametl/examparse"
)

const (
	// OtherTag is assigned when no tag rule matches.
	OtherTag = "Other"
	// DefaultDifficulty is used when no difficulty rule matches.
	DefaultDifficulty = "Medium"
)

// TagRule assigns Tag when any keyword is a substring of the content.
type TagRule struct {
	Tag      string   `yaml:"tag" json:"tag"`
	Keywords []string `yaml:"keywords" json:"keywords"`
}

// DifficultyRule assigns Level when Match is a substring of the question type.
type DifficultyRule struct {
	Match string `yaml:"match" json:"match"`
	Level string `yaml:"level" json:"level"`
}

// DefaultDifficultyRules apply when a profile declares none.
var DefaultDifficultyRules = []DifficultyRule{
	{Match: "选择", Level: "Simple"},
	{Match: "填空", Level: "Simple"},
	{Match: "应用", Level: "Medium"},
	{Match: "设计", Level: "Hard"},
}

// Tagged is a question with its tags and difficulty.
type Tagged struct {
	examparse.Question
	Tags       []string `json:"tags"`
	Difficulty string   `json:"difficulty"`
}

// TagString joins the tags the way they are exported.
func (t Tagged) TagString() string {
	return strings.Join(t.Tags, ", ")
}

// Tagger evaluates the rule tables.
type Tagger struct {
	tags       []TagRule
	difficulty []DifficultyRule
}

// New creates a Tagger. A nil difficulty table uses DefaultDifficultyRules.
func New(tags []TagRule, difficulty []DifficultyRule) *Tagger {
	if difficulty == nil {
		difficulty = DefaultDifficultyRules
	}
	return &Tagger{tags: tags, difficulty: difficulty}
}

// Tags returns every tag with a keyword contained in content, in rule
// order and without duplicates, or [Other].
func (t *Tagger) Tags(content string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, rule := range t.tags {
		if seen[rule.Tag] {
			continue
		}
		for _, kw := range rule.Keywords {
			if kw != "" && strings.Contains(content, kw) {
				out = append(out, rule.Tag)
				seen[rule.Tag] = true
				break
			}
		}
	}
	if len(out) == 0 {
		return []string{OtherTag}
	}
	return out
}

// Difficulty returns the level of the first rule matching questionType.
func (t *Tagger) Difficulty(questionType string) string {
	for _, rule := range t.difficulty {
		if rule.Match != "" && strings.Contains(questionType, rule.Match) {
			return rule.Level
		}
	}
	return DefaultDifficulty
}

// TagAll tags every question, preserving order.
func (t *Tagger) TagAll(qs []examparse.Question) []Tagged {
	out := make([]Tagged, len(qs))
	for i, q := range qs {
		out[i] = Tagged{
			Question:   q,
			Tags:       t.Tags(q.Content),
			Difficulty: t.Difficulty(q.QuestionType),
		}
	}
	return out
}
