// Package subject holds the per-subject parsing and tagging profiles and
// detects which subject a paper belongs to.
package subject

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/exametl/examparse"
	"github.com/hazyhaar/exametl/tagger"
)

// DefaultID is the fallback subject.
const DefaultID = "default"

// Profile configures parsing and tagging for one subject.
type Profile struct {
	ID   string `yaml:"subject_id" json:"subject_id"`
	Name string `yaml:"subject_name" json:"subject_name"`

	examparse.PatternSpec `yaml:",inline"`

	MinContentLength int `yaml:"min_content_length" json:"min_content_length"`
	MaxContentLength int `yaml:"max_content_length" json:"max_content_length"`

	Tags       []tagger.TagRule        `yaml:"tags" json:"tags"`
	Difficulty []tagger.DifficultyRule `yaml:"difficulty" json:"difficulty"`

	patterns examparse.Patterns
}

// ParseProfile decodes and compiles a YAML profile.
func ParseProfile(data []byte) (*Profile, error) {
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("subject: parse profile: %w", err)
	}
	if p.ID == "" {
		p.ID = DefaultID
	}
	if p.Name == "" {
		p.Name = "Unknown"
	}
	if p.MinContentLength <= 0 {
		p.MinContentLength = examparse.DefaultMinContentLen
	}
	if p.MaxContentLength <= 0 {
		p.MaxContentLength = examparse.DefaultMaxContentLen
	}
	if p.MaxContentLength < p.MinContentLength {
		return nil, fmt.Errorf("subject %s: max_content_length %d < min_content_length %d",
			p.ID, p.MaxContentLength, p.MinContentLength)
	}
	compiled, err := p.PatternSpec.Compile()
	if err != nil {
		return nil, fmt.Errorf("subject %s: %w", p.ID, err)
	}
	p.patterns = compiled
	return &p, nil
}

// Patterns returns the compiled patterns.
func (p *Profile) Patterns() examparse.Patterns { return p.patterns }

// WithLengths returns a copy with content bounds overridden; non-positive
// values keep the profile's own. A minimum above the resulting maximum
// raises the maximum to match.
func (p *Profile) WithLengths(minLen, maxLen int) *Profile {
	cp := *p
	if minLen > 0 {
		cp.MinContentLength = minLen
	}
	if maxLen > 0 {
		cp.MaxContentLength = maxLen
	}
	if cp.MaxContentLength < cp.MinContentLength {
		cp.MaxContentLength = cp.MinContentLength
	}
	return &cp
}

// Extractor builds the question extractor of this profile.
func (p *Profile) Extractor() *examparse.Extractor {
	return examparse.NewExtractor(p.patterns, p.MinContentLength, p.MaxContentLength)
}

// Tagger builds the tagger of this profile.
func (p *Profile) Tagger() *tagger.Tagger {
	return tagger.New(p.Tags, p.Difficulty)
}
