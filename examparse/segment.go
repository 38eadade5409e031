package examparse

import (
	"strings"

	"github.com/hazyhaar/exametl/docpipe"
)

// UnknownType labels sections that started before any type header.
const UnknownType = "Unknown"

// Section is a contiguous run of lines under one paper and question type.
type Section struct {
	PaperID      string             `json:"paper_id"`
	QuestionType string             `json:"question_type"`
	Lines        []string           `json:"lines"`
	Provenance   docpipe.Provenance `json:"provenance"`
	PageIndex    int                `json:"page_index"`
}

// Content joins the section lines.
func (s Section) Content() string {
	return strings.Join(s.Lines, "\n")
}

type segmenter struct {
	pat      Patterns
	out      []Section
	paper    string
	qtype    string
	prov     docpipe.Provenance
	page     int
	lines    []string
	hasPaper bool
}

// Segment cuts the pages' line stream into sections. Lines are trimmed and
// blank lines skipped. Lines before the first paper header are dropped.
// A section takes the provenance of the page holding its boundary line.
func Segment(pages []docpipe.Page, pat Patterns) []Section {
	s := &segmenter{pat: pat}
	for _, page := range pages {
		for _, raw := range strings.Split(page.Text, "\n") {
			line := strings.TrimSpace(raw)
			if line == "" {
				continue
			}
			s.feed(line, page)
		}
	}
	s.flush()
	return s.out
}

func (s *segmenter) feed(line string, page docpipe.Page) {
	if id, ok := s.paperID(line); ok {
		s.flush()
		s.paper, s.hasPaper = id, true
		s.qtype = ""
		s.prov, s.page = page.Provenance, page.Index
		return
	}
	if label, ok := s.typeLabel(line); ok {
		s.flush()
		s.qtype = label
		s.prov, s.page = page.Provenance, page.Index
		return
	}
	if s.hasPaper {
		s.lines = append(s.lines, line)
	}
}

// flush emits the pending section if it has content.
func (s *segmenter) flush() {
	if s.hasPaper && len(s.lines) > 0 {
		qtype := s.qtype
		if qtype == "" {
			qtype = UnknownType
		}
		s.out = append(s.out, Section{
			PaperID:      s.paper,
			QuestionType: qtype,
			Lines:        s.lines,
			Provenance:   s.prov,
			PageIndex:    s.page,
		})
	}
	s.lines = nil
}

func (s *segmenter) paperID(line string) (string, bool) {
	if !strings.HasPrefix(line, s.pat.PaperMarker) {
		return "", false
	}
	m := s.pat.Paper.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	if len(m) > 1 && m[1] != "" {
		return s.pat.PaperMarker + m[1], true
	}
	return m[0], true
}

func (s *segmenter) typeLabel(line string) (string, bool) {
	m := s.pat.Type.FindStringSubmatchIndex(line)
	if m == nil || m[0] != 0 {
		return "", false
	}
	for g := 1; g*2 < len(m); g++ {
		if m[g*2] >= 0 && m[g*2+1] > m[g*2] {
			return strings.TrimSpace(line[m[g*2]:m[g*2+1]]), true
		}
	}
	return strings.TrimSpace(line[m[0]:m[1]]), true
}
