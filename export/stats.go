package export

import (
	"sort"
	"strings"

	"github.com/hazyhaar/exametl/tagger"
)

// AllLabel names the margin row and column of a crosstab.
const AllLabel = "All"

// Count is one entry of a distribution.
type Count struct {
	Key string `json:"key"`
	N   int    `json:"n"`
}

// Crosstab counts pairs of (row, col) labels. Rows and Cols are sorted.
type Crosstab struct {
	Rows  []string                  `json:"rows"`
	Cols  []string                  `json:"cols"`
	Cells map[string]map[string]int `json:"cells"`
}

func newCrosstab() *Crosstab {
	return &Crosstab{Cells: make(map[string]map[string]int)}
}

func (c *Crosstab) add(row, col string) {
	m, ok := c.Cells[row]
	if !ok {
		m = make(map[string]int)
		c.Cells[row] = m
	}
	m[col]++
}

func (c *Crosstab) finish() {
	cols := make(map[string]bool)
	for r, m := range c.Cells {
		c.Rows = append(c.Rows, r)
		for col := range m {
			cols[col] = true
		}
	}
	for col := range cols {
		c.Cols = append(c.Cols, col)
	}
	sort.Strings(c.Rows)
	sort.Strings(c.Cols)
}

// Get returns the count at (row, col).
func (c *Crosstab) Get(row, col string) int { return c.Cells[row][col] }

// RowTotal sums a row.
func (c *Crosstab) RowTotal(row string) int {
	n := 0
	for _, v := range c.Cells[row] {
		n += v
	}
	return n
}

// ColTotal sums a column.
func (c *Crosstab) ColTotal(col string) int {
	n := 0
	for _, m := range c.Cells {
		n += m[col]
	}
	return n
}

// Total sums every cell.
func (c *Crosstab) Total() int {
	n := 0
	for _, m := range c.Cells {
		for _, v := range m {
			n += v
		}
	}
	return n
}

// Stats summarizes a set of tagged questions.
type Stats struct {
	Questions     int       `json:"questions"`
	TagDifficulty *Crosstab `json:"tag_difficulty"`
	Papers        []Count   `json:"papers"`
	Difficulty    []Count   `json:"difficulty"`
	Types         []Count   `json:"types"`
	PaperTags     *Crosstab `json:"paper_tags"`
	Provenance    []Count   `json:"provenance"`
}

// TopTypes bounds the question-type distribution.
const TopTypes = 10

// BuildStats computes the report tables. Multi-tag questions count once per tag
// in the tag tables.
func BuildStats(qs []tagger.Tagged) *Stats {
	s := &Stats{
		Questions:     len(qs),
		TagDifficulty: newCrosstab(),
		PaperTags:     newCrosstab(),
	}
	papers := make(map[string]int)
	difficulty := make(map[string]int)
	types := make(map[string]int)
	prov := make(map[string]int)

	for _, q := range qs {
		papers[q.PaperID]++
		difficulty[q.Difficulty]++
		types[q.QuestionType]++
		prov[string(q.Provenance)]++
		tags := q.Tags
		if len(tags) == 0 {
			tags = []string{tagger.OtherTag}
		}
		for _, tag := range tags {
			tag = strings.TrimSpace(tag)
			s.TagDifficulty.add(tag, q.Difficulty)
			s.PaperTags.add(q.PaperID, tag)
		}
	}
	s.TagDifficulty.finish()
	s.PaperTags.finish()

	s.Papers = byKey(papers)
	s.Difficulty = byCount(difficulty)
	s.Types = byCount(types)
	if len(s.Types) > TopTypes {
		s.Types = s.Types[:TopTypes]
	}
	s.Provenance = byCount(prov)
	return s
}

func byKey(m map[string]int) []Count {
	out := make([]Count, 0, len(m))
	for k, n := range m {
		out = append(out, Count{Key: k, N: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func byCount(m map[string]int) []Count {
	out := byKey(m)
	sort.SliceStable(out, func(i, j int) bool { return out[i].N > out[j].N })
	return out
}
