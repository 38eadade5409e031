package export

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/mattn/go-runewidth"
)

// Report is a titled Stats ready for rendering.
type Report struct {
	Title     string
	Subject   string
	Source    string
	Generated time.Time
	Stats     *Stats
}

// Table is a rendered grid: a header row and body rows.
type Table struct {
	Caption string
	Header  []string
	Rows    [][]string
}

// Tables lays out the report sections in display order.
func (r *Report) Tables() []Table {
	s := r.Stats
	return []Table{
		crosstabTable("知识点标签 × 难度", "Tag", s.TagDifficulty, true),
		countTable("各分卷题目分布", "Paper_ID", s.Papers),
		countTable("难度分布", "Difficulty", s.Difficulty),
		countTable(fmt.Sprintf("题型分布 (Top %d)", TopTypes), "Question_Type", s.Types),
		crosstabTable("各分卷的知识点分布", "Paper", s.PaperTags, false),
		countTable("文本来源", "Provenance", s.Provenance),
	}
}

func countTable(caption, key string, counts []Count) Table {
	t := Table{Caption: caption, Header: []string{key, "Count"}}
	for _, c := range counts {
		t.Rows = append(t.Rows, []string{c.Key, strconv.Itoa(c.N)})
	}
	return t
}

func crosstabTable(caption, corner string, c *Crosstab, margins bool) Table {
	t := Table{Caption: caption, Header: append([]string{corner}, c.Cols...)}
	if margins {
		t.Header = append(t.Header, AllLabel)
	}
	for _, r := range c.Rows {
		row := []string{r}
		for _, col := range c.Cols {
			row = append(row, strconv.Itoa(c.Get(r, col)))
		}
		if margins {
			row = append(row, strconv.Itoa(c.RowTotal(r)))
		}
		t.Rows = append(t.Rows, row)
	}
	if margins {
		row := []string{AllLabel}
		for _, col := range c.Cols {
			row = append(row, strconv.Itoa(c.ColTotal(col)))
		}
		row = append(row, strconv.Itoa(c.Total()))
		t.Rows = append(t.Rows, row)
	}
	return t
}

// WriteText renders the report as aligned plain text. Column widths are
// measured in terminal cells so CJK labels line up.
func WriteText(w io.Writer, r *Report) error {
	var b strings.Builder
	rule := strings.Repeat("=", 70)
	fmt.Fprintf(&b, "%s\n%s\n%s\n", rule, r.Title, rule)
	if r.Subject != "" {
		fmt.Fprintf(&b, "Subject: %s\n", r.Subject)
	}
	if r.Source != "" {
		fmt.Fprintf(&b, "Source: %s\n", r.Source)
	}
	fmt.Fprintf(&b, "Questions: %d\n", r.Stats.Questions)
	for _, t := range r.Tables() {
		fmt.Fprintf(&b, "\n【%s】\n", t.Caption)
		writeGrid(&b, t)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func writeGrid(b *strings.Builder, t Table) {
	widths := make([]int, len(t.Header))
	measure := func(row []string) {
		for i, cell := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], runewidth.StringWidth(cell))
			}
		}
	}
	measure(t.Header)
	for _, row := range t.Rows {
		measure(row)
	}
	line := func(row []string) {
		for i, cell := range row {
			if i >= len(widths) {
				break
			}
			if i > 0 {
				b.WriteString("  ")
			}
			if i == len(row)-1 {
				b.WriteString(cell)
				continue
			}
			b.WriteString(runewidth.FillRight(cell, widths[i]))
		}
		b.WriteByte('\n')
	}
	line(t.Header)
	for _, row := range t.Rows {
		line(row)
	}
}

var htmlReport = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body>
<h1>{{.Title}}</h1>
<ul>
{{- if .Subject}}<li>Subject: {{.Subject}}</li>{{end}}
{{- if .Source}}<li>Source: {{.Source}}</li>{{end}}
<li>Questions: {{.Stats.Questions}}</li>
{{- if not .Generated.IsZero}}<li>Generated: {{.Generated.Format "2006-01-02 15:04:05"}}</li>{{end}}
</ul>
{{range .Tables}}
<h2>{{.Caption}}</h2>
<table>
<thead><tr>{{range .Header}}<th>{{.}}</th>{{end}}</tr></thead>
<tbody>
{{- range .Rows}}
<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>
{{- end}}
</tbody>
</table>
{{end}}
</body>
</html>
`))

// WriteHTML renders the report as a standalone HTML page.
func WriteHTML(w io.Writer, r *Report) error {
	return htmlReport.Execute(w, r)
}

var mdConverter = converter.NewConverter(
	converter.WithPlugins(
		base.NewBasePlugin(),
		commonmark.NewCommonmarkPlugin(),
		table.NewTablePlugin(),
	),
)

// WriteMarkdown renders the HTML report and converts it to Markdown.
func WriteMarkdown(w io.Writer, r *Report) error {
	var buf bytes.Buffer
	if err := WriteHTML(&buf, r); err != nil {
		return err
	}
	md, err := mdConverter.ConvertString(buf.String())
	if err != nil {
		return fmt.Errorf("export: markdown: %w", err)
	}
	_, err = io.WriteString(w, md+"\n")
	return err
}

// SaveReports writes <stem>.txt, <stem>.html and <stem>.md into dir and
// returns their paths.
func SaveReports(dir, stem string, r *Report) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("export: mkdir: %w", err)
	}
	writers := []struct {
		ext   string
		write func(io.Writer, *Report) error
	}{
		{".txt", WriteText},
		{".html", WriteHTML},
		{".md", WriteMarkdown},
	}
	var paths []string
	for _, wr := range writers {
		path := filepath.Join(dir, stem+wr.ext)
		var buf bytes.Buffer
		if err := wr.write(&buf, r); err != nil {
			return paths, fmt.Errorf("export: render %s: %w", path, err)
		}
		if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
			return paths, fmt.Errorf("export: write %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
