// CLAUDE:SUMMARY PDF document: pdfcpu validation/page count/image detection, ledongthuc row-ordered text, content-stream fallback.
// CLAUDE:DEPENDS docpipe/render.go
// CLAUDE:EXPORTS openPDF
package docpipe

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strings"
	"unicode"

	lpdf "github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// rowTolerance is the vertical distance (points) under which two glyph runs
// belong to the same text line.
const rowTolerance = 2.0

type pdfDocument struct {
	path     string
	ctx      *model.Context
	file     *os.File
	reader   *lpdf.Reader // nil when ledongthuc cannot parse the file
	renderer Renderer
}

func openPDF(path string, renderer Renderer) (*pdfDocument, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreadableDocument, path, err)
	}
	conf := model.NewDefaultConfiguration()
	ctx, err := api.ReadValidateAndOptimize(f, conf)
	f.Close()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: pdfcpu read: %v", ErrUnreadableDocument, path, err)
	}

	d := &pdfDocument{path: path, ctx: ctx, renderer: renderer}
	if lf, lr, err := lpdf.Open(path); err == nil {
		d.file, d.reader = lf, lr
	}
	return d, nil
}

func (d *pdfDocument) Path() string   { return d.path }
func (d *pdfDocument) PageCount() int { return d.ctx.PageCount }

// NativeText prefers ledongthuc's glyph positions (CID fonts with ToUnicode
// decode correctly there) and falls back to scanning the raw content stream.
func (d *pdfDocument) NativeText(i int) (string, error) {
	if i < 0 || i >= d.ctx.PageCount {
		return "", fmt.Errorf("page %d out of range [0, %d)", i, d.ctx.PageCount)
	}
	pageNr := i + 1
	if d.reader != nil {
		if text, err := d.layoutText(pageNr); err == nil && strings.TrimSpace(text) != "" {
			return text, nil
		}
	}
	return extractPageText(d.ctx, pageNr), nil
}

func (d *pdfDocument) HasImages(i int) bool {
	if d.ctx.Optimize == nil {
		return false
	}
	return len(pdfcpu.ImageObjNrs(d.ctx, i+1)) > 0
}

func (d *pdfDocument) Render(ctx context.Context, i, dpi int) ([]byte, error) {
	if d.renderer == nil {
		return nil, fmt.Errorf("%w: no renderer configured", ErrNotRenderable)
	}
	return d.renderer.Render(ctx, d.path, i, dpi)
}

func (d *pdfDocument) Close() error {
	if d.file != nil {
		return d.file.Close()
	}
	return nil
}

// layoutText rebuilds text lines from positioned glyph runs. ledongthuc
// panics on some malformed content streams; that is reported as an error.
func (d *pdfDocument) layoutText(pageNr int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("ledongthuc page %d: %v", pageNr, r)
		}
	}()
	if pageNr > d.reader.NumPage() {
		return "", fmt.Errorf("ledongthuc: page %d beyond %d", pageNr, d.reader.NumPage())
	}
	page := d.reader.Page(pageNr)
	if page.V.IsNull() {
		return "", fmt.Errorf("ledongthuc: page %d missing", pageNr)
	}
	if text := rowsToText(page.Content().Text); text != "" {
		return text, nil
	}
	return page.GetPlainText(nil)
}

// rowsToText groups glyph runs into lines top to bottom (PDF y grows
// upwards) and left to right within a line.
func rowsToText(texts []lpdf.Text) string {
	runs := make([]lpdf.Text, 0, len(texts))
	for _, t := range texts {
		if t.S != "" {
			runs = append(runs, t)
		}
	}
	if len(runs) == 0 {
		return ""
	}
	sort.SliceStable(runs, func(i, j int) bool { return runs[i].Y > runs[j].Y })

	var rows [][]lpdf.Text
	rowY := runs[0].Y
	var cur []lpdf.Text
	for _, t := range runs {
		if rowY-t.Y > rowTolerance {
			rows = append(rows, cur)
			cur = nil
			rowY = t.Y
		}
		cur = append(cur, t)
	}
	rows = append(rows, cur)

	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		sort.SliceStable(row, func(i, j int) bool { return row[i].X < row[j].X })
		var sb strings.Builder
		for k, t := range row {
			if k > 0 {
				prev := row[k-1]
				if gap := t.X - (prev.X + prev.W); gap > prev.FontSize*0.3 {
					sb.WriteByte(' ')
				}
			}
			sb.WriteString(t.S)
		}
		if line := strings.TrimSpace(sb.String()); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

// extractPageText extracts text from a single PDF page via pdfcpu content stream.
func extractPageText(ctx *model.Context, pageNr int) string {
	r, err := pdfcpu.ExtractPageContent(ctx, pageNr)
	if err != nil || r == nil {
		return ""
	}
	data, err := io.ReadAll(r)
	if err != nil || len(data) == 0 {
		return ""
	}
	return extractTextFromStream(data)
}

// pdfStringRe matches PDF string literals in parentheses: (text here)
var pdfStringRe = regexp.MustCompile(`\(([^)]*)\)`)

// extractTextFromStream reads Tj/TJ/' show operators; positioning operators
// (Td, TD, T*) start a new line.
func extractTextFromStream(data []byte) string {
	var sb strings.Builder

	for _, line := range bytes.Split(data, []byte{'\n'}) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		switch {
		case bytes.HasSuffix(line, []byte("Tj")), bytes.HasSuffix(line, []byte("TJ")):
			for _, m := range pdfStringRe.FindAllSubmatch(line, -1) {
				sb.WriteString(decodePDFString(m[1]))
			}
		case bytes.HasSuffix(line, []byte("'")) && bytes.Contains(line, []byte("(")):
			for _, m := range pdfStringRe.FindAllSubmatch(line, -1) {
				sb.WriteByte('\n')
				sb.WriteString(decodePDFString(m[1]))
			}
		case bytes.HasSuffix(line, []byte("Td")), bytes.HasSuffix(line, []byte("TD")), bytes.Equal(line, []byte("T*")):
			sb.WriteByte('\n')
		}
	}

	return cleanPDFText(sb.String())
}

// decodePDFString handles basic PDF escape sequences.
func decodePDFString(raw []byte) string {
	var sb strings.Builder
	for i := 0; i < len(raw); i++ {
		if raw[i] != '\\' || i+1 >= len(raw) {
			sb.WriteByte(raw[i])
			continue
		}
		i++
		switch raw[i] {
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		case 't':
			sb.WriteByte('\t')
		case '\\', '(', ')':
			sb.WriteByte(raw[i])
		default:
			// Octal escape (e.g. \040 for space).
			if raw[i] < '0' || raw[i] > '7' {
				sb.WriteByte(raw[i])
				continue
			}
			val := int(raw[i] - '0')
			for n := 0; n < 2 && i+1 < len(raw) && raw[i+1] >= '0' && raw[i+1] <= '7'; n++ {
				i++
				val = val*8 + int(raw[i]-'0')
			}
			sb.WriteByte(byte(val))
		}
	}
	return sb.String()
}

// cleanPDFText collapses whitespace inside lines and drops blank lines.
func cleanPDFText(text string) string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		var sb strings.Builder
		prevSpace := false
		for _, r := range line {
			switch {
			case unicode.IsSpace(r):
				if !prevSpace && sb.Len() > 0 {
					sb.WriteByte(' ')
					prevSpace = true
				}
			case unicode.IsPrint(r):
				sb.WriteRune(r)
				prevSpace = false
			}
		}
		if s := strings.TrimSpace(sb.String()); s != "" {
			out = append(out, s)
		}
	}
	return strings.Join(out, "\n")
}
