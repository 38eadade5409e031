package docpipe

import (
	"context"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/simplifiedchinese"
)

// textDocument is a plain-text dump where pages are separated by form feeds,
// the layout pdftotext produces. It has no raster form. Files that are not
// valid UTF-8 are decoded as GB18030.
type textDocument struct {
	path  string
	pages []string
}

func openText(path string) (*textDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreadableDocument, path, err)
	}
	if !utf8.Valid(data) {
		decoded, err := simplifiedchinese.GB18030.NewDecoder().Bytes(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: not UTF-8 or GB18030: %v", ErrUnreadableDocument, path, err)
		}
		data = decoded
	}
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	text = strings.TrimSuffix(text, "\f")
	return &textDocument{path: path, pages: strings.Split(text, "\f")}, nil
}

func (d *textDocument) Path() string   { return d.path }
func (d *textDocument) PageCount() int { return len(d.pages) }

func (d *textDocument) NativeText(i int) (string, error) {
	if i < 0 || i >= len(d.pages) {
		return "", fmt.Errorf("page %d out of range [0, %d)", i, len(d.pages))
	}
	return d.pages[i], nil
}

func (d *textDocument) HasImages(int) bool { return false }

func (d *textDocument) Render(context.Context, int, int) ([]byte, error) {
	return nil, fmt.Errorf("%w: %s is plain text", ErrNotRenderable, d.path)
}

func (d *textDocument) Close() error { return nil }
