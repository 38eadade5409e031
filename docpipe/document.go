// CLAUDE:SUMMARY Document abstraction over page-addressable sources (PDF, form-feed text) and the Open dispatcher.
// CLAUDE:EXPORTS Document, Open, DetectFormat, ErrDocumentNotFound, ErrUnreadableDocument, ErrUnsupportedFormat, ErrNotRenderable
package docpipe

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrDocumentNotFound   = errors.New("document not found")
	ErrUnreadableDocument = errors.New("unreadable document")
	ErrUnsupportedFormat  = errors.New("unsupported format")
	ErrNotRenderable      = errors.New("page cannot be rendered")
)

// Document is a page-addressable source. Page indices are 0-based.
type Document interface {
	Path() string
	PageCount() int
	// NativeText returns the embedded text layer of a page, possibly empty.
	NativeText(pageIndex int) (string, error)
	// HasImages reports whether the page carries raster images.
	HasImages(pageIndex int) bool
	// Render rasterizes a page to PNG at dpi.
	Render(ctx context.Context, pageIndex, dpi int) ([]byte, error)
	Close() error
}

// DetectFormat returns the document format based on file extension.
func DetectFormat(path string) (Format, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".pdf":
		return FormatPDF, nil
	case ".txt", ".text":
		return FormatTXT, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

// Open opens path as a Document. maxSize <= 0 disables the size check.
func Open(path string, maxSize int64, renderer Renderer) (Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, path)
		}
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrUnreadableDocument, path)
	}
	if maxSize > 0 && info.Size() > maxSize {
		return nil, fmt.Errorf("%w: %s is %d bytes (max %d)", ErrUnreadableDocument, path, info.Size(), maxSize)
	}

	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}
	switch format {
	case FormatPDF:
		return openPDF(path, renderer)
	default:
		return openText(path)
	}
}
