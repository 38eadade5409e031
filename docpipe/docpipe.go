// CLAUDE:SUMMARY Hybrid two-pass page extraction: native text layer first, batched recognition for low-quality pages.
// Package docpipe turns a document into pages of text, each tagged with the
// provenance of its text.
//
// Pass 1 reads the native text layer of every page and scores it with Assess.
// Pages below the quality bar are rendered and sent, in one batch, to the
// Recognizer (pass 2). A page whose recognition yields nothing keeps its
// native text and is marked recognized_fallback.
//
// Usage:
//
//	pipe := docpipe.New(docpipe.Config{Recognizer: dispatcher})
//	pages, err := pipe.Extract(ctx, "/path/to/paper.pdf")
package docpipe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hazyhaar/exametl/recognize"
)

// Recognizer runs pass 2. *recognize.Dispatcher implements it.
type Recognizer interface {
	RecognizeBatch(ctx context.Context, inputs []recognize.Input, useCache bool) ([]string, error)
}

// Pipeline is the hybrid extraction engine.
type Pipeline struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a Pipeline with the given configuration.
func New(cfg Config) *Pipeline {
	cfg.defaults()
	return &Pipeline{
		cfg:    cfg,
		logger: cfg.Logger,
	}
}

// Extract opens path and extracts its pages. A missing or unreadable file is
// an error; individual page failures are not.
func (p *Pipeline) Extract(ctx context.Context, path string) ([]Page, error) {
	doc, err := Open(path, p.cfg.MaxFileSize, p.cfg.Renderer)
	if err != nil {
		return nil, err
	}
	defer doc.Close()
	return p.ExtractDocument(ctx, doc)
}

// ExtractDocument runs both passes over doc. Every returned page has a
// resolved provenance.
func (p *Pipeline) ExtractDocument(ctx context.Context, doc Document) ([]Page, error) {
	n := doc.PageCount()
	p.logger.Debug("extracting document", "path", doc.Path(), "pages", n)

	pages := make([]Page, n)
	var queued []int
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text, err := doc.NativeText(i)
		if err != nil {
			p.logger.Debug("native text failed", "path", doc.Path(), "page", i, "error", err)
			text = ""
		}
		sig := Assess(text)
		pages[i] = Page{Index: i, Text: text, Quality: sig, HasImages: doc.HasImages(i)}
		if NeedsRecognition(sig, p.cfg.QualityThreshold, p.cfg.MinChars) {
			pages[i].Provenance = ProvenancePending
			queued = append(queued, i)
		} else {
			pages[i].Provenance = ProvenanceNative
		}
	}

	if len(queued) > 0 {
		if err := p.recognize(ctx, doc, pages, queued); err != nil {
			return nil, err
		}
	}

	c := Summarize(pages)
	p.logger.Info("document extracted",
		"path", doc.Path(), "pages", n,
		"native", c.Native, "recognized", c.Recognized, "recognized_fallback", c.Fallback)
	return pages, nil
}

// recognize resolves every queued page to recognized or recognized_fallback.
func (p *Pipeline) recognize(ctx context.Context, doc Document, pages []Page, queued []int) error {
	if p.cfg.Recognizer == nil {
		p.logger.Warn("recognition disabled, keeping native text", "path", doc.Path(), "pages", len(queued))
		resolve(pages, queued, nil)
		return nil
	}

	inputs := make([]recognize.Input, len(queued))
	for k, i := range queued {
		img, err := doc.Render(ctx, i, p.cfg.DPI)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.logger.Warn("render failed", "path", doc.Path(), "page", i, "error", err)
		}
		inputs[k] = recognize.Input{PageIndex: i, Image: img, DPI: p.cfg.DPI}
	}

	texts, err := p.cfg.Recognizer.RecognizeBatch(ctx, inputs, !p.cfg.DisableCache)
	if err != nil {
		var ierr *recognize.InitError
		if !errors.As(err, &ierr) || p.cfg.RequireOCR {
			return fmt.Errorf("recognize %s: %w", doc.Path(), err)
		}
		p.logger.Warn("recognition engine unavailable, keeping native text",
			"path", doc.Path(), "pages", len(queued), "error", err)
		texts = nil
	}
	resolve(pages, queued, texts)
	return nil
}

// resolve applies recognition results; texts may be nil.
func resolve(pages []Page, queued []int, texts []string) {
	for k, i := range queued {
		if k < len(texts) && strings.TrimSpace(texts[k]) != "" {
			pages[i].Text = texts[k]
			pages[i].Provenance = ProvenanceRecognized
			continue
		}
		pages[i].Provenance = ProvenanceFallback
	}
}
