// Package recognize runs page images through an OCR engine with bounded
// concurrency, consulting the content-addressed cache first.
//
// Usage:
//
//	handle := recognize.NewHandle("tesseract", tesseract.Factory(tesseract.Options{}))
//	d := recognize.NewDispatcher(handle, recognize.Config{Cache: cache, Workers: 4})
//	texts, err := d.RecognizeBatch(ctx, inputs, true)
package recognize

import (
	"context"
	"errors"
)

// Input is one rendered page.
type Input struct {
	PageIndex int
	Image     []byte // PNG; nil when rendering failed
	DPI       int
}

// Engine turns a page image into text. Implementations must be safe for
// concurrent use.
type Engine interface {
	Recognize(ctx context.Context, in Input) (string, error)
}

// Func adapts a function to Engine.
type Func func(ctx context.Context, in Input) (string, error)

func (f Func) Recognize(ctx context.Context, in Input) (string, error) { return f(ctx, in) }

// Factory builds an Engine. It runs at most once per Handle.
type Factory func(ctx context.Context) (Engine, error)

// ErrNoEngine is the init failure of the "none" engine.
var ErrNoEngine = errors.New("no recognition engine configured")

// Disabled is a Factory that always fails with ErrNoEngine.
func Disabled() Factory {
	return func(context.Context) (Engine, error) { return nil, ErrNoEngine }
}
