// Package tesseract is the gosseract-backed recognition engine.
package tesseract

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strconv"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/hazyhaar/exametl/recognize"
)

// Options configures the engine.
type Options struct {
	// Languages in tesseract notation, default chi_sim+eng.
	Languages []string
	// Variables are extra tesseract variables set on every client.
	Variables map[string]string
}

func (o *Options) defaults() {
	if len(o.Languages) == 0 {
		o.Languages = []string{"chi_sim", "eng"}
	}
}

// ParseLanguages splits "chi_sim+eng" into its parts.
func ParseLanguages(s string) []string {
	var out []string
	for _, l := range strings.Split(s, "+") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

// Engine recognizes page images with one gosseract client per call;
// a client is not safe for concurrent use.
type Engine struct {
	opts Options
}

// Factory returns a recognize.Factory that builds the engine and runs one
// probe recognition, so missing language data fails at initialization
// rather than on every page.
func Factory(opts Options) recognize.Factory {
	opts.defaults()
	return func(ctx context.Context) (recognize.Engine, error) {
		e := &Engine{opts: opts}
		probe, err := blankPNG()
		if err != nil {
			return nil, err
		}
		if _, err := e.Recognize(ctx, recognize.Input{Image: probe, DPI: 200}); err != nil {
			return nil, fmt.Errorf("tesseract probe (%s): %w", strings.Join(opts.Languages, "+"), err)
		}
		return e, nil
	}
}

func (e *Engine) Recognize(ctx context.Context, in recognize.Input) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	c := gosseract.NewClient()
	defer c.Close()

	if err := c.SetLanguage(e.opts.Languages...); err != nil {
		return "", fmt.Errorf("set languages: %w", err)
	}
	if in.DPI > 0 {
		if err := c.SetVariable(gosseract.SettableVariable("user_defined_dpi"), strconv.Itoa(in.DPI)); err != nil {
			return "", fmt.Errorf("set dpi: %w", err)
		}
	}
	for k, v := range e.opts.Variables {
		if err := c.SetVariable(gosseract.SettableVariable(k), v); err != nil {
			return "", fmt.Errorf("set %s: %w", k, err)
		}
	}
	if err := c.SetImageFromBytes(in.Image); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	text, err := c.Text()
	if err != nil {
		return "", fmt.Errorf("page %d: %w", in.PageIndex, err)
	}
	return text, nil
}

func blankPNG() ([]byte, error) {
	img := image.NewGray(image.Rect(0, 0, 64, 32))
	for i := range img.Pix {
		img.Pix[i] = uint8(color.White.Y >> 8)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("probe image: %w", err)
	}
	return buf.Bytes(), nil
}
