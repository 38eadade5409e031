package recognize

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hazyhaar/exametl/ocrcache"
)

// Cache is the subset of *ocrcache.Cache the dispatcher uses.
type Cache interface {
	Get(ctx context.Context, fingerprint string) (string, bool)
	Put(ctx context.Context, fingerprint, text string)
}

// Config configures a Dispatcher.
type Config struct {
	// Workers bounds concurrent engine calls (default: 4).
	Workers int `json:"workers" yaml:"workers"`

	// CallTimeout bounds one engine call (default: 2m). Negative disables it.
	CallTimeout time.Duration `json:"call_timeout" yaml:"call_timeout"`

	// Cache is consulted when RecognizeBatch is called with useCache. Nil
	// disables caching.
	Cache Cache `json:"-" yaml:"-"`

	// Progress, if set, is called after each recognized page. Advisory only.
	Progress func(done, total int) `json:"-" yaml:"-"`

	Logger *slog.Logger `json:"-" yaml:"-"`
}

func (c *Config) defaults() {
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.CallTimeout == 0 {
		c.CallTimeout = 2 * time.Minute
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Dispatcher recognizes batches of pages.
type Dispatcher struct {
	cfg    Config
	handle *Handle
	logger *slog.Logger
}

// NewDispatcher creates a Dispatcher over handle.
func NewDispatcher(handle *Handle, cfg Config) *Dispatcher {
	cfg.defaults()
	return &Dispatcher{cfg: cfg, handle: handle, logger: cfg.Logger}
}

// RecognizeBatch returns one string per input, in input order. A page that
// fails to recognize, or has no image, yields "". The engine is initialized
// only when at least one page misses the cache. The only errors are
// *InitError and the context's error.
func (d *Dispatcher) RecognizeBatch(ctx context.Context, inputs []Input, useCache bool) ([]string, error) {
	results := make([]string, len(inputs))
	if len(inputs) == 0 {
		return results, nil
	}

	useCache = useCache && d.cfg.Cache != nil
	fingerprints := make([]string, len(inputs))
	var misses []int
	for i, in := range inputs {
		if len(in.Image) == 0 {
			d.logger.Warn("recognize: no image for page", "page", in.PageIndex)
			continue
		}
		if useCache {
			fingerprints[i] = ocrcache.Fingerprint(in.Image, in.DPI)
			if text, ok := d.cfg.Cache.Get(ctx, fingerprints[i]); ok {
				results[i] = text
				continue
			}
		}
		misses = append(misses, i)
	}

	d.logger.Debug("recognize: batch",
		"pages", len(inputs), "cache_hits", len(inputs)-len(misses), "misses", len(misses))
	if len(misses) == 0 {
		return results, nil
	}

	engine, err := d.handle.Get(ctx)
	if err != nil {
		return nil, err
	}

	var done atomic.Int64
	total := len(misses)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.cfg.Workers)
	for _, pos := range misses {
		g.Go(func() error {
			results[pos] = d.recognizeOne(gctx, engine, inputs[pos])
			if d.cfg.Progress != nil {
				d.cfg.Progress(int(done.Add(1)), total)
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("recognize: batch interrupted: %w", err)
	}

	if useCache {
		for _, pos := range misses {
			if results[pos] != "" {
				d.cfg.Cache.Put(ctx, fingerprints[pos], results[pos])
			}
		}
	}
	return results, nil
}

type callResult struct {
	text string
	err  error
}

// recognizeOne never fails: engine errors, panics and timeouts become "".
func (d *Dispatcher) recognizeOne(ctx context.Context, engine Engine, in Input) string {
	callCtx := ctx
	if d.cfg.CallTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, d.cfg.CallTimeout)
		defer cancel()
	}

	ch := make(chan callResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- callResult{err: fmt.Errorf("engine panic: %v", r)}
			}
		}()
		text, err := engine.Recognize(callCtx, in)
		ch <- callResult{text: text, err: err}
	}()

	start := time.Now()
	select {
	case r := <-ch:
		if r.err != nil {
			d.logger.Warn("recognize: page failed", "page", in.PageIndex, "error", r.err)
			return ""
		}
		d.logger.Debug("recognize: page done",
			"page", in.PageIndex, "chars", len([]rune(r.text)), "duration_ms", time.Since(start).Milliseconds())
		return r.text
	case <-callCtx.Done():
		d.logger.Warn("recognize: page timed out", "page", in.PageIndex, "error", callCtx.Err())
		return ""
	}
}
