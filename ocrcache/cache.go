// Package ocrcache stores recognition results keyed by a fingerprint of the
// rendered page image. The cache is best-effort: a storage failure is a miss
// on read and a no-op on write, never an error for the caller.
package ocrcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"
)

// KeyPrefix prefixes every fingerprint.
const KeyPrefix = "ocr_"

// ErrMiss is returned by Store.Load when no entry exists.
var ErrMiss = errors.New("ocrcache: miss")

// Entry is one cached recognition result.
type Entry struct {
	Fingerprint string    `json:"fingerprint"`
	Text        string    `json:"text"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store persists entries. Implementations must be safe for concurrent use.
type Store interface {
	Load(ctx context.Context, fingerprint string) (Entry, error)
	Save(ctx context.Context, e Entry) error
	Clear(ctx context.Context) error
}

// Fingerprint derives the cache key of a rendered page. The resolution is
// part of the key: the same page rendered at another DPI is another entry.
func Fingerprint(image []byte, dpi int) string {
	h := sha256.New()
	h.Write(image)
	h.Write([]byte("@" + strconv.Itoa(dpi)))
	return KeyPrefix + hex.EncodeToString(h.Sum(nil))
}

// Stats counts lookups since the cache was created.
type Stats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Writes int64 `json:"writes"`
}

// Cache wraps a Store with best-effort semantics.
type Cache struct {
	store  Store
	logger *slog.Logger

	hits, misses, writes atomic.Int64
}

// New creates a Cache over store. A nil logger uses slog.Default().
func New(store Store, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{store: store, logger: logger}
}

// Get returns the cached text for fingerprint.
func (c *Cache) Get(ctx context.Context, fingerprint string) (string, bool) {
	e, err := c.store.Load(ctx, fingerprint)
	if err != nil {
		if !errors.Is(err, ErrMiss) {
			c.logger.Debug("ocrcache: load failed", "fingerprint", fingerprint, "error", err)
		}
		c.misses.Add(1)
		return "", false
	}
	c.hits.Add(1)
	return e.Text, true
}

// Put stores text under fingerprint. Last writer wins.
func (c *Cache) Put(ctx context.Context, fingerprint, text string) {
	err := c.store.Save(ctx, Entry{Fingerprint: fingerprint, Text: text, CreatedAt: time.Now().UTC()})
	if err != nil {
		c.logger.Debug("ocrcache: save failed", "fingerprint", fingerprint, "error", err)
		return
	}
	c.writes.Add(1)
}

// Clear removes every entry. Unlike Get and Put it reports failures, since
// it is an explicit user action.
func (c *Cache) Clear(ctx context.Context) error {
	return c.store.Clear(ctx)
}

// Stats returns the lookup counters.
func (c *Cache) Stats() Stats {
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load(), Writes: c.writes.Load()}
}

// Close closes the underlying store when it holds resources.
func (c *Cache) Close() error {
	if cl, ok := c.store.(io.Closer); ok {
		return cl.Close()
	}
	return nil
}
