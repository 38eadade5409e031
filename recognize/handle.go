package recognize

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// InitError reports that the engine could not be initialized.
type InitError struct {
	Engine string
	Err    error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("recognize: init %s engine: %v", e.Engine, e.Err)
}

func (e *InitError) Unwrap() error { return e.Err }

// Handle initializes its engine lazily on first use. A failed initialization
// is remembered and returned to every later caller, except when it was
// caused by the caller's context ending.
type Handle struct {
	name    string
	factory Factory

	mu     sync.Mutex
	done   bool
	engine Engine
	err    error
}

// NewHandle wraps factory. name is used in errors and logs.
func NewHandle(name string, factory Factory) *Handle {
	return &Handle{name: name, factory: factory}
}

// NewStaticHandle wraps an already built engine.
func NewStaticHandle(name string, engine Engine) *Handle {
	return &Handle{name: name, done: true, engine: engine}
}

// Name returns the engine name.
func (h *Handle) Name() string { return h.name }

// Get returns the engine, initializing it on first call. The error is always
// an *InitError.
func (h *Handle) Get(ctx context.Context) (Engine, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.done {
		return h.engine, h.err
	}

	engine, err := h.factory(ctx)
	if err == nil && engine == nil {
		err = errors.New("factory returned no engine")
	}
	if err != nil {
		ierr := &InitError{Engine: h.name, Err: err}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, ierr
		}
		h.done, h.err = true, ierr
		return nil, ierr
	}
	h.done, h.engine = true, engine
	return engine, nil
}

// Initialized reports whether initialization has run (successfully or not).
func (h *Handle) Initialized() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.done
}
