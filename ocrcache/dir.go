package ocrcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DirStore keeps one JSON file per entry in a directory.
type DirStore struct {
	dir string
}

// NewDirStore creates dir if needed.
func NewDirStore(dir string) (*DirStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ocrcache: mkdir %s: %w", dir, err)
	}
	return &DirStore{dir: dir}, nil
}

// Dir returns the cache directory.
func (s *DirStore) Dir() string { return s.dir }

func (s *DirStore) path(fingerprint string) (string, error) {
	if fingerprint == "" || strings.ContainsAny(fingerprint, `/\`) || strings.HasPrefix(fingerprint, ".") {
		return "", fmt.Errorf("ocrcache: invalid fingerprint %q", fingerprint)
	}
	return filepath.Join(s.dir, fingerprint+".json"), nil
}

func (s *DirStore) Load(_ context.Context, fingerprint string) (Entry, error) {
	p, err := s.path(fingerprint)
	if err != nil {
		return Entry{}, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return Entry{}, ErrMiss
	}
	if err != nil {
		return Entry{}, fmt.Errorf("ocrcache: read %s: %w", p, err)
	}
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return Entry{}, fmt.Errorf("ocrcache: corrupt entry %s: %w", p, err)
	}
	if e.Fingerprint != fingerprint {
		return Entry{}, fmt.Errorf("ocrcache: entry %s holds fingerprint %q", p, e.Fingerprint)
	}
	return e, nil
}

// Save writes to a temp file then renames it, so readers never see a
// partial entry.
func (s *DirStore) Save(_ context.Context, e Entry) error {
	p, err := s.path(e.Fingerprint)
	if err != nil {
		return err
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("ocrcache: marshal: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("ocrcache: temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("ocrcache: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("ocrcache: close: %w", err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("ocrcache: rename: %w", err)
	}
	return nil
}

func (s *DirStore) Clear(_ context.Context) error {
	if err := os.RemoveAll(s.dir); err != nil {
		return fmt.Errorf("ocrcache: clear %s: %w", s.dir, err)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("ocrcache: recreate %s: %w", s.dir, err)
	}
	return nil
}
