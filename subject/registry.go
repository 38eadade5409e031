package subject

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

//go:embed profiles/*.yaml
var builtin embed.FS

// aliases map detected subjects without a dedicated profile.
var aliases = map[string]string{
	"os":       DefaultID,
	"network":  DefaultID,
	"database": DefaultID,
}

// Registry holds the available profiles keyed by subject id.
type Registry struct {
	profiles map[string]*Profile
}

// NewRegistry loads the built-in profiles and overlays every *.yaml / *.yml
// file of dir when dir is non-empty. An overlay profile replaces the built-in
// one with the same subject_id.
func NewRegistry(dir string) (*Registry, error) {
	r := &Registry{profiles: make(map[string]*Profile)}
	if err := r.loadFS(builtin, "profiles"); err != nil {
		return nil, err
	}
	if dir == "" {
		return r, nil
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("subject dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("subject dir: %s is not a directory", dir)
	}
	if err := r.loadFS(os.DirFS(dir), "."); err != nil {
		return nil, err
	}
	return r, nil
}

// MustBuiltin returns the built-in registry.
func MustBuiltin() *Registry {
	r, err := NewRegistry("")
	if err != nil {
		panic("subject: builtin profiles: " + err.Error())
	}
	return r
}

func (r *Registry) loadFS(fsys fs.FS, root string) error {
	entries, err := fs.ReadDir(fsys, root)
	if err != nil {
		return fmt.Errorf("subject: read %s: %w", root, err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		data, err := fs.ReadFile(fsys, pathJoin(root, e.Name()))
		if err != nil {
			return fmt.Errorf("subject: read %s: %w", e.Name(), err)
		}
		p, err := ParseProfile(data)
		if err != nil {
			return fmt.Errorf("%s: %w", e.Name(), err)
		}
		r.profiles[p.ID] = p
	}
	return nil
}

func pathJoin(root, name string) string {
	if root == "." {
		return name
	}
	return root + "/" + name
}

// Get returns the profile for id. Unknown ids and subjects without a
// dedicated profile resolve to the default profile.
func (r *Registry) Get(id string) *Profile {
	if p, ok := r.profiles[id]; ok {
		return p
	}
	if alias, ok := aliases[id]; ok {
		if p, ok := r.profiles[alias]; ok {
			return p
		}
	}
	return r.profiles[DefaultID]
}

// Has reports whether id has its own profile.
func (r *Registry) Has(id string) bool {
	_, ok := r.profiles[id]
	return ok
}

// List returns all profiles sorted by id.
func (r *Registry) List() []*Profile {
	out := make([]*Profile, 0, len(r.profiles))
	for _, p := range r.profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
