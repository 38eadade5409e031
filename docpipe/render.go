// CLAUDE:SUMMARY Page rasterization for recognition via poppler's pdftoppm.
package docpipe

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
)

// Renderer rasterizes one page of a document file to PNG.
type Renderer interface {
	Render(ctx context.Context, path string, pageIndex, dpi int) ([]byte, error)
}

// PopplerRenderer shells out to pdftoppm. Output bytes are deterministic for a
// given file, page and resolution, which the recognition cache keys rely on.
type PopplerRenderer struct {
	// Binary defaults to "pdftoppm" looked up in PATH.
	Binary string
}

func (r *PopplerRenderer) Render(ctx context.Context, path string, pageIndex, dpi int) ([]byte, error) {
	bin := r.Binary
	if bin == "" {
		bin = "pdftoppm"
	}
	dir, err := os.MkdirTemp("", "exametl-render-*")
	if err != nil {
		return nil, fmt.Errorf("render: tempdir: %w", err)
	}
	defer os.RemoveAll(dir)

	page := strconv.Itoa(pageIndex + 1)
	root := filepath.Join(dir, "page")
	cmd := exec.CommandContext(ctx, bin,
		"-f", page, "-l", page,
		"-r", strconv.Itoa(dpi),
		"-png", "-singlefile",
		path, root,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("render %s page %d: %w: %s", path, pageIndex, err, bytes.TrimSpace(stderr.Bytes()))
	}

	data, err := os.ReadFile(root + ".png")
	if err != nil {
		return nil, fmt.Errorf("render %s page %d: %w", path, pageIndex, err)
	}
	return data, nil
}
