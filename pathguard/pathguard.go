// Package pathguard checks paths and identifiers received from remote
// callers (HTTP and MCP) before they reach the filesystem.
package pathguard

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrPathTraversal is returned when a caller-supplied path escapes its root.
var ErrPathTraversal = errors.New("pathguard: path escapes its root")

// SafePath resolves input against root and verifies the result stays under
// root. Relative inputs are joined to root; absolute inputs must already lie
// inside it. Any ".." element is rejected. Returns the cleaned absolute path.
func SafePath(root, input string) (string, error) {
	if input == "" {
		return "", fmt.Errorf("pathguard: empty path")
	}
	for _, elem := range strings.FieldsFunc(input, isSep) {
		if elem == ".." {
			return "", ErrPathTraversal
		}
	}
	base, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("pathguard: root: %w", err)
	}

	var cleaned string
	if filepath.IsAbs(input) {
		cleaned = filepath.Clean(input)
	} else {
		cleaned = filepath.Join(base, filepath.Clean(string(filepath.Separator)+input))
	}
	if cleaned != base && !strings.HasPrefix(cleaned, base+string(filepath.Separator)) {
		return "", ErrPathTraversal
	}
	return cleaned, nil
}

func isSep(r rune) bool { return r == '/' || r == '\\' }

// ValidateIdentifier accepts ids made of ASCII letters, digits, underscore
// and hyphen, up to 64 bytes. Subject ids follow this shape.
func ValidateIdentifier(s string) error {
	if s == "" {
		return fmt.Errorf("pathguard: identifier must not be empty")
	}
	if len(s) > 64 {
		return fmt.Errorf("pathguard: identifier too long (max 64)")
	}
	for _, r := range s {
		if !isIdentChar(r) {
			return fmt.Errorf("pathguard: invalid character %q in identifier", r)
		}
	}
	return nil
}

func isIdentChar(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9') || r == '_' || r == '-'
}
