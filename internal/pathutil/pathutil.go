package pathutil

import (
	"errors"
	"path/filepath"
	"strings"
)

// ErrOutsideRoot is returned when a path does not live under the given root.
var ErrOutsideRoot = errors.New("path is outside the workspace root")

// NormalizePath converts Windows-style separators to the current platform's separator
// and cleans the resulting path.
func NormalizePath(p string) string {
	if p == "" {
		return ""
	}

	// Replace Windows separators and collapse redundant separators/segments.
	replaced := strings.ReplaceAll(p, "\\", "/")
	return filepath.Clean(filepath.FromSlash(replaced))
}

// Absolute normalizes p and resolves it against the working directory.
func Absolute(p string) (string, error) {
	normalized := NormalizePath(p)
	if normalized == "" {
		return "", nil
	}
	return filepath.Abs(normalized)
}

// WorkspaceRelative returns the path to target relative to the workspace root.
// The returned path always uses forward slashes.
func WorkspaceRelative(root, target string) (string, error) {
	base := NormalizePath(root)
	cleanedTarget := NormalizePath(target)

	rel, err := filepath.Rel(base, cleanedTarget)
	if err != nil {
		return "", err
	}

	return filepath.ToSlash(rel), nil
}

// Within reports whether target is root itself or nested below it.
func Within(root, target string) bool {
	rel, err := WorkspaceRelative(root, target)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, "../"))
}

// HasExtension reports whether path ends with one of exts, ignoring case.
func HasExtension(path string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}
