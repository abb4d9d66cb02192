package pathutil

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ErrEscape marks a path that would leave the directory it is joined onto.
var ErrEscape = errors.New("path escapes root")

// NormalizeRequest turns a client supplied logical path into a clean,
// slash-separated relative path. Backslashes count as separators. Paths that
// climb out of their base with ".." are rejected.
func NormalizeRequest(raw string) (string, error) {
	p := strings.ReplaceAll(raw, "\\", "/")
	if strings.ContainsRune(p, 0) {
		return "", fmt.Errorf("%w: %q contains NUL", ErrEscape, raw)
	}
	if filepath.VolumeName(p) != "" {
		return "", fmt.Errorf("%w: %q has a volume name", ErrEscape, raw)
	}
	if hasDotDot(p) {
		return "", fmt.Errorf("%w: %q", ErrEscape, raw)
	}
	p = strings.TrimPrefix(path.Clean("/"+p), "/")
	if p == "" {
		return "", fmt.Errorf("empty path")
	}
	return p, nil
}

// hasDotDot reports whether any segment of p is "..". Cleaning first would
// hide a climb such as "a/../../b".
func hasDotDot(p string) bool {
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return true
		}
	}
	return false
}

// ConfineRelPath joins relTarget onto root and makes sure the result stays
// under root once symlinks are resolved. It returns the joined (unresolved)
// path so callers report the location as configured.
func ConfineRelPath(root, relTarget string) (string, error) {
	if strings.Contains(relTarget, "\\") {
		return "", fmt.Errorf("%w: %s contains backslash", ErrEscape, relTarget)
	}
	cleanRel := filepath.Clean(filepath.FromSlash(relTarget))
	if filepath.IsAbs(cleanRel) {
		return "", fmt.Errorf("%w: %s is absolute", ErrEscape, relTarget)
	}
	if cleanRel == ".." || strings.HasPrefix(cleanRel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrEscape, relTarget)
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("invalid root path: %w", err)
	}
	realRoot, err := filepath.EvalSymlinks(absRoot)
	if err != nil {
		// A missing root is routine for a stale PROPATH entry.
		return "", err
	}

	joined := filepath.Join(absRoot, cleanRel)
	realPath, err := filepath.EvalSymlinks(joined)
	if err != nil {
		if os.IsNotExist(err) {
			return "", err
		}
		return "", fmt.Errorf("resolve %s: %w", joined, err)
	}
	if _, inside := Within(realPath, realRoot); !inside {
		return "", fmt.Errorf("%w: %s resolves to %s", ErrEscape, relTarget, realPath)
	}
	return joined, nil
}
