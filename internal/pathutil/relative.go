// Package pathutil holds the pure path arithmetic used by the resolver and
// the tree search: component-wise reduction and root confinement.
package pathutil

import (
	"path"
	"path/filepath"
	"strings"
)

// components splits p into its cleaned, slash-separated components.
// An absolute path starts with the component "/".
func components(p string) []string {
	p = filepath.ToSlash(filepath.Clean(p))
	if p == "." {
		return nil
	}
	var out []string
	if strings.HasPrefix(p, "/") {
		out = append(out, "/")
		p = strings.TrimLeft(p, "/")
	}
	if p == "" {
		return out
	}
	return append(out, strings.Split(p, "/")...)
}

// divergence returns the index of the first component where a and b differ.
// If one sequence is a prefix of the other, it is the length of the shorter.
func divergence(a, b []string) int {
	i := 0
	for i < len(a) && i < len(b) && a[i] == b[i] {
		i++
	}
	return i
}

// RelativeTo returns the part of p below its common prefix with root, as a
// slash-separated path. It is "" when p equals root or is an ancestor of it.
// With no common prefix at all, the whole of p is returned.
func RelativeTo(p, root string) string {
	pc := components(p)
	i := divergence(pc, components(root))
	if i >= len(pc) {
		return ""
	}
	return path.Join(pc[i:]...)
}

// Within reports p relative to root, and whether p is root or lies below it.
func Within(p, root string) (string, bool) {
	pc := components(p)
	rc := components(root)
	i := divergence(pc, rc)
	if i < len(rc) {
		return "", false
	}
	if i >= len(pc) {
		return "", true
	}
	return path.Join(pc[i:]...), true
}
