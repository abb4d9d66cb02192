// Package propath loads the PROPATH of a stec tree and resolves logical
// file references against it.
package propath

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/go-ini/ini"
)

// Propath is the ordered list of search roots declared by a tree's
// manifest. It is immutable once loaded.
type Propath struct {
	root      string
	manifest  string
	line      int
	fragments []string
	roots     []string
}

// LoadPropath reads rootPath/stec.ini and returns its PROPATH. Every
// fragment of the comma-separated value is joined onto rootPath in order.
// Empty fragments are kept and resolve to rootPath itself.
func LoadPropath(rootPath string) (*Propath, error) {
	manifest := filepath.Join(rootPath, ManifestName)
	data, err := os.ReadFile(manifest)
	if err != nil {
		return nil, &IoError{Path: manifest, Err: err}
	}

	// Manifests are often written on Windows.
	normalized := []byte(strings.ReplaceAll(string(data), `\`, "/"))

	cfg, err := ini.LoadSources(ini.LoadOptions{IgnoreInlineComment: true}, normalized)
	if err != nil {
		return nil, &ConfigParseError{Path: manifest, Err: err}
	}

	section, err := cfg.GetSection(SectionStartup)
	if err != nil {
		return nil, &ConfigError{Path: manifest, Reason: "No PROPATH field (missing [" + SectionStartup + "] section)"}
	}
	if !section.HasKey(KeyPropath) {
		return nil, &ConfigError{Path: manifest, Reason: "No PROPATH field"}
	}

	fragments := strings.Split(section.Key(KeyPropath).String(), ",")
	roots := make([]string, 0, len(fragments))
	for _, frag := range fragments {
		roots = append(roots, joinFragment(rootPath, frag))
	}

	return &Propath{
		root:      rootPath,
		manifest:  manifest,
		line:      locateKey(normalized, SectionStartup, KeyPropath),
		fragments: fragments,
		roots:     roots,
	}, nil
}

// joinFragment appends frag to root. An absolute fragment replaces root.
func joinFragment(root, frag string) string {
	native := filepath.FromSlash(frag)
	if filepath.IsAbs(native) {
		return filepath.Clean(native)
	}
	return filepath.Join(root, native)
}

// New builds a Propath from already resolved search roots.
func New(root string, roots []string) *Propath {
	return &Propath{
		root:      root,
		fragments: append([]string(nil), roots...),
		roots:     append([]string(nil), roots...),
	}
}

// Root is the tree root the PROPATH was loaded from.
func (p *Propath) Root() string { return p.root }

// Manifest is the path of the stec.ini that declared the PROPATH.
func (p *Propath) Manifest() string { return p.manifest }

// Line is the manifest line of the PROPATH key, or 0 when unknown.
func (p *Propath) Line() int { return p.line }

// Len returns the number of search roots.
func (p *Propath) Len() int { return len(p.roots) }

// Roots returns a copy of the search roots in priority order.
func (p *Propath) Roots() []string { return append([]string(nil), p.roots...) }

// Fragments returns a copy of the raw manifest fragments.
func (p *Propath) Fragments() []string { return append([]string(nil), p.fragments...) }
