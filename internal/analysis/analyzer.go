// Package analysis inspects a PROPATH for entries that can never match or
// that repeat earlier ones.
package analysis

import (
	"fmt"
	"os"
	"path/filepath"

	"propath/internal/model"
	"propath/internal/pathutil"
	"propath/internal/propath"
)

// Analyzer checks every search root of a PROPATH against the filesystem.
type Analyzer struct {
	stat func(string) (os.FileInfo, error)
}

// NewAnalyzer returns an Analyzer backed by the real filesystem.
func NewAnalyzer() *Analyzer {
	return &Analyzer{stat: os.Stat}
}

// Analyze returns one RootEntry per search root, in PROPATH order, plus
// human readable diagnostics.
func (a *Analyzer) Analyze(p *propath.Propath) model.AnalysisResult {
	roots := p.Roots()
	fragments := p.Fragments()
	treeRoot := filepath.Clean(p.Root())

	entries := make([]model.RootEntry, len(roots))
	for i, root := range roots {
		e := model.RootEntry{
			Index:      i,
			Value:      root,
			SourceFile: p.Manifest(),
			LineNumber: p.Line(),
		}
		if i < len(fragments) {
			e.Fragment = fragments[i]
		}
		e.IsRoot = filepath.Clean(root) == treeRoot
		if info, err := a.stat(root); err == nil {
			e.Exists = true
			e.IsDir = info.IsDir()
		}
		entries[i] = e
	}

	var diags []string

	// Post-process for duplicates
	seen := make(map[string]int)
	for i, e := range entries {
		key := filepath.Clean(e.Value)
		if firstIdx, ok := seen[key]; ok {
			entries[i].IsDuplicate = true
			entries[i].DuplicateOf = firstIdx
			entries[i].Remediation = fmt.Sprintf(
				"Duplicate of entry %d. It can never win a lookup; remove fragment %q from %s:%d.",
				firstIdx+1, e.Fragment, e.SourceFile, e.LineNumber,
			)
			continue
		}
		seen[key] = i
	}

	for i, e := range entries {
		n := i + 1
		switch {
		case !e.Exists:
			entries[i].Remediation = joinAdvice(e.Remediation,
				"Directory does not exist; lookups skip it.")
			diags = append(diags, fmt.Sprintf("entry %d (%s) does not exist", n, e.Value))
		case !e.IsDir:
			entries[i].Remediation = joinAdvice(e.Remediation,
				"Entry is a file, not a directory; nothing can resolve under it.")
			diags = append(diags, fmt.Sprintf("entry %d (%s) is not a directory", n, e.Value))
		}
		if e.IsDuplicate {
			diags = append(diags, fmt.Sprintf("entry %d duplicates entry %d (%s)", n, e.DuplicateOf+1, e.Value))
		}
		if e.Fragment == "" && len(fragments) > 0 {
			diags = append(diags, fmt.Sprintf("entry %d is empty (stray comma?) and resolves to the tree root", n))
		}
		if _, inside := pathutil.Within(e.Value, treeRoot); !inside {
			diags = append(diags, fmt.Sprintf("entry %d (%s) lies outside the tree root", n, e.Value))
		}
	}

	return model.AnalysisResult{
		Root:        p.Root(),
		Manifest:    p.Manifest(),
		RootEntries: entries,
		Diagnostics: diags,
	}
}

func joinAdvice(existing, advice string) string {
	if existing == "" {
		return advice
	}
	return existing + " " + advice
}
