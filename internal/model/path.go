package model

// Version is the propath release reported by --version and the web API.
const Version = "v0.4.0"

// RootEntry represents a single search root in the PROPATH.
type RootEntry struct {
	Index       int    // Position in the PROPATH (0-based)
	Fragment    string // Raw fragment as written in stec.ini (e.g. src/base)
	Value       string // Absolute directory path
	SourceFile  string // Manifest the entry was declared in
	LineNumber  int    // Line of the PROPATH key in the manifest
	Exists      bool   // The path exists on disk
	IsDir       bool   // The path is a directory
	IsRoot      bool   // The fragment was empty, so the entry is the tree root itself
	IsDuplicate bool   // True if an earlier entry has the same Value
	DuplicateOf int    // Index of the original entry if this is a duplicate
	Remediation string // Advice on how to fix the entry
}

// AnalysisResult contains the processed PROPATH of a tree.
type AnalysisResult struct {
	Root        string
	Manifest    string
	RootEntries []RootEntry
	Diagnostics []string
}

// SkippedEntry is a directory entry the tree search could not read.
type SkippedEntry struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// SearchResult holds the tree-relative matches of a search, in walk order.
type SearchResult struct {
	Query   string         `json:"query"`
	Matches []string       `json:"matches"`
	Skipped []SkippedEntry `json:"skipped,omitempty"`
}

// WhichMatch is one search root that contains a requested file.
type WhichMatch struct {
	Index    int    `json:"index"`
	Root     string `json:"root"`
	Path     string `json:"path"`
	IsDir    bool   `json:"isDir"`
	Shadowed bool   `json:"shadowed"` // An earlier root wins
}
