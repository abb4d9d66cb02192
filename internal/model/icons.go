package model

// Centralized icons for the report and TUI.
// Single-width characters keep terminal columns aligned.
const (
	IconFirst     = "¹" // Highest priority root
	IconLast      = "¶" // Lowest priority root
	IconDuplicate = "≈" // Duplicate root
	IconMissing   = "✗" // Root does not exist
	IconNotDir    = "!" // Root exists but is a file
	IconTreeRoot  = "⌂" // Empty fragment, resolves to the tree root
	IconShadowed  = "◌" // File is hidden by an earlier root
	IconOK        = " " // No icon to reduce noise
)

// EntryIcon picks the most important icon for an entry.
func EntryIcon(e RootEntry) string {
	switch {
	case !e.Exists:
		return IconMissing
	case !e.IsDir:
		return IconNotDir
	case e.IsDuplicate:
		return IconDuplicate
	case e.IsRoot:
		return IconTreeRoot
	}
	return IconOK
}
