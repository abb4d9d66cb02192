package model

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetLineContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stec.ini")
	require.NoError(t, os.WriteFile(path, []byte("a\nb\nc\nd\ne\n"), 0o644))

	ctx := GetLineContext(path, 2, 2)
	require.Empty(t, ctx.ErrorMsg)
	assert.Equal(t, "b", ctx.Target())
	require.Len(t, ctx.Lines, 4)
	assert.Equal(t, 1, ctx.Lines[0].Number)
	assert.Equal(t, 4, ctx.Lines[3].Number)
}

func TestGetLineContext_OutOfRange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stec.ini")
	require.NoError(t, os.WriteFile(path, []byte("only\n"), 0o644))

	ctx := GetLineContext(path, 7, 1)
	assert.Contains(t, ctx.ErrorMsg, "out of range")
	assert.Empty(t, ctx.Target())

	missing := GetLineContext(filepath.Join(t.TempDir(), "nope"), 1, 1)
	assert.Contains(t, missing.ErrorMsg, "Could not read file")
}

func TestEntryIcon(t *testing.T) {
	assert.Equal(t, IconMissing, EntryIcon(RootEntry{}))
	assert.Equal(t, IconNotDir, EntryIcon(RootEntry{Exists: true}))
	assert.Equal(t, IconDuplicate, EntryIcon(RootEntry{Exists: true, IsDir: true, IsDuplicate: true}))
	assert.Equal(t, IconTreeRoot, EntryIcon(RootEntry{Exists: true, IsDir: true, IsRoot: true}))
	assert.Equal(t, IconOK, EntryIcon(RootEntry{Exists: true, IsDir: true}))
}
