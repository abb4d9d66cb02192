package tui

import (
	"os"
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"propath/internal/search"
)

func newTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range map[string]string{
		"stec.ini":               "[Startup]\nPROPATH=custom,base,missing\n",
		"custom/app/main.p":      "custom",
		"base/app/main.p":        "base",
		"base/app/util.i":        "util",
		"base/app/util.r":        "compiled",
		"base/lib/readme.txt":    "docs",
		"custom/lib/mainlib.cls": "class",
	} {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return root
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func step(t *testing.T, m AppModel, msg tea.Msg) (AppModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	am, ok := next.(AppModel)
	require.True(t, ok, "Update returned %T", next)
	return am, cmd
}

func loaded(t *testing.T, root string) AppModel {
	t.Helper()
	m := InitialModel(root, search.NewEngine(search.DefaultOptions()))
	m, _ = step(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	m, _ = step(t, m, LoadCmd(root)())
	require.False(t, m.Loading)
	require.NoError(t, m.Err)
	return m
}

func TestLoad(t *testing.T) {
	m := loaded(t, newTree(t))

	assert.Equal(t, []int{0, 1, 2}, m.FilteredIndices)
	assert.Equal(t, 3, m.Propath.Len())

	view := m.View()
	assert.Contains(t, view, "PROPATH")
	assert.Contains(t, view, "custom")
	assert.Contains(t, view, "(missing)")
}

func TestLoad_Error(t *testing.T) {
	m := InitialModel(t.TempDir(), search.NewEngine(search.DefaultOptions()))
	m, _ = step(t, m, LoadCmd(m.Root)())
	require.Error(t, m.Err)
	assert.Contains(t, m.View(), "Error:")
}

func TestNavigation(t *testing.T) {
	m := loaded(t, newTree(t))

	m, _ = step(t, m, key("k"))
	assert.Equal(t, 0, m.SelectedIdx)
	m, _ = step(t, m, key("j"))
	m, _ = step(t, m, key("j"))
	m, _ = step(t, m, key("j"))
	assert.Equal(t, 2, m.SelectedIdx)

	entry, ok := m.selected()
	require.True(t, ok)
	assert.False(t, entry.Exists)

	m, _ = step(t, m, key("d"))
	assert.True(t, m.ShowDiagnostics)
	assert.Contains(t, m.renderDetails(), "Advice:")
}

func TestWhich(t *testing.T) {
	m := loaded(t, newTree(t))

	m, _ = step(t, m, key("w"))
	require.Equal(t, InputWhich, m.InputMode)
	m, _ = step(t, m, key("app/main.p"))
	m, cmd := step(t, m, key("enter"))
	require.NotNil(t, cmd)
	assert.Equal(t, InputNone, m.InputMode)

	m, _ = step(t, m, cmd())
	assert.Equal(t, []int{0, 1}, m.FilteredIndices)
	assert.False(t, m.WhichMatches[0].Shadowed)
	assert.True(t, m.WhichMatches[1].Shadowed)
	assert.Contains(t, m.renderDetails(), "This root wins resolution.")

	m, _ = step(t, m, key("esc"))
	assert.Nil(t, m.WhichMatches)
	assert.Equal(t, []int{0, 1, 2}, m.FilteredIndices)
}

func TestWhich_NotFound(t *testing.T) {
	m := loaded(t, newTree(t))

	m, _ = step(t, m, WhichCmd(m.Propath, "nope.p")())
	require.Error(t, m.WhichErr)
	assert.Empty(t, m.FilteredIndices)
	assert.Contains(t, m.View(), "does not exist")
}

func TestFind(t *testing.T) {
	m := loaded(t, newTree(t))

	m, _ = step(t, m, key("/"))
	require.Equal(t, InputFind, m.InputMode)
	m, _ = step(t, m, key("util"))
	m, cmd := step(t, m, key("enter"))
	require.NotNil(t, cmd)

	m, _ = step(t, m, cmd())
	require.True(t, m.ShowFind)
	assert.Equal(t, []string{"base/app/util.i"}, m.FindResult.Matches)
	assert.Contains(t, m.View(), "base/app/util.i")

	m, _ = step(t, m, key("esc"))
	assert.False(t, m.ShowFind)
}

func TestDiagnosticsPopup(t *testing.T) {
	m := loaded(t, newTree(t))

	m, _ = step(t, m, key("D"))
	require.True(t, m.ShowDiagnosticsPopup)
	assert.Contains(t, m.View(), "PROPATH Diagnostics")

	m, _ = step(t, m, key("v"))
	assert.True(t, m.VerboseReport)

	m, _ = step(t, m, key("D"))
	assert.False(t, m.ShowDiagnosticsPopup)
}

func TestReload(t *testing.T) {
	root := newTree(t)
	m := loaded(t, root)

	require.NoError(t, os.WriteFile(filepath.Join(root, "stec.ini"), []byte("[Startup]\nPROPATH=base\n"), 0o644))
	m, cmd := step(t, m, key("r"))
	require.True(t, m.Loading)
	m, _ = step(t, m, cmd())
	assert.Equal(t, 1, m.Propath.Len())
	assert.Equal(t, []int{0}, m.FilteredIndices)
}
