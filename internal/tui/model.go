package tui

import (
	"propath/internal/model"
	"propath/internal/propath"
	"propath/internal/search"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// InputKind says what the text input is collecting.
type InputKind int

const (
	InputNone  InputKind = iota
	InputWhich           // logical path to resolve against every root
	InputFind            // file name fragment to search the tree for
)

// AppModel holds the TUI state.
type AppModel struct {
	// Data
	Root     string
	Engine   *search.Engine
	Propath  *propath.Propath
	Analysis model.AnalysisResult
	Loading  bool
	Err      error

	// UI State
	SelectedIdx int
	WindowSize  tea.WindowSizeMsg

	// View Modes
	ShowDiagnostics      bool
	ShowDiagnosticsPopup bool
	VerboseReport        bool
	ShowFind             bool
	ShowHelp             bool

	// Which State
	InputMode       InputKind
	InputBuffer     textinput.Model
	FilteredIndices []int                    // Indices of RootEntries to show
	WhichMatches    map[int]model.WhichMatch // RootEntry Index -> match under that root
	WhichQuery      string
	WhichErr        error

	// Find State
	FindResult model.SearchResult
	FindErr    error

	// Components
	Popup viewport.Model
}

// InitialModel returns the initial state for browsing the tree at root.
func InitialModel(root string, engine *search.Engine) AppModel {
	ti := textinput.New()
	ti.Placeholder = "app/main.p"
	ti.CharLimit = 256
	ti.Width = 40

	return AppModel{
		Root:        root,
		Engine:      engine,
		Loading:     true,
		InputBuffer: ti,
		Popup:       viewport.New(0, 0),
	}
}

// selected returns the RootEntry under the cursor.
func (m AppModel) selected() (model.RootEntry, bool) {
	if m.SelectedIdx < 0 || m.SelectedIdx >= len(m.FilteredIndices) {
		return model.RootEntry{}, false
	}
	return m.Analysis.RootEntries[m.FilteredIndices[m.SelectedIdx]], true
}

func (m *AppModel) resetFilter() {
	m.FilteredIndices = make([]int, len(m.Analysis.RootEntries))
	for i := range m.Analysis.RootEntries {
		m.FilteredIndices[i] = i
	}
	m.WhichMatches = nil
	m.WhichQuery = ""
	m.WhichErr = nil
	m.clampSelection()
}

func (m *AppModel) clampSelection() {
	if m.SelectedIdx >= len(m.FilteredIndices) {
		m.SelectedIdx = len(m.FilteredIndices) - 1
	}
	if m.SelectedIdx < 0 {
		m.SelectedIdx = 0
	}
}
