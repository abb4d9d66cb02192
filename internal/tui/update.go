package tui

import (
	"context"
	"strings"

	"propath/internal/analysis"
	"propath/internal/model"
	"propath/internal/propath"
	"propath/internal/search"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// MsgLoaded carries a freshly loaded and analyzed PROPATH.
type MsgLoaded struct {
	Propath  *propath.Propath
	Analysis model.AnalysisResult
}

// MsgError indicates the PROPATH could not be loaded.
type MsgError error

// MsgWhich carries the roots that contain a logical path.
type MsgWhich struct {
	Query   string
	Matches []model.WhichMatch
	Err     error
}

// MsgFound carries a finished tree search.
type MsgFound struct {
	Result model.SearchResult
	Err    error
}

// Update handles events.
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.WindowSize = msg
		m.Popup.Width = max(msg.Width*90/100-4, 20)
		m.Popup.Height = max(msg.Height-10, 3)
		return m, nil

	case MsgLoaded:
		m.Loading = false
		m.Err = nil
		m.Propath = msg.Propath
		m.Analysis = msg.Analysis
		m.resetFilter()
		if m.ShowDiagnosticsPopup {
			m.Popup.SetContent(analysis.GenerateReport(m.Analysis, m.VerboseReport))
		}
		return m, nil

	case MsgError:
		m.Err = msg
		m.Loading = false
		return m, nil

	case MsgWhich:
		m.WhichQuery = msg.Query
		m.WhichErr = msg.Err
		m.WhichMatches = make(map[int]model.WhichMatch, len(msg.Matches))
		m.FilteredIndices = make([]int, 0, len(msg.Matches))
		for _, match := range msg.Matches {
			m.WhichMatches[match.Index] = match
			m.FilteredIndices = append(m.FilteredIndices, match.Index)
		}
		m.SelectedIdx = 0
		return m, nil

	case MsgFound:
		m.FindResult = msg.Result
		m.FindErr = msg.Err
		m.ShowFind = true
		m.Popup.SetContent(renderFindResult(msg.Result, msg.Err))
		m.Popup.GotoTop()
		return m, nil

	case tea.KeyMsg:
		if m.InputMode != InputNone {
			switch msg.Type {
			case tea.KeyEnter:
				kind := m.InputMode
				query := m.InputBuffer.Value()
				m.InputMode = InputNone
				m.InputBuffer.Blur()
				return m, m.submit(kind, query)
			case tea.KeyEsc:
				m.InputMode = InputNone
				m.InputBuffer.Blur()
				m.InputBuffer.SetValue("")
				return m, nil
			}
			m.InputBuffer, cmd = m.InputBuffer.Update(msg)
			return m, cmd
		}

		if m.ShowDiagnosticsPopup || m.ShowFind || m.ShowHelp {
			return m.updatePopup(msg)
		}

		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "esc":
			if m.WhichMatches != nil {
				m.resetFilter()
			}
		case "up", "k":
			if m.SelectedIdx > 0 {
				m.SelectedIdx--
			}
		case "down", "j":
			if m.SelectedIdx < len(m.FilteredIndices)-1 {
				m.SelectedIdx++
			}
		case "d":
			m.ShowDiagnostics = !m.ShowDiagnostics
		case "D":
			m.ShowDiagnosticsPopup = true
			m.Popup.SetContent(analysis.GenerateReport(m.Analysis, m.VerboseReport))
			m.Popup.GotoTop()
		case "?":
			m.ShowHelp = true
			m.Popup.SetContent(helpText)
			m.Popup.GotoTop()
		case "r":
			m.Loading = true
			return m, LoadCmd(m.Root)
		case "w":
			return m, m.startInput(InputWhich, "app/main.p")
		case "/":
			return m, m.startInput(InputFind, "name fragment")
		}
	}

	return m, cmd
}

func (m AppModel) updatePopup(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "esc", "D", "?":
		m.ShowDiagnosticsPopup = false
		m.ShowFind = false
		m.ShowHelp = false
		return m, nil
	case "v":
		if m.ShowDiagnosticsPopup {
			m.VerboseReport = !m.VerboseReport
			m.Popup.SetContent(analysis.GenerateReport(m.Analysis, m.VerboseReport))
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.Popup, cmd = m.Popup.Update(msg)
	return m, cmd
}

func (m *AppModel) startInput(kind InputKind, placeholder string) tea.Cmd {
	m.InputMode = kind
	m.InputBuffer.Placeholder = placeholder
	m.InputBuffer.SetValue("")
	m.InputBuffer.Focus()
	return textinput.Blink
}

func (m *AppModel) submit(kind InputKind, query string) tea.Cmd {
	switch kind {
	case InputWhich:
		if strings.TrimSpace(query) == "" || m.Propath == nil {
			m.resetFilter()
			return nil
		}
		return WhichCmd(m.Propath, query)
	case InputFind:
		return FindCmd(m.Engine, m.Root, query)
	}
	return nil
}

// LoadCmd loads and analyzes the PROPATH of root in the background.
func LoadCmd(root string) tea.Cmd {
	return func() tea.Msg {
		p, err := propath.LoadPropath(root)
		if err != nil {
			return MsgError(err)
		}
		return MsgLoaded{Propath: p, Analysis: analysis.NewAnalyzer().Analyze(p)}
	}
}

// WhichCmd lists every root that contains logicalPath.
func WhichCmd(p *propath.Propath, logicalPath string) tea.Cmd {
	return func() tea.Msg {
		matches, err := p.ResolveAll(context.Background(), logicalPath)
		return MsgWhich{Query: logicalPath, Matches: matches, Err: err}
	}
}

// FindCmd searches the tree at root for file names containing query.
func FindCmd(engine *search.Engine, root, query string) tea.Cmd {
	return func() tea.Msg {
		res, err := engine.Search(context.Background(), root, query)
		return MsgFound{Result: res, Err: err}
	}
}
