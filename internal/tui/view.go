package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"propath/internal/model"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	headingStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("229")).Background(lipgloss.Color("57"))
	normalStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	adviceStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("208")) // Orange

	pathHighlightStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("81")). // Sky Blue/Cyan
				Bold(true)

	borderColor = lipgloss.Color("63")
	activeColor = lipgloss.Color("205")
)

const helpText = `propath browser

  ↑/↓ j/k   move through the PROPATH
  w         which: list every root containing a logical path
  /         find: search the whole tree by file name fragment
  esc       clear the which filter, close a popup
  d         toggle remediation advice in the details panel
  D         PROPATH diagnostics report (v toggles verbose)
  r         reload stec.ini
  ?         this help
  q         quit

Icons
  ¹ first root (wins ties)   ¶ last root
  ≈ duplicate   ✗ missing   ! not a directory   ⌂ tree root
  ◌ shadowed by an earlier root`

func (m AppModel) View() string {
	if m.Loading {
		return "\n  Loading stec.ini... please wait.\n"
	}
	if m.Err != nil {
		return fmt.Sprintf("\n  Error: %v\n\n  Press r to retry or q to quit.\n", m.Err)
	}
	switch {
	case m.ShowHelp:
		return m.renderPopup("Help", "Esc to close")
	case m.ShowDiagnosticsPopup:
		return m.renderPopup("PROPATH Diagnostics", "v: verbose • ↑/↓: scroll • Esc to close")
	case m.ShowFind:
		return m.renderPopup("Find", "↑/↓: scroll • Esc to close")
	}

	netWidth := max(m.WindowSize.Width-6, 20)
	leftWidth := netWidth / 2
	rightWidth := netWidth - leftWidth
	interiorHeight := max(m.WindowSize.Height-8, 2)

	left := lipgloss.NewStyle().
		Width(leftWidth).
		Height(interiorHeight).
		Border(lipgloss.NormalBorder()).
		BorderForeground(activeColor).
		Render(m.renderRoots(leftWidth, interiorHeight))

	right := lipgloss.NewStyle().
		Width(rightWidth).
		Height(interiorHeight).
		Border(lipgloss.NormalBorder()).
		BorderForeground(borderColor).
		Render(clip(m.renderDetails(), rightWidth, interiorHeight))

	help := "↑/↓: Navigate • w: Which • /: Find • d: Advice • D: Diagnostics • r: Reload • ?: Help • q: Quit"
	if m.WhichMatches != nil {
		help = "Which: Esc to show every root • " + help
	}
	footer := "\n\n" + dimStyle.Render(help)
	switch m.InputMode {
	case InputWhich:
		footer = "\n\nWhich: " + m.InputBuffer.View()
	case InputFind:
		footer = "\n\nFind: " + m.InputBuffer.View()
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, left, right) + footer
}

func (m AppModel) renderRoots(width, height int) string {
	var sb strings.Builder
	title := "PROPATH"
	if m.WhichMatches != nil {
		title = fmt.Sprintf("Roots containing %s", m.WhichQuery)
	}
	sb.WriteString(headingStyle.Render(title))
	sb.WriteString("\n\n")

	if m.WhichErr != nil {
		sb.WriteString(adviceStyle.Render(m.WhichErr.Error()))
		return sb.String()
	}

	// Keep the cursor roughly centred when the list is taller than the box.
	visible := max(height-2, 1)
	start, end := 0, len(m.FilteredIndices)
	if end > visible {
		start = max(m.SelectedIdx-visible/2, 0)
		start = min(start, end-visible)
		end = start + visible
	}

	last := len(m.Analysis.RootEntries) - 1
	for i := start; i < end; i++ {
		idx := m.FilteredIndices[i]
		entry := m.Analysis.RootEntries[idx]

		icon := model.EntryIcon(entry)
		if match, ok := m.WhichMatches[idx]; ok && match.Shadowed {
			icon = model.IconShadowed
		}
		line := fmt.Sprintf("%2d. %s %s", idx+1, icon, displayFragment(entry))
		switch {
		case entry.IsDuplicate:
			line += " (duplicate)"
		case !entry.Exists:
			line += " (missing)"
		}
		if idx == 0 {
			line += " " + model.IconFirst
		} else if idx == last {
			line += " " + model.IconLast
		}
		line = truncate(line, width-2)

		if i == m.SelectedIdx {
			sb.WriteString(selectedStyle.Render(line))
		} else {
			sb.WriteString(normalStyle.Render(line))
		}
		sb.WriteString("\n")
	}
	if len(m.FilteredIndices) == 0 {
		sb.WriteString(dimStyle.Render("No entries."))
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

func (m AppModel) renderDetails() string {
	var sb strings.Builder
	sb.WriteString(headingStyle.Render("Details"))
	sb.WriteString("\n")

	entry, ok := m.selected()
	if !ok {
		sb.WriteString("\nNo entry selected.")
		return sb.String()
	}

	fmt.Fprintf(&sb, "\nDirectory:  %s", entry.Value)
	fmt.Fprintf(&sb, "\nFragment:   %s", displayFragment(entry))
	fmt.Fprintf(&sb, "\nPosition:   %d of %d", entry.Index+1, len(m.Analysis.RootEntries))
	status := "ok"
	switch {
	case !entry.Exists:
		status = "does not exist"
	case !entry.IsDir:
		status = "not a directory"
	case entry.IsDuplicate:
		status = fmt.Sprintf("duplicate of entry %d", entry.DuplicateOf+1)
	}
	fmt.Fprintf(&sb, "\nStatus:     %s", status)
	fmt.Fprintf(&sb, "\nDeclared:   %s:%d", entry.SourceFile, entry.LineNumber)

	lc := model.GetLineContext(entry.SourceFile, entry.LineNumber, 2)
	if lc.ErrorMsg == "" {
		sb.WriteString("\n\n--- stec.ini ---")
		for _, l := range lc.Lines {
			text := fmt.Sprintf("%4d  %s", l.Number, l.Text)
			if l.Target {
				sb.WriteString("\n» " + pathHighlightStyle.Render(text))
			} else {
				sb.WriteString("\n  " + dimStyle.Render(text))
			}
		}
	}

	if match, ok := m.WhichMatches[entry.Index]; ok {
		sb.WriteString("\n\n--- Which ---")
		fmt.Fprintf(&sb, "\nFile:       %s", match.Path)
		if match.IsDir {
			sb.WriteString("\nKind:       directory")
		}
		if match.Shadowed {
			sb.WriteString(adviceStyle.Render("\n" + model.IconShadowed + " Shadowed: an earlier root wins"))
		} else {
			sb.WriteString("\nThis root wins resolution.")
		}
	}

	if m.ShowDiagnostics {
		if entry.Remediation != "" {
			sb.WriteString(adviceStyle.Render("\n\nAdvice: " + entry.Remediation))
		} else {
			sb.WriteString("\n\nNo issues detected.")
		}
	}
	return sb.String()
}

func (m AppModel) renderPopup(title, footer string) string {
	w, h := m.WindowSize.Width, m.WindowSize.Height
	if w < 20 || h < 10 {
		return "Window too small"
	}

	dialog := lipgloss.NewStyle().
		Width(m.Popup.Width+2).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("208")). // Orange
		Padding(0, 1).
		Render(titleStyle.Render(title) + "\n\n" + m.Popup.View() + "\n" + dimStyle.Render(footer))

	return lipgloss.Place(w, h, lipgloss.Center, lipgloss.Center, dialog)
}

func renderFindResult(res model.SearchResult, err error) string {
	var sb strings.Builder
	if err != nil {
		fmt.Fprintf(&sb, "Search aborted: %v\n\n", err)
	}
	fmt.Fprintf(&sb, "%d files match %q\n\n", len(res.Matches), res.Query)
	for _, p := range res.Matches {
		sb.WriteString(p)
		sb.WriteString("\n")
	}
	if len(res.Skipped) > 0 {
		fmt.Fprintf(&sb, "\n%d entries could not be read:\n", len(res.Skipped))
		for _, s := range res.Skipped {
			fmt.Fprintf(&sb, "  %s: %s\n", s.Path, s.Error)
		}
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

func displayFragment(e model.RootEntry) string {
	if e.IsRoot {
		return "(tree root)"
	}
	return e.Fragment
}

func truncate(s string, width int) string {
	if width < 4 || lipgloss.Width(s) <= width {
		return s
	}
	r := []rune(s)
	if len(r) > width-3 {
		r = r[:width-3]
	}
	return string(r) + "..."
}

// clip keeps styled text inside a box of the given size.
func clip(s string, width, height int) string {
	lines := strings.Split(s, "\n")
	if len(lines) > height {
		lines = lines[:height]
	}
	return lipgloss.NewStyle().MaxWidth(width).Render(strings.Join(lines, "\n"))
}

func (m AppModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, LoadCmd(m.Root))
}
