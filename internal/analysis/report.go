package analysis

import (
	"fmt"
	"strings"

	"propath/internal/model"
)

// GenerateReport renders an AnalysisResult as plain text. Verbose adds the
// manifest lines around the PROPATH declaration and per-entry remediation.
func GenerateReport(res model.AnalysisResult, verbose bool) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "propath report (%s)\n", model.Version)
	fmt.Fprintf(&sb, "Tree root: %s\n", res.Root)
	if res.Manifest != "" {
		line := 0
		if len(res.RootEntries) > 0 {
			line = res.RootEntries[0].LineNumber
		}
		if line > 0 {
			fmt.Fprintf(&sb, "Manifest:  %s:%d\n", res.Manifest, line)
		} else {
			fmt.Fprintf(&sb, "Manifest:  %s\n", res.Manifest)
		}
	}
	sb.WriteString("\n")

	fmt.Fprintf(&sb, "PROPATH (%d entries, first match wins)\n", len(res.RootEntries))
	for i, e := range res.RootEntries {
		prio := " "
		switch {
		case i == 0:
			prio = model.IconFirst
		case i == len(res.RootEntries)-1:
			prio = model.IconLast
		}
		fmt.Fprintf(&sb, "%s%s %3d  %s\n", prio, model.EntryIcon(e), i+1, e.Value)
		if verbose {
			if e.Fragment != "" && e.Fragment != e.Value {
				fmt.Fprintf(&sb, "          fragment: %s\n", e.Fragment)
			}
			if e.Remediation != "" {
				fmt.Fprintf(&sb, "          advice:   %s\n", e.Remediation)
			}
		}
	}

	sb.WriteString("\n")
	if len(res.Diagnostics) == 0 {
		sb.WriteString("No problems found.\n")
	} else {
		fmt.Fprintf(&sb, "Diagnostics (%d)\n", len(res.Diagnostics))
		for _, d := range res.Diagnostics {
			fmt.Fprintf(&sb, "  - %s\n", d)
		}
	}

	if verbose && res.Manifest != "" && len(res.RootEntries) > 0 && res.RootEntries[0].LineNumber > 0 {
		ctx := model.GetLineContext(res.Manifest, res.RootEntries[0].LineNumber, 2)
		sb.WriteString("\nManifest excerpt\n")
		if ctx.ErrorMsg != "" {
			fmt.Fprintf(&sb, "  %s\n", ctx.ErrorMsg)
		}
		for _, l := range ctx.Lines {
			marker := " "
			if l.Target {
				marker = ">"
			}
			fmt.Fprintf(&sb, "  %s %4d | %s\n", marker, l.Number, l.Text)
		}
	}

	sb.WriteString("\nLegend: ")
	sb.WriteString(strings.Join([]string{
		model.IconFirst + " first",
		model.IconLast + " last",
		model.IconMissing + " missing",
		model.IconNotDir + " not a directory",
		model.IconDuplicate + " duplicate",
		model.IconTreeRoot + " tree root",
	}, "  "))
	sb.WriteString("\n")
	return sb.String()
}
