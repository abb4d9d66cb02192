package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"propath/internal/analysis"
	"propath/internal/config"
	xglog "propath/internal/log"
	"propath/internal/model"
	"propath/internal/propath"
	"propath/internal/search"
	"propath/internal/tui"
	"propath/internal/web"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"
	"github.com/tcnksm/go-latest"
)

const (
	releaseOwner = "stec-tools"
	releaseRepo  = "propath"
)

func checkUpdate(currentVer string) {
	githubTag := &latest.GithubTag{
		Owner:      releaseOwner,
		Repository: releaseRepo,
	}

	res, err := latest.Check(githubTag, currentVer)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Could not check for updates: %v\n", err)
		return
	}

	if res.Outdated {
		fmt.Printf("\n✨ A new version is available: %s (you have %s)\n", res.Current, currentVer)
		fmt.Printf("👉 Download it from https://github.com/%s/%s/releases\n", releaseOwner, releaseRepo)
	} else {
		fmt.Printf("✅ You are using the latest version: %s\n", currentVer)
	}
}

func main() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: propath [options]\n\n")
		fmt.Fprintf(os.Stderr, "propath serves a stec source tree over HTTP. Files are fetched by logical\n")
		fmt.Fprintf(os.Stderr, "path, resolved against the PROPATH declared in the tree's stec.ini, and the\n")
		fmt.Fprintf(os.Stderr, "tree can be searched by file name.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  propath --root ./src                  # Serve on 127.0.0.1:8000\n")
		fmt.Fprintf(os.Stderr, "  propath --root ./src --report         # Print PROPATH diagnostics\n")
		fmt.Fprintf(os.Stderr, "  propath --root ./src --which app/a.p  # Which roots contain app/a.p\n")
		fmt.Fprintf(os.Stderr, "  propath --root ./src --find order     # Files whose name contains 'order'\n")
		fmt.Fprintf(os.Stderr, "  propath --root ./src --tui            # Browse the PROPATH interactively\n")
	}

	config.RegisterFlags(pflag.CommandLine)
	jsonFlag := pflag.BoolP("json", "j", false, "Output the PROPATH analysis as JSON")
	reportFlag := pflag.BoolP("report", "r", false, "Print a PROPATH diagnostic report")
	outputFlag := pflag.StringP("output", "o", "", "Save the report to the specified file (combined with --report)")
	verboseFlag := pflag.BoolP("verbose", "v", false, "Verbose report; log to stderr in CLI modes")
	tuiFlag := pflag.BoolP("tui", "t", false, "Browse the PROPATH in a terminal UI")
	whichFlag := pflag.StringP("which", "w", "", "List every PROPATH root containing a logical path")
	findFlag := pflag.StringP("find", "f", "", "Search the tree for file names containing a fragment")
	versionFlag := pflag.BoolP("version", "V", false, "Print version information")
	updateFlag := pflag.BoolP("update", "u", false, "Check for the latest version")
	helpFlag := pflag.BoolP("help", "h", false, "Show this help message")
	pflag.Parse()

	if *helpFlag {
		pflag.Usage()
		return
	}

	if *versionFlag {
		fmt.Printf("propath version %s\n", model.Version)
		return
	}

	if *updateFlag {
		checkUpdate(model.Version)
		return
	}

	serving := !*jsonFlag && !*reportFlag && !*tuiFlag &&
		!pflag.CommandLine.Changed("which") && !pflag.CommandLine.Changed("find")

	// Only the server logs by default; CLI modes write their own output.
	logCfg := xglog.Config{Version: model.Version}
	if !serving && !*verboseFlag {
		logCfg.Output = io.Discard
	}
	if pflag.CommandLine.Changed(config.FlagLogLevel) {
		logCfg.Level, _ = pflag.CommandLine.GetString(config.FlagLogLevel)
	}
	// Provisional until the merged config names the level.
	xglog.Configure(logCfg)

	config.LoadDotEnv(".env")
	cfg, err := config.NewLoader(pflag.CommandLine).Load()
	if err != nil {
		fatal(err)
	}
	logCfg.Level = cfg.LogLevel
	xglog.Configure(logCfg)

	if err := config.Validate(cfg); err != nil {
		fatal(err)
	}

	switch {
	case *tuiFlag:
		err = runTuiMode(cfg)
	case pflag.CommandLine.Changed("which"):
		err = runWhichMode(cfg, *whichFlag)
	case pflag.CommandLine.Changed("find"):
		err = runFindMode(cfg, *findFlag)
	case *reportFlag:
		err = runReportMode(cfg, *outputFlag, *verboseFlag)
	case *jsonFlag:
		err = runJSONMode(cfg)
	default:
		err = runServeMode(cfg)
	}
	if err != nil {
		fatal(err)
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "propath: %v\n", err)
	os.Exit(1)
}

func runServeMode(cfg config.Config) error {
	holder, err := propath.NewHolder(cfg.Root)
	if err != nil {
		return err
	}
	core := web.NewCore(holder, search.NewEngine(cfg.SearchOptions()), cfg.SearchTimeout)
	server := web.NewServer(cfg, core, holder)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Serving %s at http://%s\n", cfg.Root, cfg.Addr)
	return server.Run(ctx)
}

func analyze(cfg config.Config) (model.AnalysisResult, error) {
	p, err := propath.LoadPropath(cfg.Root)
	if err != nil {
		return model.AnalysisResult{}, err
	}
	return analysis.NewAnalyzer().Analyze(p), nil
}

func runReportMode(cfg config.Config, outputFile string, verbose bool) error {
	res, err := analyze(cfg)
	if err != nil {
		return err
	}
	report := analysis.GenerateReport(res, verbose)

	if outputFile == "" {
		fmt.Println(report)
		return nil
	}
	if err := os.WriteFile(outputFile, []byte(report), 0o644); err != nil {
		return fmt.Errorf("writing report to %s: %w", outputFile, err)
	}
	fmt.Printf("Report saved to %s\n", outputFile)
	return nil
}

func runJSONMode(cfg config.Config) error {
	res, err := analyze(cfg)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

func runWhichMode(cfg config.Config, logicalPath string) error {
	p, err := propath.LoadPropath(cfg.Root)
	if err != nil {
		return err
	}
	matches, err := p.ResolveAll(context.Background(), logicalPath)
	if errors.Is(err, propath.ErrNotFound) {
		fmt.Printf("%s: not found in any of %d PROPATH roots\n", logicalPath, p.Len())
		os.Exit(1)
	}
	if err != nil {
		return err
	}
	for _, m := range matches {
		icon := model.IconOK
		if m.Shadowed {
			icon = model.IconShadowed
		}
		kind := ""
		if m.IsDir {
			kind = " (directory)"
		}
		fmt.Printf("%s %3d  %s%s\n", icon, m.Index+1, m.Path, kind)
	}
	return nil
}

func runFindMode(cfg config.Config, query string) error {
	ctx := context.Background()
	if cfg.SearchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.SearchTimeout)
		defer cancel()
	}

	res, err := search.NewEngine(cfg.SearchOptions()).Search(ctx, cfg.Root, query)
	if err != nil {
		return err
	}
	for _, m := range res.Matches {
		fmt.Println(m)
	}
	for _, s := range res.Skipped {
		fmt.Fprintf(os.Stderr, "skipped %s: %s\n", s.Path, s.Error)
	}
	return nil
}

func runTuiMode(cfg config.Config) error {
	m := tui.InitialModel(cfg.Root, search.NewEngine(cfg.SearchOptions()))
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("alas, there's been an error: %w", err)
	}
	return nil
}
