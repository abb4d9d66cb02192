package web

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"propath/internal/analysis"
	xglog "propath/internal/log"
	"propath/internal/metrics"
	"propath/internal/model"
	"propath/internal/propath"
	"propath/internal/search"
)

// ErrIsDirectory is returned when a logical path resolves to a directory,
// which exists (so resolution succeeds) but cannot be streamed.
var ErrIsDirectory = errors.New("resolved path is a directory")

// File is an opened, resolved file. The caller closes it.
type File struct {
	*os.File
	Resolved string
	Info     os.FileInfo
}

// Service is everything the HTTP layer needs from the core.
type Service interface {
	Fetch(ctx context.Context, logicalPath string) (*File, error)
	Find(ctx context.Context, query string) (model.SearchResult, error)
	Which(ctx context.Context, logicalPath string) ([]model.WhichMatch, error)
	Analyze(ctx context.Context) model.AnalysisResult
	Propath() *propath.Propath
}

// Core implements Service over a PROPATH holder and a search engine.
type Core struct {
	holder   *propath.Holder
	engine   *search.Engine
	analyzer *analysis.Analyzer
	timeout  time.Duration
}

var _ Service = (*Core)(nil)

// NewCore wires the core components. A zero timeout disables the search
// deadline.
func NewCore(holder *propath.Holder, engine *search.Engine, timeout time.Duration) *Core {
	return &Core{
		holder:   holder,
		engine:   engine,
		analyzer: analysis.NewAnalyzer(),
		timeout:  timeout,
	}
}

// Propath returns the PROPATH in effect.
func (c *Core) Propath() *propath.Propath {
	return c.holder.Current()
}

// Fetch resolves logicalPath against the PROPATH and opens it.
func (c *Core) Fetch(ctx context.Context, logicalPath string) (*File, error) {
	resolved, err := c.holder.Current().Resolve(ctx, logicalPath)
	if err != nil {
		metrics.RecordResolve(resolveOutcome(err))
		return nil, err
	}

	f, err := os.Open(resolved)
	if err != nil {
		metrics.RecordResolve(metrics.OutcomeError)
		return nil, fmt.Errorf("could not open file '%s': %w", resolved, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		metrics.RecordResolve(metrics.OutcomeError)
		return nil, fmt.Errorf("stat '%s': %w", resolved, err)
	}
	if info.IsDir() {
		_ = f.Close()
		metrics.RecordResolve(metrics.OutcomeRejected)
		return nil, fmt.Errorf("%w: %s", ErrIsDirectory, resolved)
	}

	metrics.RecordResolve(metrics.OutcomeFound)
	return &File{File: f, Resolved: resolved, Info: info}, nil
}

// Find searches the whole tree for file names containing query.
func (c *Core) Find(ctx context.Context, query string) (model.SearchResult, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	res, err := c.engine.Search(ctx, c.holder.Current().Root(), query)
	elapsed := time.Since(start)

	logger := xglog.WithComponentFromContext(ctx, "search")
	if err != nil {
		logger.Warn().
			Err(err).
			Str(xglog.FieldEvent, "search.aborted").
			Str(xglog.FieldQuery, query).
			Dur("elapsed", elapsed).
			Msg("search aborted")
		return res, err
	}

	metrics.RecordSearch(elapsed, len(res.Matches), len(res.Skipped))
	ev := logger.Info()
	if len(res.Skipped) > 0 {
		ev = logger.Warn()
	}
	ev.Str(xglog.FieldEvent, "search.completed").
		Str(xglog.FieldQuery, query).
		Int(xglog.FieldMatches, len(res.Matches)).
		Int(xglog.FieldSkipped, len(res.Skipped)).
		Dur("elapsed", elapsed).
		Msg("search completed")
	return res, nil
}

// Which lists every search root that contains logicalPath.
func (c *Core) Which(ctx context.Context, logicalPath string) ([]model.WhichMatch, error) {
	return c.holder.Current().ResolveAll(ctx, logicalPath)
}

// Analyze reports on the PROPATH in effect.
func (c *Core) Analyze(_ context.Context) model.AnalysisResult {
	return c.analyzer.Analyze(c.holder.Current())
}

func resolveOutcome(err error) string {
	switch {
	case errors.Is(err, propath.ErrNotFound):
		return metrics.OutcomeNotFound
	case errors.Is(err, propath.ErrEscape):
		return metrics.OutcomeRejected
	}
	return metrics.OutcomeError
}
