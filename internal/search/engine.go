// Package search walks a stec tree and finds files by name fragment.
package search

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	xglog "propath/internal/log"
	"propath/internal/model"
	"propath/internal/pathutil"
)

// DefaultExcludeExtensions hides .r files, which are compiled r-code.
var DefaultExcludeExtensions = []string{"r"}

// Options controls which regular files a search reports.
type Options struct {
	// ExcludeExtensions lists extensions (without the dot, case-sensitive)
	// that never match.
	ExcludeExtensions []string
	// RequireExtension drops files that have no extension at all.
	RequireExtension bool
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{ExcludeExtensions: append([]string(nil), DefaultExcludeExtensions...)}
}

// Engine searches directory trees. It keeps no state between searches and
// is safe for concurrent use.
type Engine struct {
	exclude          map[string]struct{}
	requireExtension bool
	tracer           trace.Tracer
}

// NewEngine creates an Engine with the given options.
func NewEngine(opts Options) *Engine {
	exclude := make(map[string]struct{}, len(opts.ExcludeExtensions))
	for _, ext := range opts.ExcludeExtensions {
		exclude[strings.TrimPrefix(ext, ".")] = struct{}{}
	}
	return &Engine{
		exclude:          exclude,
		requireExtension: opts.RequireExtension,
		tracer:           otel.Tracer("propath/search"),
	}
}

// Match reports whether a regular file called name passes the filters.
func (e *Engine) Match(name, query string) bool {
	if !strings.Contains(name, query) {
		return false
	}
	ext := strings.TrimPrefix(filepath.Ext(name), ".")
	if ext == "" && e.requireExtension {
		return false
	}
	_, excluded := e.exclude[ext]
	return !excluded
}

// Search walks root in lexical order and returns, relative to root, every
// regular file whose name contains query. A symlinked root is followed;
// symlinks below it are not. Entries that cannot be read are
// recorded in Skipped and the walk carries on. The whole tree is walked
// before returning. Only context cancellation aborts a search.
func (e *Engine) Search(ctx context.Context, root, query string) (model.SearchResult, error) {
	ctx, span := e.tracer.Start(ctx, "search.walk", trace.WithAttributes(
		attribute.String("search.root", root),
		attribute.String("search.query", query),
	))
	defer span.End()

	logger := xglog.WithComponentFromContext(ctx, "search")
	result := model.SearchResult{Query: query, Matches: []string{}}

	// WalkDir does not follow a symlinked root. A root that cannot be
	// resolved is walked as given so the failure lands in Skipped.
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		root = resolved
	}

	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			e.skip(&result, logger, p, err)
			return nil
		}
		if !d.Type().IsRegular() || !e.Match(d.Name(), query) {
			return nil
		}
		if rel := pathutil.RelativeTo(p, root); rel != "" {
			result.Matches = append(result.Matches, rel)
		}
		return nil
	})

	span.SetAttributes(
		attribute.Int("search.matches", len(result.Matches)),
		attribute.Int("search.skipped", len(result.Skipped)),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return result, err
	}
	return result, nil
}

func (e *Engine) skip(result *model.SearchResult, logger zerolog.Logger, p string, err error) {
	result.Skipped = append(result.Skipped, model.SkippedEntry{Path: p, Error: err.Error()})
	logger.Debug().
		Err(err).
		Str(xglog.FieldEvent, "search.entry_skipped").
		Str(xglog.FieldPath, p).
		Msg("skipping unreadable entry")
}
