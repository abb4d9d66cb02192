package propath

import (
	"context"
	"errors"
	"os"

	"github.com/rs/zerolog"

	xglog "propath/internal/log"
	"propath/internal/model"
	"propath/internal/pathutil"
)

// Resolve returns the absolute path of requested under the first search
// root that contains it. Existence is all that is checked, so a directory
// of the requested name satisfies resolution too. The filesystem is probed
// on every call.
func (p *Propath) Resolve(ctx context.Context, requested string) (string, error) {
	rel, err := pathutil.NormalizeRequest(requested)
	if err != nil {
		return "", &EscapeError{Path: requested, Err: err}
	}
	logger := xglog.WithComponentFromContext(ctx, "resolver")

	for _, root := range p.roots {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		candidate, err := probe(root, rel, logger)
		if err != nil {
			return "", &EscapeError{Path: requested, Err: err}
		}
		if candidate != "" {
			return candidate, nil
		}
	}
	return "", &NotFoundError{Path: requested}
}

// ResolveAll lists every search root that contains requested, in PROPATH
// order. The first match is the one Resolve returns; the rest are shadowed.
func (p *Propath) ResolveAll(ctx context.Context, requested string) ([]model.WhichMatch, error) {
	rel, err := pathutil.NormalizeRequest(requested)
	if err != nil {
		return nil, &EscapeError{Path: requested, Err: err}
	}
	logger := xglog.WithComponentFromContext(ctx, "resolver")

	var matches []model.WhichMatch
	for i, root := range p.roots {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		candidate, err := probe(root, rel, logger)
		if err != nil {
			return nil, &EscapeError{Path: requested, Err: err}
		}
		if candidate == "" {
			continue
		}
		m := model.WhichMatch{
			Index:    i,
			Root:     root,
			Path:     candidate,
			Shadowed: len(matches) > 0,
		}
		if info, err := os.Stat(candidate); err == nil {
			m.IsDir = info.IsDir()
		}
		matches = append(matches, m)
	}
	if len(matches) == 0 {
		return nil, &NotFoundError{Path: requested}
	}
	return matches, nil
}

// probe returns the candidate path if rel exists under root, "" if it does
// not, and an error only when the candidate escapes root.
func probe(root, rel string, logger zerolog.Logger) (string, error) {
	candidate, err := pathutil.ConfineRelPath(root, rel)
	switch {
	case err == nil:
		return candidate, nil
	case errors.Is(err, pathutil.ErrEscape):
		return "", err
	case !os.IsNotExist(err):
		logger.Debug().Err(err).Str(xglog.FieldRoot, root).Str(xglog.FieldPath, rel).Msg("search root skipped")
	}
	return "", nil
}
