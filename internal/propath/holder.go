package propath

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	xglog "propath/internal/log"
	"propath/internal/metrics"
)

// Holder owns the PROPATH of one tree for the lifetime of a server. The
// held value is swapped atomically on reload and never mutated in place.
type Holder struct {
	root     string
	logger   zerolog.Logger
	debounce time.Duration

	mu      sync.RWMutex
	current *Propath
	loads   int
}

// NewHolder loads the PROPATH of root. A tree without a usable manifest is
// a startup failure.
func NewHolder(root string) (*Holder, error) {
	p, err := LoadPropath(root)
	if err != nil {
		return nil, err
	}
	h := &Holder{
		root:     root,
		logger:   xglog.WithComponent("propath"),
		debounce: 500 * time.Millisecond,
		current:  p,
		loads:    1,
	}
	metrics.SetRoots(p.Len())
	h.logger.Info().
		Str(xglog.FieldEvent, "propath.loaded").
		Str(xglog.FieldManifest, p.Manifest()).
		Int("roots", p.Len()).
		Msg("loaded PROPATH")
	return h, nil
}

// NewStaticHolder wraps an already built PROPATH. It cannot reload.
func NewStaticHolder(p *Propath) *Holder {
	return &Holder{
		root:    p.Root(),
		logger:  xglog.WithComponent("propath"),
		current: p,
		loads:   1,
	}
}

// Current returns the PROPATH in effect.
func (h *Holder) Current() *Propath {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// Loads reports how many times a PROPATH was successfully loaded.
func (h *Holder) Loads() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.loads
}

// Reload re-reads the manifest. On failure the previous PROPATH stays in
// effect and the error is returned.
func (h *Holder) Reload() error {
	p, err := LoadPropath(h.root)
	if err != nil {
		h.logger.Error().
			Err(err).
			Str(xglog.FieldEvent, "propath.reload_failed").
			Msg("keeping previous PROPATH")
		return err
	}

	h.mu.Lock()
	old := h.current
	h.current = p
	h.loads++
	h.mu.Unlock()
	metrics.SetRoots(p.Len())

	ev := h.logger.Info().
		Str(xglog.FieldEvent, "propath.reloaded").
		Int("roots", p.Len())
	if old != nil && !slices.Equal(old.roots, p.roots) {
		ev = ev.Strs("old", old.roots).Strs("new", p.roots)
	}
	ev.Msg("reloaded PROPATH")
	return nil
}

// Watch reloads the PROPATH whenever the manifest changes. It blocks until
// ctx is cancelled. The directory is watched rather than the file so that
// editors which replace the file on save are still noticed.
func (h *Holder) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(h.root); err != nil {
		return fmt.Errorf("watch %s: %w", h.root, err)
	}
	h.logger.Info().
		Str(xglog.FieldEvent, "propath.watcher_started").
		Str(xglog.FieldRoot, h.root).
		Msg("watching manifest for changes")

	manifest := filepath.Join(h.root, ManifestName)
	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			h.logger.Info().Str(xglog.FieldEvent, "propath.watcher_stopped").Msg("manifest watcher stopped")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != manifest {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			h.logger.Debug().
				Str(xglog.FieldEvent, "propath.manifest_changed").
				Str("op", event.Op.String()).
				Msg("manifest changed")
			if timer == nil {
				timer = time.NewTimer(h.debounce)
			} else {
				timer.Reset(h.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			_ = h.Reload()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			h.logger.Error().
				Err(err).
				Str(xglog.FieldEvent, "propath.watcher_error").
				Msg("manifest watcher error")
		}
	}
}
