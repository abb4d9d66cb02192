package web

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"

	"propath/internal/analysis"
	"propath/internal/config"
	xglog "propath/internal/log"
	"propath/internal/metrics"
	"propath/internal/model"
	"propath/internal/propath"
)

const (
	// HeaderResolvedPath carries the absolute path a fetched file came from.
	HeaderResolvedPath = "X-Resolved-Path"
	// HeaderSkippedEntries carries how many entries a search could not read.
	HeaderSkippedEntries = "X-Skipped-Entries"
)

const shutdownTimeout = 10 * time.Second

// ErrBadRequest marks malformed client input.
var ErrBadRequest = errors.New("bad request")

// Server is the HTTP front of a single stec tree.
type Server struct {
	cfg    config.Config
	svc    Service
	holder *propath.Holder
	logger zerolog.Logger
	router chi.Router
}

// NewServer builds the router. holder may be nil, in which case the
// manifest is never watched.
func NewServer(cfg config.Config, svc Service, holder *propath.Holder) *Server {
	s := &Server{
		cfg:    cfg,
		svc:    svc,
		holder: holder,
		logger: xglog.WithComponent("web"),
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(Recoverer)
	r.Use(RequestID)
	r.Use(xglog.Middleware())
	r.Use(metrics.Middleware())

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Get("/file/*", s.handleFile)
	r.Group(func(r chi.Router) {
		r.Use(FindRateLimit(s.cfg.FindRateLimit))
		r.Get("/find", s.handleFind)
		r.Get("/find/{query}", s.handleFind)
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/propath", s.handlePropath)
		r.Get("/which", s.handleWhich)
		r.Get("/manifest", s.handleManifest)
	})
	return r
}

// Handler returns the instrumented root handler.
func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(s.router, "propath",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}

// Run serves until ctx is cancelled, then shuts down gracefully. When
// manifest watching is enabled the PROPATH is reloaded on change.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info().
			Str(xglog.FieldEvent, "server.started").
			Str("addr", ln.Addr().String()).
			Str(xglog.FieldRoot, s.svc.Propath().Root()).
			Msg("serving stec tree")
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		s.logger.Info().Str(xglog.FieldEvent, "server.stopped").Msg("server stopped")
		return nil
	})
	if s.cfg.WatchManifest && s.holder != nil {
		g.Go(func() error {
			return s.holder.Watch(gctx)
		})
	}
	return g.Wait()
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": model.Version,
		"roots":   s.svc.Propath().Len(),
	})
}

// handleFile streams the file a logical path resolves to. Escaped slashes
// and backslashes in the URL are treated as path separators.
func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimPrefix(r.URL.EscapedPath(), "/file/")
	logical, err := url.PathUnescape(raw)
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: %v", ErrBadRequest, err))
		return
	}

	f, err := s.svc.Fetch(r.Context(), logical)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer f.Close()

	logger := xglog.WithComponentFromContext(r.Context(), "api")
	logger.Debug().
		Str(xglog.FieldEvent, "file.resolved").
		Str(xglog.FieldPath, logical).
		Str(xglog.FieldResolved, f.Resolved).
		Msg("file resolved")

	w.Header().Set(HeaderResolvedPath, f.Resolved)
	http.ServeContent(w, r, f.Info.Name(), f.Info.ModTime(), f)
}

// handleFind answers /find/{query} and /find?q=. A search with no matches
// is an empty array, never an error.
func (s *Server) handleFind(w http.ResponseWriter, r *http.Request) {
	// chi matches on RawPath when one is set, which leaves the param escaped
	// only sometimes. Decode the escaped path exactly once instead.
	query := r.URL.Query().Get("q")
	if chi.URLParam(r, "query") != "" {
		var err error
		query, err = url.PathUnescape(strings.TrimPrefix(r.URL.EscapedPath(), "/find/"))
		if err != nil {
			writeError(w, r, fmt.Errorf("%w: %v", ErrBadRequest, err))
			return
		}
	}

	res, err := s.svc.Find(r.Context(), query)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set(HeaderSkippedEntries, strconv.Itoa(len(res.Skipped)))
	writeJSON(w, http.StatusOK, res.Matches)
}

type propathResponse struct {
	model.AnalysisResult
	Report  string `json:"report"`
	Version string `json:"version"`
}

func (s *Server) handlePropath(w http.ResponseWriter, r *http.Request) {
	res := s.svc.Analyze(r.Context())
	writeJSON(w, http.StatusOK, propathResponse{
		AnalysisResult: res,
		Report:         analysis.GenerateReport(res, r.URL.Query().Has("verbose")),
		Version:        model.Version,
	})
}

func (s *Server) handleWhich(w http.ResponseWriter, r *http.Request) {
	logical := r.URL.Query().Get("path")
	if logical == "" {
		writeError(w, r, fmt.Errorf("%w: path is required", ErrBadRequest))
		return
	}
	matches, err := s.svc.Which(r.Context(), logical)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, matches)
}

// handleManifest returns the lines of stec.ini around the PROPATH key, or
// around ?line= when given.
func (s *Server) handleManifest(w http.ResponseWriter, r *http.Request) {
	p := s.svc.Propath()
	line := p.Line()
	if v := r.URL.Query().Get("line"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, r, fmt.Errorf("%w: invalid line number %q", ErrBadRequest, v))
			return
		}
		line = n
	}
	writeJSON(w, http.StatusOK, model.GetLineContext(p.Manifest(), line, 3))
}
