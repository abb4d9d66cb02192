// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Resolve outcomes.
const (
	OutcomeFound    = "found"
	OutcomeNotFound = "not_found"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

var (
	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "propath_http_request_duration_seconds",
		Help:    "HTTP request latencies in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	httpRequestsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "propath_http_requests_in_flight",
		Help: "Current number of HTTP requests being served",
	})

	resolveTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "propath_resolve_total",
		Help: "File resolutions against the PROPATH by outcome",
	}, []string{"outcome"})

	searchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "propath_search_duration_seconds",
		Help:    "Duration of full tree searches",
		Buckets: prometheus.ExponentialBuckets(0.005, 2, 14),
	})

	searchMatches = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "propath_search_matches",
		Help:    "Number of matches returned per search",
		Buckets: prometheus.ExponentialBuckets(1, 4, 8),
	})

	searchSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "propath_search_skipped_entries_total",
		Help: "Directory entries skipped because they could not be read",
	})

	propathRoots = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "propath_search_roots",
		Help: "Number of search roots in the PROPATH in effect",
	})
)

// RecordResolve counts one resolution.
func RecordResolve(outcome string) {
	resolveTotal.WithLabelValues(outcome).Inc()
}

// RecordSearch observes one completed search.
func RecordSearch(d time.Duration, matches, skipped int) {
	searchDuration.Observe(d.Seconds())
	searchMatches.Observe(float64(matches))
	searchSkipped.Add(float64(skipped))
}

// SetRoots publishes the size of the PROPATH in effect.
func SetRoots(n int) {
	propathRoots.Set(float64(n))
}

// unmatchedRoute labels requests no route matched, so scanners cannot
// mint a series per URL.
const unmatchedRoute = "unmatched"

// Middleware records request duration keyed by chi route pattern, which
// keeps /file/* and /find/{query} from exploding label cardinality.
func Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			httpRequestsInFlight.Inc()
			defer httpRequestsInFlight.Dec()

			mw := &metricsWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(mw, r)

			path := unmatchedRoute
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					path = pattern
				}
			}
			httpRequestDuration.
				WithLabelValues(r.Method, path, strconv.Itoa(mw.statusCode)).
				Observe(time.Since(start).Seconds())
		})
	}
}

type metricsWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (mw *metricsWriter) WriteHeader(statusCode int) {
	if !mw.written {
		mw.statusCode = statusCode
		mw.written = true
	}
	mw.ResponseWriter.WriteHeader(statusCode)
}

func (mw *metricsWriter) Write(b []byte) (int, error) {
	if !mw.written {
		mw.WriteHeader(http.StatusOK)
	}
	return mw.ResponseWriter.Write(b)
}
