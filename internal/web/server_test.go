package web

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"propath/internal/config"
	"propath/internal/model"
	"propath/internal/propath"
	"propath/internal/search"
)

type testTree struct {
	root   string
	holder *propath.Holder
	server *Server
}

func newTestTree(t *testing.T, mutate func(*config.Config)) *testTree {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"stec.ini":               "[Startup]\nPROPATH=src\\custom,src/base,\n",
		"src/custom/app/main.p":  "custom main",
		"src/base/app/main.p":    "base main",
		"src/base/app/util.i":    "util",
		"src/base/app/main.r":    "compiled",
		"src/base/lib/report.p":  "report",
		"top.p":                  "top",
		"src/base/app/sub/x.cls": "class",
	}
	for name, content := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}

	holder, err := propath.NewHolder(root)
	require.NoError(t, err)

	cfg := config.Defaults()
	cfg.Root = root
	cfg.Addr = "127.0.0.1:0"
	cfg.WatchManifest = false
	if mutate != nil {
		mutate(&cfg)
	}
	core := NewCore(holder, search.NewEngine(cfg.SearchOptions()), cfg.SearchTimeout)
	return &testTree{root: root, holder: holder, server: NewServer(cfg, core, holder)}
}

func (tt *testTree) do(t *testing.T, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	tt.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHandleFile(t *testing.T) {
	tt := newTestTree(t, nil)

	tests := []struct {
		name     string
		target   string
		status   int
		body     string
		resolved string
	}{
		{"first root wins", "/file/app/main.p", http.StatusOK, "custom main", "src/custom/app/main.p"},
		{"falls through to later root", "/file/app/util.i", http.StatusOK, "util", "src/base/app/util.i"},
		{"escaped slash", "/file/app%2Futil.i", http.StatusOK, "util", "src/base/app/util.i"},
		{"escaped backslash", "/file/lib%5Creport.p", http.StatusOK, "report", "src/base/lib/report.p"},
		{"tree root from trailing comma", "/file/top.p", http.StatusOK, "top", "top.p"},
		{"not found", "/file/app/nope.p", http.StatusNotFound, "", ""},
		{"traversal", "/file/..%2Fstec.ini", http.StatusBadRequest, "", ""},
		{"empty", "/file/", http.StatusBadRequest, "", ""},
		{"directory", "/file/app", http.StatusConflict, "", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := tt.do(t, tc.target)
			require.Equal(t, tc.status, rec.Code, rec.Body.String())
			if tc.status != http.StatusOK {
				body := decode[errorBody](t, rec)
				assert.Equal(t, http.StatusText(tc.status), body.Error)
				assert.NotEmpty(t, body.RequestID)
				return
			}
			assert.Equal(t, tc.body, rec.Body.String())
			assert.Equal(t, filepath.Join(tt.root, filepath.FromSlash(tc.resolved)), rec.Header().Get(HeaderResolvedPath))
		})
	}
}

func TestHandleFind(t *testing.T) {
	tt := newTestTree(t, nil)

	rec := tt.do(t, "/find/main")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "0", rec.Header().Get(HeaderSkippedEntries))
	got := decode[[]string](t, rec)
	want := []string{"src/base/app/main.p", "src/custom/app/main.p"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("find main (-want +got):\n%s", diff)
	}

	rec = tt.do(t, "/find/zzz")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	rec = tt.do(t, "/find?q=.cls")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"src/base/app/sub/x.cls"}, decode[[]string](t, rec))
}

func TestHandleFind_EscapedQuery(t *testing.T) {
	tt := newTestTree(t, nil)
	for _, name := range []string{"a+b.p", "100%.i", "order (v2).p", "my file.p"} {
		require.NoError(t, os.WriteFile(filepath.Join(tt.root, name), []byte("x"), 0o644))
	}

	tests := []struct {
		target string
		want   []string
	}{
		{"/find/a%2Bb", []string{"a+b.p"}},
		{"/find/100%25", []string{"100%.i"}},
		{"/find/order%20%28v2%29", []string{"order (v2).p"}},
		{"/find/my%20file", []string{"my file.p"}},
		{"/find?q=a%2Bb", []string{"a+b.p"}},
	}
	for _, tc := range tests {
		t.Run(tc.target, func(t *testing.T) {
			rec := tt.do(t, tc.target)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			if diff := cmp.Diff(tc.want, decode[[]string](t, rec)); diff != "" {
				t.Errorf("find (-want +got):\n%s", diff)
			}
		})
	}
}

func TestHandleFind_CustomExclusions(t *testing.T) {
	tt := newTestTree(t, func(c *config.Config) { c.ExcludeExtensions = []string{"p"} })

	rec := tt.do(t, "/find/main")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"src/base/app/main.r"}, decode[[]string](t, rec))
}

func TestHandleFind_RateLimited(t *testing.T) {
	tt := newTestTree(t, func(c *config.Config) { c.FindRateLimit = 1 })

	require.Equal(t, http.StatusOK, tt.do(t, "/find/main").Code)
	rec := tt.do(t, "/find/main")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "rate_limit_exceeded", decode[errorBody](t, rec).Error)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// Resolution is not limited.
	assert.Equal(t, http.StatusOK, tt.do(t, "/file/app/main.p").Code)
}

func TestHandleWhich(t *testing.T) {
	tt := newTestTree(t, nil)

	rec := tt.do(t, "/api/which?path=app/main.p")
	require.Equal(t, http.StatusOK, rec.Code)
	matches := decode[[]model.WhichMatch](t, rec)
	require.Len(t, matches, 2)
	assert.Equal(t, 0, matches[0].Index)
	assert.False(t, matches[0].Shadowed)
	assert.Equal(t, 1, matches[1].Index)
	assert.True(t, matches[1].Shadowed)

	assert.Equal(t, http.StatusBadRequest, tt.do(t, "/api/which").Code)
	assert.Equal(t, http.StatusNotFound, tt.do(t, "/api/which?path=missing.p").Code)
}

func TestHandlePropath(t *testing.T) {
	tt := newTestTree(t, nil)

	rec := tt.do(t, "/api/propath?verbose")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[propathResponse](t, rec)
	assert.Equal(t, model.Version, resp.Version)
	require.Len(t, resp.RootEntries, 3)
	assert.Equal(t, "src/custom", resp.RootEntries[0].Fragment)
	assert.True(t, resp.RootEntries[2].IsRoot)
	assert.Contains(t, resp.Report, "Manifest excerpt")
}

func TestHandleManifest(t *testing.T) {
	tt := newTestTree(t, nil)

	rec := tt.do(t, "/api/manifest")
	require.Equal(t, http.StatusOK, rec.Code)
	lc := decode[model.LineContext](t, rec)
	assert.Equal(t, 2, lc.LineNumber)
	assert.Equal(t, `PROPATH=src\custom,src/base,`, lc.Target())

	assert.Equal(t, http.StatusBadRequest, tt.do(t, "/api/manifest?line=zero").Code)
}

func TestHealthAndRequestID(t *testing.T) {
	tt := newTestTree(t, nil)

	rec := tt.do(t, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(HeaderRequestID))
	body := decode[map[string]any](t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.EqualValues(t, 3, body["roots"])

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(HeaderRequestID, "fixed-id")
	rec = httptest.NewRecorder()
	tt.server.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "fixed-id", rec.Header().Get(HeaderRequestID))
}

func TestMetricsEndpoint(t *testing.T) {
	tt := newTestTree(t, nil)
	tt.do(t, "/file/app/main.p")

	rec := tt.do(t, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "propath_resolve_total")
	assert.Contains(t, rec.Body.String(), "propath_search_roots")
}

func TestRecoverer(t *testing.T) {
	h := RequestID(Recoverer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal server error", decode[errorBody](t, rec).Error)
}

func TestServe_GracefulShutdown(t *testing.T) {
	tt := newTestTree(t, func(c *config.Config) { c.WatchManifest = true })
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tt.server.Serve(ctx, ln) }()

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	resp, err := client.Get("http://" + ln.Addr().String() + "/file/app/main.p")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
