package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	xglog "propath/internal/log"
)

func newTestLoader(t *testing.T, args []string, env map[string]string) *Loader {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse(args))
	l := NewLoader(fs)
	l.LookupEnv = func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
	return l
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := newTestLoader(t, nil, nil).Load()
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
	assert.Equal(t, []string{"r"}, cfg.SearchOptions().ExcludeExtensions)
}

func TestLoad_Precedence(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "propath.yaml")
	require.NoError(t, os.WriteFile(file, []byte(
		"stec_root: /from/file\naddress: 0.0.0.0:9000\nsearch_timeout: 5s\nexclude_extensions: [r, bak]\n",
	), 0o644))

	env := map[string]string{
		EnvAddr:       "0.0.0.0:9100",
		EnvRequireExt: "true",
	}
	cfg, err := newTestLoader(t, []string{"--config", file, "--root", dir}, env).Load()
	require.NoError(t, err)

	assert.Equal(t, dir, cfg.Root, "flag beats file")
	assert.Equal(t, "0.0.0.0:9100", cfg.Addr, "env beats file")
	assert.Equal(t, 5*time.Second, cfg.SearchTimeout, "file beats default")
	assert.Equal(t, []string{"r", "bak"}, cfg.ExcludeExtensions)
	assert.True(t, cfg.RequireExtension)
	assert.True(t, cfg.WatchManifest)
}

func TestLoad_EmptyExcludeEnvClearsList(t *testing.T) {
	cfg, err := newTestLoader(t, nil, map[string]string{EnvExcludeExt: ""}).Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.ExcludeExtensions)

	cfg, err = newTestLoader(t, nil, map[string]string{EnvExcludeExt: ".r, .bak"}).Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"r", "bak"}, cfg.ExcludeExtensions)
}

func TestLoad_Errors(t *testing.T) {
	_, err := newTestLoader(t, nil, map[string]string{EnvSearchTimeout: "soon"}).Load()
	require.Error(t, err)

	_, err = newTestLoader(t, nil, map[string]string{EnvWatch: "maybe"}).Load()
	require.Error(t, err)

	file := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(file, []byte("unknown_key: 1\n"), 0o644))
	_, err = newTestLoader(t, []string{"--config", file}, nil).Load()
	require.Error(t, err)

	_, err = newTestLoader(t, []string{"--config", filepath.Join(t.TempDir(), "missing.yaml")}, nil).Load()
	require.Error(t, err)
}

func TestLoad_RootMadeAbsolute(t *testing.T) {
	cfg, err := newTestLoader(t, []string{"--root", "."}, nil).Load()
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(cfg.Root))
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "f")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	ok := Defaults()
	ok.Root = dir
	require.NoError(t, Validate(ok))

	noRoot := Defaults()
	require.ErrorIs(t, Validate(noRoot), ErrNoRoot)

	notDir := Defaults()
	notDir.Root = file
	require.Error(t, Validate(notDir))

	missing := Defaults()
	missing.Root = filepath.Join(dir, "gone")
	require.ErrorIs(t, Validate(missing), os.ErrNotExist)

	negative := ok
	negative.SearchTimeout = -time.Second
	require.Error(t, Validate(negative))
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("STEC_TEST_DOTENV=loaded\n"), 0o644))
	t.Cleanup(func() { _ = os.Unsetenv("STEC_TEST_DOTENV") })

	LoadDotEnv(filepath.Join(dir, "missing.env"), envFile)
	assert.Equal(t, "loaded", os.Getenv("STEC_TEST_DOTENV"))
}

func TestLoad_LogsThroughLaterConfiguredLogger(t *testing.T) {
	l := newTestLoader(t, nil, map[string]string{EnvAddr: "127.0.0.1:9999"})

	var buf bytes.Buffer
	xglog.Configure(xglog.Config{Level: "debug", Output: &buf})
	t.Cleanup(func() { xglog.Configure(xglog.Config{}) })

	_, err := l.Load()
	require.NoError(t, err)
	assert.Contains(t, buf.String(), EnvAddr)
	assert.Contains(t, buf.String(), `"component":"config"`)
}
