package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	xglog "propath/internal/log"
)

// Flag names shared by RegisterFlags and the loader.
const (
	FlagConfig        = "config"
	FlagRoot          = "root"
	FlagAddr          = "addr"
	FlagLogLevel      = "log-level"
	FlagExcludeExt    = "exclude-ext"
	FlagRequireExt    = "require-ext"
	FlagSearchTimeout = "search-timeout"
	FlagWatch         = "watch"
	FlagFindRateLimit = "find-rate-limit"
)

// Environment variables, mirroring the flags.
const (
	EnvRoot          = "STEC_ROOT"
	EnvAddr          = "STEC_ADDR"
	EnvLogLevel      = "STEC_LOG_LEVEL"
	EnvExcludeExt    = "STEC_EXCLUDE_EXT"
	EnvRequireExt    = "STEC_REQUIRE_EXT"
	EnvSearchTimeout = "STEC_SEARCH_TIMEOUT"
	EnvWatch         = "STEC_WATCH"
	EnvFindRateLimit = "STEC_FIND_RATE_LIMIT"
	EnvConfig        = "STEC_CONFIG"
)

// RegisterFlags adds the configuration flags to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Defaults()
	fs.StringP(FlagConfig, "c", "", "Path to a YAML config file")
	fs.String(FlagRoot, "", "Root directory of the stec tree (contains stec.ini)")
	fs.String(FlagAddr, d.Addr, "Address to listen on in server mode")
	fs.String(FlagLogLevel, d.LogLevel, "Log level (debug, info, warn, error)")
	fs.StringSlice(FlagExcludeExt, d.ExcludeExtensions, "File extensions hidden from find results")
	fs.Bool(FlagRequireExt, d.RequireExtension, "Hide files without an extension from find results")
	fs.Duration(FlagSearchTimeout, d.SearchTimeout, "Deadline for a single tree search (0 disables)")
	fs.Bool(FlagWatch, d.WatchManifest, "Reload the PROPATH when stec.ini changes")
	fs.Int(FlagFindRateLimit, d.FindRateLimit, "Find requests per minute per client (0 disables)")
}

// Loader merges the configuration sources.
type Loader struct {
	Flags     *pflag.FlagSet
	LookupEnv func(string) (string, bool)
}

// NewLoader creates a loader reading flags from fs and the process environment.
func NewLoader(fs *pflag.FlagSet) *Loader {
	return &Loader{
		Flags:     fs,
		LookupEnv: os.LookupEnv,
	}
}

// logger is fetched per call so a later xglog.Configure takes effect.
func (l *Loader) logger() zerolog.Logger {
	return xglog.WithComponent("config")
}

// LoadDotEnv seeds the environment from .env files. Missing files are not an
// error; variables already set are left alone.
func LoadDotEnv(files ...string) {
	logger := xglog.WithComponent("config")
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				logger.Warn().Err(err).Str("file", f).Msg("ignoring unreadable env file")
			}
			continue
		}
		logger.Debug().Str("file", f).Msg("loaded env file")
	}
}

// Load resolves the configuration. It does not validate it.
func (l *Loader) Load() (Config, error) {
	cfg := Defaults()

	path := l.configPath()
	if path != "" {
		if err := mergeFile(&cfg, path); err != nil {
			return cfg, err
		}
		logger := l.logger()
		logger.Debug().Str("path", path).Str("source", "file").Msg("merged config file")
	}
	if err := l.mergeEnv(&cfg); err != nil {
		return cfg, err
	}
	if err := l.mergeFlags(&cfg); err != nil {
		return cfg, err
	}
	if err := absRoot(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (l *Loader) configPath() string {
	if l.Flags != nil {
		if p, err := l.Flags.GetString(FlagConfig); err == nil && p != "" {
			return p
		}
	}
	if p, ok := l.lookup(EnvConfig); ok {
		return p
	}
	return ""
}

func (l *Loader) lookup(key string) (string, bool) {
	if l.LookupEnv == nil {
		return "", false
	}
	v, ok := l.LookupEnv(key)
	if ok {
		logger := l.logger()
		logger.Debug().Str("key", key).Str("source", "environment").Msg("using environment variable")
	}
	return v, ok
}

// mergeFile overlays the keys present in the YAML file.
func mergeFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (l *Loader) mergeEnv(cfg *Config) error {
	if v, ok := l.lookup(EnvRoot); ok && v != "" {
		cfg.Root = v
	}
	if v, ok := l.lookup(EnvAddr); ok && v != "" {
		cfg.Addr = v
	}
	if v, ok := l.lookup(EnvLogLevel); ok && v != "" {
		cfg.LogLevel = v
	}
	if v, ok := l.lookup(EnvExcludeExt); ok {
		// Set but empty means "exclude nothing".
		cfg.ExcludeExtensions = splitList(v)
	}
	if v, ok := l.lookup(EnvRequireExt); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvRequireExt, err)
		}
		cfg.RequireExtension = b
	}
	if v, ok := l.lookup(EnvSearchTimeout); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvSearchTimeout, err)
		}
		cfg.SearchTimeout = d
	}
	if v, ok := l.lookup(EnvWatch); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvWatch, err)
		}
		cfg.WatchManifest = b
	}
	if v, ok := l.lookup(EnvFindRateLimit); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvFindRateLimit, err)
		}
		cfg.FindRateLimit = n
	}
	return nil
}

// mergeFlags applies only the flags the user actually set.
func (l *Loader) mergeFlags(cfg *Config) error {
	fs := l.Flags
	if fs == nil {
		return nil
	}
	var err error
	fs.Visit(func(f *pflag.Flag) {
		if err != nil {
			return
		}
		switch f.Name {
		case FlagRoot:
			cfg.Root, err = fs.GetString(FlagRoot)
		case FlagAddr:
			cfg.Addr, err = fs.GetString(FlagAddr)
		case FlagLogLevel:
			cfg.LogLevel, err = fs.GetString(FlagLogLevel)
		case FlagExcludeExt:
			cfg.ExcludeExtensions, err = fs.GetStringSlice(FlagExcludeExt)
		case FlagRequireExt:
			cfg.RequireExtension, err = fs.GetBool(FlagRequireExt)
		case FlagSearchTimeout:
			cfg.SearchTimeout, err = fs.GetDuration(FlagSearchTimeout)
		case FlagWatch:
			cfg.WatchManifest, err = fs.GetBool(FlagWatch)
		case FlagFindRateLimit:
			cfg.FindRateLimit, err = fs.GetInt(FlagFindRateLimit)
		}
	})
	return err
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, strings.TrimPrefix(p, "."))
		}
	}
	return out
}
