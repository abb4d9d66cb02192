package propath

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is matching across the typed errors below.
var (
	ErrIO          = errors.New("manifest unreadable")
	ErrConfigParse = errors.New("manifest parse failed")
	ErrConfig      = errors.New("manifest invalid")
	ErrNotFound    = errors.New("file not found")
	ErrEscape      = errors.New("path escapes search root")
)

// IoError is returned when the manifest is missing or cannot be read.
type IoError struct {
	Path string
	Err  error
}

func (e *IoError) Error() string { return fmt.Sprintf("could not find %s: %v", e.Path, e.Err) }
func (e *IoError) Unwrap() error { return e.Err }
func (e *IoError) Is(target error) bool { return target == ErrIO }

// ConfigParseError wraps a syntax error reported by the INI parser.
type ConfigParseError struct {
	Path string
	Err  error
}

func (e *ConfigParseError) Error() string { return fmt.Sprintf("parse %s: %v", e.Path, e.Err) }
func (e *ConfigParseError) Unwrap() error { return e.Err }
func (e *ConfigParseError) Is(target error) bool { return target == ErrConfigParse }

// ConfigError is returned when the manifest parses but lacks a required
// section or key, or a value has the wrong shape.
type ConfigError struct {
	Path   string
	Reason string
}

func (e *ConfigError) Error() string { return fmt.Sprintf("%s: %s", e.Path, e.Reason) }
func (e *ConfigError) Is(target error) bool { return target == ErrConfig }

// NotFoundError is returned when no search root contains the requested file.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("the file '%s' does not exist", e.Path) }
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// EscapeError is returned for requests that would leave a search root.
type EscapeError struct {
	Path string
	Err  error
}

func (e *EscapeError) Error() string { return fmt.Sprintf("rejected path '%s': %v", e.Path, e.Err) }
func (e *EscapeError) Unwrap() error { return e.Err }
func (e *EscapeError) Is(target error) bool { return target == ErrEscape }
