package cgroup

import (
	"errors"
	"fmt"

	"github.com/greenplum-db/gp-resgroup-cgroup/cgfs"
)

// ConfigError reports a discovery, permission, or hierarchy invariant
// violation. It is only ever raised during init or a group's first use, and
// is always fatal to the caller.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string { return "cgroup: config error: " + e.Reason }

func newConfigError(format string, args ...any) *ConfigError {
	return &ConfigError{Reason: fmt.Sprintf(format, args...)}
}

// IOError wraps an unexpected read/write/open/mkdir/rmdir failure on a path
// this package had already validated.
type IOError struct {
	Path string
	Op   string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("cgroup: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

func newIOError(op, path string, err error) *IOError {
	return &IOError{Op: op, Path: path, Err: err}
}

// ParseError reports a malformed decimal value in a pid list or a /proc
// file.
type ParseError struct {
	File  string
	Token string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cgroup: malformed value %q in %s: %v", e.Token, e.File, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func newParseError(file, token string, err error) *ParseError {
	return &ParseError{File: file, Token: token, Err: err}
}

// classifyReadErr turns a cgfs read failure into the right one of this
// package's own error kinds: a malformed decimal (cgfs.ParseError) becomes
// ParseError, anything else (open/read failure on an already-validated
// path) becomes IOError.
func classifyReadErr(op, path string, err error) error {
	var pe *cgfs.ParseError
	if errors.As(err, &pe) {
		return newParseError(pe.Path, pe.Token, pe.Err)
	}
	return newIOError(op, path, err)
}
