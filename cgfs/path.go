// Package cgfs implements the small filesystem primitives the cgroup v1
// backend needs: building controller-relative paths and doing bounded,
// single-shot reads and writes against cgroup pseudo-files.
package cgfs

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// MaxPath bounds the length of any path this package builds, matching the
// kernel's PATH_MAX on Linux.
const MaxPath = 4096

// MaxCpuSetLength bounds the size of a cpuset.cpus/cpuset.mems payload.
// A machine with thousands of discontiguous cores can still produce a
// comma-separated range list well under this.
const MaxCpuSetLength = 4096

// BuildPath joins the supplied segments into a single path, skipping empty
// segments, and rejects the result if it would exceed MaxPath.
func BuildPath(segments ...string) (string, error) {
	kept := make([]string, 0, len(segments))
	for _, s := range segments {
		if s != "" {
			kept = append(kept, s)
		}
	}
	p := filepath.Join(kept...)
	if len(p) > MaxPath {
		return "", fmt.Errorf("cgfs: path exceeds MAX_PATH (%d): %s...", MaxPath, p[:64])
	}
	return p, nil
}

// BuildPathSafe is the non-raising variant of BuildPath, for call sites that
// only want a usability check rather than a hard failure.
func BuildPathSafe(segments ...string) (string, bool) {
	p, err := BuildPath(segments...)
	return p, err == nil
}

// ReadI64 reads a single decimal integer from path. cgroup v1 interface
// files hold exactly one value, optionally followed by a newline.
func ReadI64(path string) (int64, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	s := strings.TrimSpace(string(b))
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, &ParseError{Path: path, Token: s, Err: err}
	}
	return v, nil
}

// WriteI64 writes a single decimal integer to path in one write(2) call, as
// required by the cgroup v1 interface contract.
func WriteI64(path string, value int64) error {
	return writeOnce(path, strconv.FormatInt(value, 10))
}

// ReadString reads a bounded string value (e.g. a cpuset mask) from path.
func ReadString(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	buf := make([]byte, MaxCpuSetLength)
	n, err := f.Read(buf)
	if err != nil && n == 0 {
		return "", err
	}
	return strings.TrimSpace(string(buf[:n])), nil
}

// WriteString writes a bounded string value to path in one write(2) call.
func WriteString(path, value string) error {
	if len(value) > MaxCpuSetLength {
		return fmt.Errorf("cgfs: value for %s exceeds MaxCpuSetLength (%d)", path, MaxCpuSetLength)
	}
	return writeOnce(path, value)
}

func writeOnce(path, value string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write([]byte(value))
	return err
}

// ParseError carries the offending file and token for a malformed decimal
// value read by ReadI64 or ReadPIDs. The cgroup package type-asserts against
// this (via errors.As) to tell a genuine parse failure apart from an
// unexpected I/O failure on an already-validated path, so it can surface the
// right one of its own ConfigError/IOError/ParseError kinds.
type ParseError struct {
	Path  string
	Token string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cgfs: malformed integer %q in %s: %v", e.Token, e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
