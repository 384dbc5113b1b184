// Package attachment reads files from a confined root directory and renders them into
// text fragments that can be embedded into a chat turn.
package attachment

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/aschepis/llmchat/llm"
)

// DefaultMaxBytes is the content ceiling used when none is configured.
const DefaultMaxBytes int64 = 1 << 20

// Reader reads attachments confined to a root directory.
type Reader struct {
	root     string
	maxBytes int64
}

// Option customizes a Reader.
type Option func(*Reader)

// WithMaxBytes sets the content-size ceiling. Values <= 0 keep the default.
func WithMaxBytes(n int64) Option {
	return func(r *Reader) {
		if n > 0 {
			r.maxBytes = n
		}
	}
}

// NewReader creates a Reader confined to root. An empty root means the current
// working directory.
func NewReader(root string, opts ...Option) (*Reader, error) {
	if root == "" {
		root = "."
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, llm.NewConfigurationError(fmt.Sprintf("invalid attachment root %q", root), err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, llm.NewConfigurationError(fmt.Sprintf("attachment root %q is not accessible", root), err)
	}
	if !info.IsDir() {
		return nil, llm.NewConfigurationError(fmt.Sprintf("attachment root %q is not a directory", root), nil)
	}

	r := &Reader{root: abs, maxBytes: DefaultMaxBytes}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Root returns the absolute root directory.
func (r *Reader) Root() string {
	return r.root
}

// MaxBytes returns the content-size ceiling.
func (r *Reader) MaxBytes() int64 {
	return r.maxBytes
}

// Read loads the file at path and renders it as a fragment.
// Relative paths resolve against the root; paths escaping the root are rejected
// before the filesystem is touched.
func (r *Reader) Read(path string) (llm.Fragment, error) {
	rel, err := r.relative(path)
	if err != nil {
		return llm.Fragment{}, err
	}

	data, err := r.load(path, rel)
	if err != nil {
		return llm.Fragment{}, err
	}

	name := filepath.Base(rel)
	switch strings.ToLower(filepath.Ext(rel)) {
	case ".json":
		canonical, err := canonicalJSON(data)
		if err != nil {
			return llm.Fragment{}, llm.NewValidationError(fmt.Sprintf("attachment %q is not valid JSON", path), err)
		}
		return newFragment(path, name, llm.FragmentKindJSON, canonical), nil
	default:
		if !utf8.Valid(data) {
			return llm.Fragment{}, llm.NewValidationError(fmt.Sprintf("attachment %q is not UTF-8 text", path), nil)
		}
		return newFragment(path, name, llm.FragmentKindText, string(data)), nil
	}
}

// ReadAll reads every path in order and stops at the first failure.
func (r *Reader) ReadAll(paths []string) ([]llm.Fragment, error) {
	fragments := make([]llm.Fragment, 0, len(paths))
	for _, p := range paths {
		frag, err := r.Read(p)
		if err != nil {
			return nil, err
		}
		fragments = append(fragments, frag)
	}
	return fragments, nil
}

// relative maps path to a root-relative local path, or fails with a validation error.
func (r *Reader) relative(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", llm.NewValidationError("attachment path is empty", nil)
	}

	rel := filepath.Clean(path)
	if filepath.IsAbs(rel) {
		var err error
		rel, err = filepath.Rel(r.root, rel)
		if err != nil {
			return "", llm.NewValidationError(fmt.Sprintf("attachment %q is outside the allowed root", path), err)
		}
	}
	if !filepath.IsLocal(rel) {
		return "", llm.NewValidationError(fmt.Sprintf("attachment %q is outside the allowed root", path), nil)
	}
	return rel, nil
}

// load opens rel inside the root, so symlinks cannot escape it, and enforces the
// size ceiling.
func (r *Reader) load(path, rel string) ([]byte, error) {
	f, err := os.OpenInRoot(r.root, rel)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, llm.NewNotFoundError(fmt.Sprintf("attachment %q not found", path), err)
		}
		return nil, llm.NewValidationError(fmt.Sprintf("attachment %q cannot be opened inside the allowed root", path), err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat attachment %q: %w", path, err)
	}
	if info.IsDir() {
		return nil, llm.NewValidationError(fmt.Sprintf("attachment %q is a directory", path), nil)
	}
	if info.Size() > r.maxBytes {
		return nil, r.tooLarge(path)
	}

	data, err := io.ReadAll(io.LimitReader(f, r.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read attachment %q: %w", path, err)
	}
	if int64(len(data)) > r.maxBytes {
		return nil, r.tooLarge(path)
	}
	return data, nil
}

func (r *Reader) tooLarge(path string) error {
	return llm.NewValidationError(fmt.Sprintf("attachment %q exceeds the %d byte limit", path, r.maxBytes), nil)
}

// canonicalJSON decodes data and re-encodes it with sorted keys and two-space indent.
// Numbers keep their original precision.
func canonicalJSON(data []byte) (string, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return "", err
	}
	if _, err := dec.Token(); err != io.EOF {
		return "", errors.New("unexpected data after top-level value")
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}
