// Package schema validates inbound JSON payloads against embedded JSON
// schemas before they are decoded into domain types.
package schema

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/qri-io/jsonschema"
)

// Schema names.
const (
	Signup       = "signup"
	Signin       = "signin"
	Profile      = "profile"
	Activity     = "activity"
	Engineer     = "engineer"
	Notification = "notification"
	Category     = "category"
)

//go:embed schemas/*.json
var embedded embed.FS

// FieldError is one failed constraint.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every constraint a payload failed.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		parts = append(parts, fe.Field+": "+fe.Message)
	}
	return "invalid payload: " + strings.Join(parts, "; ")
}

// Loader compiles and caches the schemas found in a directory of *.json
// files, keyed by file name without extension.
type Loader struct {
	src   fs.FS
	dir   string
	mu    sync.RWMutex
	cache map[string]*jsonschema.Schema
}

// NewLoader compiles every schema under dir in src.
func NewLoader(src fs.FS, dir string) (*Loader, error) {
	l := &Loader{src: src, dir: dir, cache: make(map[string]*jsonschema.Schema)}
	if err := l.Reload(); err != nil {
		return nil, err
	}
	return l, nil
}

// Default returns a loader over the schemas built into the binary.
func Default() (*Loader, error) {
	return NewLoader(embedded, "schemas")
}

// Reload recompiles every schema, replacing the cache only on success.
func (l *Loader) Reload() error {
	entries, err := fs.ReadDir(l.src, l.dir)
	if err != nil {
		return fmt.Errorf("read schemas: %w", err)
	}

	next := make(map[string]*jsonschema.Schema)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		b, err := fs.ReadFile(l.src, path.Join(l.dir, e.Name()))
		if err != nil {
			return fmt.Errorf("read schema %s: %w", e.Name(), err)
		}
		rs := &jsonschema.Schema{}
		if err := json.Unmarshal(b, rs); err != nil {
			return fmt.Errorf("compile schema %s: %w", e.Name(), err)
		}
		next[strings.TrimSuffix(e.Name(), ".json")] = rs
	}

	l.mu.Lock()
	l.cache = next
	l.mu.Unlock()
	return nil
}

// Get returns a compiled schema by name.
func (l *Loader) Get(name string) (*jsonschema.Schema, bool) {
	l.mu.RLock()
	s, ok := l.cache[name]
	l.mu.RUnlock()
	return s, ok
}

// Names returns the cached schema names, sorted.
func (l *Loader) Names() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, 0, len(l.cache))
	for n := range l.cache {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Validate checks data against the named schema. Constraint failures are
// reported as *ValidationError; malformed JSON and unknown schemas as plain
// errors.
func (l *Loader) Validate(ctx context.Context, name string, data []byte) error {
	s, ok := l.Get(name)
	if !ok {
		return fmt.Errorf("unknown schema %q", name)
	}

	keyErrs, err := s.ValidateBytes(ctx, data)
	if err != nil {
		return &ValidationError{Errors: []FieldError{{Field: "body", Message: "malformed JSON: " + err.Error()}}}
	}
	if len(keyErrs) == 0 {
		return nil
	}

	ve := &ValidationError{}
	for _, ke := range keyErrs {
		field := strings.TrimPrefix(ke.PropertyPath, "/")
		if field == "" {
			field = "body"
		}
		ve.Errors = append(ve.Errors, FieldError{Field: field, Message: ke.Message})
	}
	return ve
}
