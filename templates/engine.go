// templates/engine.go

// Package templates compiles html/template sets from embedded or on-disk
// filesystems and renders them by name.
package templates

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Set describes one feature's templates.
type Set struct {
	// Name is for logging only.
	Name string
	// FS holds the template files, usually an embed.FS.
	FS fs.FS
	// Patterns are the globs to load from FS, e.g. "templates/*.gohtml".
	Patterns []string
}

// Engine holds the compiled templates. Boot may be called again to
// recompile; renders in flight keep the set they started with.
type Engine struct {
	mu     sync.RWMutex
	funcs  template.FuncMap
	root   *template.Template
	logger *zap.Logger
}

// New creates an Engine with the default helper funcs.
func New(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{funcs: Funcs(), logger: logger}
}

// Funcs adds helpers to the engine. It must be called before Boot.
func (e *Engine) Funcs(fm template.FuncMap) *Engine {
	for k, v := range fm {
		e.funcs[k] = v
	}
	return e
}

// Boot parses every file of every set into one template tree. Files are
// parsed in sorted order within each set, sets in the order given.
func (e *Engine) Boot(sets ...Set) error {
	root := template.New("root").Funcs(e.funcs)
	for _, s := range sets {
		files, err := globAll(s.FS, s.Patterns)
		if err != nil {
			return fmt.Errorf("templates: glob %s: %w", s.Name, err)
		}
		if len(files) == 0 {
			e.logger.Warn("no templates matched", zap.String("set", s.Name))
			continue
		}
		for _, path := range files {
			b, err := fs.ReadFile(s.FS, path)
			if err != nil {
				return fmt.Errorf("templates: read %s: %w", path, err)
			}
			if _, err := root.Parse(string(b)); err != nil {
				return fmt.Errorf("templates: parse %s: %w", path, err)
			}
		}
		e.logger.Debug("template set compiled",
			zap.String("set", s.Name),
			zap.Int("files", len(files)))
	}

	e.mu.Lock()
	e.root = root
	e.mu.Unlock()
	return nil
}

// Execute renders the named template into a byte slice.
func (e *Engine) Execute(name string, data any) ([]byte, error) {
	e.mu.RLock()
	root := e.root
	e.mu.RUnlock()
	if root == nil {
		return nil, fmt.Errorf("templates: engine not booted")
	}
	t := root.Lookup(name)
	if t == nil {
		return nil, fmt.Errorf("templates: %q not found", name)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("templates: execute %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

// Render writes the named template to w. Nothing is written when
// execution fails.
func (e *Engine) Render(w io.Writer, name string, data any) error {
	b, err := e.Execute(name, data)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

func globAll(fsys fs.FS, patterns []string) ([]string, error) {
	seen := make(map[string]struct{})
	var out []string
	for _, pat := range patterns {
		matches, err := fs.Glob(fsys, pat)
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			out = append(out, m)
		}
	}
	sort.Strings(out)
	return out, nil
}
