package pattern

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// ErrUnknownPattern is returned when a library has no pattern of that name.
var ErrUnknownPattern = errors.New("unknown pattern")

// Library file formats.
const (
	FormatTOML = "toml"
	FormatYAML = "yaml"
)

type libraryFile struct {
	Patterns []Definition `toml:"patterns" yaml:"patterns"`
}

// Library is a named set of pattern definitions, usually loaded from a file.
type Library struct {
	mu    sync.RWMutex
	defs  map[string]Definition
	order []string
}

// NewLibrary creates a library from definitions. Names must be unique and non-empty.
func NewLibrary(defs ...Definition) (*Library, error) {
	l := &Library{defs: make(map[string]Definition, len(defs))}
	for _, d := range defs {
		if d.Name == "" {
			return nil, errors.New("pattern definition without name")
		}
		if _, dup := l.defs[d.Name]; dup {
			return nil, fmt.Errorf("duplicate pattern %q", d.Name)
		}
		l.defs[d.Name] = d
		l.order = append(l.order, d.Name)
	}
	return l, nil
}

// LoadLibrary reads a library file. The format follows the extension:
// .yaml/.yml is YAML, anything else TOML.
func LoadLibrary(path string) (*Library, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pattern library: %w", err)
	}
	lib, err := ParseLibrary(data, FormatForPath(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return lib, nil
}

// FormatForPath returns the library format implied by a file name.
func FormatForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatTOML
	}
}

// ParseLibrary decodes library data in the given format.
func ParseLibrary(data []byte, format string) (*Library, error) {
	var file libraryFile
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
	case FormatTOML:
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&file); err != nil {
			return nil, fmt.Errorf("parse toml: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported library format %q", format)
	}
	return NewLibrary(file.Patterns...)
}

// Names lists pattern names in file order.
func (l *Library) Names() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.order)
}

// Get returns the definition for name.
func (l *Library) Get(name string) (Definition, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	d, ok := l.defs[name]
	return d, ok
}

// Definitions returns every definition in file order.
func (l *Library) Definitions() []Definition {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Definition, 0, len(l.order))
	for _, name := range l.order {
		out = append(out, l.defs[name])
	}
	return out
}

// Build generates a fresh pattern from the named definition.
func (l *Library) Build(name string, ledCount int) (*Pattern, error) {
	d, ok := l.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPattern, name)
	}
	return d.Build(NewGenerator(ledCount))
}

// Validate builds and releases every definition, returning all failures.
func (l *Library) Validate(ledCount int) error {
	var errs []error
	for _, d := range l.Definitions() {
		p, err := d.Build(NewGenerator(ledCount))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		p.Release()
	}
	return errors.Join(errs...)
}

// Replace swaps in the contents of other, used when the file is reloaded.
func (l *Library) Replace(other *Library) {
	other.mu.RLock()
	defs := maps.Clone(other.defs)
	order := slices.Clone(other.order)
	other.mu.RUnlock()

	l.mu.Lock()
	l.defs = defs
	l.order = order
	l.mu.Unlock()
}
