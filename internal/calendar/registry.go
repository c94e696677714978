// Package calendar handles loading and resolving change blackout calendars.
package calendar

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/dwsmith1983/guardian/pkg/types"
)

// Registry holds compiled blackout calendars by name. Each name may be
// defined once across all loaded files.
type Registry struct {
	calendars map[string]*Blackout
	origin    map[string]string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		calendars: make(map[string]*Blackout),
		origin:    make(map[string]string),
	}
}

// LoadDir loads every *.yaml and *.yml file in dir, in lexical order.
// Subdirectories and other files are ignored.
func (r *Registry) LoadDir(dir string) error {
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("reading calendar dir %s: %w", dir, err)
	}
	var paths []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return fmt.Errorf("listing calendars in %s: %w", dir, err)
		}
		paths = append(paths, matches...)
	}
	sort.Strings(paths)

	for _, path := range paths {
		if info, err := os.Stat(path); err != nil || info.IsDir() {
			continue
		}
		if err := r.LoadFile(path); err != nil {
			return fmt.Errorf("loading calendar %s: %w", path, err)
		}
	}
	return nil
}

// LoadFile compiles and registers the calendar defined in one YAML file.
func (r *Registry) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading file: %w", err)
	}
	var cal types.Calendar
	if err := yaml.Unmarshal(data, &cal); err != nil {
		return fmt.Errorf("parsing YAML: %w", err)
	}
	if cal.Name == "" {
		return fmt.Errorf("calendar in %s has no name", path)
	}
	return r.register(cal, path)
}

// Register compiles and adds a calendar defined in code.
func (r *Registry) Register(cal *types.Calendar) error {
	if cal.Name == "" {
		return fmt.Errorf("calendar has no name")
	}
	return r.register(*cal, "")
}

func (r *Registry) register(cal types.Calendar, origin string) error {
	if prev, ok := r.origin[cal.Name]; ok {
		if prev == "" {
			prev = "code"
		}
		return fmt.Errorf("calendar %q already defined in %s", cal.Name, prev)
	}
	b, err := Compile(cal)
	if err != nil {
		return fmt.Errorf("calendar %q: %w", cal.Name, err)
	}
	r.calendars[cal.Name] = b
	r.origin[cal.Name] = origin
	return nil
}

// Get returns a calendar by name, or nil if it is not registered.
func (r *Registry) Get(name string) *Blackout {
	return r.calendars[name]
}

// Names returns the registered calendar names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.calendars))
	for name := range r.calendars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
