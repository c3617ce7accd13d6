package gems

import (
	"context"
	"sort"
	"strings"
)

// Module describes one engine module (gem) loaded by the host application.
type Module struct {
	// Name is the module entity name, for example "AWSCore.Editor".
	Name string

	// Version is the gem version string, when known.
	Version string

	// Path is the gem's root directory, when the module was discovered on
	// disk rather than reported by the host.
	Path string
}

// Lister enumerates the modules active in the host application.
type Lister interface {
	ListModules(ctx context.Context) ([]Module, error)
}

// StaticLister is a Lister over a fixed module list, for hosts that track
// their loaded modules in memory.
type StaticLister struct {
	Modules []Module
}

// ListModules returns a copy of the configured module list.
func (s *StaticLister) ListModules(ctx context.Context) ([]Module, error) {
	out := make([]Module, len(s.Modules))
	copy(out, s.Modules)
	return out, nil
}

// ActiveAWSNames filters modules down to AWS gem names for reporting.
// A module qualifies when its name contains "AWS"; the reported name is
// everything before the last ".", or the whole name when there is none.
// Order follows the input order.
func ActiveAWSNames(modules []Module) []string {
	var names []string
	for _, m := range modules {
		if !strings.Contains(m.Name, "AWS") {
			continue
		}
		name := m.Name
		if idx := strings.LastIndex(name, "."); idx >= 0 {
			name = name[:idx]
		}
		names = append(names, name)
	}
	return names
}

// SortModules orders modules by name so discovery output is stable across
// directory iteration order.
func SortModules(modules []Module) {
	sort.Slice(modules, func(i, j int) bool {
		return modules[i].Name < modules[j].Name
	})
}
