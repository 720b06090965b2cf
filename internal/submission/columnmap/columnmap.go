// internal/submission/columnmap/columnmap.go

// Package columnmap holds the versioned mappings from ledger header text to
// payload field paths used by the spreadsheet channel.
package columnmap

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// IdentifierPath is the payload path of the application id, the ledger's dedup key.
const IdentifierPath = "application.id"

// Column maps one header to one dotted payload path.
type Column struct {
	Header string `yaml:"header"`
	Path   string `yaml:"path"`
}

// ColumnMap is an ordered, versioned header mapping. A lender that changes its
// sheet layout gets a new version; rows written under older versions stay valid.
type ColumnMap struct {
	Version string   `yaml:"version"`
	Columns []Column `yaml:"columns"`
}

// PathFor returns the payload path mapped to header.
func (m *ColumnMap) PathFor(header string) (string, bool) {
	for _, c := range m.Columns {
		if c.Header == header {
			return c.Path, true
		}
	}
	return "", false
}

// IdentifierColumn returns the column whose path is the application id.
func (m *ColumnMap) IdentifierColumn() (Column, bool) {
	for _, c := range m.Columns {
		if c.Path == IdentifierPath {
			return c, true
		}
	}
	return Column{}, false
}

// Headers lists the mapped headers in map order.
func (m *ColumnMap) Headers() []string {
	out := make([]string, len(m.Columns))
	for i, c := range m.Columns {
		out[i] = c.Header
	}
	return out
}

// Validate checks the structural rules every registered map must satisfy.
func (m *ColumnMap) Validate() error {
	if strings.TrimSpace(m.Version) == "" {
		return fmt.Errorf("column map version is required")
	}
	if len(m.Columns) == 0 {
		return fmt.Errorf("column map %s has no columns", m.Version)
	}

	seen := make(map[string]bool, len(m.Columns))
	identifiers := 0
	for i, c := range m.Columns {
		if strings.TrimSpace(c.Header) == "" {
			return fmt.Errorf("column map %s: column %d has an empty header", m.Version, i)
		}
		if strings.TrimSpace(c.Path) == "" {
			return fmt.Errorf("column map %s: header %q has an empty path", m.Version, c.Header)
		}
		if seen[c.Header] {
			return fmt.Errorf("column map %s: duplicate header %q", m.Version, c.Header)
		}
		seen[c.Header] = true
		if c.Path == IdentifierPath {
			identifiers++
		}
	}

	if identifiers != 1 {
		return fmt.Errorf("column map %s must map exactly one header to %s, found %d", m.Version, IdentifierPath, identifiers)
	}
	return nil
}

// Registry is a concurrency-safe set of column maps keyed by version.
type Registry struct {
	mu   sync.RWMutex
	maps map[string]*ColumnMap
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{maps: make(map[string]*ColumnMap)}
}

// NewDefaultRegistry returns a registry preloaded with the built-in versions.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	for _, m := range builtins() {
		if err := r.Register(m); err != nil {
			panic(fmt.Sprintf("invalid built-in column map: %v", err))
		}
	}
	return r
}

// Register adds a map. Versions are immutable once registered.
func (r *Registry) Register(m *ColumnMap) error {
	if m == nil {
		return fmt.Errorf("column map is nil")
	}
	if err := m.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.maps[m.Version]; exists {
		return fmt.Errorf("column map version already registered: %s", m.Version)
	}

	cp := &ColumnMap{Version: m.Version, Columns: append([]Column(nil), m.Columns...)}
	r.maps[m.Version] = cp
	return nil
}

// Get returns the map registered under version.
func (r *Registry) Get(version string) (*ColumnMap, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.maps[version]
	return m, ok
}

// Versions lists registered versions, sorted.
func (r *Registry) Versions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.maps))
	for v := range r.maps {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

type fileFormat struct {
	Versions []*ColumnMap `yaml:"versions"`
}

// LoadFile registers every version found in a YAML file of the form
//
//	versions:
//	  - version: v2
//	    columns:
//	      - header: Application ID
//	        path: application.id
func (r *Registry) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read column maps: %w", err)
	}
	return r.LoadYAML(data)
}

// LoadYAML is LoadFile over an in-memory document.
func (r *Registry) LoadYAML(data []byte) error {
	var doc fileFormat
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse column maps: %w", err)
	}
	for _, m := range doc.Versions {
		if err := r.Register(m); err != nil {
			return err
		}
	}
	return nil
}
