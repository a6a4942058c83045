// Package document holds the parsed JSON document and the resource registry.
// Both are populated once at startup and never mutated afterwards, so every
// read is safe without synchronization.
package document

import (
	"encoding/json"
	"fmt"
)

// Resource is the unit of content the server exposes: a uri-addressed,
// described JSON document.
type Resource struct {
	URI         string          `json:"uri"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	SourcePath  string          `json:"sourcePath,omitempty"`
	Content     json.RawMessage `json:"content"`
}

// Store is an immutable-after-construction registry of resources keyed by
// uri. Today it holds exactly one resource, but lookups are by uri rather
// than position so the contract survives future multiplicity.
type Store struct {
	order []string
	byURI map[string]Resource
}

// NewStore builds a registry from the given resources. Duplicate uris are a
// construction error; the uri is the identity of a resource.
func NewStore(resources ...Resource) (*Store, error) {
	s := &Store{byURI: make(map[string]Resource, len(resources))}
	for _, res := range resources {
		if res.URI == "" {
			return nil, fmt.Errorf("resource %q has no uri", res.Name)
		}
		if _, exists := s.byURI[res.URI]; exists {
			return nil, fmt.Errorf("duplicate resource uri %q", res.URI)
		}
		s.byURI[res.URI] = res
		s.order = append(s.order, res.URI)
	}
	return s, nil
}

// Get returns the resource registered under uri.
func (s *Store) Get(uri string) (Resource, bool) {
	res, ok := s.byURI[uri]
	return res, ok
}

// List returns all resources in registration order.
func (s *Store) List() []Resource {
	out := make([]Resource, 0, len(s.order))
	for _, uri := range s.order {
		out = append(out, s.byURI[uri])
	}
	return out
}

// Len returns the number of registered resources.
func (s *Store) Len() int {
	return len(s.order)
}
