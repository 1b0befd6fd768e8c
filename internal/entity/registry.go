package entity

import (
	"fmt"
	"sync"

	"entitylog/pkg/platform/sentinel"
)

// AttrSpec declares the capabilities of a single entity attribute. The zero
// value describes the common case: an ordinary editable, auditable attribute.
type AttrSpec struct {
	Name string

	// NonAuditable excludes the attribute from change tracking entirely.
	// Attributes are auditable by default.
	NonAuditable bool

	// HideContent records that the attribute changed without recording its
	// content (passwords, secrets). Implies the attribute is auditable.
	HideContent bool

	// DisplayName marks the attribute whose value names the entity in log
	// displays. At most one attribute per type should carry this flag; the
	// first one wins.
	DisplayName bool

	// NonEditable and Searchable are part of the wider capability model
	// (form generation, indexing). The audit core ignores them.
	NonEditable bool
	Searchable  bool
}

// TypeMetadata is the immutable per-type snapshot the audit core consults on
// every attribute mutation. Computed once at registration.
type TypeMetadata struct {
	Name            string
	auditable       map[string]struct{}
	hidden          map[string]struct{}
	displayNameAttr string
}

// IsAuditable reports whether changes to the named attribute are tracked.
func (m *TypeMetadata) IsAuditable(attr string) bool {
	_, ok := m.auditable[attr]
	return ok
}

// IsHidden reports whether the attribute's content is redacted in logs.
func (m *TypeMetadata) IsHidden(attr string) bool {
	_, ok := m.hidden[attr]
	return ok
}

// DisplayNameAttr returns the attribute naming the entity for display, or ""
// when none was declared.
func (m *TypeMetadata) DisplayNameAttr() string {
	return m.displayNameAttr
}

// Registry holds the metadata snapshots for all registered entity types.
// Registration normally happens once during application bootstrap; lookups
// run on the attribute-mutation hot path.
type Registry struct {
	mu    sync.RWMutex
	types map[string]*TypeMetadata
}

func NewRegistry() *Registry {
	return &Registry{types: make(map[string]*TypeMetadata)}
}

// Register computes and caches metadata for an entity type. Registering an
// already-known type is a no-op and returns the existing snapshot.
func (r *Registry) Register(typeName string, specs []AttrSpec) *TypeMetadata {
	r.mu.Lock()
	defer r.mu.Unlock()

	if meta, ok := r.types[typeName]; ok {
		return meta
	}

	meta := &TypeMetadata{
		Name:      typeName,
		auditable: make(map[string]struct{}),
		hidden:    make(map[string]struct{}),
	}
	for _, spec := range specs {
		if !spec.NonAuditable {
			meta.auditable[spec.Name] = struct{}{}
		}
		if spec.HideContent {
			meta.auditable[spec.Name] = struct{}{}
			meta.hidden[spec.Name] = struct{}{}
		}
		if spec.DisplayName && meta.displayNameAttr == "" {
			meta.displayNameAttr = spec.Name
		}
	}
	r.types[typeName] = meta
	return meta
}

// Lookup returns the metadata snapshot for a registered type.
// Returns an error wrapping sentinel.ErrNotRegistered for unknown types:
// that is a missing bootstrap step, not a recoverable condition.
func (r *Registry) Lookup(typeName string) (*TypeMetadata, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if meta, ok := r.types[typeName]; ok {
		return meta, nil
	}
	return nil, fmt.Errorf("lookup %q: %w", typeName, sentinel.ErrNotRegistered)
}

// Known reports whether a type has been registered. Used by the mutation path
// to skip entities that are not audit-tracked at all.
func (r *Registry) Known(typeName string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.types[typeName]
	return ok
}
