// Package entity defines the contract between persistent business objects and
// the audit core: what identifies an entity, which of its attributes are
// auditable, and how a human-readable name is obtained for log display.
package entity

// Auditable is the minimal identity an entity must expose to be tracked.
// The audit log references entities by (type name, id) value, never by a live
// pointer or enforced foreign key: the entity may be gone by the time the log
// is read.
type Auditable interface {
	EntityID() int64
	EntityType() string
}

// Displayable is an optional capability for entities that can produce a
// human-readable name. The second return reports whether a name is available;
// entities may legitimately have none (e.g. not yet initialized).
type Displayable interface {
	DisplayName() (string, bool)
}

// Pathed is an optional capability for entities addressed by a path-like
// location. Used as a display-name fallback when Displayable is absent, and
// snapshotted before deletion so deletion entries keep a readable reference.
type Pathed interface {
	Path() string
}
