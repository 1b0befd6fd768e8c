// Package audit observes mutations to persistent entities, accumulates them
// into per-transaction change sets, and writes an immutable log of
// who-changed-what-when. Entries are appended inside the same transaction as
// the business change, so the trail commits or rolls back atomically with it.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"entitylog/internal/entity"
	"entitylog/pkg/requestcontext"
)

// EntryType classifies an audit entry.
type EntryType int

const (
	Creation EntryType = iota
	Update
	Deletion
)

func (t EntryType) String() string {
	switch t {
	case Creation:
		return "creation"
	case Update:
		return "update"
	case Deletion:
		return "deletion"
	}
	return "unknown"
}

// Redacted replaces both old and new values of hidden attributes. The log
// records that a hidden field changed without revealing content.
const Redacted = "******"

// LargeValueMarker replaces any value whose length exceeds MaxValueLen,
// independently for old and new.
const LargeValueMarker = "<<large value>>"

// MaxValueLen bounds the stored length of a single change value.
const MaxValueLen = 1000

// NoValue is the sentinel a persistence layer passes as the old value when no
// previous value was ever loaded. It is normalized to nil before recording.
var NoValue = noValue{}

type noValue struct{}

// Change holds the (old, new) pair for one attribute over one transaction.
type Change struct {
	Old any
	New any
}

// ChangeSet maps attribute name to its net transaction-wide change. An
// attribute appears at most once: multiple edits coalesce to first-old /
// last-new.
type ChangeSet map[string]Change

// Entry is one immutable audit log line. Written once at flush time, never
// updated, never deleted by normal operation. It references its entity by
// value (type name + id): resolving that back to a live row is best-effort,
// the entity may be long gone.
type Entry struct {
	ID         uuid.UUID
	HappenedAt time.Time
	Type       EntryType
	EntityType string
	EntityID   int64
	EntityName string
	ActorID    int64
	Changes    []byte
}

// NewEntry builds an entry for an entity at flush time. The actor comes from
// the request context, UnknownActor when absent. The display name is captured
// now because the entity may no longer exist when the log is read:
// Displayable wins, then Pathed, then the pre-deletion path snapshot; an
// entity with none of these gets an empty name.
func NewEntry(ctx context.Context, e entity.Auditable, typ EntryType, pathSnapshot string) Entry {
	return Entry{
		ID:         uuid.New(),
		HappenedAt: requestcontext.Now(ctx).UTC(),
		Type:       typ,
		EntityType: e.EntityType(),
		EntityID:   e.EntityID(),
		EntityName: displayNameOf(e, pathSnapshot),
		ActorID:    requestcontext.ActorID(ctx),
	}
}

func displayNameOf(e entity.Auditable, pathSnapshot string) string {
	if d, ok := e.(entity.Displayable); ok {
		if name, ok := d.DisplayName(); ok {
			return name
		}
	}
	if p, ok := e.(entity.Pathed); ok {
		if path := p.Path(); path != "" {
			return path
		}
	}
	return pathSnapshot
}

// DecodedChanges returns the change set carried by this entry, empty when the
// entry carries none (creations and deletions usually do not).
func (e Entry) DecodedChanges() (ChangeSet, error) {
	if len(e.Changes) == 0 {
		return ChangeSet{}, nil
	}
	return DecodeChanges(e.Changes)
}
