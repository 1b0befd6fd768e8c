package session

import (
	"context"

	"entitylog/internal/entity"
)

// MutationObserver is notified synchronously on every attribute mutation of a
// tracked entity, before the mutation is visible to any other observer or to
// the flush path. Observers must not block.
type MutationObserver interface {
	AttributeSet(ctx context.Context, e entity.Auditable, attr string, oldValue, newValue any)
}

// FlushObserver is invoked once per flush, inside the flush transaction. Any
// rows the observer writes through the transaction carried in ctx commit or
// roll back together with the flush. A non-nil error aborts the flush.
type FlushObserver interface {
	FlushCompleted(ctx context.Context, flush FlushSet) error
}

// Deleted pairs a deleted entity with the path snapshot captured when the
// deletion was requested. The entity's own accessors may no longer yield a
// usable display name by flush time.
type Deleted struct {
	Entity       entity.Auditable
	PathSnapshot string
}

// FlushSet is the set of pending entities handed to flush observers:
// newly added, deleted, and dirty, each in discovery order.
type FlushSet struct {
	New     []entity.Auditable
	Deleted []Deleted
	Dirty   []entity.Auditable
}
