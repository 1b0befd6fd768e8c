package audit

import (
	"context"
	"reflect"
	"sync"

	"entitylog/internal/entity"
	"entitylog/internal/platform/metrics"
)

// Recorder is the change accumulator. It sits on the attribute-mutation path
// and maintains, per live entity instance, the net change set of the pending
// transaction. It never fails: values it cannot make sense of are recorded
// conservatively or skipped, so a business write is never blocked here.
type Recorder struct {
	registry *entity.Registry
	metrics  *metrics.Metrics

	mu      sync.Mutex
	pending map[entity.Auditable]ChangeSet
}

func NewRecorder(registry *entity.Registry, m *metrics.Metrics) *Recorder {
	return &Recorder{
		registry: registry,
		metrics:  m,
		pending:  make(map[entity.Auditable]ChangeSet),
	}
}

// AttributeSet records one attribute mutation. Rules, in order:
//
//   - entities of unregistered types and non-auditable attributes are ignored;
//   - hidden attributes are recorded unconditionally as (Redacted, Redacted),
//     once any set event fires, even when old and new are equal;
//   - the never-loaded sentinel NoValue is normalized to nil;
//   - no-op changes (old == new) and empty-to-empty transitions are dropped;
//   - a second change to the same attribute keeps the change set's original
//     old value and overwrites new (first-old / last-new coalescing);
//   - values longer than MaxValueLen become LargeValueMarker, independently
//     for old and new.
func (r *Recorder) AttributeSet(_ context.Context, e entity.Auditable, attr string, oldValue, newValue any) {
	meta, err := r.registry.Lookup(e.EntityType())
	if err != nil {
		// Not a tracked type; nothing to do.
		return
	}
	if !meta.IsAuditable(attr) {
		return
	}

	if meta.IsHidden(attr) {
		r.record(e, attr, Change{Old: Redacted, New: Redacted}, false)
		if r.metrics != nil {
			r.metrics.ValuesRedacted.Inc()
		}
		return
	}

	if oldValue == NoValue {
		oldValue = nil
	}
	if valuesEqual(oldValue, newValue) {
		return
	}
	if isEmpty(oldValue) && isEmpty(newValue) {
		return
	}

	r.record(e, attr, Change{Old: oldValue, New: newValue}, true)
	if r.metrics != nil {
		r.metrics.ChangesRecorded.Inc()
	}
}

func (r *Recorder) record(e entity.Auditable, attr string, change Change, coalesce bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	changes, ok := r.pending[e]
	if !ok {
		changes = make(ChangeSet)
		r.pending[e] = changes
	}
	if coalesce {
		if prev, ok := changes[attr]; ok {
			change.Old = prev.Old
		}
	}
	change.Old = r.truncate(change.Old)
	change.New = r.truncate(change.New)
	changes[attr] = change
}

// Drain returns the entity's pending change set and clears it.
func (r *Recorder) Drain(e entity.Auditable) ChangeSet {
	r.mu.Lock()
	defer r.mu.Unlock()
	changes := r.pending[e]
	delete(r.pending, e)
	return changes
}

// Discard drops the entity's pending change set without returning it. Used
// for creations and deletions, whose entries do not carry attribute diffs.
func (r *Recorder) Discard(e entity.Auditable) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.pending, e)
}

// Pending returns a copy of the entity's accumulated change set, for
// inspection before flush.
func (r *Recorder) Pending(e entity.Auditable) (ChangeSet, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	changes, ok := r.pending[e]
	if !ok {
		return nil, false
	}
	out := make(ChangeSet, len(changes))
	for attr, change := range changes {
		out[attr] = change
	}
	return out, true
}

func (r *Recorder) truncate(v any) any {
	oversize := false
	switch val := v.(type) {
	case string:
		oversize = len(val) > MaxValueLen
	case []byte:
		oversize = len(val) > MaxValueLen
	}
	if !oversize {
		return v
	}
	if r.metrics != nil {
		r.metrics.ValuesTruncated.Inc()
	}
	return LargeValueMarker
}

// valuesEqual compares via reflect.DeepEqual: change values can be slices or
// maps, which == would panic on.
func valuesEqual(a, b any) bool {
	return reflect.DeepEqual(a, b)
}

func isEmpty(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	case []byte:
		return len(val) == 0
	}
	return false
}
