package audit

import (
	"context"
	"fmt"
	"log/slog"

	"entitylog/internal/entity"
	"entitylog/internal/platform/metrics"
	"entitylog/internal/session"
	"entitylog/pkg/platform/sentinel"
)

// TypeRegistration declares one auditable entity type for the service to
// register on start.
type TypeRegistration struct {
	Name  string
	Attrs []entity.AttrSpec
}

// Subscriber is the registration point the persistence collaborator exposes.
// *session.Session satisfies it.
type Subscriber interface {
	Subscribe(session.MutationObserver)
	SubscribeFlush(session.FlushObserver)
}

// Service orchestrates audit logging. It observes attribute mutations through
// its Recorder and, on every flush, synthesizes exactly one entry per pending
// entity: creations first, then deletions, then updates, each group in
// discovery order. Entries go through the store inside the flush transaction.
//
// Lifecycle is stopped -> running -> stopped. The flush-hook subscription is
// installed once, on the first Start, and is permanent: Stop only flips the
// active flag, and the flush callback becomes a no-op while inactive. Start
// and Stop are administrative operations; callers serialize them.
type Service struct {
	store    Store
	registry *entity.Registry
	recorder *Recorder
	logger   *slog.Logger
	metrics  *metrics.Metrics
	types    []TypeRegistration

	running    bool
	subscribed bool
}

func NewService(store Store, registry *entity.Registry, logger *slog.Logger, m *metrics.Metrics, types []TypeRegistration) *Service {
	return &Service{
		store:    store,
		registry: registry,
		recorder: NewRecorder(registry, m),
		logger:   logger,
		metrics:  m,
		types:    types,
	}
}

// Recorder exposes the service's change accumulator, mostly for tests that
// need to inspect pending change sets before a flush.
func (s *Service) Recorder() *Recorder { return s.recorder }

// Running reports whether the service is actively producing entries.
func (s *Service) Running() bool { return s.running }

// Start registers the configured entity types and, on first-ever start,
// subscribes to the source's mutation and flush hooks. Starting a running
// service is programmer error.
func (s *Service) Start(source Subscriber) error {
	if s.running {
		return fmt.Errorf("start audit service: already running: %w", sentinel.ErrInvalidState)
	}
	s.logger.Info("starting audit service")
	s.running = true

	for _, t := range s.types {
		s.registry.Register(t.Name, t.Attrs)
	}

	if !s.subscribed {
		source.Subscribe(s)
		source.SubscribeFlush(s)
		s.subscribed = true
	}
	return nil
}

// Stop deactivates the service. The subscription stays installed; mutation
// accumulation continues in memory, flush handling becomes a no-op. Stopping
// a stopped service is programmer error.
func (s *Service) Stop() error {
	if !s.running {
		return fmt.Errorf("stop audit service: not running: %w", sentinel.ErrInvalidState)
	}
	s.logger.Info("stopping audit service")
	s.running = false
	return nil
}

// AttributeSet implements session.MutationObserver by delegating to the
// recorder. Accumulation is not gated on the running flag: the subscription
// is permanent, and dropping diffs while stopped would corrupt the net change
// set of a transaction spanning a stop/start.
func (s *Service) AttributeSet(ctx context.Context, e entity.Auditable, attr string, oldValue, newValue any) {
	s.recorder.AttributeSet(ctx, e, attr, oldValue, newValue)
}

// FlushCompleted implements session.FlushObserver. It runs inside the flush
// transaction; any error propagates and rolls the whole flush back, because a
// silently incomplete audit trail is worse than a failed write.
func (s *Service) FlushCompleted(ctx context.Context, flush session.FlushSet) error {
	if !s.running {
		return nil
	}

	for _, e := range flush.New {
		if !s.registry.Known(e.EntityType()) {
			continue
		}
		// Creation captures final state implicitly; pre-insert changes are
		// not logged separately.
		s.recorder.Discard(e)
		if err := s.append(ctx, NewEntry(ctx, e, Creation, "")); err != nil {
			return err
		}
	}

	for _, d := range flush.Deleted {
		if !s.registry.Known(d.Entity.EntityType()) {
			continue
		}
		s.recorder.Discard(d.Entity)
		if err := s.append(ctx, NewEntry(ctx, d.Entity, Deletion, d.PathSnapshot)); err != nil {
			return err
		}
	}

	for _, e := range flush.Dirty {
		if !s.registry.Known(e.EntityType()) {
			continue
		}
		changes := s.recorder.Drain(e)
		if len(changes) == 0 {
			continue
		}
		entry := NewEntry(ctx, e, Update, "")
		payload, err := EncodeChanges(changes, s.logger)
		if err != nil {
			return err
		}
		entry.Changes = payload
		if err := s.append(ctx, entry); err != nil {
			return err
		}
	}

	if s.metrics != nil {
		s.metrics.FlushesProcessed.Inc()
	}
	return nil
}

func (s *Service) append(ctx context.Context, entry Entry) error {
	if err := s.store.Append(ctx, entry); err != nil {
		return fmt.Errorf("append %s entry for %s/%d: %w", entry.Type, entry.EntityType, entry.EntityID, err)
	}
	s.logger.DebugContext(ctx, "audit entry appended",
		"type", entry.Type.String(),
		"entity_type", entry.EntityType,
		"entity_id", entry.EntityID,
		"actor_id", entry.ActorID,
	)
	if s.metrics != nil {
		s.metrics.EntriesAppended.WithLabelValues(entry.Type.String()).Inc()
	}
	return nil
}

// EntriesFor returns the audit entries recorded for an entity, matched by
// type name and id. Ordering is whatever the store's query requests; callers
// that need precise sequencing sort by HappenedAt.
func (s *Service) EntriesFor(ctx context.Context, e entity.Auditable) ([]Entry, error) {
	return s.store.ListByEntity(ctx, e.EntityType(), e.EntityID())
}
