// Package session is the persistence-side collaborator of the audit core: a
// small unit of work that tracks which entities are pending as new, dirty or
// deleted, fans attribute mutations out to observers, and runs flush
// observers inside one database transaction. How entities themselves are
// stored and queried stays with the embedding application; the session only
// owns the tracking and the transaction boundary.
package session

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"

	"entitylog/internal/entity"
	txcontext "entitylog/pkg/platform/tx"
)

// Session tracks pending entity state for one logical transaction at a time.
// Observer registration is permanent: there is deliberately no unsubscribe,
// mirroring the flush hook's one-way subscription. Consumers gate their own
// activity instead of detaching.
type Session struct {
	db     *sql.DB
	logger *slog.Logger

	mu          sync.Mutex
	mutationObs []MutationObserver
	flushObs    []FlushObserver

	added    []entity.Auditable
	deleted  []Deleted
	dirty    []entity.Auditable
	addedSet map[entity.Auditable]struct{}
	dirtySet map[entity.Auditable]struct{}
}

// New creates a session. db may be nil, in which case flushes run without a
// transaction (in-memory stores, unit tests) and atomicity is not provided.
func New(db *sql.DB, logger *slog.Logger) *Session {
	return &Session{
		db:       db,
		logger:   logger,
		addedSet: make(map[entity.Auditable]struct{}),
		dirtySet: make(map[entity.Auditable]struct{}),
	}
}

// Subscribe registers a mutation observer. Permanent.
func (s *Session) Subscribe(o MutationObserver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mutationObs = append(s.mutationObs, o)
}

// SubscribeFlush registers a flush observer. Permanent.
func (s *Session) SubscribeFlush(o FlushObserver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushObs = append(s.flushObs, o)
}

// Add marks an entity as newly created in the pending transaction.
func (s *Session) Add(e entity.Auditable) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.addedSet[e]; ok {
		return
	}
	s.addedSet[e] = struct{}{}
	s.added = append(s.added, e)
}

// Delete marks an entity for deletion and snapshots its path now, while the
// entity can still produce one. A deleted entity leaves the dirty set: its
// pending changes are not separately logged.
func (s *Session) Delete(e entity.Auditable) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var snapshot string
	if p, ok := e.(entity.Pathed); ok {
		snapshot = p.Path()
	}
	s.deleted = append(s.deleted, Deleted{Entity: e, PathSnapshot: snapshot})

	if _, ok := s.dirtySet[e]; ok {
		delete(s.dirtySet, e)
		for i, d := range s.dirty {
			if d == e {
				s.dirty = append(s.dirty[:i], s.dirty[i+1:]...)
				break
			}
		}
	}
}

// FieldChanged reports one attribute mutation. It notifies mutation observers
// synchronously and marks the entity dirty unless it is pending as new
// (creation already captures final state).
func (s *Session) FieldChanged(ctx context.Context, e entity.Auditable, attr string, oldValue, newValue any) {
	s.mu.Lock()
	observers := s.mutationObs
	if _, isNew := s.addedSet[e]; !isNew {
		if _, ok := s.dirtySet[e]; !ok {
			s.dirtySet[e] = struct{}{}
			s.dirty = append(s.dirty, e)
		}
	}
	s.mu.Unlock()

	for _, o := range observers {
		o.AttributeSet(ctx, e, attr, oldValue, newValue)
	}
}

// Flush drains the pending sets through the flush observers. With a database
// attached, observers run inside one transaction carried in ctx; an observer
// error rolls everything back and keeps the pending sets so the caller can
// retry or discard. Without a database, observers run directly.
func (s *Session) Flush(ctx context.Context) error {
	s.mu.Lock()
	flush := FlushSet{
		New:     append([]entity.Auditable(nil), s.added...),
		Deleted: append([]Deleted(nil), s.deleted...),
		Dirty:   append([]entity.Auditable(nil), s.dirty...),
	}
	observers := s.flushObs
	s.mu.Unlock()

	if s.db == nil {
		if err := s.notify(ctx, observers, flush); err != nil {
			return err
		}
		s.clear()
		return nil
	}

	dbtx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin flush transaction: %w", err)
	}

	txctx := txcontext.WithTx(ctx, dbtx)
	if err := s.notify(txctx, observers, flush); err != nil {
		if rbErr := dbtx.Rollback(); rbErr != nil {
			s.logger.ErrorContext(ctx, "flush rollback failed", "error", rbErr)
		}
		return err
	}

	if err := dbtx.Commit(); err != nil {
		return fmt.Errorf("commit flush transaction: %w", err)
	}
	s.clear()
	return nil
}

func (s *Session) notify(ctx context.Context, observers []FlushObserver, flush FlushSet) error {
	for _, o := range observers {
		if err := o.FlushCompleted(ctx, flush); err != nil {
			return fmt.Errorf("flush observer: %w", err)
		}
	}
	return nil
}

func (s *Session) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.added = nil
	s.deleted = nil
	s.dirty = nil
	s.addedSet = make(map[entity.Auditable]struct{})
	s.dirtySet = make(map[entity.Auditable]struct{})
}
