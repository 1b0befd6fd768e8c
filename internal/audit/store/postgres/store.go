package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"entitylog/internal/audit"
	txcontext "entitylog/pkg/platform/tx"
)

// Store persists audit entries in PostgreSQL. Appends join the flush
// transaction when one is carried in ctx, so entries commit or roll back
// atomically with the business rows of the same flush.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const schema = `
CREATE TABLE IF NOT EXISTS audit_entries (
	id          UUID PRIMARY KEY,
	happened_at TIMESTAMPTZ NOT NULL,
	entry_type  SMALLINT NOT NULL,
	entity_type TEXT NOT NULL,
	entity_id   BIGINT NOT NULL,
	entity_name TEXT NOT NULL DEFAULT '',
	actor_id    BIGINT NOT NULL DEFAULT 0,
	changes     BYTEA
);
CREATE INDEX IF NOT EXISTS audit_entries_entity_idx
	ON audit_entries (entity_type, entity_id, happened_at);
`

// EnsureSchema creates the audit table if missing. Called at bootstrap and by
// integration tests; production schema management stays with the embedding
// application.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure audit schema: %w", err)
	}
	return nil
}

func (s *Store) Append(ctx context.Context, entry audit.Entry) error {
	query := `
		INSERT INTO audit_entries (id, happened_at, entry_type, entity_type, entity_id, entity_name, actor_id, changes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		entry.ID,
		entry.HappenedAt,
		int(entry.Type),
		entry.EntityType,
		entry.EntityID,
		entry.EntityName,
		entry.ActorID,
		entry.Changes,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func (s *Store) ListByEntity(ctx context.Context, entityType string, entityID int64) ([]audit.Entry, error) {
	query := `
		SELECT id, happened_at, entry_type, entity_type, entity_id, entity_name, actor_id, changes
		FROM audit_entries
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY happened_at
	`
	rows, err := s.db.QueryContext(ctx, query, entityType, entityID)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.Entry, error) {
	query := `
		SELECT id, happened_at, entry_type, entity_type, entity_id, entity_name, actor_id, changes
		FROM audit_entries
		ORDER BY happened_at DESC
		LIMIT $1
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent audit entries: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]audit.Entry, error) {
	var entries []audit.Entry
	for rows.Next() {
		var (
			entry     audit.Entry
			entryType int
		)
		err := rows.Scan(
			&entry.ID,
			&entry.HappenedAt,
			&entryType,
			&entry.EntityType,
			&entry.EntityID,
			&entry.EntityName,
			&entry.ActorID,
			&entry.Changes,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entry.Type = audit.EntryType(entryType)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}
	return entries, nil
}
