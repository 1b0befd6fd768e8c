package audit

import "context"

// Store persists audit entries. Append must honor a transaction carried in
// ctx (pkg/platform/tx) so that entries written during a flush share its fate.
// Implementations: store/memory for tests and embedded use, store/postgres
// for durable deployments.
type Store interface {
	Append(ctx context.Context, entry Entry) error
	ListByEntity(ctx context.Context, entityType string, entityID int64) ([]Entry, error)
	ListRecent(ctx context.Context, limit int) ([]Entry, error)
}
