// Package httptransport exposes the audit log's read side as a small JSON
// API. It is deliberately query-only: entries are written by the audit
// service inside flush transactions, never through HTTP.
package httptransport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"entitylog/internal/audit"
)

const defaultRecentLimit = 50

// Store is the read surface the handler needs from the audit store.
type Store interface {
	ListByEntity(ctx context.Context, entityType string, entityID int64) ([]audit.Entry, error)
	ListRecent(ctx context.Context, limit int) ([]audit.Entry, error)
}

// Handler is the thin HTTP layer over the audit store. Transport concerns
// only; the audit semantics live in internal/audit.
type Handler struct {
	logger *slog.Logger
	store  Store
}

func NewHandler(store Store, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, store: store}
}

// Register wires the audit read routes onto a chi router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/entities/{type}/{id}/audit", h.handleEntityAudit)
	r.Get("/audit/recent", h.handleRecent)
}

// entryResponse is the JSON shape of one audit entry. Changes are decoded
// from their binary payload for display.
type entryResponse struct {
	ID         string                    `json:"id"`
	HappenedAt time.Time                 `json:"happened_at"`
	Type       string                    `json:"type"`
	EntityType string                    `json:"entity_type"`
	EntityID   int64                     `json:"entity_id"`
	EntityName string                    `json:"entity_name,omitempty"`
	ActorID    int64                     `json:"actor_id"`
	Changes    map[string]changeResponse `json:"changes,omitempty"`
}

type changeResponse struct {
	Old any `json:"old"`
	New any `json:"new"`
}

func (h *Handler) handleEntityAudit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	entityType := chi.URLParam(r, "type")
	entityID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid entity id")
		return
	}

	entries, err := h.store.ListByEntity(ctx, entityType, entityID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list audit entries",
			"entity_type", entityType,
			"entity_id", entityID,
			"error", err.Error(),
		)
		writeError(w, http.StatusInternalServerError, "failed to list audit entries")
		return
	}

	h.writeEntries(ctx, w, entries)
}

func (h *Handler) handleRecent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := defaultRecentLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	entries, err := h.store.ListRecent(ctx, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list recent audit entries", "error", err.Error())
		writeError(w, http.StatusInternalServerError, "failed to list audit entries")
		return
	}

	h.writeEntries(ctx, w, entries)
}

func (h *Handler) writeEntries(ctx context.Context, w http.ResponseWriter, entries []audit.Entry) {
	out := make([]entryResponse, 0, len(entries))
	for _, entry := range entries {
		resp := entryResponse{
			ID:         entry.ID.String(),
			HappenedAt: entry.HappenedAt,
			Type:       entry.Type.String(),
			EntityType: entry.EntityType,
			EntityID:   entry.EntityID,
			EntityName: entry.EntityName,
			ActorID:    entry.ActorID,
		}
		changes, err := entry.DecodedChanges()
		if err != nil {
			h.logger.ErrorContext(ctx, "failed to decode change payload",
				"entry_id", entry.ID.String(),
				"error", err.Error(),
			)
			writeError(w, http.StatusInternalServerError, "failed to decode audit entry")
			return
		}
		if len(changes) > 0 {
			resp.Changes = make(map[string]changeResponse, len(changes))
			for attr, change := range changes {
				resp.Changes[attr] = changeResponse{Old: change.Old, New: change.New}
			}
		}
		out = append(out, resp)
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"entries": out})
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
