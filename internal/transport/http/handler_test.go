package httptransport

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"entitylog/internal/audit"
	"entitylog/internal/audit/store/memory"
)

func newTestRouter(t *testing.T) (*memory.InMemoryStore, http.Handler) {
	t.Helper()
	store := memory.NewInMemoryStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return store, NewRouter(NewHandler(store, logger))
}

func seedUpdateEntry(t *testing.T, store *memory.InMemoryStore) audit.Entry {
	t.Helper()
	payload, err := audit.EncodeChanges(audit.ChangeSet{
		"website": {Old: "", New: "http://x.com"},
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	entry := audit.Entry{
		ID:         uuid.New(),
		HappenedAt: time.Now().UTC(),
		Type:       audit.Update,
		EntityType: "Account",
		EntityID:   1,
		EntityName: "John SARL",
		ActorID:    42,
		Changes:    payload,
	}
	require.NoError(t, store.Append(context.Background(), entry))
	return entry
}

type entriesEnvelope struct {
	Entries []struct {
		ID         string    `json:"id"`
		HappenedAt time.Time `json:"happened_at"`
		Type       string    `json:"type"`
		EntityType string    `json:"entity_type"`
		EntityID   int64     `json:"entity_id"`
		EntityName string    `json:"entity_name"`
		ActorID    int64     `json:"actor_id"`
		Changes    map[string]struct {
			Old any `json:"old"`
			New any `json:"new"`
		} `json:"changes"`
	} `json:"entries"`
}

func TestEntityAuditEndpoint(t *testing.T) {
	store, router := newTestRouter(t)
	seeded := seedUpdateEntry(t, store)

	req := httptest.NewRequest(http.MethodGet, "/entities/Account/1/audit", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body entriesEnvelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Len(t, body.Entries, 1)

	got := body.Entries[0]
	assert.Equal(t, seeded.ID.String(), got.ID)
	assert.Equal(t, "update", got.Type)
	assert.Equal(t, "Account", got.EntityType)
	assert.Equal(t, int64(1), got.EntityID)
	assert.Equal(t, "John SARL", got.EntityName)
	assert.Equal(t, int64(42), got.ActorID)
	require.Contains(t, got.Changes, "website")
	assert.Equal(t, "", got.Changes["website"].Old)
	assert.Equal(t, "http://x.com", got.Changes["website"].New)
}

func TestEntityAuditEndpointUnknownEntity(t *testing.T) {
	_, router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/entities/Account/99/audit", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body entriesEnvelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Empty(t, body.Entries)
}

func TestEntityAuditEndpointRejectsBadID(t *testing.T) {
	_, router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/entities/Account/abc/audit", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecentEndpoint(t *testing.T) {
	store, router := newTestRouter(t)
	for i := 0; i < 3; i++ {
		seedUpdateEntry(t, store)
	}

	req := httptest.NewRequest(http.MethodGet, "/audit/recent?limit=2", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body entriesEnvelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Len(t, body.Entries, 2)
}

func TestRecentEndpointRejectsBadLimit(t *testing.T) {
	_, router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/audit/recent?limit=zero", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthz(t *testing.T) {
	_, router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
