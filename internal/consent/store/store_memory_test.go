package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agora/internal/consent/models"
)

func newRecord(id, userID, agentID string, grantedAt time.Time) *models.Record {
	return &models.Record{
		ID:           id,
		UserID:       userID,
		AgentID:      agentID,
		Purposes:     []string{"analytics"},
		Jurisdiction: "US",
		LegalBasis:   models.BasisConsent,
		GrantedAt:    grantedAt,
		Status:       models.StatusActive,
	}
}

func TestInMemoryStorePutGet(t *testing.T) {
	ctx := context.Background()
	s := New()
	now := time.Now()

	require.NoError(t, s.Put(ctx, newRecord("c1", "user-1", "agent-1", now)))

	got, err := s.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "c1", got.ID)
	assert.Equal(t, "user-1", got.UserID)

	_, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInMemoryStoreIsolation(t *testing.T) {
	ctx := context.Background()
	s := New()
	record := newRecord("c1", "user-1", "agent-1", time.Now())
	require.NoError(t, s.Put(ctx, record))

	// Mutating the caller's copy must not affect stored state.
	record.Purposes[0] = "mutated"
	record.Status = models.StatusWithdrawn

	got, err := s.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, []string{"analytics"}, got.Purposes)
	assert.Equal(t, models.StatusActive, got.Status)

	// Mutating a returned copy must not affect stored state either.
	got.Purposes[0] = "mutated"
	again, err := s.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, []string{"analytics"}, again.Purposes)
}

func TestInMemoryStoreIndexes(t *testing.T) {
	ctx := context.Background()
	s := New()
	base := time.Now()

	require.NoError(t, s.Put(ctx, newRecord("c1", "user-1", "agent-1", base)))
	require.NoError(t, s.Put(ctx, newRecord("c2", "user-1", "agent-2", base.Add(time.Second))))
	require.NoError(t, s.Put(ctx, newRecord("c3", "user-2", "agent-1", base.Add(2*time.Second))))

	byUser, err := s.ListByUser(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, byUser, 2)
	assert.Equal(t, "c1", byUser[0].ID)
	assert.Equal(t, "c2", byUser[1].ID)

	byAgent, err := s.ListByAgent(ctx, "agent-1")
	require.NoError(t, err)
	require.Len(t, byAgent, 2)

	empty, err := s.ListByUser(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestInMemoryStorePutUpdatesInPlace(t *testing.T) {
	ctx := context.Background()
	s := New()
	record := newRecord("c1", "user-1", "agent-1", time.Now())
	require.NoError(t, s.Put(ctx, record))

	updated := record.Clone()
	updated.Status = models.StatusWithdrawn
	updated.RevocationReason = "no longer needed"
	require.NoError(t, s.Put(ctx, updated))

	got, err := s.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusWithdrawn, got.Status)

	// Re-putting an existing id must not duplicate index entries.
	byUser, err := s.ListByUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, byUser, 1)
}
