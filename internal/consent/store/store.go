package store

import (
	"context"

	"agora/internal/consent/models"
	pkgerrors "agora/pkg/domain-errors"
)

// ErrNotFound keeps storage-specific 404s consistent across implementations.
var ErrNotFound = pkgerrors.New(pkgerrors.CodeNotFound, "consent not found")

// Store defines the persistence interface for consent records.
//
// Error Contract:
// - Get returns ErrNotFound when no record exists for the id
// - Other methods return nil on success or wrapped errors on failure
//
// Stores hold no business logic; lifecycle invariants are enforced by the
// consent service.
type Store interface {
	Put(ctx context.Context, record *models.Record) error
	Get(ctx context.Context, consentID string) (*models.Record, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Record, error)
	ListByAgent(ctx context.Context, agentID string) ([]*models.Record, error)
}
