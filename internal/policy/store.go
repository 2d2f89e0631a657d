package policy

import (
	"context"

	pkgerrors "agora/pkg/domain-errors"
)

// ErrNotFound keeps storage-specific 404s consistent across implementations.
var ErrNotFound = pkgerrors.New(pkgerrors.CodeNotFound, "privacy policy not found")

// Store is single-document-per-agent storage for privacy policies.
// Register upserts by agent id, last write wins. Version is caller-supplied
// metadata; no versioning is enforced here.
type Store interface {
	Register(ctx context.Context, policy *PrivacyPolicy) error
	Get(ctx context.Context, agentID string) (*PrivacyPolicy, error)
	ListAll(ctx context.Context) ([]*PrivacyPolicy, error)
}
