package policy

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// PostgresStore persists privacy policies in PostgreSQL. The document is kept
// as a single JSONB column keyed by agent id, matching the
// one-document-per-agent contract.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed policy store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Register(ctx context.Context, policy *PrivacyPolicy) error {
	if policy == nil {
		return fmt.Errorf("policy is required")
	}
	doc, err := json.Marshal(policy)
	if err != nil {
		return fmt.Errorf("encode policy: %w", err)
	}
	query := `
		INSERT INTO privacy_policies (agent_id, document, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (agent_id) DO UPDATE SET
			document = EXCLUDED.document,
			updated_at = EXCLUDED.updated_at
	`
	if _, err := s.db.ExecContext(ctx, query, policy.AgentID, doc, policy.UpdatedAt); err != nil {
		return fmt.Errorf("register policy: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, agentID string) (*PrivacyPolicy, error) {
	var doc []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT document FROM privacy_policies WHERE agent_id = $1`, agentID,
	).Scan(&doc)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get policy: %w", err)
	}
	var policy PrivacyPolicy
	if err := json.Unmarshal(doc, &policy); err != nil {
		return nil, fmt.Errorf("decode policy: %w", err)
	}
	return &policy, nil
}

func (s *PostgresStore) ListAll(ctx context.Context) ([]*PrivacyPolicy, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT document FROM privacy_policies`)
	if err != nil {
		return nil, fmt.Errorf("list policies: %w", err)
	}
	defer rows.Close()

	var policies []*PrivacyPolicy
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan policy: %w", err)
		}
		var policy PrivacyPolicy
		if err := json.Unmarshal(doc, &policy); err != nil {
			return nil, fmt.Errorf("decode policy: %w", err)
		}
		policies = append(policies, &policy)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate policies: %w", err)
	}
	return policies, nil
}
