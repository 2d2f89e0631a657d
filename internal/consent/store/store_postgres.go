package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"agora/internal/consent/models"
)

// PostgresStore persists consent records in PostgreSQL. Purpose and data-type
// sets are stored as JSONB since they are opaque to the storage layer.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed consent store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Put(ctx context.Context, record *models.Record) error {
	if record == nil {
		return fmt.Errorf("consent record is required")
	}
	purposes, err := json.Marshal(record.Purposes)
	if err != nil {
		return fmt.Errorf("encode purposes: %w", err)
	}
	dataTypes, err := json.Marshal(record.DataTypes)
	if err != nil {
		return fmt.Errorf("encode data types: %w", err)
	}
	query := `
		INSERT INTO consents (
			id, user_id, agent_id, purposes, data_types, jurisdiction,
			legal_basis, consent_method, withdrawal_method, notice_reference,
			retention_period, granted_at, expires_at, status, revocation_reason
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (id) DO UPDATE SET
			purposes = EXCLUDED.purposes,
			data_types = EXCLUDED.data_types,
			consent_method = EXCLUDED.consent_method,
			withdrawal_method = EXCLUDED.withdrawal_method,
			notice_reference = EXCLUDED.notice_reference,
			status = EXCLUDED.status,
			revocation_reason = EXCLUDED.revocation_reason
	`
	_, err = s.db.ExecContext(ctx, query,
		record.ID,
		record.UserID,
		record.AgentID,
		purposes,
		dataTypes,
		record.Jurisdiction,
		string(record.LegalBasis),
		record.ConsentMethod,
		record.WithdrawalMethod,
		record.NoticeReference,
		string(record.RetentionPeriod),
		record.GrantedAt,
		record.ExpiresAt,
		string(record.Status),
		record.RevocationReason,
	)
	if err != nil {
		return fmt.Errorf("put consent: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, consentID string) (*models.Record, error) {
	record, err := scanConsent(s.db.QueryRowContext(ctx, selectConsent+` WHERE id = $1`, consentID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get consent: %w", err)
	}
	return record, nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID string) ([]*models.Record, error) {
	return s.list(ctx, selectConsent+` WHERE user_id = $1 ORDER BY granted_at`, userID)
}

func (s *PostgresStore) ListByAgent(ctx context.Context, agentID string) ([]*models.Record, error) {
	return s.list(ctx, selectConsent+` WHERE agent_id = $1 ORDER BY granted_at`, agentID)
}

func (s *PostgresStore) list(ctx context.Context, query string, arg any) ([]*models.Record, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list consents: %w", err)
	}
	defer rows.Close()

	var records []*models.Record
	for rows.Next() {
		record, err := scanConsent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan consent: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate consents: %w", err)
	}
	return records, nil
}

const selectConsent = `
	SELECT id, user_id, agent_id, purposes, data_types, jurisdiction,
	       legal_basis, consent_method, withdrawal_method, notice_reference,
	       retention_period, granted_at, expires_at, status, revocation_reason
	FROM consents
`

type consentRow interface {
	Scan(dest ...any) error
}

func scanConsent(row consentRow) (*models.Record, error) {
	var record models.Record
	var purposes, dataTypes []byte
	var legalBasis, retention, status string
	var expiresAt sql.NullTime
	if err := row.Scan(
		&record.ID,
		&record.UserID,
		&record.AgentID,
		&purposes,
		&dataTypes,
		&record.Jurisdiction,
		&legalBasis,
		&record.ConsentMethod,
		&record.WithdrawalMethod,
		&record.NoticeReference,
		&retention,
		&record.GrantedAt,
		&expiresAt,
		&status,
		&record.RevocationReason,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(purposes, &record.Purposes); err != nil {
		return nil, fmt.Errorf("decode purposes: %w", err)
	}
	if err := json.Unmarshal(dataTypes, &record.DataTypes); err != nil {
		return nil, fmt.Errorf("decode data types: %w", err)
	}
	record.LegalBasis = models.LegalBasis(legalBasis)
	record.RetentionPeriod = models.RetentionPeriod(retention)
	record.Status = models.Status(status)
	if expiresAt.Valid {
		record.ExpiresAt = &expiresAt.Time
	}
	return &record, nil
}
