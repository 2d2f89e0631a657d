package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"agora/internal/audit"
	"agora/internal/consent/metrics"
	"agora/internal/consent/models"
	"agora/internal/consent/store"
	pkgerrors "agora/pkg/domain-errors"
)

// Store defines the persistence interface for consent records.
// Error Contract:
// - Get returns store.ErrNotFound when no record exists
// - Other methods return nil on success or wrapped errors on failure
type Store interface {
	Put(ctx context.Context, record *models.Record) error
	Get(ctx context.Context, consentID string) (*models.Record, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Record, error)
	ListByAgent(ctx context.Context, agentID string) ([]*models.Record, error)
}

// Option configures the Manager.
type Option func(*Manager)

// Manager is the consent state machine. It validates requests, derives expiry
// from retention, mutates the store and records every lifecycle event on the
// audit log. Status transitions are one-directional: Active -> Withdrawn via
// Revoke/Withdraw, Active -> Expired when the write path observes a lapsed
// retention window. Expiry is never swept eagerly; it is evaluated at read
// time in Verify/ListActive and at write time in Revoke/Withdraw/Update.
type Manager struct {
	store   Store
	auditor *audit.Log
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

// NewManager constructs the consent manager.
func NewManager(store Store, auditor *audit.Log, logger *slog.Logger, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		auditor: auditor,
		logger:  logger,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// WithMetrics sets the metrics instance for the manager.
func WithMetrics(mx *metrics.Metrics) Option {
	return func(m *Manager) {
		m.metrics = mx
	}
}

// WithClock overrides the time source, used by tests to exercise expiry.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// Grant validates the request, derives the expiry date from the retention
// period and persists a new Active record. Repeated grants with identical
// input create distinct records with distinct ids.
func (m *Manager) Grant(ctx context.Context, req models.GrantRequest) (*models.Record, *models.Receipt, error) {
	start := time.Now()
	if req.UserID == "" {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if req.AgentID == "" {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "agent id is required")
	}
	if len(req.Purposes) == 0 {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "purposes must not be empty")
	}
	if req.Jurisdiction == "" {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "jurisdiction is required")
	}

	now := m.now()
	record := &models.Record{
		ID:               fmt.Sprintf("consent_%s", uuid.New().String()),
		UserID:           req.UserID,
		AgentID:          req.AgentID,
		Purposes:         req.Purposes,
		DataTypes:        req.DataTypes,
		Jurisdiction:     req.Jurisdiction,
		LegalBasis:       req.LegalBasis,
		ConsentMethod:    req.ConsentMethod,
		WithdrawalMethod: req.WithdrawalMethod,
		NoticeReference:  req.NoticeReference,
		RetentionPeriod:  req.RetentionPeriod,
		GrantedAt:        now,
		ExpiresAt:        req.RetentionPeriod.ExpiryFrom(now),
		Status:           models.StatusActive,
	}
	if err := m.store.Put(ctx, record); err != nil {
		return nil, nil, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "failed to save consent")
	}

	m.emitAudit(ctx, audit.Entry{
		ConsentID: record.ID,
		Action:    audit.ActionGranted,
		AgentID:   record.AgentID,
		UserID:    record.UserID,
		Timestamp: now,
		Details:   fmt.Sprintf("consent granted for purposes %v in %s", record.Purposes, record.Jurisdiction),
	})
	if m.metrics != nil {
		m.metrics.IncrementConsentsGranted(record.Jurisdiction)
		m.metrics.IncrementActiveConsents(1)
		m.metrics.ObserveGrantLatency(time.Since(start).Seconds())
	}
	m.logEvent(ctx, "consent_granted", record)
	return record, models.NewReceipt(record.ID, models.OperationGrant, now), nil
}

// Revoke transitions an Active record to Withdrawn with the given reason.
func (m *Manager) Revoke(ctx context.Context, consentID, reason string) (*models.Record, *models.Receipt, error) {
	return m.terminate(ctx, consentID, reason, models.OperationRevoke)
}

// Withdraw is Revoke without a caller-supplied reason.
func (m *Manager) Withdraw(ctx context.Context, consentID string) (*models.Record, *models.Receipt, error) {
	return m.terminate(ctx, consentID, "withdrawn by user", models.OperationWithdraw)
}

func (m *Manager) terminate(ctx context.Context, consentID, reason string, op models.Operation) (*models.Record, *models.Receipt, error) {
	record, err := m.getRecord(ctx, consentID)
	if err != nil {
		return nil, nil, err
	}
	if record.Status.IsTerminal() {
		return nil, nil, pkgerrors.New(pkgerrors.CodeConflict, "consent already revoked/withdrawn")
	}

	now := m.now()
	if record.ExpiresAt != nil && record.ExpiresAt.Before(now) {
		// Lazy expiry detected on the write path: persist the terminal state
		// and surface it before rejecting the mutation.
		m.markExpired(ctx, record, now)
		return nil, nil, pkgerrors.New(pkgerrors.CodeConflict, "consent already revoked/withdrawn")
	}

	record.Status = models.StatusWithdrawn
	record.RevocationReason = reason
	if err := m.store.Put(ctx, record); err != nil {
		return nil, nil, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "failed to revoke consent")
	}

	m.emitAudit(ctx, audit.Entry{
		ConsentID: record.ID,
		Action:    audit.ActionRevoked,
		AgentID:   record.AgentID,
		UserID:    record.UserID,
		Timestamp: now,
		Details:   fmt.Sprintf("consent revoked: %s", reason),
	})
	if m.metrics != nil {
		m.metrics.IncrementConsentsRevoked(record.Jurisdiction)
		m.metrics.DecrementActiveConsents(1)
	}
	m.logEvent(ctx, "consent_revoked", record)
	return record, models.NewReceipt(record.ID, op, now), nil
}

// markExpired flips the stored status once the retention window has lapsed.
// This is the only producer of the Expired status and its audit action.
func (m *Manager) markExpired(ctx context.Context, record *models.Record, now time.Time) {
	record.Status = models.StatusExpired
	if err := m.store.Put(ctx, record); err != nil {
		if m.logger != nil {
			m.logger.ErrorContext(ctx, "failed to persist expired consent",
				"consent_id", record.ID,
				"error", err,
			)
		}
		return
	}
	m.emitAudit(ctx, audit.Entry{
		ConsentID: record.ID,
		Action:    audit.ActionExpired,
		AgentID:   record.AgentID,
		UserID:    record.UserID,
		Timestamp: now,
		Details:   "consent retention period lapsed",
	})
	if m.metrics != nil {
		m.metrics.IncrementConsentsExpired()
		m.metrics.DecrementActiveConsents(1)
	}
}

// Verify reports whether the user holds an active consent covering the
// purpose. Purpose membership is exact and case-sensitive; a record past its
// expiry date never qualifies even while its stored status still reads
// Active. Verify never fails: missing users, unknown purposes and store
// errors all yield a negative result.
func (m *Manager) Verify(ctx context.Context, userID, purpose string) (bool, *models.Record) {
	records, err := m.store.ListByUser(ctx, userID)
	if err != nil {
		if m.logger != nil {
			m.logger.ErrorContext(ctx, "consent check failed to read store",
				"user_id", userID,
				"error", err,
			)
		}
		return false, nil
	}

	now := m.now()
	for _, record := range records {
		if record.Covers(purpose, now) {
			m.emitAudit(ctx, audit.Entry{
				ConsentID: record.ID,
				Action:    audit.ActionVerified,
				AgentID:   record.AgentID,
				UserID:    userID,
				Timestamp: now,
				Details:   fmt.Sprintf("consent check passed for purpose %q", purpose),
			})
			if m.metrics != nil {
				m.metrics.IncrementChecksPassed(purpose)
			}
			return true, record
		}
	}

	m.emitAudit(ctx, audit.Entry{
		Action:    audit.ActionVerified,
		UserID:    userID,
		Timestamp: now,
		Details:   fmt.Sprintf("consent check failed for purpose %q", purpose),
	})
	if m.metrics != nil {
		m.metrics.IncrementChecksFailed(purpose)
	}
	return false, nil
}

// Get returns the record for the id or a not-found error.
func (m *Manager) Get(ctx context.Context, consentID string) (*models.Record, error) {
	return m.getRecord(ctx, consentID)
}

// List returns the user's records, optionally narrowed by filter. Unknown
// users yield an empty list, not an error.
func (m *Manager) List(ctx context.Context, userID string, filter *models.RecordFilter) ([]*models.Record, error) {
	records, err := m.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "failed to list consents")
	}
	if filter == nil {
		return records, nil
	}
	now := m.now()
	var filtered []*models.Record
	for _, record := range records {
		if filter.Matches(record, now) {
			filtered = append(filtered, record)
		}
	}
	return filtered, nil
}

// ListActive returns the agent's currently effective consents, excluding
// records whose retention window has lapsed even when their stored status
// still reads Active.
func (m *Manager) ListActive(ctx context.Context, agentID string) ([]*models.Record, error) {
	records, err := m.store.ListByAgent(ctx, agentID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "failed to list consents")
	}
	now := m.now()
	var active []*models.Record
	for _, record := range records {
		if record.IsActive(now) {
			active = append(active, record)
		}
	}
	return active, nil
}

// Update applies a partial field update to an Active record. The id, grant
// timestamp and status are never patchable.
func (m *Manager) Update(ctx context.Context, consentID string, patch models.UpdatePatch) (*models.Record, error) {
	if patch.Purposes != nil && len(patch.Purposes) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "purposes must not be empty")
	}

	record, err := m.getRecord(ctx, consentID)
	if err != nil {
		return nil, err
	}

	now := m.now()
	if record.Status.IsTerminal() {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "cannot update non-active consent")
	}
	if record.ExpiresAt != nil && record.ExpiresAt.Before(now) {
		m.markExpired(ctx, record, now)
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "cannot update non-active consent")
	}

	patch.Apply(record)
	if err := m.store.Put(ctx, record); err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "failed to update consent")
	}

	m.emitAudit(ctx, audit.Entry{
		ConsentID: record.ID,
		Action:    audit.ActionUpdated,
		AgentID:   record.AgentID,
		UserID:    record.UserID,
		Timestamp: now,
		Details:   fmt.Sprintf("consent updated, purposes now %v", record.Purposes),
	})
	m.logEvent(ctx, "consent_updated", record)
	return record, nil
}

func (m *Manager) getRecord(ctx context.Context, consentID string) (*models.Record, error) {
	record, err := m.store.Get(ctx, consentID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "consent not found")
		}
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "failed to read consent")
	}
	return record, nil
}

func (m *Manager) emitAudit(ctx context.Context, entry audit.Entry) {
	if m.auditor == nil {
		return
	}
	if err := m.auditor.Append(ctx, entry); err != nil && m.logger != nil {
		m.logger.ErrorContext(ctx, "failed to append audit entry",
			"action", entry.Action,
			"consent_id", entry.ConsentID,
			"error", err,
		)
	}
}

func (m *Manager) logEvent(ctx context.Context, msg string, record *models.Record) {
	if m.logger == nil {
		return
	}
	m.logger.InfoContext(ctx, msg,
		"consent_id", record.ID,
		"user_id", record.UserID,
		"agent_id", record.AgentID,
		"status", record.Status,
	)
}
