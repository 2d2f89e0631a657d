package privacy

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"agora/internal/audit"
	"agora/internal/consent/models"
	"agora/internal/consent/service"
	"agora/internal/policy"
)

// GrantResult pairs a consent record with its receipt.
type GrantResult struct {
	Consent *models.Record
	Receipt *models.Receipt
}

// VerifyResult reports the outcome of a consent check. Consent is populated
// only when Consented is true.
type VerifyResult struct {
	Consented bool
	Consent   *models.Record
}

// Service is the privacy facade: the only surface external collaborators use.
// It composes the consent manager, the audit log and the policy registry and
// owns no state beyond delegation. Every mutation observable through this
// facade is paired with its audit entry: the manager appends the entry only
// after the state change succeeds, so on failure neither is visible.
type Service struct {
	consents *service.Manager
	auditor  *audit.Log
	policies policy.Store
	tracer   trace.Tracer
	logger   *slog.Logger
}

// NewService constructs the facade over its owned components.
func NewService(consents *service.Manager, auditor *audit.Log, policies policy.Store, logger *slog.Logger) *Service {
	return &Service{
		consents: consents,
		auditor:  auditor,
		policies: policies,
		tracer:   otel.Tracer("agora/privacy"),
		logger:   logger,
	}
}

// GrantConsent records a new consent grant and returns the record with its
// receipt. Repeated identical requests create distinct records.
func (s *Service) GrantConsent(ctx context.Context, req models.GrantRequest) (*GrantResult, error) {
	ctx, span := s.tracer.Start(ctx, "privacy.GrantConsent",
		trace.WithAttributes(attribute.String("agent_id", req.AgentID)))
	defer span.End()

	record, receipt, err := s.consents.Grant(ctx, req)
	if err != nil {
		return nil, err
	}
	return &GrantResult{Consent: record, Receipt: receipt}, nil
}

// RevokeConsent withdraws an active consent with a caller-supplied reason.
func (s *Service) RevokeConsent(ctx context.Context, consentID, reason string) (*GrantResult, error) {
	ctx, span := s.tracer.Start(ctx, "privacy.RevokeConsent",
		trace.WithAttributes(attribute.String("consent_id", consentID)))
	defer span.End()

	record, receipt, err := s.consents.Revoke(ctx, consentID, reason)
	if err != nil {
		return nil, err
	}
	return &GrantResult{Consent: record, Receipt: receipt}, nil
}

// WithdrawConsent withdraws an active consent without a caller-supplied reason.
func (s *Service) WithdrawConsent(ctx context.Context, consentID string) (*GrantResult, error) {
	ctx, span := s.tracer.Start(ctx, "privacy.WithdrawConsent",
		trace.WithAttributes(attribute.String("consent_id", consentID)))
	defer span.End()

	record, receipt, err := s.consents.Withdraw(ctx, consentID)
	if err != nil {
		return nil, err
	}
	return &GrantResult{Consent: record, Receipt: receipt}, nil
}

// VerifyConsent checks whether the user holds an active consent covering the
// purpose. It never fails; absence of a match yields Consented=false.
func (s *Service) VerifyConsent(ctx context.Context, userID, purpose string) *VerifyResult {
	ctx, span := s.tracer.Start(ctx, "privacy.VerifyConsent",
		trace.WithAttributes(attribute.String("purpose", purpose)))
	defer span.End()

	consented, record := s.consents.Verify(ctx, userID, purpose)
	return &VerifyResult{Consented: consented, Consent: record}
}

// GetConsent returns a consent record by id.
func (s *Service) GetConsent(ctx context.Context, consentID string) (*models.Record, error) {
	return s.consents.Get(ctx, consentID)
}

// ListConsents returns the user's consent records, optionally filtered.
// Unknown users yield an empty list.
func (s *Service) ListConsents(ctx context.Context, userID string, filter *models.RecordFilter) ([]*models.Record, error) {
	return s.consents.List(ctx, userID, filter)
}

// ListActiveConsents returns the agent's currently effective consents,
// excluding lazily expired records.
func (s *Service) ListActiveConsents(ctx context.Context, agentID string) ([]*models.Record, error) {
	return s.consents.ListActive(ctx, agentID)
}

// UpdateConsent applies a partial update to an active record.
func (s *Service) UpdateConsent(ctx context.Context, consentID string, patch models.UpdatePatch) (*models.Record, error) {
	ctx, span := s.tracer.Start(ctx, "privacy.UpdateConsent",
		trace.WithAttributes(attribute.String("consent_id", consentID)))
	defer span.End()

	return s.consents.Update(ctx, consentID, patch)
}

// RegisterPolicy upserts an agent's privacy policy, stamping timestamps when
// the caller left them unset.
func (s *Service) RegisterPolicy(ctx context.Context, p *policy.PrivacyPolicy) error {
	now := time.Now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	if err := s.policies.Register(ctx, p); err != nil {
		return err
	}
	if s.logger != nil {
		s.logger.InfoContext(ctx, "privacy policy registered",
			"agent_id", p.AgentID,
			"version", p.Version,
		)
	}
	return nil
}

// GetPolicy returns the registered policy for the agent, if any.
func (s *Service) GetPolicy(ctx context.Context, agentID string) (*policy.PrivacyPolicy, error) {
	return s.policies.Get(ctx, agentID)
}

// GetAllPolicies returns every registered policy in unspecified order.
func (s *Service) GetAllPolicies(ctx context.Context) ([]*policy.PrivacyPolicy, error) {
	return s.policies.ListAll(ctx)
}

// GetAuditLog serves filtered audit reads, most recent first.
func (s *Service) GetAuditLog(ctx context.Context, filter audit.QueryFilter) ([]audit.Entry, error) {
	return s.auditor.Query(ctx, filter)
}
