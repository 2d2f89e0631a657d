package privacy

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"agora/internal/audit"
	"agora/internal/consent/models"
	"agora/internal/consent/service"
	"agora/internal/consent/store"
	"agora/internal/policy"
	pkgerrors "agora/pkg/domain-errors"
	"agora/pkg/testutil"
)

type PrivacySuite struct {
	suite.Suite
	svc        *Service
	auditStore *audit.InMemoryStore
	now        time.Time
	ctx        context.Context
}

func (s *PrivacySuite) SetupTest() {
	s.ctx = context.Background()
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	s.auditStore = audit.NewInMemoryStore()
	auditor := audit.NewLog(s.auditStore)
	manager := service.NewManager(
		store.New(),
		auditor,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		service.WithClock(func() time.Time { return s.now }),
	)
	s.svc = NewService(manager, auditor, policy.New(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestPrivacySuite(t *testing.T) {
	suite.Run(t, new(PrivacySuite))
}

func (s *PrivacySuite) grant(userID string, purposes []string, retention models.RetentionPeriod) *GrantResult {
	res, err := s.svc.GrantConsent(s.ctx, models.GrantRequest{
		UserID:          userID,
		AgentID:         "agent-1",
		Purposes:        purposes,
		DataTypes:       []string{"email"},
		Jurisdiction:    "EU",
		LegalBasis:      models.BasisConsent,
		ConsentMethod:   "api",
		RetentionPeriod: retention,
	})
	s.Require().NoError(err)
	s.Require().NotNil(res)
	return res
}

func (s *PrivacySuite) TestGrantThenVerify() {
	res := s.grant("user-1", []string{"analytics", "marketing"}, "30_days")

	s.Equal(models.StatusActive, res.Consent.Status)
	s.True(res.Receipt.Verify())
	s.Equal(res.Consent.ID, res.Receipt.ConsentID)

	s.Require().NotNil(res.Consent.ExpiresAt)
	lifetime := res.Consent.ExpiresAt.Sub(res.Consent.GrantedAt)
	s.Greater(lifetime, 29*24*time.Hour)
	s.Less(lifetime, 31*24*time.Hour)

	check := s.svc.VerifyConsent(s.ctx, "user-1", "analytics")
	s.True(check.Consented)
	s.Require().NotNil(check.Consent)
	s.Equal(res.Consent.ID, check.Consent.ID)
}

func (s *PrivacySuite) TestRevokeEndsConsent() {
	res := s.grant("user-1", []string{"analytics"}, "indefinite")

	s.now = s.now.Add(time.Hour)
	revoked, err := s.svc.RevokeConsent(s.ctx, res.Consent.ID, "changed my mind")
	s.Require().NoError(err)
	s.Equal(models.StatusWithdrawn, revoked.Consent.Status)
	s.Equal("changed my mind", revoked.Consent.RevocationReason)

	check := s.svc.VerifyConsent(s.ctx, "user-1", "analytics")
	s.False(check.Consented)
	s.Nil(check.Consent)
}

func (s *PrivacySuite) TestDoubleRevokeConflicts() {
	res := s.grant("user-1", []string{"analytics"}, "indefinite")

	_, err := s.svc.RevokeConsent(s.ctx, res.Consent.ID, "first")
	s.Require().NoError(err)

	_, err = s.svc.RevokeConsent(s.ctx, res.Consent.ID, "second")
	s.Require().Error(err)
	s.True(pkgerrors.HasCode(err, pkgerrors.CodeConflict))
	s.Contains(err.Error(), "already revoked/withdrawn")
}

func (s *PrivacySuite) TestRevokeUnknownConsent() {
	_, err := s.svc.RevokeConsent(s.ctx, "consent_missing", "reason")
	s.Require().Error(err)
	s.True(pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
	s.Contains(err.Error(), "not found")
}

func (s *PrivacySuite) TestAuditTrailOrder() {
	res := s.grant("user-1", []string{"analytics"}, "indefinite")

	s.now = s.now.Add(time.Minute)
	_, err := s.svc.RevokeConsent(s.ctx, res.Consent.ID, "done")
	s.Require().NoError(err)

	entries, err := s.svc.GetAuditLog(s.ctx, audit.QueryFilter{UserID: "user-1"})
	s.Require().NoError(err)
	s.Require().Len(entries, 2)
	s.Equal(audit.ActionRevoked, entries[0].Action)
	s.Equal(audit.ActionGranted, entries[1].Action)
	s.Equal(res.Consent.ID, entries[0].ConsentID)
}

func (s *PrivacySuite) TestAuditLimit() {
	for i := 0; i < 5; i++ {
		s.grant("user-1", []string{"analytics"}, "indefinite")
		s.now = s.now.Add(time.Second)
	}

	entries, err := s.svc.GetAuditLog(s.ctx, audit.QueryFilter{UserID: "user-1", Limit: 3})
	s.Require().NoError(err)
	s.Len(entries, 3)
}

func (s *PrivacySuite) TestListActiveExcludesEndedConsents() {
	active := s.grant("user-1", []string{"analytics"}, "indefinite")
	revoked := s.grant("user-2", []string{"analytics"}, "indefinite")
	expiring := s.grant("user-3", []string{"analytics"}, "1_days")

	_, err := s.svc.RevokeConsent(s.ctx, revoked.Consent.ID, "done")
	s.Require().NoError(err)

	s.now = s.now.Add(48 * time.Hour)
	records, err := s.svc.ListActiveConsents(s.ctx, "agent-1")
	s.Require().NoError(err)
	s.Require().Len(records, 1)
	s.Equal(active.Consent.ID, records[0].ID)
	s.NotEqual(expiring.Consent.ID, records[0].ID)
}

func (s *PrivacySuite) TestVerifyIsIdempotent() {
	s.grant("user-1", []string{"analytics"}, "indefinite")

	first := s.svc.VerifyConsent(s.ctx, "user-1", "analytics")
	second := s.svc.VerifyConsent(s.ctx, "user-1", "analytics")
	s.True(first.Consented)
	s.True(second.Consented)
	s.Equal(first.Consent.ID, second.Consent.ID)
}

func (s *PrivacySuite) TestVerifyAfterLazyExpiry() {
	s.grant("user-1", []string{"analytics"}, "1_days")

	s.now = s.now.Add(25 * time.Hour)
	check := s.svc.VerifyConsent(s.ctx, "user-1", "analytics")
	s.False(check.Consented)
}

func (s *PrivacySuite) TestUpdateConsentPurposes() {
	res := s.grant("user-1", []string{"analytics"}, "indefinite")

	updated, err := s.svc.UpdateConsent(s.ctx, res.Consent.ID, models.UpdatePatch{
		Purposes: []string{"analytics", "personalization"},
	})
	s.Require().NoError(err)
	s.Equal([]string{"analytics", "personalization"}, updated.Purposes)
	s.Equal(res.Consent.GrantedAt, updated.GrantedAt)

	check := s.svc.VerifyConsent(s.ctx, "user-1", "personalization")
	s.True(check.Consented)
}

func (s *PrivacySuite) TestListConsentsWithFilter() {
	s.grant("user-1", []string{"analytics"}, "indefinite")
	withdrawn := s.grant("user-1", []string{"marketing"}, "indefinite")
	_, err := s.svc.RevokeConsent(s.ctx, withdrawn.Consent.ID, "done")
	s.Require().NoError(err)

	all, err := s.svc.ListConsents(s.ctx, "user-1", nil)
	s.Require().NoError(err)
	s.Len(all, 2)

	filtered, err := s.svc.ListConsents(s.ctx, "user-1", &models.RecordFilter{Status: models.StatusActive})
	s.Require().NoError(err)
	s.Require().Len(filtered, 1)
	s.Equal([]string{"analytics"}, filtered[0].Purposes)
}

func (s *PrivacySuite) TestPolicyRegistryRoundTrip() {
	err := s.svc.RegisterPolicy(s.ctx, &policy.PrivacyPolicy{
		AgentID:   "agent-1",
		AgentName: "Recommender",
		Version:   "1.0",
		Purposes:  []string{"analytics"},
		DataCollected: []policy.DataCollected{
			{Category: "behavioral", Description: "click history", Required: true, LegalBasis: "consent"},
		},
		Jurisdiction: "EU",
	})
	s.Require().NoError(err)

	got, err := s.svc.GetPolicy(s.ctx, "agent-1")
	s.Require().NoError(err)
	s.Equal("Recommender", got.AgentName)
	s.False(got.CreatedAt.IsZero())

	err = s.svc.RegisterPolicy(s.ctx, &policy.PrivacyPolicy{
		AgentID: "agent-1",
		Version: "2.0",
	})
	s.Require().NoError(err)

	all, err := s.svc.GetAllPolicies(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(all, 1)
	s.Equal("2.0", all[0].Version)
}

func (s *PrivacySuite) TestConcurrentRevokesConflict() {
	res := s.grant("user-1", []string{"analytics"}, "indefinite")

	result := testutil.RunConcurrent(16, func(int) error {
		_, err := s.svc.RevokeConsent(s.ctx, res.Consent.ID, "race")
		return err
	})
	s.Equal(int32(16), result.Total())
	s.GreaterOrEqual(result.Successes, int32(1))
	s.Equal(int32(16), result.Successes+result.Conflicts)
	s.Zero(result.Errors)
	s.Zero(result.NotFounds)

	record, err := s.svc.GetConsent(s.ctx, res.Consent.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusWithdrawn, record.Status)
}

func (s *PrivacySuite) TestPolicyNotFound() {
	_, err := s.svc.GetPolicy(s.ctx, "agent-unknown")
	s.Require().Error(err)
	s.True(pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}
