package service

// Unit tests for the consent manager.
//
// These tests enforce invariants, error code mapping and edge cases; the
// end-to-end lifecycle is covered by internal/privacy/service_test.go against
// real in-memory stores.

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Store

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"agora/internal/audit"
	"agora/internal/consent/models"
	"agora/internal/consent/service/mocks"
	"agora/internal/consent/store"
	dErrors "agora/pkg/domain-errors"
)

type ServiceSuite struct {
	suite.Suite
	ctrl       *gomock.Controller
	mockStore  *mocks.MockStore
	manager    *Manager
	auditStore *audit.InMemoryStore
}

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mockStore = mocks.NewMockStore(s.ctrl)
	s.auditStore = audit.NewInMemoryStore()
	auditor := audit.NewLog(s.auditStore)
	s.manager = NewManager(
		s.mockStore,
		auditor,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
}

func (s *ServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func validGrantRequest() models.GrantRequest {
	return models.GrantRequest{
		UserID:          "user-1",
		AgentID:         "agent-1",
		Purposes:        []string{"analytics"},
		DataTypes:       []string{"usage"},
		Jurisdiction:    "US",
		LegalBasis:      models.BasisConsent,
		ConsentMethod:   "web_form",
		RetentionPeriod: "30_days",
	}
}

// =============================================================================
// Grant Tests - Validation & Error Propagation
// =============================================================================

// TestGrant_ValidationErrors verifies that malformed requests fail with
// CodeValidation and a message naming the offending field.
func (s *ServiceSuite) TestGrant_ValidationErrors() {
	s.T().Run("empty purposes returns CodeValidation mentioning purposes", func(t *testing.T) {
		req := validGrantRequest()
		req.Purposes = nil
		_, _, err := s.manager.Grant(context.Background(), req)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
		assert.Contains(t, err.Error(), "purposes")
	})

	s.T().Run("missing jurisdiction returns CodeValidation mentioning jurisdiction", func(t *testing.T) {
		req := validGrantRequest()
		req.Jurisdiction = ""
		_, _, err := s.manager.Grant(context.Background(), req)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
		assert.Contains(t, err.Error(), "jurisdiction")
	})

	s.T().Run("missing user id returns CodeValidation", func(t *testing.T) {
		req := validGrantRequest()
		req.UserID = ""
		_, _, err := s.manager.Grant(context.Background(), req)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

// TestGrant_StoreErrorPropagation verifies that store failures surface as
// CodeInternal without leaking implementation details.
func (s *ServiceSuite) TestGrant_StoreErrorPropagation() {
	s.mockStore.EXPECT().
		Put(gomock.Any(), gomock.Any()).
		Return(assert.AnError)

	_, _, err := s.manager.Grant(context.Background(), validGrantRequest())
	require.Error(s.T(), err)
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeInternal))
}

// TestGrant_DerivedFields verifies expiry derivation and initial status.
func (s *ServiceSuite) TestGrant_DerivedFields() {
	s.T().Run("bounded retention sets expiry", func(t *testing.T) {
		var saved *models.Record
		s.mockStore.EXPECT().
			Put(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, r *models.Record) error {
				saved = r
				return nil
			})

		record, receipt, err := s.manager.Grant(context.Background(), validGrantRequest())
		require.NoError(t, err)
		require.NotNil(t, saved)
		assert.Equal(t, models.StatusActive, record.Status)
		require.NotNil(t, record.ExpiresAt)
		assert.Equal(t, record.GrantedAt.Add(30*24*time.Hour), *record.ExpiresAt)
		require.NotNil(t, receipt)
		assert.Equal(t, record.ID, receipt.ConsentID)
		assert.Equal(t, models.OperationGrant, receipt.Operation)
		assert.True(t, receipt.Verify())
	})

	s.T().Run("indefinite retention sets no expiry", func(t *testing.T) {
		s.mockStore.EXPECT().Put(gomock.Any(), gomock.Any()).Return(nil)

		req := validGrantRequest()
		req.RetentionPeriod = models.RetentionIndefinite
		record, _, err := s.manager.Grant(context.Background(), req)
		require.NoError(t, err)
		assert.Nil(t, record.ExpiresAt)
	})

	s.T().Run("repeated grants produce distinct ids", func(t *testing.T) {
		s.mockStore.EXPECT().Put(gomock.Any(), gomock.Any()).Return(nil).Times(2)

		first, _, err := s.manager.Grant(context.Background(), validGrantRequest())
		require.NoError(t, err)
		second, _, err := s.manager.Grant(context.Background(), validGrantRequest())
		require.NoError(t, err)
		assert.NotEqual(t, first.ID, second.ID)
	})
}

// =============================================================================
// Revoke / Withdraw Tests
// =============================================================================

func (s *ServiceSuite) TestRevoke_NotFound() {
	s.mockStore.EXPECT().
		Get(gomock.Any(), "nonexistent-id").
		Return(nil, store.ErrNotFound)

	_, _, err := s.manager.Revoke(context.Background(), "nonexistent-id", "x")
	require.Error(s.T(), err)
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeNotFound))
	assert.Contains(s.T(), err.Error(), "not found")
}

func (s *ServiceSuite) TestRevoke_TerminalStatesConflict() {
	s.T().Run("already withdrawn", func(t *testing.T) {
		s.mockStore.EXPECT().
			Get(gomock.Any(), "c1").
			Return(&models.Record{ID: "c1", Status: models.StatusWithdrawn}, nil)

		_, _, err := s.manager.Revoke(context.Background(), "c1", "again")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
		assert.Contains(t, err.Error(), "already revoked/withdrawn")
	})

	s.T().Run("already expired", func(t *testing.T) {
		s.mockStore.EXPECT().
			Get(gomock.Any(), "c2").
			Return(&models.Record{ID: "c2", Status: models.StatusExpired}, nil)

		_, _, err := s.manager.Revoke(context.Background(), "c2", "late")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

// TestRevoke_LazyExpiry verifies that revoking a time-expired record flips the
// stored status to Expired, records an expired audit entry and rejects the
// mutation with a conflict.
func (s *ServiceSuite) TestRevoke_LazyExpiry() {
	past := time.Now().Add(-time.Hour)
	record := &models.Record{
		ID:        "c3",
		UserID:    "user-1",
		AgentID:   "agent-1",
		Status:    models.StatusActive,
		ExpiresAt: &past,
	}
	s.mockStore.EXPECT().Get(gomock.Any(), "c3").Return(record, nil)

	var saved *models.Record
	s.mockStore.EXPECT().
		Put(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, r *models.Record) error {
			saved = r
			return nil
		})

	_, _, err := s.manager.Revoke(context.Background(), "c3", "too late")
	require.Error(s.T(), err)
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeConflict))
	require.NotNil(s.T(), saved)
	assert.Equal(s.T(), models.StatusExpired, saved.Status)

	entries, err := s.auditStore.Query(context.Background(), audit.QueryFilter{UserID: "user-1"})
	require.NoError(s.T(), err)
	require.Len(s.T(), entries, 1)
	assert.Equal(s.T(), audit.ActionExpired, entries[0].Action)
}

func (s *ServiceSuite) TestRevoke_Success() {
	record := &models.Record{
		ID:           "c4",
		UserID:       "user-1",
		AgentID:      "agent-1",
		Jurisdiction: "US",
		Status:       models.StatusActive,
	}
	s.mockStore.EXPECT().Get(gomock.Any(), "c4").Return(record, nil)
	s.mockStore.EXPECT().Put(gomock.Any(), gomock.Any()).Return(nil)

	revoked, receipt, err := s.manager.Revoke(context.Background(), "c4", "no longer needed")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), models.StatusWithdrawn, revoked.Status)
	assert.Equal(s.T(), "no longer needed", revoked.RevocationReason)
	require.NotNil(s.T(), receipt)
	assert.Equal(s.T(), models.OperationRevoke, receipt.Operation)
}

func (s *ServiceSuite) TestWithdraw_SetsDefaultReason() {
	record := &models.Record{
		ID:      "c5",
		UserID:  "user-1",
		AgentID: "agent-1",
		Status:  models.StatusActive,
	}
	s.mockStore.EXPECT().Get(gomock.Any(), "c5").Return(record, nil)
	s.mockStore.EXPECT().Put(gomock.Any(), gomock.Any()).Return(nil)

	withdrawn, receipt, err := s.manager.Withdraw(context.Background(), "c5")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), models.StatusWithdrawn, withdrawn.Status)
	assert.Equal(s.T(), "withdrawn by user", withdrawn.RevocationReason)
	assert.Equal(s.T(), models.OperationWithdraw, receipt.Operation)
}

// =============================================================================
// Verify Tests
// =============================================================================

func (s *ServiceSuite) TestVerify_NeverFails() {
	s.T().Run("store error yields negative result", func(t *testing.T) {
		s.mockStore.EXPECT().
			ListByUser(gomock.Any(), "user-1").
			Return(nil, assert.AnError)

		consented, record := s.manager.Verify(context.Background(), "user-1", "analytics")
		assert.False(t, consented)
		assert.Nil(t, record)
	})

	s.T().Run("unknown user yields negative result", func(t *testing.T) {
		s.mockStore.EXPECT().
			ListByUser(gomock.Any(), "nobody").
			Return(nil, nil)

		consented, _ := s.manager.Verify(context.Background(), "nobody", "analytics")
		assert.False(t, consented)
	})
}

func (s *ServiceSuite) TestVerify_LazyExpiryExcludesRecord() {
	past := time.Now().Add(-time.Minute)
	s.mockStore.EXPECT().
		ListByUser(gomock.Any(), "user-1").
		Return([]*models.Record{{
			ID:        "c1",
			UserID:    "user-1",
			Status:    models.StatusActive,
			Purposes:  []string{"analytics"},
			ExpiresAt: &past,
		}}, nil)

	consented, _ := s.manager.Verify(context.Background(), "user-1", "analytics")
	assert.False(s.T(), consented)
}

func (s *ServiceSuite) TestVerify_ExactPurposeMatch() {
	records := []*models.Record{{
		ID:       "c1",
		UserID:   "user-1",
		Status:   models.StatusActive,
		Purposes: []string{"analytics"},
	}}
	s.mockStore.EXPECT().
		ListByUser(gomock.Any(), "user-1").
		Return(records, nil).
		Times(2)

	consented, record := s.manager.Verify(context.Background(), "user-1", "analytics")
	assert.True(s.T(), consented)
	require.NotNil(s.T(), record)
	assert.Equal(s.T(), "c1", record.ID)

	consented, _ = s.manager.Verify(context.Background(), "user-1", "Analytics")
	assert.False(s.T(), consented)
}

// =============================================================================
// Update Tests
// =============================================================================

func (s *ServiceSuite) TestUpdate_NonActiveConflicts() {
	s.mockStore.EXPECT().
		Get(gomock.Any(), "c1").
		Return(&models.Record{ID: "c1", Status: models.StatusWithdrawn}, nil)

	_, err := s.manager.Update(context.Background(), "c1", models.UpdatePatch{ConsentMethod: "api"})
	require.Error(s.T(), err)
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *ServiceSuite) TestUpdate_EmptyPurposesRejected() {
	_, err := s.manager.Update(context.Background(), "c1", models.UpdatePatch{Purposes: []string{}})
	require.Error(s.T(), err)
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *ServiceSuite) TestUpdate_PreservesImmutableFields() {
	grantedAt := time.Now().Add(-time.Hour)
	record := &models.Record{
		ID:        "c1",
		UserID:    "user-1",
		AgentID:   "agent-1",
		Purposes:  []string{"analytics"},
		GrantedAt: grantedAt,
		Status:    models.StatusActive,
	}
	s.mockStore.EXPECT().Get(gomock.Any(), "c1").Return(record, nil)
	s.mockStore.EXPECT().Put(gomock.Any(), gomock.Any()).Return(nil)

	updated, err := s.manager.Update(context.Background(), "c1", models.UpdatePatch{
		Purposes: []string{"analytics", "billing"},
	})
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "c1", updated.ID)
	assert.Equal(s.T(), grantedAt, updated.GrantedAt)
	assert.Equal(s.T(), models.StatusActive, updated.Status)
	assert.Equal(s.T(), []string{"analytics", "billing"}, updated.Purposes)
}
