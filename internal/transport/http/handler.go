package httptransport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"agora/internal/audit"
	"agora/internal/consent/models"
	"agora/internal/platform/middleware"
	"agora/internal/policy"
	"agora/internal/privacy"
	respond "agora/internal/transport/http/json"
	"agora/internal/transport/http/shared"
	dErrors "agora/pkg/domain-errors"
	"agora/pkg/validation"
)

// Service defines the facade operations the HTTP layer exposes.
type Service interface {
	GrantConsent(ctx context.Context, req models.GrantRequest) (*privacy.GrantResult, error)
	RevokeConsent(ctx context.Context, consentID, reason string) (*privacy.GrantResult, error)
	WithdrawConsent(ctx context.Context, consentID string) (*privacy.GrantResult, error)
	VerifyConsent(ctx context.Context, userID, purpose string) *privacy.VerifyResult
	GetConsent(ctx context.Context, consentID string) (*models.Record, error)
	ListConsents(ctx context.Context, userID string, filter *models.RecordFilter) ([]*models.Record, error)
	ListActiveConsents(ctx context.Context, agentID string) ([]*models.Record, error)
	UpdateConsent(ctx context.Context, consentID string, patch models.UpdatePatch) (*models.Record, error)
	RegisterPolicy(ctx context.Context, p *policy.PrivacyPolicy) error
	GetPolicy(ctx context.Context, agentID string) (*policy.PrivacyPolicy, error)
	GetAllPolicies(ctx context.Context) ([]*policy.PrivacyPolicy, error)
	GetAuditLog(ctx context.Context, filter audit.QueryFilter) ([]audit.Entry, error)
}

// Handler is the thin HTTP layer over the privacy facade. It decodes,
// validates and translates; business rules stay behind the Service interface.
type Handler struct {
	logger  *slog.Logger
	privacy Service
}

// New creates the consent and policy Handler.
func New(privacySvc Service, logger *slog.Logger) *Handler {
	return &Handler{
		logger:  logger,
		privacy: privacySvc,
	}
}

// Register mounts the routes on the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/consents", h.handleGrantConsent)
	r.Get("/consents/verify", h.handleVerifyConsent)
	r.Get("/consents/{consentID}", h.handleGetConsent)
	r.Patch("/consents/{consentID}", h.handleUpdateConsent)
	r.Post("/consents/{consentID}/revoke", h.handleRevokeConsent)
	r.Post("/consents/{consentID}/withdraw", h.handleWithdrawConsent)

	r.Get("/users/{userID}/consents", h.handleListConsents)
	r.Get("/agents/{agentID}/consents/active", h.handleListActiveConsents)

	r.Post("/policies", h.handleRegisterPolicy)
	r.Get("/policies", h.handleListPolicies)
	r.Get("/policies/{agentID}", h.handleGetPolicy)

	r.Get("/audit", h.handleAuditLog)
}

func (h *Handler) handleGrantConsent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req GrantConsentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.warn(ctx, "failed to decode grant consent request", err)
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	req.Normalize()
	if err := validation.Validate(&req); err != nil {
		h.warn(ctx, "invalid grant consent request", err)
		shared.WriteError(w, err)
		return
	}

	res, err := h.privacy.GrantConsent(ctx, req.ToDomain())
	if err != nil {
		h.warn(ctx, "failed to grant consent", err)
		shared.WriteError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, toGrantEnvelope(res, time.Now()))
}

func (h *Handler) handleRevokeConsent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	consentID := chi.URLParam(r, "consentID")

	var req RevokeConsentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.warn(ctx, "failed to decode revoke consent request", err)
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if err := validation.Validate(&req); err != nil {
		h.warn(ctx, "invalid revoke consent request", err)
		shared.WriteError(w, err)
		return
	}

	res, err := h.privacy.RevokeConsent(ctx, consentID, req.Reason)
	if err != nil {
		h.warn(ctx, "failed to revoke consent", err)
		shared.WriteError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, toGrantEnvelope(res, time.Now()))
}

func (h *Handler) handleWithdrawConsent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	consentID := chi.URLParam(r, "consentID")

	res, err := h.privacy.WithdrawConsent(ctx, consentID)
	if err != nil {
		h.warn(ctx, "failed to withdraw consent", err)
		shared.WriteError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, toGrantEnvelope(res, time.Now()))
}

func (h *Handler) handleVerifyConsent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := r.URL.Query().Get("user_id")
	purpose := r.URL.Query().Get("purpose")
	if userID == "" || purpose == "" {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "user_id and purpose are required"))
		return
	}

	res := h.privacy.VerifyConsent(ctx, userID, purpose)
	respond.WriteJSON(w, http.StatusOK, VerifyResponse{
		Consented: res.Consented,
		Consent:   toConsentResponse(res.Consent, time.Now()),
	})
}

func (h *Handler) handleGetConsent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	record, err := h.privacy.GetConsent(ctx, chi.URLParam(r, "consentID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, toConsentResponse(record, time.Now()))
}

func (h *Handler) handleUpdateConsent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	consentID := chi.URLParam(r, "consentID")

	var req UpdateConsentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.warn(ctx, "failed to decode update consent request", err)
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if err := validation.Validate(&req); err != nil {
		h.warn(ctx, "invalid update consent request", err)
		shared.WriteError(w, err)
		return
	}

	record, err := h.privacy.UpdateConsent(ctx, consentID, req.ToPatch())
	if err != nil {
		h.warn(ctx, "failed to update consent", err)
		shared.WriteError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, toConsentResponse(record, time.Now()))
}

func (h *Handler) handleListConsents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := chi.URLParam(r, "userID")

	statusFilter := r.URL.Query().Get("status")
	if statusFilter != "" && !models.Status(statusFilter).IsValid() {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid status filter"))
		return
	}

	var filter *models.RecordFilter
	purposeFilter := r.URL.Query().Get("purpose")
	agentFilter := r.URL.Query().Get("agent_id")
	if statusFilter != "" || purposeFilter != "" || agentFilter != "" {
		filter = &models.RecordFilter{
			AgentID: agentFilter,
			Status:  models.Status(statusFilter),
			Purpose: purposeFilter,
		}
	}

	records, err := h.privacy.ListConsents(ctx, userID, filter)
	if err != nil {
		h.warn(ctx, "failed to list consents", err)
		shared.WriteError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, toListConsentsResponse(records, time.Now()))
}

func (h *Handler) handleListActiveConsents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	records, err := h.privacy.ListActiveConsents(ctx, chi.URLParam(r, "agentID"))
	if err != nil {
		h.warn(ctx, "failed to list active consents", err)
		shared.WriteError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, toListConsentsResponse(records, time.Now()))
}

func (h *Handler) handleRegisterPolicy(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req RegisterPolicyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.warn(ctx, "failed to decode register policy request", err)
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if err := validation.Validate(&req); err != nil {
		h.warn(ctx, "invalid register policy request", err)
		shared.WriteError(w, err)
		return
	}

	doc := req.ToDomain()
	if err := h.privacy.RegisterPolicy(ctx, doc); err != nil {
		h.warn(ctx, "failed to register policy", err)
		shared.WriteError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, doc)
}

func (h *Handler) handleGetPolicy(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	doc, err := h.privacy.GetPolicy(ctx, chi.URLParam(r, "agentID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, doc)
}

func (h *Handler) handleListPolicies(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	docs, err := h.privacy.GetAllPolicies(ctx)
	if err != nil {
		h.warn(ctx, "failed to list policies", err)
		shared.WriteError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]any{"policies": docs})
}

func (h *Handler) handleAuditLog(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	filter := audit.QueryFilter{
		AgentID: r.URL.Query().Get("agent_id"),
		UserID:  r.URL.Query().Get("user_id"),
	}
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 0 {
			shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid limit"))
			return
		}
		filter.Limit = limit
	}

	entries, err := h.privacy.GetAuditLog(ctx, filter)
	if err != nil {
		h.warn(ctx, "failed to query audit log", err)
		shared.WriteError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, toAuditLogResponse(entries))
}

func (h *Handler) warn(ctx context.Context, msg string, err error) {
	if h.logger == nil {
		return
	}
	h.logger.WarnContext(ctx, msg,
		"request_id", middleware.GetRequestID(ctx),
		"error", err,
	)
}
