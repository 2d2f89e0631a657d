package httptransport

import (
	"agora/internal/consent/models"
	"agora/internal/policy"
	s "agora/pkg/string"
)

// GrantConsentRequest is the body for POST /consents.
type GrantConsentRequest struct {
	UserID           string   `json:"user_id" validate:"required,notblank"`
	AgentID          string   `json:"agent_id" validate:"required,notblank"`
	Purposes         []string `json:"purposes" validate:"required,min=1,dive,notblank"`
	DataTypes        []string `json:"data_types" validate:"omitempty,dive,notblank"`
	Jurisdiction     string   `json:"jurisdiction" validate:"required,notblank"`
	LegalBasis       string   `json:"legal_basis" validate:"omitempty,oneof=consent contract legitimate_interest legal_obligation vital_interests"`
	ConsentMethod    string   `json:"consent_method"`
	WithdrawalMethod string   `json:"withdrawal_method"`
	NoticeReference  string   `json:"notice_reference"`
	RetentionPeriod  string   `json:"retention_period"`
}

// Normalize trims caller-supplied strings before validation.
func (r *GrantConsentRequest) Normalize() {
	if r == nil {
		return
	}
	s.TrimStrings(&r.UserID, &r.AgentID, &r.Jurisdiction, &r.RetentionPeriod)
	s.TrimSlice(r.Purposes)
	s.TrimSlice(r.DataTypes)
}

// ToDomain converts the validated request into the service-layer form.
func (r *GrantConsentRequest) ToDomain() models.GrantRequest {
	return models.GrantRequest{
		UserID:           r.UserID,
		AgentID:          r.AgentID,
		Purposes:         r.Purposes,
		DataTypes:        r.DataTypes,
		Jurisdiction:     r.Jurisdiction,
		LegalBasis:       models.LegalBasis(r.LegalBasis),
		ConsentMethod:    r.ConsentMethod,
		WithdrawalMethod: r.WithdrawalMethod,
		NoticeReference:  r.NoticeReference,
		RetentionPeriod:  models.RetentionPeriod(r.RetentionPeriod),
	}
}

// RevokeConsentRequest is the body for POST /consents/{id}/revoke.
type RevokeConsentRequest struct {
	Reason string `json:"reason" validate:"required,notblank"`
}

// UpdateConsentRequest is the body for PATCH /consents/{id}. Absent fields
// leave the record untouched.
type UpdateConsentRequest struct {
	Purposes         []string `json:"purposes" validate:"omitempty,dive,notblank"`
	DataTypes        []string `json:"data_types" validate:"omitempty,dive,notblank"`
	ConsentMethod    string   `json:"consent_method"`
	WithdrawalMethod string   `json:"withdrawal_method"`
	NoticeReference  string   `json:"notice_reference"`
}

// ToPatch converts the request into the service-layer patch.
func (r *UpdateConsentRequest) ToPatch() models.UpdatePatch {
	return models.UpdatePatch{
		Purposes:         r.Purposes,
		DataTypes:        r.DataTypes,
		ConsentMethod:    r.ConsentMethod,
		WithdrawalMethod: r.WithdrawalMethod,
		NoticeReference:  r.NoticeReference,
	}
}

// RegisterPolicyRequest is the body for POST /policies.
type RegisterPolicyRequest struct {
	AgentID         string                 `json:"agent_id" validate:"required,notblank"`
	AgentName       string                 `json:"agent_name"`
	Version         string                 `json:"version" validate:"required,notblank"`
	DataCollected   []policy.DataCollected `json:"data_collected"`
	Purposes        []string               `json:"purposes" validate:"omitempty,dive,notblank"`
	RetentionPeriod string                 `json:"retention_period"`
	SharingPolicy   policy.SharingPolicy   `json:"sharing_policy"`
	UserRights      []string               `json:"user_rights"`
	Jurisdiction    string                 `json:"jurisdiction"`
	Contact         string                 `json:"contact"`
}

// ToDomain converts the request into the registry document.
func (r *RegisterPolicyRequest) ToDomain() *policy.PrivacyPolicy {
	return &policy.PrivacyPolicy{
		AgentID:         r.AgentID,
		AgentName:       r.AgentName,
		Version:         r.Version,
		DataCollected:   r.DataCollected,
		Purposes:        r.Purposes,
		RetentionPeriod: r.RetentionPeriod,
		SharingPolicy:   r.SharingPolicy,
		UserRights:      r.UserRights,
		Jurisdiction:    r.Jurisdiction,
		Contact:         r.Contact,
	}
}
