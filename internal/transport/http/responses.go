package httptransport

import (
	"time"

	"agora/internal/audit"
	"agora/internal/consent/models"
	"agora/internal/privacy"
)

// ConsentResponse represents a consent record in HTTP responses. Status is the
// effective status computed at response time, not the raw stored value.
type ConsentResponse struct {
	ID               string     `json:"id"`
	UserID           string     `json:"user_id"`
	AgentID          string     `json:"agent_id"`
	Purposes         []string   `json:"purposes"`
	DataTypes        []string   `json:"data_types,omitempty"`
	Jurisdiction     string     `json:"jurisdiction"`
	LegalBasis       string     `json:"legal_basis,omitempty"`
	ConsentMethod    string     `json:"consent_method,omitempty"`
	WithdrawalMethod string     `json:"withdrawal_method,omitempty"`
	NoticeReference  string     `json:"notice_reference,omitempty"`
	RetentionPeriod  string     `json:"retention_period,omitempty"`
	GrantedAt        time.Time  `json:"granted_at"`
	ExpiresAt        *time.Time `json:"expires_at,omitempty"`
	Status           string     `json:"status"`
	RevocationReason string     `json:"revocation_reason,omitempty"`
}

// ReceiptResponse represents an operation receipt in HTTP responses.
type ReceiptResponse struct {
	ReceiptID string    `json:"receipt_id"`
	ConsentID string    `json:"consent_id"`
	Operation string    `json:"operation"`
	Timestamp time.Time `json:"timestamp"`
	Checksum  string    `json:"checksum"`
}

// GrantEnvelope is returned by grant, revoke and withdraw.
type GrantEnvelope struct {
	Consent *ConsentResponse `json:"consent"`
	Receipt *ReceiptResponse `json:"receipt"`
}

// VerifyResponse is returned by the consent check endpoint.
type VerifyResponse struct {
	Consented bool             `json:"consented"`
	Consent   *ConsentResponse `json:"consent,omitempty"`
}

// ListConsentsResponse is returned when listing a user's consents.
type ListConsentsResponse struct {
	Consents []*ConsentResponse `json:"consents"`
}

// AuditEntryResponse represents an audit entry in HTTP responses.
type AuditEntryResponse struct {
	ID        string    `json:"id"`
	ConsentID string    `json:"consent_id,omitempty"`
	Action    string    `json:"action"`
	AgentID   string    `json:"agent_id,omitempty"`
	UserID    string    `json:"user_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Details   string    `json:"details,omitempty"`
}

// AuditLogResponse is returned by the audit query endpoint.
type AuditLogResponse struct {
	Entries []*AuditEntryResponse `json:"entries"`
}

func toConsentResponse(record *models.Record, now time.Time) *ConsentResponse {
	if record == nil {
		return nil
	}
	return &ConsentResponse{
		ID:               record.ID,
		UserID:           record.UserID,
		AgentID:          record.AgentID,
		Purposes:         record.Purposes,
		DataTypes:        record.DataTypes,
		Jurisdiction:     record.Jurisdiction,
		LegalBasis:       string(record.LegalBasis),
		ConsentMethod:    record.ConsentMethod,
		WithdrawalMethod: record.WithdrawalMethod,
		NoticeReference:  record.NoticeReference,
		RetentionPeriod:  string(record.RetentionPeriod),
		GrantedAt:        record.GrantedAt,
		ExpiresAt:        record.ExpiresAt,
		Status:           string(record.ComputeStatus(now)),
		RevocationReason: record.RevocationReason,
	}
}

func toReceiptResponse(receipt *models.Receipt) *ReceiptResponse {
	if receipt == nil {
		return nil
	}
	return &ReceiptResponse{
		ReceiptID: receipt.ReceiptID,
		ConsentID: receipt.ConsentID,
		Operation: string(receipt.Operation),
		Timestamp: receipt.Timestamp,
		Checksum:  receipt.Checksum,
	}
}

func toGrantEnvelope(res *privacy.GrantResult, now time.Time) *GrantEnvelope {
	return &GrantEnvelope{
		Consent: toConsentResponse(res.Consent, now),
		Receipt: toReceiptResponse(res.Receipt),
	}
}

func toListConsentsResponse(records []*models.Record, now time.Time) *ListConsentsResponse {
	consents := make([]*ConsentResponse, 0, len(records))
	for _, record := range records {
		consents = append(consents, toConsentResponse(record, now))
	}
	return &ListConsentsResponse{Consents: consents}
}

func toAuditLogResponse(entries []audit.Entry) *AuditLogResponse {
	out := make([]*AuditEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, &AuditEntryResponse{
			ID:        e.ID,
			ConsentID: e.ConsentID,
			Action:    string(e.Action),
			AgentID:   e.AgentID,
			UserID:    e.UserID,
			Timestamp: e.Timestamp,
			Details:   e.Details,
		})
	}
	return &AuditLogResponse{Entries: out}
}
