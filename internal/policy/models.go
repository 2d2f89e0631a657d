package policy

import "time"

// DataCollected describes one category of data an agent collects and why.
type DataCollected struct {
	Category    string `json:"category"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
	LegalBasis  string `json:"legal_basis"`
}

// SharingPolicy describes whether and how collected data leaves the agent.
type SharingPolicy struct {
	SharesWithThirdParties bool     `json:"shares_with_third_parties"`
	ThirdParties           []string `json:"third_parties"`
	Safeguards             string   `json:"safeguards"`
}

// PrivacyPolicy is an agent's published description of its data practices,
// independent of any individual consent grant. At most one policy is kept per
// agent; re-registering replaces the prior document with no history.
type PrivacyPolicy struct {
	AgentID         string          `json:"agent_id"`
	AgentName       string          `json:"agent_name"`
	Version         string          `json:"version"`
	DataCollected   []DataCollected `json:"data_collected"`
	Purposes        []string        `json:"purposes"`
	RetentionPeriod string          `json:"retention_period"`
	SharingPolicy   SharingPolicy   `json:"sharing_policy"`
	UserRights      []string        `json:"user_rights"`
	Jurisdiction    string          `json:"jurisdiction"`
	Contact         string          `json:"contact"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}
