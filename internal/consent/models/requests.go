package models

// GrantRequest carries the caller-supplied fields for a new consent grant.
// Validation of purposes and jurisdiction happens in the service layer.
type GrantRequest struct {
	UserID           string
	AgentID          string
	Purposes         []string
	DataTypes        []string
	Jurisdiction     string
	LegalBasis       LegalBasis
	ConsentMethod    string
	WithdrawalMethod string
	NoticeReference  string
	RetentionPeriod  RetentionPeriod
}

// UpdatePatch is a partial update applied to an active record. Nil slices and
// empty strings leave the corresponding field untouched; ID, GrantedAt and
// Status are never patchable.
type UpdatePatch struct {
	Purposes         []string
	DataTypes        []string
	ConsentMethod    string
	WithdrawalMethod string
	NoticeReference  string
}

// Apply copies the populated patch fields onto the record.
func (p UpdatePatch) Apply(r *Record) {
	if p.Purposes != nil {
		r.Purposes = p.Purposes
	}
	if p.DataTypes != nil {
		r.DataTypes = p.DataTypes
	}
	if p.ConsentMethod != "" {
		r.ConsentMethod = p.ConsentMethod
	}
	if p.WithdrawalMethod != "" {
		r.WithdrawalMethod = p.WithdrawalMethod
	}
	if p.NoticeReference != "" {
		r.NoticeReference = p.NoticeReference
	}
}
