package models

import (
	"slices"
	"strings"
	"time"
)

// Record captures a subject's consent grant to one agent for a bounded set of
// purposes.
//
// # Lifecycle Invariant
//
// ID is assigned once at creation and never reused. The stored Status moves in
// one direction only: Active -> Withdrawn via revocation, Active -> Expired when
// a write-path operation observes that the retention window has lapsed. Expiry
// is otherwise lazy: a record past its ExpiresAt may still carry StatusActive in
// storage, and readers must derive the effective state via ComputeStatus.
type Record struct {
	ID               string
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
	GrantedAt        time.Time
	ExpiresAt        *time.Time
	Status           Status
	RevocationReason string
}

// ComputeStatus reports the effective lifecycle state at the provided time,
// applying the lazy-expiry rule on top of the stored status.
func (r Record) ComputeStatus(now time.Time) Status {
	if r.Status.IsTerminal() {
		return r.Status
	}
	if r.ExpiresAt != nil && r.ExpiresAt.Before(now) {
		return StatusExpired
	}
	return StatusActive
}

// IsActive returns true when the consent is currently valid.
func (r Record) IsActive(now time.Time) bool {
	return r.ComputeStatus(now) == StatusActive
}

// HasPurpose reports whether the purpose is an exact (case-sensitive) member
// of the granted purpose set.
func (r Record) HasPurpose(purpose string) bool {
	return slices.Contains(r.Purposes, purpose)
}

// Covers reports whether this record authorizes processing for the purpose at
// the given time.
func (r Record) Covers(purpose string, now time.Time) bool {
	return r.IsActive(now) && r.HasPurpose(purpose)
}

// Clone returns a deep copy so stores can hand out records without aliasing
// their internal state.
func (r Record) Clone() *Record {
	clone := r
	clone.Purposes = slices.Clone(r.Purposes)
	clone.DataTypes = slices.Clone(r.DataTypes)
	if r.ExpiresAt != nil {
		expiry := *r.ExpiresAt
		clone.ExpiresAt = &expiry
	}
	return &clone
}

// RecordFilter narrows consent listings. Purpose matches by substring against
// any granted purpose; Status matches the effective (lazily derived) status.
type RecordFilter struct {
	AgentID string
	Status  Status
	Purpose string
}

// Matches applies the filter against a record at the given time.
func (f RecordFilter) Matches(r *Record, now time.Time) bool {
	if f.AgentID != "" && r.AgentID != f.AgentID {
		return false
	}
	if f.Status != "" && r.ComputeStatus(now) != f.Status {
		return false
	}
	if f.Purpose != "" && !containsSubstring(r.Purposes, f.Purpose) {
		return false
	}
	return true
}

func containsSubstring(values []string, substr string) bool {
	for _, v := range values {
		if strings.Contains(v, substr) {
			return true
		}
	}
	return false
}
