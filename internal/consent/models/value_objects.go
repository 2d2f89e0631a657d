package models

import (
	"strconv"
	"strings"
	"time"
)

// Status represents the lifecycle state of a consent record.
// Transitions are one-directional: Active -> Withdrawn (caller-triggered) and
// Active -> Expired (derived from retention). Withdrawn and Expired are terminal.
type Status string

const (
	StatusActive    Status = "active"
	StatusWithdrawn Status = "withdrawn"
	StatusExpired   Status = "expired"
)

// IsValid checks if the status is one of the supported enum values.
func (s Status) IsValid() bool {
	return s == StatusActive || s == StatusWithdrawn || s == StatusExpired
}

// IsTerminal reports whether no further transition is allowed from this status.
func (s Status) IsTerminal() bool {
	return s == StatusWithdrawn || s == StatusExpired
}

// LegalBasis is the regulatory justification under which data is processed.
type LegalBasis string

const (
	BasisConsent            LegalBasis = "consent"
	BasisContract           LegalBasis = "contract"
	BasisLegitimateInterest LegalBasis = "legitimate_interest"
	BasisLegalObligation    LegalBasis = "legal_obligation"
	BasisVitalInterests     LegalBasis = "vital_interests"
)

// ValidBases is the single source of truth for supported legal bases.
var ValidBases = map[LegalBasis]bool{
	BasisConsent:            true,
	BasisContract:           true,
	BasisLegitimateInterest: true,
	BasisLegalObligation:    true,
	BasisVitalInterests:     true,
}

// IsValid checks if the legal basis is one of the supported enum values.
func (b LegalBasis) IsValid() bool {
	return ValidBases[b]
}

// RetentionPeriod is a declared duration specifier such as "30_days",
// "6_months", "1_year" or "indefinite". Month and year lengths follow a fixed
// convention: 1 month = 30 days, 1 year = 365 days.
type RetentionPeriod string

// RetentionIndefinite marks grants that never lapse by time.
const RetentionIndefinite RetentionPeriod = "indefinite"

// Duration parses the retention specifier. The second return value is false
// when retention is indefinite or the specifier is unrecognized, in which case
// no expiry applies.
func (r RetentionPeriod) Duration() (time.Duration, bool) {
	if r == "" || r == RetentionIndefinite {
		return 0, false
	}
	value, unit, ok := strings.Cut(string(r), "_")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return 0, false
	}
	day := 24 * time.Hour
	switch unit {
	case "day", "days":
		return time.Duration(n) * day, true
	case "month", "months":
		return time.Duration(n) * 30 * day, true
	case "year", "years":
		return time.Duration(n) * 365 * day, true
	default:
		return 0, false
	}
}

// ExpiryFrom derives the expiry timestamp for a grant made at the given time.
// Returns nil when retention is indefinite.
func (r RetentionPeriod) ExpiryFrom(grantedAt time.Time) *time.Time {
	d, ok := r.Duration()
	if !ok {
		return nil
	}
	expiry := grantedAt.Add(d)
	return &expiry
}
