package audit

import "time"

// Action labels the lifecycle event an entry records.
type Action string

const (
	ActionGranted  Action = "granted"
	ActionRevoked  Action = "revoked"
	ActionUpdated  Action = "updated"
	ActionVerified Action = "verified"
	ActionExpired  Action = "expired"
)

// Entry is one immutable record of a consent lifecycle event. Entries are
// never edited or removed once written.
//
// Seq is a monotonic insertion counter assigned by the store. Wall-clock
// resolution may not separate rapid successive writes, so Seq is the
// deterministic tiebreaker that keeps query ordering causal within identical
// timestamps.
type Entry struct {
	ID        string
	Seq       uint64
	ConsentID string
	Action    Action
	AgentID   string
	UserID    string
	Timestamp time.Time
	Details   string
}

// QueryFilter narrows audit queries. Populated fields combine with AND
// semantics; a zero Limit means unbounded.
type QueryFilter struct {
	AgentID string
	UserID  string
	Limit   int
}

// Matches applies the filter predicates (excluding Limit) to an entry.
func (f QueryFilter) Matches(e Entry) bool {
	if f.AgentID != "" && e.AgentID != f.AgentID {
		return false
	}
	if f.UserID != "" && e.UserID != f.UserID {
		return false
	}
	return true
}
