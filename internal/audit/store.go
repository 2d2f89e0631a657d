package audit

import "context"

// Store persists audit entries. Append assigns the monotonic sequence number;
// entries are immutable once appended. Query returns entries sorted
// most-recent-first with sequence as the tiebreaker within equal timestamps.
type Store interface {
	Append(ctx context.Context, entry Entry) error
	Query(ctx context.Context, filter QueryFilter) ([]Entry, error)
}
