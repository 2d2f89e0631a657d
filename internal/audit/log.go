package audit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Log is the append-only audit component. It assigns entry ids and timestamps,
// delegates persistence to the storage layer so tests can swap sinks, and by
// default writes synchronously so a successful mutation and its audit entry
// become observable together.
type Log struct {
	store   Store
	entries chan Entry
	wg      sync.WaitGroup
	logger  *slog.Logger
	async   bool
}

// Option configures the Log.
type Option func(*Log)

// WithAsyncBuffer enables async processing with the specified buffer size.
// Entries are queued and persisted in a background goroutine. Callers that
// need read-after-write visibility on the audit log must not enable this.
func WithAsyncBuffer(size int) Option {
	return func(l *Log) {
		if size > 0 {
			l.entries = make(chan Entry, size)
			l.async = true
		}
	}
}

// WithLogger sets a logger for async error reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Log) {
		l.logger = logger
	}
}

// NewLog constructs an audit log over the given store.
func NewLog(store Store, opts ...Option) *Log {
	l := &Log{store: store}
	for _, opt := range opts {
		opt(l)
	}
	if l.async {
		l.wg.Add(1)
		go l.processEntries()
	}
	return l
}

// processEntries runs in a goroutine and persists entries from the channel.
func (l *Log) processEntries() {
	defer l.wg.Done()
	for entry := range l.entries {
		if err := l.store.Append(context.Background(), entry); err != nil {
			if l.logger != nil {
				l.logger.Error("failed to persist audit entry",
					"error", err,
					"action", entry.Action,
					"consent_id", entry.ConsentID,
				)
			}
		}
	}
}

// Close shuts down the async log and waits for pending entries to drain.
func (l *Log) Close() {
	if l.async && l.entries != nil {
		close(l.entries)
		l.wg.Wait()
	}
}

// Append assigns a unique id and timestamp and persists the entry.
func (l *Log) Append(ctx context.Context, entry Entry) error {
	if entry.ID == "" {
		entry.ID = fmt.Sprintf("audit_%s", uuid.New().String())
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	if l.async {
		// Non-blocking send; drop the entry if the buffer is full to avoid
		// blocking the mutation path.
		select {
		case l.entries <- entry:
			return nil
		default:
			if l.logger != nil {
				l.logger.Warn("audit buffer full, entry dropped",
					"action", entry.Action,
					"consent_id", entry.ConsentID,
				)
			}
			return nil
		}
	}
	return l.store.Append(ctx, entry)
}

// Query serves filtered reads, most recent first.
func (l *Log) Query(ctx context.Context, filter QueryFilter) ([]Entry, error) {
	return l.store.Query(ctx, filter)
}
