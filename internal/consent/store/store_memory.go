package store

import (
	"context"
	"sort"
	"sync"

	"agora/internal/consent/models"
)

// InMemoryStore keeps consent records in process memory, indexed by record id
// with secondary indexes by user and agent. It is the baseline backend and the
// one used in tests.
type InMemoryStore struct {
	mu      sync.RWMutex
	byID    map[string]*models.Record
	byUser  map[string][]string
	byAgent map[string][]string
}

// New constructs an empty in-memory consent store.
func New() *InMemoryStore {
	return &InMemoryStore{
		byID:    make(map[string]*models.Record),
		byUser:  make(map[string][]string),
		byAgent: make(map[string][]string),
	}
}

func (s *InMemoryStore) Put(_ context.Context, record *models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, exists := s.byID[record.ID]
	s.byID[record.ID] = record.Clone()
	if !exists {
		s.byUser[record.UserID] = append(s.byUser[record.UserID], record.ID)
		s.byAgent[record.AgentID] = append(s.byAgent[record.AgentID], record.ID)
	}
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, consentID string) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.byID[consentID]
	if !ok {
		return nil, ErrNotFound
	}
	return record.Clone(), nil
}

func (s *InMemoryStore) ListByUser(_ context.Context, userID string) ([]*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(s.byUser[userID]), nil
}

func (s *InMemoryStore) ListByAgent(_ context.Context, agentID string) ([]*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(s.byAgent[agentID]), nil
}

// collect resolves ids to record copies, ordered by grant time so listings are
// deterministic.
func (s *InMemoryStore) collect(ids []string) []*models.Record {
	var records []*models.Record
	for _, id := range ids {
		if record, ok := s.byID[id]; ok {
			records = append(records, record.Clone())
		}
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].GrantedAt.Before(records[j].GrantedAt)
	})
	return records
}
