package policy

import (
	"context"
	"sync"
)

// InMemoryStore keeps privacy policies in process memory.
type InMemoryStore struct {
	mu       sync.RWMutex
	policies map[string]*PrivacyPolicy
}

// New constructs an empty in-memory policy store.
func New() *InMemoryStore {
	return &InMemoryStore{policies: make(map[string]*PrivacyPolicy)}
}

func (s *InMemoryStore) Register(_ context.Context, policy *PrivacyPolicy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copyPolicy := *policy
	s.policies[policy.AgentID] = &copyPolicy
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, agentID string) (*PrivacyPolicy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	policy, ok := s.policies[agentID]
	if !ok {
		return nil, ErrNotFound
	}
	copyPolicy := *policy
	return &copyPolicy, nil
}

func (s *InMemoryStore) ListAll(_ context.Context) ([]*PrivacyPolicy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var policies []*PrivacyPolicy
	for _, policy := range s.policies {
		copyPolicy := *policy
		policies = append(policies, &copyPolicy)
	}
	return policies, nil
}
