package store

import (
	"context"
	"sort"
	"sync"

	"sangha/internal/hierarchy/models"
	"sangha/pkg/domain"
	"sangha/pkg/platform/sentinel"
)

// MemoryStore keeps the hierarchy forest in maps. Apply validates the full
// prospective state before swapping anything in, so a rejected changeset
// leaves no trace.
type MemoryStore struct {
	mu      sync.RWMutex
	holders map[domain.PersonID]*models.Holder
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{holders: make(map[domain.PersonID]*models.Holder)}
}

func (s *MemoryStore) HolderOf(_ context.Context, personID domain.PersonID) (*models.Holder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.holders[personID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *h
	return &copied, nil
}

func (s *MemoryStore) HolderOfSlot(_ context.Context, key models.SlotKey) (*models.Holder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, h := range s.holders {
		if h.SlotKey() == key {
			copied := *h
			return &copied, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *MemoryStore) Subordinates(_ context.Context, personID domain.PersonID) ([]*models.Holder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Holder
	for _, h := range s.holders {
		if h.SuperiorID != nil && *h.SuperiorID == personID {
			copied := *h
			out = append(out, &copied)
		}
	}
	sortHolders(out)
	return out, nil
}

func (s *MemoryStore) Snapshot(_ context.Context) ([]*models.Holder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Holder, 0, len(s.holders))
	for _, h := range s.holders {
		copied := *h
		out = append(out, &copied)
	}
	sortHolders(out)
	return out, nil
}

func (s *MemoryStore) Apply(_ context.Context, changeset models.Changeset) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := prospective(s.holders, changeset)
	if err := validateForest(next); err != nil {
		return err
	}
	s.holders = next
	return nil
}

func sortHolders(holders []*models.Holder) {
	sort.Slice(holders, func(i, j int) bool {
		if holders[i].Role != holders[j].Role {
			return holders[i].Role.Level() < holders[j].Role.Level()
		}
		if holders[i].ScopeValue != holders[j].ScopeValue {
			return holders[i].ScopeValue < holders[j].ScopeValue
		}
		return holders[i].PersonID.String() < holders[j].PersonID.String()
	})
}
