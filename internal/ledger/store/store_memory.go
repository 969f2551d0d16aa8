package store

import (
	"context"
	"sort"
	"sync"

	"sangha/internal/ledger/models"
	"sangha/pkg/domain"
)

// MemoryStore keeps transition records per person in insertion order and
// sorts reads by timestamp. Records within one commit share a timestamp, so
// insertion order is the tiebreaker that keeps paired replacement records
// adjacent and stable.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[domain.PersonID][]*models.TransitionRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[domain.PersonID][]*models.TransitionRecord)}
}

func (s *MemoryStore) Append(_ context.Context, record *models.TransitionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *record
	s.records[record.PersonID] = append(s.records[record.PersonID], &copied)
	return nil
}

// ByPerson returns the person's transitions ascending by timestamp. A record
// carries its request time, not its commit time, so a slow request that
// commits late still sorts where it belongs.
func (s *MemoryStore) ByPerson(_ context.Context, personID domain.PersonID) ([]*models.TransitionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.TransitionRecord, 0, len(s.records[personID]))
	for _, r := range s.records[personID] {
		copied := *r
		out = append(out, &copied)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, nil
}
