package store

import (
	"context"
	"sort"
	"sync"

	"sangha/internal/directory/models"
	"sangha/pkg/domain"
	"sangha/pkg/platform/sentinel"
)

type MemoryStore struct {
	mu         sync.RWMutex
	people     map[domain.PersonID]*models.Person
	namahattas map[domain.NamahattaID]*models.Namahatta
	codes      map[string]domain.NamahattaID
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		people:     make(map[domain.PersonID]*models.Person),
		namahattas: make(map[domain.NamahattaID]*models.Namahatta),
		codes:      make(map[string]domain.NamahattaID),
	}
}

func (s *MemoryStore) CreatePerson(_ context.Context, person *models.Person) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.people[person.ID]; exists {
		return sentinel.ErrAlreadyUsed
	}
	copied := *person
	s.people[person.ID] = &copied
	return nil
}

func (s *MemoryStore) UpdatePerson(_ context.Context, person *models.Person) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.people[person.ID]; !exists {
		return sentinel.ErrNotFound
	}
	copied := *person
	s.people[person.ID] = &copied
	return nil
}

func (s *MemoryStore) PersonByID(_ context.Context, id domain.PersonID) (*models.Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.people[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *p
	return &copied, nil
}

func (s *MemoryStore) ListPeople(_ context.Context, filter PersonFilter) ([]*models.Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Person
	for _, p := range s.people {
		if filter.District != "" && p.District != filter.District {
			continue
		}
		if filter.State != "" && p.State != filter.State {
			continue
		}
		if filter.Namahatta != nil && (p.NamahattaID == nil || *p.NamahattaID != *filter.Namahatta) {
			continue
		}
		copied := *p
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DisplayName != out[j].DisplayName {
			return out[i].DisplayName < out[j].DisplayName
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (s *MemoryStore) CreateNamahatta(_ context.Context, namahatta *models.Namahatta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.codes[namahatta.Code]; taken {
		return sentinel.ErrAlreadyUsed
	}
	copied := *namahatta
	s.namahattas[namahatta.ID] = &copied
	s.codes[namahatta.Code] = namahatta.ID
	return nil
}

func (s *MemoryStore) NamahattaByID(_ context.Context, id domain.NamahattaID) (*models.Namahatta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.namahattas[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *n
	return &copied, nil
}

func (s *MemoryStore) ListNamahattas(_ context.Context) ([]*models.Namahatta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Namahatta, 0, len(s.namahattas))
	for _, n := range s.namahattas {
		copied := *n
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}
