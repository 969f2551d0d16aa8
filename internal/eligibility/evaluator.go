// Package eligibility ranks replacement candidates for a leadership seat.
// Evaluation is a pure read: the same directory and hierarchy state always
// yields the same ordered list.
package eligibility

import (
	"context"
	"errors"
	"sort"

	dirmodels "sangha/internal/directory/models"
	dirstore "sangha/internal/directory/store"
	hiermodels "sangha/internal/hierarchy/models"
	hierstore "sangha/internal/hierarchy/store"
	"sangha/pkg/domain"
	dErrors "sangha/pkg/domain-errors"
	"sangha/pkg/platform/sentinel"
)

// Candidate is one eligible successor with its match strength. Strength 2
// means the candidate shares the outgoing holder's namahatta, 1 the district,
// 0 a scope match only.
type Candidate struct {
	Person   *dirmodels.Person `json:"person"`
	Strength int               `json:"strength"`
}

type Evaluator struct {
	directory dirstore.Store
	hierarchy hierstore.Store
}

func New(directory dirstore.Store, hierarchy hierstore.Store) *Evaluator {
	return &Evaluator{directory: directory, hierarchy: hierarchy}
}

// FindReplacements returns the eligible successors for the seat the person
// currently holds, strongest match first. Ties break by display name, then
// person id, so the ordering is total.
//
// Errors: CodeNotFound when the person holds no seat or has no profile.
func (e *Evaluator) FindReplacements(ctx context.Context, vacatingID domain.PersonID) ([]Candidate, error) {
	holder, err := e.hierarchy.HolderOf(ctx, vacatingID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "person holds no leadership seat")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "load holder")
	}

	vacating, err := e.directory.PersonByID(ctx, vacatingID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "person not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "load person")
	}

	occupied, err := e.occupiedSeats(ctx)
	if err != nil {
		return nil, err
	}

	people, err := e.directory.ListPeople(ctx, dirstore.PersonFilter{})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "list people")
	}

	codeByNamahatta, err := e.namahattaCodes(ctx)
	if err != nil {
		return nil, err
	}

	var candidates []Candidate
	for _, person := range people {
		if person.ID == vacatingID {
			continue
		}
		// Current holders at any level are not candidates; this also rules
		// out everyone above or below the vacating seat.
		if occupied[person.ID] {
			continue
		}
		if !matchesScope(person, holder, codeByNamahatta) {
			continue
		}
		candidates = append(candidates, Candidate{
			Person:   person,
			Strength: strength(person, vacating),
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Strength != candidates[j].Strength {
			return candidates[i].Strength > candidates[j].Strength
		}
		if candidates[i].Person.DisplayName != candidates[j].Person.DisplayName {
			return candidates[i].Person.DisplayName < candidates[j].Person.DisplayName
		}
		return candidates[i].Person.ID.String() < candidates[j].Person.ID.String()
	})
	return candidates, nil
}

// CheckCandidate verifies that a specific person may take the given seat.
// The succession engine re-runs this inside its commit section.
//
// Errors: CodeNotEligible with the failing condition in the message.
func (e *Evaluator) CheckCandidate(ctx context.Context, candidateID domain.PersonID, seat *hiermodels.Holder) error {
	person, err := e.directory.PersonByID(ctx, candidateID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotEligible, "candidate has no directory profile")
		}
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "load candidate")
	}

	if _, err := e.hierarchy.HolderOf(ctx, candidateID); err == nil {
		return dErrors.New(dErrors.CodeNotEligible, "candidate already holds a leadership seat")
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "load candidate seat")
	}

	codeByNamahatta, err := e.namahattaCodes(ctx)
	if err != nil {
		return err
	}
	if !matchesScope(person, seat, codeByNamahatta) {
		return dErrors.New(dErrors.CodeNotEligible, "candidate is outside the seat's scope")
	}
	return nil
}

func (e *Evaluator) occupiedSeats(ctx context.Context) (map[domain.PersonID]bool, error) {
	holders, err := e.hierarchy.Snapshot(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "load hierarchy snapshot")
	}
	occupied := make(map[domain.PersonID]bool, len(holders))
	for _, h := range holders {
		occupied[h.PersonID] = true
	}
	return occupied, nil
}

func (e *Evaluator) namahattaCodes(ctx context.Context) (map[domain.NamahattaID]string, error) {
	namahattas, err := e.directory.ListNamahattas(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "list namahattas")
	}
	codes := make(map[domain.NamahattaID]string, len(namahattas))
	for _, n := range namahattas {
		codes[n.ID] = n.Code
	}
	return codes, nil
}

func matchesScope(person *dirmodels.Person, seat *hiermodels.Holder, codeByNamahatta map[domain.NamahattaID]string) bool {
	switch seat.Role.Scope() {
	case domain.ScopeState:
		return person.State == seat.ScopeValue
	case domain.ScopeDistrict:
		return person.District == seat.ScopeValue
	case domain.ScopeNamahatta:
		return person.NamahattaID != nil && codeByNamahatta[*person.NamahattaID] == seat.ScopeValue
	default:
		return false
	}
}

func strength(candidate, vacating *dirmodels.Person) int {
	if candidate.NamahattaID != nil && vacating.NamahattaID != nil && *candidate.NamahattaID == *vacating.NamahattaID {
		return 2
	}
	if candidate.District == vacating.District {
		return 1
	}
	return 0
}
