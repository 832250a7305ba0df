package memory

import (
	"alcyxob/training-planner/internal/domain"
	"alcyxob/training-planner/internal/repository"
	"context"
	"sort"
)

type planRepo struct{ t *tx }

func (r planRepo) CreateMacrocycle(_ context.Context, m *domain.Macrocycle) error {
	m.ID = newID(m.ID)
	if _, ok := r.t.state.macrocycles[m.ID]; ok {
		return repository.ErrDuplicateKey
	}
	m.CreatedAt = r.t.now
	m.UpdatedAt = r.t.now
	r.t.state.macrocycles[m.ID] = *m
	return nil
}

func (r planRepo) GetMacrocycle(_ context.Context, id string) (*domain.Macrocycle, error) {
	m, ok := r.t.state.macrocycles[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &m, nil
}

func (r planRepo) ListMacrocyclesByStudent(_ context.Context, studentID string) ([]domain.Macrocycle, error) {
	out := []domain.Macrocycle{}
	for _, m := range r.t.state.macrocycles {
		if m.StudentID == studentID {
			out = append(out, m)
		}
	}
	// Newest first, like the plan listing elsewhere
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r planRepo) CreateMesocycle(_ context.Context, m *domain.Mesocycle) error {
	m.ID = newID(m.ID)
	for _, existing := range r.t.state.mesocycles {
		if existing.ID == m.ID || (existing.MacrocycleID == m.MacrocycleID && existing.Order == m.Order) {
			return repository.ErrDuplicateKey
		}
	}
	m.CreatedAt = r.t.now
	r.t.state.mesocycles[m.ID] = *m
	return nil
}

func (r planRepo) GetMesocycle(_ context.Context, id string) (*domain.Mesocycle, error) {
	m, ok := r.t.state.mesocycles[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &m, nil
}

// LockMesocycle only checks existence: writers already hold the store lock.
func (r planRepo) LockMesocycle(_ context.Context, id string) error {
	if _, ok := r.t.state.mesocycles[id]; !ok {
		return repository.ErrNotFound
	}
	return nil
}

func (r planRepo) ListMesocycles(_ context.Context, macrocycleID string) ([]domain.Mesocycle, error) {
	out := []domain.Mesocycle{}
	for _, m := range r.t.state.mesocycles {
		if m.MacrocycleID == macrocycleID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}

func (r planRepo) CreateMicrocycle(_ context.Context, m *domain.Microcycle) error {
	m.ID = newID(m.ID)
	for _, existing := range r.t.state.microcycles {
		if existing.ID == m.ID || (existing.MesocycleID == m.MesocycleID && existing.Order == m.Order) {
			return repository.ErrDuplicateKey
		}
	}
	m.CreatedAt = r.t.now
	r.t.state.microcycles[m.ID] = *m
	return nil
}

func (r planRepo) GetMicrocycle(_ context.Context, id string) (*domain.Microcycle, error) {
	m, ok := r.t.state.microcycles[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &m, nil
}

func (r planRepo) ListMicrocycles(_ context.Context, mesocycleID string) ([]domain.Microcycle, error) {
	out := []domain.Microcycle{}
	for _, m := range r.t.state.microcycles {
		if m.MesocycleID == mesocycleID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}

func (r planRepo) CreateDay(_ context.Context, d *domain.Day) error {
	d.ID = newID(d.ID)
	for _, existing := range r.t.state.days {
		if existing.ID == d.ID || (existing.MicrocycleID == d.MicrocycleID && existing.DayNumber == d.DayNumber) {
			return repository.ErrDuplicateKey
		}
	}
	r.t.state.days[d.ID] = cloneDay(*d)
	return nil
}

func (r planRepo) ListDays(_ context.Context, microcycleID string) ([]domain.Day, error) {
	out := []domain.Day{}
	for _, d := range r.t.state.days {
		if d.MicrocycleID == microcycleID {
			out = append(out, cloneDay(d))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DayNumber < out[j].DayNumber })
	return out, nil
}
