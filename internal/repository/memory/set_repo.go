package memory

import (
	"alcyxob/training-planner/internal/domain"
	"alcyxob/training-planner/internal/repository"
	"context"
	"sort"
)

type setRepo struct{ t *tx }

func (r setRepo) Create(_ context.Context, sets []*domain.SetInstance) error {
	for _, s := range sets {
		for _, existing := range r.t.state.sets {
			if existing.ExerciseTemplateID == s.ExerciseTemplateID &&
				existing.MicrocycleID == s.MicrocycleID &&
				existing.Position == s.Position {
				return repository.ErrDuplicateKey
			}
		}
		s.ID = newID(s.ID)
		if s.Status == "" {
			s.Status = domain.SetPending
		}
		s.CreatedAt = r.t.now
		s.UpdatedAt = r.t.now
		r.t.state.sets[s.ID] = cloneSet(*s)
	}
	return nil
}

func (r setRepo) GetByID(_ context.Context, id string) (*domain.SetInstance, error) {
	s, ok := r.t.state.sets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := cloneSet(s)
	return &c, nil
}

func (r setRepo) ListByTemplateAndMicrocycle(_ context.Context, templateID, microcycleID string) ([]domain.SetInstance, error) {
	out := []domain.SetInstance{}
	for _, s := range r.t.state.sets {
		if s.ExerciseTemplateID == templateID && s.MicrocycleID == microcycleID {
			out = append(out, cloneSet(s))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (r setRepo) ListByMicrocycle(_ context.Context, microcycleID string) ([]domain.SetInstance, error) {
	out := []domain.SetInstance{}
	for _, s := range r.t.state.sets {
		if s.MicrocycleID == microcycleID {
			out = append(out, cloneSet(s))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ExerciseTemplateID != out[j].ExerciseTemplateID {
			return out[i].ExerciseTemplateID < out[j].ExerciseTemplateID
		}
		return out[i].Position < out[j].Position
	})
	return out, nil
}

func (r setRepo) Update(_ context.Context, s *domain.SetInstance) error {
	existing, ok := r.t.state.sets[s.ID]
	if !ok {
		return repository.ErrNotFound
	}
	s.CreatedAt = existing.CreatedAt
	s.UpdatedAt = r.t.now
	r.t.state.sets[s.ID] = cloneSet(*s)
	return nil
}

func (r setRepo) DeleteByIDs(_ context.Context, ids []string) error {
	for _, id := range ids {
		delete(r.t.state.sets, id)
	}
	return nil
}
