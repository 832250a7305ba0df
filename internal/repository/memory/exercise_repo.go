package memory

import (
	"alcyxob/training-planner/internal/domain"
	"alcyxob/training-planner/internal/repository"
	"context"
	"sort"
)

func slotKey(templateID, microcycleID string) string {
	return templateID + "|" + microcycleID
}

func overrideKey(templateID, microcycleID string, field domain.Field) string {
	return templateID + "|" + microcycleID + "|" + string(field)
}

type templateRepo struct{ t *tx }

func (r templateRepo) Create(_ context.Context, e *domain.ExerciseTemplate) error {
	e.ID = newID(e.ID)
	if _, ok := r.t.state.templates[e.ID]; ok {
		return repository.ErrDuplicateKey
	}
	e.CreatedAt = r.t.now
	e.UpdatedAt = r.t.now
	r.t.state.templates[e.ID] = cloneTemplate(*e)
	return nil
}

func (r templateRepo) GetByID(_ context.Context, id string) (*domain.ExerciseTemplate, error) {
	e, ok := r.t.state.templates[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := cloneTemplate(e)
	return &c, nil
}

// GetForUpdate needs no extra locking: writers already hold the store lock.
func (r templateRepo) GetForUpdate(ctx context.Context, id string) (*domain.ExerciseTemplate, error) {
	return r.GetByID(ctx, id)
}

func (r templateRepo) ListByMesocycle(_ context.Context, mesocycleID string) ([]domain.ExerciseTemplate, error) {
	out := []domain.ExerciseTemplate{}
	for _, e := range r.t.state.templates {
		if e.MesocycleID == mesocycleID {
			out = append(out, cloneTemplate(e))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DayNumber != out[j].DayNumber {
			return out[i].DayNumber < out[j].DayNumber
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r templateRepo) Update(_ context.Context, e *domain.ExerciseTemplate) error {
	existing, ok := r.t.state.templates[e.ID]
	if !ok {
		return repository.ErrNotFound
	}
	e.CreatedAt = existing.CreatedAt
	e.UpdatedAt = r.t.now
	r.t.state.templates[e.ID] = cloneTemplate(*e)
	return nil
}

type slotRepo struct{ t *tx }

func (r slotRepo) Create(_ context.Context, s *domain.ExerciseSlot) error {
	key := slotKey(s.ExerciseTemplateID, s.MicrocycleID)
	if _, ok := r.t.state.slots[key]; ok {
		return repository.ErrDuplicateKey
	}
	s.ID = newID(s.ID)
	s.CreatedAt = r.t.now
	r.t.state.slots[key] = *s
	return nil
}

func (r slotRepo) Get(_ context.Context, templateID, microcycleID string) (*domain.ExerciseSlot, error) {
	s, ok := r.t.state.slots[slotKey(templateID, microcycleID)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &s, nil
}

func (r slotRepo) ListByMicrocycle(_ context.Context, microcycleID string) ([]domain.ExerciseSlot, error) {
	out := []domain.ExerciseSlot{}
	for _, s := range r.t.state.slots {
		if s.MicrocycleID == microcycleID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r slotRepo) ListByTemplate(_ context.Context, templateID string) ([]domain.ExerciseSlot, error) {
	out := []domain.ExerciseSlot{}
	for _, s := range r.t.state.slots {
		if s.ExerciseTemplateID == templateID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r slotRepo) Delete(_ context.Context, templateID, microcycleID string) error {
	delete(r.t.state.slots, slotKey(templateID, microcycleID))
	return nil
}

type overrideRepo struct{ t *tx }

func (r overrideRepo) Upsert(_ context.Context, o *domain.ExerciseOverride) error {
	key := overrideKey(o.ExerciseTemplateID, o.MicrocycleID, o.Field)
	if existing, ok := r.t.state.overrides[key]; ok {
		o.ID = existing.ID
	} else {
		o.ID = newID(o.ID)
	}
	o.UpdatedAt = r.t.now
	r.t.state.overrides[key] = *o
	return nil
}

func (r overrideRepo) Get(_ context.Context, templateID, microcycleID string, field domain.Field) (*domain.ExerciseOverride, error) {
	o, ok := r.t.state.overrides[overrideKey(templateID, microcycleID, field)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &o, nil
}

func (r overrideRepo) ListByMicrocycle(_ context.Context, microcycleID string) ([]domain.ExerciseOverride, error) {
	out := []domain.ExerciseOverride{}
	for _, o := range r.t.state.overrides {
		if o.MicrocycleID == microcycleID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r overrideRepo) ListAll(_ context.Context) ([]domain.ExerciseOverride, error) {
	out := make([]domain.ExerciseOverride, 0, len(r.t.state.overrides))
	for _, o := range r.t.state.overrides {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r overrideRepo) Delete(_ context.Context, templateID, microcycleID string, field domain.Field) error {
	delete(r.t.state.overrides, overrideKey(templateID, microcycleID, field))
	return nil
}

func (r overrideRepo) DeleteByIDs(_ context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	wanted := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}
	for key, o := range r.t.state.overrides {
		if _, ok := wanted[o.ID]; ok {
			delete(r.t.state.overrides, key)
		}
	}
	return nil
}
