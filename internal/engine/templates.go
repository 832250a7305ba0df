package engine

import (
	"alcyxob/training-planner/internal/domain"
	"alcyxob/training-planner/internal/repository"
	"context"
	"errors"
	"time"
)

// TemplateStore owns the canonical ExerciseTemplate rows and the rows that
// materialize them in microcycles: slots and set instances.
type TemplateStore struct {
	tx  repository.Tx
	now func() time.Time
}

// NewTemplateStore binds a template store to a transaction.
func NewTemplateStore(tx repository.Tx) TemplateStore {
	return TemplateStore{tx: tx, now: func() time.Time { return time.Now().UTC() }}
}

// GetExerciseTemplate returns a live (not soft deleted) template.
func (s TemplateStore) GetExerciseTemplate(ctx context.Context, id string) (*domain.ExerciseTemplate, error) {
	t, err := s.tx.Templates().GetByID(ctx, id)
	if err != nil {
		return nil, classify("get exercise template", err)
	}
	if t.IsDeleted() {
		return nil, notFound("exercise %s", id)
	}
	return t, nil
}

// lockTemplate reads a live template with the backend's row lock held.
func (s TemplateStore) lockTemplate(ctx context.Context, id string) (*domain.ExerciseTemplate, error) {
	t, err := s.tx.Templates().GetForUpdate(ctx, id)
	if err != nil {
		return nil, classify("lock exercise template", err)
	}
	if t.IsDeleted() {
		return nil, notFound("exercise %s", id)
	}
	return t, nil
}

// UpdateTemplateField makes value the template value of field for from and
// every later microcycle. Earlier microcycles keep reading the old value.
func (s TemplateStore) UpdateTemplateField(ctx context.Context, id string, field domain.Field, value string, from domain.Microcycle) (bool, error) {
	if field.Level() != domain.LevelExercise {
		return false, ErrInvalidField
	}
	t, err := s.GetExerciseTemplate(ctx, id)
	if err != nil {
		return false, err
	}
	if from.MesocycleID != t.MesocycleID || from.Order < t.OriginOrder {
		return false, notFound("exercise %s in microcycle %s", id, from.ID)
	}
	if !t.Revise(field, value, from.Order) {
		return false, nil
	}
	if err := s.tx.Templates().Update(ctx, t); err != nil {
		return false, classify("update exercise template", err)
	}
	return true, nil
}

// save persists in-memory changes to a template, such as a retirement.
func (s TemplateStore) save(ctx context.Context, t *domain.ExerciseTemplate) error {
	return classify("update exercise template", s.tx.Templates().Update(ctx, t))
}

// DeleteTemplate soft deletes a template. Deleting twice is a no-op.
func (s TemplateStore) DeleteTemplate(ctx context.Context, id string) error {
	t, err := s.tx.Templates().GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return classify("get exercise template", err)
	}
	if t.IsDeleted() {
		return nil
	}
	now := s.now()
	t.DeletedAt = &now
	return s.save(ctx, t)
}

// CreateSetInstances appends sets after the highest existing position.
func (s TemplateStore) CreateSetInstances(ctx context.Context, templateID, microcycleID string, specs []domain.SetSpec) ([]domain.SetInstance, error) {
	if len(specs) == 0 {
		return []domain.SetInstance{}, nil
	}
	existing, err := s.Sets(ctx, templateID, microcycleID)
	if err != nil {
		return nil, err
	}
	next := 1
	if n := len(existing); n > 0 {
		next = existing[n-1].Position + 1
	}
	rows := make([]*domain.SetInstance, 0, len(specs))
	for i, spec := range specs {
		si := domain.NewSetInstance(templateID, microcycleID, next+i, spec)
		rows = append(rows, &si)
	}
	if err := s.tx.Sets().Create(ctx, rows); err != nil {
		return nil, classify("create sets", err)
	}
	out := make([]domain.SetInstance, len(rows))
	for i, r := range rows {
		out[i] = *r
	}
	return out, nil
}

// createSetAt creates one set at a fixed position.
func (s TemplateStore) createSetAt(ctx context.Context, templateID, microcycleID string, position int, spec domain.SetSpec) (*domain.SetInstance, error) {
	si := domain.NewSetInstance(templateID, microcycleID, position, spec)
	if err := s.tx.Sets().Create(ctx, []*domain.SetInstance{&si}); err != nil {
		return nil, classify("create set", err)
	}
	return &si, nil
}

// Sets lists the sets of a template in one microcycle by position.
func (s TemplateStore) Sets(ctx context.Context, templateID, microcycleID string) ([]domain.SetInstance, error) {
	list, err := s.tx.Sets().ListByTemplateAndMicrocycle(ctx, templateID, microcycleID)
	if err != nil {
		return nil, classify("list sets", err)
	}
	return list, nil
}

// Slot returns the slot of a template in a microcycle, or nil if the
// exercise is not materialized there.
func (s TemplateStore) Slot(ctx context.Context, templateID, microcycleID string) (*domain.ExerciseSlot, error) {
	slot, err := s.tx.Slots().Get(ctx, templateID, microcycleID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, classify("get slot", err)
	}
	return slot, nil
}

// Materialize places a template in a day of a microcycle, after the
// exercises already there. An existing slot is returned unchanged.
func (s TemplateStore) Materialize(ctx context.Context, t *domain.ExerciseTemplate, day domain.Day) (*domain.ExerciseSlot, bool, error) {
	if slot, err := s.Slot(ctx, t.ID, day.MicrocycleID); err != nil || slot != nil {
		return slot, false, err
	}
	slots, err := s.tx.Slots().ListByMicrocycle(ctx, day.MicrocycleID)
	if err != nil {
		return nil, false, classify("list slots", err)
	}
	position := 1
	for _, sl := range slots {
		if sl.DayID == day.ID && sl.Position >= position {
			position = sl.Position + 1
		}
	}
	return s.materializeAt(ctx, t, day, position)
}

func (s TemplateStore) materializeAt(ctx context.Context, t *domain.ExerciseTemplate, day domain.Day, position int) (*domain.ExerciseSlot, bool, error) {
	slot := &domain.ExerciseSlot{
		ExerciseTemplateID: t.ID,
		MicrocycleID:       day.MicrocycleID,
		DayID:              day.ID,
		Position:           position,
	}
	if err := s.tx.Slots().Create(ctx, slot); err != nil {
		return nil, false, classify("create slot", err)
	}
	return slot, true, nil
}

// Dematerialize removes a template and its sets from one microcycle and
// returns the removed set ids. Overrides are left for garbage collection.
func (s TemplateStore) Dematerialize(ctx context.Context, templateID, microcycleID string) ([]string, error) {
	sets, err := s.Sets(ctx, templateID, microcycleID)
	if err != nil {
		return nil, err
	}
	ids := setIDs(sets)
	if err := s.tx.Sets().DeleteByIDs(ctx, ids); err != nil {
		return nil, classify("delete sets", err)
	}
	if err := s.tx.Slots().Delete(ctx, templateID, microcycleID); err != nil {
		return nil, classify("delete slot", err)
	}
	return ids, nil
}

func setIDs(sets []domain.SetInstance) []string {
	ids := make([]string, 0, len(sets))
	for _, s := range sets {
		ids = append(ids, s.ID)
	}
	return ids
}
