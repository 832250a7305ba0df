package engine

import (
	"alcyxob/training-planner/internal/domain"
	"alcyxob/training-planner/internal/repository"
	"context"
	"errors"
)

// OverrideStore holds single-microcycle, single-field overrides. An override
// never spans a range.
type OverrideStore struct {
	repo repository.OverrideRepository
}

// NewOverrideStore binds an override store to a transaction.
func NewOverrideStore(tx repository.Tx) OverrideStore {
	return OverrideStore{repo: tx.Overrides()}
}

// SetOverride upserts the override of field for one template in one microcycle.
func (s OverrideStore) SetOverride(ctx context.Context, templateID, microcycleID string, field domain.Field, value string) error {
	if field.Level() != domain.LevelExercise {
		return ErrInvalidField
	}
	existing, err := s.repo.Get(ctx, templateID, microcycleID, field)
	switch {
	case err == nil && existing.Value == value:
		return nil
	case err != nil && !errors.Is(err, repository.ErrNotFound):
		return classify("get override", err)
	}
	o := &domain.ExerciseOverride{
		ExerciseTemplateID: templateID,
		MicrocycleID:       microcycleID,
		Field:              field,
		Value:              value,
	}
	return classify("upsert override", s.repo.Upsert(ctx, o))
}

// GetOverride returns the override value and whether one exists.
func (s OverrideStore) GetOverride(ctx context.Context, templateID, microcycleID string, field domain.Field) (string, bool, error) {
	o, err := s.repo.Get(ctx, templateID, microcycleID, field)
	if errors.Is(err, repository.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, classify("get override", err)
	}
	return o.Value, true, nil
}

// ClearOverride removes an override. Clearing a missing one is not an error.
func (s OverrideStore) ClearOverride(ctx context.Context, templateID, microcycleID string, field domain.Field) error {
	return classify("delete override", s.repo.Delete(ctx, templateID, microcycleID, field))
}

// forMicrocycle indexes the overrides of one microcycle by template and field.
func (s OverrideStore) forMicrocycle(ctx context.Context, microcycleID string) (map[string]map[domain.Field]string, error) {
	list, err := s.repo.ListByMicrocycle(ctx, microcycleID)
	if err != nil {
		return nil, classify("list overrides", err)
	}
	out := make(map[string]map[domain.Field]string)
	for _, o := range list {
		if out[o.ExerciseTemplateID] == nil {
			out[o.ExerciseTemplateID] = make(map[domain.Field]string)
		}
		out[o.ExerciseTemplateID][o.Field] = o.Value
	}
	return out, nil
}
