package engine

import (
	"alcyxob/training-planner/internal/domain"
	"alcyxob/training-planner/internal/repository"
	"context"

	"go.opentelemetry.io/otel/attribute"
)

// DeleteEdit removes an exercise or a set from the origin microcycle, and
// with from-here-forward from every later one too. A forward delete leaves a
// tombstone so microcycles appended later do not bring the target back.
// Rows before the origin are never touched.
func (e *Engine) DeleteEdit(ctx context.Context, cmd DeleteCommand) (result *DeleteResult, err error) {
	ctx, span := e.startSpan(ctx, "engine.DeleteEdit",
		attribute.String("scope", string(cmd.Scope)),
		attribute.String("origin", cmd.OriginMicrocycleID))
	defer func() { endSpan(span, err) }()

	if cmd.Scope != domain.ScopeThisOnly && cmd.Scope != domain.ScopeFromHereForward {
		return nil, invalidScope("%q cannot be used to delete", cmd.Scope)
	}
	if cmd.OriginMicrocycleID == "" {
		return nil, notFound("origin microcycle is empty")
	}
	exerciseID, err := e.targetExercise(ctx, cmd.Target)
	if err != nil {
		return nil, err
	}
	unlock := e.locks.Lock(exerciseID)
	defer unlock()

	err = e.store.RunInTransaction(ctx, func(ctx context.Context, tx repository.Tx) error {
		var txErr error
		switch t := cmd.Target.(type) {
		case ExerciseRef:
			result, txErr = deleteExercise(ctx, tx, exerciseID, cmd.Scope, cmd.OriginMicrocycleID)
		case SetRef:
			result, txErr = deleteSet(ctx, tx, t, exerciseID, cmd.Scope, cmd.OriginMicrocycleID)
		}
		return txErr
	})
	if err != nil {
		err = classify("delete", err)
		e.log.Warn("Delete rejected", "exercise", exerciseID, "scope", cmd.Scope, "error", err)
		return nil, err
	}
	e.log.Info("Delete applied", "exercise", exerciseID, "position", result.Position, "scope", cmd.Scope,
		"removed", len(result.Removed), "templateDeleted", result.TemplateDeleted)
	return result, nil
}

func deleteExercise(ctx context.Context, tx repository.Tx, exerciseID string, scope domain.Scope, originID string) (*DeleteResult, error) {
	h, ts := NewPlanHierarchy(tx), NewTemplateStore(tx)
	origin, tmpl, err := resolveExercise(ctx, h, ts, exerciseID, originID)
	if err != nil {
		return nil, err
	}
	targets := []domain.Microcycle{*origin}
	if scope.Forward() {
		if targets, err = materializedFrom(ctx, h, ts, tmpl.ID, *origin); err != nil {
			return nil, err
		}
	}

	res := &DeleteResult{Scope: scope, ExerciseID: exerciseID, Removed: []RemovedRow{}}
	for _, m := range targets {
		ids, err := ts.Dematerialize(ctx, tmpl.ID, m.ID)
		if err != nil {
			return nil, err
		}
		res.Removed = append(res.Removed, RemovedRow{MicrocycleID: m.ID, Order: m.Order, SetIDs: ids, Slot: true})
	}
	if !scope.Forward() {
		return res, nil
	}

	res.Tombstoned = true
	if origin.Order <= tmpl.OriginOrder {
		// Nothing of the template remains anywhere.
		if err := ts.DeleteTemplate(ctx, tmpl.ID); err != nil {
			return nil, err
		}
		res.TemplateDeleted = true
		return res, nil
	}
	tmpl.Retire(origin.Order)
	if err := ts.save(ctx, tmpl); err != nil {
		return nil, err
	}
	return res, nil
}

func deleteSet(ctx context.Context, tx repository.Tx, ref SetRef, exerciseID string, scope domain.Scope, originID string) (*DeleteResult, error) {
	h, ts := NewPlanHierarchy(tx), NewTemplateStore(tx)
	origin, tmpl, err := resolveExercise(ctx, h, ts, exerciseID, originID)
	if err != nil {
		return nil, err
	}
	position, err := setPosition(ctx, tx, ref, tmpl.ID, origin.ID)
	if err != nil {
		return nil, err
	}
	atOrigin, err := setAt(ctx, ts, tmpl.ID, origin.ID, position)
	if err != nil {
		return nil, err
	}
	if atOrigin == nil {
		return nil, notFound("set %d of exercise %s in microcycle %s", position, exerciseID, origin.ID)
	}

	targets := []domain.Microcycle{*origin}
	if scope.Forward() {
		if targets, err = materializedFrom(ctx, h, ts, tmpl.ID, *origin); err != nil {
			return nil, err
		}
	}

	res := &DeleteResult{Scope: scope, ExerciseID: exerciseID, Position: position, Removed: []RemovedRow{}}
	for _, m := range targets {
		si, err := setAt(ctx, ts, tmpl.ID, m.ID, position)
		if err != nil {
			return nil, err
		}
		if si == nil {
			continue
		}
		if err := tx.Sets().DeleteByIDs(ctx, []string{si.ID}); err != nil {
			return nil, classify("delete set", err)
		}
		res.Removed = append(res.Removed, RemovedRow{MicrocycleID: m.ID, Order: m.Order, SetIDs: []string{si.ID}})
	}
	if scope.Forward() {
		res.Tombstoned = true
		if tmpl.RetireSetPosition(position, origin.Order) {
			if err := ts.save(ctx, tmpl); err != nil {
				return nil, err
			}
		}
	}
	return res, nil
}

func setAt(ctx context.Context, ts TemplateStore, templateID, microcycleID string, position int) (*domain.SetInstance, error) {
	sets, err := ts.Sets(ctx, templateID, microcycleID)
	if err != nil {
		return nil, err
	}
	for i := range sets {
		if sets[i].Position == position {
			return &sets[i], nil
		}
	}
	return nil, nil
}
