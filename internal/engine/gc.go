package engine

import (
	"alcyxob/training-planner/internal/repository"
	"context"
	"errors"
)

// CollectOrphanedOverrides deletes overrides that no read can reach any
// more: their template is gone or soft deleted, or the exercise is no longer
// materialized in the override's microcycle. Returns how many were removed.
func (e *Engine) CollectOrphanedOverrides(ctx context.Context) (removed int, err error) {
	ctx, span := e.startSpan(ctx, "engine.CollectOrphanedOverrides")
	defer func() { endSpan(span, err) }()

	err = e.store.RunInTransaction(ctx, func(ctx context.Context, tx repository.Tx) error {
		removed = 0
		overrides, err := tx.Overrides().ListAll(ctx)
		if err != nil {
			return classify("list overrides", err)
		}
		live := make(map[string]bool)
		var orphans []string
		for _, o := range overrides {
			ok, seen := live[o.ExerciseTemplateID]
			if !seen {
				t, err := tx.Templates().GetByID(ctx, o.ExerciseTemplateID)
				switch {
				case errors.Is(err, repository.ErrNotFound):
					ok = false
				case err != nil:
					return classify("get exercise template", err)
				default:
					ok = !t.IsDeleted()
				}
				live[o.ExerciseTemplateID] = ok
			}
			if ok {
				_, err := tx.Slots().Get(ctx, o.ExerciseTemplateID, o.MicrocycleID)
				switch {
				case errors.Is(err, repository.ErrNotFound):
					ok = false
				case err != nil:
					return classify("get slot", err)
				}
			}
			if !ok {
				orphans = append(orphans, o.ID)
			}
		}
		if err := tx.Overrides().DeleteByIDs(ctx, orphans); err != nil {
			return classify("delete overrides", err)
		}
		removed = len(orphans)
		return nil
	})
	if err != nil {
		return 0, classify("collect overrides", err)
	}
	e.log.Info("Orphaned overrides collected", "removed", removed)
	return removed, nil
}
