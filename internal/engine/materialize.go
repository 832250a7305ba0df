package engine

import (
	"alcyxob/training-planner/internal/domain"
	"alcyxob/training-planner/internal/repository"
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
)

// AppendResult is a microcycle added at the end of a mesocycle.
type AppendResult struct {
	Microcycle   domain.Microcycle `json:"microcycle"`
	Days         []domain.Day      `json:"days"`
	Materialized []string          `json:"materialized"` // exercise ids
}

// AppendMicrocycle adds the next microcycle of a mesocycle. It copies the
// day layout of the previous microcycle (dates shifted by a week) and
// materializes every template that is live at the new order, with the sets
// of its most recent materialization minus tombstoned positions. Sets start
// from their carried values; this-only set edits stay behind.
func (e *Engine) AppendMicrocycle(ctx context.Context, mesocycleID, name string) (result *AppendResult, err error) {
	ctx, span := e.startSpan(ctx, "engine.AppendMicrocycle", attribute.String("mesocycle", mesocycleID))
	defer func() { endSpan(span, err) }()

	unlock := e.locks.Lock(mesocycleKey(mesocycleID))
	defer unlock()

	err = e.store.RunInTransaction(ctx, func(ctx context.Context, tx repository.Tx) error {
		var txErr error
		result, txErr = appendMicrocycle(ctx, tx, mesocycleID, name)
		return txErr
	})
	if err != nil {
		err = classify("append microcycle", err)
		e.log.Warn("Append microcycle failed", "mesocycle", mesocycleID, "error", err)
		return nil, err
	}
	e.log.Info("Microcycle appended", "mesocycle", mesocycleID, "microcycle", result.Microcycle.ID,
		"order", result.Microcycle.Order, "materialized", len(result.Materialized))
	return result, nil
}

func appendMicrocycle(ctx context.Context, tx repository.Tx, mesocycleID, name string) (*AppendResult, error) {
	h, ts := NewPlanHierarchy(tx), NewTemplateStore(tx)
	if err := tx.Plans().LockMesocycle(ctx, mesocycleID); err != nil {
		return nil, classify("lock mesocycle", err)
	}
	existing, err := h.OrderedMicrocycles(ctx, mesocycleID)
	if err != nil {
		return nil, err
	}
	order := 1
	var prev *domain.Microcycle
	if n := len(existing); n > 0 {
		prev = &existing[n-1]
		order = prev.Order + 1
	}
	if name == "" {
		name = fmt.Sprintf("Week %d", order)
	}
	m := &domain.Microcycle{MesocycleID: mesocycleID, Name: name, Order: order}
	if err := tx.Plans().CreateMicrocycle(ctx, m); err != nil {
		return nil, classify("create microcycle", err)
	}
	res := &AppendResult{Microcycle: *m, Days: []domain.Day{}, Materialized: []string{}}
	if prev == nil {
		return res, nil
	}

	prevDays, err := tx.Plans().ListDays(ctx, prev.ID)
	if err != nil {
		return nil, classify("list days", err)
	}
	dayByNumber := make(map[int]domain.Day, len(prevDays))
	for _, pd := range prevDays {
		d := &domain.Day{MicrocycleID: m.ID, DayNumber: pd.DayNumber, IsRestDay: pd.IsRestDay}
		if pd.Date != nil {
			next := pd.Date.AddDate(0, 0, 7)
			d.Date = &next
		}
		if err := tx.Plans().CreateDay(ctx, d); err != nil {
			return nil, classify("create day", err)
		}
		dayByNumber[d.DayNumber] = *d
		res.Days = append(res.Days, *d)
	}

	templates, err := tx.Templates().ListByMesocycle(ctx, mesocycleID)
	if err != nil {
		return nil, classify("list exercise templates", err)
	}
	for _, t := range templates {
		if !t.LiveAt(order) {
			continue
		}
		day, ok := dayByNumber[t.DayNumber]
		if !ok || day.IsRestDay {
			continue
		}
		tmpl, err := ts.lockTemplate(ctx, t.ID)
		if errors.Is(err, ErrNotFound) {
			// Deleted since it was listed.
			continue
		}
		if err != nil {
			return nil, err
		}
		source, srcSlot, err := latestMaterialization(ctx, ts, tmpl.ID, existing)
		if err != nil {
			return nil, err
		}
		if source == nil {
			continue
		}
		if _, _, err := ts.materializeAt(ctx, tmpl, day, srcSlot.Position); err != nil {
			return nil, err
		}
		sets, err := ts.Sets(ctx, tmpl.ID, source.ID)
		if err != nil {
			return nil, err
		}
		for _, s := range sets {
			if tmpl.SetPositionRetired(s.Position, order) {
				continue
			}
			if _, err := ts.createSetAt(ctx, tmpl.ID, m.ID, s.Position, s.CarriedSpec()); err != nil {
				return nil, err
			}
		}
		res.Materialized = append(res.Materialized, tmpl.ID)
	}
	return res, nil
}

// latestMaterialization finds the last microcycle (by order) holding the
// template, or nil when it was never materialized.
func latestMaterialization(ctx context.Context, ts TemplateStore, templateID string, ordered []domain.Microcycle) (*domain.Microcycle, *domain.ExerciseSlot, error) {
	for i := len(ordered) - 1; i >= 0; i-- {
		slot, err := ts.Slot(ctx, templateID, ordered[i].ID)
		if err != nil {
			return nil, nil, err
		}
		if slot != nil {
			return &ordered[i], slot, nil
		}
	}
	return nil, nil, nil
}
