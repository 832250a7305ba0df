package engine

import (
	"alcyxob/training-planner/internal/domain"
	"alcyxob/training-planner/internal/repository"
	"context"
)

// RangeMode selects how far MicrocyclesFrom reaches.
type RangeMode int

const (
	// AllForward is the start microcycle and every later one in its mesocycle.
	AllForward RangeMode = iota + 1
	// NextOnly is the single microcycle after the start, if any.
	NextOnly
)

// PlanHierarchy is a read-only view of microcycle ordering. Propagation never
// crosses a mesocycle boundary.
type PlanHierarchy struct {
	plans repository.PlanRepository
}

// NewPlanHierarchy binds a hierarchy reader to a transaction.
func NewPlanHierarchy(tx repository.Tx) PlanHierarchy {
	return PlanHierarchy{plans: tx.Plans()}
}

// Microcycle loads one microcycle.
func (h PlanHierarchy) Microcycle(ctx context.Context, id string) (*domain.Microcycle, error) {
	m, err := h.plans.GetMicrocycle(ctx, id)
	if err != nil {
		return nil, classify("get microcycle", err)
	}
	return m, nil
}

// OrderedMicrocycles returns the microcycles of a mesocycle by ascending order.
func (h PlanHierarchy) OrderedMicrocycles(ctx context.Context, mesocycleID string) ([]domain.Microcycle, error) {
	if _, err := h.plans.GetMesocycle(ctx, mesocycleID); err != nil {
		return nil, classify("get mesocycle", err)
	}
	list, err := h.plans.ListMicrocycles(ctx, mesocycleID)
	if err != nil {
		return nil, classify("list microcycles", err)
	}
	return list, nil
}

// MicrocyclesFrom returns the microcycles reached from startID. AllForward is
// inclusive of the start; NextOnly excludes it and is empty at the last one.
func (h PlanHierarchy) MicrocyclesFrom(ctx context.Context, startID string, mode RangeMode) ([]domain.Microcycle, error) {
	start, err := h.Microcycle(ctx, startID)
	if err != nil {
		return nil, err
	}
	list, err := h.plans.ListMicrocycles(ctx, start.MesocycleID)
	if err != nil {
		return nil, classify("list microcycles", err)
	}
	return microcyclesFrom(list, *start, mode), nil
}

func microcyclesFrom(ordered []domain.Microcycle, start domain.Microcycle, mode RangeMode) []domain.Microcycle {
	out := []domain.Microcycle{}
	for _, m := range ordered {
		switch mode {
		case AllForward:
			if m.Order >= start.Order {
				out = append(out, m)
			}
		case NextOnly:
			if m.Order > start.Order {
				return append(out, m)
			}
		}
	}
	return out
}

// DayByNumber finds the day with dayNumber in a microcycle.
func (h PlanHierarchy) DayByNumber(ctx context.Context, microcycleID string, dayNumber int) (*domain.Day, error) {
	days, err := h.plans.ListDays(ctx, microcycleID)
	if err != nil {
		return nil, classify("list days", err)
	}
	for i := range days {
		if days[i].DayNumber == dayNumber {
			return &days[i], nil
		}
	}
	return nil, nil
}
