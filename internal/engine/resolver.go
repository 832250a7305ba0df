package engine

import (
	"alcyxob/training-planner/internal/domain"
	"alcyxob/training-planner/internal/repository"
	"context"
	"errors"
	"sort"
	"strconv"
	"time"
)

// SetView is a set with its effective values.
type SetView struct {
	ID       string   `json:"id"`
	Number   int      `json:"number"` // 1-based display index
	Position int      `json:"position"`
	Reps     *int     `json:"reps,omitempty"`
	Load     *float64 `json:"load,omitempty"`
	// ExpectedRIR falls back to the exercise value when the set has none.
	ExpectedRIR       string           `json:"expectedRir"`
	ExpectedRIRSource string           `json:"expectedRirSource"`
	IsAmrap           bool             `json:"isAmrap"`
	AmrapInstruction  string           `json:"amrapInstruction,omitempty"`
	AmrapNotes        string           `json:"amrapNotes,omitempty"`
	Status            domain.SetStatus `json:"status"`
	IsExtra           bool             `json:"isExtra"`
}

// ExerciseView is an exercise as seen in one microcycle. Sources tells, per
// field, whether the value comes from the template or an override.
type ExerciseView struct {
	ExerciseID        string                  `json:"exerciseId"`
	CatalogExerciseID string                  `json:"catalogExerciseId"`
	DayNumber         int                     `json:"dayNumber"`
	Position          int                     `json:"position"`
	MuscleGroup       string                  `json:"muscleGroup"`
	RepRange          string                  `json:"repRange"`
	ExpectedRIR       string                  `json:"expectedRir"`
	RestMinutes       float64                 `json:"restMinutes"`
	Notes             string                  `json:"notes,omitempty"`
	Sources           map[domain.Field]string `json:"sources"`
	Sets              []SetView               `json:"sets"`
}

// Value returns the effective value of an exercise field.
func (v ExerciseView) Value(f domain.Field) string {
	switch f {
	case domain.FieldRepRange:
		return v.RepRange
	case domain.FieldExpectedRIR:
		return v.ExpectedRIR
	case domain.FieldRestMinutes:
		return strconv.FormatFloat(v.RestMinutes, 'f', -1, 64)
	case domain.FieldMuscleGroup:
		return v.MuscleGroup
	case domain.FieldNotes:
		return v.Notes
	}
	return ""
}

type DayView struct {
	ID        string         `json:"id"`
	DayNumber int            `json:"dayNumber"`
	IsRestDay bool           `json:"isRestDay"`
	Date      *time.Time     `json:"date,omitempty"`
	Exercises []ExerciseView `json:"exercises"`
}

type MicrocycleView struct {
	ID          string    `json:"id"`
	MesocycleID string    `json:"mesocycleId"`
	Name        string    `json:"name"`
	Order       int       `json:"order"`
	Days        []DayView `json:"days"`
}

// MicrocycleView returns the effective plan of one microcycle.
func (e *Engine) MicrocycleView(ctx context.Context, microcycleID string) (*MicrocycleView, error) {
	var view *MicrocycleView
	err := e.store.View(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		view, err = ResolveMicrocycle(ctx, tx, microcycleID)
		return err
	})
	if err != nil {
		return nil, classify("microcycle view", err)
	}
	return view, nil
}

// ExerciseView returns one exercise as seen in one microcycle.
func (e *Engine) ExerciseView(ctx context.Context, exerciseID, microcycleID string) (*ExerciseView, error) {
	var view *ExerciseView
	err := e.store.View(ctx, func(ctx context.Context, tx repository.Tx) error {
		m, err := NewPlanHierarchy(tx).Microcycle(ctx, microcycleID)
		if err != nil {
			return err
		}
		ts := NewTemplateStore(tx)
		tmpl, err := ts.GetExerciseTemplate(ctx, exerciseID)
		if err != nil {
			return err
		}
		slot, err := ts.Slot(ctx, exerciseID, microcycleID)
		if err != nil {
			return err
		}
		if slot == nil {
			return notFound("exercise %s in microcycle %s", exerciseID, microcycleID)
		}
		overrides, err := NewOverrideStore(tx).forMicrocycle(ctx, microcycleID)
		if err != nil {
			return err
		}
		sets, err := ts.Sets(ctx, exerciseID, microcycleID)
		if err != nil {
			return err
		}
		v := resolveExerciseView(tmpl, *slot, m.Order, overrides[exerciseID], sets)
		view = &v
		return nil
	})
	if err != nil {
		return nil, classify("exercise view", err)
	}
	return view, nil
}

// ResolveMicrocycle builds the effective view of a microcycle inside an
// existing transaction or snapshot.
func ResolveMicrocycle(ctx context.Context, tx repository.Tx, microcycleID string) (*MicrocycleView, error) {
	m, err := NewPlanHierarchy(tx).Microcycle(ctx, microcycleID)
	if err != nil {
		return nil, err
	}
	days, err := tx.Plans().ListDays(ctx, m.ID)
	if err != nil {
		return nil, classify("list days", err)
	}
	slots, err := tx.Slots().ListByMicrocycle(ctx, m.ID)
	if err != nil {
		return nil, classify("list slots", err)
	}
	overrides, err := NewOverrideStore(tx).forMicrocycle(ctx, m.ID)
	if err != nil {
		return nil, err
	}
	allSets, err := tx.Sets().ListByMicrocycle(ctx, m.ID)
	if err != nil {
		return nil, classify("list sets", err)
	}
	setsByTemplate := make(map[string][]domain.SetInstance)
	for _, s := range allSets {
		setsByTemplate[s.ExerciseTemplateID] = append(setsByTemplate[s.ExerciseTemplateID], s)
	}

	exercisesByDay := make(map[string][]ExerciseView)
	for _, slot := range slots {
		tmpl, err := tx.Templates().GetByID(ctx, slot.ExerciseTemplateID)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, classify("get exercise template", err)
		}
		if tmpl.IsDeleted() {
			continue
		}
		v := resolveExerciseView(tmpl, slot, m.Order, overrides[tmpl.ID], setsByTemplate[tmpl.ID])
		exercisesByDay[slot.DayID] = append(exercisesByDay[slot.DayID], v)
	}

	view := &MicrocycleView{ID: m.ID, MesocycleID: m.MesocycleID, Name: m.Name, Order: m.Order, Days: make([]DayView, 0, len(days))}
	for _, d := range days {
		exercises := exercisesByDay[d.ID]
		sort.SliceStable(exercises, func(i, j int) bool { return exercises[i].Position < exercises[j].Position })
		if exercises == nil {
			exercises = []ExerciseView{}
		}
		view.Days = append(view.Days, DayView{ID: d.ID, DayNumber: d.DayNumber, IsRestDay: d.IsRestDay, Date: d.Date, Exercises: exercises})
	}
	return view, nil
}

func resolveExerciseView(tmpl *domain.ExerciseTemplate, slot domain.ExerciseSlot, order int, overrides map[domain.Field]string, sets []domain.SetInstance) ExerciseView {
	v := ExerciseView{
		ExerciseID:        tmpl.ID,
		CatalogExerciseID: tmpl.CatalogExerciseID,
		DayNumber:         tmpl.DayNumber,
		Position:          slot.Position,
		Sources:           make(map[domain.Field]string, len(domain.ExerciseFields)),
		Sets:              make([]SetView, 0, len(sets)),
	}
	effective := make(map[domain.Field]string, len(domain.ExerciseFields))
	for _, f := range domain.ExerciseFields {
		value, src := tmpl.ValueAt(f, order), SourceTemplate
		if ov, ok := overrides[f]; ok {
			value, src = ov, SourceOverride
		}
		effective[f] = value
		v.Sources[f] = src
	}
	v.RepRange = effective[domain.FieldRepRange]
	v.ExpectedRIR = effective[domain.FieldExpectedRIR]
	v.MuscleGroup = effective[domain.FieldMuscleGroup]
	v.Notes = effective[domain.FieldNotes]
	v.RestMinutes, _ = strconv.ParseFloat(effective[domain.FieldRestMinutes], 64)

	sort.SliceStable(sets, func(i, j int) bool { return sets[i].Position < sets[j].Position })
	for i, s := range sets {
		sv := SetView{
			ID:                s.ID,
			Number:            i + 1,
			Position:          s.Position,
			Reps:              s.Reps,
			Load:              s.Load,
			ExpectedRIR:       v.ExpectedRIR,
			ExpectedRIRSource: v.Sources[domain.FieldExpectedRIR],
			IsAmrap:           s.IsAmrap,
			AmrapInstruction:  s.AmrapInstruction,
			AmrapNotes:        s.AmrapNotes,
			Status:            s.Status,
			IsExtra:           s.IsExtra,
		}
		if s.ExpectedRIR != nil {
			sv.ExpectedRIR, sv.ExpectedRIRSource = *s.ExpectedRIR, SourceSet
		}
		v.Sets = append(v.Sets, sv)
	}
	return v
}
