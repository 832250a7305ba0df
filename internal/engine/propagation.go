package engine

import (
	"alcyxob/training-planner/internal/domain"
	"alcyxob/training-planner/internal/repository"
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
)

// ApplyEdit changes one field of an existing exercise or set.
//
// Exercise fields: this-only writes an override at the origin; the forward
// scopes revise the template from the origin's order, keeping (or, with
// from-here-forward-clearing, clearing) overrides in range. Set fields are
// written to the concrete set rows in range, creating them when missing.
func (e *Engine) ApplyEdit(ctx context.Context, cmd EditCommand) (result *EditResult, err error) {
	ctx, span := e.startSpan(ctx, "engine.ApplyEdit",
		attribute.String("scope", string(cmd.Scope)),
		attribute.String("field", string(cmd.Field)),
		attribute.String("origin", cmd.OriginMicrocycleID))
	defer func() { endSpan(span, err) }()

	value, err := validateEdit(cmd)
	if err != nil {
		return nil, err
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
			result, txErr = e.editExercise(ctx, tx, exerciseID, cmd.Field, value, cmd.Scope, cmd.OriginMicrocycleID)
		case SetRef:
			result, txErr = e.editSet(ctx, tx, t, exerciseID, cmd.Field, value, cmd.Scope, cmd.OriginMicrocycleID)
		}
		return txErr
	})
	if err != nil {
		err = classify("apply edit", err)
		e.log.Warn("Edit rejected", "exercise", exerciseID, "field", cmd.Field, "scope", cmd.Scope, "error", err)
		return nil, err
	}
	e.log.Info("Edit applied", "exercise", exerciseID, "field", cmd.Field, "scope", cmd.Scope,
		"affected", len(result.Affected), "retainedOverrides", len(result.RetainedOverrides))
	return result, nil
}

// validateEdit checks everything that can be checked without storage and
// returns the normalized value.
func validateEdit(cmd EditCommand) (string, error) {
	if cmd.Target == nil {
		return "", notFound("no target")
	}
	if cmd.OriginMicrocycleID == "" {
		return "", notFound("origin microcycle is empty")
	}
	if !cmd.Scope.Valid() {
		return "", invalidScope("%q", cmd.Scope)
	}
	if cmd.Scope == domain.ScopeNextOnly {
		return "", invalidScope("next-only applies to new exercises and sets only")
	}

	switch cmd.Target.(type) {
	case ExerciseRef:
		if cmd.Field.Level() != domain.LevelExercise {
			return "", fmt.Errorf("%w: %q is not an exercise field", ErrInvalidField, cmd.Field)
		}
	case SetRef:
		if cmd.Field.Level() != domain.LevelSet {
			return "", fmt.Errorf("%w: %q is not a set field", ErrInvalidField, cmd.Field)
		}
		if cmd.Scope == domain.ScopeFromHereForwardClearing {
			return "", invalidScope("sets carry no overrides to clear")
		}
		if cmd.Field == domain.FieldSetStatus && cmd.Scope != domain.ScopeThisOnly {
			return "", invalidScope("status is tracked per microcycle")
		}
	}

	value, err := domain.NormalizeValue(cmd.Field, cmd.Value)
	if err != nil {
		return "", fmt.Errorf("%w: %s=%q", err, cmd.Field, cmd.Value)
	}
	return value, nil
}

// resolveExercise loads the origin and locks the template, which must be
// materialized in the origin microcycle.
func resolveExercise(ctx context.Context, h PlanHierarchy, ts TemplateStore, exerciseID, originID string) (*domain.Microcycle, *domain.ExerciseTemplate, error) {
	origin, err := h.Microcycle(ctx, originID)
	if err != nil {
		return nil, nil, err
	}
	tmpl, err := ts.lockTemplate(ctx, exerciseID)
	if err != nil {
		return nil, nil, err
	}
	if tmpl.MesocycleID != origin.MesocycleID {
		return nil, nil, notFound("exercise %s in microcycle %s", exerciseID, originID)
	}
	slot, err := ts.Slot(ctx, tmpl.ID, origin.ID)
	if err != nil {
		return nil, nil, err
	}
	if slot == nil {
		return nil, nil, notFound("exercise %s in microcycle %s", exerciseID, originID)
	}
	return origin, tmpl, nil
}

// materializedFrom returns the microcycles from origin forward where the
// exercise has a slot.
func materializedFrom(ctx context.Context, h PlanHierarchy, ts TemplateStore, templateID string, origin domain.Microcycle) ([]domain.Microcycle, error) {
	rng, err := h.MicrocyclesFrom(ctx, origin.ID, AllForward)
	if err != nil {
		return nil, err
	}
	return withSlot(ctx, ts, templateID, rng)
}

func withSlot(ctx context.Context, ts TemplateStore, templateID string, ms []domain.Microcycle) ([]domain.Microcycle, error) {
	out := make([]domain.Microcycle, 0, len(ms))
	for _, m := range ms {
		slot, err := ts.Slot(ctx, templateID, m.ID)
		if err != nil {
			return nil, err
		}
		if slot != nil {
			out = append(out, m)
		}
	}
	return out, nil
}

func (e *Engine) editExercise(ctx context.Context, tx repository.Tx, exerciseID string, field domain.Field, value string, scope domain.Scope, originID string) (*EditResult, error) {
	h, ts, ovs := NewPlanHierarchy(tx), NewTemplateStore(tx), NewOverrideStore(tx)
	origin, _, err := resolveExercise(ctx, h, ts, exerciseID, originID)
	if err != nil {
		return nil, err
	}
	res := &EditResult{Scope: scope, ExerciseID: exerciseID, Field: field, Value: value, Affected: []AffectedMicrocycle{}}

	if scope == domain.ScopeThisOnly {
		if err := ovs.SetOverride(ctx, exerciseID, origin.ID, field, value); err != nil {
			return nil, err
		}
		res.Affected = append(res.Affected, AffectedMicrocycle{MicrocycleID: origin.ID, Order: origin.Order, Source: SourceOverride})
		return res, nil
	}

	reached, err := materializedFrom(ctx, h, ts, exerciseID, *origin)
	if err != nil {
		return nil, err
	}
	overridden := make(map[string]bool)
	var retained []string
	for _, m := range reached {
		_, ok, err := ovs.GetOverride(ctx, exerciseID, m.ID, field)
		if err != nil {
			return nil, err
		}
		if ok {
			overridden[m.ID] = true
			retained = append(retained, m.ID)
		}
	}

	switch {
	case scope == domain.ScopeFromHereForward && e.strictOverrides && len(retained) > 0:
		return nil, &ConflictingOverrideError{Field: field, MicrocycleIDs: retained}
	case scope == domain.ScopeFromHereForwardClearing:
		for _, id := range retained {
			if err := ovs.ClearOverride(ctx, exerciseID, id, field); err != nil {
				return nil, err
			}
			delete(overridden, id)
		}
		retained = nil
	}

	if _, err := ts.UpdateTemplateField(ctx, exerciseID, field, value, *origin); err != nil {
		return nil, err
	}
	for _, m := range reached {
		src := SourceTemplate
		if overridden[m.ID] {
			src = SourceOverride
		}
		res.Affected = append(res.Affected, AffectedMicrocycle{MicrocycleID: m.ID, Order: m.Order, Source: src})
	}
	res.RetainedOverrides = retained
	return res, nil
}

func (e *Engine) editSet(ctx context.Context, tx repository.Tx, ref SetRef, exerciseID string, field domain.Field, value string, scope domain.Scope, originID string) (*EditResult, error) {
	h, ts := NewPlanHierarchy(tx), NewTemplateStore(tx)
	origin, tmpl, err := resolveExercise(ctx, h, ts, exerciseID, originID)
	if err != nil {
		return nil, err
	}
	position, err := setPosition(ctx, tx, ref, tmpl.ID, origin.ID)
	if err != nil {
		return nil, err
	}

	targets := []domain.Microcycle{*origin}
	if scope.Forward() {
		if targets, err = materializedFrom(ctx, h, ts, tmpl.ID, *origin); err != nil {
			return nil, err
		}
	}

	res := &EditResult{Scope: scope, ExerciseID: exerciseID, Field: field, Value: value, Position: position, Affected: []AffectedMicrocycle{}}
	for _, m := range targets {
		si, created, err := ensureSet(ctx, ts, tmpl, m, position, m.ID == origin.ID)
		if err != nil {
			return nil, err
		}
		if si == nil {
			continue
		}
		var changed bool
		if scope.Forward() {
			changed, err = si.SetCarried(field, value)
		} else {
			if err := retireLocalPositions(ctx, h, ts, tmpl, *origin, created); err != nil {
				return nil, err
			}
			changed, err = si.SetLocal(field, value)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s=%q", err, field, value)
		}
		if changed {
			if err := tx.Sets().Update(ctx, si); err != nil {
				return nil, classify("update set", err)
			}
		}
		res.Affected = append(res.Affected, AffectedMicrocycle{MicrocycleID: m.ID, Order: m.Order, Source: SourceSet, SetID: si.ID})
	}
	return res, nil
}

// setPosition resolves a SetRef to a position. A ref by id must point at a
// set of the exercise in the origin microcycle.
func setPosition(ctx context.Context, tx repository.Tx, ref SetRef, templateID, originID string) (int, error) {
	if ref.SetID == "" {
		if ref.Position < 1 {
			return 0, notFound("set position %d", ref.Position)
		}
		return ref.Position, nil
	}
	si, err := tx.Sets().GetByID(ctx, ref.SetID)
	if err != nil {
		return 0, classify("get set", err)
	}
	if si.ExerciseTemplateID != templateID || si.MicrocycleID != originID {
		return 0, notFound("set %s in microcycle %s", ref.SetID, originID)
	}
	return si.Position, nil
}

// ensureSet returns the set at position in m, creating it when absent. When
// the position lies beyond the last set, the positions in between are filled
// too, each a copy of the carried prescription of the set before it. The
// created positions are returned. Tombstoned positions are skipped (nil) except
// at the origin, where they do not resolve.
func ensureSet(ctx context.Context, ts TemplateStore, tmpl *domain.ExerciseTemplate, m domain.Microcycle, position int, isOrigin bool) (*domain.SetInstance, []int, error) {
	sets, err := ts.Sets(ctx, tmpl.ID, m.ID)
	if err != nil {
		return nil, nil, err
	}
	var last *domain.SetInstance
	for i := range sets {
		if sets[i].Position == position {
			return &sets[i], nil, nil
		}
		if sets[i].Position < position {
			last = &sets[i]
		}
	}
	if tmpl.SetPositionRetired(position, m.Order) {
		if isOrigin {
			return nil, nil, notFound("set %d of exercise %s", position, tmpl.ID)
		}
		return nil, nil, nil
	}

	spec := domain.SetSpec{}
	from := position
	if last != nil {
		spec = last.CarriedSpec()
		spec.IsExtra = false
	}
	if n := len(sets); n == 0 || sets[n-1].Position < position {
		from = 1
		if n > 0 {
			from = sets[n-1].Position + 1
		}
	}
	var (
		si      *domain.SetInstance
		created []int
	)
	for p := from; p <= position; p++ {
		if p < position && tmpl.SetPositionRetired(p, m.Order) {
			continue
		}
		if si, err = ts.createSetAt(ctx, tmpl.ID, m.ID, p, spec); err != nil {
			return nil, nil, err
		}
		created = append(created, p)
	}
	return si, created, nil
}

// retireLocalPositions tombstones, from the microcycle after origin, the set
// positions a this-only edit had to create, unless a later microcycle already
// holds a set there. Appends and forward adds then never pick them up.
func retireLocalPositions(ctx context.Context, h PlanHierarchy, ts TemplateStore, tmpl *domain.ExerciseTemplate, origin domain.Microcycle, positions []int) error {
	if len(positions) == 0 {
		return nil
	}
	later, err := materializedFrom(ctx, h, ts, tmpl.ID, origin)
	if err != nil {
		return err
	}
	held := make(map[int]bool)
	for _, m := range later {
		if m.ID == origin.ID {
			continue
		}
		sets, err := ts.Sets(ctx, tmpl.ID, m.ID)
		if err != nil {
			return err
		}
		for _, s := range sets {
			held[s.Position] = true
		}
	}
	retired := false
	for _, p := range positions {
		if !held[p] && tmpl.RetireSetPosition(p, origin.Order+1) {
			retired = true
		}
	}
	if !retired {
		return nil
	}
	return ts.save(ctx, tmpl)
}

// ApplyAdd creates a new exercise or set. The scope picks the microcycles it
// is materialized in and how far the template extends into microcycles
// appended later.
func (e *Engine) ApplyAdd(ctx context.Context, cmd AddCommand) (result *EditResult, err error) {
	ctx, span := e.startSpan(ctx, "engine.ApplyAdd",
		attribute.String("scope", string(cmd.Scope)),
		attribute.String("origin", cmd.OriginMicrocycleID))
	defer func() { endSpan(span, err) }()

	switch cmd.Scope {
	case domain.ScopeThisOnly, domain.ScopeNextOnly, domain.ScopeFromHereForward:
	default:
		return nil, invalidScope("%q cannot be used to add", cmd.Scope)
	}
	if cmd.OriginMicrocycleID == "" {
		return nil, notFound("origin microcycle is empty")
	}

	var lockKey string
	switch item := cmd.Item.(type) {
	case AddExercise:
		normalized, err := normalizeAddExercise(item)
		if err != nil {
			return nil, err
		}
		cmd.Item = normalized
		// Exercises join a mesocycle, as appended microcycles do; both
		// serialize on it so an append never misses a new exercise.
		mesocycleID, err := e.originMesocycle(ctx, cmd.OriginMicrocycleID)
		if err != nil {
			return nil, err
		}
		lockKey = mesocycleKey(mesocycleID)
	case AddSet:
		if item.ExerciseID == "" {
			return nil, notFound("exercise id is empty")
		}
		if err := validateSpec(item.Spec); err != nil {
			return nil, err
		}
		lockKey = item.ExerciseID
	default:
		return nil, notFound("nothing to add")
	}
	unlock := e.locks.Lock(lockKey)
	defer unlock()

	err = e.store.RunInTransaction(ctx, func(ctx context.Context, tx repository.Tx) error {
		var txErr error
		switch item := cmd.Item.(type) {
		case AddExercise:
			result, txErr = e.addExercise(ctx, tx, item, cmd.Scope, cmd.OriginMicrocycleID)
		case AddSet:
			result, txErr = e.addSet(ctx, tx, item, cmd.Scope, cmd.OriginMicrocycleID)
		}
		return txErr
	})
	if err != nil {
		err = classify("apply add", err)
		e.log.Warn("Add rejected", "origin", cmd.OriginMicrocycleID, "scope", cmd.Scope, "error", err)
		return nil, err
	}
	e.log.Info("Add applied", "exercise", result.ExerciseID, "position", result.Position,
		"scope", cmd.Scope, "affected", len(result.Affected))
	return result, nil
}

func normalizeAddExercise(item AddExercise) (AddExercise, error) {
	if item.DayNumber < 1 {
		return item, fmt.Errorf("%w: dayNumber must be positive", ErrInvalidValue)
	}
	var err error
	if item.RepRange, err = domain.NormalizeValue(domain.FieldRepRange, item.RepRange); err != nil {
		return item, fmt.Errorf("%w: repRange is required", err)
	}
	if item.MuscleGroup, err = domain.NormalizeValue(domain.FieldMuscleGroup, item.MuscleGroup); err != nil {
		return item, fmt.Errorf("%w: muscleGroup is required", err)
	}
	item.CatalogExerciseID = strings.TrimSpace(item.CatalogExerciseID)
	if item.CatalogExerciseID == "" {
		return item, fmt.Errorf("%w: catalogExerciseId is required", ErrInvalidValue)
	}
	if item.RestMinutes < 0 {
		return item, fmt.Errorf("%w: restMinutes must not be negative", ErrInvalidValue)
	}
	item.ExpectedRIR = strings.TrimSpace(item.ExpectedRIR)
	item.Notes = strings.TrimSpace(item.Notes)
	for _, spec := range item.Sets {
		if err := validateSpec(spec); err != nil {
			return item, err
		}
	}
	return item, nil
}

func validateSpec(spec domain.SetSpec) error {
	if spec.Reps != nil && *spec.Reps < 0 {
		return fmt.Errorf("%w: reps must not be negative", ErrInvalidValue)
	}
	if spec.Load != nil && *spec.Load < 0 {
		return fmt.Errorf("%w: load must not be negative", ErrInvalidValue)
	}
	return nil
}

// addRange returns the microcycles an add reaches: the origin, plus the next
// one for next-only, plus every later one for from-here-forward.
func addRange(ctx context.Context, h PlanHierarchy, origin domain.Microcycle, scope domain.Scope) ([]domain.Microcycle, error) {
	switch scope {
	case domain.ScopeNextOnly:
		next, err := h.MicrocyclesFrom(ctx, origin.ID, NextOnly)
		if err != nil {
			return nil, err
		}
		return append([]domain.Microcycle{origin}, next...), nil
	case domain.ScopeFromHereForward:
		return h.MicrocyclesFrom(ctx, origin.ID, AllForward)
	}
	return []domain.Microcycle{origin}, nil
}

func (e *Engine) addExercise(ctx context.Context, tx repository.Tx, item AddExercise, scope domain.Scope, originID string) (*EditResult, error) {
	h, ts := NewPlanHierarchy(tx), NewTemplateStore(tx)
	origin, err := h.Microcycle(ctx, originID)
	if err != nil {
		return nil, err
	}
	if err := tx.Plans().LockMesocycle(ctx, origin.MesocycleID); err != nil {
		return nil, classify("lock mesocycle", err)
	}
	targets, err := addRange(ctx, h, *origin, scope)
	if err != nil {
		return nil, err
	}

	if item.ID != "" {
		existing, err := tx.Templates().GetByID(ctx, item.ID)
		switch {
		case err == nil:
			return existingAddResult(ctx, ts, existing, *origin, targets, scope)
		case !errors.Is(err, repository.ErrNotFound):
			return nil, classify("get exercise template", err)
		}
	}

	originDay, err := h.DayByNumber(ctx, origin.ID, item.DayNumber)
	if err != nil {
		return nil, err
	}
	if originDay == nil {
		return nil, notFound("day %d in microcycle %s", item.DayNumber, origin.ID)
	}
	if originDay.IsRestDay {
		return nil, fmt.Errorf("%w: day %d is a rest day", ErrInvalidValue, item.DayNumber)
	}

	tmpl := &domain.ExerciseTemplate{
		ID:                 item.ID,
		MesocycleID:        origin.MesocycleID,
		DayNumber:          item.DayNumber,
		MuscleGroup:        item.MuscleGroup,
		CatalogExerciseID:  item.CatalogExerciseID,
		RepRange:           item.RepRange,
		ExpectedRIR:        item.ExpectedRIR,
		RestMinutes:        item.RestMinutes,
		Notes:              item.Notes,
		OriginMicrocycleID: origin.ID,
		OriginOrder:        origin.Order,
		AddScope:           scope,
	}
	if scope != domain.ScopeFromHereForward {
		tmpl.Retire(targets[len(targets)-1].Order + 1)
	}
	if err := tx.Templates().Create(ctx, tmpl); err != nil {
		return nil, classify("create exercise template", err)
	}

	res := &EditResult{Scope: scope, ExerciseID: tmpl.ID, Affected: []AffectedMicrocycle{}}
	for _, m := range targets {
		day := originDay
		if m.ID != origin.ID {
			if day, err = h.DayByNumber(ctx, m.ID, item.DayNumber); err != nil {
				return nil, err
			}
		}
		if day == nil || day.IsRestDay {
			continue
		}
		if _, _, err := ts.Materialize(ctx, tmpl, *day); err != nil {
			return nil, err
		}
		if _, err := ts.CreateSetInstances(ctx, tmpl.ID, m.ID, item.Sets); err != nil {
			return nil, err
		}
		res.Affected = append(res.Affected, AffectedMicrocycle{MicrocycleID: m.ID, Order: m.Order, Source: SourceTemplate})
	}
	return res, nil
}

// existingAddResult answers a retried AddExercise with the state the first
// attempt left. A retry must repeat the scope of the first attempt.
func existingAddResult(ctx context.Context, ts TemplateStore, tmpl *domain.ExerciseTemplate, origin domain.Microcycle, targets []domain.Microcycle, scope domain.Scope) (*EditResult, error) {
	if tmpl.IsDeleted() {
		return nil, notFound("exercise %s", tmpl.ID)
	}
	if tmpl.OriginMicrocycleID != origin.ID {
		return nil, fmt.Errorf("%w: exercise id %s already used in another microcycle", ErrInvalidValue, tmpl.ID)
	}
	if tmpl.AddScope != "" && tmpl.AddScope != scope {
		return nil, invalidScope("exercise %s was added %s", tmpl.ID, tmpl.AddScope)
	}
	present, err := withSlot(ctx, ts, tmpl.ID, targets)
	if err != nil {
		return nil, err
	}
	res := &EditResult{Scope: scope, ExerciseID: tmpl.ID, Affected: []AffectedMicrocycle{}}
	for _, m := range present {
		res.Affected = append(res.Affected, AffectedMicrocycle{MicrocycleID: m.ID, Order: m.Order, Source: SourceTemplate})
	}
	return res, nil
}

func (e *Engine) addSet(ctx context.Context, tx repository.Tx, item AddSet, scope domain.Scope, originID string) (*EditResult, error) {
	h, ts := NewPlanHierarchy(tx), NewTemplateStore(tx)
	origin, tmpl, err := resolveExercise(ctx, h, ts, item.ExerciseID, originID)
	if err != nil {
		return nil, err
	}
	rng, err := addRange(ctx, h, *origin, scope)
	if err != nil {
		return nil, err
	}
	targets, err := withSlot(ctx, ts, tmpl.ID, rng)
	if err != nil {
		return nil, err
	}

	// The new position must be unused in every target and never tombstoned,
	// so it cannot line up with an unrelated set elsewhere.
	position := 0
	for _, m := range targets {
		sets, err := ts.Sets(ctx, tmpl.ID, m.ID)
		if err != nil {
			return nil, err
		}
		if n := len(sets); n > 0 && sets[n-1].Position > position {
			position = sets[n-1].Position
		}
	}
	for _, tomb := range tmpl.SetTombstones {
		if tomb.Position > position {
			position = tomb.Position
		}
	}
	position++

	res := &EditResult{Scope: scope, ExerciseID: tmpl.ID, Position: position, Affected: []AffectedMicrocycle{}}
	for _, m := range targets {
		si, err := ts.createSetAt(ctx, tmpl.ID, m.ID, position, item.Spec)
		if err != nil {
			return nil, err
		}
		res.Affected = append(res.Affected, AffectedMicrocycle{MicrocycleID: m.ID, Order: m.Order, Source: SourceSet, SetID: si.ID})
	}
	if scope != domain.ScopeFromHereForward {
		tmpl.RetireSetPosition(position, rng[len(rng)-1].Order+1)
		if err := ts.save(ctx, tmpl); err != nil {
			return nil, err
		}
	}
	return res, nil
}
