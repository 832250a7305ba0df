package service

import (
	"alcyxob/training-planner/internal/domain"
	"alcyxob/training-planner/internal/engine"
	"alcyxob/training-planner/internal/repository/memory"
	"alcyxob/training-planner/internal/storage"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type planFixture struct {
	svc     PlanService
	objects *storage.MemoryStorage
}

func newPlanFixture(t *testing.T) *planFixture {
	t.Helper()
	store := memory.NewStore()
	objects := storage.NewMemoryStorage()
	svc := NewPlanService(store, engine.New(store), objects, ExportOptions{Prefix: "/exports/"}, nil)
	return &planFixture{svc: svc, objects: objects}
}

// buildPlan creates a macrocycle with one mesocycle of two weeks. Week 1 has
// a training day 1 and a rest day 2; bench press is added forward from week 1
// before week 2 is appended.
func (f *planFixture) buildPlan(t *testing.T) (macroID, mesoID string, weeks []string, exerciseID string) {
	t.Helper()
	ctx := context.Background()

	macro, err := f.svc.CreateMacrocycle(ctx, "coach-1", "student-1", "Off-season")
	require.NoError(t, err)
	meso, err := f.svc.CreateMesocycle(ctx, macro.ID, "")
	require.NoError(t, err)
	assert.Equal(t, "Block 1", meso.Name)

	week1, err := f.svc.AppendMicrocycle(ctx, meso.ID, "")
	require.NoError(t, err)
	assert.Equal(t, "Week 1", week1.Microcycle.Name)

	monday := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	_, err = f.svc.AddDay(ctx, week1.Microcycle.ID, 1, false, &monday)
	require.NoError(t, err)
	_, err = f.svc.AddDay(ctx, week1.Microcycle.ID, 2, true, nil)
	require.NoError(t, err)

	reps, load := 8, 80.0
	added, err := f.svc.ApplyAdd(ctx, engine.AddCommand{
		Item: engine.AddExercise{
			DayNumber:         1,
			MuscleGroup:       "chest",
			CatalogExerciseID: "bench-press",
			RepRange:          "8-10",
			RestMinutes:       2,
			Sets:              []domain.SetSpec{{Reps: &reps, Load: &load}, {Reps: &reps, Load: &load}},
		},
		Scope:              domain.ScopeFromHereForward,
		OriginMicrocycleID: week1.Microcycle.ID,
	})
	require.NoError(t, err)

	week2, err := f.svc.AppendMicrocycle(ctx, meso.ID, "")
	require.NoError(t, err)
	assert.Equal(t, []string{added.ExerciseID}, week2.Materialized)
	require.Len(t, week2.Days, 2)
	require.NotNil(t, week2.Days[0].Date)
	assert.Equal(t, monday.AddDate(0, 0, 7), *week2.Days[0].Date)

	return macro.ID, meso.ID, []string{week1.Microcycle.ID, week2.Microcycle.ID}, added.ExerciseID
}

func TestCreateMacrocycleValidates(t *testing.T) {
	f := newPlanFixture(t)
	_, err := f.svc.CreateMacrocycle(context.Background(), "coach-1", "", "Plan")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.svc.CreateMacrocycle(context.Background(), "coach-1", "student-1", "   ")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestHierarchyNotFoundErrors(t *testing.T) {
	f := newPlanFixture(t)
	ctx := context.Background()

	_, err := f.svc.GetMacrocycle(ctx, "missing")
	assert.ErrorIs(t, err, ErrMacrocycleNotFound)
	_, err = f.svc.CreateMesocycle(ctx, "missing", "Block")
	assert.ErrorIs(t, err, ErrMacrocycleNotFound)
	_, err = f.svc.AppendMicrocycle(ctx, "missing", "")
	assert.ErrorIs(t, err, ErrMesocycleNotFound)
	_, err = f.svc.ListMicrocycles(ctx, "missing")
	assert.ErrorIs(t, err, ErrMesocycleNotFound)
	_, err = f.svc.AddDay(ctx, "missing", 1, false, nil)
	assert.ErrorIs(t, err, ErrMicrocycleNotFound)
}

func TestPlanLifecycle(t *testing.T) {
	f := newPlanFixture(t)
	ctx := context.Background()
	macroID, mesoID, weeks, exerciseID := f.buildPlan(t)

	detail, err := f.svc.GetMacrocycle(ctx, macroID)
	require.NoError(t, err)
	require.Len(t, detail.Mesocycles, 1)
	assert.Equal(t, mesoID, detail.Mesocycles[0].ID)

	list, err := f.svc.ListMacrocycles(ctx, "student-1")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	micros, err := f.svc.ListMicrocycles(ctx, mesoID)
	require.NoError(t, err)
	require.Len(t, micros, 2)
	assert.Equal(t, 1, micros[0].Order)
	assert.Equal(t, 2, micros[1].Order)

	_, err = f.svc.AddDay(ctx, weeks[0], 1, false, nil)
	assert.ErrorIs(t, err, ErrDayExists)

	// A this-only edit in week 2 does not leak into week 1.
	_, err = f.svc.ApplyEdit(ctx, engine.EditCommand{
		Target:             engine.ExerciseRef{ExerciseID: exerciseID},
		Field:              domain.FieldRestMinutes,
		Value:              "3",
		Scope:              domain.ScopeThisOnly,
		OriginMicrocycleID: weeks[1],
	})
	require.NoError(t, err)

	view1, err := f.svc.MicrocycleView(ctx, weeks[0])
	require.NoError(t, err)
	view2, err := f.svc.MicrocycleView(ctx, weeks[1])
	require.NoError(t, err)
	require.Len(t, view2.Days, 2)
	require.Len(t, view2.Days[0].Exercises, 1)
	assert.Empty(t, view2.Days[1].Exercises, "rest day stays empty")
	assert.Equal(t, 2.0, view1.Days[0].Exercises[0].RestMinutes)
	assert.Equal(t, 3.0, view2.Days[0].Exercises[0].RestMinutes)
	assert.Len(t, view2.Days[0].Exercises[0].Sets, 2)
}

func TestDeleteAndCollectOrphans(t *testing.T) {
	f := newPlanFixture(t)
	ctx := context.Background()
	_, _, weeks, exerciseID := f.buildPlan(t)

	_, err := f.svc.ApplyEdit(ctx, engine.EditCommand{
		Target:             engine.ExerciseRef{ExerciseID: exerciseID},
		Field:              domain.FieldNotes,
		Value:              "paused reps",
		Scope:              domain.ScopeThisOnly,
		OriginMicrocycleID: weeks[1],
	})
	require.NoError(t, err)

	res, err := f.svc.DeleteEdit(ctx, engine.DeleteCommand{
		Target:             engine.ExerciseRef{ExerciseID: exerciseID},
		Scope:              domain.ScopeFromHereForward,
		OriginMicrocycleID: weeks[0],
	})
	require.NoError(t, err)
	assert.True(t, res.TemplateDeleted)
	assert.Len(t, res.Removed, 2)

	n, err := f.svc.CollectOrphanedOverrides(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = f.svc.CollectOrphanedOverrides(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestExportMacrocycle(t *testing.T) {
	f := newPlanFixture(t)
	ctx := context.Background()
	macroID, _, _, exerciseID := f.buildPlan(t)

	export, err := f.svc.ExportMacrocycle(ctx, macroID)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(export.ObjectKey, "exports/"+macroID+"/"))
	assert.Equal(t, "mem://"+export.ObjectKey, export.DownloadURL)

	obj, ok := f.objects.Object(export.ObjectKey)
	require.True(t, ok)
	assert.Equal(t, "application/json", obj.ContentType)
	assert.Equal(t, int64(len(obj.Body)), export.Size)

	var doc PlanDocument
	require.NoError(t, json.Unmarshal(obj.Body, &doc))
	assert.Equal(t, macroID, doc.Macrocycle.ID)
	require.Len(t, doc.Mesocycles, 1)
	require.Len(t, doc.Mesocycles[0].Microcycles, 2)
	for i, mc := range doc.Mesocycles[0].Microcycles {
		assert.Equal(t, i+1, mc.Order, "microcycles keep their order")
		require.NotEmpty(t, mc.Days)
		require.Len(t, mc.Days[0].Exercises, 1)
		assert.Equal(t, exerciseID, mc.Days[0].Exercises[0].ExerciseID)
	}

	_, err = f.svc.ExportMacrocycle(ctx, "missing")
	assert.ErrorIs(t, err, ErrMacrocycleNotFound)
}

func TestExportDisabledWithoutStorage(t *testing.T) {
	store := memory.NewStore()
	svc := NewPlanService(store, engine.New(store), nil, ExportOptions{}, nil)
	_, err := svc.ExportMacrocycle(context.Background(), "any")
	assert.ErrorIs(t, err, ErrExportDisabled)
}

func TestResultLabel(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{engine.ErrNotFound, "not_found"},
		{&engine.ConflictingOverrideError{Field: domain.FieldRepRange}, "conflict"},
		{engine.ErrInvalidScope, "invalid"},
		{domain.ErrScopeRequired, "invalid"},
		{&engine.StorageError{Op: "x", Err: errors.New("disk full")}, "error"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, resultLabel(tt.err))
	}
}
