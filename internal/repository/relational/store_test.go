package relational

import (
	"alcyxob/training-planner/internal/domain"
	"alcyxob/training-planner/internal/engine"
	"alcyxob/training-planner/internal/logger"
	"alcyxob/training-planner/internal/repository"
	"alcyxob/training-planner/internal/repository/repotest"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLiteStore(t *testing.T) *Store {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "plans.db")
	s, err := Open(DriverSQLite, dsn, logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s
}

func TestSQLiteStoreContract(t *testing.T) {
	repotest.Run(t, func(t *testing.T) repository.Store {
		return newSQLiteStore(t)
	})
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open("oracle", "", logger.Nop())
	assert.Error(t, err)
}

// A forward edit through the engine lands in the same rows on SQLite as on
// the memory store.
func TestEngineForwardEditOnSQLite(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	var micros []string
	var mesoID string
	require.NoError(t, s.RunInTransaction(ctx, func(ctx context.Context, tx repository.Tx) error {
		macro := &domain.Macrocycle{Name: "Strength", StudentID: "student-1"}
		if err := tx.Plans().CreateMacrocycle(ctx, macro); err != nil {
			return err
		}
		meso := &domain.Mesocycle{MacrocycleID: macro.ID, Order: 1}
		if err := tx.Plans().CreateMesocycle(ctx, meso); err != nil {
			return err
		}
		mesoID = meso.ID
		for order := 1; order <= 3; order++ {
			micro := &domain.Microcycle{MesocycleID: meso.ID, Order: order}
			if err := tx.Plans().CreateMicrocycle(ctx, micro); err != nil {
				return err
			}
			if err := tx.Plans().CreateDay(ctx, &domain.Day{MicrocycleID: micro.ID, DayNumber: 1}); err != nil {
				return err
			}
			micros = append(micros, micro.ID)
		}
		return nil
	}))

	eng := engine.New(s)
	added, err := eng.ApplyAdd(ctx, engine.AddCommand{
		Item: engine.AddExercise{
			DayNumber:         1,
			MuscleGroup:       "back",
			CatalogExerciseID: "barbell-row",
			RepRange:          "8-10",
			RestMinutes:       2,
		},
		Scope:              domain.ScopeFromHereForward,
		OriginMicrocycleID: micros[0],
	})
	require.NoError(t, err)
	require.Len(t, added.Affected, 3)

	_, err = eng.ApplyEdit(ctx, engine.EditCommand{
		Target:             engine.ExerciseRef{ExerciseID: added.ExerciseID},
		Field:              domain.FieldRepRange,
		Value:              "6-8",
		Scope:              domain.ScopeFromHereForward,
		OriginMicrocycleID: micros[1],
	})
	require.NoError(t, err)

	var got []string
	for _, id := range micros {
		view, err := eng.ExerciseView(ctx, added.ExerciseID, id)
		require.NoError(t, err)
		got = append(got, view.RepRange)
	}
	assert.Equal(t, []string{"8-10", "6-8", "6-8"}, got)

	require.NoError(t, s.View(ctx, func(ctx context.Context, tx repository.Tx) error {
		list, err := tx.Templates().ListByMesocycle(ctx, mesoID)
		require.NoError(t, err)
		assert.Len(t, list, 1, "one template row regardless of microcycle count")
		return nil
	}))
}
