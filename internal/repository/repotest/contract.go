// Package repotest holds the behavioural contract every repository.Store
// backend must satisfy. Backends call Run from their own tests.
package repotest

import (
	"alcyxob/training-planner/internal/domain"
	"alcyxob/training-planner/internal/repository"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns a fresh, empty store.
type Factory func(t *testing.T) repository.Store

var errAbort = errors.New("abort")

// Run executes the contract against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("PlanHierarchy", func(t *testing.T) { testPlanHierarchy(t, newStore(t)) })
	t.Run("MesocycleLock", func(t *testing.T) { testMesocycleLock(t, newStore(t)) })
	t.Run("Templates", func(t *testing.T) { testTemplates(t, newStore(t)) })
	t.Run("Slots", func(t *testing.T) { testSlots(t, newStore(t)) })
	t.Run("Overrides", func(t *testing.T) { testOverrides(t, newStore(t)) })
	t.Run("Sets", func(t *testing.T) { testSets(t, newStore(t)) })
	t.Run("Rollback", func(t *testing.T) { testRollback(t, newStore(t)) })
}

func write(t *testing.T, s repository.Store, fn func(ctx context.Context, tx repository.Tx) error) {
	t.Helper()
	require.NoError(t, s.RunInTransaction(context.Background(), fn))
}

func read(t *testing.T, s repository.Store, fn func(ctx context.Context, tx repository.Tx) error) {
	t.Helper()
	require.NoError(t, s.View(context.Background(), fn))
}

// seedMesocycle creates a macrocycle, a mesocycle and n microcycles with
// orders 1..n. It returns the mesocycle id and the microcycle ids.
func seedMesocycle(t *testing.T, s repository.Store, n int) (string, []string) {
	t.Helper()
	var mesoID string
	ids := make([]string, 0, n)
	write(t, s, func(ctx context.Context, tx repository.Tx) error {
		macro := &domain.Macrocycle{Name: "Hypertrophy", StudentID: "student-1", CoachID: "coach-1"}
		if err := tx.Plans().CreateMacrocycle(ctx, macro); err != nil {
			return err
		}
		meso := &domain.Mesocycle{MacrocycleID: macro.ID, Name: "Block A", Order: 1}
		if err := tx.Plans().CreateMesocycle(ctx, meso); err != nil {
			return err
		}
		mesoID = meso.ID
		// Insert in reverse to make sure listing sorts by order.
		for order := n; order >= 1; order-- {
			micro := &domain.Microcycle{MesocycleID: meso.ID, Name: "Week", Order: order}
			if err := tx.Plans().CreateMicrocycle(ctx, micro); err != nil {
				return err
			}
			ids = append([]string{micro.ID}, ids...)
		}
		return nil
	})
	return mesoID, ids
}

func testPlanHierarchy(t *testing.T, s repository.Store) {
	mesoID, micros := seedMesocycle(t, s, 3)

	read(t, s, func(ctx context.Context, tx repository.Tx) error {
		list, err := tx.Plans().ListMicrocycles(ctx, mesoID)
		require.NoError(t, err)
		require.Len(t, list, 3)
		for i, m := range list {
			assert.Equal(t, i+1, m.Order)
			assert.Equal(t, micros[i], m.ID)
		}

		_, err = tx.Plans().GetMicrocycle(ctx, "missing")
		assert.ErrorIs(t, err, repository.ErrNotFound)

		meso, err := tx.Plans().GetMesocycle(ctx, mesoID)
		require.NoError(t, err)
		macros, err := tx.Plans().ListMacrocyclesByStudent(ctx, "student-1")
		require.NoError(t, err)
		require.Len(t, macros, 1)
		assert.Equal(t, meso.MacrocycleID, macros[0].ID)
		return nil
	})

	err := s.RunInTransaction(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		return tx.Plans().CreateMicrocycle(ctx, &domain.Microcycle{MesocycleID: mesoID, Order: 2})
	})
	assert.ErrorIs(t, err, repository.ErrDuplicateKey, "order is unique within a mesocycle")

	write(t, s, func(ctx context.Context, tx repository.Tx) error {
		for _, n := range []int{3, 1, 2} {
			if err := tx.Plans().CreateDay(ctx, &domain.Day{MicrocycleID: micros[0], DayNumber: n, IsRestDay: n == 3}); err != nil {
				return err
			}
		}
		return nil
	})
	read(t, s, func(ctx context.Context, tx repository.Tx) error {
		days, err := tx.Plans().ListDays(ctx, micros[0])
		require.NoError(t, err)
		require.Len(t, days, 3)
		assert.Equal(t, []int{1, 2, 3}, []int{days[0].DayNumber, days[1].DayNumber, days[2].DayNumber})
		assert.True(t, days[2].IsRestDay)
		return nil
	})

	err = s.RunInTransaction(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		return tx.Plans().CreateDay(ctx, &domain.Day{MicrocycleID: micros[0], DayNumber: 1})
	})
	assert.ErrorIs(t, err, repository.ErrDuplicateKey)
}

func testMesocycleLock(t *testing.T, s repository.Store) {
	mesoID, _ := seedMesocycle(t, s, 1)
	write(t, s, func(ctx context.Context, tx repository.Tx) error {
		require.NoError(t, tx.Plans().LockMesocycle(ctx, mesoID))
		// Locking twice in one transaction is allowed.
		require.NoError(t, tx.Plans().LockMesocycle(ctx, mesoID))
		micro := &domain.Microcycle{MesocycleID: mesoID, Name: "Week 2", Order: 2}
		return tx.Plans().CreateMicrocycle(ctx, micro)
	})
	read(t, s, func(ctx context.Context, tx repository.Tx) error {
		meso, err := tx.Plans().GetMesocycle(ctx, mesoID)
		require.NoError(t, err)
		assert.Equal(t, "Block A", meso.Name)
		micros, err := tx.Plans().ListMicrocycles(ctx, mesoID)
		require.NoError(t, err)
		assert.Len(t, micros, 2)
		return nil
	})

	err := s.RunInTransaction(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		return tx.Plans().LockMesocycle(ctx, "missing")
	})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func testTemplates(t *testing.T, s repository.Store) {
	mesoID, micros := seedMesocycle(t, s, 2)
	tmpl := &domain.ExerciseTemplate{
		MesocycleID:        mesoID,
		DayNumber:          1,
		MuscleGroup:        "chest",
		CatalogExerciseID:  "bench-press",
		RepRange:           "8-10",
		RestMinutes:        2,
		OriginMicrocycleID: micros[0],
		OriginOrder:        1,
		AddScope:           domain.ScopeNextOnly,
	}
	write(t, s, func(ctx context.Context, tx repository.Tx) error {
		return tx.Templates().Create(ctx, tmpl)
	})
	require.NotEmpty(t, tmpl.ID)

	write(t, s, func(ctx context.Context, tx repository.Tx) error {
		got, err := tx.Templates().GetForUpdate(ctx, tmpl.ID)
		require.NoError(t, err)
		got.Revise(domain.FieldRepRange, "6-8", 2)
		got.Retire(5)
		got.RetireSetPosition(3, 2)
		return tx.Templates().Update(ctx, got)
	})

	read(t, s, func(ctx context.Context, tx repository.Tx) error {
		got, err := tx.Templates().GetByID(ctx, tmpl.ID)
		require.NoError(t, err)
		assert.Equal(t, "8-10", got.ValueAt(domain.FieldRepRange, 1))
		assert.Equal(t, "6-8", got.ValueAt(domain.FieldRepRange, 2))
		require.NotNil(t, got.RetiredFromOrder)
		assert.Equal(t, 5, *got.RetiredFromOrder)
		assert.True(t, got.SetPositionRetired(3, 2))
		assert.False(t, got.SetPositionRetired(3, 1))
		assert.Equal(t, domain.ScopeNextOnly, got.AddScope)

		list, err := tx.Templates().ListByMesocycle(ctx, mesoID)
		require.NoError(t, err)
		assert.Len(t, list, 1)
		return nil
	})

	err := s.RunInTransaction(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		return tx.Templates().Update(ctx, &domain.ExerciseTemplate{ID: "missing"})
	})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func testSlots(t *testing.T, s repository.Store) {
	_, micros := seedMesocycle(t, s, 1)
	write(t, s, func(ctx context.Context, tx repository.Tx) error {
		for i, tmpl := range []string{"t-b", "t-a"} {
			if err := tx.Slots().Create(ctx, &domain.ExerciseSlot{ExerciseTemplateID: tmpl, MicrocycleID: micros[0], Position: 2 - i}); err != nil {
				return err
			}
		}
		return nil
	})

	err := s.RunInTransaction(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		return tx.Slots().Create(ctx, &domain.ExerciseSlot{ExerciseTemplateID: "t-a", MicrocycleID: micros[0], Position: 9})
	})
	assert.ErrorIs(t, err, repository.ErrDuplicateKey, "one slot per template and microcycle")

	read(t, s, func(ctx context.Context, tx repository.Tx) error {
		list, err := tx.Slots().ListByMicrocycle(ctx, micros[0])
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "t-a", list[0].ExerciseTemplateID)
		assert.Equal(t, "t-b", list[1].ExerciseTemplateID)
		return nil
	})

	write(t, s, func(ctx context.Context, tx repository.Tx) error {
		require.NoError(t, tx.Slots().Delete(ctx, "t-a", micros[0]))
		return tx.Slots().Delete(ctx, "t-a", micros[0])
	})
	read(t, s, func(ctx context.Context, tx repository.Tx) error {
		_, err := tx.Slots().Get(ctx, "t-a", micros[0])
		assert.ErrorIs(t, err, repository.ErrNotFound)
		byTemplate, err := tx.Slots().ListByTemplate(ctx, "t-b")
		require.NoError(t, err)
		assert.Len(t, byTemplate, 1)
		return nil
	})
}

func testOverrides(t *testing.T, s repository.Store) {
	_, micros := seedMesocycle(t, s, 2)
	first := &domain.ExerciseOverride{ExerciseTemplateID: "t-1", MicrocycleID: micros[0], Field: domain.FieldRestMinutes, Value: "3"}
	write(t, s, func(ctx context.Context, tx repository.Tx) error {
		return tx.Overrides().Upsert(ctx, first)
	})
	require.NotEmpty(t, first.ID)

	second := &domain.ExerciseOverride{ExerciseTemplateID: "t-1", MicrocycleID: micros[0], Field: domain.FieldRestMinutes, Value: "4"}
	write(t, s, func(ctx context.Context, tx repository.Tx) error {
		return tx.Overrides().Upsert(ctx, second)
	})
	assert.Equal(t, first.ID, second.ID, "upsert keeps the stored id")

	other := &domain.ExerciseOverride{ExerciseTemplateID: "t-1", MicrocycleID: micros[1], Field: domain.FieldNotes, Value: "pause reps"}
	write(t, s, func(ctx context.Context, tx repository.Tx) error {
		return tx.Overrides().Upsert(ctx, other)
	})

	read(t, s, func(ctx context.Context, tx repository.Tx) error {
		got, err := tx.Overrides().Get(ctx, "t-1", micros[0], domain.FieldRestMinutes)
		require.NoError(t, err)
		assert.Equal(t, "4", got.Value)

		inFirst, err := tx.Overrides().ListByMicrocycle(ctx, micros[0])
		require.NoError(t, err)
		assert.Len(t, inFirst, 1)

		all, err := tx.Overrides().ListAll(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 2)
		return nil
	})

	write(t, s, func(ctx context.Context, tx repository.Tx) error {
		require.NoError(t, tx.Overrides().Delete(ctx, "t-1", micros[0], domain.FieldRestMinutes))
		require.NoError(t, tx.Overrides().Delete(ctx, "t-1", micros[0], domain.FieldRestMinutes))
		return tx.Overrides().DeleteByIDs(ctx, []string{other.ID})
	})
	read(t, s, func(ctx context.Context, tx repository.Tx) error {
		all, err := tx.Overrides().ListAll(ctx)
		require.NoError(t, err)
		assert.Empty(t, all)
		return nil
	})
}

func testSets(t *testing.T, s repository.Store) {
	_, micros := seedMesocycle(t, s, 1)
	reps := 8
	load := 60.0
	var created []*domain.SetInstance
	write(t, s, func(ctx context.Context, tx repository.Tx) error {
		for _, pos := range []int{2, 1, 3} {
			set := domain.NewSetInstance("t-1", micros[0], pos, domain.SetSpec{Reps: &reps, Load: &load})
			created = append(created, &set)
		}
		return tx.Sets().Create(ctx, created)
	})
	for _, set := range created {
		assert.NotEmpty(t, set.ID)
		assert.Equal(t, domain.SetPending, set.Status)
	}

	err := s.RunInTransaction(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		dup := domain.NewSetInstance("t-1", micros[0], 2, domain.SetSpec{})
		return tx.Sets().Create(ctx, []*domain.SetInstance{&dup})
	})
	assert.ErrorIs(t, err, repository.ErrDuplicateKey, "position is unique per template and microcycle")

	write(t, s, func(ctx context.Context, tx repository.Tx) error {
		set, err := tx.Sets().GetByID(ctx, created[1].ID)
		require.NoError(t, err)
		_, err = set.SetField(domain.FieldSetIsAmrap, "true")
		require.NoError(t, err)
		_, err = set.SetLocal(domain.FieldSetReps, "12")
		require.NoError(t, err)
		set.Load = nil
		return tx.Sets().Update(ctx, set)
	})

	read(t, s, func(ctx context.Context, tx repository.Tx) error {
		list, err := tx.Sets().ListByTemplateAndMicrocycle(ctx, "t-1", micros[0])
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, []int{1, 2, 3}, []int{list[0].Position, list[1].Position, list[2].Position})
		assert.True(t, list[0].IsAmrap)
		assert.Nil(t, list[0].Load)
		require.NotNil(t, list[0].Reps)
		assert.Equal(t, 12, *list[0].Reps)
		assert.Equal(t, map[domain.Field]string{domain.FieldSetReps: "8"}, list[0].LocalEdits)
		assert.Equal(t, 8, *list[0].CarriedSpec().Reps)
		assert.Nil(t, list[1].LocalEdits)
		require.NotNil(t, list[1].Reps)
		assert.Equal(t, 8, *list[1].Reps)
		return nil
	})

	write(t, s, func(ctx context.Context, tx repository.Tx) error {
		return tx.Sets().DeleteByIDs(ctx, []string{created[0].ID, created[2].ID})
	})
	read(t, s, func(ctx context.Context, tx repository.Tx) error {
		list, err := tx.Sets().ListByMicrocycle(ctx, micros[0])
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, 1, list[0].Position)
		return nil
	})
}

func testRollback(t *testing.T, s repository.Store) {
	mesoID, micros := seedMesocycle(t, s, 1)
	err := s.RunInTransaction(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		tmpl := &domain.ExerciseTemplate{MesocycleID: mesoID, DayNumber: 1, OriginMicrocycleID: micros[0], OriginOrder: 1}
		if err := tx.Templates().Create(ctx, tmpl); err != nil {
			return err
		}
		if err := tx.Slots().Create(ctx, &domain.ExerciseSlot{ExerciseTemplateID: tmpl.ID, MicrocycleID: micros[0], Position: 1}); err != nil {
			return err
		}
		return errAbort
	})
	require.ErrorIs(t, err, errAbort)

	read(t, s, func(ctx context.Context, tx repository.Tx) error {
		list, err := tx.Templates().ListByMesocycle(ctx, mesoID)
		require.NoError(t, err)
		assert.Empty(t, list, "a failed transaction leaves nothing behind")
		slots, err := tx.Slots().ListByMicrocycle(ctx, micros[0])
		require.NoError(t, err)
		assert.Empty(t, slots)
		return nil
	})
}
