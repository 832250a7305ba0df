package engine

import (
	"alcyxob/training-planner/internal/domain"
	"alcyxob/training-planner/internal/repository"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errDiskFull = errors.New("disk full")

// failingStore lets a fixed number of set updates and slot creations through
// and then fails every following one.
type failingStore struct {
	repository.Store
	mu     sync.Mutex
	budget int
}

func (s *failingStore) RunInTransaction(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	return s.Store.RunInTransaction(ctx, func(ctx context.Context, tx repository.Tx) error {
		return fn(ctx, &failingTx{Tx: tx, store: s})
	})
}

func (s *failingStore) spend() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.budget == 0 {
		return errDiskFull
	}
	s.budget--
	return nil
}

type failingTx struct {
	repository.Tx
	store *failingStore
}

func (t *failingTx) Sets() repository.SetRepository {
	return failingSets{SetRepository: t.Tx.Sets(), store: t.store}
}

func (t *failingTx) Slots() repository.ExerciseSlotRepository {
	return failingSlots{ExerciseSlotRepository: t.Tx.Slots(), store: t.store}
}

type failingSets struct {
	repository.SetRepository
	store *failingStore
}

func (r failingSets) Update(ctx context.Context, s *domain.SetInstance) error {
	if err := r.store.spend(); err != nil {
		return err
	}
	return r.SetRepository.Update(ctx, s)
}

type failingSlots struct {
	repository.ExerciseSlotRepository
	store *failingStore
}

func (r failingSlots) Create(ctx context.Context, s *domain.ExerciseSlot) error {
	if err := r.store.spend(); err != nil {
		return err
	}
	return r.ExerciseSlotRepository.Create(ctx, s)
}

// vanishingStore reports one template as deleted when it is locked, as if a
// delete committed between listing and locking.
type vanishingStore struct {
	repository.Store
	templateID string
}

func (s *vanishingStore) RunInTransaction(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	return s.Store.RunInTransaction(ctx, func(ctx context.Context, tx repository.Tx) error {
		return fn(ctx, &vanishingTx{Tx: tx, templateID: s.templateID})
	})
}

type vanishingTx struct {
	repository.Tx
	templateID string
}

func (t *vanishingTx) Templates() repository.ExerciseTemplateRepository {
	return vanishingTemplates{ExerciseTemplateRepository: t.Tx.Templates(), templateID: t.templateID}
}

type vanishingTemplates struct {
	repository.ExerciseTemplateRepository
	templateID string
}

func (r vanishingTemplates) GetForUpdate(ctx context.Context, id string) (*domain.ExerciseTemplate, error) {
	tmpl, err := r.ExerciseTemplateRepository.GetForUpdate(ctx, id)
	if err == nil && id == r.templateID {
		now := time.Now().UTC()
		tmpl.DeletedAt = &now
	}
	return tmpl, err
}

func TestFailedEditLeavesNoPartialWrites(t *testing.T) {
	f := newFixture(t, 3)
	ex := f.addExercise(1, domain.ScopeFromHereForward, 2)
	before := []*ExerciseView{f.view(ex, 1), f.view(ex, 2), f.view(ex, 3)}

	failing := &failingStore{Store: f.store, budget: 1}
	eng := New(failing)
	_, err := eng.ApplyEdit(f.ctx, EditCommand{
		Target:             SetRef{ExerciseID: ex, Position: 1},
		Field:              domain.FieldSetLoad,
		Value:              "80",
		Scope:              domain.ScopeFromHereForward,
		OriginMicrocycleID: f.id(1),
	})
	require.Error(t, err)
	var storageErr *StorageError
	require.ErrorAs(t, err, &storageErr)
	assert.ErrorIs(t, err, errDiskFull)

	for i, order := range []int{1, 2, 3} {
		assert.Equal(t, before[i], f.view(ex, order))
	}
}

func TestFailedAddLeavesNoTemplate(t *testing.T) {
	f := newFixture(t, 3)
	before := f.counts()

	eng := New(&failingStore{Store: f.store, budget: 2})
	_, err := eng.ApplyAdd(f.ctx, AddCommand{Item: benchPress(2), Scope: domain.ScopeFromHereForward, OriginMicrocycleID: f.id(1)})
	assert.ErrorIs(t, err, errDiskFull)
	assert.Equal(t, before, f.counts())
}

func TestConcurrentEditsOnOneExercise(t *testing.T) {
	f := newFixture(t, 4)
	ex := f.addExercise(1, domain.ScopeFromHereForward, 3)

	var wg sync.WaitGroup
	errs := make(chan error, 40)
	for i := 0; i < 10; i++ {
		wg.Add(4)
		go func() {
			defer wg.Done()
			_, err := f.eng.ApplyEdit(f.ctx, EditCommand{Target: ExerciseRef{ExerciseID: ex}, Field: domain.FieldRepRange, Value: "6-8", Scope: domain.ScopeFromHereForward, OriginMicrocycleID: f.id(2)})
			errs <- err
		}()
		go func() {
			defer wg.Done()
			_, err := f.eng.ApplyEdit(f.ctx, EditCommand{Target: ExerciseRef{ExerciseID: ex}, Field: domain.FieldNotes, Value: "brace", Scope: domain.ScopeThisOnly, OriginMicrocycleID: f.id(3)})
			errs <- err
		}()
		go func() {
			defer wg.Done()
			_, err := f.eng.ApplyEdit(f.ctx, EditCommand{Target: SetRef{ExerciseID: ex, Position: 5}, Field: domain.FieldSetReps, Value: "4", Scope: domain.ScopeFromHereForward, OriginMicrocycleID: f.id(1)})
			errs <- err
		}()
		go func() {
			defer wg.Done()
			_, err := f.eng.MicrocycleView(f.ctx, f.id(4))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	for order := 1; order <= 4; order++ {
		assert.Len(t, f.view(ex, order).Sets, 5)
	}
	assert.Equal(t, "8-10", f.view(ex, 1).RepRange)
	assert.Equal(t, "6-8", f.view(ex, 4).RepRange)
	assert.Equal(t, 1, f.counts().overrides)
}

func TestAppendSkipsTemplateDeletedAfterListing(t *testing.T) {
	f := newFixture(t, 2)
	kept := f.addExercise(1, domain.ScopeFromHereForward, 2)
	gone := f.addExercise(1, domain.ScopeFromHereForward, 2)

	eng := New(&vanishingStore{Store: f.store, templateID: gone})
	res, err := eng.AppendMicrocycle(f.ctx, f.mesoID, "")
	require.NoError(t, err)
	f.micro = append(f.micro, res.Microcycle)

	assert.Equal(t, []string{kept}, res.Materialized)
	assert.True(t, f.present(kept, 3))
	assert.False(t, f.present(gone, 3))
}

func TestConcurrentAddsAndAppends(t *testing.T) {
	f := newFixture(t, 1)

	var wg sync.WaitGroup
	errs := make(chan error, 9)
	added := make(chan string, 6)
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := f.eng.ApplyAdd(f.ctx, AddCommand{Item: benchPress(2), Scope: domain.ScopeFromHereForward, OriginMicrocycleID: f.id(1)})
			errs <- err
			if err == nil {
				added <- res.ExerciseID
			}
		}()
	}
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.eng.AppendMicrocycle(f.ctx, f.mesoID, "")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	close(added)
	for err := range errs {
		require.NoError(t, err)
	}

	err := f.store.View(f.ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		f.micro, err = tx.Plans().ListMicrocycles(ctx, f.mesoID)
		return err
	})
	require.NoError(t, err)
	require.Len(t, f.micro, 4)
	for ex := range added {
		for order := 1; order <= 4; order++ {
			assert.Equal(t, []int{1, 2}, f.positions(ex, order), "exercise %s in week %d", ex, order)
		}
	}
}

func TestPlanHierarchyRanges(t *testing.T) {
	f := newFixture(t, 3)
	err := f.store.View(f.ctx, func(ctx context.Context, tx repository.Tx) error {
		h := NewPlanHierarchy(tx)

		ordered, err := h.OrderedMicrocycles(ctx, f.mesoID)
		require.NoError(t, err)
		require.Len(t, ordered, 3)
		assert.Equal(t, f.id(1), ordered[0].ID)

		forward, err := h.MicrocyclesFrom(ctx, f.id(2), AllForward)
		require.NoError(t, err)
		require.Len(t, forward, 2)
		assert.Equal(t, f.id(2), forward[0].ID)
		assert.Equal(t, f.id(3), forward[1].ID)

		next, err := h.MicrocyclesFrom(ctx, f.id(2), NextOnly)
		require.NoError(t, err)
		require.Len(t, next, 1)
		assert.Equal(t, f.id(3), next[0].ID)

		last, err := h.MicrocyclesFrom(ctx, f.id(3), NextOnly)
		require.NoError(t, err)
		assert.Empty(t, last)

		_, err = h.MicrocyclesFrom(ctx, "unknown", AllForward)
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = h.OrderedMicrocycles(ctx, "unknown")
		assert.ErrorIs(t, err, ErrNotFound)
		return nil
	})
	require.NoError(t, err)
}

func TestTemplateStoreOperations(t *testing.T) {
	f := newFixture(t, 3)
	ex := f.addExercise(2, domain.ScopeFromHereForward, 1)

	err := f.store.RunInTransaction(f.ctx, func(ctx context.Context, tx repository.Tx) error {
		ts := NewTemplateStore(tx)

		_, err := ts.UpdateTemplateField(ctx, ex, domain.FieldRepRange, "6-8", f.micro[0])
		assert.ErrorIs(t, err, ErrNotFound, "cannot revise before the origin")

		changed, err := ts.UpdateTemplateField(ctx, ex, domain.FieldRepRange, "6-8", f.micro[2])
		require.NoError(t, err)
		assert.True(t, changed)
		changed, err = ts.UpdateTemplateField(ctx, ex, domain.FieldRepRange, "6-8", f.micro[2])
		require.NoError(t, err)
		assert.False(t, changed)

		sets, err := ts.CreateSetInstances(ctx, ex, f.id(2), specs(2))
		require.NoError(t, err)
		require.Len(t, sets, 2)
		assert.Equal(t, 2, sets[0].Position)
		assert.Equal(t, 3, sets[1].Position)
		none, err := ts.CreateSetInstances(ctx, ex, f.id(2), nil)
		require.NoError(t, err)
		assert.Empty(t, none)

		require.NoError(t, ts.DeleteTemplate(ctx, ex))
		require.NoError(t, ts.DeleteTemplate(ctx, ex))
		require.NoError(t, ts.DeleteTemplate(ctx, "never-existed"))
		_, err = ts.GetExerciseTemplate(ctx, ex)
		assert.ErrorIs(t, err, ErrNotFound)
		return nil
	})
	require.NoError(t, err)
}

func TestOverrideStoreIsIdempotent(t *testing.T) {
	f := newFixture(t, 1)
	ex := f.addExercise(1, domain.ScopeThisOnly, 0)

	err := f.store.RunInTransaction(f.ctx, func(ctx context.Context, tx repository.Tx) error {
		ovs := NewOverrideStore(tx)
		require.NoError(t, ovs.SetOverride(ctx, ex, f.id(1), domain.FieldNotes, "slow eccentric"))
		require.NoError(t, ovs.SetOverride(ctx, ex, f.id(1), domain.FieldNotes, "slow eccentric"))
		v, ok, err := ovs.GetOverride(ctx, ex, f.id(1), domain.FieldNotes)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "slow eccentric", v)

		assert.ErrorIs(t, ovs.SetOverride(ctx, ex, f.id(1), domain.FieldSetLoad, "10"), ErrInvalidField)

		require.NoError(t, ovs.ClearOverride(ctx, ex, f.id(1), domain.FieldNotes))
		require.NoError(t, ovs.ClearOverride(ctx, ex, f.id(1), domain.FieldNotes))
		_, ok, err = ovs.GetOverride(ctx, ex, f.id(1), domain.FieldNotes)
		require.NoError(t, err)
		assert.False(t, ok)
		return nil
	})
	require.NoError(t, err)
}

func TestKeyedMutexSerializesPerKey(t *testing.T) {
	k := newKeyedMutex()
	unlockA := k.Lock("a")

	acquired := make(chan struct{})
	released := make(chan struct{})
	go func() {
		unlock := k.Lock("a")
		close(acquired)
		unlock()
		close(released)
	}()

	// Other keys are not blocked.
	unlockB := k.Lock("b")
	unlockB()

	select {
	case <-acquired:
		t.Fatal("second holder acquired a locked key")
	case <-time.After(20 * time.Millisecond):
	}
	unlockA()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("lock was never released")
	}
	<-released

	k.mu.Lock()
	defer k.mu.Unlock()
	assert.Empty(t, k.locks)
}
