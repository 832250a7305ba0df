// Package memory provides an in-memory transactional Store. Each transaction
// works on a private clone of the state and swaps it in on success, so a
// failed transaction leaves nothing behind. Writers are serialized.
package memory

import (
	"alcyxob/training-planner/internal/domain"
	"alcyxob/training-planner/internal/repository"
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type state struct {
	macrocycles map[string]domain.Macrocycle
	mesocycles  map[string]domain.Mesocycle
	microcycles map[string]domain.Microcycle
	days        map[string]domain.Day
	templates   map[string]domain.ExerciseTemplate
	slots       map[string]domain.ExerciseSlot     // key: template|microcycle
	overrides   map[string]domain.ExerciseOverride // key: template|microcycle|field
	sets        map[string]domain.SetInstance      // key: id
}

func newState() state {
	return state{
		macrocycles: map[string]domain.Macrocycle{},
		mesocycles:  map[string]domain.Mesocycle{},
		microcycles: map[string]domain.Microcycle{},
		days:        map[string]domain.Day{},
		templates:   map[string]domain.ExerciseTemplate{},
		slots:       map[string]domain.ExerciseSlot{},
		overrides:   map[string]domain.ExerciseOverride{},
		sets:        map[string]domain.SetInstance{},
	}
}

func (s state) clone() state {
	out := newState()
	for k, v := range s.macrocycles {
		out.macrocycles[k] = v
	}
	for k, v := range s.mesocycles {
		out.mesocycles[k] = v
	}
	for k, v := range s.microcycles {
		out.microcycles[k] = v
	}
	for k, v := range s.days {
		out.days[k] = cloneDay(v)
	}
	for k, v := range s.templates {
		out.templates[k] = cloneTemplate(v)
	}
	for k, v := range s.slots {
		out.slots[k] = v
	}
	for k, v := range s.overrides {
		out.overrides[k] = v
	}
	for k, v := range s.sets {
		out.sets[k] = cloneSet(v)
	}
	return out
}

// Store is the in-memory repository.Store.
type Store struct {
	mu    sync.RWMutex
	state state
	nowFn func() time.Time
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{state: newState(), nowFn: func() time.Time { return time.Now().UTC() }}
}

// RunInTransaction runs fn on a clone of the state and commits it if fn succeeds.
func (s *Store) RunInTransaction(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &tx{state: s.state.clone(), now: s.nowFn()}
	if err := fn(ctx, t); err != nil {
		return err
	}
	s.state = t.state
	return nil
}

// View runs fn on a snapshot; writes made through the snapshot are discarded.
func (s *Store) View(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	s.mu.RLock()
	snapshot := s.state.clone()
	s.mu.RUnlock()
	return fn(ctx, &tx{state: snapshot, now: s.nowFn()})
}

// Close is a no-op.
func (s *Store) Close(context.Context) error { return nil }

type tx struct {
	state state
	now   time.Time
}

func (t *tx) Plans() repository.PlanRepository                 { return planRepo{t} }
func (t *tx) Templates() repository.ExerciseTemplateRepository { return templateRepo{t} }
func (t *tx) Slots() repository.ExerciseSlotRepository         { return slotRepo{t} }
func (t *tx) Overrides() repository.OverrideRepository         { return overrideRepo{t} }
func (t *tx) Sets() repository.SetRepository                   { return setRepo{t} }

func newID(id string) string {
	if id != "" {
		return id
	}
	return uuid.NewString()
}

func cloneDay(d domain.Day) domain.Day {
	if d.Date != nil {
		v := *d.Date
		d.Date = &v
	}
	return d
}

func cloneTemplate(t domain.ExerciseTemplate) domain.ExerciseTemplate {
	if t.RetiredFromOrder != nil {
		v := *t.RetiredFromOrder
		t.RetiredFromOrder = &v
	}
	if t.DeletedAt != nil {
		v := *t.DeletedAt
		t.DeletedAt = &v
	}
	if t.Revisions != nil {
		t.Revisions = append([]domain.TemplateRevision(nil), t.Revisions...)
	}
	if t.SetTombstones != nil {
		t.SetTombstones = append([]domain.SetTombstone(nil), t.SetTombstones...)
	}
	return t
}

func cloneSet(s domain.SetInstance) domain.SetInstance {
	if s.Reps != nil {
		v := *s.Reps
		s.Reps = &v
	}
	if s.Load != nil {
		v := *s.Load
		s.Load = &v
	}
	if s.ExpectedRIR != nil {
		v := *s.ExpectedRIR
		s.ExpectedRIR = &v
	}
	if s.LocalEdits != nil {
		m := make(map[domain.Field]string, len(s.LocalEdits))
		for f, v := range s.LocalEdits {
			m[f] = v
		}
		s.LocalEdits = m
	}
	return s
}
