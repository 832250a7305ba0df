package repository

import (
	"alcyxob/training-planner/internal/domain"
	"context"
)

// Error constants for repository layer
var (
	ErrNotFound     = RepositoryError("not found")
	ErrDuplicateKey = RepositoryError("duplicate key")
	ErrUpdateFailed = RepositoryError("update failed")
	ErrDeleteFailed = RepositoryError("delete failed")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// Store is the transactional entry point to plan data. Every write of one
// logical edit happens inside a single RunInTransaction call: either all of
// its rows are committed or none are.
type Store interface {
	// RunInTransaction executes fn atomically. The ctx passed to fn must be
	// used for every repository call made through tx.
	RunInTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	// View executes fn against a consistent read-only snapshot.
	View(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	Close(ctx context.Context) error
}

// Tx exposes the repositories bound to one transaction.
type Tx interface {
	Plans() PlanRepository
	Templates() ExerciseTemplateRepository
	Slots() ExerciseSlotRepository
	Overrides() OverrideRepository
	Sets() SetRepository
}

// PlanRepository defines the interface for the macro/meso/micro/day hierarchy.
type PlanRepository interface {
	CreateMacrocycle(ctx context.Context, m *domain.Macrocycle) error
	GetMacrocycle(ctx context.Context, id string) (*domain.Macrocycle, error)
	ListMacrocyclesByStudent(ctx context.Context, studentID string) ([]domain.Macrocycle, error)

	CreateMesocycle(ctx context.Context, m *domain.Mesocycle) error
	GetMesocycle(ctx context.Context, id string) (*domain.Mesocycle, error)
	// LockMesocycle takes the backend's lock on the mesocycle row, so writers
	// that change which microcycles or exercises it holds serialize.
	LockMesocycle(ctx context.Context, id string) error
	ListMesocycles(ctx context.Context, macrocycleID string) ([]domain.Mesocycle, error) // Sorted by order

	CreateMicrocycle(ctx context.Context, m *domain.Microcycle) error // ErrDuplicateKey if the order is taken
	GetMicrocycle(ctx context.Context, id string) (*domain.Microcycle, error)
	ListMicrocycles(ctx context.Context, mesocycleID string) ([]domain.Microcycle, error) // Sorted by order

	CreateDay(ctx context.Context, d *domain.Day) error // ErrDuplicateKey if the day number is taken
	ListDays(ctx context.Context, microcycleID string) ([]domain.Day, error) // Sorted by day number
}

// ExerciseTemplateRepository defines the interface for canonical exercise rows.
// GetByID returns soft-deleted templates too; callers decide liveness.
type ExerciseTemplateRepository interface {
	Create(ctx context.Context, t *domain.ExerciseTemplate) error
	GetByID(ctx context.Context, id string) (*domain.ExerciseTemplate, error)
	// GetForUpdate reads the template and takes the backend's row lock so
	// concurrent edits of the same template serialize.
	GetForUpdate(ctx context.Context, id string) (*domain.ExerciseTemplate, error)
	ListByMesocycle(ctx context.Context, mesocycleID string) ([]domain.ExerciseTemplate, error)
	Update(ctx context.Context, t *domain.ExerciseTemplate) error
}

// ExerciseSlotRepository defines the interface for materialized exercise
// associations, unique on (template, microcycle).
type ExerciseSlotRepository interface {
	Create(ctx context.Context, s *domain.ExerciseSlot) error
	Get(ctx context.Context, templateID, microcycleID string) (*domain.ExerciseSlot, error)
	ListByMicrocycle(ctx context.Context, microcycleID string) ([]domain.ExerciseSlot, error) // Sorted by position
	ListByTemplate(ctx context.Context, templateID string) ([]domain.ExerciseSlot, error)
	Delete(ctx context.Context, templateID, microcycleID string) error // Idempotent
}

// OverrideRepository defines the interface for single-microcycle overrides,
// unique on (template, microcycle, field).
type OverrideRepository interface {
	Upsert(ctx context.Context, o *domain.ExerciseOverride) error
	Get(ctx context.Context, templateID, microcycleID string, field domain.Field) (*domain.ExerciseOverride, error)
	ListByMicrocycle(ctx context.Context, microcycleID string) ([]domain.ExerciseOverride, error)
	ListAll(ctx context.Context) ([]domain.ExerciseOverride, error)
	Delete(ctx context.Context, templateID, microcycleID string, field domain.Field) error // Idempotent
	DeleteByIDs(ctx context.Context, ids []string) error
}

// SetRepository defines the interface for concrete sets, unique on
// (template, microcycle, position).
type SetRepository interface {
	Create(ctx context.Context, sets []*domain.SetInstance) error
	GetByID(ctx context.Context, id string) (*domain.SetInstance, error)
	ListByTemplateAndMicrocycle(ctx context.Context, templateID, microcycleID string) ([]domain.SetInstance, error) // Sorted by position
	ListByMicrocycle(ctx context.Context, microcycleID string) ([]domain.SetInstance, error)
	Update(ctx context.Context, s *domain.SetInstance) error
	DeleteByIDs(ctx context.Context, ids []string) error
}
