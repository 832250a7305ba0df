package service

import (
	"alcyxob/training-planner/internal/domain"
	"alcyxob/training-planner/internal/engine"
	"alcyxob/training-planner/internal/logger"
	"alcyxob/training-planner/internal/observability"
	"alcyxob/training-planner/internal/repository"
	"alcyxob/training-planner/internal/storage"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// --- Error Definitions ---
var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrMacrocycleNotFound = errors.New("macrocycle not found")
	ErrMesocycleNotFound  = errors.New("mesocycle not found")
	ErrMicrocycleNotFound = errors.New("microcycle not found")
	ErrDayExists          = errors.New("day number already exists in microcycle")
	ErrExportDisabled     = errors.New("plan export requires object storage")
)

// MacrocycleDetail is a macrocycle with its ordered mesocycles.
type MacrocycleDetail struct {
	domain.Macrocycle
	Mesocycles []domain.Mesocycle `json:"mesocycles"`
}

// --- Service Interface ---
type PlanService interface {
	// Hierarchy management
	CreateMacrocycle(ctx context.Context, coachID, studentID, name string) (*domain.Macrocycle, error)
	GetMacrocycle(ctx context.Context, id string) (*MacrocycleDetail, error)
	ListMacrocycles(ctx context.Context, studentID string) ([]domain.Macrocycle, error)
	CreateMesocycle(ctx context.Context, macrocycleID, name string) (*domain.Mesocycle, error)
	AppendMicrocycle(ctx context.Context, mesocycleID, name string) (*engine.AppendResult, error)
	ListMicrocycles(ctx context.Context, mesocycleID string) ([]domain.Microcycle, error)
	AddDay(ctx context.Context, microcycleID string, dayNumber int, isRestDay bool, date *time.Time) (*domain.Day, error)

	// Effective reads
	MicrocycleView(ctx context.Context, microcycleID string) (*engine.MicrocycleView, error)

	// Propagating edits
	ApplyEdit(ctx context.Context, cmd engine.EditCommand) (*engine.EditResult, error)
	ApplyAdd(ctx context.Context, cmd engine.AddCommand) (*engine.EditResult, error)
	DeleteEdit(ctx context.Context, cmd engine.DeleteCommand) (*engine.DeleteResult, error)

	// Maintenance
	CollectOrphanedOverrides(ctx context.Context) (int, error)
	ExportMacrocycle(ctx context.Context, macrocycleID string) (*domain.PlanExport, error)
}

// --- Service Implementation ---

// planService implements the PlanService interface.
type planService struct {
	store         repository.Store
	engine        *engine.Engine
	fileStorage   storage.FileStorage // nil disables export
	exportPrefix  string
	presignExpiry time.Duration
	log           *logger.Logger
}

// ExportOptions configures where exports are written.
type ExportOptions struct {
	Prefix        string
	PresignExpiry time.Duration
}

// NewPlanService creates a new instance of planService. fileStorage may be nil.
func NewPlanService(
	store repository.Store,
	eng *engine.Engine,
	fileStorage storage.FileStorage,
	exportOpts ExportOptions,
	baseLog *logger.Logger,
) PlanService {
	if baseLog == nil {
		baseLog = logger.Nop()
	}
	prefix := strings.Trim(exportOpts.Prefix, "/")
	if prefix == "" {
		prefix = "exports"
	}
	return &planService{
		store:         store,
		engine:        eng,
		fileStorage:   fileStorage,
		exportPrefix:  prefix,
		presignExpiry: exportOpts.PresignExpiry,
		log:           baseLog.With("service", "PlanService"),
	}
}

// === Hierarchy Management ===

func (s *planService) CreateMacrocycle(ctx context.Context, coachID, studentID, name string) (*domain.Macrocycle, error) {
	name = strings.TrimSpace(name)
	if studentID == "" || name == "" {
		return nil, fmt.Errorf("%w: student id and name are required", ErrInvalidInput)
	}
	m := &domain.Macrocycle{Name: name, StudentID: studentID, CoachID: coachID}
	err := s.store.RunInTransaction(ctx, func(ctx context.Context, tx repository.Tx) error {
		return tx.Plans().CreateMacrocycle(ctx, m)
	})
	if err != nil {
		s.log.Error("Failed to create macrocycle", "student", studentID, "error", err)
		return nil, err
	}
	s.log.Info("Macrocycle created", "macrocycle", m.ID, "student", studentID, "coach", coachID)
	return m, nil
}

func (s *planService) GetMacrocycle(ctx context.Context, id string) (*MacrocycleDetail, error) {
	var detail *MacrocycleDetail
	err := s.store.View(ctx, func(ctx context.Context, tx repository.Tx) error {
		m, err := tx.Plans().GetMacrocycle(ctx, id)
		if err != nil {
			return err
		}
		mesos, err := tx.Plans().ListMesocycles(ctx, id)
		if err != nil {
			return err
		}
		detail = &MacrocycleDetail{Macrocycle: *m, Mesocycles: mesos}
		return nil
	})
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrMacrocycleNotFound
	}
	if err != nil {
		return nil, err
	}
	return detail, nil
}

func (s *planService) ListMacrocycles(ctx context.Context, studentID string) ([]domain.Macrocycle, error) {
	if studentID == "" {
		return nil, fmt.Errorf("%w: student id is required", ErrInvalidInput)
	}
	var out []domain.Macrocycle
	err := s.store.View(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		out, err = tx.Plans().ListMacrocyclesByStudent(ctx, studentID)
		return err
	})
	return out, err
}

// CreateMesocycle appends a mesocycle after the last one of the macrocycle.
func (s *planService) CreateMesocycle(ctx context.Context, macrocycleID, name string) (*domain.Mesocycle, error) {
	var meso *domain.Mesocycle
	err := s.store.RunInTransaction(ctx, func(ctx context.Context, tx repository.Tx) error {
		if _, err := tx.Plans().GetMacrocycle(ctx, macrocycleID); err != nil {
			return err
		}
		existing, err := tx.Plans().ListMesocycles(ctx, macrocycleID)
		if err != nil {
			return err
		}
		order := 1
		if n := len(existing); n > 0 {
			order = existing[n-1].Order + 1
		}
		if strings.TrimSpace(name) == "" {
			name = fmt.Sprintf("Block %d", order)
		}
		meso = &domain.Mesocycle{MacrocycleID: macrocycleID, Name: name, Order: order}
		return tx.Plans().CreateMesocycle(ctx, meso)
	})
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrMacrocycleNotFound
	}
	if err != nil {
		s.log.Error("Failed to create mesocycle", "macrocycle", macrocycleID, "error", err)
		return nil, err
	}
	return meso, nil
}

func (s *planService) AppendMicrocycle(ctx context.Context, mesocycleID, name string) (*engine.AppendResult, error) {
	res, err := s.engine.AppendMicrocycle(ctx, mesocycleID, name)
	if errors.Is(err, engine.ErrNotFound) {
		return nil, ErrMesocycleNotFound
	}
	return res, err
}

func (s *planService) ListMicrocycles(ctx context.Context, mesocycleID string) ([]domain.Microcycle, error) {
	var out []domain.Microcycle
	err := s.store.View(ctx, func(ctx context.Context, tx repository.Tx) error {
		if _, err := tx.Plans().GetMesocycle(ctx, mesocycleID); err != nil {
			return err
		}
		var err error
		out, err = tx.Plans().ListMicrocycles(ctx, mesocycleID)
		return err
	})
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrMesocycleNotFound
	}
	return out, err
}

// AddDay adds a training or rest day to a microcycle. Later microcycles
// appended to the mesocycle inherit the layout.
func (s *planService) AddDay(ctx context.Context, microcycleID string, dayNumber int, isRestDay bool, date *time.Time) (*domain.Day, error) {
	if dayNumber < 1 {
		return nil, fmt.Errorf("%w: day number must be positive", ErrInvalidInput)
	}
	day := &domain.Day{MicrocycleID: microcycleID, DayNumber: dayNumber, IsRestDay: isRestDay, Date: date}
	err := s.store.RunInTransaction(ctx, func(ctx context.Context, tx repository.Tx) error {
		if _, err := tx.Plans().GetMicrocycle(ctx, microcycleID); err != nil {
			return err
		}
		return tx.Plans().CreateDay(ctx, day)
	})
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil, ErrMicrocycleNotFound
	case errors.Is(err, repository.ErrDuplicateKey):
		return nil, ErrDayExists
	case err != nil:
		return nil, err
	}
	return day, nil
}

// === Effective Reads ===

func (s *planService) MicrocycleView(ctx context.Context, microcycleID string) (*engine.MicrocycleView, error) {
	return s.engine.MicrocycleView(ctx, microcycleID)
}

// === Propagating Edits ===

func (s *planService) ApplyEdit(ctx context.Context, cmd engine.EditCommand) (*engine.EditResult, error) {
	started := time.Now()
	res, err := s.engine.ApplyEdit(ctx, cmd)
	affected := 0
	if res != nil {
		affected = len(res.Affected)
	}
	observability.RecordEdit("edit", string(cmd.Scope), resultLabel(err), affected, time.Since(started))
	return res, err
}

func (s *planService) ApplyAdd(ctx context.Context, cmd engine.AddCommand) (*engine.EditResult, error) {
	started := time.Now()
	res, err := s.engine.ApplyAdd(ctx, cmd)
	affected := 0
	if res != nil {
		affected = len(res.Affected)
	}
	observability.RecordEdit("add", string(cmd.Scope), resultLabel(err), affected, time.Since(started))
	return res, err
}

func (s *planService) DeleteEdit(ctx context.Context, cmd engine.DeleteCommand) (*engine.DeleteResult, error) {
	started := time.Now()
	res, err := s.engine.DeleteEdit(ctx, cmd)
	affected := 0
	if res != nil {
		affected = len(res.Removed)
	}
	observability.RecordEdit("delete", string(cmd.Scope), resultLabel(err), affected, time.Since(started))
	return res, err
}

// === Maintenance ===

func (s *planService) CollectOrphanedOverrides(ctx context.Context) (int, error) {
	n, err := s.engine.CollectOrphanedOverrides(ctx)
	if err != nil {
		s.log.Error("Override garbage collection failed", "error", err)
		return 0, err
	}
	observability.RecordOrphansRemoved(n)
	s.log.Info("Override garbage collection finished", "removed", n)
	return n, nil
}

// resultLabel buckets engine errors for metrics.
func resultLabel(err error) string {
	switch {
	case err == nil:
		return observability.ResultOK
	case errors.Is(err, engine.ErrNotFound):
		return observability.ResultNotFound
	case errors.Is(err, engine.ErrConflictingOverride):
		return observability.ResultConflict
	case errors.Is(err, engine.ErrInvalidScope),
		errors.Is(err, engine.ErrInvalidValue),
		errors.Is(err, engine.ErrInvalidField),
		errors.Is(err, domain.ErrScopeRequired),
		errors.Is(err, domain.ErrUnknownScope):
		return observability.ResultInvalid
	}
	return observability.ResultError
}
