// Package engine implements temporal propagation of training prescriptions.
//
// An exercise is one ExerciseTemplate row interpreted from its origin
// microcycle forward. Forward edits revise the template from a given order,
// so microcycles before the origin of an edit never change. Single-microcycle
// edits are stored as overrides that shadow one field in one microcycle. Sets
// are concrete rows per microcycle, linked across microcycles by position.
package engine

import (
	"alcyxob/training-planner/internal/logger"
	"alcyxob/training-planner/internal/repository"
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "alcyxob/training-planner/internal/engine"

// Engine applies edits, adds and deletes against a Store. Each call runs in a
// single transaction; calls on the same exercise are serialized.
type Engine struct {
	store           repository.Store
	log             *logger.Logger
	locks           *keyedMutex
	strictOverrides bool
	tracer          trace.Tracer
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l.With("component", "engine")
		}
	}
}

// WithStrictOverrides makes forward edits fail with ErrConflictingOverride
// instead of silently keeping overrides in range.
func WithStrictOverrides(strict bool) Option {
	return func(e *Engine) { e.strictOverrides = strict }
}

// New creates an engine on top of store.
func New(store repository.Store, opts ...Option) *Engine {
	e := &Engine{
		store:  store,
		log:    logger.Nop(),
		locks:  newKeyedMutex(),
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return e.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func mesocycleKey(id string) string { return "mesocycle:" + id }

// originMesocycle returns the mesocycle of a microcycle, so adds can be
// serialized with appends before the transaction starts.
func (e *Engine) originMesocycle(ctx context.Context, microcycleID string) (string, error) {
	var mesocycleID string
	err := e.store.View(ctx, func(ctx context.Context, tx repository.Tx) error {
		m, err := NewPlanHierarchy(tx).Microcycle(ctx, microcycleID)
		if err != nil {
			return err
		}
		mesocycleID = m.MesocycleID
		return nil
	})
	return mesocycleID, err
}

// targetExercise returns the exercise a target belongs to, so the call can
// be serialized on it before the transaction starts.
func (e *Engine) targetExercise(ctx context.Context, target Target) (string, error) {
	switch t := target.(type) {
	case ExerciseRef:
		if t.ExerciseID == "" {
			return "", notFound("exercise id is empty")
		}
		return t.ExerciseID, nil
	case SetRef:
		if t.ExerciseID != "" {
			if t.SetID == "" && t.Position < 1 {
				return "", notFound("set position %d", t.Position)
			}
			return t.ExerciseID, nil
		}
		if t.SetID == "" {
			return "", notFound("set reference is empty")
		}
		var exerciseID string
		err := e.store.View(ctx, func(ctx context.Context, tx repository.Tx) error {
			s, err := tx.Sets().GetByID(ctx, t.SetID)
			if err != nil {
				return classify("get set", err)
			}
			exerciseID = s.ExerciseTemplateID
			return nil
		})
		return exerciseID, err
	}
	return "", notFound("no target")
}
