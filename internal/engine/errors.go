package engine

import (
	"alcyxob/training-planner/internal/domain"
	"alcyxob/training-planner/internal/repository"
	"errors"
	"fmt"
	"strings"
)

// --- Error Definitions ---
var (
	ErrNotFound            = errors.New("target not found")
	ErrInvalidScope        = errors.New("scope not valid for this target")
	ErrInvalidValue        = domain.ErrInvalidValue
	ErrInvalidField        = domain.ErrUnknownField
	ErrConflictingOverride = errors.New("overrides in range would shadow the edit")
)

// StorageError wraps a backend failure. The underlying error is kept as is.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage failure during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// ConflictingOverrideError lists the microcycles whose override of Field
// would survive a forward edit. It matches ErrConflictingOverride.
type ConflictingOverrideError struct {
	Field         domain.Field
	MicrocycleIDs []string
}

func (e *ConflictingOverrideError) Error() string {
	return fmt.Sprintf("%s: field %s overridden in microcycles [%s]",
		ErrConflictingOverride, e.Field, strings.Join(e.MicrocycleIDs, ", "))
}

func (e *ConflictingOverrideError) Is(target error) bool {
	return target == ErrConflictingOverride
}

func notFound(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

func invalidScope(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidScope, fmt.Sprintf(format, args...))
}

// classify maps repository errors onto the engine taxonomy. Errors that are
// already engine errors pass through untouched.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrInvalidScope),
		errors.Is(err, ErrInvalidValue),
		errors.Is(err, ErrInvalidField),
		errors.Is(err, ErrConflictingOverride),
		errors.As(err, &se):
		return err
	case errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("%w: %s", ErrNotFound, op)
	}
	return &StorageError{Op: op, Err: err}
}
