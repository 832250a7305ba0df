// internal/domain/field.go
package domain

import (
	"errors"
	"strconv"
	"strings"
)

var (
	ErrUnknownField = errors.New("unknown prescription field")
	ErrInvalidValue = errors.New("invalid value for field")
)

// Field names an editable prescription field.
type Field string

// Exercise-level fields live on the template and may be overridden per microcycle.
const (
	FieldRepRange    Field = "repRange"
	FieldExpectedRIR Field = "expectedRir"
	FieldRestMinutes Field = "restMinutes"
	FieldMuscleGroup Field = "muscleGroup"
	FieldNotes       Field = "notes"
)

// Set-level fields live on concrete SetInstance rows only.
const (
	FieldSetReps             Field = "reps"
	FieldSetLoad             Field = "load"
	FieldSetExpectedRIR      Field = "setExpectedRir"
	FieldSetIsAmrap          Field = "isAmrap"
	FieldSetAmrapInstruction Field = "amrapInstruction"
	FieldSetAmrapNotes       Field = "amrapNotes"
	FieldSetStatus           Field = "status"
)

// FieldLevel tells whether a field belongs to the exercise or to a set.
type FieldLevel int

const (
	LevelUnknown FieldLevel = iota
	LevelExercise
	LevelSet
)

// ExerciseFields lists the exercise-level fields in display order.
var ExerciseFields = []Field{FieldRepRange, FieldExpectedRIR, FieldRestMinutes, FieldMuscleGroup, FieldNotes}

// Level returns the level of f, or LevelUnknown.
func (f Field) Level() FieldLevel {
	switch f {
	case FieldRepRange, FieldExpectedRIR, FieldRestMinutes, FieldMuscleGroup, FieldNotes:
		return LevelExercise
	case FieldSetReps, FieldSetLoad, FieldSetExpectedRIR, FieldSetIsAmrap,
		FieldSetAmrapInstruction, FieldSetAmrapNotes, FieldSetStatus:
		return LevelSet
	}
	return LevelUnknown
}

// ParseField validates a field name.
func ParseField(s string) (Field, error) {
	f := Field(strings.TrimSpace(s))
	if f.Level() == LevelUnknown {
		return "", ErrUnknownField
	}
	return f, nil
}

// NormalizeValue validates raw for f and returns its canonical string form.
// Two values that mean the same thing normalize to the same string, which is
// what makes re-applying an edit a no-op.
func NormalizeValue(f Field, raw string) (string, error) {
	v := strings.TrimSpace(raw)
	switch f {
	case FieldRepRange, FieldMuscleGroup:
		if v == "" {
			return "", ErrInvalidValue
		}
		return v, nil
	case FieldExpectedRIR, FieldNotes, FieldSetExpectedRIR, FieldSetAmrapInstruction, FieldSetAmrapNotes:
		return v, nil
	case FieldRestMinutes:
		n, err := strconv.ParseFloat(v, 64)
		if err != nil || n < 0 {
			return "", ErrInvalidValue
		}
		return strconv.FormatFloat(n, 'f', -1, 64), nil
	case FieldSetReps:
		if v == "" {
			return "", nil
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return "", ErrInvalidValue
		}
		return strconv.Itoa(n), nil
	case FieldSetLoad:
		if v == "" {
			return "", nil
		}
		n, err := strconv.ParseFloat(v, 64)
		if err != nil || n < 0 {
			return "", ErrInvalidValue
		}
		return strconv.FormatFloat(n, 'f', -1, 64), nil
	case FieldSetIsAmrap:
		b, err := strconv.ParseBool(v)
		if err != nil {
			return "", ErrInvalidValue
		}
		return strconv.FormatBool(b), nil
	case FieldSetStatus:
		if !SetStatus(v).Valid() {
			return "", ErrInvalidValue
		}
		return v, nil
	}
	return "", ErrUnknownField
}
