// internal/domain/set.go
package domain

import (
	"strconv"
	"time"
)

// SetStatus tracks the lifecycle of a prescribed set.
type SetStatus string

const (
	SetPending   SetStatus = "pending"
	SetCompleted SetStatus = "completed"
	SetFailed    SetStatus = "failed"
	SetSkipped   SetStatus = "skipped"
)

// Valid reports whether s is a known status.
func (s SetStatus) Valid() bool {
	switch s {
	case SetPending, SetCompleted, SetFailed, SetSkipped:
		return true
	}
	return false
}

// SetInstance is a concrete set of one exercise in one microcycle. Position is
// stable: the set at position p in microcycle N is the analogous set of
// position p in microcycle N+1.
type SetInstance struct {
	ID                 string           `bson:"_id" json:"id"`
	ExerciseTemplateID string           `bson:"exerciseTemplateId" json:"exerciseTemplateId"`
	MicrocycleID       string           `bson:"microcycleId" json:"microcycleId"`
	Position           int              `bson:"position" json:"position"`
	Reps               *int             `bson:"reps,omitempty" json:"reps,omitempty"`
	Load               *float64         `bson:"load,omitempty" json:"load,omitempty"` // kg
	ExpectedRIR        *string          `bson:"expectedRir,omitempty" json:"expectedRir,omitempty"`
	IsAmrap            bool             `bson:"isAmrap" json:"isAmrap"`
	AmrapInstruction   string           `bson:"amrapInstruction,omitempty" json:"amrapInstruction,omitempty"`
	AmrapNotes         string           `bson:"amrapNotes,omitempty" json:"amrapNotes,omitempty"`
	Status             SetStatus        `bson:"status" json:"status"`
	IsExtra            bool             `bson:"isExtra" json:"isExtra"`
	// LocalEdits holds, per field, the value a this-only edit replaced.
	LocalEdits         map[Field]string `bson:"localEdits,omitempty" json:"-"`
	CreatedAt          time.Time        `bson:"createdAt" json:"createdAt"`
	UpdatedAt          time.Time        `bson:"updatedAt" json:"updatedAt"`
}

// SetSpec is the prescription used to create a SetInstance.
type SetSpec struct {
	Reps             *int     `json:"reps,omitempty" yaml:"reps,omitempty"`
	Load             *float64 `json:"load,omitempty" yaml:"load,omitempty"`
	ExpectedRIR      *string  `json:"expectedRir,omitempty" yaml:"expectedRir,omitempty"`
	IsAmrap          bool     `json:"isAmrap,omitempty" yaml:"isAmrap,omitempty"`
	AmrapInstruction string   `json:"amrapInstruction,omitempty" yaml:"amrapInstruction,omitempty"`
	AmrapNotes       string   `json:"amrapNotes,omitempty" yaml:"amrapNotes,omitempty"`
	IsExtra          bool     `json:"isExtra,omitempty" yaml:"isExtra,omitempty"`
}

// Spec returns the prescription carried by the set, without tracking state.
func (s *SetInstance) Spec() SetSpec {
	return SetSpec{
		Reps:             cloneInt(s.Reps),
		Load:             cloneFloat(s.Load),
		ExpectedRIR:      cloneString(s.ExpectedRIR),
		IsAmrap:          s.IsAmrap,
		AmrapInstruction: s.AmrapInstruction,
		AmrapNotes:       s.AmrapNotes,
		IsExtra:          s.IsExtra,
	}
}

// CarriedSpec is the prescription later microcycles inherit: Spec with every
// this-only edit rolled back.
func (s *SetInstance) CarriedSpec() SetSpec {
	if len(s.LocalEdits) == 0 {
		return s.Spec()
	}
	c := *s
	c.LocalEdits = nil
	for f, v := range s.LocalEdits {
		_, _ = c.SetField(f, v)
	}
	return c.Spec()
}

// NewSetInstance builds a pending set from a spec.
func NewSetInstance(templateID, microcycleID string, position int, spec SetSpec) SetInstance {
	return SetInstance{
		ExerciseTemplateID: templateID,
		MicrocycleID:       microcycleID,
		Position:           position,
		Reps:               cloneInt(spec.Reps),
		Load:               cloneFloat(spec.Load),
		ExpectedRIR:        cloneString(spec.ExpectedRIR),
		IsAmrap:            spec.IsAmrap,
		AmrapInstruction:   spec.AmrapInstruction,
		AmrapNotes:         spec.AmrapNotes,
		IsExtra:            spec.IsExtra,
		Status:             SetPending,
	}
}

// FieldValue returns the normalized string form of a set field.
func (s *SetInstance) FieldValue(f Field) string {
	switch f {
	case FieldSetReps:
		if s.Reps == nil {
			return ""
		}
		return strconv.Itoa(*s.Reps)
	case FieldSetLoad:
		if s.Load == nil {
			return ""
		}
		return strconv.FormatFloat(*s.Load, 'f', -1, 64)
	case FieldSetExpectedRIR:
		if s.ExpectedRIR == nil {
			return ""
		}
		return *s.ExpectedRIR
	case FieldSetIsAmrap:
		return strconv.FormatBool(s.IsAmrap)
	case FieldSetAmrapInstruction:
		return s.AmrapInstruction
	case FieldSetAmrapNotes:
		return s.AmrapNotes
	case FieldSetStatus:
		return string(s.Status)
	}
	return ""
}

// SetField writes a normalized value into the set. It returns false when the
// set already holds that value.
func (s *SetInstance) SetField(f Field, value string) (bool, error) {
	if f.Level() != LevelSet {
		return false, ErrUnknownField
	}
	if s.FieldValue(f) == value {
		return false, nil
	}
	switch f {
	case FieldSetReps:
		if value == "" {
			s.Reps = nil
			break
		}
		n, err := strconv.Atoi(value)
		if err != nil {
			return false, ErrInvalidValue
		}
		s.Reps = &n
	case FieldSetLoad:
		if value == "" {
			s.Load = nil
			break
		}
		n, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return false, ErrInvalidValue
		}
		s.Load = &n
	case FieldSetExpectedRIR:
		if value == "" {
			s.ExpectedRIR = nil
			break
		}
		v := value
		s.ExpectedRIR = &v
	case FieldSetIsAmrap:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return false, ErrInvalidValue
		}
		s.IsAmrap = b
	case FieldSetAmrapInstruction:
		s.AmrapInstruction = value
	case FieldSetAmrapNotes:
		s.AmrapNotes = value
	case FieldSetStatus:
		s.Status = SetStatus(value)
	}
	return true, nil
}

// SetLocal writes value as an edit of this set alone. The first local edit of
// a field remembers the value it replaced; writing that value back drops the
// marker again. Status is always local and never marked.
func (s *SetInstance) SetLocal(f Field, value string) (bool, error) {
	prior := s.FieldValue(f)
	changed, err := s.SetField(f, value)
	if err != nil || !changed || f == FieldSetStatus {
		return changed, err
	}
	orig, marked := s.LocalEdits[f]
	switch {
	case !marked:
		if s.LocalEdits == nil {
			s.LocalEdits = make(map[Field]string)
		}
		s.LocalEdits[f] = prior
	case orig == value:
		s.dropLocal(f)
	}
	return true, nil
}

// SetCarried writes value as the value later microcycles inherit, replacing
// any local edit of the field.
func (s *SetInstance) SetCarried(f Field, value string) (bool, error) {
	changed, err := s.SetField(f, value)
	if err != nil {
		return false, err
	}
	if _, marked := s.LocalEdits[f]; marked {
		s.dropLocal(f)
		changed = true
	}
	return changed, nil
}

func (s *SetInstance) dropLocal(f Field) {
	delete(s.LocalEdits, f)
	if len(s.LocalEdits) == 0 {
		s.LocalEdits = nil
	}
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
