package engine

import "alcyxob/training-planner/internal/domain"

// Target is what an edit or delete points at: an ExerciseRef or a SetRef.
type Target interface {
	isTarget()
}

// ExerciseRef targets an exercise template.
type ExerciseRef struct {
	ExerciseID string
}

// SetRef targets a set, either by instance id or by exercise and position.
// A set's position is shared by its analogues in other microcycles.
type SetRef struct {
	SetID      string
	ExerciseID string
	Position   int
}

func (ExerciseRef) isTarget() {}
func (SetRef) isTarget()      {}

// Addition is what ApplyAdd creates: an AddExercise or an AddSet.
type Addition interface {
	isAddition()
}

// AddExercise creates a new exercise template on a day number. ID is
// optional; supplying one makes the add safe to retry.
type AddExercise struct {
	ID                string
	DayNumber         int
	MuscleGroup       string
	CatalogExerciseID string
	RepRange          string
	ExpectedRIR       string
	RestMinutes       float64
	Notes             string
	Sets              []domain.SetSpec
}

// AddSet appends a set to an existing exercise.
type AddSet struct {
	ExerciseID string
	Spec       domain.SetSpec
}

func (AddExercise) isAddition() {}
func (AddSet) isAddition()      {}

type EditCommand struct {
	Target             Target
	Field              domain.Field
	Value              string
	Scope              domain.Scope
	OriginMicrocycleID string
}

type AddCommand struct {
	Item               Addition
	Scope              domain.Scope
	OriginMicrocycleID string
}

type DeleteCommand struct {
	Target             Target
	Scope              domain.Scope
	OriginMicrocycleID string
}

// Value sources reported per microcycle.
const (
	SourceTemplate = "template"
	SourceOverride = "override"
	SourceSet      = "set"
)

// AffectedMicrocycle is one microcycle reached by an edit or add.
type AffectedMicrocycle struct {
	MicrocycleID string `json:"microcycleId"`
	Order        int    `json:"order"`
	// Source is where the edited value is read from after the call.
	Source string `json:"source"`
	SetID  string `json:"setId,omitempty"`
}

// EditResult describes the state an edit or add leaves behind. Applying the
// same command again yields an equal result.
type EditResult struct {
	Scope             domain.Scope         `json:"scope"`
	ExerciseID        string               `json:"exerciseId"`
	Field             domain.Field         `json:"field,omitempty"`
	Value             string               `json:"value,omitempty"`
	Position          int                  `json:"position,omitempty"`
	Affected          []AffectedMicrocycle `json:"affected"`
	RetainedOverrides []string             `json:"retainedOverrides,omitempty"`
}

// RemovedRow is what a delete removed from one microcycle.
type RemovedRow struct {
	MicrocycleID string   `json:"microcycleId"`
	Order        int      `json:"order"`
	SetIDs       []string `json:"setIds,omitempty"`
	Slot         bool     `json:"slot"`
}

type DeleteResult struct {
	Scope           domain.Scope `json:"scope"`
	ExerciseID      string       `json:"exerciseId"`
	Position        int          `json:"position,omitempty"`
	Removed         []RemovedRow `json:"removed"`
	Tombstoned      bool         `json:"tombstoned"`
	TemplateDeleted bool         `json:"templateDeleted"`
}
