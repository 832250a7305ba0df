// internal/domain/exercise.go
package domain

import (
	"sort"
	"strconv"
	"time"
)

// TemplateRevision is a forward edit of one template field, effective for
// every microcycle with order >= FromOrder (until a later revision).
type TemplateRevision struct {
	Field     Field  `bson:"field" json:"field"`
	Value     string `bson:"value" json:"value"`
	FromOrder int    `bson:"fromOrder" json:"fromOrder"`
}

// SetTombstone stops a set position from being materialized at or after FromOrder.
type SetTombstone struct {
	Position  int `bson:"position" json:"position"`
	FromOrder int `bson:"fromOrder" json:"fromOrder"`
}

// ExerciseTemplate is the canonical prescription for an exercise in a day slot,
// interpreted from the microcycle it was created in, forward. It is a single
// row, never duplicated per microcycle.
type ExerciseTemplate struct {
	ID                 string  `bson:"_id" json:"id"`
	MesocycleID        string  `bson:"mesocycleId" json:"mesocycleId"`
	DayNumber          int     `bson:"dayNumber" json:"dayNumber"`
	MuscleGroup        string  `bson:"muscleGroup" json:"muscleGroup"`
	CatalogExerciseID  string  `bson:"catalogExerciseId" json:"catalogExerciseId"` // Opaque id owned by the catalog service
	RepRange           string  `bson:"repRange" json:"repRange"`                   // e.g. "8-10"
	ExpectedRIR        string  `bson:"expectedRir,omitempty" json:"expectedRir,omitempty"`
	RestMinutes        float64 `bson:"restMinutes" json:"restMinutes"`
	Notes              string  `bson:"notes,omitempty" json:"notes,omitempty"`
	OriginMicrocycleID string  `bson:"originMicrocycleId" json:"originMicrocycleId"`
	OriginOrder        int     `bson:"originOrder" json:"originOrder"`
	AddScope           Scope   `bson:"addScope,omitempty" json:"addScope,omitempty"` // Scope of the add that created it

	// RetiredFromOrder is the tombstone: no materialization for order >= it.
	RetiredFromOrder *int               `bson:"retiredFromOrder,omitempty" json:"retiredFromOrder,omitempty"`
	Revisions        []TemplateRevision `bson:"revisions,omitempty" json:"revisions,omitempty"`
	SetTombstones    []SetTombstone     `bson:"setTombstones,omitempty" json:"setTombstones,omitempty"`
	DeletedAt        *time.Time         `bson:"deletedAt,omitempty" json:"deletedAt,omitempty"`
	CreatedAt        time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// IsDeleted reports whether the template was soft deleted.
func (t *ExerciseTemplate) IsDeleted() bool {
	return t.DeletedAt != nil
}

// LiveAt reports whether the template may be materialized at the given order.
func (t *ExerciseTemplate) LiveAt(order int) bool {
	if t.IsDeleted() || order < t.OriginOrder {
		return false
	}
	return t.RetiredFromOrder == nil || order < *t.RetiredFromOrder
}

// Retire moves the tombstone down to order. It never moves it up.
func (t *ExerciseTemplate) Retire(order int) {
	if t.RetiredFromOrder != nil && *t.RetiredFromOrder <= order {
		return
	}
	o := order
	t.RetiredFromOrder = &o
}

// BaseValue returns the canonical (unrevised) value of an exercise field.
func (t *ExerciseTemplate) BaseValue(f Field) string {
	switch f {
	case FieldRepRange:
		return t.RepRange
	case FieldExpectedRIR:
		return t.ExpectedRIR
	case FieldRestMinutes:
		return strconv.FormatFloat(t.RestMinutes, 'f', -1, 64)
	case FieldMuscleGroup:
		return t.MuscleGroup
	case FieldNotes:
		return t.Notes
	}
	return ""
}

func (t *ExerciseTemplate) setBase(f Field, v string) {
	switch f {
	case FieldRepRange:
		t.RepRange = v
	case FieldExpectedRIR:
		t.ExpectedRIR = v
	case FieldRestMinutes:
		n, _ := strconv.ParseFloat(v, 64)
		t.RestMinutes = n
	case FieldMuscleGroup:
		t.MuscleGroup = v
	case FieldNotes:
		t.Notes = v
	}
}

// ValueAt returns the template value of f as seen by a microcycle at order:
// the revision with the greatest FromOrder <= order, else the base value.
func (t *ExerciseTemplate) ValueAt(f Field, order int) string {
	value := t.BaseValue(f)
	best := -1 << 31
	for _, r := range t.Revisions {
		if r.Field == f && r.FromOrder <= order && r.FromOrder >= best {
			best = r.FromOrder
			value = r.Value
		}
	}
	return value
}

// Revise makes value the template value of f for every order >= fromOrder.
// Revisions of f beyond fromOrder are superseded and dropped. When fromOrder is
// the origin the base value is replaced instead. Returns false when the
// template already reads value from fromOrder onward.
func (t *ExerciseTemplate) Revise(f Field, value string, fromOrder int) bool {
	kept := t.Revisions[:0:0]
	changed := false
	for _, r := range t.Revisions {
		if r.Field == f && r.FromOrder > fromOrder {
			changed = true
			continue
		}
		kept = append(kept, r)
	}
	t.Revisions = kept

	if fromOrder <= t.OriginOrder {
		filtered := t.Revisions[:0:0]
		for _, r := range t.Revisions {
			if r.Field == f {
				changed = true
				continue
			}
			filtered = append(filtered, r)
		}
		t.Revisions = filtered
		if t.BaseValue(f) != value {
			t.setBase(f, value)
			changed = true
		}
		return changed
	}

	for i, r := range t.Revisions {
		if r.Field == f && r.FromOrder == fromOrder {
			if r.Value != value {
				t.Revisions[i].Value = value
				changed = true
			}
			return changed
		}
	}
	if t.ValueAt(f, fromOrder) == value {
		return changed
	}
	t.Revisions = append(t.Revisions, TemplateRevision{Field: f, Value: value, FromOrder: fromOrder})
	sort.SliceStable(t.Revisions, func(i, j int) bool { return t.Revisions[i].FromOrder < t.Revisions[j].FromOrder })
	return true
}

// SetPositionRetired reports whether a set position is tombstoned at order.
func (t *ExerciseTemplate) SetPositionRetired(position, order int) bool {
	for _, ts := range t.SetTombstones {
		if ts.Position == position && ts.FromOrder <= order {
			return true
		}
	}
	return false
}

// RetireSetPosition tombstones a set position from order onward.
func (t *ExerciseTemplate) RetireSetPosition(position, order int) bool {
	for i, ts := range t.SetTombstones {
		if ts.Position != position {
			continue
		}
		if ts.FromOrder <= order {
			return false
		}
		t.SetTombstones[i].FromOrder = order
		return true
	}
	t.SetTombstones = append(t.SetTombstones, SetTombstone{Position: position, FromOrder: order})
	return true
}

// ExerciseSlot is the materialized association of a template with one
// microcycle. The exercise appears in a microcycle iff its slot exists.
type ExerciseSlot struct {
	ID                 string    `bson:"_id" json:"id"`
	ExerciseTemplateID string    `bson:"exerciseTemplateId" json:"exerciseTemplateId"`
	MicrocycleID       string    `bson:"microcycleId" json:"microcycleId"`
	DayID              string    `bson:"dayId" json:"dayId"`
	Position           int       `bson:"position" json:"position"` // Ordering inside the day
	CreatedAt          time.Time `bson:"createdAt" json:"createdAt"`
}

// ExerciseOverride shadows one field of one template for exactly one microcycle.
type ExerciseOverride struct {
	ID                 string    `bson:"_id" json:"id"`
	ExerciseTemplateID string    `bson:"exerciseTemplateId" json:"exerciseTemplateId"`
	MicrocycleID       string    `bson:"microcycleId" json:"microcycleId"`
	Field              Field     `bson:"field" json:"field"`
	Value              string    `bson:"value" json:"value"`
	UpdatedAt          time.Time `bson:"updatedAt" json:"updatedAt"`
}
