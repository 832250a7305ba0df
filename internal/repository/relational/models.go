package relational

import (
	"alcyxob/training-planner/internal/domain"
	"sort"
	"time"

	"gorm.io/datatypes"
)

// Row models. The domain types stay storage-agnostic (they carry bson tags for
// the Mongo backend), so the relational schema is described here and mapped
// in both directions.

type macrocycleRow struct {
	ID        string    `gorm:"column:id;primaryKey;type:varchar(36)"`
	Name      string    `gorm:"column:name;not null"`
	StudentID string    `gorm:"column:student_id;not null;index"`
	CoachID   string    `gorm:"column:coach_id;index"`
	CreatedAt time.Time `gorm:"column:created_at;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null"`
}

func (macrocycleRow) TableName() string { return "macrocycles" }

type mesocycleRow struct {
	ID           string    `gorm:"column:id;primaryKey;type:varchar(36)"`
	MacrocycleID string    `gorm:"column:macrocycle_id;not null;uniqueIndex:idx_mesocycle_ordinal,priority:1"`
	Name         string    `gorm:"column:name"`
	Ordinal      int       `gorm:"column:ordinal;not null;uniqueIndex:idx_mesocycle_ordinal,priority:2"`
	CreatedAt    time.Time `gorm:"column:created_at;not null"`
}

func (mesocycleRow) TableName() string { return "mesocycles" }

type microcycleRow struct {
	ID          string    `gorm:"column:id;primaryKey;type:varchar(36)"`
	MesocycleID string    `gorm:"column:mesocycle_id;not null;uniqueIndex:idx_microcycle_ordinal,priority:1"`
	Name        string    `gorm:"column:name"`
	Ordinal     int       `gorm:"column:ordinal;not null;uniqueIndex:idx_microcycle_ordinal,priority:2"`
	CreatedAt   time.Time `gorm:"column:created_at;not null"`
}

func (microcycleRow) TableName() string { return "microcycles" }

type dayRow struct {
	ID           string     `gorm:"column:id;primaryKey;type:varchar(36)"`
	MicrocycleID string     `gorm:"column:microcycle_id;not null;uniqueIndex:idx_day_number,priority:1"`
	DayNumber    int        `gorm:"column:day_number;not null;uniqueIndex:idx_day_number,priority:2"`
	IsRestDay    bool       `gorm:"column:is_rest_day;not null;default:false"`
	Date         *time.Time `gorm:"column:date"`
}

func (dayRow) TableName() string { return "days" }

type templateRow struct {
	ID                 string                                       `gorm:"column:id;primaryKey;type:varchar(36)"`
	MesocycleID        string                                       `gorm:"column:mesocycle_id;not null;index:idx_template_day,priority:1"`
	DayNumber          int                                          `gorm:"column:day_number;not null;index:idx_template_day,priority:2"`
	MuscleGroup        string                                       `gorm:"column:muscle_group"`
	CatalogExerciseID  string                                       `gorm:"column:catalog_exercise_id"`
	RepRange           string                                       `gorm:"column:rep_range"`
	ExpectedRIR        string                                       `gorm:"column:expected_rir"`
	RestMinutes        float64                                      `gorm:"column:rest_minutes"`
	Notes              string                                       `gorm:"column:notes"`
	OriginMicrocycleID string                                       `gorm:"column:origin_microcycle_id;not null"`
	OriginOrder        int                                          `gorm:"column:origin_order;not null"`
	AddScope           string                                       `gorm:"column:add_scope"`
	RetiredFromOrder   *int                                         `gorm:"column:retired_from_order"`
	Revisions          datatypes.JSONSlice[domain.TemplateRevision] `gorm:"column:revisions"`
	SetTombstones      datatypes.JSONSlice[domain.SetTombstone]     `gorm:"column:set_tombstones"`
	DeletedAt          *time.Time                                   `gorm:"column:deleted_at"`
	CreatedAt          time.Time                                    `gorm:"column:created_at;not null"`
	UpdatedAt          time.Time                                    `gorm:"column:updated_at;not null"`
}

func (templateRow) TableName() string { return "exercise_templates" }

type slotRow struct {
	ID                 string    `gorm:"column:id;primaryKey;type:varchar(36)"`
	ExerciseTemplateID string    `gorm:"column:exercise_template_id;not null;uniqueIndex:idx_slot_template_micro,priority:1"`
	MicrocycleID       string    `gorm:"column:microcycle_id;not null;uniqueIndex:idx_slot_template_micro,priority:2;index"`
	DayID              string    `gorm:"column:day_id"`
	Position           int       `gorm:"column:position;not null"`
	CreatedAt          time.Time `gorm:"column:created_at;not null"`
}

func (slotRow) TableName() string { return "exercise_slots" }

type overrideRow struct {
	ID                 string    `gorm:"column:id;primaryKey;type:varchar(36)"`
	ExerciseTemplateID string    `gorm:"column:exercise_template_id;not null;uniqueIndex:idx_override_key,priority:1"`
	MicrocycleID       string    `gorm:"column:microcycle_id;not null;uniqueIndex:idx_override_key,priority:2;index"`
	Field              string    `gorm:"column:field;not null;uniqueIndex:idx_override_key,priority:3"`
	Value              string    `gorm:"column:value"`
	UpdatedAt          time.Time `gorm:"column:updated_at;not null"`
}

func (overrideRow) TableName() string { return "exercise_overrides" }

type setRow struct {
	ID                 string                         `gorm:"column:id;primaryKey;type:varchar(36)"`
	ExerciseTemplateID string                         `gorm:"column:exercise_template_id;not null;uniqueIndex:idx_set_position,priority:1"`
	MicrocycleID       string                         `gorm:"column:microcycle_id;not null;uniqueIndex:idx_set_position,priority:2;index"`
	Position           int                            `gorm:"column:position;not null;uniqueIndex:idx_set_position,priority:3"`
	Reps               *int                           `gorm:"column:reps"`
	Load               *float64                       `gorm:"column:load"`
	ExpectedRIR        *string                        `gorm:"column:expected_rir"`
	IsAmrap            bool                           `gorm:"column:is_amrap;not null;default:false"`
	AmrapInstruction   string                         `gorm:"column:amrap_instruction"`
	AmrapNotes         string                         `gorm:"column:amrap_notes"`
	Status             string                         `gorm:"column:status;not null"`
	IsExtra            bool                           `gorm:"column:is_extra;not null;default:false"`
	LocalEdits         datatypes.JSONSlice[localEdit] `gorm:"column:local_edits"`
	CreatedAt          time.Time                      `gorm:"column:created_at;not null"`
	UpdatedAt          time.Time                      `gorm:"column:updated_at;not null"`
}

func (setRow) TableName() string { return "set_instances" }

// localEdit is one entry of SetInstance.LocalEdits in the JSON column.
type localEdit struct {
	Field domain.Field `json:"field"`
	Prior string       `json:"prior"`
}

// allModels is the AutoMigrate list.
func allModels() []interface{} {
	return []interface{}{
		&macrocycleRow{},
		&mesocycleRow{},
		&microcycleRow{},
		&dayRow{},
		&templateRow{},
		&slotRow{},
		&overrideRow{},
		&setRow{},
	}
}

func toMacrocycleRow(m *domain.Macrocycle) macrocycleRow {
	return macrocycleRow{ID: m.ID, Name: m.Name, StudentID: m.StudentID, CoachID: m.CoachID, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt}
}

func (r macrocycleRow) toDomain() domain.Macrocycle {
	return domain.Macrocycle{ID: r.ID, Name: r.Name, StudentID: r.StudentID, CoachID: r.CoachID, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt}
}

func toMesocycleRow(m *domain.Mesocycle) mesocycleRow {
	return mesocycleRow{ID: m.ID, MacrocycleID: m.MacrocycleID, Name: m.Name, Ordinal: m.Order, CreatedAt: m.CreatedAt}
}

func (r mesocycleRow) toDomain() domain.Mesocycle {
	return domain.Mesocycle{ID: r.ID, MacrocycleID: r.MacrocycleID, Name: r.Name, Order: r.Ordinal, CreatedAt: r.CreatedAt}
}

func toMicrocycleRow(m *domain.Microcycle) microcycleRow {
	return microcycleRow{ID: m.ID, MesocycleID: m.MesocycleID, Name: m.Name, Ordinal: m.Order, CreatedAt: m.CreatedAt}
}

func (r microcycleRow) toDomain() domain.Microcycle {
	return domain.Microcycle{ID: r.ID, MesocycleID: r.MesocycleID, Name: r.Name, Order: r.Ordinal, CreatedAt: r.CreatedAt}
}

func toDayRow(d *domain.Day) dayRow {
	return dayRow{ID: d.ID, MicrocycleID: d.MicrocycleID, DayNumber: d.DayNumber, IsRestDay: d.IsRestDay, Date: d.Date}
}

func (r dayRow) toDomain() domain.Day {
	return domain.Day{ID: r.ID, MicrocycleID: r.MicrocycleID, DayNumber: r.DayNumber, IsRestDay: r.IsRestDay, Date: r.Date}
}

func toTemplateRow(t *domain.ExerciseTemplate) templateRow {
	return templateRow{
		ID:                 t.ID,
		MesocycleID:        t.MesocycleID,
		DayNumber:          t.DayNumber,
		MuscleGroup:        t.MuscleGroup,
		CatalogExerciseID:  t.CatalogExerciseID,
		RepRange:           t.RepRange,
		ExpectedRIR:        t.ExpectedRIR,
		RestMinutes:        t.RestMinutes,
		Notes:              t.Notes,
		OriginMicrocycleID: t.OriginMicrocycleID,
		OriginOrder:        t.OriginOrder,
		AddScope:           string(t.AddScope),
		RetiredFromOrder:   t.RetiredFromOrder,
		Revisions:          datatypes.NewJSONSlice(t.Revisions),
		SetTombstones:      datatypes.NewJSONSlice(t.SetTombstones),
		DeletedAt:          t.DeletedAt,
		CreatedAt:          t.CreatedAt,
		UpdatedAt:          t.UpdatedAt,
	}
}

func (r templateRow) toDomain() domain.ExerciseTemplate {
	t := domain.ExerciseTemplate{
		ID:                 r.ID,
		MesocycleID:        r.MesocycleID,
		DayNumber:          r.DayNumber,
		MuscleGroup:        r.MuscleGroup,
		CatalogExerciseID:  r.CatalogExerciseID,
		RepRange:           r.RepRange,
		ExpectedRIR:        r.ExpectedRIR,
		RestMinutes:        r.RestMinutes,
		Notes:              r.Notes,
		OriginMicrocycleID: r.OriginMicrocycleID,
		OriginOrder:        r.OriginOrder,
		AddScope:           domain.Scope(r.AddScope),
		RetiredFromOrder:   r.RetiredFromOrder,
		DeletedAt:          r.DeletedAt,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
	if len(r.Revisions) > 0 {
		t.Revisions = []domain.TemplateRevision(r.Revisions)
	}
	if len(r.SetTombstones) > 0 {
		t.SetTombstones = []domain.SetTombstone(r.SetTombstones)
	}
	return t
}

func toSlotRow(s *domain.ExerciseSlot) slotRow {
	return slotRow{ID: s.ID, ExerciseTemplateID: s.ExerciseTemplateID, MicrocycleID: s.MicrocycleID, DayID: s.DayID, Position: s.Position, CreatedAt: s.CreatedAt}
}

func (r slotRow) toDomain() domain.ExerciseSlot {
	return domain.ExerciseSlot{ID: r.ID, ExerciseTemplateID: r.ExerciseTemplateID, MicrocycleID: r.MicrocycleID, DayID: r.DayID, Position: r.Position, CreatedAt: r.CreatedAt}
}

func (r overrideRow) toDomain() domain.ExerciseOverride {
	return domain.ExerciseOverride{
		ID:                 r.ID,
		ExerciseTemplateID: r.ExerciseTemplateID,
		MicrocycleID:       r.MicrocycleID,
		Field:              domain.Field(r.Field),
		Value:              r.Value,
		UpdatedAt:          r.UpdatedAt,
	}
}

func toSetRow(s *domain.SetInstance) setRow {
	return setRow{
		ID:                 s.ID,
		ExerciseTemplateID: s.ExerciseTemplateID,
		MicrocycleID:       s.MicrocycleID,
		Position:           s.Position,
		Reps:               s.Reps,
		Load:               s.Load,
		ExpectedRIR:        s.ExpectedRIR,
		IsAmrap:            s.IsAmrap,
		AmrapInstruction:   s.AmrapInstruction,
		AmrapNotes:         s.AmrapNotes,
		Status:             string(s.Status),
		IsExtra:            s.IsExtra,
		LocalEdits:         toLocalEdits(s.LocalEdits),
		CreatedAt:          s.CreatedAt,
		UpdatedAt:          s.UpdatedAt,
	}
}

func toLocalEdits(m map[domain.Field]string) datatypes.JSONSlice[localEdit] {
	if len(m) == 0 {
		return nil
	}
	out := make([]localEdit, 0, len(m))
	for f, v := range m {
		out = append(out, localEdit{Field: f, Prior: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Field < out[j].Field })
	return datatypes.NewJSONSlice(out)
}

func (r setRow) toDomain() domain.SetInstance {
	var local map[domain.Field]string
	if len(r.LocalEdits) > 0 {
		local = make(map[domain.Field]string, len(r.LocalEdits))
		for _, le := range r.LocalEdits {
			local[le.Field] = le.Prior
		}
	}
	return domain.SetInstance{
		ID:                 r.ID,
		ExerciseTemplateID: r.ExerciseTemplateID,
		MicrocycleID:       r.MicrocycleID,
		Position:           r.Position,
		Reps:               r.Reps,
		Load:               r.Load,
		ExpectedRIR:        r.ExpectedRIR,
		IsAmrap:            r.IsAmrap,
		AmrapInstruction:   r.AmrapInstruction,
		AmrapNotes:         r.AmrapNotes,
		Status:             domain.SetStatus(r.Status),
		IsExtra:            r.IsExtra,
		LocalEdits:         local,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
}
