package relational

import (
	"alcyxob/training-planner/internal/domain"
	"alcyxob/training-planner/internal/repository"
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type templateRepo struct{ t *tx }

func (r templateRepo) Create(ctx context.Context, e *domain.ExerciseTemplate) error {
	e.ID = newID(e.ID)
	now := time.Now().UTC()
	e.CreatedAt = now
	e.UpdatedAt = now
	row := toTemplateRow(e)
	return mapErr(r.t.db.WithContext(ctx).Create(&row).Error)
}

func (r templateRepo) GetByID(ctx context.Context, id string) (*domain.ExerciseTemplate, error) {
	return r.get(r.t.db.WithContext(ctx), id)
}

// GetForUpdate takes a row lock on Postgres. SQLite transactions hold the
// database write lock already.
func (r templateRepo) GetForUpdate(ctx context.Context, id string) (*domain.ExerciseTemplate, error) {
	q := r.t.db.WithContext(ctx)
	if r.t.lockForRead {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return r.get(q, id)
}

func (r templateRepo) get(q *gorm.DB, id string) (*domain.ExerciseTemplate, error) {
	var row templateRow
	if err := q.Where("id = ?", id).First(&row).Error; err != nil {
		return nil, mapErr(err)
	}
	e := row.toDomain()
	return &e, nil
}

func (r templateRepo) ListByMesocycle(ctx context.Context, mesocycleID string) ([]domain.ExerciseTemplate, error) {
	var rows []templateRow
	if err := r.t.db.WithContext(ctx).
		Where("mesocycle_id = ?", mesocycleID).
		Order("day_number").Order("id").
		Find(&rows).Error; err != nil {
		return nil, mapErr(err)
	}
	out := make([]domain.ExerciseTemplate, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r templateRepo) Update(ctx context.Context, e *domain.ExerciseTemplate) error {
	e.UpdatedAt = time.Now().UTC()
	row := toTemplateRow(e)
	res := r.t.db.WithContext(ctx).
		Model(&templateRow{}).
		Where("id = ?", e.ID).
		Select("*").Omit("id", "created_at").
		Updates(&row)
	if res.Error != nil {
		return mapErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

type slotRepo struct{ t *tx }

func (r slotRepo) Create(ctx context.Context, s *domain.ExerciseSlot) error {
	s.ID = newID(s.ID)
	s.CreatedAt = time.Now().UTC()
	row := toSlotRow(s)
	return mapErr(r.t.db.WithContext(ctx).Create(&row).Error)
}

func (r slotRepo) Get(ctx context.Context, templateID, microcycleID string) (*domain.ExerciseSlot, error) {
	var row slotRow
	if err := r.t.db.WithContext(ctx).
		Where("exercise_template_id = ? AND microcycle_id = ?", templateID, microcycleID).
		First(&row).Error; err != nil {
		return nil, mapErr(err)
	}
	s := row.toDomain()
	return &s, nil
}

func (r slotRepo) ListByMicrocycle(ctx context.Context, microcycleID string) ([]domain.ExerciseSlot, error) {
	return r.list(r.t.db.WithContext(ctx).Where("microcycle_id = ?", microcycleID).Order("position").Order("id"))
}

func (r slotRepo) ListByTemplate(ctx context.Context, templateID string) ([]domain.ExerciseSlot, error) {
	return r.list(r.t.db.WithContext(ctx).Where("exercise_template_id = ?", templateID).Order("id"))
}

func (r slotRepo) list(q *gorm.DB) ([]domain.ExerciseSlot, error) {
	var rows []slotRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, mapErr(err)
	}
	out := make([]domain.ExerciseSlot, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r slotRepo) Delete(ctx context.Context, templateID, microcycleID string) error {
	return mapErr(r.t.db.WithContext(ctx).
		Where("exercise_template_id = ? AND microcycle_id = ?", templateID, microcycleID).
		Delete(&slotRow{}).Error)
}

type overrideRepo struct{ t *tx }

// Upsert inserts or updates on the (template, microcycle, field) key and
// reloads the row so o.ID is the stored id.
func (r overrideRepo) Upsert(ctx context.Context, o *domain.ExerciseOverride) error {
	o.UpdatedAt = time.Now().UTC()
	row := overrideRow{
		ID:                 newID(o.ID),
		ExerciseTemplateID: o.ExerciseTemplateID,
		MicrocycleID:       o.MicrocycleID,
		Field:              string(o.Field),
		Value:              o.Value,
		UpdatedAt:          o.UpdatedAt,
	}
	err := r.t.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "exercise_template_id"}, {Name: "microcycle_id"}, {Name: "field"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&row).Error
	if err != nil {
		return mapErr(err)
	}
	stored, err := r.Get(ctx, o.ExerciseTemplateID, o.MicrocycleID, o.Field)
	if err != nil {
		return err
	}
	o.ID = stored.ID
	return nil
}

func (r overrideRepo) Get(ctx context.Context, templateID, microcycleID string, field domain.Field) (*domain.ExerciseOverride, error) {
	var row overrideRow
	if err := r.t.db.WithContext(ctx).
		Where("exercise_template_id = ? AND microcycle_id = ? AND field = ?", templateID, microcycleID, string(field)).
		First(&row).Error; err != nil {
		return nil, mapErr(err)
	}
	o := row.toDomain()
	return &o, nil
}

func (r overrideRepo) ListByMicrocycle(ctx context.Context, microcycleID string) ([]domain.ExerciseOverride, error) {
	return r.list(r.t.db.WithContext(ctx).Where("microcycle_id = ?", microcycleID).Order("id"))
}

func (r overrideRepo) ListAll(ctx context.Context) ([]domain.ExerciseOverride, error) {
	return r.list(r.t.db.WithContext(ctx).Order("id"))
}

func (r overrideRepo) list(q *gorm.DB) ([]domain.ExerciseOverride, error) {
	var rows []overrideRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, mapErr(err)
	}
	out := make([]domain.ExerciseOverride, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r overrideRepo) Delete(ctx context.Context, templateID, microcycleID string, field domain.Field) error {
	return mapErr(r.t.db.WithContext(ctx).
		Where("exercise_template_id = ? AND microcycle_id = ? AND field = ?", templateID, microcycleID, string(field)).
		Delete(&overrideRow{}).Error)
}

func (r overrideRepo) DeleteByIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return mapErr(r.t.db.WithContext(ctx).Where("id IN ?", ids).Delete(&overrideRow{}).Error)
}
