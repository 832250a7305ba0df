package relational

import (
	"alcyxob/training-planner/internal/domain"
	"context"
	"time"

	"gorm.io/gorm/clause"
)

type planRepo struct{ t *tx }

func (r planRepo) CreateMacrocycle(ctx context.Context, m *domain.Macrocycle) error {
	m.ID = newID(m.ID)
	now := time.Now().UTC()
	m.CreatedAt = now
	m.UpdatedAt = now
	row := toMacrocycleRow(m)
	return mapErr(r.t.db.WithContext(ctx).Create(&row).Error)
}

func (r planRepo) GetMacrocycle(ctx context.Context, id string) (*domain.Macrocycle, error) {
	var row macrocycleRow
	if err := r.t.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		return nil, mapErr(err)
	}
	m := row.toDomain()
	return &m, nil
}

func (r planRepo) ListMacrocyclesByStudent(ctx context.Context, studentID string) ([]domain.Macrocycle, error) {
	var rows []macrocycleRow
	if err := r.t.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("created_at DESC").Order("id").
		Find(&rows).Error; err != nil {
		return nil, mapErr(err)
	}
	out := make([]domain.Macrocycle, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r planRepo) CreateMesocycle(ctx context.Context, m *domain.Mesocycle) error {
	m.ID = newID(m.ID)
	m.CreatedAt = time.Now().UTC()
	row := toMesocycleRow(m)
	return mapErr(r.t.db.WithContext(ctx).Create(&row).Error)
}

func (r planRepo) GetMesocycle(ctx context.Context, id string) (*domain.Mesocycle, error) {
	var row mesocycleRow
	if err := r.t.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		return nil, mapErr(err)
	}
	m := row.toDomain()
	return &m, nil
}

// LockMesocycle takes a row lock on Postgres, like GetForUpdate on templates.
func (r planRepo) LockMesocycle(ctx context.Context, id string) error {
	q := r.t.db.WithContext(ctx)
	if r.t.lockForRead {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var row mesocycleRow
	return mapErr(q.Select("id").Where("id = ?", id).First(&row).Error)
}

func (r planRepo) ListMesocycles(ctx context.Context, macrocycleID string) ([]domain.Mesocycle, error) {
	var rows []mesocycleRow
	if err := r.t.db.WithContext(ctx).
		Where("macrocycle_id = ?", macrocycleID).
		Order("ordinal").
		Find(&rows).Error; err != nil {
		return nil, mapErr(err)
	}
	out := make([]domain.Mesocycle, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r planRepo) CreateMicrocycle(ctx context.Context, m *domain.Microcycle) error {
	m.ID = newID(m.ID)
	m.CreatedAt = time.Now().UTC()
	row := toMicrocycleRow(m)
	return mapErr(r.t.db.WithContext(ctx).Create(&row).Error)
}

func (r planRepo) GetMicrocycle(ctx context.Context, id string) (*domain.Microcycle, error) {
	var row microcycleRow
	if err := r.t.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		return nil, mapErr(err)
	}
	m := row.toDomain()
	return &m, nil
}

func (r planRepo) ListMicrocycles(ctx context.Context, mesocycleID string) ([]domain.Microcycle, error) {
	var rows []microcycleRow
	if err := r.t.db.WithContext(ctx).
		Where("mesocycle_id = ?", mesocycleID).
		Order("ordinal").
		Find(&rows).Error; err != nil {
		return nil, mapErr(err)
	}
	out := make([]domain.Microcycle, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r planRepo) CreateDay(ctx context.Context, d *domain.Day) error {
	d.ID = newID(d.ID)
	row := toDayRow(d)
	return mapErr(r.t.db.WithContext(ctx).Create(&row).Error)
}

func (r planRepo) ListDays(ctx context.Context, microcycleID string) ([]domain.Day, error) {
	var rows []dayRow
	if err := r.t.db.WithContext(ctx).
		Where("microcycle_id = ?", microcycleID).
		Order("day_number").
		Find(&rows).Error; err != nil {
		return nil, mapErr(err)
	}
	out := make([]domain.Day, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}
