package relational

import (
	"alcyxob/training-planner/internal/domain"
	"alcyxob/training-planner/internal/repository"
	"context"
	"time"

	"gorm.io/gorm"
)

type setRepo struct{ t *tx }

func (r setRepo) Create(ctx context.Context, sets []*domain.SetInstance) error {
	if len(sets) == 0 {
		return nil
	}
	now := time.Now().UTC()
	rows := make([]setRow, 0, len(sets))
	for _, s := range sets {
		s.ID = newID(s.ID)
		if s.Status == "" {
			s.Status = domain.SetPending
		}
		s.CreatedAt = now
		s.UpdatedAt = now
		rows = append(rows, toSetRow(s))
	}
	return mapErr(r.t.db.WithContext(ctx).Create(&rows).Error)
}

func (r setRepo) GetByID(ctx context.Context, id string) (*domain.SetInstance, error) {
	var row setRow
	if err := r.t.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		return nil, mapErr(err)
	}
	s := row.toDomain()
	return &s, nil
}

func (r setRepo) ListByTemplateAndMicrocycle(ctx context.Context, templateID, microcycleID string) ([]domain.SetInstance, error) {
	return r.list(r.t.db.WithContext(ctx).
		Where("exercise_template_id = ? AND microcycle_id = ?", templateID, microcycleID).
		Order("position"))
}

func (r setRepo) ListByMicrocycle(ctx context.Context, microcycleID string) ([]domain.SetInstance, error) {
	return r.list(r.t.db.WithContext(ctx).
		Where("microcycle_id = ?", microcycleID).
		Order("exercise_template_id").Order("position"))
}

func (r setRepo) list(q *gorm.DB) ([]domain.SetInstance, error) {
	var rows []setRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, mapErr(err)
	}
	out := make([]domain.SetInstance, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

// Update rewrites prescription and tracking columns; identity columns stay.
func (r setRepo) Update(ctx context.Context, s *domain.SetInstance) error {
	s.UpdatedAt = time.Now().UTC()
	row := toSetRow(s)
	res := r.t.db.WithContext(ctx).
		Model(&setRow{}).
		Where("id = ?", s.ID).
		Select("reps", "load", "expected_rir", "is_amrap", "amrap_instruction", "amrap_notes", "status", "is_extra", "local_edits", "updated_at").
		Updates(&row)
	if res.Error != nil {
		return mapErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r setRepo) DeleteByIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return mapErr(r.t.db.WithContext(ctx).Where("id IN ?", ids).Delete(&setRow{}).Error)
}
