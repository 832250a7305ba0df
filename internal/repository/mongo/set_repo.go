// internal/repository/mongo/set_repo.go
package mongo

import (
	"alcyxob/training-planner/internal/domain"
	"alcyxob/training-planner/internal/repository"
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// setRepo implements repository.SetRepository.
type setRepo struct {
	collection *mongo.Collection
}

func (r *setRepo) Create(ctx context.Context, sets []*domain.SetInstance) error {
	if len(sets) == 0 {
		return nil
	}
	now := time.Now().UTC()
	docs := make([]interface{}, 0, len(sets))
	for _, s := range sets {
		s.ID = newID(s.ID)
		if s.Status == "" {
			s.Status = domain.SetPending
		}
		s.CreatedAt = now
		s.UpdatedAt = now
		docs = append(docs, s)
	}
	_, err := r.collection.InsertMany(ctx, docs)
	return mapErr(err)
}

func (r *setRepo) GetByID(ctx context.Context, id string) (*domain.SetInstance, error) {
	var s domain.SetInstance
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&s); err != nil {
		return nil, mapErr(err)
	}
	return &s, nil
}

func (r *setRepo) ListByTemplateAndMicrocycle(ctx context.Context, templateID, microcycleID string) ([]domain.SetInstance, error) {
	filter := bson.M{"exerciseTemplateId": templateID, "microcycleId": microcycleID}
	findOptions := options.Find().SetSort(bson.D{{Key: "position", Value: 1}})
	return findAll[domain.SetInstance](ctx, r.collection, filter, findOptions)
}

func (r *setRepo) ListByMicrocycle(ctx context.Context, microcycleID string) ([]domain.SetInstance, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "exerciseTemplateId", Value: 1}, {Key: "position", Value: 1}})
	return findAll[domain.SetInstance](ctx, r.collection, bson.M{"microcycleId": microcycleID}, findOptions)
}

// Update rewrites the prescription and tracking fields. Identity fields
// (template, microcycle, position) never change.
func (r *setRepo) Update(ctx context.Context, s *domain.SetInstance) error {
	s.UpdatedAt = time.Now().UTC()
	updateDoc := bson.M{
		"$set": bson.M{
			"reps":             s.Reps,
			"load":             s.Load,
			"expectedRir":      s.ExpectedRIR,
			"isAmrap":          s.IsAmrap,
			"amrapInstruction": s.AmrapInstruction,
			"amrapNotes":       s.AmrapNotes,
			"status":           s.Status,
			"isExtra":          s.IsExtra,
			"localEdits":       s.LocalEdits,
			"updatedAt":        s.UpdatedAt,
		},
	}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": s.ID}, updateDoc)
	if err != nil {
		return mapErr(err)
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *setRepo) DeleteByIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.collection.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	return mapErr(err)
}
