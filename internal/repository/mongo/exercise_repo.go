// internal/repository/mongo/exercise_repo.go
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

// templateRepo implements repository.ExerciseTemplateRepository.
type templateRepo struct {
	collection *mongo.Collection
}

func (r *templateRepo) Create(ctx context.Context, t *domain.ExerciseTemplate) error {
	t.ID = newID(t.ID)
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
	_, err := r.collection.InsertOne(ctx, t)
	return mapErr(err)
}

func (r *templateRepo) GetByID(ctx context.Context, id string) (*domain.ExerciseTemplate, error) {
	var t domain.ExerciseTemplate
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&t); err != nil {
		return nil, mapErr(err)
	}
	return &t, nil
}

// GetForUpdate writes a lock marker on the template inside the current
// transaction. A concurrent transaction touching the same template then hits
// a write conflict and is retried by the driver, which serializes edits.
func (r *templateRepo) GetForUpdate(ctx context.Context, id string) (*domain.ExerciseTemplate, error) {
	var t domain.ExerciseTemplate
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	update := bson.M{"$set": bson.M{"lockedAt": time.Now().UTC()}}
	if err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&t); err != nil {
		return nil, mapErr(err)
	}
	return &t, nil
}

func (r *templateRepo) ListByMesocycle(ctx context.Context, mesocycleID string) ([]domain.ExerciseTemplate, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "dayNumber", Value: 1}, {Key: "_id", Value: 1}})
	return findAll[domain.ExerciseTemplate](ctx, r.collection, bson.M{"mesocycleId": mesocycleID}, findOptions)
}

func (r *templateRepo) Update(ctx context.Context, t *domain.ExerciseTemplate) error {
	t.UpdatedAt = time.Now().UTC()
	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": t.ID}, t)
	if err != nil {
		return mapErr(err)
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// slotRepo implements repository.ExerciseSlotRepository.
type slotRepo struct {
	collection *mongo.Collection
}

func slotFilter(templateID, microcycleID string) bson.M {
	return bson.M{"exerciseTemplateId": templateID, "microcycleId": microcycleID}
}

func (r *slotRepo) Create(ctx context.Context, s *domain.ExerciseSlot) error {
	s.ID = newID(s.ID)
	s.CreatedAt = time.Now().UTC()
	_, err := r.collection.InsertOne(ctx, s)
	return mapErr(err)
}

func (r *slotRepo) Get(ctx context.Context, templateID, microcycleID string) (*domain.ExerciseSlot, error) {
	var s domain.ExerciseSlot
	if err := r.collection.FindOne(ctx, slotFilter(templateID, microcycleID)).Decode(&s); err != nil {
		return nil, mapErr(err)
	}
	return &s, nil
}

func (r *slotRepo) ListByMicrocycle(ctx context.Context, microcycleID string) ([]domain.ExerciseSlot, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "position", Value: 1}, {Key: "_id", Value: 1}})
	return findAll[domain.ExerciseSlot](ctx, r.collection, bson.M{"microcycleId": microcycleID}, findOptions)
}

func (r *slotRepo) ListByTemplate(ctx context.Context, templateID string) ([]domain.ExerciseSlot, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	return findAll[domain.ExerciseSlot](ctx, r.collection, bson.M{"exerciseTemplateId": templateID}, findOptions)
}

// Delete is idempotent: a missing slot is not an error.
func (r *slotRepo) Delete(ctx context.Context, templateID, microcycleID string) error {
	_, err := r.collection.DeleteOne(ctx, slotFilter(templateID, microcycleID))
	return mapErr(err)
}

// overrideRepo implements repository.OverrideRepository.
type overrideRepo struct {
	collection *mongo.Collection
}

func overrideFilter(templateID, microcycleID string, field domain.Field) bson.M {
	return bson.M{"exerciseTemplateId": templateID, "microcycleId": microcycleID, "field": field}
}

// Upsert relies on the unique (template, microcycle, field) index. The id of
// an existing override is kept.
func (r *overrideRepo) Upsert(ctx context.Context, o *domain.ExerciseOverride) error {
	o.UpdatedAt = time.Now().UTC()
	update := bson.M{
		"$set":         bson.M{"value": o.Value, "updatedAt": o.UpdatedAt},
		"$setOnInsert": bson.M{"_id": newID(o.ID)},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var stored domain.ExerciseOverride
	err := r.collection.FindOneAndUpdate(ctx, overrideFilter(o.ExerciseTemplateID, o.MicrocycleID, o.Field), update, opts).Decode(&stored)
	if err != nil {
		return mapErr(err)
	}
	o.ID = stored.ID
	return nil
}

func (r *overrideRepo) Get(ctx context.Context, templateID, microcycleID string, field domain.Field) (*domain.ExerciseOverride, error) {
	var o domain.ExerciseOverride
	if err := r.collection.FindOne(ctx, overrideFilter(templateID, microcycleID, field)).Decode(&o); err != nil {
		return nil, mapErr(err)
	}
	return &o, nil
}

func (r *overrideRepo) ListByMicrocycle(ctx context.Context, microcycleID string) ([]domain.ExerciseOverride, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	return findAll[domain.ExerciseOverride](ctx, r.collection, bson.M{"microcycleId": microcycleID}, findOptions)
}

func (r *overrideRepo) ListAll(ctx context.Context) ([]domain.ExerciseOverride, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	return findAll[domain.ExerciseOverride](ctx, r.collection, bson.M{}, findOptions)
}

func (r *overrideRepo) Delete(ctx context.Context, templateID, microcycleID string, field domain.Field) error {
	_, err := r.collection.DeleteOne(ctx, overrideFilter(templateID, microcycleID, field))
	return mapErr(err)
}

func (r *overrideRepo) DeleteByIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.collection.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	return mapErr(err)
}
