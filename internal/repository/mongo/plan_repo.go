// internal/repository/mongo/plan_repo.go
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

// planRepo implements repository.PlanRepository over four collections.
type planRepo struct {
	macrocycles *mongo.Collection
	mesocycles  *mongo.Collection
	microcycles *mongo.Collection
	days        *mongo.Collection
}

func (r *planRepo) CreateMacrocycle(ctx context.Context, m *domain.Macrocycle) error {
	m.ID = newID(m.ID)
	now := time.Now().UTC()
	m.CreatedAt = now
	m.UpdatedAt = now
	_, err := r.macrocycles.InsertOne(ctx, m)
	return mapErr(err)
}

func (r *planRepo) GetMacrocycle(ctx context.Context, id string) (*domain.Macrocycle, error) {
	var m domain.Macrocycle
	if err := r.macrocycles.FindOne(ctx, bson.M{"_id": id}).Decode(&m); err != nil {
		return nil, mapErr(err)
	}
	return &m, nil
}

func (r *planRepo) ListMacrocyclesByStudent(ctx context.Context, studentID string) ([]domain.Macrocycle, error) {
	// Sort by creation date, newest first
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: 1}})
	return findAll[domain.Macrocycle](ctx, r.macrocycles, bson.M{"studentId": studentID}, findOptions)
}

func (r *planRepo) CreateMesocycle(ctx context.Context, m *domain.Mesocycle) error {
	m.ID = newID(m.ID)
	m.CreatedAt = time.Now().UTC()
	_, err := r.mesocycles.InsertOne(ctx, m)
	return mapErr(err)
}

func (r *planRepo) GetMesocycle(ctx context.Context, id string) (*domain.Mesocycle, error) {
	var m domain.Mesocycle
	if err := r.mesocycles.FindOne(ctx, bson.M{"_id": id}).Decode(&m); err != nil {
		return nil, mapErr(err)
	}
	return &m, nil
}

// LockMesocycle writes a lock marker on the mesocycle inside the current
// transaction; see templateRepo.GetForUpdate.
func (r *planRepo) LockMesocycle(ctx context.Context, id string) error {
	update := bson.M{"$set": bson.M{"lockedAt": time.Now().UTC()}}
	result, err := r.mesocycles.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return mapErr(err)
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *planRepo) ListMesocycles(ctx context.Context, macrocycleID string) ([]domain.Mesocycle, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "order", Value: 1}})
	return findAll[domain.Mesocycle](ctx, r.mesocycles, bson.M{"macrocycleId": macrocycleID}, findOptions)
}

// CreateMicrocycle relies on the unique (mesocycleId, order) index to reject
// a taken order.
func (r *planRepo) CreateMicrocycle(ctx context.Context, m *domain.Microcycle) error {
	m.ID = newID(m.ID)
	m.CreatedAt = time.Now().UTC()
	_, err := r.microcycles.InsertOne(ctx, m)
	return mapErr(err)
}

func (r *planRepo) GetMicrocycle(ctx context.Context, id string) (*domain.Microcycle, error) {
	var m domain.Microcycle
	if err := r.microcycles.FindOne(ctx, bson.M{"_id": id}).Decode(&m); err != nil {
		return nil, mapErr(err)
	}
	return &m, nil
}

func (r *planRepo) ListMicrocycles(ctx context.Context, mesocycleID string) ([]domain.Microcycle, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "order", Value: 1}})
	return findAll[domain.Microcycle](ctx, r.microcycles, bson.M{"mesocycleId": mesocycleID}, findOptions)
}

func (r *planRepo) CreateDay(ctx context.Context, d *domain.Day) error {
	d.ID = newID(d.ID)
	_, err := r.days.InsertOne(ctx, d)
	return mapErr(err)
}

func (r *planRepo) ListDays(ctx context.Context, microcycleID string) ([]domain.Day, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "dayNumber", Value: 1}})
	return findAll[domain.Day](ctx, r.days, bson.M{"microcycleId": microcycleID}, findOptions)
}

// findAll decodes every match. No match is an empty slice, not an error.
func findAll[T any](ctx context.Context, coll *mongo.Collection, filter interface{}, opts *options.FindOptions) ([]T, error) {
	cursor, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	out := []T{}
	if err = cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
