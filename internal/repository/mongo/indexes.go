// internal/repository/mongo/indexes.go
package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/sync/errgroup"
)

// collectionIndexes lists the indexes per collection. The unique ones carry
// the invariants the repositories rely on.
var collectionIndexes = map[string][]mongo.IndexModel{
	macrocycleCollectionName: {
		{Keys: bson.D{{Key: "studentId", Value: 1}, {Key: "createdAt", Value: -1}}, Options: options.Index()},
		{Keys: bson.D{{Key: "coachId", Value: 1}}, Options: options.Index()},
	},
	mesocycleCollectionName: {
		{Keys: bson.D{{Key: "macrocycleId", Value: 1}, {Key: "order", Value: 1}}, Options: options.Index().SetUnique(true)},
	},
	microcycleCollectionName: {
		// Order is the propagation axis: unique within a mesocycle.
		{Keys: bson.D{{Key: "mesocycleId", Value: 1}, {Key: "order", Value: 1}}, Options: options.Index().SetUnique(true)},
	},
	dayCollectionName: {
		{Keys: bson.D{{Key: "microcycleId", Value: 1}, {Key: "dayNumber", Value: 1}}, Options: options.Index().SetUnique(true)},
	},
	templateCollectionName: {
		{Keys: bson.D{{Key: "mesocycleId", Value: 1}, {Key: "dayNumber", Value: 1}}, Options: options.Index()},
	},
	slotCollectionName: {
		{Keys: bson.D{{Key: "exerciseTemplateId", Value: 1}, {Key: "microcycleId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "microcycleId", Value: 1}, {Key: "position", Value: 1}}, Options: options.Index()},
	},
	overrideCollectionName: {
		{Keys: bson.D{{Key: "exerciseTemplateId", Value: 1}, {Key: "microcycleId", Value: 1}, {Key: "field", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "microcycleId", Value: 1}}, Options: options.Index()},
	},
	setCollectionName: {
		{Keys: bson.D{{Key: "exerciseTemplateId", Value: 1}, {Key: "microcycleId", Value: 1}, {Key: "position", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "microcycleId", Value: 1}}, Options: options.Index()},
	},
}

// EnsureIndexes creates the indexes of every collection, concurrently. Call
// during startup. Collections are created up front because a transaction
// cannot create one on older servers.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	g, ctx := errgroup.WithContext(ctx)
	for name, models := range collectionIndexes {
		name, models := name, models
		g.Go(func() error {
			if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
				return fmt.Errorf("create indexes for %s: %w", name, err)
			}
			return nil
		})
	}
	return g.Wait()
}
