// internal/repository/mongo/store.go
package mongo

import (
	"alcyxob/training-planner/internal/repository"
	"context"
	"errors"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

const (
	macrocycleCollectionName = "macrocycles"
	mesocycleCollectionName  = "mesocycles"
	microcycleCollectionName = "microcycles"
	dayCollectionName        = "days"
	templateCollectionName   = "exercise_templates"
	slotCollectionName       = "exercise_slots"
	overrideCollectionName   = "exercise_overrides"
	setCollectionName        = "set_instances"
)

// Store implements repository.Store on a MongoDB database. Writes run in a
// multi-document transaction; the driver retries the whole callback on
// transient transaction errors such as write conflicts.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewStore wraps an already connected client.
func NewStore(client *mongo.Client, dbName string) *Store {
	return &Store{client: client, db: client.Database(dbName)}
}

// Database exposes the underlying database, e.g. for index bootstrap.
func (s *Store) Database() *mongo.Database {
	return s.db
}

func (s *Store) RunInTransaction(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	session, err := s.client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	txnOpts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())
	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc, newTx(s.db))
	}, txnOpts)
	return err
}

// View reads inside a snapshot session so every query sees one point in time.
func (s *Store) View(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	session, err := s.client.StartSession(options.Session().SetSnapshot(true))
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)
	return mongo.WithSession(ctx, session, func(sc mongo.SessionContext) error {
		return fn(sc, newTx(s.db))
	})
}

func (s *Store) Close(ctx context.Context) error {
	return DisconnectDB(ctx, s.client)
}

type tx struct {
	plans     *planRepo
	templates *templateRepo
	slots     *slotRepo
	overrides *overrideRepo
	sets      *setRepo
}

func newTx(db *mongo.Database) *tx {
	return &tx{
		plans: &planRepo{
			macrocycles: db.Collection(macrocycleCollectionName),
			mesocycles:  db.Collection(mesocycleCollectionName),
			microcycles: db.Collection(microcycleCollectionName),
			days:        db.Collection(dayCollectionName),
		},
		templates: &templateRepo{collection: db.Collection(templateCollectionName)},
		slots:     &slotRepo{collection: db.Collection(slotCollectionName)},
		overrides: &overrideRepo{collection: db.Collection(overrideCollectionName)},
		sets:      &setRepo{collection: db.Collection(setCollectionName)},
	}
}

func (t *tx) Plans() repository.PlanRepository                 { return t.plans }
func (t *tx) Templates() repository.ExerciseTemplateRepository { return t.templates }
func (t *tx) Slots() repository.ExerciseSlotRepository         { return t.slots }
func (t *tx) Overrides() repository.OverrideRepository         { return t.overrides }
func (t *tx) Sets() repository.SetRepository                   { return t.sets }

// mapErr translates driver errors into repository errors.
func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return repository.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return repository.ErrDuplicateKey
	}
	return err
}

func newID(id string) string {
	if id != "" {
		return id
	}
	return uuid.NewString()
}
