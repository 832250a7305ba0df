// Package relational implements repository.Store with gorm. Postgres is the
// production target; SQLite backs tests and single-node setups.
package relational

import (
	"alcyxob/training-planner/internal/logger"
	"alcyxob/training-planner/internal/repository"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Store implements repository.Store on a gorm connection.
type Store struct {
	db  *gorm.DB
	log *logger.Logger
}

// Open connects with the named driver, migrates the schema and returns the store.
func Open(driver, dsn string, baseLog *logger.Logger) (*Store, error) {
	var dialector gorm.Dialector
	switch driver {
	case DriverPostgres:
		dialector = postgres.Open(dsn)
	case DriverSQLite:
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
		Logger:                                   gormLogger.Default.LogMode(gormLogger.Warn),
		NowFunc:                                  func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", driver, err)
	}

	if driver == DriverSQLite {
		// SQLite allows a single writer; one connection avoids "database is locked".
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	s := NewStore(db, baseLog)
	if err := s.Migrate(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

// NewStore wraps an open gorm connection. The schema is not migrated.
func NewStore(db *gorm.DB, baseLog *logger.Logger) *Store {
	if baseLog == nil {
		baseLog = logger.Nop()
	}
	return &Store{db: db, log: baseLog.With("repo", "RelationalStore", "dialect", db.Dialector.Name())}
}

// Migrate creates or updates every table and index.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(allModels()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	s.log.Info("Schema migrated")
	return nil
}

func (s *Store) RunInTransaction(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(gtx *gorm.DB) error {
		return fn(ctx, s.newTx(gtx))
	})
}

// View runs fn in a read-only transaction. Postgres gets a repeatable-read
// snapshot; SQLite transactions are already serializable.
func (s *Store) View(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	var opts []*sql.TxOptions
	if s.isPostgres() {
		opts = append(opts, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	}
	return s.db.WithContext(ctx).Transaction(func(gtx *gorm.DB) error {
		return fn(ctx, s.newTx(gtx))
	}, opts...)
}

func (s *Store) Close(context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) isPostgres() bool {
	return s.db.Dialector.Name() == DriverPostgres
}

type tx struct {
	db          *gorm.DB
	lockForRead bool
}

func (s *Store) newTx(gtx *gorm.DB) *tx {
	return &tx{db: gtx, lockForRead: s.isPostgres()}
}

func (t *tx) Plans() repository.PlanRepository                 { return planRepo{t} }
func (t *tx) Templates() repository.ExerciseTemplateRepository { return templateRepo{t} }
func (t *tx) Slots() repository.ExerciseSlotRepository         { return slotRepo{t} }
func (t *tx) Overrides() repository.OverrideRepository         { return overrideRepo{t} }
func (t *tx) Sets() repository.SetRepository                   { return setRepo{t} }

// mapErr translates gorm errors into repository errors.
func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return repository.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
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
