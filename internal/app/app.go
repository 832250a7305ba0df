// Package app wires configuration into a running plan service. It is shared
// by the HTTP server and the planctl command.
package app

import (
	"alcyxob/training-planner/internal/config"
	"alcyxob/training-planner/internal/engine"
	"alcyxob/training-planner/internal/logger"
	"alcyxob/training-planner/internal/repository"
	"alcyxob/training-planner/internal/repository/memory"
	"alcyxob/training-planner/internal/repository/mongo"
	"alcyxob/training-planner/internal/repository/relational"
	"alcyxob/training-planner/internal/service"
	"alcyxob/training-planner/internal/session"
	"alcyxob/training-planner/internal/storage"
	"context"
	"errors"
	"fmt"
	"io"
)

// App holds the constructed components and everything that must be closed.
type App struct {
	Store       repository.Store
	Engine      *engine.Engine
	PlanService service.PlanService
	Sessions    session.Store

	closers []func(context.Context) error
}

// New builds the app for cfg. On error, whatever was opened is closed again.
func New(ctx context.Context, cfg config.Config, log *logger.Logger) (_ *App, err error) {
	a := &App{}
	defer func() {
		if err != nil {
			_ = a.Close(context.Background())
		}
	}()

	a.Store, err = OpenStore(ctx, cfg.Database, log)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, a.Store.Close)

	a.Engine = engine.New(a.Store,
		engine.WithLogger(log),
		engine.WithStrictOverrides(cfg.Propagation.StrictOverrides),
	)

	var fileStorage storage.FileStorage
	if cfg.S3.Enabled() {
		fileStorage, err = storage.NewS3Storage(ctx, cfg.S3, log)
		if err != nil {
			return nil, fmt.Errorf("init object storage: %w", err)
		}
	} else {
		log.Warn("S3 bucket not configured; plan export disabled")
	}
	a.PlanService = service.NewPlanService(a.Store, a.Engine, fileStorage, service.ExportOptions{
		Prefix:        cfg.S3.ExportPrefix,
		PresignExpiry: cfg.S3.PresignExpiry,
	}, log)

	a.Sessions, err = openSessions(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	if c, ok := a.Sessions.(io.Closer); ok {
		a.closers = append(a.closers, func(context.Context) error { return c.Close() })
	}
	return a, nil
}

// OpenStore connects the configured backend. Mongo indexes and relational
// migrations are applied before the store is returned.
func OpenStore(ctx context.Context, cfg config.DatabaseConfig, log *logger.Logger) (repository.Store, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		log.Warn("Using in-memory store; data is lost on exit")
		return memory.NewStore(), nil

	case config.DriverMongo:
		client, err := mongo.ConnectDB(cfg.URI, cfg.Timeout)
		if err != nil {
			return nil, fmt.Errorf("connect mongo: %w", err)
		}
		store := mongo.NewStore(client, cfg.Name)
		idxCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
		if err := mongo.EnsureIndexes(idxCtx, store.Database()); err != nil {
			_ = store.Close(context.Background())
			return nil, fmt.Errorf("ensure mongo indexes: %w", err)
		}
		log.Info("MongoDB connected", "database", cfg.Name)
		return store, nil

	case config.DriverPostgres, config.DriverSQLite:
		store, err := relational.Open(cfg.Driver, cfg.DSN, log)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", cfg.Driver, err)
		}
		log.Info("Relational store ready", "driver", cfg.Driver)
		return store, nil
	}
	return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
}

func openSessions(ctx context.Context, cfg config.Config, log *logger.Logger) (session.Store, error) {
	if cfg.Session.Backend == "redis" {
		s, err := session.NewRedisStore(ctx, cfg.Redis, cfg.Session.TTL, log)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		return s, nil
	}
	return session.NewMemoryStore(cfg.Session.TTL), nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
