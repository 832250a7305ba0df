package session

import (
	"alcyxob/training-planner/internal/config"
	"alcyxob/training-planner/internal/logger"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "planner:session:"

// RedisStore keeps profiles as JSON values with a TTL.
type RedisStore struct {
	rdb *goredis.Client
	ttl time.Duration
	log *logger.Logger
}

// NewRedisStore connects and pings the server.
func NewRedisStore(ctx context.Context, cfg config.RedisConfig, ttl time.Duration, log *logger.Logger) (*RedisStore, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedisStoreWithClient(rdb, ttl, log), nil
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(rdb *goredis.Client, ttl time.Duration, log *logger.Logger) *RedisStore {
	if log == nil {
		log = logger.Nop()
	}
	return &RedisStore{rdb: rdb, ttl: ttl, log: log.With("service", "RedisSessionStore")}
}

func (s *RedisStore) key(userID string) string {
	return redisKeyPrefix + userID
}

func (s *RedisStore) Load(ctx context.Context, userID string) (*Profile, error) {
	if userID == "" {
		return nil, ErrMissingUserID
	}
	raw, err := s.rdb.Get(ctx, s.key(userID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, err
	}
	var p Profile
	if err := json.Unmarshal(raw, &p); err != nil {
		s.log.Warn("Dropping unreadable session", "user", userID, "error", err)
		_ = s.rdb.Del(ctx, s.key(userID)).Err()
		return nil, ErrNoSession
	}
	return &p, nil
}

func (s *RedisStore) Save(ctx context.Context, p *Profile) error {
	if p == nil || p.UserID == "" {
		return ErrMissingUserID
	}
	p.UpdatedAt = time.Now().UTC()
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	ttl := s.ttl
	if ttl < 0 {
		ttl = 0
	}
	return s.rdb.Set(ctx, s.key(p.UserID), raw, ttl).Err()
}

func (s *RedisStore) Clear(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrMissingUserID
	}
	return s.rdb.Del(ctx, s.key(userID)).Err()
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
