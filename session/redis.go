package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore persists the session of one profile under a namespaced Redis key.
type RedisStore struct {
	redis   redis.UniversalClient
	prefix  string
	profile string
	ttl     time.Duration
}

// NewRedisStore creates a Redis-backed store. prefix sets the key namespace; a
// non-zero ttl expires the stored session, refreshed on every Set.
func NewRedisStore(rdb redis.UniversalClient, prefix, profile string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "arp"
	}
	if profile == "" {
		profile = "default"
	}
	return &RedisStore{
		redis:   rdb,
		prefix:  prefix,
		profile: profile,
		ttl:     ttl,
	}
}

func (s *RedisStore) key() string {
	return s.prefix + ":session:" + s.profile
}

// Get returns the stored session, or the zero Session when none is stored.
func (s *RedisStore) Get(ctx context.Context) (Session, error) {
	data, err := s.redis.Get(ctx, s.key()).Bytes()
	if errors.Is(err, redis.Nil) {
		return Session{}, nil
	}
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	sess, err := Decode(data)
	if err != nil {
		// A corrupt blob cannot be recovered; treat it as signed out.
		_ = s.redis.Del(ctx, s.key()).Err()
		return Session{}, nil
	}
	return *sess, nil
}

// Set replaces the stored session.
func (s *RedisStore) Set(ctx context.Context, sess Session) error {
	data, err := Encode(&sess)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, s.key(), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Clear deletes the stored session. Clearing an empty store is not an error.
func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.redis.Del(ctx, s.key()).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Ping checks Redis connectivity and reports round-trip latency.
func (s *RedisStore) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return time.Since(start), nil
}
