// Package redisstore keeps session records in Redis.
//
// Each record is a hash under <prefix>session:<id> with the fields "claims"
// and "created_at" (Unix milliseconds). A sorted set <prefix>sessions:created
// scores every id by creation time so the sweep never scans the keyspace.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/yndnr/authrelay-go/internal/core/domain"
)

// DefaultPrefix is prepended to every key.
const DefaultPrefix = "authrelay:"

const (
	fieldClaims    = "claims"
	fieldCreatedAt = "created_at"
	sweepBatch     = 500
)

// Store is a Redis-backed session table.
type Store struct {
	client *redis.Client
	prefix string
	keyTTL time.Duration
	owned  bool
}

// Option configures the Store.
type Option func(*Store)

// WithPrefix sets the key prefix.
func WithPrefix(p string) Option {
	return func(s *Store) { s.prefix = p }
}

// WithKeyTTL sets a Redis expiry on each record as a backstop for the sweep.
func WithKeyTTL(ttl time.Duration) Option {
	return func(s *Store) { s.keyTTL = ttl }
}

// New wraps an existing client. The caller keeps ownership of client.
func New(client *redis.Client, opts ...Option) *Store {
	s := &Store{client: client, prefix: DefaultPrefix}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open connects using a redis:// or rediss:// URL. Close releases the client.
func Open(ctx context.Context, url string, opts ...Option) (*Store, error) {
	o, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis: parse url: %w", err)
	}
	s := New(redis.NewClient(o), opts...)
	s.owned = true
	if err := s.Ping(ctx); err != nil {
		s.client.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) sessionKey(id string) string { return s.prefix + "session:" + id }
func (s *Store) indexKey() string            { return s.prefix + "sessions:created" }

// Get returns the record stored under id.
func (s *Store) Get(ctx context.Context, id string) (*domain.Session, error) {
	fields, err := s.client.HGetAll(ctx, s.sessionKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: hgetall: %w", err)
	}
	if len(fields) == 0 {
		return nil, domain.ErrSessionNotFound
	}
	created, err := strconv.ParseInt(fields[fieldCreatedAt], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("redis: session %s created_at: %w", id, err)
	}
	return &domain.Session{ID: id, Claims: fields[fieldClaims], CreatedAt: created}, nil
}

// Put writes the record and its index entry in one MULTI/EXEC.
func (s *Store) Put(ctx context.Context, rec *domain.Session) error {
	key := s.sessionKey(rec.ID)
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, key)
		p.HSet(ctx, key, fieldClaims, rec.Claims, fieldCreatedAt, rec.CreatedAt)
		if s.keyTTL > 0 {
			p.Expire(ctx, key, s.keyTTL)
		}
		p.ZAdd(ctx, s.indexKey(), redis.Z{Score: float64(rec.CreatedAt), Member: rec.ID})
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis: put: %w", err)
	}
	return nil
}

// Delete removes the record and its index entry.
func (s *Store) Delete(ctx context.Context, id string) error {
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, s.sessionKey(id))
		p.ZRem(ctx, s.indexKey(), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis: delete: %w", err)
	}
	return nil
}

// DeleteCreatedBefore removes every record scored strictly below cutoff.
func (s *Store) DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	ids, err := s.client.ZRangeByScore(ctx, s.indexKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: "(" + strconv.FormatInt(cutoff.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("redis: range created index: %w", err)
	}

	deleted := 0
	for start := 0; start < len(ids); start += sweepBatch {
		batch := ids[start:min(start+sweepBatch, len(ids))]
		keys := make([]string, len(batch))
		members := make([]any, len(batch))
		for i, id := range batch {
			keys[i] = s.sessionKey(id)
			members[i] = id
		}

		var del *redis.IntCmd
		_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
			del = p.Del(ctx, keys...)
			p.ZRem(ctx, s.indexKey(), members...)
			return nil
		})
		if err != nil {
			return deleted, fmt.Errorf("redis: sweep: %w", err)
		}
		deleted += int(del.Val())
	}
	return deleted, nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: ping: %w", err)
	}
	return nil
}

// Close releases the client if the store opened it.
func (s *Store) Close() error {
	if !s.owned {
		return nil
	}
	if err := s.client.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
		return err
	}
	return nil
}
