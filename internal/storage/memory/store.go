package memory

import (
	"context"
	"time"

	"github.com/yndnr/authrelay-go/internal/core/domain"
	"github.com/yndnr/authrelay-go/pkg/cmap"
)

// Store is an in-memory session table.
type Store struct {
	sessions *cmap.Map[string, domain.Session]
}

// Option configures the Store.
type Option func(*storeOptions)

type storeOptions struct {
	shards int
}

// WithShards sets the shard count (power of 2).
func WithShards(n int) Option {
	return func(o *storeOptions) { o.shards = n }
}

// New creates a new in-memory store.
func New(opts ...Option) *Store {
	o := storeOptions{shards: cmap.DefaultShardCount}
	for _, opt := range opts {
		opt(&o)
	}
	return &Store{sessions: cmap.NewWithShards[string, domain.Session](o.shards)}
}

// Get returns a copy of the record.
func (s *Store) Get(_ context.Context, id string) (*domain.Session, error) {
	rec, ok := s.sessions.Get(id)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return &rec, nil
}

// Put inserts or replaces a record.
func (s *Store) Put(_ context.Context, rec *domain.Session) error {
	s.sessions.Set(rec.ID, *rec)
	return nil
}

// Delete removes a record.
func (s *Store) Delete(_ context.Context, id string) error {
	s.sessions.Delete(id)
	return nil
}

// DeleteCreatedBefore removes records created strictly before cutoff.
func (s *Store) DeleteCreatedBefore(_ context.Context, cutoff time.Time) (int, error) {
	return s.sessions.DeleteFunc(func(_ string, rec domain.Session) bool {
		return rec.CreatedBefore(cutoff)
	}), nil
}

// Count returns the number of stored records.
func (s *Store) Count() int {
	return s.sessions.Count()
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// Close releases nothing.
func (s *Store) Close() error { return nil }
