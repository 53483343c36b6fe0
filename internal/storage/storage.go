package storage

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/yndnr/authrelay-go/internal/core/service"
	"github.com/yndnr/authrelay-go/internal/storage/memory"
	"github.com/yndnr/authrelay-go/internal/storage/pgstore"
	"github.com/yndnr/authrelay-go/internal/storage/redisstore"
)

// Repository is a session table with lifecycle hooks.
type Repository interface {
	service.SessionRepository

	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases the backend.
	Close() error
}

// Options carries shared dependencies for Open.
type Options struct {
	Logger     *slog.Logger
	Registerer prometheus.Registerer

	// RedisPrefix overrides redisstore.DefaultPrefix.
	RedisPrefix string

	// PostgresTable overrides pgstore.DefaultTable.
	PostgresTable string

	// PostgresMigrate creates the table on open.
	PostgresMigrate bool
}

// Open returns the backend named by dsn.
func Open(ctx context.Context, dsn string, opts Options) (Repository, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if dsn == "" {
		dsn = "memory://"
	}

	scheme, _, ok := strings.Cut(dsn, "://")
	if !ok {
		return nil, fmt.Errorf("storage: dsn %q has no scheme", dsn)
	}

	switch strings.ToLower(scheme) {
	case "memory", "mem":
		opts.Logger.Info("session store opened", "backend", "memory")
		return memory.New(), nil

	case "badger":
		cfg, err := badgerConfigFromDSN(dsn)
		if err != nil {
			return nil, err
		}
		s, err := NewBadgerStore(cfg, opts.Logger)
		if err != nil {
			return nil, err
		}
		if opts.Registerer != nil {
			s.RegisterMetrics(opts.Registerer)
		}
		return s, nil

	case "redis", "rediss":
		var ropts []redisstore.Option
		if opts.RedisPrefix != "" {
			ropts = append(ropts, redisstore.WithPrefix(opts.RedisPrefix))
		}
		s, err := redisstore.Open(ctx, dsn, ropts...)
		if err != nil {
			return nil, err
		}
		opts.Logger.Info("session store opened", "backend", "redis")
		return s, nil

	case "postgres", "postgresql":
		s, err := pgstore.Open(ctx, dsn, pgstore.Config{
			Table:   opts.PostgresTable,
			Migrate: opts.PostgresMigrate,
		})
		if err != nil {
			return nil, err
		}
		opts.Logger.Info("session store opened", "backend", "postgres")
		return s, nil
	}

	return nil, fmt.Errorf("storage: unsupported scheme %q", scheme)
}

// badgerConfigFromDSN reads badger:///dir?inmemory=true&sync=false&gc=5m.
func badgerConfigFromDSN(dsn string) (BadgerConfig, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return BadgerConfig{}, fmt.Errorf("storage: parse badger dsn: %w", err)
	}
	dir := u.Path
	if u.Host != "" {
		dir = u.Host + dir
	}
	cfg := DefaultBadgerConfig(dir)

	q := u.Query()
	if v := q.Get("inmemory"); v != "" {
		if cfg.InMemory, err = strconv.ParseBool(v); err != nil {
			return cfg, fmt.Errorf("storage: badger inmemory: %w", err)
		}
	}
	if v := q.Get("sync"); v != "" {
		if cfg.SyncWrites, err = strconv.ParseBool(v); err != nil {
			return cfg, fmt.Errorf("storage: badger sync: %w", err)
		}
	}
	if v := q.Get("gc"); v != "" {
		if cfg.GCInterval, err = time.ParseDuration(v); err != nil {
			return cfg, fmt.Errorf("storage: badger gc: %w", err)
		}
	}
	return cfg, nil
}
