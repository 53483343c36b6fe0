package storage

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/yndnr/authrelay-go/internal/core/domain"
)

// Key layout:
//
//	s/<id>                      -> JSON domain.Session
//	c/<created_at:8 BE><id>     -> empty, ordered by creation time
var (
	recordPrefix  = []byte("s/")
	createdPrefix = []byte("c/")
)

const (
	sweepChunk      = 512
	conflictRetries = 3
)

// BadgerConfig contains Badger tuning parameters.
type BadgerConfig struct {
	// Dir is the storage directory. Ignored when InMemory is set.
	Dir string

	// InMemory keeps everything in RAM.
	InMemory bool

	// GCInterval is the interval between value log GC runs (default: 10m).
	GCInterval time.Duration

	// GCThreshold is the discard ratio that triggers a rewrite (default: 0.5).
	GCThreshold float64

	// CacheSize is the block cache size in bytes (default: 64MB).
	CacheSize int64

	// SyncWrites fsyncs after each write.
	SyncWrites bool
}

// DefaultBadgerConfig returns the default Badger configuration.
func DefaultBadgerConfig(dir string) BadgerConfig {
	return BadgerConfig{
		Dir:         dir,
		GCInterval:  10 * time.Minute,
		GCThreshold: 0.5,
		CacheSize:   64 << 20,
		SyncWrites:  true,
	}
}

// BadgerStore is an embedded session table on Badger v3.
type BadgerStore struct {
	db     *badger.DB
	cfg    BadgerConfig
	logger *slog.Logger

	gcRuns prometheus.Counter

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewBadgerStore opens (or creates) the database and starts the value log
// GC loop.
func NewBadgerStore(cfg BadgerConfig, logger *slog.Logger) (*BadgerStore, error) {
	if cfg.Dir == "" && !cfg.InMemory {
		return nil, fmt.Errorf("badger: dir is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultBadgerConfig(cfg.Dir)
	if cfg.GCInterval <= 0 {
		cfg.GCInterval = def.GCInterval
	}
	if cfg.GCThreshold <= 0 || cfg.GCThreshold >= 1 {
		cfg.GCThreshold = def.GCThreshold
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = def.CacheSize
	}

	opts := badger.DefaultOptions(cfg.Dir).
		WithInMemory(cfg.InMemory).
		WithBlockCacheSize(cfg.CacheSize).
		WithSyncWrites(cfg.SyncWrites).
		WithLogger(&badgerLogger{logger: logger})
	if cfg.InMemory {
		opts = opts.WithDir("").WithValueDir("")
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger: open db: %w", err)
	}

	s := &BadgerStore{
		db:     db,
		cfg:    cfg,
		logger: logger,
		gcRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "authrelay",
			Subsystem: "badger",
			Name:      "gc_runs_total",
			Help:      "Value log GC passes that rewrote a file",
		}),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}

	go s.gcLoop()

	logger.Info("badger session store started",
		"dir", cfg.Dir,
		"in_memory", cfg.InMemory,
		"gc_interval", cfg.GCInterval)

	return s, nil
}

func recordKey(id string) []byte {
	return append(append([]byte{}, recordPrefix...), id...)
}

func createdKey(createdAt int64, id string) []byte {
	if createdAt < 0 {
		createdAt = 0
	}
	k := make([]byte, 0, len(createdPrefix)+8+len(id))
	k = append(k, createdPrefix...)
	k = binary.BigEndian.AppendUint64(k, uint64(createdAt))
	return append(k, id...)
}

func parseCreatedKey(k []byte) (int64, string, bool) {
	if len(k) < len(createdPrefix)+8 {
		return 0, "", false
	}
	body := k[len(createdPrefix):]
	return int64(binary.BigEndian.Uint64(body[:8])), string(body[8:]), true
}

// Get returns the record stored under id.
func (s *BadgerStore) Get(_ context.Context, id string) (*domain.Session, error) {
	var rec domain.Session
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(recordKey(id))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return domain.ErrSessionNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Put inserts or replaces a record and its creation index entry.
func (s *BadgerStore) Put(_ context.Context, rec *domain.Session) error {
	val, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("badger: marshal session: %w", err)
	}
	return s.update(func(txn *badger.Txn) error {
		if prev, err := s.load(txn, rec.ID); err == nil && prev.CreatedAt != rec.CreatedAt {
			if err := txn.Delete(createdKey(prev.CreatedAt, prev.ID)); err != nil {
				return err
			}
		} else if err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
			return err
		}
		if err := txn.Set(recordKey(rec.ID), val); err != nil {
			return err
		}
		return txn.Set(createdKey(rec.CreatedAt, rec.ID), nil)
	})
}

// Delete removes a record. Missing ids are ignored.
func (s *BadgerStore) Delete(_ context.Context, id string) error {
	return s.update(func(txn *badger.Txn) error {
		prev, err := s.load(txn, id)
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := txn.Delete(createdKey(prev.CreatedAt, id)); err != nil {
			return err
		}
		return txn.Delete(recordKey(id))
	})
}

// DeleteCreatedBefore walks the creation index up to cutoff and removes the
// matching records in chunks.
func (s *BadgerStore) DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	limit := cutoff.UnixMilli()

	var candidates [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = createdPrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			k := it.Item().KeyCopy(nil)
			ts, _, ok := parseCreatedKey(k)
			if !ok {
				continue
			}
			if ts >= limit {
				break
			}
			candidates = append(candidates, k)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("badger: scan created index: %w", err)
	}

	deleted := 0
	for start := 0; start < len(candidates); start += sweepChunk {
		if err := ctx.Err(); err != nil {
			return deleted, err
		}
		end := min(start+sweepChunk, len(candidates))
		n := 0
		err := s.update(func(txn *badger.Txn) error {
			n = 0
			for _, k := range candidates[start:end] {
				ts, id, _ := parseCreatedKey(k)
				rec, err := s.load(txn, id)
				switch {
				case err == nil && rec.CreatedAt == ts:
					if err := txn.Delete(recordKey(id)); err != nil {
						return err
					}
					n++
				case err != nil && !errors.Is(err, domain.ErrSessionNotFound):
					return err
				}
				if err := txn.Delete(k); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return deleted, fmt.Errorf("badger: sweep: %w", err)
		}
		deleted += n
	}
	return deleted, nil
}

// Ping reports whether the database is open.
func (s *BadgerStore) Ping(context.Context) error {
	if s.db.IsClosed() {
		return errors.New("badger: closed")
	}
	return nil
}

func (s *BadgerStore) load(txn *badger.Txn, id string) (*domain.Session, error) {
	item, err := txn.Get(recordKey(id))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, err
	}
	var rec domain.Session
	if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &rec) }); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *BadgerStore) update(fn func(txn *badger.Txn) error) error {
	var err error
	for i := 0; i < conflictRetries; i++ {
		if err = s.db.Update(fn); !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return err
}

// GC runs value log GC until nothing more can be rewritten.
func (s *BadgerStore) GC() error {
	start := time.Now()
	passes := 0
	for {
		err := s.db.RunValueLogGC(s.cfg.GCThreshold)
		if err != nil {
			if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrGCInMemoryMode) {
				break
			}
			return fmt.Errorf("badger: gc: %w", err)
		}
		passes++
		s.gcRuns.Inc()
	}
	if passes > 0 {
		s.logger.Info("badger gc completed", "passes", passes, "elapsed", time.Since(start))
	}
	return nil
}

// Close stops the GC loop and closes the database.
func (s *BadgerStore) Close() error {
	s.logger.Info("shutting down badger session store")

	close(s.stopCh)
	<-s.doneCh

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("badger: close db: %w", err)
	}
	return nil
}

// RegisterMetrics registers Badger size gauges and the GC counter.
func (s *BadgerStore) RegisterMetrics(reg prometheus.Registerer) *BadgerStore {
	size := func(pick func(lsm, vlog int64) int64) func() float64 {
		return func() float64 {
			lsm, vlog := s.db.Size()
			return float64(pick(lsm, vlog))
		}
	}
	reg.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "authrelay",
			Subsystem: "badger",
			Name:      "lsm_size_bytes",
			Help:      "Badger LSM tree size in bytes",
		}, size(func(lsm, _ int64) int64 { return lsm })),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "authrelay",
			Subsystem: "badger",
			Name:      "value_log_size_bytes",
			Help:      "Badger value log size in bytes",
		}, size(func(_, vlog int64) int64 { return vlog })),
		s.gcRuns,
	)
	return s
}

func (s *BadgerStore) gcLoop() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.cfg.GCInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.GC(); err != nil {
				s.logger.Error("auto gc failed", "error", err)
			}
		case <-s.stopCh:
			return
		}
	}
}

// badgerLogger adapts slog.Logger to Badger's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
