// Copyright (C) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pebble

import (
	"errors"
	"sync"
	"time"

	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/utils/units"
	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ava-labs/hypercounter/state"
)

var _ state.KVStore = (*Database)(nil)

type Config struct {
	CacheSize             int64 `json:"cacheSize" yaml:"cacheSize"`
	BytesPerSync          int   `json:"bytesPerSync" yaml:"bytesPerSync"`
	WALBytesPerSync       int   `json:"walBytesPerSync" yaml:"walBytesPerSync"`
	MaxOpenFiles          int   `json:"maxOpenFiles" yaml:"maxOpenFiles"`
	ConcurrentCompactions int   `json:"concurrentCompactions" yaml:"concurrentCompactions"`
	Sync                  bool  `json:"sync" yaml:"sync"`

	// InMemory keeps all files in memory. Used by tests.
	InMemory bool `json:"-" yaml:"-"`
}

func NewDefaultConfig() Config {
	return Config{
		CacheSize:             64 * units.MiB,
		BytesPerSync:          units.MiB,
		WALBytesPerSync:       units.MiB,
		MaxOpenFiles:          4_096,
		ConcurrentCompactions: 1,
		Sync:                  true,
	}
}

// Database is the durable key-value store backing the base ledger.
type Database struct {
	lock   sync.RWMutex
	db     *pebble.DB
	closed bool

	writeOpts *pebble.WriteOptions
	metrics   *metrics

	closing chan struct{}
	wg      sync.WaitGroup
}

func New(file string, cfg Config) (*Database, *prometheus.Registry, error) {
	cache := pebble.NewCache(cfg.CacheSize)
	defer cache.Unref()

	opts := &pebble.Options{
		Cache:                    cache,
		BytesPerSync:             cfg.BytesPerSync,
		WALBytesPerSync:          cfg.WALBytesPerSync,
		MaxOpenFiles:             cfg.MaxOpenFiles,
		MaxConcurrentCompactions: func() int { return cfg.ConcurrentCompactions },
	}
	if cfg.InMemory {
		opts.FS = vfs.NewMem()
	}
	db, err := pebble.Open(file, opts)
	if err != nil {
		return nil, nil, err
	}
	registry, metrics, err := newMetrics()
	if err != nil {
		return nil, nil, errors.Join(err, db.Close())
	}
	wo := pebble.NoSync
	if cfg.Sync {
		wo = pebble.Sync
	}
	d := &Database{
		db:        db,
		writeOpts: wo,
		metrics:   metrics,
		closing:   make(chan struct{}),
	}
	d.wg.Add(1)
	go d.collectMetrics()
	return d, registry, nil
}

func (db *Database) Has(key []byte) (bool, error) {
	_, err := db.Get(key)
	if errors.Is(err, database.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (db *Database) Get(key []byte) ([]byte, error) {
	db.lock.RLock()
	defer db.lock.RUnlock()

	if db.closed {
		return nil, database.ErrClosed
	}
	start := time.Now()
	value, closer, err := db.db.Get(key)
	db.metrics.getLatency.Observe(float64(time.Since(start)))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, database.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

func (db *Database) Put(key []byte, value []byte) error {
	db.lock.RLock()
	defer db.lock.RUnlock()

	if db.closed {
		return database.ErrClosed
	}
	return db.db.Set(key, value, db.writeOpts)
}

func (db *Database) Delete(key []byte) error {
	db.lock.RLock()
	defer db.lock.RUnlock()

	if db.closed {
		return database.ErrClosed
	}
	return db.db.Delete(key, db.writeOpts)
}

func (db *Database) NewBatch() database.Batch {
	return &batch{db: db, b: db.db.NewBatch()}
}

func (db *Database) Close() error {
	db.lock.Lock()
	if db.closed {
		db.lock.Unlock()
		return database.ErrClosed
	}
	db.closed = true
	close(db.closing)
	db.lock.Unlock()

	db.wg.Wait()
	return db.db.Close()
}
