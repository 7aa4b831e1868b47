package cache

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// ErrNotFound is returned by Get for missing or expired keys.
var ErrNotFound = errors.New("cache: key not found")

type BadgerCache struct {
	db      *badger.DB
	metrics *Metrics
	config  *BadgerConfig
	stopGC  chan struct{}
}

type BadgerConfig struct {
	Path             string
	MaxMemoryMB      int
	ValueLogMaxMB    int
	CompactL0OnClose bool
	GCInterval       time.Duration
	GCDiscardRatio   float64
}

func NewBadgerCache(config *BadgerConfig) (*BadgerCache, error) {
	if config.GCInterval == 0 {
		config.GCInterval = 10 * time.Minute
	}
	if config.GCDiscardRatio == 0 {
		config.GCDiscardRatio = 0.5
	}

	opts := badger.DefaultOptions(config.Path)

	if config.MaxMemoryMB > 0 {
		opts = opts.WithMemTableSize(int64(config.MaxMemoryMB) << 20)
	}
	if config.ValueLogMaxMB > 0 {
		opts = opts.WithValueLogFileSize(int64(config.ValueLogMaxMB) << 20)
	}
	opts = opts.WithCompactL0OnClose(config.CompactL0OnClose)
	opts = opts.WithNumVersionsToKeep(1)
	opts = opts.WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	cache := &BadgerCache{
		db:      db,
		metrics: &Metrics{},
		config:  config,
		stopGC:  make(chan struct{}),
	}

	go cache.runGC()

	return cache, nil
}

func (bc *BadgerCache) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte

	err := bc.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		if item.IsDeletedOrExpired() {
			return badger.ErrKeyNotFound
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			atomic.AddUint64(&bc.metrics.Misses, 1)
			return nil, ErrNotFound
		}
		return nil, err
	}

	atomic.AddUint64(&bc.metrics.Hits, 1)
	return value, nil
}

func (bc *BadgerCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	err := bc.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(key), value)
		if ttl > 0 {
			entry = entry.WithTTL(ttl)
		}
		return txn.SetEntry(entry)
	})

	if err == nil {
		atomic.AddUint64(&bc.metrics.Sets, 1)
		atomic.AddUint64(&bc.metrics.Keys, 1)
	}

	return err
}

func (bc *BadgerCache) Delete(ctx context.Context, key string) error {
	err := bc.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})

	if err == nil {
		atomic.AddUint64(&bc.metrics.Deletes, 1)
	}

	return err
}

func (bc *BadgerCache) GetMetrics() *Metrics {
	return bc.metrics
}

func (bc *BadgerCache) Close() error {
	close(bc.stopGC)
	return bc.db.Close()
}

// runGC reclaims value log space in the background until Close.
func (bc *BadgerCache) runGC() {
	ticker := time.NewTicker(bc.config.GCInterval)
	defer ticker.Stop()

	for {
		select {
		case <-bc.stopGC:
			return
		case <-ticker.C:
			// RunValueLogGC returns an error when there is nothing to
			// collect; loop until it does.
			for {
				if err := bc.db.RunValueLogGC(bc.config.GCDiscardRatio); err != nil {
					break
				}
			}
		}
	}
}

var _ Cache = (*BadgerCache)(nil)
