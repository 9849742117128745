// Package querycache persists oracle verdicts keyed by candidate
// ciphertext. An attack against a flaky remote service can be
// interrupted and re-run: every already-answered query is replayed from
// disk instead of costing another round trip.
package querycache

import (
	"fmt"
	"sync/atomic"

	"github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"
)

var log *logrus.Logger

type Config struct {
	// Path is the badger directory. Ignored when InMemory is set.
	Path string
	// InMemory keeps the cache for the lifetime of the process only.
	InMemory bool
	Logger   *logrus.Logger
}

type Cache struct {
	config Config
	db     *badger.DB
	hits   atomic.Uint64
	misses atomic.Uint64
}

func Open(config Config) (*Cache, error) {
	if config.Logger == nil {
		config.Logger = logrus.New()
	}
	log = config.Logger

	if !config.InMemory && config.Path == "" {
		return nil, fmt.Errorf("querycache: a path is required for an on-disk cache")
	}

	opts := badger.DefaultOptions(config.Path)
	opts.Logger = nil
	opts.SyncWrites = false
	if config.InMemory {
		opts = opts.WithInMemory(true).WithDir("").WithValueDir("")
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("querycache: opening badger at %q: %w", config.Path, err)
	}

	c := &Cache{config: config, db: db}
	if !config.InMemory {
		if err := c.logDiskUsage(); err != nil {
			log.WithField("path", config.Path).Warnf("could not read disk usage: %v", err)
		}
	}
	return c, nil
}

// Get returns the cached verdict for candidate and whether one exists.
func (c *Cache) Get(candidate []byte) (verdict bool, ok bool, err error) {
	err = c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(candidate)
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			ok = true
			verdict = len(val) == 1 && val[0] == 1
			return nil
		})
	})
	if err != nil {
		return false, false, fmt.Errorf("querycache: get: %w", err)
	}
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return verdict, ok, nil
}

// Put records a verdict. Transport failures are never stored; only real
// answers are worth replaying.
func (c *Cache) Put(candidate []byte, verdict bool) error {
	val := []byte{0}
	if verdict {
		val[0] = 1
	}
	err := c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(append([]byte(nil), candidate...), val)
	})
	if err != nil {
		return fmt.Errorf("querycache: put: %w", err)
	}
	return nil
}

// Stats returns cache hits and misses since Open.
func (c *Cache) Stats() (hits, misses uint64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *Cache) Close() error {
	hits, misses := c.Stats()
	log.WithFields(logrus.Fields{
		"hits":   hits,
		"misses": misses,
	}).Info("closing query cache")
	return c.db.Close()
}
