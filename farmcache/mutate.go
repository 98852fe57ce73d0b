package farmcache

import (
	"context"

	"github.com/agribenchmark/farmsync/config"
	"github.com/agribenchmark/farmsync/record"
	"github.com/sirupsen/logrus"
)

// WriteFunc performs the remote write and returns the row set it produced.
type WriteFunc func(ctx context.Context) ([]record.Record, error)

type MutateOptions struct {
	// OptimisticValue is cached before the write starts. Nil leaves the
	// cache untouched until the write settles; use an empty slice for an
	// optimistic empty row set.
	OptimisticValue []record.Record
	// RollbackOnError restores the pre-mutation row set when the write fails.
	RollbackOnError bool
	// PopulateCache adopts the write's result on success. Otherwise the
	// optimistic value stays cached.
	PopulateCache bool
	// Revalidate refetches from the backend after a successful write.
	Revalidate bool
}

// Mutate applies opts.OptimisticValue immediately, runs write, then commits or
// rolls back. The write error is returned unchanged.
//
// A rollback only happens while this mutation's optimistic value is still the
// cached one; a later mutation that already replaced it wins.
func (c *Cache) Mutate(ctx context.Context, key Key, write WriteFunc, opts MutateOptions) ([]record.Record, error) {
	if key.Scope == "" {
		return nil, ErrNoScope
	}

	c.mu.Lock()
	e := c.entry(key)
	c.seq++
	token := c.seq
	before := record.CloneAll(e.rows)
	beforeLoaded := e.loaded
	beforeStale := e.stale
	e.generation++
	if opts.OptimisticValue != nil {
		e.rows = record.CloneAll(opts.OptimisticValue)
		e.loaded = true
		e.stale = false
		e.optimistic = token
	}
	e.state = Submitting
	c.mu.Unlock()

	result, err := write(ctx)

	c.mu.Lock()
	// A mutation owns the entry while its optimistic value is the cached one,
	// or when it cached nothing and no other optimistic value is pending.
	owns := e.optimistic == token || (opts.OptimisticValue == nil && e.optimistic == 0)
	if err != nil {
		rolledBack := false
		if opts.RollbackOnError && opts.OptimisticValue != nil && e.optimistic == token {
			e.rows = before
			e.loaded = beforeLoaded
			e.stale = beforeStale
			e.optimistic = 0
			e.generation++
			rolledBack = true
		}
		if owns {
			e.state = RolledBack
		}
		c.mu.Unlock()

		config.LogError(c.logger, "farmcache", "Mutate", "write failed", logrus.Fields{
			"key":         key.String(),
			"rolled_back": rolledBack,
		}, err)
		return nil, err
	}

	if opts.PopulateCache && result != nil {
		e.rows = record.CloneAll(result)
		e.loaded = true
		e.stale = false
	}
	if e.optimistic == token {
		e.optimistic = 0
	}
	e.err = nil
	if owns {
		e.state = Committed
	}
	e.generation++
	committed := record.CloneAll(e.rows)
	c.mu.Unlock()

	c.save(ctx, key, committed)

	if opts.Revalidate {
		if s := c.Revalidate(ctx, key); s.Err != nil {
			c.logger.WithField("key", key.String()).Warn("revalidate after mutate failed: " + s.Err.Error())
		} else {
			committed = s.Rows
		}
	}
	return committed, nil
}
