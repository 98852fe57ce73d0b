package farmcache

import (
	"context"
	"errors"
	"sync"

	"github.com/agribenchmark/farmsync/config"
	"github.com/agribenchmark/farmsync/record"
	"github.com/agribenchmark/farmsync/restclient"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// Key identifies one row set: a resource path scoped to a farm.
type Key struct {
	Path  string
	Scope string
}

func (k Key) String() string {
	return k.Path + "|" + k.Scope
}

// State tracks the mutation lifecycle of a row set.
type State int

const (
	Idle State = iota
	Submitting
	Committed
	RolledBack
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Submitting:
		return "submitting"
	case Committed:
		return "committed"
	case RolledBack:
		return "rolled_back"
	default:
		return "unknown"
	}
}

// Snapshot is a copy of one cache entry; callers may modify it freely.
type Snapshot struct {
	Rows      []record.Record
	Loaded    bool
	IsLoading bool
	// Stale is set when Rows came from the Store after a failed fetch.
	Stale bool
	Err   *FetchError
	State State
}

type Fetcher interface {
	FetchRows(ctx context.Context, path, scope string) ([]record.Record, error)
}

type entry struct {
	rows     []record.Record
	loaded   bool
	fetching int
	stale    bool
	err      *FetchError
	state    State
	// generation changes on every local write; fetches started under an
	// older generation are discarded.
	generation uint64
	// optimistic is the token of the mutation whose optimistic value is
	// currently cached, 0 when none is.
	optimistic uint64
}

// Cache holds one row set per Key. Reads of the same key share one in-flight
// fetch. Mutations are not serialized; the last write to settle wins.
type Cache struct {
	mu      sync.Mutex
	entries map[Key]*entry
	seq     uint64

	fetcher Fetcher
	store   Store
	group   singleflight.Group
	logger  *logrus.Logger
}

type Option func(*Cache)

func WithStore(store Store) Option {
	return func(c *Cache) { c.store = store }
}

func WithLogger(logger *logrus.Logger) Option {
	return func(c *Cache) { c.logger = logger }
}

func New(fetcher Fetcher, opts ...Option) *Cache {
	c := &Cache{
		entries: make(map[Key]*entry),
		fetcher: fetcher,
		logger:  config.GetLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// must hold c.mu
func (c *Cache) entry(key Key) *entry {
	e, ok := c.entries[key]
	if !ok {
		e = &entry{}
		c.entries[key] = e
	}
	return e
}

// must hold c.mu
func (e *entry) snapshot() Snapshot {
	return Snapshot{
		Rows:      record.CloneAll(e.rows),
		Loaded:    e.loaded,
		IsLoading: e.fetching > 0,
		Stale:     e.stale,
		Err:       e.err,
		State:     e.state,
	}
}

// Read returns the cached row set, fetching it first when nothing is cached.
// An empty scope is a valid "no farm selected" state and never fetches.
func (c *Cache) Read(ctx context.Context, key Key) Snapshot {
	if key.Scope == "" {
		return Snapshot{}
	}
	c.mu.Lock()
	e := c.entry(key)
	if e.loaded {
		s := e.snapshot()
		c.mu.Unlock()
		return s
	}
	c.mu.Unlock()
	return c.Revalidate(ctx, key)
}

// Peek returns the current entry without fetching.
func (c *Cache) Peek(key Key) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return Snapshot{}
	}
	return e.snapshot()
}

// Revalidate fetches the row set from the backend, sharing the request with
// any concurrent caller for the same key. The shared fetch outlives the caller
// that started it; a caller that gives up only stops waiting.
func (c *Cache) Revalidate(ctx context.Context, key Key) Snapshot {
	if key.Scope == "" {
		return Snapshot{}
	}
	fetchCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key.String(), func() (interface{}, error) {
		c.fetch(fetchCtx, key)
		return nil, nil
	})
	select {
	case <-ch:
	case <-ctx.Done():
		return Snapshot{
			Err: &FetchError{Key: key, Err: ctx.Err()},
		}
	}
	return c.Peek(key)
}

func (c *Cache) fetch(ctx context.Context, key Key) {
	c.mu.Lock()
	e := c.entry(key)
	e.fetching++
	generation := e.generation
	c.mu.Unlock()

	rows, err := c.fetcher.FetchRows(ctx, key.Path, key.Scope)
	if err != nil && restclient.IsNotFound(err) {
		rows, err = []record.Record{}, nil
	}

	var stored []record.Record
	var haveStored bool
	if err != nil && c.store != nil && restclient.StatusCode(err) == 0 {
		var serr error
		stored, haveStored, serr = c.store.Load(ctx, key)
		if serr != nil {
			config.LogError(c.logger, "farmcache", "fetch", "store load", key.String(), serr)
		}
	}

	c.mu.Lock()
	e.fetching--
	if e.generation != generation {
		// a local write landed while fetching; keep it
		c.mu.Unlock()
		c.logger.WithField("key", key.String()).Debug("discarding fetch superseded by local write")
		return
	}
	if err != nil {
		e.err = &FetchError{Key: key, Status: restclient.StatusCode(err), Err: err}
		if haveStored && !e.loaded {
			e.rows = stored
			e.loaded = true
			e.stale = true
		}
		c.mu.Unlock()
		config.LogError(c.logger, "farmcache", "fetch", "fetch rows", key.String(), err)
		return
	}
	if rows == nil {
		rows = []record.Record{}
	}
	e.rows = rows
	e.loaded = true
	e.stale = false
	e.err = nil
	persist := record.CloneAll(rows)
	c.mu.Unlock()

	c.save(ctx, key, persist)
}

// Set replaces the cached row set without a network call.
func (c *Cache) Set(ctx context.Context, key Key, rows []record.Record) {
	c.mu.Lock()
	e := c.entry(key)
	e.rows = record.CloneAll(rows)
	if e.rows == nil {
		e.rows = []record.Record{}
	}
	e.loaded = true
	e.stale = false
	e.err = nil
	e.generation++
	persist := record.CloneAll(e.rows)
	c.mu.Unlock()

	c.save(ctx, key, persist)
}

// Invalidate drops the entry so the next Read fetches again.
func (c *Cache) Invalidate(ctx context.Context, key Key) {
	c.mu.Lock()
	if e, ok := c.entries[key]; ok {
		e.generation++
		delete(c.entries, key)
	}
	c.mu.Unlock()

	if c.store != nil {
		if err := c.store.Delete(ctx, key); err != nil {
			config.LogError(c.logger, "farmcache", "Invalidate", "store delete", key.String(), err)
		}
	}
}

func (c *Cache) save(ctx context.Context, key Key, rows []record.Record) {
	if c.store == nil {
		return
	}
	if err := c.store.Save(ctx, key, rows); err != nil && !errors.Is(err, context.Canceled) {
		config.LogError(c.logger, "farmcache", "save", "store save", key.String(), err)
	}
}
