package rowsync

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/agribenchmark/farmsync/config"
	"github.com/agribenchmark/farmsync/farmcache"
	"github.com/agribenchmark/farmsync/record"
	"github.com/agribenchmark/farmsync/restclient"
	"github.com/agribenchmark/farmsync/upsert"
	"github.com/agribenchmark/farmsync/utils"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const defaultParallelism = 8

type Upserter interface {
	Upsert(ctx context.Context, path string, rec record.Record) (upsert.Result, error)
}

type Deleter interface {
	Remove(ctx context.Context, path string) (json.RawMessage, error)
}

// Syncer runs the load, edit and submit cycle of one page against the cache
// and the backend.
type Syncer struct {
	page     Page
	cache    *farmcache.Cache
	upserter Upserter
	deleter  Deleter
	notifier Notifier
	logger   *logrus.Logger

	restoreOnDeleteFailure bool
	parallelism            int
}

type Option func(*Syncer)

func WithNotifier(n Notifier) Option {
	return func(s *Syncer) { s.notifier = n }
}

func WithLogger(logger *logrus.Logger) Option {
	return func(s *Syncer) { s.logger = logger }
}

// WithRestoreOnDeleteFailure puts a removed row back into the form when its
// DELETE fails.
func WithRestoreOnDeleteFailure(restore bool) Option {
	return func(s *Syncer) { s.restoreOnDeleteFailure = restore }
}

// WithParallelism caps concurrent row writes per submit.
func WithParallelism(n int) Option {
	return func(s *Syncer) {
		if n > 0 {
			s.parallelism = n
		}
	}
}

func NewSyncer(page Page, cache *farmcache.Cache, upserter Upserter, deleter Deleter, opts ...Option) *Syncer {
	s := &Syncer{
		page:                   page,
		cache:                  cache,
		upserter:               upserter,
		deleter:                deleter,
		logger:                 config.GetLogger(),
		restoreOnDeleteFailure: config.RestoreRowOnDeleteFailure(),
		parallelism:            defaultParallelism,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.notifier == nil {
		s.notifier = LogNotifier{Logger: s.logger}
	}
	return s
}

func (s *Syncer) Page() Page {
	return s.page
}

func (s *Syncer) Key(scope string) farmcache.Key {
	return farmcache.Key{Path: s.page.Path, Scope: scope}
}

// Load reads the page's rows for scope and builds the form from them. It also
// returns the rows as fetched, to be passed back to Submit. With no farm
// selected it returns an empty form without touching the network.
func (s *Syncer) Load(ctx context.Context, scope string) (FormState, []record.Record, error) {
	if scope == "" {
		return FormState{}, nil, nil
	}
	snap := s.cache.Read(utils.SetFarmIdInContext(ctx, scope), s.Key(scope))
	if snap.Err != nil {
		if !snap.Loaded {
			return FormState{Scope: scope}, nil, snap.Err
		}
		s.logger.WithFields(logrus.Fields{
			"page":  s.page.Name,
			"scope": scope,
		}).Warn("serving cached rows after fetch failure: " + snap.Err.Error())
	}
	return s.page.ToFormDefaults(snap.Rows, scope), snap.Rows, nil
}

// AppendRow adds a blank row to group.
func (s *Syncer) AppendRow(state FormState, group string) (FormState, record.Record) {
	return s.page.AppendRow(state, group)
}

// Submit validates the form, then upserts every row concurrently. The cache
// shows the submitted rows immediately and reverts to its previous contents
// if any row fails. previous is the row set the form was loaded from; fields
// the form does not carry are kept from it.
func (s *Syncer) Submit(ctx context.Context, state FormState, previous []record.Record) ([]record.Record, error) {
	rows := s.page.ToPersistedRows(state)
	outcome := Outcome{Action: ActionSubmit, Page: s.page.Name, Scope: state.Scope, Rows: len(rows)}

	if state.Scope == "" {
		outcome.Err = ErrNoFarmSelected
		s.notifier.Notify(outcome)
		return nil, ErrNoFarmSelected
	}

	ctx = utils.SetFarmIdInContext(ctx, state.Scope)
	rows, err := s.prepare(rows)
	if err != nil {
		outcome.Err = err
		s.notifier.Notify(outcome)
		return nil, err
	}

	merged := Reconcile(rows, previous)
	committed, err := s.cache.Mutate(ctx, s.Key(state.Scope), func(ctx context.Context) ([]record.Record, error) {
		return s.writeAll(ctx, state.Scope, merged)
	}, farmcache.MutateOptions{
		OptimisticValue: merged,
		RollbackOnError: true,
		PopulateCache:   true,
	})

	outcome.Err = err
	s.notifier.Notify(outcome)
	if err != nil {
		return nil, err
	}
	return committed, nil
}

// prepare normalizes field values and runs the page schema.
func (s *Syncer) prepare(rows []record.Record) ([]record.Record, error) {
	fields := make(map[string]string)
	seen := make(map[string]bool, len(rows))
	out := make([]record.Record, 0, len(rows))
	for _, row := range rows {
		r := row.Clone()
		r.EnsureID()
		if seen[r.ID()] {
			fields[r.ID()] = "duplicate"
		}
		seen[r.ID()] = true
		for _, f := range s.page.Fields {
			if f.Name == record.FieldId || f.Name == record.FieldFarmId {
				continue
			}
			v, err := f.Normalize(r[f.Name])
			if err != nil {
				fields[r.ID()+"."+f.Name] = "invalid"
				continue
			}
			r[f.Name] = v
		}
		out = append(out, r)
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}
	if s.page.Validate != nil {
		if err := s.page.Validate(out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Syncer) writeAll(ctx context.Context, scope string, rows []record.Record) ([]record.Record, error) {
	results := make([]record.Record, len(rows))
	errs := make([]error, len(rows))

	var g errgroup.Group
	g.SetLimit(s.parallelism)
	for i, row := range rows {
		i, row := i, row
		g.Go(func() error {
			res, err := s.upserter.Upsert(ctx, s.page.Path, row)
			if err != nil {
				errs[i] = err
				return nil
			}
			if res.Record == nil {
				results[i] = row
				return nil
			}
			results[i] = res.Record
			return nil
		})
	}
	_ = g.Wait()

	batch := &BatchError{Path: s.page.Path, Scope: scope}
	for i, err := range errs {
		if err != nil {
			batch.Failed = append(batch.Failed, RowError{ID: rows[i].ID(), Err: err})
			continue
		}
		batch.Succeeded = append(batch.Succeeded, rows[i].ID())
	}
	if len(batch.Failed) > 0 {
		return nil, batch
	}
	return results, nil
}

// RemoveRow drops the row with id from the form and deletes it on the
// backend. A row the backend never had counts as deleted. When the delete
// fails the row is restored in place, unless restore is disabled, and the
// error is returned either way. An id that is not in the form is reported as
// ErrRowNotInForm without a request.
func (s *Syncer) RemoveRow(ctx context.Context, state FormState, id string) (FormState, error) {
	outcome := Outcome{Action: ActionRemove, Page: s.page.Name, Scope: state.Scope, Rows: 1}
	next, row, gi, ri, ok := state.without(id)
	if !ok {
		outcome.Err = fmt.Errorf("%w: %s", ErrRowNotInForm, id)
		s.notifier.Notify(outcome)
		return state, outcome.Err
	}

	_, err := s.deleter.Remove(ctx, restclient.JoinPath(s.page.Path, id))
	if err != nil && restclient.IsNotFound(err) {
		err = nil
	}
	if err == nil {
		s.dropCached(ctx, state.Scope, id)
		s.notifier.Notify(outcome)
		return next, nil
	}

	config.LogError(s.logger, "rowsync", "RemoveRow", "delete row", logrus.Fields{
		"page":  s.page.Name,
		"scope": state.Scope,
		"id":    id,
	}, err)
	outcome.Err = err
	s.notifier.Notify(outcome)
	if s.restoreOnDeleteFailure {
		return next.insertAt(gi, ri, row), err
	}
	return next, err
}

func (s *Syncer) dropCached(ctx context.Context, scope, id string) {
	if scope == "" {
		return
	}
	key := s.Key(scope)
	snap := s.cache.Peek(key)
	if !snap.Loaded {
		return
	}
	rows := make([]record.Record, 0, len(snap.Rows))
	for _, r := range snap.Rows {
		if r.ID() != id {
			rows = append(rows, r)
		}
	}
	if len(rows) != len(snap.Rows) {
		s.cache.Set(ctx, key, rows)
	}
}
