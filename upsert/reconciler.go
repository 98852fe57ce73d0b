package upsert

import (
	"context"
	"errors"
	"fmt"

	"github.com/agribenchmark/farmsync/config"
	"github.com/agribenchmark/farmsync/record"
	"github.com/agribenchmark/farmsync/restclient"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/agribenchmark/farmsync/upsert"

var ErrMissingID = errors.New("record has no id")

// ResourceClient is the part of restclient.Client the reconciler needs.
type ResourceClient interface {
	Exists(ctx context.Context, path string) (bool, error)
	Create(ctx context.Context, path string, rec record.Record) (record.Record, error)
	Replace(ctx context.Context, path, id string, rec record.Record) (record.Record, error)
}

type Result struct {
	Record  record.Record
	Created bool
}

// Reconciler decides create-vs-replace for a record by probing the backend.
// Probe and write are two requests; a concurrent writer between them can win.
type Reconciler struct {
	client ResourceClient
	atomic bool
	logger *logrus.Logger
	tracer trace.Tracer
}

type Option func(*Reconciler)

// WithAtomicPut skips the probe and always replaces, for backends whose PUT
// creates unknown ids.
func WithAtomicPut(atomic bool) Option {
	return func(r *Reconciler) { r.atomic = atomic }
}

func WithLogger(logger *logrus.Logger) Option {
	return func(r *Reconciler) { r.logger = logger }
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(r *Reconciler) { r.tracer = tp.Tracer(tracerName) }
}

func New(client ResourceClient, opts ...Option) *Reconciler {
	r := &Reconciler{
		client: client,
		logger: config.GetLogger(),
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewFromEnv honours the ATOMIC_UPSERT feature flag.
func NewFromEnv(client ResourceClient) *Reconciler {
	return New(client, WithAtomicPut(config.AtomicUpsert()))
}

// Upsert writes rec under path, creating it when the backend reports its id
// as absent. Probe failures other than 404 abort without writing.
func (r *Reconciler) Upsert(ctx context.Context, path string, rec record.Record) (Result, error) {
	ctx, span := r.tracer.Start(ctx, "upsert "+path, trace.WithAttributes(
		attribute.String("agribench.path", path),
		attribute.String("agribench.id", rec.ID()),
		attribute.Bool("agribench.atomic", r.atomic),
	))
	defer span.End()

	res, err := r.upsert(ctx, path, rec)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return res, err
	}
	span.SetAttributes(attribute.Bool("agribench.created", res.Created))
	return res, nil
}

func (r *Reconciler) upsert(ctx context.Context, path string, rec record.Record) (Result, error) {
	id := rec.ID()
	if id == "" {
		return Result{}, ErrMissingID
	}

	if r.atomic {
		stored, err := r.client.Replace(ctx, path, id, rec)
		if err != nil {
			return Result{}, fmt.Errorf("replace %s: %w", id, err)
		}
		return Result{Record: stored}, nil
	}

	exists, err := r.client.Exists(ctx, restclient.JoinPath(path, id))
	if err != nil {
		return Result{}, fmt.Errorf("probe %s: %w", id, err)
	}

	r.logger.WithFields(logrus.Fields{
		"path":   path,
		"id":     id,
		"exists": exists,
	}).Debug("upsert probe")

	if exists {
		stored, err := r.client.Replace(ctx, path, id, rec)
		if err != nil {
			return Result{}, fmt.Errorf("replace %s: %w", id, err)
		}
		return Result{Record: stored}, nil
	}

	stored, err := r.client.Create(ctx, path, rec)
	if err != nil {
		return Result{}, fmt.Errorf("create %s: %w", id, err)
	}
	return Result{Record: stored, Created: true}, nil
}
