// Package mutation runs writes against the remote API with optimistic cache
// updates, rollback on failure and reconciliation on success.
package mutation

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	apperrors "github.com/krisalay/campaign-cache/errors"
	"github.com/krisalay/campaign-cache/types"
)

// ErrNoop, returned by Definition.Optimistic, ends the mutation successfully
// without calling the API. Deleting an id that is already gone uses it.
var ErrNoop = errors.New("mutation: nothing to do")

// Cache is the part of the query cache a coordinator writes to.
type Cache interface {
	ApplyOptimistic(key types.QueryKey, fn func(prev any, exists bool) (next any, install bool)) types.Snapshot
	Restore(snap types.Snapshot)
	Reconcile(ctx context.Context, key types.QueryKey, dependents ...types.QueryKey) error
}

/*
Coordinator owns what every mutation shares: the cache, the per-key
critical sections, and telemetry. Create one per cache and pass it to
every Mutation.
*/
type Coordinator struct {
	cache   Cache
	locks   *keyLocks
	logger  *zap.Logger
	tracer  trace.Tracer
	metrics types.Metrics
}

type Option func(*Coordinator)

func WithLogger(l *zap.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.logger = l
		}
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(c *Coordinator) {
		if t != nil {
			c.tracer = t
		}
	}
}

func WithMetrics(m types.Metrics) Option {
	return func(c *Coordinator) {
		if m != nil {
			c.metrics = m
		}
	}
}

func NewCoordinator(cache Cache, opts ...Option) *Coordinator {
	c := &Coordinator{
		cache:   cache,
		locks:   newKeyLocks(),
		logger:  zap.NewNop(),
		tracer:  otel.Tracer("github.com/krisalay/campaign-cache/mutation"),
		metrics: types.NoopMetrics{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

/*
Definition describes one kind of write.

Key is the primary query key, the one the speculative value goes into.
Optimistic computes that value from the current one; it returns ok=false to
leave the cache untouched and ErrNoop to skip the API call altogether. It must
not modify prev. Invalidates lists the dependent keys (prefixes allowed)
reconciled together with Key after success.
*/
type Definition[In, Out any] struct {
	Name string

	Key         func(in In) types.QueryKey
	Optimistic  func(prev any, exists bool, in In) (next any, ok bool, err error)
	Mutate      func(ctx context.Context, in In) (Out, error)
	Invalidates func(in In) []types.QueryKey

	// TreatNotFoundAsDone makes a 404 from Mutate count as success.
	// Deletes use it: the entity is gone either way.
	TreatNotFoundAsDone bool
}

// Mutation is a Definition bound to a Coordinator.
type Mutation[In, Out any] struct {
	c   *Coordinator
	def Definition[In, Out]
}

func New[In, Out any](c *Coordinator, def Definition[In, Out]) *Mutation[In, Out] {
	return &Mutation[In, Out]{c: c, def: def}
}

/*
Run executes the mutation protocol for in:

 1. wait for earlier mutations of the same key
 2. cancel the key's in-flight fetch, snapshot it, install the speculative value
 3. call the API
 4. on failure, restore the snapshot and return the error
 5. on success, mark the primary and dependent keys stale together and
    reload them

Steps 2 to 5 run as one critical section per key. Dependent keys that
another mutation holds are only marked stale; that mutation reloads them
when it settles. A failed reload in step 5 is logged; the entries stay
stale and are reloaded on the next read.
*/
func (m *Mutation[In, Out]) Run(ctx context.Context, in In) (Out, error) {
	var zero Out
	c := m.c
	key := m.def.Key(in)

	ctx, span := c.tracer.Start(ctx, "mutation."+m.def.Name,
		trace.WithAttributes(attribute.String("cache.key", key.String())))
	defer span.End()

	unlock, err := c.locks.lock(ctx, key.String())
	if err != nil {
		span.SetStatus(codes.Error, "lock")
		return zero, err
	}
	defer unlock()

	var optErr error
	snap := c.cache.ApplyOptimistic(key, func(prev any, exists bool) (any, bool) {
		if m.def.Optimistic == nil {
			return nil, false
		}
		next, ok, err := m.def.Optimistic(prev, exists, in)
		if err != nil {
			optErr = err
			return nil, false
		}
		return next, ok
	})

	if optErr != nil {
		// Nothing was installed, but the fetch may have been cancelled.
		c.cache.Restore(snap)
		if errors.Is(optErr, ErrNoop) {
			span.AddEvent("noop")
			c.logger.Debug("mutation skipped", zap.String("mutation", m.def.Name), zap.Stringer("key", key))
			return zero, nil
		}
		span.RecordError(optErr)
		span.SetStatus(codes.Error, optErr.Error())
		return zero, optErr
	}

	out, err := m.def.Mutate(ctx, in)
	if err != nil && m.def.TreatNotFoundAsDone && apperrors.IsNotFound(err) {
		c.logger.Debug("mutation target already gone", zap.String("mutation", m.def.Name), zap.Stringer("key", key))
		err = nil
	}

	if err != nil {
		c.cache.Restore(snap)
		c.metrics.Rollback()

		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.Warn("mutation rolled back",
			zap.String("mutation", m.def.Name),
			zap.Stringer("key", key),
			zap.String("kind", string(apperrors.KindOf(err))),
			zap.Error(err),
		)
		return zero, err
	}

	var deps []types.QueryKey
	if m.def.Invalidates != nil {
		deps = m.def.Invalidates(in)
	}
	if rerr := c.cache.Reconcile(ctx, key, deps...); rerr != nil {
		span.AddEvent("reconcile failed", trace.WithAttributes(attribute.String("error", rerr.Error())))
		c.logger.Warn("mutation reconcile failed",
			zap.String("mutation", m.def.Name),
			zap.Stringer("key", key),
			zap.Error(rerr),
		)
	}

	span.SetStatus(codes.Ok, "")
	return out, nil
}
