package mutation_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	cache "github.com/krisalay/campaign-cache"
	"github.com/krisalay/campaign-cache/engine"
	apperrors "github.com/krisalay/campaign-cache/errors"
	"github.com/krisalay/campaign-cache/eviction"
	"github.com/krisalay/campaign-cache/mutation"
	"github.com/krisalay/campaign-cache/types"
)

// server is the authoritative copy the loader reads from.
type server struct {
	mu   sync.Mutex
	data map[string][]string
}

func (s *server) get(key types.QueryKey) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.data[key.String()]...)
}

func (s *server) put(key types.QueryKey, v []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key.String()] = v
}

func newCache(t *testing.T, srv *server) *cache.QueryCache {
	t.Helper()
	loader := types.LoaderFunc(func(ctx context.Context, key types.QueryKey) (any, error) {
		return srv.get(key), nil
	})
	eng := engine.NewCacheEngine(nil, nil, loader, nil, nil, time.Minute)
	c := cache.NewQueryCache(2, 0, eviction.LRU, eng)
	t.Cleanup(c.Close)
	return c
}

var listKey = types.Key("events", "all", "character", "c1")

func appendItem(prev any, exists bool, item string) (any, bool, error) {
	if !exists {
		return nil, false, nil
	}
	list := prev.([]string)
	next := make([]string, 0, len(list)+1)
	next = append(next, list...)
	return append(next, item), true, nil
}

func removeItem(prev any, exists bool, item string) (any, bool, error) {
	if !exists {
		return nil, false, nil
	}
	list := prev.([]string)
	next := make([]string, 0, len(list))
	for _, v := range list {
		if v != item {
			next = append(next, v)
		}
	}
	if len(next) == len(list) {
		return nil, false, mutation.ErrNoop
	}
	return next, true, nil
}

func TestRunRollsBackOnFailure(t *testing.T) {
	srv := &server{data: map[string][]string{listKey.String(): {"e1", "e2"}}}
	c := newCache(t, srv)
	_, err := c.Fetch(context.Background(), listKey)
	require.NoError(t, err)

	boom := apperrors.Status("remote.DeleteEvent", 500, "")
	var seen []string
	del := mutation.New(mutation.NewCoordinator(c), mutation.Definition[string, struct{}]{
		Name: "delete_event",
		Key:  func(string) types.QueryKey { return listKey },
		Optimistic: func(prev any, exists bool, id string) (any, bool, error) {
			return removeItem(prev, exists, id)
		},
		Mutate: func(ctx context.Context, id string) (struct{}, error) {
			ent, _ := c.Get(listKey)
			seen = ent.Value.([]string)
			return struct{}{}, boom
		},
	})

	_, err = del.Run(context.Background(), "e1")
	require.ErrorIs(t, err, boom)
	assert.True(t, apperrors.IsStatus(err))

	assert.Equal(t, []string{"e2"}, seen)
	ent, _ := c.Get(listKey)
	assert.Equal(t, []string{"e1", "e2"}, ent.Value)
	assert.False(t, ent.Optimistic)
}

func TestRunReconcilesPrimaryAndDependents(t *testing.T) {
	summary := types.Key("character", "c1")
	srv := &server{data: map[string][]string{
		listKey.String(): {"e1"},
		summary.String(): {"1 event"},
	}}
	c := newCache(t, srv)
	_, err := c.Fetch(context.Background(), listKey)
	require.NoError(t, err)
	_, err = c.Fetch(context.Background(), summary)
	require.NoError(t, err)

	create := mutation.New(mutation.NewCoordinator(c), mutation.Definition[string, string]{
		Name: "create_event",
		Key:  func(string) types.QueryKey { return listKey },
		Optimistic: func(prev any, exists bool, details string) (any, bool, error) {
			return appendItem(prev, exists, "tmp-"+details)
		},
		Mutate: func(ctx context.Context, details string) (string, error) {
			srv.put(listKey, []string{"e1", "e2"})
			srv.put(summary, []string{"2 events"})
			return "e2", nil
		},
		Invalidates: func(string) []types.QueryKey { return []types.QueryKey{types.Key("character")} },
	})

	id, err := create.Run(context.Background(), "potion")
	require.NoError(t, err)
	assert.Equal(t, "e2", id)

	ent, _ := c.Get(listKey)
	assert.Equal(t, []string{"e1", "e2"}, ent.Value)
	assert.False(t, ent.Optimistic)
	ent, _ = c.Get(summary)
	assert.Equal(t, []string{"2 events"}, ent.Value)
}

func TestNoopSkipsTheAPI(t *testing.T) {
	srv := &server{data: map[string][]string{listKey.String(): {"e2"}}}
	c := newCache(t, srv)
	_, err := c.Fetch(context.Background(), listKey)
	require.NoError(t, err)

	calls := 0
	del := mutation.New(mutation.NewCoordinator(c), mutation.Definition[string, struct{}]{
		Name: "delete_event",
		Key:  func(string) types.QueryKey { return listKey },
		Optimistic: func(prev any, exists bool, id string) (any, bool, error) {
			return removeItem(prev, exists, id)
		},
		Mutate: func(ctx context.Context, id string) (struct{}, error) {
			calls++
			return struct{}{}, nil
		},
	})

	_, err = del.Run(context.Background(), "e1")
	require.NoError(t, err)
	assert.Zero(t, calls)

	ent, _ := c.Get(listKey)
	assert.Equal(t, []string{"e2"}, ent.Value)
}

func TestNotFoundCanCountAsDone(t *testing.T) {
	srv := &server{data: map[string][]string{listKey.String(): {"e1"}}}
	c := newCache(t, srv)
	_, err := c.Fetch(context.Background(), listKey)
	require.NoError(t, err)

	del := mutation.New(mutation.NewCoordinator(c), mutation.Definition[string, struct{}]{
		Name: "delete_event",
		Key:  func(string) types.QueryKey { return listKey },
		Optimistic: func(prev any, exists bool, id string) (any, bool, error) {
			return removeItem(prev, exists, id)
		},
		Mutate: func(ctx context.Context, id string) (struct{}, error) {
			srv.put(listKey, nil)
			return struct{}{}, apperrors.Status("remote.DeleteEvent", 404, "")
		},
		TreatNotFoundAsDone: true,
	})

	_, err = del.Run(context.Background(), "e1")
	require.NoError(t, err)

	ent, _ := c.Get(listKey)
	assert.Empty(t, ent.Value)
}

func TestMutationsOnOneKeyRunInCallOrder(t *testing.T) {
	srv := &server{data: map[string][]string{listKey.String(): {}}}
	c := newCache(t, srv)
	_, err := c.Fetch(context.Background(), listKey)
	require.NoError(t, err)

	var mu sync.Mutex
	var order []string
	record := func(s string) {
		mu.Lock()
		defer mu.Unlock()
		order = append(order, s)
	}

	entered := make(chan struct{})
	release := make(chan struct{})
	coord := mutation.NewCoordinator(c)
	add := mutation.New(coord, mutation.Definition[string, struct{}]{
		Name: "add",
		Key:  func(string) types.QueryKey { return listKey },
		Optimistic: func(prev any, exists bool, v string) (any, bool, error) {
			record("optimistic " + v)
			return appendItem(prev, exists, v)
		},
		Mutate: func(ctx context.Context, v string) (struct{}, error) {
			record("mutate " + v)
			if v == "first" {
				close(entered)
				<-release
			}
			srv.put(listKey, append(srv.get(listKey), v))
			return struct{}{}, nil
		},
	})

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		add.Run(context.Background(), "first")
	}()
	<-entered
	go func() {
		defer wg.Done()
		add.Run(context.Background(), "second")
	}()

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, []string{"optimistic first", "mutate first", "optimistic second", "mutate second"}, order)
	ent, _ := c.Get(listKey)
	assert.Equal(t, []string{"first", "second"}, ent.Value)
}

func TestRunRecordsSpan(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sdktrace.NewSimpleSpanProcessor(exporter)))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	srv := &server{data: map[string][]string{}}
	c := newCache(t, srv)
	fail := mutation.New(mutation.NewCoordinator(c, mutation.WithTracer(tp.Tracer("test"))), mutation.Definition[string, struct{}]{
		Name: "update_item",
		Key:  func(string) types.QueryKey { return listKey },
		Mutate: func(ctx context.Context, v string) (struct{}, error) {
			return struct{}{}, errors.New("offline")
		},
	})

	_, err := fail.Run(context.Background(), "x")
	require.Error(t, err)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "mutation.update_item", spans[0].Name)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
}
