package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrProducerPanic wraps a panic recovered from a producer.
	ErrProducerPanic = errors.New("cache: producer panicked")
	// ErrTypeMismatch means a key holds a value of a different type than the caller asked for.
	ErrTypeMismatch = errors.New("cache: cached value has unexpected type")
)

// Producer computes the value for a cache miss.
type Producer[T any] func(ctx context.Context) (T, error)

// Caller is the single path through which cacheable reads flow. It serves
// fresh values from its Store and collapses concurrent misses on the same key
// into one producer invocation.
type Caller struct {
	store   *Store
	group   singleflight.Group
	metrics Metrics
	logger  logrus.FieldLogger
}

// CallerOption configures a Caller.
type CallerOption func(*Caller)

func WithMetrics(m Metrics) CallerOption {
	return func(c *Caller) {
		c.metrics = m
	}
}

func WithLogger(logger logrus.FieldLogger) CallerOption {
	return func(c *Caller) {
		c.logger = logger
	}
}

func NewCaller(store *Store, opts ...CallerOption) *Caller {
	c := &Caller{
		store:   store,
		metrics: NoopMetrics{},
		logger:  discardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Store returns the backing store.
func (c *Caller) Store() *Store {
	return c.store
}

/*
Call returns the cached value for key, or runs producer and caches its result
for ttl.

  - fresh entry: returned without calling producer
  - miss while another caller is computing the same key: waits for and
    returns that computation's result (value or error)
  - miss with nothing in flight: runs producer once, stores the value on
    success, never stores an error
  - ttl <= 0: producer runs on every call and nothing is stored

If ctx ends first, Call returns ctx.Err() but the computation continues
detached from ctx and still populates the cache. An invalidation that lands
while a computation runs keeps its result out of the cache, and callers
arriving after the invalidation start a fresh computation instead of joining
the stale one.
*/
func Call[T any](ctx context.Context, c *Caller, key Key, ttl time.Duration, producer Producer[T]) (T, error) {
	var zero T
	ns := key.Namespace()

	if ttl <= 0 {
		c.metrics.Bypass(ns)
		return produce(ctx, c, ns, producer)
	}

	k := key.String()
	// Read before the lookup: an invalidation after this point must keep the
	// flight below from caching, and must keep later callers out of it.
	gen := c.store.generation()
	if v, ok := c.store.get(k); ok {
		if t, ok := v.(T); ok {
			c.metrics.Hit(ns)
			return t, nil
		}
	}
	c.metrics.Miss(ns)

	ch := c.group.DoChan(fmt.Sprintf("%s@%d", k, gen), func() (interface{}, error) {
		// A previous flight may have stored the value between our lookup
		// and joining the group.
		if v, ok := c.store.get(k); ok {
			if _, ok := v.(T); ok {
				return v, nil
			}
		}

		v, err := produce(context.WithoutCancel(ctx), c, ns, producer)
		if err != nil {
			c.logger.WithError(err).WithField("key", k).Debug("Cache producer failed")
			return nil, err
		}
		if !c.store.setIfGeneration(k, v, ttl, gen) {
			c.logger.WithField("key", k).Debug("Invalidated during computation, result not cached")
		}
		return v, nil
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Shared {
			c.metrics.Coalesced(ns)
		}
		if res.Err != nil {
			return zero, res.Err
		}
		t, ok := res.Val.(T)
		if !ok {
			return zero, fmt.Errorf("%w: key %s holds %T", ErrTypeMismatch, k, res.Val)
		}
		return t, nil
	}
}

func produce[T any](ctx context.Context, c *Caller, ns string, producer Producer[T]) (v T, err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			var zero T
			v, err = zero, fmt.Errorf("%w: %v", ErrProducerPanic, r)
		}
		c.metrics.Loaded(ns, time.Since(start), err)
	}()
	return producer(ctx)
}
