// Package snapshot keeps the current parsed and indexed Eldamo document and replaces it
// when its source changes.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/singleflight"

	"github.com/japaniel/eldamo/pkg/eldamo"
)

// ErrSourceUnavailable reports that the freshness signal or the document bytes could
// not be obtained. The cause is wrapped alongside it.
var ErrSourceUnavailable = errors.New("document source unavailable")

// Source supplies the document and a freshness signal for it. Versions are only
// compared with >, so any monotonically increasing value works.
type Source interface {
	Version(ctx context.Context) (int64, error)
	Open(ctx context.Context) (io.ReadCloser, error)
}

// ParseFunc decodes a document.
type ParseFunc func(io.Reader) (*eldamo.WordData, error)

// Snapshot is one published document together with its Index. It is never modified
// after publication.
type Snapshot struct {
	ID       uuid.UUID
	Data     *eldamo.WordData
	Index    *eldamo.Index
	Version  int64
	LoadedAt time.Time
	Duration time.Duration
}

// LoadEvent describes one reload attempt, successful or not.
type LoadEvent struct {
	ID       uuid.UUID
	Version  int64
	Document string // version attribute of the document, empty on failure
	Stats    eldamo.Stats
	Started  time.Time
	Duration time.Duration
	Err      error
}

// LoadObserver is told about every reload attempt. ObserveLoad runs on the reloading
// goroutine before the result is returned to waiters.
type LoadObserver interface {
	ObserveLoad(ctx context.Context, ev LoadEvent)
}

// Option configures a Cache.
type Option func(*Cache)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Cache) { c.log = l }
}

// WithParser replaces eldamo.Parse.
func WithParser(p ParseFunc) Option {
	return func(c *Cache) { c.parse = p }
}

// WithMetrics registers the cache metrics with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(c *Cache) { c.metrics = NewMetrics(reg) }
}

// WithObserver sets the reload observer.
func WithObserver(o LoadObserver) Option {
	return func(c *Cache) { c.observer = o }
}

// Cache is a read-through cache over a Source. Reads check the freshness signal and
// reload inline when it has increased; concurrent stale reads share one reload. A failed
// reload leaves the previous snapshot published.
//
// Cache is safe for concurrent use.
type Cache struct {
	src      Source
	parse    ParseFunc
	log      *slog.Logger
	metrics  *Metrics
	observer LoadObserver

	current atomic.Pointer[Snapshot]
	flight  singleflight.Group
}

// New returns an empty Cache over src. Nothing is loaded until the first access.
func New(src Source, opts ...Option) *Cache {
	c := &Cache{
		src:   src,
		parse: eldamo.Parse,
		log:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Current returns the published snapshot without checking the source, or nil if
// nothing has been loaded yet.
func (c *Cache) Current() *Snapshot {
	return c.current.Load()
}

// Snapshot returns an up to date snapshot, reloading first if the source has changed.
func (c *Cache) Snapshot(ctx context.Context) (*Snapshot, error) {
	return c.RefreshIfStale(ctx)
}

// Data returns the document of an up to date snapshot.
func (c *Cache) Data(ctx context.Context) (*eldamo.WordData, error) {
	s, err := c.RefreshIfStale(ctx)
	if err != nil {
		return nil, err
	}
	return s.Data, nil
}

// Index returns the Index of an up to date snapshot.
func (c *Cache) Index(ctx context.Context) (*eldamo.Index, error) {
	s, err := c.RefreshIfStale(ctx)
	if err != nil {
		return nil, err
	}
	return s.Index, nil
}

// RefreshIfStale reloads when the cache is empty or the source reports a version newer
// than the published one, and returns the resulting snapshot.
func (c *Cache) RefreshIfStale(ctx context.Context) (*Snapshot, error) {
	v, err := c.version(ctx)
	if err != nil {
		return nil, err
	}
	if cur := c.current.Load(); cur != nil && v <= cur.Version {
		c.metrics.hit()
		return cur, nil
	}
	return c.reload(ctx, func(ctx context.Context) (*Snapshot, error) {
		// another flight may have published v while we were queued
		if cur := c.current.Load(); cur != nil && v <= cur.Version {
			return cur, nil
		}
		return c.load(ctx, v)
	})
}

// Refresh reloads unconditionally.
func (c *Cache) Refresh(ctx context.Context) (*Snapshot, error) {
	return c.reload(ctx, func(ctx context.Context) (*Snapshot, error) {
		v, err := c.version(ctx)
		if err != nil {
			return nil, err
		}
		return c.load(ctx, v)
	})
}

// reload runs fn in the shared flight. The flight ignores the cancellation of the caller
// that started it; ctx only bounds how long this caller waits.
func (c *Cache) reload(ctx context.Context, fn func(context.Context) (*Snapshot, error)) (*Snapshot, error) {
	flightCtx := context.WithoutCancel(ctx)
	ch := c.flight.DoChan("reload", func() (any, error) {
		return fn(flightCtx)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Snapshot), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Cache) version(ctx context.Context) (int64, error) {
	v, err := c.src.Version(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: version: %w", ErrSourceUnavailable, err)
	}
	return v, nil
}

// load fetches, parses, indexes and publishes the document observed at version v.
func (c *Cache) load(ctx context.Context, v int64) (*Snapshot, error) {
	ev := LoadEvent{ID: uuid.New(), Version: v, Started: time.Now()}
	snap, err := c.build(ctx, &ev)
	ev.Duration = time.Since(ev.Started)
	ev.Err = err

	c.metrics.observeReload(ev.Duration, err)
	if c.observer != nil {
		c.observer.ObserveLoad(ctx, ev)
	}
	if err != nil {
		c.log.Error("reload failed", "load_id", ev.ID, "version", v, "error", err)
		return nil, err
	}

	snap.Duration = ev.Duration
	c.current.Store(snap)
	c.metrics.observePublish(ev.Stats)

	c.log.Info("snapshot published",
		"load_id", ev.ID,
		"version", v,
		"document", ev.Document,
		"words", ev.Stats.Words,
		"refs", ev.Stats.Refs,
		"rules", ev.Stats.Rules,
		"duration", ev.Duration)
	if ev.Stats.KeyCollisions > 0 {
		c.log.Warn("duplicate word keys, later entries shadow earlier ones",
			"load_id", ev.ID, "collisions", ev.Stats.KeyCollisions)
	}
	return snap, nil
}

func (c *Cache) build(ctx context.Context, ev *LoadEvent) (*Snapshot, error) {
	rc, err := c.src.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: open: %w", ErrSourceUnavailable, err)
	}
	defer rc.Close()

	data, err := c.parse(rc)
	if err != nil {
		return nil, err
	}
	idx, err := eldamo.Build(data)
	if err != nil {
		return nil, err
	}

	ev.Document = data.Version
	ev.Stats = idx.Stats()
	return &Snapshot{
		ID:       ev.ID,
		Data:     data,
		Index:    idx,
		Version:  ev.Version,
		LoadedAt: time.Now(),
	}, nil
}
