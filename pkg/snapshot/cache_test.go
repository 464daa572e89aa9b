package snapshot

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/japaniel/eldamo/pkg/eldamo"
)

const smallDoc = `<word-data version="2.0"><word l="q" v="nén" page-id="900" gloss="water"/></word-data>`

type fakeSource struct {
	mu         sync.Mutex
	version    int64
	doc        []byte
	versionErr error
	openErr    error
	gate       chan struct{}

	opens atomic.Int32
}

func (s *fakeSource) Version(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version, s.versionErr
}

func (s *fakeSource) Open(context.Context) (io.ReadCloser, error) {
	s.opens.Add(1)
	s.mu.Lock()
	gate, doc, err := s.gate, s.doc, s.openErr
	s.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(doc)), nil
}

func (s *fakeSource) set(version int64, doc []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.version, s.doc = version, doc
}

func sampleDoc(t *testing.T) []byte {
	t.Helper()
	b, err := os.ReadFile("../eldamo/testdata/sample.xml")
	require.NoError(t, err)
	return b
}

type recordingObserver struct {
	mu     sync.Mutex
	events []LoadEvent
}

func (o *recordingObserver) ObserveLoad(_ context.Context, ev LoadEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, ev)
}

func TestEmptyUntilFirstAccess(t *testing.T) {
	src := &fakeSource{version: 1, doc: sampleDoc(t)}
	c := New(src)
	assert.Nil(t, c.Current())
	assert.Zero(t, src.opens.Load())

	idx, err := c.Index(context.Background())
	require.NoError(t, err)
	w, err := idx.FindByID("100")
	require.NoError(t, err)
	assert.Equal(t, "alda", w.Verbum)
	require.NotNil(t, c.Current())
	assert.Equal(t, int64(1), c.Current().Version)
}

func TestRepeatedAccessIsIdempotent(t *testing.T) {
	src := &fakeSource{version: 1, doc: sampleDoc(t)}
	c := New(src)
	ctx := context.Background()

	first, err := c.Snapshot(ctx)
	require.NoError(t, err)
	for j := 0; j < 5; j++ {
		s, err := c.Snapshot(ctx)
		require.NoError(t, err)
		assert.Same(t, first, s)
	}
	data, err := c.Data(ctx)
	require.NoError(t, err)
	assert.Same(t, first.Data, data)
	assert.Equal(t, int32(1), src.opens.Load())
}

func TestChangeDetection(t *testing.T) {
	src := &fakeSource{version: 1, doc: sampleDoc(t)}
	c := New(src)
	ctx := context.Background()

	old, err := c.Snapshot(ctx)
	require.NoError(t, err)

	src.set(2, []byte(smallDoc))
	s, err := c.Snapshot(ctx)
	require.NoError(t, err)
	assert.NotSame(t, old, s)
	assert.NotEqual(t, old.ID, s.ID)
	assert.Equal(t, "2.0", s.Data.Version)

	_, err = s.Index.FindByID("100")
	assert.ErrorIs(t, err, eldamo.ErrNotFound)
	w, err := s.Index.FindByKey(eldamo.Key{Language: "q", Verbum: "nén"})
	require.NoError(t, err)
	assert.Equal(t, "900", w.PageID)

	// the old snapshot is untouched
	_, err = old.Index.FindByID("100")
	assert.NoError(t, err)
}

func TestOlderVersionDoesNotReload(t *testing.T) {
	src := &fakeSource{version: 5, doc: sampleDoc(t)}
	c := New(src)
	_, err := c.Snapshot(context.Background())
	require.NoError(t, err)

	src.set(3, []byte(smallDoc))
	s, err := c.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(5), s.Version)
	assert.Equal(t, int32(1), src.opens.Load())
}

func TestConcurrentStaleAccessReloadsOnce(t *testing.T) {
	gate := make(chan struct{})
	src := &fakeSource{version: 1, doc: sampleDoc(t), gate: gate}
	c := New(src)

	const n = 16
	var wg sync.WaitGroup
	results := make([]*Snapshot, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = c.Snapshot(context.Background())
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(gate)
	wg.Wait()

	assert.Equal(t, int32(1), src.opens.Load())
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Same(t, results[0], results[i])
	}
}

func TestReloadFailureKeepsLastGood(t *testing.T) {
	obs := &recordingObserver{}
	src := &fakeSource{version: 1, doc: sampleDoc(t)}
	c := New(src, WithObserver(obs))
	ctx := context.Background()

	good, err := c.Snapshot(ctx)
	require.NoError(t, err)

	src.mu.Lock()
	src.version = 2
	src.openErr = errors.New("disk on fire")
	src.mu.Unlock()

	_, err = c.Snapshot(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSourceUnavailable)
	assert.Contains(t, err.Error(), "disk on fire")
	assert.Same(t, good, c.Current())

	// recovery
	src.mu.Lock()
	src.openErr = nil
	src.doc = []byte(smallDoc)
	src.mu.Unlock()

	s, err := c.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), s.Version)
	assert.Same(t, s, c.Current())

	require.Len(t, obs.events, 3)
	assert.NoError(t, obs.events[0].Err)
	assert.Equal(t, "0.9.1", obs.events[0].Document)
	assert.Equal(t, 6, obs.events[0].Stats.Words)
	assert.Error(t, obs.events[1].Err)
	assert.NoError(t, obs.events[2].Err)
}

func TestParseFailureKeepsLastGood(t *testing.T) {
	obs := &recordingObserver{}
	src := &fakeSource{version: 1, doc: sampleDoc(t)}
	c := New(src, WithObserver(obs))
	ctx := context.Background()

	good, err := c.Snapshot(ctx)
	require.NoError(t, err)

	src.set(2, []byte(`<word-data version="2"><word l="q"`))
	_, err = c.Snapshot(ctx)
	var perr *eldamo.ParseError
	require.ErrorAs(t, err, &perr)
	assert.NotErrorIs(t, err, ErrSourceUnavailable)
	assert.Same(t, good, c.Current())

	w, err := good.Index.FindByID("100")
	require.NoError(t, err)
	assert.Equal(t, "alda", w.Verbum)

	src.set(3, []byte(smallDoc))
	s, err := c.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), s.Version)
	assert.Equal(t, "2.0", s.Data.Version)
	assert.Same(t, s, c.Current())

	require.Len(t, obs.events, 3)
	assert.ErrorAs(t, obs.events[1].Err, &perr)
	assert.NoError(t, obs.events[2].Err)
}

func TestParseFailureSurfaces(t *testing.T) {
	src := &fakeSource{version: 1, doc: []byte("<word-data><word")}
	c := New(src)

	_, err := c.Snapshot(context.Background())
	var perr *eldamo.ParseError
	require.ErrorAs(t, err, &perr)
	assert.Nil(t, c.Current())
}

func TestVersionFailure(t *testing.T) {
	src := &fakeSource{versionErr: errors.New("stat failed")}
	c := New(src)

	_, err := c.Index(context.Background())
	assert.ErrorIs(t, err, ErrSourceUnavailable)
	assert.Zero(t, src.opens.Load())
}

func TestRefreshForcesReload(t *testing.T) {
	src := &fakeSource{version: 1, doc: sampleDoc(t)}
	c := New(src)
	ctx := context.Background()

	first, err := c.Snapshot(ctx)
	require.NoError(t, err)
	second, err := c.Refresh(ctx)
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	assert.Equal(t, int32(2), src.opens.Load())
}

func TestCustomParser(t *testing.T) {
	src := &fakeSource{version: 1, doc: []byte("ignored")}
	c := New(src, WithParser(func(io.Reader) (*eldamo.WordData, error) {
		return &eldamo.WordData{Version: "stub"}, nil
	}))
	data, err := c.Data(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "stub", data.Version)
}

func TestWaiterHonoursContext(t *testing.T) {
	gate := make(chan struct{})
	defer close(gate)
	src := &fakeSource{version: 1, doc: sampleDoc(t), gate: gate}
	c := New(src)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.Snapshot(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

// blockingSource holds Open until release is closed or the caller's ctx ends.
type blockingSource struct {
	doc     []byte
	release chan struct{}
	opens   atomic.Int32
}

func (s *blockingSource) Version(context.Context) (int64, error) { return 1, nil }

func (s *blockingSource) Open(ctx context.Context) (io.ReadCloser, error) {
	s.opens.Add(1)
	select {
	case <-s.release:
		return io.NopCloser(bytes.NewReader(s.doc)), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestCancelledLeaderDoesNotFailWaiters(t *testing.T) {
	src := &blockingSource{doc: sampleDoc(t), release: make(chan struct{})}
	obs := &recordingObserver{}
	c := New(src, WithObserver(obs))

	leaderCtx, cancel := context.WithCancel(context.Background())
	leaderErr := make(chan error, 1)
	go func() {
		_, err := c.Snapshot(leaderCtx)
		leaderErr <- err
	}()
	require.Eventually(t, func() bool { return src.opens.Load() == 1 }, time.Second, time.Millisecond)

	type result struct {
		snap *Snapshot
		err  error
	}
	waiter := make(chan result, 1)
	go func() {
		s, err := c.Snapshot(context.Background())
		waiter <- result{s, err}
	}()
	time.Sleep(50 * time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-leaderErr, context.Canceled)

	close(src.release)
	res := <-waiter
	require.NoError(t, res.err)
	require.NotNil(t, res.snap)
	assert.Same(t, res.snap, c.Current())
	assert.Equal(t, int32(1), src.opens.Load())

	obs.mu.Lock()
	defer obs.mu.Unlock()
	require.Len(t, obs.events, 1)
	assert.NoError(t, obs.events[0].Err)
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	src := &fakeSource{version: 1, doc: sampleDoc(t)}
	c := New(src, WithMetrics(reg))
	ctx := context.Background()

	_, err := c.Snapshot(ctx)
	require.NoError(t, err)
	_, err = c.Snapshot(ctx)
	require.NoError(t, err)

	src.mu.Lock()
	src.version = 2
	src.openErr = errors.New("gone")
	src.mu.Unlock()
	_, err = c.Snapshot(ctx)
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.metrics.reloads.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.metrics.reloads.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.metrics.hits))
	assert.Equal(t, 6.0, testutil.ToFloat64(c.metrics.words))
	assert.Equal(t, 4.0, testutil.ToFloat64(c.metrics.refs))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.metrics.keyCollisions))
}
