package poller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stakelab-zone/monitoring-tools/explorer-display/internal/metrics"
	"github.com/stakelab-zone/monitoring-tools/explorer-display/internal/types"
)

type fakeSource struct {
	mu       sync.Mutex
	height   uint64
	blockErr error
	statsErr error
	calls    int
}

func (s *fakeSource) Blocks(ctx context.Context, typ types.BlockType, limit int) ([]types.Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.blockErr != nil {
		return nil, s.blockErr
	}
	return []types.Block{{Height: s.height, Type: typ}}, nil
}

func (s *fakeSource) Stats(ctx context.Context) (types.HomepageStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.statsErr != nil {
		return types.HomepageStats{}, s.statsErr
	}
	return types.HomepageStats{TotalBlocks: s.height + 1}, nil
}

func (s *fakeSource) set(height uint64, blockErr, statsErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.height, s.blockErr, s.statsErr = height, blockErr, statsErr
}

// syncingSource counts the syncs a refresh triggers.
type syncingSource struct {
	fakeSource
	syncs   int
	syncErr error
}

func (s *syncingSource) Sync(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.syncs++
	return s.syncErr
}

func canonical(t *testing.T, p *Poller) types.Query[[]types.Block] {
	t.Helper()
	q, ok := p.Blocks(types.BlockTypeBlock)
	require.True(t, ok)
	return q
}

func TestPlaceholderBeforeFirstRefresh(t *testing.T) {
	p := New(&fakeSource{}, Options{Limit: 4}, nil)

	blocks := canonical(t, p)
	assert.True(t, blocks.IsPlaceholder)
	assert.False(t, blocks.IsError)
	require.NotNil(t, blocks.Data)
	assert.Len(t, *blocks.Data, 4)

	stats := p.Stats()
	assert.True(t, stats.IsPlaceholder)
	require.NotNil(t, stats.Data)
}

func TestRefreshReplacesPlaceholder(t *testing.T) {
	src := &fakeSource{height: 10}
	p := New(src, DefaultOptions(), nil)
	p.Refresh(context.Background())

	blocks := canonical(t, p)
	assert.False(t, blocks.IsPlaceholder)
	assert.False(t, blocks.IsError)
	require.Len(t, *blocks.Data, 1)
	assert.Equal(t, uint64(10), (*blocks.Data)[0].Height)
	assert.False(t, blocks.UpdatedAt.IsZero())

	assert.Equal(t, uint64(11), p.Stats().Data.TotalBlocks)
}

func TestFailedRefreshKeepsStaleData(t *testing.T) {
	src := &fakeSource{height: 10}
	p := New(src, DefaultOptions(), nil)
	p.Refresh(context.Background())

	boom := errors.New("boom")
	src.set(11, boom, boom)
	p.Refresh(context.Background())

	blocks := canonical(t, p)
	assert.True(t, blocks.IsError)
	assert.ErrorIs(t, blocks.Err, boom)
	assert.Equal(t, uint64(10), (*blocks.Data)[0].Height)

	stats := p.Stats()
	assert.True(t, stats.IsError)
	assert.Equal(t, uint64(11), stats.Data.TotalBlocks)

	src.set(12, nil, nil)
	p.Refresh(context.Background())
	assert.False(t, canonical(t, p).IsError)
	assert.Nil(t, canonical(t, p).Err)
	assert.Equal(t, uint64(12), (*canonical(t, p).Data)[0].Height)
}

func TestFailureBeforeFirstSuccessKeepsPlaceholder(t *testing.T) {
	src := &fakeSource{}
	src.set(0, errors.New("down"), nil)
	p := New(src, Options{Limit: 2}, nil)
	p.Refresh(context.Background())

	blocks := canonical(t, p)
	assert.True(t, blocks.IsPlaceholder)
	assert.True(t, blocks.IsError)
	assert.Len(t, *blocks.Data, 2)

	assert.False(t, p.Stats().IsError)
	assert.False(t, p.Stats().IsPlaceholder)
}

func TestListenersAndMetrics(t *testing.T) {
	m := metrics.NewMetrics()
	m.Register(prometheus.NewRegistry())

	src := &fakeSource{height: 77}
	p := New(src, DefaultOptions(), m)

	var got []uint64
	p.OnRefresh(func(blocks types.Query[[]types.Block], stats types.Query[types.HomepageStats]) {
		got = append(got, (*blocks.Data)[0].Height)
	})
	p.Refresh(context.Background())

	assert.Equal(t, []uint64{77}, got)
	assert.Equal(t, 77.0, testutil.ToFloat64(m.LastBlock))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Polls.WithLabelValues(ResourceBlocks, "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Polls.WithLabelValues(ResourceStats, "ok")))
}

func TestRefreshPollsEveryBlockType(t *testing.T) {
	src := &fakeSource{height: 5}
	p := New(src, DefaultOptions(), nil)

	reorgs, ok := p.Blocks(types.BlockTypeReorg)
	require.True(t, ok)
	assert.True(t, reorgs.IsPlaceholder)
	assert.Equal(t, types.BlockTypeReorg, (*reorgs.Data)[0].Type)

	p.Refresh(context.Background())
	for _, typ := range types.BlockTypes {
		q, ok := p.Blocks(typ)
		require.True(t, ok, typ)
		assert.False(t, q.IsPlaceholder, typ)
		assert.Equal(t, typ, (*q.Data)[0].Type, typ)
	}
	assert.Equal(t, 3, src.calls)
}

func TestUnpolledBlockType(t *testing.T) {
	p := New(&fakeSource{}, Options{BlockTypes: []types.BlockType{types.BlockTypeReorg}}, nil)

	_, ok := p.Blocks(types.BlockTypeUncle)
	assert.False(t, ok)
	_, ok = p.Blocks(types.BlockTypeBlock)
	assert.True(t, ok)
	_, ok = p.Blocks(types.BlockTypeReorg)
	assert.True(t, ok)
}

func TestRefreshSyncsOnce(t *testing.T) {
	m := metrics.NewMetrics()
	m.Register(prometheus.NewRegistry())

	src := &syncingSource{fakeSource: fakeSource{height: 3}}
	p := New(src, DefaultOptions(), m)
	p.Refresh(context.Background())

	assert.Equal(t, 1, src.syncs)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Polls.WithLabelValues(ResourceSync, "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Polls.WithLabelValues("blocks_reorg", "ok")))
	assert.Equal(t, uint64(3), (*canonical(t, p).Data)[0].Height)
}

func TestSyncFailureMarksEverythingStale(t *testing.T) {
	src := &syncingSource{fakeSource: fakeSource{height: 3}}
	p := New(src, DefaultOptions(), nil)
	p.Refresh(context.Background())

	src.syncErr = errors.New("node down")
	src.height = 4
	p.Refresh(context.Background())

	blocks := canonical(t, p)
	assert.True(t, blocks.IsError)
	assert.ErrorIs(t, blocks.Err, src.syncErr)
	assert.Equal(t, uint64(3), (*blocks.Data)[0].Height)
	assert.True(t, p.Stats().IsError)
	assert.Equal(t, 3, src.calls)
}

func TestRunStopsOnCancel(t *testing.T) {
	src := &fakeSource{height: 1}
	p := New(src, Options{Interval: 5 * time.Millisecond}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	require.Eventually(t, func() bool {
		src.mu.Lock()
		defer src.mu.Unlock()
		return src.calls >= 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("poller did not stop")
	}
}
