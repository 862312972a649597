package main

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/stakelab-zone/monitoring-tools/explorer-display/internal/config"
	"github.com/stakelab-zone/monitoring-tools/explorer-display/internal/metrics"
	"github.com/stakelab-zone/monitoring-tools/explorer-display/internal/server"
	"github.com/stakelab-zone/monitoring-tools/explorer-display/internal/sink"
	"github.com/stakelab-zone/monitoring-tools/explorer-display/internal/types"
)

type recordingSink struct {
	emitted []string
	err     error
}

func (s *recordingSink) Emit(_ context.Context, typ string, _ any) error {
	s.emitted = append(s.emitted, typ)
	return s.err
}

func (s *recordingSink) Close() error { return nil }

func TestPublisherSkipsStatsOnError(t *testing.T) {
	m := metrics.NewMetrics()
	m.Register(prometheus.NewRegistry())
	rec := &recordingSink{}

	publish := publisher(rec, server.NewRenderer(config.Default(), m), m)
	publish(types.Query[[]types.Block]{Data: &[]types.Block{}}, types.Query[types.HomepageStats]{IsError: true})
	assert.Equal(t, []string{sink.TypeBlocks}, rec.emitted)

	publish(types.Query[[]types.Block]{}, types.Query[types.HomepageStats]{Data: &types.HomepageStats{TotalBlocks: 1}})
	assert.Equal(t, []string{sink.TypeBlocks, sink.TypeBlocks, sink.TypeStats}, rec.emitted)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.SinkErrors))
}

func TestPublisherCountsFailures(t *testing.T) {
	m := metrics.NewMetrics()
	m.Register(prometheus.NewRegistry())
	rec := &recordingSink{err: errors.New("broker down")}

	publish := publisher(rec, server.NewRenderer(config.Default(), m), m)
	publish(types.Query[[]types.Block]{}, types.Query[types.HomepageStats]{Data: &types.HomepageStats{}})
	assert.Equal(t, 2.0, testutil.ToFloat64(m.SinkErrors))
}

func TestParseBlockTypes(t *testing.T) {
	typs, err := parseBlockTypes("block, reorg,,uncle")
	assert.NoError(t, err)
	assert.Equal(t, []types.BlockType{types.BlockTypeBlock, types.BlockTypeReorg, types.BlockTypeUncle}, typs)

	_, err = parseBlockTypes("block,orphan")
	assert.ErrorContains(t, err, "invalid -block-types")
}
