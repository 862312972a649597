package server

import (
	"github.com/stakelab-zone/monitoring-tools/explorer-display/internal/blocks"
	"github.com/stakelab-zone/monitoring-tools/explorer-display/internal/config"
	"github.com/stakelab-zone/monitoring-tools/explorer-display/internal/metrics"
	"github.com/stakelab-zone/monitoring-tools/explorer-display/internal/stats"
	"github.com/stakelab-zone/monitoring-tools/explorer-display/internal/types"
)

// Renderer turns fetch snapshots into display models for one configuration.
type Renderer struct {
	cfg       config.DisplayConfig
	formatter *blocks.Formatter
	metrics   *metrics.Metrics
}

func NewRenderer(cfg config.DisplayConfig, m *metrics.Metrics) *Renderer {
	return &Renderer{
		cfg:       cfg,
		formatter: blocks.NewFormatter(cfg),
		metrics:   m,
	}
}

func (r *Renderer) Blocks(q types.Query[[]types.Block]) blocks.List {
	list := r.formatter.List(q)
	if r.metrics == nil {
		return list
	}

	r.metrics.RowsRendered.Add(float64(len(list.Rows)))
	for _, row := range list.Rows {
		if row.Gas != nil && !row.Gas.Utilization.Numeric {
			r.metrics.NonNumericRatios.Inc()
		}
	}
	return list
}

// Stats returns nil when the panel must not be rendered.
func (r *Renderer) Stats(q types.Query[types.HomepageStats]) *stats.Panel {
	panel := stats.Compose(q, r.cfg)
	if panel == nil || r.metrics == nil {
		return panel
	}

	for _, tile := range panel.Tiles {
		r.metrics.TilesRendered.WithLabelValues(string(tile.ID)).Inc()
	}
	return panel
}
