package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics for the service
type Metrics struct {
	// Counter metrics
	Polls            *prometheus.CounterVec
	RowsRendered     prometheus.Counter
	TilesRendered    *prometheus.CounterVec
	NonNumericRatios prometheus.Counter
	BlocksStored     prometheus.Counter
	Reorgs           prometheus.Counter
	SinkErrors       prometheus.Counter

	// Gauge metrics
	LastBlock    prometheus.Gauge
	PollDuration *prometheus.GaugeVec
}

// NewMetrics creates and initializes a new Metrics instance
func NewMetrics() *Metrics {
	return &Metrics{
		Polls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "explorer_display_polls_total",
				Help: "Number of fetch rounds by resource and result",
			},
			[]string{"resource", "result"},
		),
		RowsRendered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "explorer_display_rows_rendered_total",
			Help: "Total number of block rows resolved into display models",
		}),
		TilesRendered: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "explorer_display_tiles_rendered_total",
				Help: "Number of homepage stat tiles rendered by tile",
			},
			[]string{"tile"},
		),
		NonNumericRatios: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "explorer_display_non_numeric_utilization_total",
			Help: "Rows whose gas utilization ratio was undefined",
		}),
		BlocksStored: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "explorer_display_blocks_stored_total",
			Help: "Total number of blocks written to the snapshot store",
		}),
		Reorgs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "explorer_display_reorgs_total",
			Help: "Total number of replaced canonical blocks",
		}),
		SinkErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "explorer_display_sink_errors_total",
			Help: "Total number of failed snapshot publications",
		}),

		LastBlock: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "explorer_display_last_block_number",
			Help: "Height of the newest block in the list",
		}),
		PollDuration: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "explorer_display_poll_duration_seconds",
				Help: "Duration of the last fetch by resource",
			},
			[]string{"resource"},
		),
	}
}

// Register registers all metrics with reg
func (m *Metrics) Register(reg prometheus.Registerer) {
	reg.MustRegister(
		m.Polls,
		m.RowsRendered,
		m.TilesRendered,
		m.NonNumericRatios,
		m.BlocksStored,
		m.Reorgs,
		m.SinkErrors,
		m.LastBlock,
		m.PollDuration,
	)
}

// ObservePoll records the outcome of one fetch round
func (m *Metrics) ObservePoll(resource string, err error, seconds float64) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Polls.WithLabelValues(resource, result).Inc()
	m.PollDuration.WithLabelValues(resource).Set(seconds)
}
