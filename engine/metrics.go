package engine

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is the engine's Prometheus instrumentation, grounded on
// stats/common_statsd.go's counter/histogram registration style, adapted
// from a shared cluster-wide registry to per-Engine unregistered
// collectors so multiple Engines in one process don't collide on metric
// names. A caller that wants these exported registers them explicitly
// via prometheus.MustRegister(m.Collectors()...).
type Metrics struct {
	CommandsTotal prometheus.Counter
	Reconnects    prometheus.Counter
	BytesWritten  prometheus.Counter
	RepliesTotal  prometheus.Counter
	PushesTotal   prometheus.Counter
	ReplyLatency  prometheus.Histogram
}

// NewMetrics builds a fresh, unregistered set of collectors.
func NewMetrics() *Metrics {
	return &Metrics{
		CommandsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "resp3_commands_total",
			Help: "Total number of commands staged via AsyncExec.",
		}),
		Reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "resp3_reconnects_total",
			Help: "Total number of connection generations started after the first.",
		}),
		BytesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "resp3_bytes_written_total",
			Help: "Total bytes written to the wire across all generations.",
		}),
		RepliesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "resp3_replies_total",
			Help: "Total number of non-push replies consumed.",
		}),
		PushesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "resp3_pushes_total",
			Help: "Total number of push-kind replies consumed, including dropped duplicates.",
		}),
		ReplyLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "resp3_reply_latency_seconds",
			Help:    "Latency of health-probe round trips.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// Collectors returns every collector, for a caller that wants to
// prometheus.MustRegister them against its own registry.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.CommandsTotal, m.Reconnects, m.BytesWritten,
		m.RepliesTotal, m.PushesTotal, m.ReplyLatency,
	}
}
