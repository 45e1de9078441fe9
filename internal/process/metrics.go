package process

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

// Outcome labels for the events counter.
const (
	labelApplied     = "applied"
	labelSkipped     = "skipped"
	labelUnsupported = "unsupported"
	labelInvalid     = "invalid"
	labelMalformed   = "malformed"
	labelError       = "error"
)

// Metrics exposes processing progress. A nil *Metrics records nothing.
type Metrics struct {
	events         *prometheus.CounterVec
	applyDuration  prometheus.Histogram
	cursorBlock    prometheus.Gauge
	totalLiquidity prometheus.Gauge
}

// NewMetrics registers the processing metrics with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "balancer",
			Subsystem: "process",
			Name:      "events_total",
			Help:      "Typed events seen by the processor, by event name and outcome.",
		}, []string{"event", "outcome"}),
		applyDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "balancer",
			Subsystem: "process",
			Name:      "apply_duration_seconds",
			Help:      "Time spent applying one event inside its store transaction.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}),
		cursorBlock: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "balancer",
			Subsystem: "process",
			Name:      "cursor_block",
			Help:      "Block of the last event the cursor moved past.",
		}),
		totalLiquidity: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "balancer",
			Subsystem: "vault",
			Name:      "total_liquidity_usd",
			Help:      "Protocol-wide liquidity in USD after the last run.",
		}),
	}

	for _, c := range []prometheus.Collector{m.events, m.applyDuration, m.cursorBlock, m.totalLiquidity} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) event(name, outcome string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(name, outcome).Inc()
}

func (m *Metrics) applied(started time.Time, block uint64) {
	if m == nil {
		return
	}
	m.applyDuration.Observe(time.Since(started).Seconds())
	m.cursorBlock.Set(float64(block))
}

func (m *Metrics) liquidity(total decimal.Decimal) {
	if m == nil {
		return
	}
	m.totalLiquidity.Set(total.InexactFloat64())
}
