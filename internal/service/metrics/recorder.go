package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"YieldScope/internal/domain/models"
	drepo "YieldScope/internal/domain/repository"
)

const namespace = "yieldscope"

// Recorder implements repository.Metrics using Prometheus.
type Recorder struct {
	snapshots      *prometheus.CounterVec
	errors         *prometheus.CounterVec
	effectiveYield *prometheus.GaugeVec
	smoothedYield  *prometheus.GaugeVec
	stress         *prometheus.GaugeVec
	confidence     *prometheus.GaugeVec
	decisions      *prometheus.CounterVec
	latency        *prometheus.HistogramVec
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	market := []string{"market_id", "asset"}
	return &Recorder{
		snapshots: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_total",
			Help:      "Snapshots accepted per market",
		}, []string{"chain", "market_id", "asset"}),
		errors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Errors by kind",
		}, []string{"kind"}),
		effectiveYield: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "effective_yield",
			Help:      "Risk-adjusted yield in percent",
		}, market),
		smoothedYield: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "smoothed_yield",
			Help:      "Smoothed yield in percent",
		}, market),
		stress: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "liquidity_stress",
			Help:      "Smoothed liquidity stress",
		}, market),
		confidence: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "confidence",
			Help:      "Market confidence in [0,1]",
		}, market),
		decisions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "decisions_total",
			Help:      "Decisions emitted per market",
		}, []string{"market_id", "asset", "decision"}),
		latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of operations in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}
}

func (r *Recorder) RecordSnapshot(chain, marketID, asset string) {
	r.snapshots.WithLabelValues(chain, marketID, asset).Inc()
}

func (r *Recorder) RecordOutput(out *models.Output) {
	if out == nil {
		return
	}
	r.effectiveYield.WithLabelValues(out.MarketID, out.Asset).Set(out.Metrics.EffectiveYield)
	r.smoothedYield.WithLabelValues(out.MarketID, out.Asset).Set(out.Metrics.SmoothedYield)
	r.stress.WithLabelValues(out.MarketID, out.Asset).Set(out.Metrics.Risk.LiquidityStress)
	if out.Metrics.Confidence != nil {
		r.confidence.WithLabelValues(out.MarketID, out.Asset).Set(*out.Metrics.Confidence)
	}
	if out.Decision != "" {
		r.decisions.WithLabelValues(out.MarketID, out.Asset, string(out.Decision)).Inc()
	}
}

func (r *Recorder) RecordError(kind string) {
	r.errors.WithLabelValues(kind).Inc()
}

func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

var _ drepo.Metrics = (*Recorder)(nil)
