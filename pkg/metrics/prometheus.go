package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	regimeTransitions *prometheus.CounterVec
	alertsCreated     *prometheus.CounterVec
	errorsTotal       *prometheus.CounterVec
	unacknowledged    prometheus.Gauge
	volatilityIndex   prometheus.Gauge
	paranoiaMode      prometheus.Gauge
	latency           *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		regimeTransitions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "regimepulse_regime_transitions_total",
				Help: "Total number of market regime transitions",
			},
			[]string{"from", "to"},
		),
		alertsCreated: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "regimepulse_alerts_created_total",
				Help: "Total number of crisis alerts created",
			},
			[]string{"type", "source"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "regimepulse_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		unacknowledged: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "regimepulse_unacknowledged_alerts",
				Help: "Current number of unacknowledged alerts",
			},
		),
		volatilityIndex: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "regimepulse_volatility_index",
				Help: "Latest externally supplied volatility index reading",
			},
		),
		paranoiaMode: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "regimepulse_paranoia_mode_active",
				Help: "Whether paranoia mode is active (1) or not (0)",
			},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "regimepulse_operation_duration_seconds",
				Help:    "Duration of store operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordRegimeTransition records a regime change.
func (r *Recorder) RecordRegimeTransition(from, to string) {
	r.regimeTransitions.WithLabelValues(from, to).Inc()
}

// RecordAlert records a created alert by type and source (manual, auto, paranoia).
func (r *Recorder) RecordAlert(kind, source string) {
	r.alertsCreated.WithLabelValues(kind, source).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// SetUnacknowledged records the current unacknowledged alert count.
func (r *Recorder) SetUnacknowledged(n int) {
	r.unacknowledged.Set(float64(n))
}

// SetVolatilityIndex records the latest volatility reading.
func (r *Recorder) SetVolatilityIndex(v float64) {
	r.volatilityIndex.Set(v)
}

// SetParanoiaMode records whether paranoia mode is active.
func (r *Recorder) SetParanoiaMode(active bool) {
	if active {
		r.paranoiaMode.Set(1)
		return
	}
	r.paranoiaMode.Set(0)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
