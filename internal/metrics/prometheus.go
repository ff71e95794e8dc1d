package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder exposes prediction and collaborator metrics to Prometheus
type Recorder struct {
	predictions *prometheus.CounterVec
	errorsTotal *prometheus.CounterVec
	lastPrice   *prometheus.GaugeVec
	confidence  prometheus.Gauge
	latency     *prometheus.HistogramVec
}

// New registers the collectors on reg. Pass prometheus.DefaultRegisterer in
// production so /metrics picks them up.
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		predictions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bnbbot_predictions_total",
				Help: "Predictions produced, by direction and market condition",
			},
			[]string{"direction", "condition"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bnbbot_errors_total",
				Help: "Errors encountered, by source",
			},
			[]string{"source"},
		),
		lastPrice: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "bnbbot_last_price",
				Help: "Last price seen, by source",
			},
			[]string{"source"},
		),
		confidence: f.NewGauge(prometheus.GaugeOpts{
			Name: "bnbbot_last_confidence",
			Help: "Confidence of the most recent prediction",
		}),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bnbbot_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

func (r *Recorder) RecordPrediction(direction, condition string, confidence float64) {
	if r == nil {
		return
	}
	r.predictions.WithLabelValues(direction, condition).Inc()
	r.confidence.Set(confidence)
}

func (r *Recorder) RecordError(source string) {
	if r == nil {
		return
	}
	r.errorsTotal.WithLabelValues(source).Inc()
}

func (r *Recorder) RecordLastPrice(source string, price float64) {
	if r == nil {
		return
	}
	r.lastPrice.WithLabelValues(source).Set(price)
}

// RecordLatency records operation latency in seconds
func (r *Recorder) RecordLatency(op string, seconds float64) {
	if r == nil {
		return
	}
	r.latency.WithLabelValues(op).Observe(seconds)
}
