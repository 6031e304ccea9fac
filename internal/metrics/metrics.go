package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder exposes Prometheus metrics for the signal worker and the
// upstream quote provider.
type Recorder struct {
	cyclesTotal      prometheus.Counter
	cycleSkipsTotal  *prometheus.CounterVec
	transitionsTotal *prometheus.CounterVec
	upstreamErrors   *prometheus.CounterVec
	lastPrice        *prometheus.GaugeVec
}

// New creates a metrics recorder registered on reg.
func New(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		cyclesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "signal_worker_cycles_total",
				Help: "Total number of completed worker cycles",
			},
		),
		cycleSkipsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signal_worker_cycle_skips_total",
				Help: "Total number of worker cycles skipped, by reason",
			},
			[]string{"reason"},
		),
		transitionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signal_transitions_total",
				Help: "Total number of signal lifecycle transitions",
			},
			[]string{"transition"},
		),
		upstreamErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quote_provider_errors_total",
				Help: "Total number of upstream provider errors, by type",
			},
			[]string{"type"},
		),
		lastPrice: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "quote_last_price",
				Help: "Last quoted price for a symbol",
			},
			[]string{"symbol"},
		),
	}
}

func (r *Recorder) CycleCompleted()              { r.cyclesTotal.Inc() }
func (r *Recorder) CycleSkipped(reason string)   { r.cycleSkipsTotal.WithLabelValues(reason).Inc() }
func (r *Recorder) Transition(kind string)       { r.transitionsTotal.WithLabelValues(kind).Inc() }
func (r *Recorder) UpstreamError(errType string) { r.upstreamErrors.WithLabelValues(errType).Inc() }

func (r *Recorder) LastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}
