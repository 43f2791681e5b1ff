// Package telemetry collects run counters on a private Prometheus
// registry. The simulation is a batch process, so instead of serving
// the registry the counters are gathered once at completion and logged
// as a run summary.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Registry holds the engine's run metrics.
type Registry struct {
	*prometheus.Registry

	eventsProcessed     *prometheus.CounterVec
	transactionsApplied *prometheus.CounterVec
	signalsGenerated    *prometheus.CounterVec
	metricWarnings      prometheus.Counter
	backtestDuration    prometheus.Histogram
}

// NewRegistry creates a registry with all run metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		Registry: reg,

		eventsProcessed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "allokera_events_processed_total",
				Help: "Total number of events drained from the queue",
			},
			[]string{"kind"},
		),
		transactionsApplied: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "allokera_transactions_applied_total",
				Help: "Total number of transactions applied to the portfolio",
			},
			[]string{"direction"},
		),
		signalsGenerated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "allokera_signals_generated_total",
				Help: "Total number of signals emitted by strategies",
			},
			[]string{"strategy"},
		),
		metricWarnings: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "allokera_metric_warnings_total",
				Help: "Total number of skipped or degraded metric computations",
			},
		),
		backtestDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "allokera_backtest_duration_seconds",
				Help:    "Wall-clock duration of completed backtests",
				Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60},
			},
		),
	}

	reg.MustRegister(r.eventsProcessed)
	reg.MustRegister(r.transactionsApplied)
	reg.MustRegister(r.signalsGenerated)
	reg.MustRegister(r.metricWarnings)
	reg.MustRegister(r.backtestDuration)

	return r
}

// RecordEvent counts a drained event by kind.
func (r *Registry) RecordEvent(kind string) {
	r.eventsProcessed.WithLabelValues(kind).Inc()
}

// RecordTransaction counts an applied transaction by direction.
func (r *Registry) RecordTransaction(direction string) {
	r.transactionsApplied.WithLabelValues(direction).Inc()
}

// RecordSignal counts a strategy-emitted signal.
func (r *Registry) RecordSignal(strategy string) {
	r.signalsGenerated.WithLabelValues(strategy).Inc()
}

// RecordMetricWarning counts a skipped or degraded metric.
func (r *Registry) RecordMetricWarning() {
	r.metricWarnings.Inc()
}

// RecordDuration records the wall-clock duration of a completed run.
func (r *Registry) RecordDuration(seconds float64) {
	r.backtestDuration.Observe(seconds)
}

// LogSummary gathers the registry and logs every counter value, the
// batch equivalent of scraping /metrics.
func (r *Registry) LogSummary(log *zap.Logger) {
	families, err := r.Gather()
	if err != nil {
		log.Warn("gathering run metrics failed", zap.Error(err))
		return
	}

	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			fields := []zap.Field{zap.String("metric", mf.GetName())}
			for _, label := range m.GetLabel() {
				fields = append(fields, zap.String(label.GetName(), label.GetValue()))
			}
			switch {
			case m.GetCounter() != nil:
				fields = append(fields, zap.Float64("value", m.GetCounter().GetValue()))
			case m.GetHistogram() != nil:
				fields = append(fields,
					zap.Uint64("count", m.GetHistogram().GetSampleCount()),
					zap.Float64("sum", m.GetHistogram().GetSampleSum()))
			default:
				continue
			}
			log.Info("run metric", fields...)
		}
	}
}
