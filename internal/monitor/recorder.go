package monitor

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/errata-io/errata/backend/internal/apperror"
)

// Recorder exports the monitor's aggregates as Prometheus metrics. All
// methods are nil-safe so a Monitor without metrics wiring costs nothing.
type Recorder struct {
	errs     *prom.CounterVec
	duration prom.Histogram
	health   prom.Gauge
}

// NewRecorder constructs and registers the pipeline metrics on reg.
func NewRecorder(reg *prom.Registry) *Recorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	r := &Recorder{
		errs: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "errata",
			Name:      "errors_total",
			Help:      "Errors recorded by the pipeline, by category and severity",
		}, []string{"category", "severity"}),
		duration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: "errata",
			Name:      "failed_operation_duration_seconds",
			Help:      "Duration of operations that ended in an error",
			Buckets:   prom.DefBuckets,
		}),
		health: prom.NewGauge(prom.GaugeOpts{
			Namespace: "errata",
			Name:      "health_status",
			Help:      "Pipeline health: 0 healthy, 1 degraded, 2 unhealthy",
		}),
	}
	reg.MustRegister(r.errs, r.duration, r.health)
	return r
}

// ObserveError counts one error occurrence.
func (r *Recorder) ObserveError(err *apperror.Error, d time.Duration) {
	if r == nil || err == nil {
		return
	}
	r.errs.WithLabelValues(string(err.Category), err.Severity.String()).Inc()
	if d > 0 {
		r.duration.Observe(d.Seconds())
	}
}

// SetHealth publishes the latest health verdict.
func (r *Recorder) SetHealth(status Status) {
	if r == nil {
		return
	}
	switch status {
	case StatusDegraded:
		r.health.Set(1)
	case StatusUnhealthy:
		r.health.Set(2)
	default:
		r.health.Set(0)
	}
}
