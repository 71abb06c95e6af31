// Package metrics exposes Prometheus instruments for the async
// conversion pipeline.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// ConversionMetrics exposes counters/histograms for conversion jobs.
type ConversionMetrics struct {
	jobsTotal  *prometheus.CounterVec
	jobSeconds *prometheus.HistogramVec
	queueDepth prometheus.Gauge
}

func NewConversionMetrics(reg prometheus.Registerer) *ConversionMetrics {
	m := &ConversionMetrics{
		jobsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kaiscribe",
			Subsystem: "conversion",
			Name:      "jobs_total",
			Help:      "Total conversion jobs by terminal status",
		}, []string{"status", "target_format"}),
		jobSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "kaiscribe",
			Subsystem: "conversion",
			Name:      "job_duration_seconds",
			Help:      "Wall time from receive to terminal state",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"target_format"}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "kaiscribe",
			Subsystem: "conversion",
			Name:      "inflight_jobs",
			Help:      "Jobs currently being processed by this instance",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.jobsTotal, m.jobSeconds, m.queueDepth)
	return m
}

func (m *ConversionMetrics) ObserveJob(status, targetFormat string, seconds float64) {
	if m == nil {
		return
	}
	m.jobsTotal.WithLabelValues(status, targetFormat).Inc()
	m.jobSeconds.WithLabelValues(targetFormat).Observe(seconds)
}

func (m *ConversionMetrics) JobStarted() {
	if m == nil {
		return
	}
	m.queueDepth.Inc()
}

func (m *ConversionMetrics) JobFinished() {
	if m == nil {
		return
	}
	m.queueDepth.Dec()
}
