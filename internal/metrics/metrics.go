// Package metrics 任务与告警计数, 所有方法对 nil 接收者安全
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "watch"

type Metrics struct {
	jobRuns    *prometheus.CounterVec
	events     *prometheus.CounterVec
	alerts     *prometheus.CounterVec
	suppressed prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		jobRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_runs_total",
			Help:      "Completed job cycles by outcome.",
		}, []string{"job", "outcome"}),
		events: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Detector events by job and kind.",
		}, []string{"job", "kind"}),
		alerts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_total",
			Help:      "Outbound alert messages by transport and outcome.",
		}, []string{"transport", "outcome"}),
		suppressed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_suppressed_total",
			Help:      "Alerts dropped as repeats inside the dedup window.",
		}),
	}
}

func (m *Metrics) JobRun(job, outcome string) {
	if m == nil {
		return
	}
	m.jobRuns.WithLabelValues(job, outcome).Inc()
}

func (m *Metrics) Events(job, kind string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.events.WithLabelValues(job, kind).Add(float64(n))
}

func (m *Metrics) Alert(transport, outcome string) {
	if m == nil {
		return
	}
	m.alerts.WithLabelValues(transport, outcome).Inc()
}

func (m *Metrics) Suppressed(n int) {
	if m == nil || n == 0 {
		return
	}
	m.suppressed.Add(float64(n))
}
