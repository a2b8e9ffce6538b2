// Package metrics provides Prometheus metrics for the sync layer and the
// HTTP endpoint that exposes them.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Result labels.
const (
	ResultSynced  = "synced"
	ResultQueued  = "queued"
	ResultFailed  = "failed"
	ResultSkipped = "skipped"
)

// Metrics holds all collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	WritesTotal   *prometheus.CounterVec
	ReplaysTotal  *prometheus.CounterVec
	QueueDepth    prometheus.Gauge
	PushDuration  *prometheus.HistogramVec
	CascadesTotal *prometheus.CounterVec
	UploadsTotal  *prometheus.CounterVec
	Online        prometheus.Gauge
	StartTime     time.Time
}

// New creates the collectors on a private registry, so several instances
// can coexist in one process.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		Registry:  reg,
		StartTime: time.Now(),

		WritesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "instalatrack_sync_writes_total",
				Help: "Local writes by entity and sync outcome",
			},
			[]string{"entity", "result"},
		),
		ReplaysTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "instalatrack_sync_replays_total",
				Help: "Queue replays by entity and outcome",
			},
			[]string{"entity", "result"},
		),
		QueueDepth: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "instalatrack_sync_queue_depth",
				Help: "Changes waiting for the backend",
			},
		),
		PushDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "instalatrack_sync_push_duration_seconds",
				Help:    "Duration of remote pushes in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"entity"},
		),
		CascadesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "instalatrack_cascades_total",
				Help: "Local cascades by root table",
			},
			[]string{"root"},
		),
		UploadsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "instalatrack_uploads_total",
				Help: "Object uploads by bucket and outcome",
			},
			[]string{"bucket", "result"},
		),
		Online: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "instalatrack_online",
				Help: "1 while the backend is reachable",
			},
		),
	}
}

func (m *Metrics) RecordWrite(entity, result string) {
	if m == nil {
		return
	}
	m.WritesTotal.WithLabelValues(entity, result).Inc()
}

func (m *Metrics) RecordReplay(entity, result string) {
	if m == nil {
		return
	}
	m.ReplaysTotal.WithLabelValues(entity, result).Inc()
}

func (m *Metrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.QueueDepth.Set(float64(n))
}

func (m *Metrics) ObservePush(entity string, d time.Duration) {
	if m == nil {
		return
	}
	m.PushDuration.WithLabelValues(entity).Observe(d.Seconds())
}

func (m *Metrics) RecordCascade(root string) {
	if m == nil {
		return
	}
	m.CascadesTotal.WithLabelValues(root).Inc()
}

func (m *Metrics) RecordUpload(bucket, result string) {
	if m == nil {
		return
	}
	m.UploadsTotal.WithLabelValues(bucket, result).Inc()
}

func (m *Metrics) SetOnline(online bool) {
	if m == nil {
		return
	}
	if online {
		m.Online.Set(1)
	} else {
		m.Online.Set(0)
	}
}
