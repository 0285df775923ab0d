// Package metrics exports acquisition and link health as Prometheus series.
package metrics

import (
	"net/http"
	"strconv"

	"heater_monitor/internal/lifecycle"
	"heater_monitor/internal/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "heatermon"

// Metrics owns its registry so that tests and multiple instances never collide.
type Metrics struct {
	registry *prometheus.Registry

	frames      *prometheus.CounterVec
	errors      *prometheus.CounterVec
	linkStatus  *prometheus.GaugeVec
	reconnects  prometheus.Counter
	memoryMB    prometheus.Gauge
	sweeps      *prometheus.CounterVec
	swept       *prometheus.CounterVec
	collections *prometheus.GaugeVec
	redraws     prometheus.Counter
	syncEvents  *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		frames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_total",
			Help:      "TTL frames processed, by validation result.",
		}, []string{"result"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Recorded faults, by type and code.",
		}, []string{"type", "code"}),
		linkStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "link_status",
			Help:      "1 for the current link status, 0 otherwise.",
		}, []string{"status"}),
		reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "link_reconnects_total",
			Help:      "Reconnect attempts made by the link manager.",
		}),
		memoryMB: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "process_memory_mb",
			Help:      "Resident memory sampled by the lifecycle sweeper.",
		}),
		sweeps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweeps_total",
			Help:      "Lifecycle sweeps, by kind.",
		}, []string{"kind"}),
		swept: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "swept_entries_total",
			Help:      "Entries evicted by the sweeper, by collection.",
		}, []string{"collection"}),
		collections: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "collection_size",
			Help:      "Current length of each bounded collection.",
		}, []string{"collection"}),
		redraws: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chart_redraws_total",
			Help:      "Chart redraws allowed by the series reducer.",
		}),
		syncEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "led_sync_total",
			Help:      "Readings where all LEDs sat in the same window.",
		}, []string{"window"}),
	}
	m.registry.MustRegister(
		m.frames, m.errors, m.linkStatus, m.reconnects, m.memoryMB,
		m.sweeps, m.swept, m.collections, m.redraws, m.syncEvents,
		collectors.NewGoCollector(),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) FrameProcessed(res models.ValidationResult) {
	label := "valid"
	if !res.Valid {
		label = "invalid"
	}
	m.frames.WithLabelValues(label).Inc()
}

func (m *Metrics) ErrorRecorded(r models.ErrorRecord) {
	m.errors.WithLabelValues(r.Type, strconv.Itoa(int(r.Code))).Inc()
}

func (m *Metrics) LinkStatus(status models.LinkStatus) {
	for _, s := range []models.LinkStatus{models.LinkDisconnected, models.LinkConnecting, models.LinkConnected} {
		v := 0.0
		if s == status {
			v = 1
		}
		m.linkStatus.WithLabelValues(string(s)).Set(v)
	}
}

func (m *Metrics) Reconnect() { m.reconnects.Inc() }

func (m *Metrics) Redraw() { m.redraws.Inc() }

func (m *Metrics) LEDSync(all5, all0 bool) {
	if all5 {
		m.syncEvents.WithLabelValues("all5").Inc()
	}
	if all0 {
		m.syncEvents.WithLabelValues("all0").Inc()
	}
}

// Sweep records a sweep result. It matches the lifecycle observer signature.
func (m *Metrics) Sweep(r lifecycle.SweepResult) {
	m.sweeps.WithLabelValues(string(r.Kind)).Inc()
	for name, n := range r.Dropped {
		m.swept.WithLabelValues(name).Add(float64(n))
	}
}

// Lifecycle copies the sweeper report into gauges.
func (m *Metrics) Lifecycle(r lifecycle.Report) {
	m.memoryMB.Set(r.CurrentMB)
	for name, n := range r.Sizes {
		m.collections.WithLabelValues(name).Set(float64(n))
	}
}
