// Package metrics exposes capture pipeline counters to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"thirdcoast.systems/camerakit/pkg/filters"
)

const namespace = "camerakit"

// Metrics owns a private registry so tests and multiple controllers do not
// collide on the global one.
type Metrics struct {
	registry *prometheus.Registry

	framesProcessed prometheus.Counter
	framesDropped   prometheus.Counter
	recordings      *prometheus.CounterVec
	restarts        prometheus.Counter
	stageDuration   *prometheus.HistogramVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		framesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_processed_total",
			Help:      "Frames drawn to the preview.",
		}),
		framesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_dropped_total",
			Help:      "Frames replaced in the mailbox or filtered to nothing.",
		}),
		recordings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recordings_total",
			Help:      "Finished recordings by result.",
		}, []string{"result"}),
		restarts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_restarts_total",
			Help:      "Capture session restarts after runtime errors.",
		}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "filter_stage_seconds",
			Help:      "Time spent applying one filter stage.",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25},
		}, []string{"kind"}),
	}

	reg.MustRegister(
		m.framesProcessed,
		m.framesDropped,
		m.recordings,
		m.restarts,
		m.stageDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) FrameProcessed() { m.framesProcessed.Inc() }

func (m *Metrics) FrameDropped() { m.framesDropped.Inc() }

func (m *Metrics) RecordingFinished(result string) { m.recordings.WithLabelValues(result).Inc() }

func (m *Metrics) SessionRestarted() { m.restarts.Inc() }

// ObserveStage records one stage application.
func (m *Metrics) ObserveStage(kind filters.Kind, d time.Duration) {
	m.stageDuration.WithLabelValues(string(kind)).Observe(d.Seconds())
}

// Registry returns the registry backing Handler.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
