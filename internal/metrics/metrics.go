// Package metrics exposes Prometheus metrics for key reloads, key drives and the
// external commands they run.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smazurov/lockkeys/internal/keyboard"
)

const namespace = "lockkeys"

// Metrics holds the collectors registered on one registry.
type Metrics struct {
	registry *prometheus.Registry

	reloads         *prometheus.CounterVec
	reportedKeys    prometheus.Gauge
	listeners       *prometheus.GaugeVec
	drivesInFlight  *prometheus.GaugeVec
	drives          *prometheus.CounterVec
	driveAttempts   *prometheus.HistogramVec
	commands        *prometheus.CounterVec
	commandDuration *prometheus.HistogramVec
}

// New creates a registry with the process and Go collectors plus the lockkeys
// metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		reloads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reloads_total",
			Help:      "Keyboard status reloads by result",
		}, []string{"result"}),
		reportedKeys: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "reported_keys",
			Help:      "Keys reported by the last successful reload",
		}),
		listeners: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "listeners",
			Help:      "Registered status listeners per key",
		}, []string{"key"}),
		drivesInFlight: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "drive",
			Name:      "in_flight",
			Help:      "Set requests currently running per key",
		}, []string{"key"}),
		drives: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "drive",
			Name:      "total",
			Help:      "Settled set requests by key and outcome",
		}, []string{"key", "outcome"}),
		driveAttempts: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "drive",
			Name:      "attempts",
			Help:      "On/off actions run per settled set request",
			Buckets:   prometheus.LinearBuckets(0, 1, keyboard.MaxAttempts+1),
		}, []string{"key"}),
		commands: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "command",
			Name:      "runs_total",
			Help:      "External command runs by command and result",
		}, []string{"command", "result"}),
		commandDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "command",
			Name:      "duration_seconds",
			Help:      "External command run time",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"command"}),
	}
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ReloadFinished implements keyboard.Recorder.
func (m *Metrics) ReloadFinished(err error, statuses int) {
	if err != nil {
		m.reloads.WithLabelValues("error").Inc()
		return
	}
	m.reloads.WithLabelValues("ok").Inc()
	m.reportedKeys.Set(float64(statuses))
}

// ListenersChanged implements keyboard.Recorder.
func (m *Metrics) ListenersChanged(key string, count int) {
	m.listeners.WithLabelValues(key).Set(float64(count))
}

// DriveStarted implements keyboard.Recorder.
func (m *Metrics) DriveStarted(key string) {
	m.drivesInFlight.WithLabelValues(key).Inc()
}

// DriveFinished implements keyboard.Recorder.
func (m *Metrics) DriveFinished(key string, outcome keyboard.Outcome, attempts int) {
	m.drivesInFlight.WithLabelValues(key).Dec()
	m.drives.WithLabelValues(key, string(outcome)).Inc()
	m.driveAttempts.WithLabelValues(key).Observe(float64(attempts))
}

// ObserveCommand records one external command run; it matches process.Observer.
func (m *Metrics) ObserveCommand(name string, elapsed time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.commands.WithLabelValues(name, result).Inc()
	m.commandDuration.WithLabelValues(name).Observe(elapsed.Seconds())
}
