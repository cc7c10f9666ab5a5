// Package metrics keeps the server's prometheus collectors together. Every Metrics
// owns its own registry, so several servers (or tests) never clash on registration.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "miniserve"

type Metrics struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	decodeErrors    *prometheus.CounterVec
	panics          prometheus.Counter
	connections     prometheus.Gauge

	actorCalls     *prometheus.CounterVec
	actorHeartbeat prometheus.Histogram
	actorPending   prometheus.Gauge
}

// New registers all the collectors in a fresh registry. Go runtime and process
// collectors are included when runtime is set.
func New(runtime bool) *Metrics {
	registry := prometheus.NewRegistry()
	if runtime {
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Total number of served requests by path and status code",
		}, []string{"path", "code"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Time from a request being decoded until its response is written",
			Buckets:   prometheus.DefBuckets,
		}, []string{"path"}),
		decodeErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decode_errors_total",
			Help:      "Requests rejected before routing, by status code",
		}, []string{"code"}),
		panics: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handler_panics_total",
			Help:      "Handler panics recovered by the dispatcher",
		}),
		connections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "open_connections",
			Help:      "Number of currently served connections",
		}),
		actorCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "actor",
			Name:      "calls_total",
			Help:      "Actor calls by outcome",
		}, []string{"outcome"}),
		actorHeartbeat: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "actor",
			Name:      "heartbeat_elapsed_seconds",
			Help:      "Elapsed time of the in-flight call at every heartbeat",
			Buckets:   []float64{1, 2, 5, 10, 30, 60, 120},
		}),
		actorPending: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "actor",
			Name:      "mailbox_pending",
			Help:      "Messages waiting in the actor's mailbox",
		}),
	}
}

// Registry is used to expose the collected metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Request(path string, code uint16, took time.Duration) {
	m.requests.WithLabelValues(path, codeLabel(code)).Inc()
	m.requestDuration.WithLabelValues(path).Observe(took.Seconds())
}

func (m *Metrics) DecodeError(code uint16) {
	m.decodeErrors.WithLabelValues(codeLabel(code)).Inc()
}

func (m *Metrics) Panic() {
	m.panics.Inc()
}

func (m *Metrics) ConnOpened() {
	m.connections.Inc()
}

func (m *Metrics) ConnClosed() {
	m.connections.Dec()
}

// Outcomes of an actor call.
const (
	Completed = "completed"
	Cancelled = "cancelled"
)

func (m *Metrics) ActorCall(outcome string) {
	m.actorCalls.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ActorHeartbeat(elapsed time.Duration, pending int) {
	m.actorHeartbeat.Observe(elapsed.Seconds())
	m.actorPending.Set(float64(pending))
}

// codeLabel avoids strconv allocations for the codes seen on every request.
func codeLabel(code uint16) string {
	switch code {
	case 200:
		return "200"
	case 400:
		return "400"
	case 404:
		return "404"
	case 405:
		return "405"
	case 500:
		return "500"
	}

	var buff [5]byte
	i := len(buff)
	for {
		i--
		buff[i] = byte('0' + code%10)
		code /= 10
		if code == 0 {
			break
		}
	}

	return string(buff[i:])
}
