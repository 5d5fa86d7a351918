package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"strategy-editor/application/ports"
	"strategy-editor/domain/events"
)

// ServiceName labels logs, metrics and traces
const ServiceName = "strategy-editor"

// Collector holds all Prometheus metrics for the application. Each
// collector owns its registry so tests can create as many as they like.
type Collector struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Editor metrics
	Mutations   *prometheus.CounterVec
	History     *prometheus.CounterVec
	Gestures    *prometheus.CounterVec
	Valid       prometheus.Gauge
	Findings    *prometheus.GaugeVec
	Saves       *prometheus.CounterVec
	Submissions *prometheus.CounterVec

	// Store metrics
	StoreOperations *prometheus.CounterVec
	StoreDuration   *prometheus.HistogramVec
}

// NewCollector creates a metrics collector with the given namespace
func NewCollector(namespace string) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		Mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "graph_mutations_total",
			Help:      "Committed graph mutations by kind",
		}, []string{"mutation"}),
		History: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_moves_total",
			Help:      "Undo and redo steps taken",
		}, []string{"direction"}),
		Gestures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gestures_total",
			Help:      "Gesture events handled by the interaction machine",
		}, []string{"event"}),
		Valid: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "strategy_valid",
			Help:      "1 when the current strategy has no validation errors",
		}),
		Findings: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "validation_findings",
			Help:      "Validation findings of the current strategy by severity",
		}, []string{"severity"}),
		Saves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "saves_total",
			Help:      "Strategy saves by where they landed",
		}, []string{"source", "status"}),
		Submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Strategies handed off for execution",
		}, []string{"status"}),
		StoreOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_operations_total",
			Help:      "Total number of store operations",
		}, []string{"operation", "store", "status"}),
		StoreDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_operation_duration_seconds",
			Help:      "Store operation duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation", "store"}),
	}

	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.HTTPRequests,
		c.HTTPDuration,
		c.Mutations,
		c.History,
		c.Gestures,
		c.Valid,
		c.Findings,
		c.Saves,
		c.Submissions,
		c.StoreOperations,
		c.StoreDuration,
	)
	return c
}

// Registry exposes the underlying registry
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the registry in the Prometheus text format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

func (c *Collector) RecordMutation(m events.Mutation) {
	c.Mutations.WithLabelValues(string(m)).Inc()
}

func (c *Collector) RecordHistory(direction string) {
	c.History.WithLabelValues(direction).Inc()
}

func (c *Collector) RecordValidation(valid bool, errs, warnings int) {
	if valid {
		c.Valid.Set(1)
	} else {
		c.Valid.Set(0)
	}
	c.Findings.WithLabelValues("error").Set(float64(errs))
	c.Findings.WithLabelValues("warning").Set(float64(warnings))
}

func (c *Collector) RecordSave(source ports.SaveSource, err error) {
	if source == "" {
		source = "none"
	}
	c.Saves.WithLabelValues(string(source), status(err)).Inc()
}

func (c *Collector) RecordSubmit(err error) {
	c.Submissions.WithLabelValues(status(err)).Inc()
}

func (c *Collector) RecordGesture(event string) {
	c.Gestures.WithLabelValues(event).Inc()
}

// RecordHTTP records one served request
func (c *Collector) RecordHTTP(method, route string, code int, elapsed time.Duration) {
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// RecordStoreOperation records one call to a strategy store
func (c *Collector) RecordStoreOperation(operation, store string, err error, elapsed time.Duration) {
	c.StoreOperations.WithLabelValues(operation, store, status(err)).Inc()
	c.StoreDuration.WithLabelValues(operation, store).Observe(elapsed.Seconds())
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
