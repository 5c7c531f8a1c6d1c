// Package metrics exposes forum activity counters in Prometheus format.
package metrics

import (
	"baseroom/logs"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "baseroom"

// Metrics is safe to use as a nil pointer; every method is then a no-op.
type Metrics struct {
	registry *prometheus.Registry

	roomsCreated     prometheus.Counter
	roomsUpdated     prometheus.Counter
	roomsDeleted     prometheus.Counter
	messagesPosted   prometheus.Counter
	messagesDeleted  prometheus.Counter
	roomViews        prometheus.Counter
	permissionDenied *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
}

func New() *Metrics {
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: name, Help: help})
	}

	m := &Metrics{
		registry:        prometheus.NewRegistry(),
		roomsCreated:    counter("rooms_created_total", "Rooms created."),
		roomsUpdated:    counter("rooms_updated_total", "Rooms updated by their host."),
		roomsDeleted:    counter("rooms_deleted_total", "Rooms deleted by their host."),
		messagesPosted:  counter("messages_posted_total", "Messages posted into rooms."),
		messagesDeleted: counter("messages_deleted_total", "Messages deleted by their author."),
		roomViews:       counter("room_views_total", "Authenticated room views."),
		permissionDenied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "permission_denied_total",
			Help:      "Mutations rejected because the actor does not own the target.",
		}, []string{"action"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	m.registry.MustRegister(
		m.roomsCreated, m.roomsUpdated, m.roomsDeleted,
		m.messagesPosted, m.messagesDeleted, m.roomViews,
		m.permissionDenied, m.requestDuration,
		collectors.NewGoCollector(),
	)
	return m
}

func (m *Metrics) RoomCreated() {
	if m != nil {
		m.roomsCreated.Inc()
	}
}

func (m *Metrics) RoomUpdated() {
	if m != nil {
		m.roomsUpdated.Inc()
	}
}

func (m *Metrics) RoomDeleted() {
	if m != nil {
		m.roomsDeleted.Inc()
	}
}

func (m *Metrics) MessagePosted() {
	if m != nil {
		m.messagesPosted.Inc()
	}
}

func (m *Metrics) MessageDeleted() {
	if m != nil {
		m.messagesDeleted.Inc()
	}
}

func (m *Metrics) RoomViewed() {
	if m != nil {
		m.roomViews.Inc()
	}
}

func (m *Metrics) PermissionDenied(action string) {
	if m != nil {
		m.permissionDenied.WithLabelValues(action).Inc()
	}
}

// Middleware records the latency of every request under its route pattern.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if m == nil {
			return
		}
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.requestDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}

type promHTTPLogger struct{}

func (promHTTPLogger) Println(v ...interface{}) {
	logs.Error.Println(v...)
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.InstrumentMetricHandler(
		m.registry,
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
			ErrorLog: promHTTPLogger{},
			Timeout:  10 * time.Second,
		}),
	)
}

// Gather is used by tests to read the current counter values.
func (m *Metrics) Gather() (map[string]float64, error) {
	families, err := m.registry.Gather()
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64)
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			if c := metric.GetCounter(); c != nil {
				out[family.GetName()] += c.GetValue()
			}
		}
	}
	return out, nil
}
