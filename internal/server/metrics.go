package server

import (
	"net/http"
	"strconv"

	"github.com/aristath/etfmonitor/internal/dashboard"
	"github.com/aristath/etfmonitor/internal/events"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors exposed on /metrics
type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal     *prometheus.CounterVec
	RequestDuration   *prometheus.HistogramVec
	UploadsTotal      *prometheus.CounterVec
	SnapshotHoldings  prometheus.Gauge
	SnapshotDates     prometheus.Gauge
	UploadsPurged     prometheus.Counter
	StaleResponses    *prometheus.CounterVec
	DashboardSessions prometheus.Gauge
}

// NewMetrics creates the collectors on a private registry
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "etfmonitor_http_requests_total",
				Help: "HTTP requests by route, method and status",
			},
			[]string{"route", "method", "status"},
		),

		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "etfmonitor_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
			},
			[]string{"route"},
		),

		UploadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "etfmonitor_uploads_total",
				Help: "Upload-and-process calls by result",
			},
			[]string{"result"},
		),

		SnapshotHoldings: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "etfmonitor_snapshot_holdings",
				Help: "Holdings in the current snapshot",
			},
		),

		SnapshotDates: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "etfmonitor_snapshot_dates",
				Help: "Distinct price dates in the current snapshot",
			},
		),

		UploadsPurged: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "etfmonitor_staged_uploads_purged_total",
				Help: "Staged upload directories removed by the cleanup job",
			},
		),

		StaleResponses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "etfmonitor_dashboard_stale_responses_total",
				Help: "Dashboard fetch results discarded because a newer request superseded them",
			},
			[]string{"view"},
		),

		DashboardSessions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "etfmonitor_dashboard_sessions",
				Help: "Open dashboard websocket sessions",
			},
		),
	}

	m.registry.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.UploadsTotal,
		m.SnapshotHoldings,
		m.SnapshotDates,
		m.UploadsPurged,
		m.StaleResponses,
		m.DashboardSessions,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveRequest records one finished HTTP request
func (m *Metrics) ObserveRequest(route, method string, status int, seconds float64) {
	m.RequestsTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(route).Observe(seconds)
}

// ObserveDiscard records a stale dashboard response
func (m *Metrics) ObserveDiscard(view dashboard.View, _ uint64) {
	m.StaleResponses.WithLabelValues(string(view)).Inc()
}

// SubscribeTo keeps the upload and snapshot collectors current from bus
// events. It returns a function that removes the subscriptions.
func (m *Metrics) SubscribeTo(bus *events.Bus) func() {
	unsubs := []func(){
		bus.Subscribe(events.SnapshotReplaced, func(e *events.Event) {
			m.UploadsTotal.WithLabelValues("ok").Inc()
			if data, ok := e.GetTypedData().(*events.SnapshotReplacedData); ok {
				m.SnapshotHoldings.Set(float64(data.Holdings))
				m.SnapshotDates.Set(float64(data.Dates))
			}
		}),
		bus.Subscribe(events.UploadFailed, func(e *events.Event) {
			kind := "internal"
			if data, ok := e.GetTypedData().(*events.UploadFailedData); ok && data.Kind != "" {
				kind = data.Kind
			}
			m.UploadsTotal.WithLabelValues(kind).Inc()
		}),
		bus.Subscribe(events.UploadsPurged, func(e *events.Event) {
			if data, ok := e.GetTypedData().(*events.UploadsPurgedData); ok {
				m.UploadsPurged.Add(float64(data.Removed))
			}
		}),
	}

	return func() {
		for _, unsub := range unsubs {
			unsub()
		}
	}
}
