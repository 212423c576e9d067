// Package metrics exposes poll loop counters and gauges over a Prometheus endpoint.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "hubbub"

// Metrics holds the poll loop instruments on a private registry
type Metrics struct {
	registry *prometheus.Registry

	eventsFetched prometheus.Counter
	eventsAdded   prometheus.Counter
	fetchFailures *prometheus.CounterVec
	renders       *prometheus.CounterVec
	renderErrors  *prometheus.CounterVec
	windowEvents  prometheus.Gauge
	seenIDs       prometheus.Gauge
	lastSuccess   prometheus.Gauge
	cycleDuration prometheus.Histogram
}

// New creates and registers the instruments
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.eventsFetched = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_fetched_total",
		Help:      "Events returned by the feed, including already seen ones",
	})
	m.eventsAdded = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_added_total",
		Help:      "Events new to the window",
	})
	m.fetchFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "fetch_failures_total",
		Help:      "Failed feed fetches by error kind",
	}, []string{"kind"})
	m.renders = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "renders_total",
		Help:      "Render calls by view",
	}, []string{"view"})
	m.renderErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "render_errors_total",
		Help:      "Render calls that failed to commit a frame, by view",
	}, []string{"view"})
	m.windowEvents = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "window_events",
		Help:      "Events held in the window history",
	})
	m.seenIDs = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "seen_ids",
		Help:      "Event ids remembered for deduplication",
	})
	m.lastSuccess = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_success_timestamp_seconds",
		Help:      "Unix timestamp of the last successful fetch",
	})
	m.cycleDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "cycle_duration_seconds",
		Help:      "Time spent on one fetch, ingest and render cycle",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
	})

	m.registry.MustRegister(
		m.eventsFetched, m.eventsAdded, m.fetchFailures,
		m.renders, m.renderErrors, m.windowEvents, m.seenIDs,
		m.lastSuccess, m.cycleDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the private registry
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Fetched records a successful fetch of n events, of which added were new
func (m *Metrics) Fetched(n, added int) {
	if m == nil {
		return
	}
	m.eventsFetched.Add(float64(n))
	m.eventsAdded.Add(float64(added))
	m.lastSuccess.SetToCurrentTime()
}

// FetchFailed records a failed fetch
func (m *Metrics) FetchFailed(kind string) {
	if m == nil {
		return
	}
	m.fetchFailures.WithLabelValues(kind).Inc()
}

// Rendered records one render call of view
func (m *Metrics) Rendered(view string, err error) {
	if m == nil {
		return
	}
	m.renders.WithLabelValues(view).Inc()
	if err != nil {
		m.renderErrors.WithLabelValues(view).Inc()
	}
}

// Window records the window sizes after ingestion
func (m *Metrics) Window(events, seen int) {
	if m == nil {
		return
	}
	m.windowEvents.Set(float64(events))
	m.seenIDs.Set(float64(seen))
}

// CycleDone records the duration of a cycle that started at start
func (m *Metrics) CycleDone(start time.Time) {
	if m == nil {
		return
	}
	m.cycleDuration.Observe(time.Since(start).Seconds())
}

// Server serves /metrics and /healthz
type Server struct {
	server *http.Server
}

// NewServer creates a metrics server for m on addr
func NewServer(addr string, m *Metrics) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.Registry(), promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return &Server{
		server: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
	}
}

// Handler returns the server's mux
func (s *Server) Handler() http.Handler { return s.server.Handler }

// Serve blocks until Shutdown; a clean shutdown returns nil
func (s *Server) Serve() error {
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error { return s.server.Shutdown(ctx) }
