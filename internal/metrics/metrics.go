// Package metrics exposes Prometheus counters for the retrieval pipeline.
// All methods are safe on a nil *Metrics, so components can run without metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "webrag"

// Metrics owns a private registry and the pipeline's collectors.
type Metrics struct {
	registry *prometheus.Registry

	fetches      *prometheus.CounterVec
	fetchedBytes prometheus.Counter
	searches     *prometheus.CounterVec
	ingestURLs   *prometheus.CounterVec
	ingestChunks prometheus.Counter
	embeds       *prometheus.CounterVec
	requests     *prometheus.HistogramVec
}

// New creates a Metrics with Go runtime and process collectors registered.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_total",
			Help:      "Page fetches by result.",
		}, []string{"result"}),
		fetchedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_bytes_total",
			Help:      "Bytes downloaded by successful fetches.",
		}),
		searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_attempts_total",
			Help:      "Web search attempts by provider and result.",
		}, []string{"provider", "result"}),
		ingestURLs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_urls_total",
			Help:      "URLs processed by ingestion, by outcome.",
		}, []string{"outcome"}),
		ingestChunks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_chunks_total",
			Help:      "Chunks upserted by ingestion.",
		}),
		embeds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embed_requests_total",
			Help:      "Embedding backend calls by result.",
		}, []string{"result"}),
		requests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "status"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.fetches, m.fetchedBytes, m.searches, m.ingestURLs, m.ingestChunks, m.embeds, m.requests,
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveFetch records one fetch outcome and, on success, its size.
func (m *Metrics) ObserveFetch(result string, bytes int) {
	if m == nil {
		return
	}
	m.fetches.WithLabelValues(result).Inc()
	if bytes > 0 {
		m.fetchedBytes.Add(float64(bytes))
	}
}

// ObserveSearch records one provider attempt.
func (m *Metrics) ObserveSearch(provider, result string) {
	if m == nil {
		return
	}
	m.searches.WithLabelValues(provider, result).Inc()
}

// ObserveIngest records one URL outcome (ingested, skipped, failed) and its chunk count.
func (m *Metrics) ObserveIngest(outcome string, chunks int) {
	if m == nil {
		return
	}
	m.ingestURLs.WithLabelValues(outcome).Inc()
	if chunks > 0 {
		m.ingestChunks.Add(float64(chunks))
	}
}

// ObserveEmbed records one embedding backend call.
func (m *Metrics) ObserveEmbed(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.embeds.WithLabelValues(result).Inc()
}

// Middleware records request latency labelled by chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.requests.WithLabelValues(route, strconv.Itoa(status)).Observe(time.Since(start).Seconds())
	})
}
