package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/xavierca1/prospect-crm/internal/entity"
	"github.com/xavierca1/prospect-crm/internal/usecase"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	activeConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_active_connections",
			Help: "Number of active HTTP connections",
		},
	)

	prospectsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "crm_prospects_created_total",
			Help: "Total number of prospects created",
		},
	)

	stageTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_stage_transitions_total",
			Help: "Total number of prospect stage changes",
		},
		[]string{"from", "to"},
	)

	auditFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "crm_audit_failures_total",
			Help: "Total number of activity entries that could not be recorded",
		},
	)

	pipelineValue = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "crm_pipeline_value",
			Help: "Estimated value of cached prospects by stage",
		},
		[]string{"stage"},
	)

	integrationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "integration_errors_total",
			Help: "Total number of integration errors",
		},
		[]string{"service"},
	)
)

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Flush keeps SSE streaming working behind the metrics wrapper.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		activeConnections.Inc()
		defer activeConnections.Dec()

		rw := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(rw.statusCode)
		path := routePattern(r)

		httpRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// routePattern labels by chi pattern so prospect ids don't explode cardinality.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}

// PrometheusObserver feeds repository events into the domain counters.
type PrometheusObserver struct{}

var _ usecase.Observer = PrometheusObserver{}

func (PrometheusObserver) ProspectCreated() {
	prospectsCreated.Inc()
}

func (PrometheusObserver) StageChanged(from, to int) {
	stageTransitions.WithLabelValues(strconv.Itoa(from), strconv.Itoa(to)).Inc()
}

func (PrometheusObserver) AuditFailed() {
	auditFailures.Inc()
}

// RecordPipelineValue sets the per-stage value gauge from a fresh listing.
func RecordPipelineValue(prospects []entity.Prospect) {
	groups := usecase.GroupByStage(prospects)
	for stage := entity.FirstStage; stage <= entity.LastStage; stage++ {
		pipelineValue.WithLabelValues(strconv.Itoa(stage)).Set(usecase.TotalValue(groups[stage]))
	}
}

func RecordIntegrationError(service string) {
	integrationErrors.WithLabelValues(service).Inc()
}

// CountFailures counts every error a stage listener returns under service.
func CountFailures(service string, l usecase.StageListener) usecase.StageListener {
	return countingListener{service: service, next: l}
}

type countingListener struct {
	service string
	next    usecase.StageListener
}

func (c countingListener) StageChanged(ctx context.Context, p entity.Prospect, fromStage int, actor entity.Actor) error {
	err := c.next.StageChanged(ctx, p, fromStage, actor)
	if err != nil {
		RecordIntegrationError(c.service)
	}
	return err
}
