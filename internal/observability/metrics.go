package observability

import (
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/yungbote/songcatalog-backend/internal/platform/logger"
)

const namespace = "songcatalog"

type Metrics struct {
	registry *prometheus.Registry

	apiRequests *prometheus.CounterVec
	apiLatency  *prometheus.HistogramVec
	apiInflight prometheus.Gauge

	publishOutcomes    *prometheus.CounterVec
	stateTransitions   *prometheus.CounterVec
	storageCalls       *prometheus.CounterVec
	storageRetries     *prometheus.CounterVec
	storageLatency     *prometheus.HistogramVec
	validationOutcomes *prometheus.CounterVec
	validationLatency  prometheus.Histogram
	validationSwept    prometheus.Counter
	eventsPublished    *prometheus.CounterVec
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool {
	v := strings.TrimSpace(os.Getenv("METRICS_ENABLED"))
	if v == "" {
		return false
	}
	return strings.EqualFold(v, "true") || v == "1" || strings.EqualFold(v, "yes")
}

func Current() *Metrics {
	return instance
}

// Init builds the process-wide metrics when METRICS_ENABLED is set; it
// returns nil otherwise and every method on a nil *Metrics is a no-op.
func Init(log *logger.Logger) *Metrics {
	if !Enabled() {
		return nil
	}
	initOnce.Do(func() {
		instance = NewMetrics()
		if log != nil {
			log.Info("metrics enabled")
		}
	})
	return instance
}

// NewMetrics builds an independent registry. Tests use it directly.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		apiLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "api_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"method", "route"}),
		apiInflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "api_requests_inflight",
			Help:      "HTTP requests currently being served.",
		}),
		publishOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analysis_publish_total",
			Help:      "Publish attempts by outcome.",
		}, []string{"outcome"}),
		stateTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analysis_state_transitions_total",
			Help:      "Analysis state transitions.",
		}, []string{"from", "to"}),
		storageCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "storage_calls_total",
			Help:      "Calls to the object storage collaborator.",
		}, []string{"driver", "op", "outcome"}),
		storageRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "storage_retries_total",
			Help:      "Retried storage calls.",
		}, []string{"driver", "op"}),
		storageLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "storage_call_duration_seconds",
			Help:      "Storage call latency including retries.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"driver", "op"}),
		validationOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upload_validations_total",
			Help:      "Upload validations by resulting state.",
		}, []string{"state"}),
		validationLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upload_validation_duration_seconds",
			Help:      "Upload validation latency.",
			Buckets:   prometheus.DefBuckets,
		}),
		validationSwept: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upload_validations_swept_total",
			Help:      "Stale CREATED uploads picked up by the sweeper.",
		}),
		eventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analysis_events_total",
			Help:      "Analysis events by driver and outcome.",
		}, []string{"driver", "outcome"}),
	}
	reg.MustRegister(
		m.apiRequests,
		m.apiLatency,
		m.apiInflight,
		m.publishOutcomes,
		m.stateTransitions,
		m.storageCalls,
		m.storageRetries,
		m.storageLatency,
		m.validationOutcomes,
		m.validationLatency,
		m.validationSwept,
		m.eventsPublished,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RegisterDB exports connection pool stats for db.
func (m *Metrics) RegisterDB(log *logger.Logger, db *gorm.DB) {
	if m == nil || db == nil {
		return
	}
	sqlDB, err := db.DB()
	if err != nil {
		if log != nil {
			log.Warn("metrics: postgres stats unavailable", "error", err)
		}
		return
	}
	if err := m.registry.Register(collectors.NewDBStatsCollector(sqlDB, "songcatalog")); err != nil && log != nil {
		log.Warn("metrics: register db stats failed", "error", err)
	}
}

func (m *Metrics) ObserveAPI(method, route string, status int, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	m.apiRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.apiLatency.WithLabelValues(method, route).Observe(dur.Seconds())
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

func (m *Metrics) IncPublish(outcome string) {
	if m == nil {
		return
	}
	m.publishOutcomes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncStateTransition(from, to string) {
	if m == nil {
		return
	}
	m.stateTransitions.WithLabelValues(from, to).Inc()
}

func (m *Metrics) ObserveStorageCall(driver, op, outcome string, dur time.Duration) {
	if m == nil {
		return
	}
	m.storageCalls.WithLabelValues(driver, op, outcome).Inc()
	m.storageLatency.WithLabelValues(driver, op).Observe(dur.Seconds())
}

func (m *Metrics) IncStorageRetry(driver, op string) {
	if m == nil {
		return
	}
	m.storageRetries.WithLabelValues(driver, op).Inc()
}

func (m *Metrics) ObserveValidation(state string, dur time.Duration) {
	if m == nil {
		return
	}
	m.validationOutcomes.WithLabelValues(state).Inc()
	m.validationLatency.Observe(dur.Seconds())
}

func (m *Metrics) IncValidationSwept(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.validationSwept.Add(float64(n))
}

func (m *Metrics) IncEvent(driver, outcome string) {
	if m == nil {
		return
	}
	m.eventsPublished.WithLabelValues(driver, outcome).Inc()
}
