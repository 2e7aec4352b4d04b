// Package metrics exposes Prometheus collectors for the chatbot and the HTTP API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Veraticus/spicebot/internal/model"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "spicebot"

// Metrics holds every collector, registered on its own registry.
type Metrics struct {
	registry *prometheus.Registry

	intents           *prometheus.CounterVec
	intentConfidence  *prometheus.HistogramVec
	actions           *prometheus.CounterVec
	responderCalls    *prometheus.CounterVec
	responderDuration *prometheus.HistogramVec
	httpRequests      *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
}

// New creates the collectors on a fresh registry that also carries the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		intents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "chat_intents_total",
				Help:      "Total number of classified chat messages by intent",
			},
			[]string{"intent"},
		),
		intentConfidence: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "chat_intent_confidence",
				Help:      "Confidence reported for classified chat messages",
				Buckets:   []float64{0.5, 0.8, 0.9, 1},
			},
			[]string{"intent"},
		),
		actions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "chat_actions_total",
				Help:      "Total number of dispatched chat messages by action taken",
			},
			[]string{"action"},
		),
		responderCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "llm_requests_total",
				Help:      "Total number of language model calls by intent and outcome",
			},
			[]string{"intent", "outcome"},
		),
		responderDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "llm_request_duration_seconds",
				Help:      "Duration of language model calls in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
			},
			[]string{"intent"},
		),
		httpRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests by route, method and status code",
			},
			[]string{"route", "method", "code"},
		),
		httpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP requests in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route", "method"},
		),
	}
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveIntent records one classified message.
func (m *Metrics) ObserveIntent(intent model.Intent, confidence float64) {
	m.intents.WithLabelValues(string(intent)).Inc()
	m.intentConfidence.WithLabelValues(string(intent)).Observe(confidence)
}

// ObserveAction records the action tag of one dispatched message.
func (m *Metrics) ObserveAction(action model.ActionType) {
	m.actions.WithLabelValues(string(action)).Inc()
}

// ObserveResponder records one language model call.
func (m *Metrics) ObserveResponder(intent model.Intent, ok bool, elapsed time.Duration) {
	outcome := "success"
	if !ok {
		outcome = "fallback"
	}
	m.responderCalls.WithLabelValues(string(intent), outcome).Inc()
	m.responderDuration.WithLabelValues(string(intent)).Observe(elapsed.Seconds())
}

// Middleware records request counts and latency per mux route template.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := "unmatched"
		if current := mux.CurrentRoute(r); current != nil {
			if tmpl, err := current.GetPathTemplate(); err == nil {
				route = tmpl
			}
		}
		m.httpRequests.WithLabelValues(route, r.Method, strconv.Itoa(rec.status)).Inc()
		m.httpDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
