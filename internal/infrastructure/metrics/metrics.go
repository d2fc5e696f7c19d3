// Package metrics registers the service's Prometheus collectors:
//
//	finstack_p2p_http_requests_total{method,route,status}
//	finstack_p2p_http_request_duration_seconds{method,route}
//	finstack_p2p_upstream_requests_total{method,status}
//	finstack_p2p_order_transitions_total{from,to}
//	finstack_p2p_release_verifications_total{result}
//	finstack_p2p_kyc_polls_total{result}
//	finstack_p2p_order_stream_subscribers
//
// plus go_* and process_* collectors. All methods are safe on a nil *Metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "finstack_p2p"

type Metrics struct {
	Registry *prometheus.Registry

	httpRequests         *prometheus.CounterVec
	httpDuration         *prometheus.HistogramVec
	upstreamRequests     *prometheus.CounterVec
	orderTransitions     *prometheus.CounterVec
	releaseVerifications *prometheus.CounterVec
	kycPolls             *prometheus.CounterVec
	streamSubscribers    prometheus.Gauge
}

// New builds a Metrics with its own registry
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests served, by route template and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		upstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Requests sent to the finstack backend, by status (0 for transport errors).",
		}, []string{"method", "status"}),
		orderTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_transitions_total",
			Help:      "Order status transitions applied.",
		}, []string{"from", "to"}),
		releaseVerifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "release_verifications_total",
			Help:      "Release code verifications, by result.",
		}, []string{"result"}),
		kycPolls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kyc_polls_total",
			Help:      "KYC poller ticks, by result.",
		}, []string{"result"}),
		streamSubscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "order_stream_subscribers",
			Help:      "Open order event websocket subscriptions.",
		}),
	}

	m.Registry.MustRegister(
		m.httpRequests,
		m.httpDuration,
		m.upstreamRequests,
		m.orderTransitions,
		m.releaseVerifications,
		m.kycPolls,
		m.streamSubscribers,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveHTTP(method, route string, status int, latency time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(latency.Seconds())
}

func (m *Metrics) ObserveUpstream(method string, status int) {
	if m == nil {
		return
	}
	m.upstreamRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
}

func (m *Metrics) ObserveTransition(from, to string) {
	if m == nil {
		return
	}
	m.orderTransitions.WithLabelValues(from, to).Inc()
}

func (m *Metrics) ObserveRelease(result string) {
	if m == nil {
		return
	}
	m.releaseVerifications.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveKYCPoll(result string) {
	if m == nil {
		return
	}
	m.kycPolls.WithLabelValues(result).Inc()
}

func (m *Metrics) SubscriberAdded() {
	if m == nil {
		return
	}
	m.streamSubscribers.Inc()
}

func (m *Metrics) SubscriberRemoved() {
	if m == nil {
		return
	}
	m.streamSubscribers.Dec()
}
