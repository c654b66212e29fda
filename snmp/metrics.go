package snmp

import (
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// metricsCollector tracks the Correlator counters named in §4.3
// (requests_registered, requests_completed, requests_timeout,
// decode_failures, unknown_responses, avg_response_time_ms) and exposes
// them as a prometheus.Collector the host application can register,
// grounded on the exporter pattern in the pack's sockstats repo.
type metricsCollector struct {
	requestsRegistered prometheus.Counter
	requestsCompleted  prometheus.Counter
	requestsTimeout    prometheus.Counter
	decodeFailures     prometheus.Counter
	unknownResponses   prometheus.Counter

	mu            sync.Mutex
	totalRespTime int64 // nanoseconds, summed
	completedN    int64
	avgGauge      prometheus.Gauge

	unknownCount     uint64 // atomic; cheap read path for tests/invariant checks
	decodeFailureCnt uint64 // atomic; cheap read path for tests/invariant checks
}

func newMetricsCollector() *metricsCollector {
	return &metricsCollector{
		requestsRegistered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "snmp", Subsystem: "correlator", Name: "requests_registered_total",
			Help: "Total number of requests registered with the correlator.",
		}),
		requestsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "snmp", Subsystem: "correlator", Name: "requests_completed_total",
			Help: "Total number of requests successfully correlated to a response.",
		}),
		requestsTimeout: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "snmp", Subsystem: "correlator", Name: "requests_timeout_total",
			Help: "Total number of requests that timed out waiting for a response.",
		}),
		decodeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "snmp", Subsystem: "correlator", Name: "decode_failures_total",
			Help: "Total number of datagrams discarded because they failed to decode.",
		}),
		unknownResponses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "snmp", Subsystem: "correlator", Name: "unknown_responses_total",
			Help: "Total number of datagrams discarded for lack of a matching in-flight request.",
		}),
		avgGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "snmp", Subsystem: "correlator", Name: "avg_response_time_ms",
			Help: "Running average response time across completed requests, in milliseconds.",
		}),
	}
}

// Describe implements prometheus.Collector.
func (m *metricsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- m.requestsRegistered.Desc()
	ch <- m.requestsCompleted.Desc()
	ch <- m.requestsTimeout.Desc()
	ch <- m.decodeFailures.Desc()
	ch <- m.unknownResponses.Desc()
	ch <- m.avgGauge.Desc()
}

// Collect implements prometheus.Collector.
func (m *metricsCollector) Collect(ch chan<- prometheus.Metric) {
	ch <- m.requestsRegistered
	ch <- m.requestsCompleted
	ch <- m.requestsTimeout
	ch <- m.decodeFailures
	ch <- m.unknownResponses
	m.mu.Lock()
	n := m.completedN
	total := m.totalRespTime
	m.mu.Unlock()
	if n > 0 {
		m.avgGauge.Set(float64(total/n) / 1e6)
	}
	ch <- m.avgGauge
}

func (m *metricsCollector) recordRegistered() { m.requestsRegistered.Inc() }
func (m *metricsCollector) recordTimeout()    { m.requestsTimeout.Inc() }

func (m *metricsCollector) recordDecodeFailure() {
	m.decodeFailures.Inc()
	atomic.AddUint64(&m.decodeFailureCnt, 1)
}

func (m *metricsCollector) recordUnknown() {
	m.unknownResponses.Inc()
	atomic.AddUint64(&m.unknownCount, 1)
}

func (m *metricsCollector) recordCompleted(responseNanos int64) {
	m.requestsCompleted.Inc()
	m.mu.Lock()
	m.totalRespTime += responseNanos
	m.completedN++
	m.mu.Unlock()
}

// unknownResponseCount is read by tests verifying the §8 cancellation
// property without needing a full prometheus scrape.
func (m *metricsCollector) unknownResponseCount() uint64 {
	return atomic.LoadUint64(&m.unknownCount)
}

// decodeFailureCount is read by tests verifying the decode-failure discard
// path without needing a full prometheus scrape.
func (m *metricsCollector) decodeFailureCount() uint64 {
	return atomic.LoadUint64(&m.decodeFailureCnt)
}
