package metrics

import (
	"database/sql"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	metricPrefix = "balancetracker_"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec

	periodOps *prometheus.CounterVec
	payeeOps  *prometheus.CounterVec
	itemOps   *prometheus.CounterVec
)

// Init registers application metrics and DB pool gauges. Safe to call
// more than once.
func Init(db *sql.DB) {
	registerOnce.Do(func() {
		httpRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "http_requests_total",
				Help: "Total HTTP requests by method, route and status",
			},
			[]string{"method", "route", "status"},
		)
		httpLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		)

		periodOps = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "period_operations_total",
				Help: "Total payment period operations by operation and result",
			},
			[]string{"operation", "result"},
		)
		payeeOps = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "payee_operations_total",
				Help: "Total payee operations by operation and result",
			},
			[]string{"operation", "result"},
		)
		itemOps = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "payment_item_operations_total",
				Help: "Total payment item operations by operation and result",
			},
			[]string{"operation", "result"},
		)

		prometheus.MustRegister(
			httpRequests,
			httpLatency,
			periodOps,
			payeeOps,
			itemOps,
		)

		if db != nil {
			registerDBMetrics(db)
		}
	})
}

// Handler returns the HTTP handler serving the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveHTTPRequest records one completed HTTP request.
func ObserveHTTPRequest(method, route, status string, duration time.Duration) {
	if httpRequests != nil {
		httpRequests.WithLabelValues(method, route, status).Inc()
	}
	if httpLatency != nil {
		httpLatency.WithLabelValues(method, route).Observe(duration.Seconds())
	}
}

// IncPeriodOp increments the payment period operation counter.
func IncPeriodOp(operation string, err error) {
	if periodOps != nil {
		periodOps.WithLabelValues(operation, resultOf(err)).Inc()
	}
}

// IncPayeeOp increments the payee operation counter.
func IncPayeeOp(operation string, err error) {
	if payeeOps != nil {
		payeeOps.WithLabelValues(operation, resultOf(err)).Inc()
	}
}

// IncItemOp increments the payment item operation counter.
func IncItemOp(operation string, err error) {
	if itemOps != nil {
		itemOps.WithLabelValues(operation, resultOf(err)).Inc()
	}
}

func resultOf(err error) string {
	if err != nil {
		return resultError
	}
	return resultSuccess
}
