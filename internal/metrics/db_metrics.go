package metrics

import (
	"database/sql"

	"github.com/prometheus/client_golang/prometheus"
)

func registerDBMetrics(db *sql.DB) {
	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metricPrefix + "payment_periods_count",
			Help: "Number of stored payment periods",
		},
		func() float64 {
			return queryCount(db, "SELECT COUNT(*) FROM payment_periods")
		},
	))

	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metricPrefix + "payees_count",
			Help: "Number of registered payees",
		},
		func() float64 {
			return queryCount(db, "SELECT COUNT(*) FROM payees")
		},
	))

	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metricPrefix + "db_open_connections",
			Help: "Open database connections",
		},
		func() float64 {
			return float64(db.Stats().OpenConnections)
		},
	))
}

func queryCount(db *sql.DB, query string) float64 {
	var count int64
	if err := db.QueryRow(query).Scan(&count); err != nil || count < 0 {
		return 0
	}
	return float64(count)
}
