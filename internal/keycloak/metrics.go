// metrics.go — Prometheus метрики обращений к Keycloak.
package keycloak

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// requestsTotal — запросы к Admin REST API по операции и статусу.
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aa_keycloak_requests_total",
			Help: "Количество запросов к Keycloak Admin REST API",
		},
		[]string{"op", "status"},
	)

	// requestDuration — длительность запросов к Admin REST API.
	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "aa_keycloak_request_duration_seconds",
			Help:    "Длительность запросов к Keycloak Admin REST API в секундах",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	// tokenRequestsTotal — запросы admin token (result: ok, error).
	tokenRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aa_keycloak_token_requests_total",
			Help: "Количество запросов admin token к Keycloak",
		},
		[]string{"result"},
	)
)

// observeRequest записывает метрики одного запроса.
// statusCode == 0 означает транспортную ошибку.
func observeRequest(op string, statusCode int, started time.Time) {
	status := "error"
	if statusCode > 0 {
		status = strconv.Itoa(statusCode)
	}
	requestsTotal.WithLabelValues(op, status).Inc()
	requestDuration.WithLabelValues(op).Observe(time.Since(started).Seconds())
}
