// metrics.go — Prometheus HTTP метрики secure-uploader.
// Регистрирует метрики: su_http_requests_total, su_http_request_duration_seconds.
// Бизнес-метрики (su_operations_total и др.) регистрируются в пакете service.
package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP метрики
var (
	// httpRequestsTotal — общее количество HTTP-запросов.
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "su_http_requests_total",
			Help: "Общее количество HTTP-запросов к secure-uploader",
		},
		[]string{"method", "path", "status"},
	)

	// httpRequestDuration — гистограмма длительности HTTP-запросов.
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "su_http_request_duration_seconds",
			Help:    "Длительность HTTP-запросов к secure-uploader в секундах",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

const filesPrefix = "/api/v1/files/"

// MetricsMiddleware возвращает HTTP middleware для сбора Prometheus метрик.
// Записывает количество запросов и длительность для каждого endpoint.
func MetricsMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// UUID в пути заменяется на {id} для ограничения кардинальности
			normalizedPath := normalizePath(r.URL.Path)

			wrapped := newResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(wrapped.statusCode)

			httpRequestsTotal.WithLabelValues(r.Method, normalizedPath, status).Inc()
			httpRequestDuration.WithLabelValues(r.Method, normalizedPath).Observe(duration)
		})
	}
}

// normalizePath приводит путь к шаблону маршрута.
// /api/v1/files/a1b2c3d4-e5f6-7890-abcd-ef1234567890/download → /api/v1/files/{id}/download
// Неизвестные пути сводятся к "other".
func normalizePath(path string) string {
	switch path {
	case "/health/live", "/health/ready", "/metrics", "/api/v1/files":
		return path
	}

	if !isUUIDSegment(path, filesPrefix) {
		return "other"
	}

	switch path[len(filesPrefix)+36:] {
	case "":
		return "/api/v1/files/{id}"
	case "/download":
		return "/api/v1/files/{id}/download"
	case "/visibility":
		return "/api/v1/files/{id}/visibility"
	}
	return "other"
}

// isUUIDSegment проверяет, начинается ли сегмент пути после prefix с UUID.
func isUUIDSegment(path, prefix string) bool {
	if len(path) < len(prefix)+36 || path[:len(prefix)] != prefix {
		return false
	}
	segment := path[len(prefix) : len(prefix)+36]
	// Формат UUID: 8-4-4-4-12
	for i, c := range segment {
		if i == 8 || i == 13 || i == 18 || i == 23 {
			if c != '-' {
				return false
			}
		} else {
			if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
				return false
			}
		}
	}
	return true
}
