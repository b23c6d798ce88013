// metrics.go — Prometheus HTTP метрики Media Module.
// Регистрирует метрики: mm_http_requests_total, mm_http_request_duration_seconds.
// Бизнес-метрики загрузок обновляются из обработчиков.
package middleware

import (
	"net/http"
	"regexp"
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
			Name: "mm_http_requests_total",
			Help: "Общее количество HTTP-запросов к Media Module",
		},
		[]string{"method", "path", "status"},
	)

	// httpRequestDuration — гистограмма длительности HTTP-запросов.
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mm_http_request_duration_seconds",
			Help:    "Длительность HTTP-запросов к Media Module в секундах",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// Бизнес-метрики (экспортируются для обновления из обработчиков)
var (
	// UploadsTotal — количество завершённых загрузок по результату
	// (saved, rejected, failed).
	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mm_uploads_total",
			Help: "Количество завершённых загрузок по результату",
		},
		[]string{"result"},
	)

	// UploadBytesTotal — суммарный объём сохранённых файлов.
	UploadBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mm_upload_bytes_total",
			Help: "Суммарный объём сохранённых медиа-файлов в байтах",
		},
	)
)

// MetricsMiddleware возвращает HTTP middleware для сбора Prometheus метрик.
// Записывает количество запросов и длительность для каждого endpoint.
func MetricsMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Нормализуем путь для лейблов метрик
			// (заменяем UUID на {id} для предотвращения кардинальности)
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

// uuidRe — сегмент пути, похожий на UUID.
var uuidRe = regexp.MustCompile(`[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`)

// normalizePath заменяет UUID-сегменты пути на {id},
// чтобы не раздувать кардинальность лейблов.
func normalizePath(path string) string {
	return uuidRe.ReplaceAllString(path, "{id}")
}
