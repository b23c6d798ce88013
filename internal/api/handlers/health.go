// health.go — обработчики health endpoints для Kubernetes probes.
package handlers

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tadcms/media-module/internal/config"
)

// statusFail — строковая константа для статуса "fail" в health checks.
const statusFail = "fail"

// HealthHandler реализует health endpoints: /health/live, /health/ready.
type HealthHandler struct {
	version string
	// uploadDisk — корень диска хранения (для проверки FS)
	uploadDisk string
	// pool — пул подключений к PostgreSQL (для ping)
	pool *pgxpool.Pool
}

// NewHealthHandler создаёт обработчик health endpoints.
func NewHealthHandler(uploadDisk string, pool *pgxpool.Pool) *HealthHandler {
	return &HealthHandler{
		version:    config.Version,
		uploadDisk: uploadDisk,
		pool:       pool,
	}
}

// HealthLive обрабатывает GET /health/live.
// Возвращает 200, если процесс жив. Не проверяет зависимости.
func (h *HealthHandler) HealthLive(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   h.version,
		"service":   "media-module",
	})
}

// HealthReady обрабатывает GET /health/ready.
// Проверяет доступность диска хранения и подключение к PostgreSQL.
func (h *HealthHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{
		"disk":     "ok",
		"database": "ok",
	}
	ready := true

	if info, err := os.Stat(h.uploadDisk); err != nil || !info.IsDir() {
		checks["disk"] = statusFail
		ready = false
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if h.pool == nil || h.pool.Ping(ctx) != nil {
		checks["database"] = statusFail
		ready = false
	}

	status := http.StatusOK
	statusText := "ok"
	if !ready {
		status = http.StatusServiceUnavailable
		statusText = statusFail
	}

	writeJSON(w, status, map[string]any{
		"status":    statusText,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   h.version,
		"checks":    checks,
	})
}
