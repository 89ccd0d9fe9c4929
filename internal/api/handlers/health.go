// health.go — обработчики health endpoints для Kubernetes probes.
package handlers

import (
	"net/http"
	"time"

	"github.com/frozn333/secure-uploader/internal/api/generated"
	"github.com/frozn333/secure-uploader/internal/config"
)

const (
	statusOK   = "ok"
	statusFail = "fail"
	// serviceName — значение поля service в ответах health
	serviceName = "secure-uploader"
)

// ReadinessChecker — проверка готовности зависимости.
// Возвращает статус ("ok" или "fail") и сообщение.
type ReadinessChecker interface {
	CheckReady() (status string, message string)
}

// NamedChecker — проверка с именем для поля checks.
type NamedChecker struct {
	Name    string
	Checker ReadinessChecker
}

// HealthHandler реализует /health/live и /health/ready.
type HealthHandler struct {
	version  string
	checkers []NamedChecker
	now      func() time.Time
}

// NewHealthHandler создаёт обработчик health endpoints.
// checkers — хранилище метаданных и blob-хранилище.
func NewHealthHandler(checkers ...NamedChecker) *HealthHandler {
	return &HealthHandler{
		version:  config.Version,
		checkers: checkers,
		now:      time.Now,
	}
}

// HealthLive обрабатывает GET /health/live.
// Возвращает 200, если процесс жив. Зависимости не проверяются.
func (h *HealthHandler) HealthLive(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, generated.HealthResponse{
		Status:    statusOK,
		Timestamp: h.now().UTC(),
		Version:   h.version,
		Service:   serviceName,
	})
}

// HealthReady обрабатывает GET /health/ready.
// 503, если хотя бы одно хранилище не готово.
func (h *HealthHandler) HealthReady(w http.ResponseWriter, _ *http.Request) {
	overallStatus := statusOK
	httpStatus := http.StatusOK

	checks := make(map[string]interface{}, len(h.checkers))
	for _, c := range h.checkers {
		status, message := c.Checker.CheckReady()
		checks[c.Name] = map[string]string{
			"status":  status,
			"message": message,
		}
		if status != statusOK {
			overallStatus = statusFail
			httpStatus = http.StatusServiceUnavailable
		}
	}

	writeJSON(w, httpStatus, generated.HealthResponse{
		Status:    overallStatus,
		Timestamp: h.now().UTC(),
		Version:   h.version,
		Service:   serviceName,
		Checks:    &checks,
	})
}
