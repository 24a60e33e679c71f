// handler.go — основной обработчик API StaffDesk.
// Объединяет доменные обработчики и делегирует запросы в сервисный слой.
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	apierrors "github.com/bigkaa/staffdesk/internal/api/errors"
	"github.com/bigkaa/staffdesk/internal/api/middleware"
	"github.com/bigkaa/staffdesk/internal/service"
)

// APIHandler — основной обработчик API StaffDesk.
// Делегирует запросы в сервисный слой.
type APIHandler struct {
	health *HealthHandler
	users  *service.UserDirectoryService
	logger *slog.Logger
}

// NewAPIHandler создаёт основной обработчик API.
func NewAPIHandler(
	health *HealthHandler,
	users *service.UserDirectoryService,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{
		health: health,
		users:  users,
		logger: logger.With(slog.String("component", "api_handler")),
	}
}

// HealthLive — liveness probe (делегируется в HealthHandler).
func (h *APIHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	h.health.HealthLive(w, r)
}

// HealthReady — readiness probe (делегируется в HealthHandler).
func (h *APIHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	h.health.HealthReady(w, r)
}

// GetMetrics — Prometheus метрики (делегируется в HealthHandler).
func (h *APIHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.health.GetMetrics(w, r)
}

// --- Вспомогательные функции ---

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// requireTenant извлекает организацию из claims запроса.
// Без claims — 401, без tenant_id в токене — 403.
// Возвращает ("", false) если ответ уже записан.
func requireTenant(w http.ResponseWriter, r *http.Request) (string, bool) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		apierrors.Unauthorized(w, "Требуется аутентификация")
		return "", false
	}
	if claims.TenantID == "" {
		apierrors.Forbidden(w, "В токене отсутствует организация (tenant_id)")
		return "", false
	}
	return claims.TenantID, true
}

// paginationParams разбирает limit и offset из query string.
// Некорректные значения заменяются на границы диапазона.
func paginationParams(r *http.Request) (limit, offset int) {
	limit = 100
	offset = 0

	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			limit = n
		}
	}
	if s := r.URL.Query().Get("offset"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			offset = n
		}
	}

	if limit < 1 {
		limit = 1
	}
	if limit > 1000 {
		limit = 1000
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
