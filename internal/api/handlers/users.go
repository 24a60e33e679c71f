// users.go — обработчики объединённого каталога /api/v1/users.
// Список, создание, получение, обновление, удаление записей каталога
// (клиенты, сотрудники, администраторы в одном endpoint, фильтр ?role=).
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/bigkaa/staffdesk/internal/api/errors"
	"github.com/bigkaa/staffdesk/internal/domain/model"
	"github.com/bigkaa/staffdesk/internal/service"
)

// userResponse — представление записи каталога в ответах API.
type userResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FullName  string `json:"full_name"`
	Role      string `json:"role"`
	Enabled   bool   `json:"enabled"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// userListResponse — ответ списка записей каталога.
type userListResponse struct {
	Items   []userResponse `json:"items"`
	Total   int            `json:"total"`
	Limit   int            `json:"limit"`
	Offset  int            `json:"offset"`
	HasMore bool           `json:"has_more"`
}

// createUserRequest — тело POST /api/v1/users.
type createUserRequest struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
	Enabled  *bool  `json:"enabled,omitempty"`
}

// updateUserRequest — тело PATCH/PUT /api/v1/users/{id}. nil-поле — «не менять».
type updateUserRequest struct {
	Email    *string `json:"email,omitempty"`
	FullName *string `json:"full_name,omitempty"`
	Role     *string `json:"role,omitempty"`
	Enabled  *bool   `json:"enabled,omitempty"`
}

// mapUser преобразует доменную модель в представление API.
func mapUser(rec *model.UserRecord) userResponse {
	return userResponse{
		ID:        rec.ID,
		Email:     rec.Email,
		FullName:  rec.FullName,
		Role:      rec.Role,
		Enabled:   rec.Enabled,
		CreatedAt: rec.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: rec.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// mapUserList преобразует срез записей в ответ списка.
func mapUserList(records []*model.UserRecord, total, limit, offset int) userListResponse {
	items := make([]userResponse, len(records))
	for i, rec := range records {
		items[i] = mapUser(rec)
	}
	return userListResponse{
		Items:   items,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: offset+limit < total,
	}
}

// writeServiceError маппит ошибку сервисного слоя в HTTP-ответ.
func (h *APIHandler) writeServiceError(w http.ResponseWriter, err error, operation string) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		apierrors.ValidationDetails(w, "Ошибка валидации входных данных", verr.Fields)
	case errors.Is(err, service.ErrInvalidRole):
		apierrors.ValidationError(w, err.Error())
	case errors.Is(err, service.ErrNotFound):
		apierrors.NotFound(w, "Запись каталога не найдена")
	case errors.Is(err, service.ErrConflict):
		apierrors.Conflict(w, "Пользователь с таким email уже существует в организации")
	default:
		h.logger.Error("Ошибка каталога пользователей", "operation", operation, "error", err)
		apierrors.InternalError(w, "Внутренняя ошибка сервера")
	}
}

// ListUsers — GET /api/v1/users?role=&limit=&offset=.
// Возвращает записи каталога организации вызывающего.
func (h *APIHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}

	limit, offset := paginationParams(r)
	role := r.URL.Query().Get("role")

	records, total, err := h.users.List(r.Context(), tenantID, role, limit, offset)
	if err != nil {
		h.writeServiceError(w, err, "list")
		return
	}

	writeJSON(w, http.StatusOK, mapUserList(records, total, limit, offset))
}

// CreateUser — POST /api/v1/users.
func (h *APIHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}

	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		return
	}

	rec, err := h.users.Create(r.Context(), tenantID, service.CreateUserInput{
		Email:    req.Email,
		FullName: req.FullName,
		Role:     req.Role,
		Enabled:  req.Enabled,
	})
	if err != nil {
		h.writeServiceError(w, err, "create")
		return
	}

	writeJSON(w, http.StatusCreated, mapUser(rec))
}

// GetUser — GET /api/v1/users/{id}.
func (h *APIHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}

	rec, err := h.users.Get(r.Context(), tenantID, chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, err, "get")
		return
	}

	writeJSON(w, http.StatusOK, mapUser(rec))
}

// UpdateUser — PATCH/PUT /api/v1/users/{id}. Частичное обновление:
// отсутствующие в теле поля не меняются.
func (h *APIHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}

	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		return
	}

	rec, err := h.users.Update(r.Context(), tenantID, chi.URLParam(r, "id"), service.UpdateUserInput{
		Email:    req.Email,
		FullName: req.FullName,
		Role:     req.Role,
		Enabled:  req.Enabled,
	})
	if err != nil {
		h.writeServiceError(w, err, "update")
		return
	}

	writeJSON(w, http.StatusOK, mapUser(rec))
}

// DeleteUser — DELETE /api/v1/users/{id}.
func (h *APIHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}

	if err := h.users.Delete(r.Context(), tenantID, chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, err, "delete")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
