// clients.go — устаревшие endpoints /api/v1/clients и /api/v1/team-members.
// Срезы объединённого каталога по фиксированной роли: запись с другой ролью
// для представления не существует (404), в том числе при обновлении и
// удалении. Все ответы несут заголовки Deprecation/Sunset
// (middleware.Deprecation); каноническая замена — /api/v1/users.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/bigkaa/staffdesk/internal/api/errors"
	"github.com/bigkaa/staffdesk/internal/domain/rbac"
	"github.com/bigkaa/staffdesk/internal/service"
)

// ListClients — GET /api/v1/clients (устаревший).
// Эквивалент GET /api/v1/users?role=CLIENT.
func (h *APIHandler) ListClients(w http.ResponseWriter, r *http.Request) {
	h.listByRole(w, r, rbac.RoleClient)
}

// GetClient — GET /api/v1/clients/{id} (устаревший).
// Запись с другой ролью для этого представления не существует — 404.
func (h *APIHandler) GetClient(w http.ResponseWriter, r *http.Request) {
	h.getByRole(w, r, rbac.RoleClient)
}

// UpdateClient — PATCH/PUT /api/v1/clients/{id} (устаревший).
func (h *APIHandler) UpdateClient(w http.ResponseWriter, r *http.Request) {
	h.updateByRole(w, r, rbac.RoleClient)
}

// DeleteClient — DELETE /api/v1/clients/{id} (устаревший).
func (h *APIHandler) DeleteClient(w http.ResponseWriter, r *http.Request) {
	h.deleteByRole(w, r, rbac.RoleClient)
}

// ListTeamMembers — GET /api/v1/team-members (устаревший).
// Эквивалент GET /api/v1/users?role=TEAM_MEMBER.
func (h *APIHandler) ListTeamMembers(w http.ResponseWriter, r *http.Request) {
	h.listByRole(w, r, rbac.RoleTeamMember)
}

// GetTeamMember — GET /api/v1/team-members/{id} (устаревший).
func (h *APIHandler) GetTeamMember(w http.ResponseWriter, r *http.Request) {
	h.getByRole(w, r, rbac.RoleTeamMember)
}

// UpdateTeamMember — PATCH/PUT /api/v1/team-members/{id} (устаревший).
func (h *APIHandler) UpdateTeamMember(w http.ResponseWriter, r *http.Request) {
	h.updateByRole(w, r, rbac.RoleTeamMember)
}

// DeleteTeamMember — DELETE /api/v1/team-members/{id} (устаревший).
func (h *APIHandler) DeleteTeamMember(w http.ResponseWriter, r *http.Request) {
	h.deleteByRole(w, r, rbac.RoleTeamMember)
}

// listByRole — общий код устаревших списков.
func (h *APIHandler) listByRole(w http.ResponseWriter, r *http.Request, role string) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}

	limit, offset := paginationParams(r)

	records, total, err := h.users.ListByRole(r.Context(), tenantID, role, limit, offset)
	if err != nil {
		h.writeServiceError(w, err, "list_legacy")
		return
	}

	writeJSON(w, http.StatusOK, mapUserList(records, total, limit, offset))
}

// getByRole — общий код устаревшего получения по ID.
func (h *APIHandler) getByRole(w http.ResponseWriter, r *http.Request, role string) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}

	rec, err := h.users.GetByRole(r.Context(), tenantID, chi.URLParam(r, "id"), role)
	if err != nil {
		h.writeServiceError(w, err, "get_legacy")
		return
	}

	writeJSON(w, http.StatusOK, mapUser(rec))
}

// updateByRole — общий код устаревшего обновления по ID.
// Роль записи зафиксирована представлением, поле role в теле игнорируется.
func (h *APIHandler) updateByRole(w http.ResponseWriter, r *http.Request, role string) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")
	if _, err := h.users.GetByRole(r.Context(), tenantID, id, role); err != nil {
		h.writeServiceError(w, err, "update_legacy")
		return
	}

	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		return
	}

	rec, err := h.users.Update(r.Context(), tenantID, id, service.UpdateUserInput{
		Email:    req.Email,
		FullName: req.FullName,
		Enabled:  req.Enabled,
	})
	if err != nil {
		h.writeServiceError(w, err, "update_legacy")
		return
	}

	writeJSON(w, http.StatusOK, mapUser(rec))
}

// deleteByRole — общий код устаревшего удаления по ID.
func (h *APIHandler) deleteByRole(w http.ResponseWriter, r *http.Request, role string) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")
	if _, err := h.users.GetByRole(r.Context(), tenantID, id, role); err != nil {
		h.writeServiceError(w, err, "delete_legacy")
		return
	}

	if err := h.users.Delete(r.Context(), tenantID, id); err != nil {
		h.writeServiceError(w, err, "delete_legacy")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
