// Пакет service — бизнес-логика StaffDesk.
// users.go — сервис объединённого каталога пользователей организации.
// Единый CRUD для клиентов, сотрудников и администраторов; устаревшие
// представления «клиенты» и «сотрудники» — отфильтрованные срезы каталога.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/bigkaa/staffdesk/internal/domain/model"
	"github.com/bigkaa/staffdesk/internal/domain/rbac"
	"github.com/bigkaa/staffdesk/internal/repository"
)

// CreateUserInput — входные данные создания записи каталога.
type CreateUserInput struct {
	Email    string
	FullName string
	Role     string
	Enabled  *bool
}

// UpdateUserInput — входные данные обновления записи каталога.
// nil-поле — «не менять».
type UpdateUserInput struct {
	Email    *string
	FullName *string
	Role     *string
	Enabled  *bool
}

// UserDirectoryService — сервис каталога пользователей.
// Все операции ограничены организацией tenantID вызывающего.
type UserDirectoryService struct {
	repo   repository.UserRecordRepository
	logger *slog.Logger
}

// NewUserDirectoryService создаёт сервис каталога пользователей.
func NewUserDirectoryService(repo repository.UserRecordRepository, logger *slog.Logger) *UserDirectoryService {
	return &UserDirectoryService{
		repo:   repo,
		logger: logger.With(slog.String("component", "user_directory_service")),
	}
}

// ValidationError — ошибка валидации с пополевой расшифровкой.
type ValidationError struct {
	// Fields — имя поля → описание проблемы.
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, problem := range e.Fields {
		parts = append(parts, field+": "+problem)
	}
	return "ошибка валидации: " + strings.Join(parts, "; ")
}

// Unwrap позволяет errors.Is(err, ErrValidation).
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// Create создаёт запись каталога в организации tenantID.
// Email приводится к нижнему регистру: уникальность в организации
// проверяется без учёта регистра.
func (s *UserDirectoryService) Create(ctx context.Context, tenantID string, input CreateUserInput) (*model.UserRecord, error) {
	input.Email = normalizeEmail(input.Email)
	input.FullName = strings.TrimSpace(input.FullName)
	input.Role = rbac.Normalize(input.Role)

	if err := validateUserInput(input.Email, input.FullName, input.Role, true); err != nil {
		return nil, err
	}

	enabled := true
	if input.Enabled != nil {
		enabled = *input.Enabled
	}

	rec := &model.UserRecord{
		TenantID: tenantID,
		Email:    input.Email,
		FullName: input.FullName,
		Role:     input.Role,
		Enabled:  enabled,
	}

	if err := s.repo.Create(ctx, rec); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("создание записи каталога: %w", err)
	}

	s.logger.Info("Запись каталога создана",
		slog.String("record_id", rec.ID),
		slog.String("tenant_id", tenantID),
		slog.String("role", rec.Role),
	)
	return rec, nil
}

// Get возвращает запись каталога по ID в рамках организации.
func (s *UserDirectoryService) Get(ctx context.Context, tenantID, id string) (*model.UserRecord, error) {
	rec, err := s.repo.GetByID(ctx, tenantID, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("получение записи каталога: %w", err)
	}
	return rec, nil
}

// List возвращает записи каталога организации с опциональным фильтром
// по роли и пагинацией. role == "" — все роли.
func (s *UserDirectoryService) List(ctx context.Context, tenantID, role string, limit, offset int) ([]*model.UserRecord, int, error) {
	role = rbac.Normalize(role)
	if role != "" && !rbac.IsValidRole(role) {
		return nil, 0, ErrInvalidRole
	}

	records, err := s.repo.List(ctx, tenantID, role, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("получение списка записей каталога: %w", err)
	}

	total, err := s.repo.Count(ctx, tenantID, role)
	if err != nil {
		return nil, 0, fmt.Errorf("подсчёт записей каталога: %w", err)
	}

	return records, total, nil
}

// ListByRole — устаревшее представление каталога: срез по фиксированной роли.
// Обслуживает старые endpoints /api/v1/clients и /api/v1/team-members.
func (s *UserDirectoryService) ListByRole(ctx context.Context, tenantID, role string, limit, offset int) ([]*model.UserRecord, int, error) {
	return s.List(ctx, tenantID, role, limit, offset)
}

// GetByRole возвращает запись по ID, только если её роль совпадает с ожидаемой.
// Запись с другой ролью для устаревшего представления не существует.
func (s *UserDirectoryService) GetByRole(ctx context.Context, tenantID, id, role string) (*model.UserRecord, error) {
	rec, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if rec.Role != role {
		return nil, ErrNotFound
	}
	return rec, nil
}

// Update обновляет запись каталога. nil-поля не меняются.
func (s *UserDirectoryService) Update(ctx context.Context, tenantID, id string, input UpdateUserInput) (*model.UserRecord, error) {
	rec, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	if input.Email != nil {
		rec.Email = normalizeEmail(*input.Email)
	}
	if input.FullName != nil {
		rec.FullName = strings.TrimSpace(*input.FullName)
	}
	if input.Role != nil {
		rec.Role = rbac.Normalize(*input.Role)
	}
	if input.Enabled != nil {
		rec.Enabled = *input.Enabled
	}

	if err := validateUserInput(rec.Email, rec.FullName, rec.Role, true); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, rec); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrNotFound
		case errors.Is(err, repository.ErrConflict):
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("обновление записи каталога: %w", err)
	}

	s.logger.Info("Запись каталога обновлена",
		slog.String("record_id", rec.ID),
		slog.String("tenant_id", tenantID),
	)
	return rec, nil
}

// Delete удаляет запись каталога по ID в рамках организации.
func (s *UserDirectoryService) Delete(ctx context.Context, tenantID, id string) error {
	if err := s.repo.Delete(ctx, tenantID, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("удаление записи каталога: %w", err)
	}

	s.logger.Info("Запись каталога удалена",
		slog.String("record_id", id),
		slog.String("tenant_id", tenantID),
	)
	return nil
}

// normalizeEmail приводит email к каноническому виду: без пробелов по краям,
// в нижнем регистре — в соответствии с уникальным индексом по lower(email).
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// validateUserInput проверяет поля записи каталога.
// required — email, full_name и role обязательны (create и полный update).
func validateUserInput(email, fullName, role string, required bool) error {
	fields := make(map[string]string)

	if email == "" {
		if required {
			fields["email"] = "обязательное поле"
		}
	} else if _, err := mail.ParseAddress(email); err != nil {
		fields["email"] = "некорректный email"
	}

	if fullName == "" && required {
		fields["full_name"] = "обязательное поле"
	}

	if role == "" {
		if required {
			fields["role"] = "обязательное поле"
		}
	} else if !rbac.IsValidRole(role) {
		fields["role"] = "допустимые значения: CLIENT, TEAM_MEMBER, ADMIN"
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}
