package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/staffdesk/internal/domain/model"
)

// UserRecordRepository — интерфейс CRUD для таблицы user_records.
// Все операции ограничены организацией tenantID.
type UserRecordRepository interface {
	// Create создаёт запись каталога. Email должен быть уникален в организации.
	Create(ctx context.Context, rec *model.UserRecord) error
	// GetByID возвращает запись по ID в рамках организации.
	GetByID(ctx context.Context, tenantID, id string) (*model.UserRecord, error)
	// List возвращает записи организации, опционально отфильтрованные по роли
	// (role == "" — все роли), с пагинацией. Порядок — по created_at DESC.
	List(ctx context.Context, tenantID, role string, limit, offset int) ([]*model.UserRecord, error)
	// Count возвращает количество записей организации по фильтру роли.
	Count(ctx context.Context, tenantID, role string) (int, error)
	// Update обновляет email, full_name, role и enabled записи.
	Update(ctx context.Context, rec *model.UserRecord) error
	// Delete удаляет запись по ID в рамках организации.
	Delete(ctx context.Context, tenantID, id string) error
}

// userRecordRepo — реализация UserRecordRepository.
type userRecordRepo struct {
	db DBTX
}

// NewUserRecordRepository создаёт репозиторий записей каталога.
func NewUserRecordRepository(db DBTX) UserRecordRepository {
	return &userRecordRepo{db: db}
}

const urColumns = `id, tenant_id, email, full_name, role, enabled, created_at, updated_at`

func (r *userRecordRepo) Create(ctx context.Context, rec *model.UserRecord) error {
	query := `
		INSERT INTO user_records (tenant_id, email, full_name, role, enabled)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		rec.TenantID, rec.Email, rec.FullName, rec.Role, rec.Enabled,
	).Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("ошибка создания записи каталога: %w", err)
	}
	return nil
}

func (r *userRecordRepo) GetByID(ctx context.Context, tenantID, id string) (*model.UserRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM user_records WHERE tenant_id = $1 AND id = $2`, urColumns)

	rec := &model.UserRecord{}
	err := r.db.QueryRow(ctx, query, tenantID, id).Scan(
		&rec.ID, &rec.TenantID, &rec.Email, &rec.FullName,
		&rec.Role, &rec.Enabled, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения записи каталога: %w", err)
	}
	return rec, nil
}

func (r *userRecordRepo) List(ctx context.Context, tenantID, role string, limit, offset int) ([]*model.UserRecord, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM user_records
		WHERE tenant_id = $1 AND ($2 = '' OR role = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4`, urColumns)

	rows, err := r.db.Query(ctx, query, tenantID, role, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка записей каталога: %w", err)
	}
	defer rows.Close()

	var result []*model.UserRecord
	for rows.Next() {
		rec := &model.UserRecord{}
		if err := rows.Scan(
			&rec.ID, &rec.TenantID, &rec.Email, &rec.FullName,
			&rec.Role, &rec.Enabled, &rec.CreatedAt, &rec.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("ошибка сканирования записи каталога: %w", err)
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}

func (r *userRecordRepo) Count(ctx context.Context, tenantID, role string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM user_records WHERE tenant_id = $1 AND ($2 = '' OR role = $2)`,
		tenantID, role,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("ошибка подсчёта записей каталога: %w", err)
	}
	return count, nil
}

func (r *userRecordRepo) Update(ctx context.Context, rec *model.UserRecord) error {
	query := `
		UPDATE user_records
		SET email = $3, full_name = $4, role = $5, enabled = $6, updated_at = now()
		WHERE tenant_id = $1 AND id = $2
		RETURNING updated_at`

	err := r.db.QueryRow(ctx, query,
		rec.TenantID, rec.ID, rec.Email, rec.FullName, rec.Role, rec.Enabled,
	).Scan(&rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("ошибка обновления записи каталога: %w", err)
	}
	return nil
}

func (r *userRecordRepo) Delete(ctx context.Context, tenantID, id string) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM user_records WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	if err != nil {
		return fmt.Errorf("ошибка удаления записи каталога: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
