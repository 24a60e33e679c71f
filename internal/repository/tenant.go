package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/staffdesk/internal/domain/model"
)

// TenantRepository — интерфейс доступа к таблице tenants.
type TenantRepository interface {
	// Create создаёт организацию. Имя должно быть уникально.
	Create(ctx context.Context, tenant *model.Tenant) error
	// GetByID возвращает организацию по ID.
	GetByID(ctx context.Context, id string) (*model.Tenant, error)
	// List возвращает все организации (с пагинацией).
	List(ctx context.Context, limit, offset int) ([]*model.Tenant, error)
}

// tenantRepo — реализация TenantRepository.
type tenantRepo struct {
	db DBTX
}

// NewTenantRepository создаёт репозиторий организаций.
func NewTenantRepository(db DBTX) TenantRepository {
	return &tenantRepo{db: db}
}

func (r *tenantRepo) Create(ctx context.Context, tenant *model.Tenant) error {
	query := `
		INSERT INTO tenants (name)
		VALUES ($1)
		RETURNING id, created_at`

	err := r.db.QueryRow(ctx, query, tenant.Name).Scan(&tenant.ID, &tenant.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("ошибка создания организации: %w", err)
	}
	return nil
}

func (r *tenantRepo) GetByID(ctx context.Context, id string) (*model.Tenant, error) {
	tenant := &model.Tenant{}
	err := r.db.QueryRow(ctx,
		`SELECT id, name, created_at FROM tenants WHERE id = $1`, id,
	).Scan(&tenant.ID, &tenant.Name, &tenant.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения организации: %w", err)
	}
	return tenant, nil
}

func (r *tenantRepo) List(ctx context.Context, limit, offset int) ([]*model.Tenant, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, name, created_at FROM tenants ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка организаций: %w", err)
	}
	defer rows.Close()

	var result []*model.Tenant
	for rows.Next() {
		tenant := &model.Tenant{}
		if err := rows.Scan(&tenant.ID, &tenant.Name, &tenant.CreatedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования организации: %w", err)
		}
		result = append(result, tenant)
	}
	return result, rows.Err()
}
