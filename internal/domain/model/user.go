// Пакет model — доменные модели StaffDesk Admin Module.
package model

import "time"

// Tenant — изолированная организация-клиент.
// Все записи каталога привязаны к tenant_id.
type Tenant struct {
	// ID — UUID организации
	ID string
	// Name — название организации
	Name string
	// CreatedAt — время создания
	CreatedAt time.Time
}

// UserRecord — запись каталога пользователей организации.
// Единая таблица для клиентов, сотрудников и администраторов;
// устаревшие endpoints /clients и /team-members — представления по роли.
type UserRecord struct {
	// ID — UUID записи
	ID string
	// TenantID — организация-владелец
	TenantID string
	// Email — адрес электронной почты, уникален в рамках организации
	Email string
	// FullName — полное имя
	FullName string
	// Role — роль в каталоге (CLIENT, TEAM_MEMBER, ADMIN)
	Role string
	// Enabled — активна ли запись
	Enabled bool
	// CreatedAt — время создания записи
	CreatedAt time.Time
	// UpdatedAt — время последнего обновления
	UpdatedAt time.Time
}
