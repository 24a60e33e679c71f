// Пакет rbac — роли субъектов StaffDesk и сравнение их привилегий.
// Роли приходят из JWT сессии (claim "role") и нормализуются к upper case.
package rbac

import "strings"

// Роли в порядке возрастания привилегий.
const (
	RoleClient     = "CLIENT"
	RoleTeamMember = "TEAM_MEMBER"
	RoleAdmin      = "ADMIN"
)

// roleWeight — вес роли для сравнения.
// Чем выше вес, тем больше привилегий.
var roleWeight = map[string]int{
	RoleClient:     1,
	RoleTeamMember: 2,
	RoleAdmin:      3,
}

// Normalize приводит роль к каноническому виду (upper case, без пробелов).
func Normalize(role string) string {
	return strings.ToUpper(strings.TrimSpace(role))
}

// IsValidRole проверяет, является ли строка допустимой ролью.
func IsValidRole(role string) bool {
	_, ok := roleWeight[Normalize(role)]
	return ok
}

// HasAtLeast проверяет, что роль не ниже минимально требуемой.
// Неизвестные роли имеют вес 0 и не проходят ни одну проверку.
func HasAtLeast(role, minimum string) bool {
	return roleWeight[Normalize(role)] >= roleWeight[Normalize(minimum)]
}

// HighestRole возвращает максимальную роль из набора.
// Если набор пуст — возвращает пустую строку.
func HighestRole(roles []string) string {
	highest := ""
	for _, r := range roles {
		r = Normalize(r)
		if roleWeight[r] > roleWeight[highest] {
			highest = r
		}
	}
	return highest
}

// All возвращает все допустимые роли в порядке возрастания привилегий.
func All() []string {
	return []string{RoleClient, RoleTeamMember, RoleAdmin}
}
