// Пакет redirect — постоянные перенаправления со старых адресов админки
// на вкладки объединённой страницы /admin/users.
// Старые страницы удалены; закладки и внешние ссылки продолжают работать.
package redirect

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
)

// Rule — правило перенаправления: исходный путь → назначение с параметрами.
type Rule struct {
	// Source — старый путь.
	Source string
	// Destination — новый путь без query string.
	Destination string
	// Query — параметры, указывающие вкладку и фильтр на новой странице.
	Query url.Values
}

// Target возвращает полный URL назначения с закодированными параметрами.
// url.Values.Encode сортирует ключи — URL детерминирован.
func (r Rule) Target() string {
	if len(r.Query) == 0 {
		return r.Destination
	}
	return r.Destination + "?" + r.Query.Encode()
}

// Rules возвращает таблицу перенаправлений удалённых страниц админки.
func Rules() []Rule {
	return []Rule{
		{
			Source:      "/admin/permissions",
			Destination: "/admin/users",
			Query:       url.Values{"tab": {"rbac"}},
		},
		{
			Source:      "/admin/roles",
			Destination: "/admin/users",
			Query:       url.Values{"tab": {"rbac"}},
		},
		{
			Source:      "/admin/clients",
			Destination: "/admin/users",
			Query:       url.Values{"tab": {"dashboard"}, "role": {"CLIENT"}},
		},
		{
			Source:      "/admin/team",
			Destination: "/admin/users",
			Query:       url.Values{"tab": {"dashboard"}, "role": {"TEAM_MEMBER"}},
		},
	}
}

// Handler возвращает обработчик постоянного перенаправления по правилу.
// 308 Permanent Redirect — метод запроса сохраняется.
func Handler(rule Rule) http.HandlerFunc {
	target := rule.Target()
	return func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, target, http.StatusPermanentRedirect)
	}
}

// Mount регистрирует все правила перенаправления на роутере.
func Mount(router chi.Router) {
	for _, rule := range Rules() {
		router.Get(rule.Source, Handler(rule))
	}
}
