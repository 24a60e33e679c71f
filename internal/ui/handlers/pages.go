// Пакет handlers — обработчики страниц админки StaffDesk.
// pages.go — раздача встроенных HTML-оболочек /admin/users.
package handlers

import (
	"log/slog"
	"net/http"

	"github.com/bigkaa/staffdesk/internal/ui/static"
)

// PageHandler — обработчик одной встроенной страницы.
// Страница читается из embed.FS при создании; ошибка чтения — при старте,
// а не на запросе.
type PageHandler struct {
	body []byte
}

// NewPageHandler создаёт обработчик страницы name из встроенных ресурсов.
func NewPageHandler(name string, logger *slog.Logger) (*PageHandler, error) {
	body, err := static.Page(name)
	if err != nil {
		return nil, err
	}
	logger.Debug("Страница админки загружена",
		slog.String("page", name),
		slog.Int("bytes", len(body)),
	)
	return &PageHandler{body: body}, nil
}

// ServeHTTP отдаёт страницу.
func (p *PageHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(p.body)
}

// LegacyUsersPage возвращает обработчик старой страницы пользователей.
func LegacyUsersPage(logger *slog.Logger) (*PageHandler, error) {
	return NewPageHandler("legacy.html", logger)
}

// UnifiedUsersPage возвращает обработчик объединённой страницы пользователей.
func UnifiedUsersPage(logger *slog.Logger) (*PageHandler, error) {
	return NewPageHandler("unified.html", logger)
}
