// Пакет static — встроенные страницы админки StaffDesk.
// HTML-оболочки встраиваются в бинарник через //go:embed;
// данные страницы загружают с /api/v1 на клиенте.
package static

import (
	"embed"
	"io/fs"
)

// content — встроенная файловая система со страницами админки.
//
//go:embed html/*.html
var content embed.FS

// FS возвращает fs.FS для доступа к встроенным страницам.
func FS() fs.FS {
	return content
}

// Page возвращает содержимое страницы по имени файла (без пути).
func Page(name string) ([]byte, error) {
	return content.ReadFile("html/" + name)
}
