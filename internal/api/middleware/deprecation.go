// deprecation.go — middleware пометки устаревших API endpoints.
// Старые маршруты /api/v1/clients и /api/v1/team-members продолжают работать,
// но каждый ответ несёт заголовки о предстоящем отключении и адресе замены.
package middleware

import (
	"fmt"
	"net/http"
	"time"
)

// sunsetPeriod — срок жизни устаревшего endpoint с момента ответа.
const sunsetPeriod = 90 * 24 * time.Hour

// Deprecation возвращает middleware, помечающий все ответы маршрута
// как устаревшие. successor — путь endpoint-замены.
//
// Заголовки (RFC 8594):
//   - Deprecation: true
//   - Sunset: дата отключения (HTTP-date, UTC)
//   - Link: <successor>; rel="successor-version"
//   - Warning: 299 - "..."
//
// Заголовки выставляются до вызова следующего handler — попадают
// во все ответы, включая ошибки.
func Deprecation(successor string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sunset := time.Now().UTC().Add(sunsetPeriod)

			w.Header().Set("Deprecation", "true")
			w.Header().Set("Sunset", sunset.Format(http.TimeFormat))
			w.Header().Set("Link", fmt.Sprintf("<%s>; rel=\"successor-version\"", successor))
			w.Header().Set("Warning", fmt.Sprintf("299 - \"Этот endpoint устарел, используйте %s\"", successor))

			next.ServeHTTP(w, r)
		})
	}
}
