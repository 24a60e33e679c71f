// Пакет featureswitch — выбор интерфейса /admin/users по фичефлагу.
// Для каждого запроса решает, отдавать старую страницу или объединённую,
// по вердикту движка развёртывания. Вердикты мемоизируются в LRU-кэше,
// чтобы не пересобирать конфигурацию флага на каждый запрос одного
// и того же пользователя.
package featureswitch

import (
	"log/slog"
	"net/http"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/bigkaa/staffdesk/internal/api/middleware"
	"github.com/bigkaa/staffdesk/internal/domain/rollout"
)

// Decider — источник вердиктов фичефлага. Реализуется rollout.Engine.
type Decider interface {
	// Evaluate возвращает вердикт для пользователя.
	Evaluate(userID, role string) rollout.Verdict
}

// Switch — HTTP-переключатель между старым и объединённым интерфейсом.
type Switch struct {
	decider Decider
	cache   *lru.Cache[string, rollout.Verdict]
	legacy  http.Handler
	unified http.Handler
	logger  *slog.Logger
}

// New создаёт переключатель интерфейсов.
// cacheSize — ёмкость LRU-кэша вердиктов (SD_UI_VERDICT_CACHE_SIZE).
func New(decider Decider, legacy, unified http.Handler, cacheSize int, logger *slog.Logger) (*Switch, error) {
	cache, err := lru.New[string, rollout.Verdict](cacheSize)
	if err != nil {
		return nil, err
	}
	return &Switch{
		decider: decider,
		cache:   cache,
		legacy:  legacy,
		unified: unified,
		logger:  logger.With(slog.String("component", "featureswitch")),
	}, nil
}

// ServeHTTP выбирает интерфейс по вердикту фичефлага.
// Неаутентифицированный запрос получает старый интерфейс:
// без userID процентное развёртывание неопределимо.
func (s *Switch) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		s.legacy.ServeHTTP(w, r)
		return
	}

	verdict := s.verdictFor(claims.Subject, claims.Role)
	if verdict.Enabled {
		s.unified.ServeHTTP(w, r)
		return
	}
	s.legacy.ServeHTTP(w, r)
}

// verdictFor возвращает мемоизированный вердикт для пары пользователь/роль.
func (s *Switch) verdictFor(userID, role string) rollout.Verdict {
	key := userID + "\x00" + role
	if verdict, ok := s.cache.Get(key); ok {
		return verdict
	}

	verdict := s.decider.Evaluate(userID, role)
	s.cache.Add(key, verdict)

	s.logger.Debug("Вердикт фичефлага вычислен",
		slog.String("user_id", userID),
		slog.String("role", role),
		slog.Bool("enabled", verdict.Enabled),
	)
	return verdict
}

// Reset сбрасывает кэш вердиктов. Вызывается при изменении конфигурации
// фичефлага: мемоизированные вердикты считаются устаревшими.
func (s *Switch) Reset() {
	s.cache.Purge()
}
