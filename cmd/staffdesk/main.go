// Точка входа StaffDesk — админка каталога пользователей.
// Загружает конфигурацию, подключается к PostgreSQL, применяет миграции,
// создаёт сервисный слой и API handlers, запускает мониторинг зависимостей
// (topologymetrics), HTTP-сервер с JWT middleware и graceful shutdown.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/stdlib"

	"github.com/bigkaa/staffdesk/internal/api/handlers"
	"github.com/bigkaa/staffdesk/internal/api/middleware"
	"github.com/bigkaa/staffdesk/internal/config"
	"github.com/bigkaa/staffdesk/internal/database"
	"github.com/bigkaa/staffdesk/internal/domain/rollout"
	"github.com/bigkaa/staffdesk/internal/repository"
	"github.com/bigkaa/staffdesk/internal/server"
	"github.com/bigkaa/staffdesk/internal/service"
	"github.com/bigkaa/staffdesk/internal/ui/featureswitch"
	uihandlers "github.com/bigkaa/staffdesk/internal/ui/handlers"
)

// idpReadinessTimeout — таймаут проверки доступности IdP в readiness probe.
const idpReadinessTimeout = 5 * time.Second

func main() {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("StaffDesk запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
	)

	// Предупреждения о дефолтных значениях topologymetrics
	if os.Getenv("SD_DEPHEALTH_GROUP") == "" {
		logger.Warn("SD_DEPHEALTH_GROUP не задана, используется значение по умолчанию",
			slog.String("default", cfg.DephealthGroup),
		)
	}

	// 3. Применение миграций БД
	logger.Info("Применение миграций БД...")
	if err := database.Migrate(cfg, logger); err != nil {
		logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Подключение к PostgreSQL (pgxpool)
	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	// 4.1 Адаптер pgxpool → *sql.DB для topologymetrics (connection pool mode).
	// Проверка здоровья PostgreSQL будет идти через существующий пул соединений,
	// что позволяет обнаружить его исчерпание.
	pgDB := stdlib.OpenDBFromPool(pool)
	defer pgDB.Close()

	// 5. Repositories
	userRepo := repository.NewUserRecordRepository(pool)

	// 6. Services
	usersSvc := service.NewUserDirectoryService(userRepo, logger)

	// 7. Readiness checkers (PostgreSQL + IdP)
	pgChecker := database.NewReadinessChecker(pool)
	idpChecker, err := middleware.NewIdPReadinessChecker(cfg.JWTJWKSURL, "", idpReadinessTimeout)
	if err != nil {
		logger.Error("Ошибка создания IdP readiness checker", slog.String("error", err.Error()))
		os.Exit(1)
	}
	healthHandler := handlers.NewHealthHandler(pgChecker, idpChecker)

	// 8. API handler
	apiHandler := handlers.NewAPIHandler(healthHandler, usersSvc, logger)

	// 9. JWT middleware
	jwtAuth, err := middleware.NewJWTAuth(
		cfg.JWTJWKSURL,
		"",
		cfg.JWTIssuer,
		cfg.JWTLeeway,
		logger,
	)
	if err != nil {
		logger.Error("Ошибка создания JWT middleware", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer jwtAuth.Close()
	logger.Info("JWT middleware инициализирован",
		slog.String("jwks_url", cfg.JWTJWKSURL),
		slog.String("issuer", cfg.JWTIssuer),
	)

	// 10. topologymetrics — мониторинг зависимостей (PostgreSQL + IdP)
	var dephealthSvc *service.DephealthService
	dephealthSvc, dephealthErr := service.NewDephealthService(
		"staffdesk",
		cfg.DephealthGroup,
		pgDB,
		cfg.DatabaseURL(),
		cfg.JWTJWKSURL,
		cfg.DephealthCheckInterval,
		logger,
	)
	if dephealthErr != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", dephealthErr.Error()),
		)
	} else {
		if startErr := dephealthSvc.Start(ctx); startErr != nil {
			logger.Warn("Ошибка запуска topologymetrics",
				slog.String("error", startErr.Error()),
			)
		} else {
			logger.Info("topologymetrics запущен",
				slog.String("group", cfg.DephealthGroup),
				slog.String("check_interval", cfg.DephealthCheckInterval.String()),
			)
		}
	}

	// 11. Страницы /admin/users: фичефлаг выбирает старый или объединённый интерфейс
	legacyPage, err := uihandlers.LegacyUsersPage(logger)
	if err != nil {
		logger.Error("Ошибка загрузки старой страницы пользователей", slog.String("error", err.Error()))
		os.Exit(1)
	}
	unifiedPage, err := uihandlers.UnifiedUsersPage(logger)
	if err != nil {
		logger.Error("Ошибка загрузки объединённой страницы пользователей", slog.String("error", err.Error()))
		os.Exit(1)
	}

	engine := rollout.NewEngine(nil) // nil — конфигурация из окружения процесса
	usersUI, err := featureswitch.New(engine, legacyPage, unifiedPage, cfg.UIVerdictCacheSize, logger)
	if err != nil {
		logger.Error("Ошибка создания переключателя интерфейсов", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 12. Создание и запуск HTTP-сервера
	srv := server.New(cfg, logger, apiHandler, usersUI, jwtAuth)
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 13. Остановка фоновых задач
	if dephealthSvc != nil {
		dephealthSvc.Stop()
	}

	logger.Info("StaffDesk остановлен")
}
