// Пакет server — HTTP-сервер StaffDesk с graceful shutdown.
// Без TLS — HTTP внутри кластера, TLS termination на API Gateway.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bigkaa/staffdesk/internal/api/handlers"
	"github.com/bigkaa/staffdesk/internal/api/middleware"
	"github.com/bigkaa/staffdesk/internal/api/redirect"
	"github.com/bigkaa/staffdesk/internal/config"
	"github.com/bigkaa/staffdesk/internal/domain/rbac"
)

// Server — HTTP-сервер StaffDesk.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.Config
}

// New создаёт HTTP-сервер с настроенными routes и middleware.
// handler — обработчик API; usersUI — переключатель интерфейсов /admin/users.
// jwtAuth — JWT middleware (может быть nil для тестирования без auth).
func New(
	cfg *config.Config,
	logger *slog.Logger,
	handler *handlers.APIHandler,
	usersUI http.Handler,
	jwtAuth *middleware.JWTAuth,
) *Server {
	router := chi.NewRouter()

	// Глобальные middleware (применяются ко ВСЕМ маршрутам)
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.RequestLogger(logger))

	// JWT middleware с исключениями для публичных endpoints.
	// Health и metrics проверяются Kubernetes напрямую, без API Gateway.
	// Старые адреса админки — чистые 308 перенаправления, доступны без токена:
	// браузер должен добраться до /admin/users, где и произойдёт аутентификация.
	if jwtAuth != nil {
		router.Use(jwtAuthWithExclusions(jwtAuth,
			"/health/", "/metrics",
			"/admin/permissions", "/admin/roles", "/admin/clients", "/admin/team",
		))
	}

	// Health и метрики
	router.Get("/health/live", handler.HealthLive)
	router.Get("/health/ready", handler.HealthReady)
	router.Get("/metrics", handler.GetMetrics)

	// Перенаправления удалённых страниц админки
	redirect.Mount(router)

	// Страница пользователей: фичефлаг выбирает старый или объединённый интерфейс
	router.Get("/admin/users", usersUI.ServeHTTP)

	// Объединённый каталог. Чтение — любая роль организации,
	// мутации — только ADMIN.
	router.Route("/api/v1/users", func(r chi.Router) {
		r.Get("/", handler.ListUsers)
		r.Get("/{id}", handler.GetUser)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(rbac.RoleAdmin))
			r.Post("/", handler.CreateUser)
			r.Patch("/{id}", handler.UpdateUser)
			r.Put("/{id}", handler.UpdateUser)
			r.Delete("/{id}", handler.DeleteUser)
		})
	})

	// Устаревшие представления каталога, с заголовками Deprecation.
	// Та же модель доступа, что и у /api/v1/users: чтение — любая роль,
	// мутации — только ADMIN.
	router.Route("/api/v1/clients", func(r chi.Router) {
		r.Use(middleware.Deprecation("/api/v1/users?role=CLIENT"))
		r.Get("/", handler.ListClients)
		r.Get("/{id}", handler.GetClient)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(rbac.RoleAdmin))
			r.Patch("/{id}", handler.UpdateClient)
			r.Put("/{id}", handler.UpdateClient)
			r.Delete("/{id}", handler.DeleteClient)
		})
	})
	router.Route("/api/v1/team-members", func(r chi.Router) {
		r.Use(middleware.Deprecation("/api/v1/users?role=TEAM_MEMBER"))
		r.Get("/", handler.ListTeamMembers)
		r.Get("/{id}", handler.GetTeamMember)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(rbac.RoleAdmin))
			r.Patch("/{id}", handler.UpdateTeamMember)
			r.Put("/{id}", handler.UpdateTeamMember)
			r.Delete("/{id}", handler.DeleteTeamMember)
		})
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
		cfg:        cfg,
	}
}

// jwtAuthWithExclusions оборачивает JWTAuth.Middleware(), пропуская указанные пути.
// Запросы к путям, начинающимся с любого из excludePrefixes, проходят без JWT.
func jwtAuthWithExclusions(jwtAuth *middleware.JWTAuth, excludePrefixes ...string) func(http.Handler) http.Handler {
	jwtMiddleware := jwtAuth.Middleware()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Проверяем, начинается ли путь с исключённого префикса
			for _, prefix := range excludePrefixes {
				if strings.HasPrefix(r.URL.Path, prefix) {
					next.ServeHTTP(w, r)
					return
				}
			}

			// Применяем JWT middleware
			jwtMiddleware(next).ServeHTTP(w, r)
		})
	}
}

// Run запускает сервер и ожидает сигнала завершения (SIGINT, SIGTERM).
// При получении сигнала выполняется graceful shutdown.
func (s *Server) Run() error {
	// Канал для ошибок сервера
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP-сервер запущен",
			slog.String("addr", s.httpServer.Addr),
		)

		err := s.httpServer.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		s.logger.Info("Получен сигнал завершения", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
	}

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}
