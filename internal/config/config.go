// Пакет config — загрузка и валидация конфигурации StaffDesk Admin Module
// из переменных окружения.
//
// Переменные фичефлагов (SD_FEATURE_*) здесь сознательно НЕ загружаются:
// они читаются при каждой оценке через rollout.Env, чтобы тесты могли
// подставлять детерминированные значения без мутации окружения процесса.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Config содержит все параметры конфигурации StaffDesk Admin Module.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// --- PostgreSQL ---

	// Хост PostgreSQL
	DBHost string
	// Порт PostgreSQL
	DBPort int
	// Имя базы данных
	DBName string
	// Имя пользователя PostgreSQL
	DBUser string
	// Пароль пользователя PostgreSQL
	DBPassword string
	// Режим SSL: disable, require, verify-ca, verify-full
	DBSSLMode string

	// --- Identity Provider (OIDC) ---

	// URL IdP (например, https://idp.example.com)
	IdPURL string
	// Имя realm в IdP
	IdPRealm string
	// Issuer JWT (авто-вычисляется из IdPURL, если не задан)
	JWTIssuer string
	// URL JWKS endpoint (авто-вычисляется из IdPURL, если не задан)
	JWTJWKSURL string
	// Допустимое отклонение времени при проверке JWT
	JWTLeeway time.Duration

	// --- Мониторинг зависимостей ---

	// Имя группы в метриках topologymetrics
	DephealthGroup string
	// Интервал проверки зависимостей topologymetrics
	DephealthCheckInterval time.Duration

	// --- UI ---

	// Размер кэша вердиктов feature switch (записей)
	UIVerdictCacheSize int

	// --- Graceful shutdown ---

	// Таймаут graceful shutdown HTTP-сервера
	ShutdownTimeout time.Duration
}

// Load загружает конфигурацию из переменных окружения, валидирует
// обязательные поля и возвращает Config или ошибку.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// --- Сервер ---

	// SD_PORT — порт HTTP-сервера (по умолчанию 8080)
	cfg.Port, err = getEnvInt("SD_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("SD_PORT: %w", err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("SD_PORT: значение %d вне допустимого диапазона 1-65535", cfg.Port)
	}

	// SD_LOG_LEVEL — уровень логирования (по умолчанию info)
	cfg.LogLevel, err = parseLogLevel(getEnvDefault("SD_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("SD_LOG_LEVEL: %w", err)
	}

	// SD_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("SD_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("SD_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	// --- PostgreSQL ---

	// SD_DB_HOST — обязательный
	cfg.DBHost, err = getEnvRequired("SD_DB_HOST")
	if err != nil {
		return nil, err
	}

	// SD_DB_PORT — порт PostgreSQL (по умолчанию 5432)
	cfg.DBPort, err = getEnvInt("SD_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("SD_DB_PORT: %w", err)
	}

	// SD_DB_NAME — обязательный
	cfg.DBName, err = getEnvRequired("SD_DB_NAME")
	if err != nil {
		return nil, err
	}

	// SD_DB_USER — обязательный
	cfg.DBUser, err = getEnvRequired("SD_DB_USER")
	if err != nil {
		return nil, err
	}

	// SD_DB_PASSWORD — обязательный
	cfg.DBPassword, err = getEnvRequired("SD_DB_PASSWORD")
	if err != nil {
		return nil, err
	}

	// SD_DB_SSL_MODE — режим SSL (по умолчанию disable)
	cfg.DBSSLMode = getEnvDefault("SD_DB_SSL_MODE", "disable")
	validSSLModes := map[string]bool{
		"disable": true, "require": true, "verify-ca": true, "verify-full": true,
	}
	if !validSSLModes[cfg.DBSSLMode] {
		return nil, fmt.Errorf("SD_DB_SSL_MODE: недопустимое значение %q, допустимые: disable, require, verify-ca, verify-full", cfg.DBSSLMode)
	}

	// --- Identity Provider ---

	// SD_IDP_URL — обязательный
	cfg.IdPURL, err = getEnvRequired("SD_IDP_URL")
	if err != nil {
		return nil, err
	}
	// Убираем trailing slash
	cfg.IdPURL = strings.TrimRight(cfg.IdPURL, "/")

	// SD_IDP_REALM — realm (по умолчанию staffdesk)
	cfg.IdPRealm = getEnvDefault("SD_IDP_REALM", "staffdesk")

	// SD_JWT_ISSUER — авто-вычисляется из IdPURL, если не задан
	cfg.JWTIssuer = getEnvDefault("SD_JWT_ISSUER",
		fmt.Sprintf("%s/realms/%s", cfg.IdPURL, cfg.IdPRealm))

	// SD_JWT_JWKS_URL — авто-вычисляется из IdPURL, если не задан
	cfg.JWTJWKSURL = getEnvDefault("SD_JWT_JWKS_URL",
		fmt.Sprintf("%s/realms/%s/protocol/openid-connect/certs", cfg.IdPURL, cfg.IdPRealm))

	// SD_JWT_LEEWAY — допуск времени при валидации JWT (по умолчанию 30s)
	cfg.JWTLeeway, err = getEnvDuration("SD_JWT_LEEWAY", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("SD_JWT_LEEWAY: %w", err)
	}

	// --- Мониторинг зависимостей ---

	// SD_DEPHEALTH_GROUP — группа topologymetrics (по умолчанию staffdesk)
	cfg.DephealthGroup = getEnvDefault("SD_DEPHEALTH_GROUP", "staffdesk")

	// SD_DEPHEALTH_CHECK_INTERVAL — интервал проверки зависимостей (по умолчанию 15s)
	cfg.DephealthCheckInterval, err = getEnvDuration("SD_DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("SD_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}

	// --- UI ---

	// SD_UI_VERDICT_CACHE_SIZE — размер LRU-кэша вердиктов (по умолчанию 4096)
	cfg.UIVerdictCacheSize, err = getEnvInt("SD_UI_VERDICT_CACHE_SIZE", 4096)
	if err != nil {
		return nil, fmt.Errorf("SD_UI_VERDICT_CACHE_SIZE: %w", err)
	}
	if cfg.UIVerdictCacheSize < 1 {
		return nil, fmt.Errorf("SD_UI_VERDICT_CACHE_SIZE: значение %d должно быть положительным", cfg.UIVerdictCacheSize)
	}

	// --- Graceful shutdown ---

	// SD_SHUTDOWN_TIMEOUT — таймаут graceful shutdown (по умолчанию 5s)
	cfg.ShutdownTimeout, err = getEnvDuration("SD_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("SD_SHUTDOWN_TIMEOUT: %w", err)
	}

	return cfg, nil
}

// DatabaseDSN возвращает строку подключения к PostgreSQL.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword, c.DBSSLMode,
	)
}

// DatabaseURL возвращает URL подключения к PostgreSQL (для метрик/лейблов).
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf(
		"postgres://%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 15m)", val)
	}
	return d, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}
