// Пакет config — загрузка и валидация конфигурации Account Provisioner
// и Notification Dispatcher из переменных окружения.
// Разбор переменных выполняет caarlos0/env, проверки диапазонов и
// производные значения вычисляются здесь же.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// ServerConfig — общие параметры HTTP-сервера, логирования и наблюдаемости.
type ServerConfig struct {
	// Порт HTTP-сервера
	Port int `env:"SB_PORT" envDefault:"8080"`
	// Уровень логирования (debug, info, warn, error)
	LogLevelName string `env:"SB_LOG_LEVEL" envDefault:"info"`
	// Формат логов (json, text)
	LogFormat string `env:"SB_LOG_FORMAT" envDefault:"json"`
	// Таймаут graceful shutdown HTTP-сервера
	ShutdownTimeout time.Duration `env:"SB_SHUTDOWN_TIMEOUT" envDefault:"5s"`

	// OTLP HTTP endpoint для трассировки (пусто — трассировка выключена)
	OTelEndpoint string `env:"SB_OTEL_ENDPOINT"`

	// Группа topologymetrics
	DephealthGroup string `env:"SB_DEPHEALTH_GROUP" envDefault:"site-backend"`
	// Интервал проверки зависимостей topologymetrics
	DephealthCheckInterval time.Duration `env:"SB_DEPHEALTH_CHECK_INTERVAL" envDefault:"15s"`

	// LogLevel вычисляется из LogLevelName.
	LogLevel slog.Level
}

// ProvisioningConfig — конфигурация Account Provisioner.
type ProvisioningConfig struct {
	Server ServerConfig

	// --- PostgreSQL (хранилище профилей) ---

	DBHost     string `env:"SB_DB_HOST,required"`
	DBPort     int    `env:"SB_DB_PORT" envDefault:"5432"`
	DBName     string `env:"SB_DB_NAME,required"`
	DBUser     string `env:"SB_DB_USER,required"`
	DBPassword string `env:"SB_DB_PASSWORD,required"`
	// Режим SSL: disable, require, verify-ca, verify-full
	DBSSLMode string `env:"SB_DB_SSL_MODE" envDefault:"disable"`

	// --- Keycloak ---

	// URL Keycloak (например, https://auth.example.com)
	KeycloakURL   string `env:"SB_KEYCLOAK_URL,required"`
	KeycloakRealm string `env:"SB_KEYCLOAK_REALM" envDefault:"site"`
	// Client ID и секрет service account с правами manage-users
	KeycloakClientID     string `env:"SB_KEYCLOAK_CLIENT_ID,required"`
	KeycloakClientSecret string `env:"SB_KEYCLOAK_CLIENT_SECRET,required"`

	// --- JWT вызывающего ---

	// Issuer JWT (авто-вычисляется из KeycloakURL, если не задан)
	JWTIssuer string `env:"SB_JWT_ISSUER"`
	// URL JWKS endpoint (авто-вычисляется из KeycloakURL, если не задан)
	JWTJWKSURL string `env:"SB_JWT_JWKS_URL"`
	// Допустимое отклонение часов при проверке exp/nbf
	JWTLeeway time.Duration `env:"SB_JWT_LEEWAY" envDefault:"5s"`
	// Интервал фонового обновления JWKS
	JWKSRefreshInterval time.Duration `env:"SB_JWKS_REFRESH_INTERVAL" envDefault:"15m"`

	// --- Provisioning ---

	// Токен для анонимных create_user / migrate_user (пусто — анонимный путь открыт)
	BootstrapToken string `env:"SB_BOOTSTRAP_TOKEN"`
	// Таймаут компенсирующего удаления identity
	CompensationTimeout time.Duration `env:"SB_COMPENSATION_TIMEOUT" envDefault:"10s"`
}

// NotifyConfig — конфигурация Notification Dispatcher.
type NotifyConfig struct {
	Server ServerConfig

	// --- Почтовый транспорт ---

	// Базовый URL HTTP API транспорта
	MailAPIURL string `env:"SB_MAIL_API_URL" envDefault:"https://api.resend.com"`
	// API-ключ транспорта (хранится только на сервере)
	MailAPIKey string `env:"SB_MAIL_API_KEY,required"`
	// Адрес отправителя, например "Site <noreply@example.com>"
	MailFrom string `env:"SB_MAIL_FROM,required"`
	// Получатели уведомлений о заявках (через запятую)
	MailTo []string `env:"SB_MAIL_TO,required" envSeparator:","`
	// Таймаут запроса к транспорту
	MailTimeout time.Duration `env:"SB_MAIL_TIMEOUT" envDefault:"15s"`

	// --- Ограничение частоты отправок ---

	// Максимум отправок с одного IP за окно (0 — без ограничения)
	RateLimit int `env:"SB_NOTIFY_RATE_LIMIT" envDefault:"5"`
	// Окно ограничения
	RateWindow time.Duration `env:"SB_NOTIFY_RATE_WINDOW" envDefault:"1m"`
	// Размер LRU-кэша счётчиков
	RateCacheSize int `env:"SB_NOTIFY_RATE_CACHE_SIZE" envDefault:"10000"`
}

// LoadProvisioning загружает конфигурацию Account Provisioner из переменных
// окружения, валидирует значения и возвращает ProvisioningConfig или ошибку.
func LoadProvisioning() (*ProvisioningConfig, error) {
	cfg := &ProvisioningConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("разбор переменных окружения: %w", err)
	}

	if err := cfg.Server.validate(); err != nil {
		return nil, err
	}

	validSSLModes := map[string]bool{
		"disable": true, "require": true, "verify-ca": true, "verify-full": true,
	}
	if !validSSLModes[cfg.DBSSLMode] {
		return nil, fmt.Errorf("SB_DB_SSL_MODE: недопустимое значение %q, допустимые: disable, require, verify-ca, verify-full", cfg.DBSSLMode)
	}
	if cfg.DBPort < 1 || cfg.DBPort > 65535 {
		return nil, fmt.Errorf("SB_DB_PORT: значение %d вне допустимого диапазона 1-65535", cfg.DBPort)
	}

	// Убираем trailing slash
	cfg.KeycloakURL = strings.TrimRight(cfg.KeycloakURL, "/")
	if _, err := url.ParseRequestURI(cfg.KeycloakURL); err != nil {
		return nil, fmt.Errorf("SB_KEYCLOAK_URL: некорректный URL %q", cfg.KeycloakURL)
	}

	if cfg.JWTIssuer == "" {
		cfg.JWTIssuer = fmt.Sprintf("%s/realms/%s", cfg.KeycloakURL, cfg.KeycloakRealm)
	}
	if cfg.JWTJWKSURL == "" {
		cfg.JWTJWKSURL = fmt.Sprintf("%s/realms/%s/protocol/openid-connect/certs", cfg.KeycloakURL, cfg.KeycloakRealm)
	}

	if cfg.CompensationTimeout <= 0 {
		return nil, fmt.Errorf("SB_COMPENSATION_TIMEOUT: должен быть больше нуля")
	}

	return cfg, nil
}

// LoadNotify загружает конфигурацию Notification Dispatcher.
func LoadNotify() (*NotifyConfig, error) {
	cfg := &NotifyConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("разбор переменных окружения: %w", err)
	}

	if err := cfg.Server.validate(); err != nil {
		return nil, err
	}

	cfg.MailAPIURL = strings.TrimRight(cfg.MailAPIURL, "/")
	if _, err := url.ParseRequestURI(cfg.MailAPIURL); err != nil {
		return nil, fmt.Errorf("SB_MAIL_API_URL: некорректный URL %q", cfg.MailAPIURL)
	}

	cfg.MailTo = trimList(cfg.MailTo)
	if len(cfg.MailTo) == 0 {
		return nil, fmt.Errorf("SB_MAIL_TO: не задан ни один получатель")
	}

	if cfg.RateLimit < 0 {
		return nil, fmt.Errorf("SB_NOTIFY_RATE_LIMIT: значение %d не может быть отрицательным", cfg.RateLimit)
	}
	if cfg.RateLimit > 0 && cfg.RateWindow <= 0 {
		return nil, fmt.Errorf("SB_NOTIFY_RATE_WINDOW: должно быть больше нуля при включённом ограничении")
	}
	if cfg.RateCacheSize < 1 {
		return nil, fmt.Errorf("SB_NOTIFY_RATE_CACHE_SIZE: значение %d должно быть положительным", cfg.RateCacheSize)
	}

	return cfg, nil
}

// validate проверяет общие параметры сервера и вычисляет LogLevel.
func (s *ServerConfig) validate() error {
	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("SB_PORT: значение %d вне допустимого диапазона 1-65535", s.Port)
	}

	level, err := parseLogLevel(s.LogLevelName)
	if err != nil {
		return fmt.Errorf("SB_LOG_LEVEL: %w", err)
	}
	s.LogLevel = level

	if s.LogFormat != "json" && s.LogFormat != "text" {
		return fmt.Errorf("SB_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", s.LogFormat)
	}

	if s.OTelEndpoint != "" {
		if _, err := url.ParseRequestURI(s.OTelEndpoint); err != nil {
			return fmt.Errorf("SB_OTEL_ENDPOINT: некорректный URL %q", s.OTelEndpoint)
		}
	}
	return nil
}

// DatabaseDSN возвращает строку подключения к PostgreSQL.
func (c *ProvisioningConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword, c.DBSSLMode,
	)
}

// DatabaseURL возвращает URL PostgreSQL в формате pgx5:// для golang-migrate.
func (c *ProvisioningConfig) DatabaseURL() string {
	u := url.URL{
		Scheme:   "pgx5",
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     fmt.Sprintf("%s:%d", c.DBHost, c.DBPort),
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=" + c.DBSSLMode,
	}
	return u.String()
}

// DatabaseEndpoint возвращает postgres://host:port/db без учётных данных.
// Используется в лейблах метрик topologymetrics.
func (c *ProvisioningConfig) DatabaseEndpoint() string {
	return fmt.Sprintf("postgres://%s:%d/%s", c.DBHost, c.DBPort, c.DBName)
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *ServerConfig) *slog.Logger {
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

// trimList убирает пробелы вокруг элементов и пустые элементы.
func trimList(items []string) []string {
	result := make([]string, 0, len(items))
	for _, p := range items {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
