// dephealth.go — интеграция с topologymetrics SDK для мониторинга зависимостей.
//
// account-provisioner мониторит:
//   - PostgreSQL — SQL checker через существующий pgxpool (connection pool mode, critical)
//   - Keycloak — HTTP checker к JWKS endpoint (critical)
//
// notification-dispatcher мониторит:
//   - почтовый API — HTTP checker (non-critical: отказ не блокирует приём запросов)
//
// Метрики доступны на /metrics вместе с остальными Prometheus-метриками:
//   - app_dependency_health — состояние зависимости (1 = ok, 0 = fail)
//   - app_dependency_latency_seconds — задержка проверки
package service

import (
	"context"
	"database/sql"
	"log/slog"
	"net/url"
	"time"

	"github.com/BigKAA/topologymetrics/sdk-go/dephealth"
	_ "github.com/BigKAA/topologymetrics/sdk-go/dephealth/checks/httpcheck" // HTTP checker для Keycloak и почтового API
	"github.com/BigKAA/topologymetrics/sdk-go/dephealth/checks/pgcheck"     // PostgreSQL checker (pool mode)
	"github.com/prometheus/client_golang/prometheus"
)

// DephealthService — сервис мониторинга зависимостей через topologymetrics.
type DephealthService struct {
	dh     *dephealth.DepHealth
	deps   string
	logger *slog.Logger
}

// NewProvisionerDephealth создаёт мониторинг зависимостей account-provisioner.
// Метрики регистрируются в глобальном Prometheus registry.
//
// Параметры:
//   - serviceID — имя вершины графа текущего приложения
//   - group — имя группы в метриках (SB_DEPHEALTH_GROUP)
//   - db — *sql.DB, полученный из pgxpool через stdlib.OpenDBFromPool()
//   - pgConnURL — URL PostgreSQL (для метрик/лейблов, не для подключения)
//   - keycloakJWKSURL — URL JWKS endpoint Keycloak
func NewProvisionerDephealth(
	serviceID string,
	group string,
	db *sql.DB,
	pgConnURL string,
	keycloakJWKSURL string,
	checkInterval time.Duration,
	logger *slog.Logger,
	extraOpts ...dephealth.Option,
) (*DephealthService, error) {
	opts := []dephealth.Option{
		dephealth.WithLogger(logger),
		dephealth.AddDependency("postgresql", dephealth.TypePostgres,
			pgcheck.New(pgcheck.WithDB(db)),
			dephealth.FromURL(pgConnURL),
			dephealth.CheckInterval(checkInterval),
			dephealth.Critical(true),
		),
		// Путь JWKS подтверждает доступность realm; /health у Keycloak только на management-порту
		dephealth.HTTP("keycloak-jwks", httpDepOpts(keycloakJWKSURL, checkInterval, true)...),
	}
	return newDephealthService(serviceID, group, "PostgreSQL + Keycloak", logger, append(opts, extraOpts...))
}

// NewNotifierDephealth создаёт мониторинг зависимостей notification-dispatcher.
func NewNotifierDephealth(
	serviceID string,
	group string,
	mailAPIURL string,
	checkInterval time.Duration,
	logger *slog.Logger,
	extraOpts ...dephealth.Option,
) (*DephealthService, error) {
	opts := []dephealth.Option{
		dephealth.WithLogger(logger),
		dephealth.HTTP("mail-api", httpDepOpts(mailAPIURL, checkInterval, false)...),
	}
	return newDephealthService(serviceID, group, "почтовый API", logger, append(opts, extraOpts...))
}

// WithRegisterer возвращает опцию регистрации метрик в указанном registerer.
// Используется в тестах для изоляции метрик.
func WithRegisterer(registerer prometheus.Registerer) dephealth.Option {
	return dephealth.WithRegisterer(registerer)
}

// httpDepOpts — опции HTTP-зависимости. Путь проверки берётся из URL.
func httpDepOpts(endpoint string, checkInterval time.Duration, critical bool) []dephealth.DependencyOption {
	healthPath := "/"
	parsed, err := url.Parse(endpoint)
	if err == nil && parsed.Path != "" {
		healthPath = parsed.Path
	}

	opts := []dephealth.DependencyOption{
		dephealth.FromURL(endpoint),
		dephealth.WithHTTPHealthPath(healthPath),
		dephealth.CheckInterval(checkInterval),
		dephealth.Critical(critical),
	}
	if err == nil && parsed.Scheme == "https" {
		opts = append(opts, dephealth.WithHTTPTLSSkipVerify(false))
	}
	return opts
}

func newDephealthService(serviceID, group, deps string, logger *slog.Logger, opts []dephealth.Option) (*DephealthService, error) {
	dh, err := dephealth.New(serviceID, group, opts...)
	if err != nil {
		return nil, err
	}

	return &DephealthService{
		dh:     dh,
		deps:   deps,
		logger: logger.With(slog.String("component", "dephealth")),
	}, nil
}

// Start запускает периодическую проверку зависимостей.
func (ds *DephealthService) Start(ctx context.Context) error {
	ds.logger.Info("Мониторинг зависимостей запущен", slog.String("dependencies", ds.deps))
	return ds.dh.Start(ctx)
}

// Stop останавливает мониторинг зависимостей.
func (ds *DephealthService) Stop() {
	ds.dh.Stop()
	ds.logger.Info("Мониторинг зависимостей остановлен")
}

// Health возвращает текущее состояние зависимостей.
// Ключ — имя зависимости, значение — true если ok.
func (ds *DephealthService) Health() map[string]bool {
	return ds.dh.Health()
}
