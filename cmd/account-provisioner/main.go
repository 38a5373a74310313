// Точка входа Account Provisioner — создание, миграция и удаление
// учётных записей сайта. Загружает конфигурацию, применяет миграции,
// подключается к PostgreSQL, создаёт клиент Keycloak Admin API,
// сервисный слой и HTTP-сервер с JWT middleware и graceful shutdown.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/stdlib"

	"github.com/solescopeai/site-backend/internal/api/handlers"
	"github.com/solescopeai/site-backend/internal/api/middleware"
	"github.com/solescopeai/site-backend/internal/api/openapi"
	"github.com/solescopeai/site-backend/internal/config"
	"github.com/solescopeai/site-backend/internal/database"
	"github.com/solescopeai/site-backend/internal/keycloak"
	"github.com/solescopeai/site-backend/internal/repository"
	"github.com/solescopeai/site-backend/internal/server"
	"github.com/solescopeai/site-backend/internal/service"
	"github.com/solescopeai/site-backend/internal/telemetry"
)

const serviceName = "account-provisioner"

func main() {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.LoadProvisioning()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(&cfg.Server)
	logger.Info("Account Provisioner запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Server.Port),
	)

	if cfg.BootstrapToken == "" {
		logger.Warn("SB_BOOTSTRAP_TOKEN не задан, анонимные create_user и migrate_user разрешены")
	}

	// 3. Трассировка
	ctx := context.Background()
	shutdownTracing, err := telemetry.Setup(ctx, serviceName, cfg.Server.OTelEndpoint)
	if err != nil {
		logger.Error("Ошибка инициализации трассировки", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn("Ошибка остановки трассировки", slog.String("error", err.Error()))
		}
	}()

	// 4. Применение миграций БД
	logger.Info("Применение миграций БД...")
	if err := database.Migrate(cfg, logger); err != nil {
		logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 5. Подключение к PostgreSQL (pgxpool)
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	// 5.1 Адаптер pgxpool → *sql.DB для topologymetrics (connection pool mode)
	pgDB := stdlib.OpenDBFromPool(pool)
	defer pgDB.Close()

	// 6. Keycloak Admin API клиент
	kcClient := keycloak.New(
		cfg.KeycloakURL,
		cfg.KeycloakRealm,
		cfg.KeycloakClientID,
		cfg.KeycloakClientSecret,
		nil, // стандартный пул CA
		logger,
	)
	logger.Info("Keycloak клиент создан",
		slog.String("url", cfg.KeycloakURL),
		slog.String("realm", cfg.KeycloakRealm),
	)

	// 7. JWT middleware
	jwtAuth, err := middleware.NewJWTAuth(
		cfg.JWTJWKSURL,
		cfg.JWTIssuer,
		cfg.JWKSRefreshInterval,
		cfg.JWTLeeway,
		logger,
	)
	if err != nil {
		logger.Error("Ошибка создания JWT middleware", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("JWT middleware инициализирован",
		slog.String("jwks_url", cfg.JWTJWKSURL),
		slog.String("issuer", cfg.JWTIssuer),
	)

	// 8. Repositories
	adminRepo := repository.NewAdminProfileRepository(pool)
	clientRepo := repository.NewClientProfileRepository(pool)

	// 9. Services
	provisioningSvc := service.NewProvisioningService(
		kcClient, adminRepo, clientRepo,
		cfg.BootstrapToken,
		cfg.CompensationTimeout,
		logger,
	)

	// 10. topologymetrics — мониторинг зависимостей (PostgreSQL + Keycloak)
	dephealthSvc, dephealthErr := service.NewProvisionerDephealth(
		serviceName,
		cfg.Server.DephealthGroup,
		pgDB,
		cfg.DatabaseURL(),
		cfg.JWTJWKSURL,
		cfg.Server.DephealthCheckInterval,
		logger,
	)
	if dephealthErr != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", dephealthErr.Error()),
		)
	} else if startErr := dephealthSvc.Start(ctx); startErr != nil {
		logger.Warn("Ошибка запуска topologymetrics", slog.String("error", startErr.Error()))
	} else {
		logger.Info("topologymetrics запущен",
			slog.String("group", cfg.Server.DephealthGroup),
			slog.String("check_interval", cfg.Server.DephealthCheckInterval.String()),
		)
	}

	// 11. Health и OpenAPI
	healthHandler := handlers.NewHealthHandler(serviceName,
		handlers.Dependency{Name: "postgresql", Checker: database.NewReadinessChecker(pool)},
		handlers.Dependency{Name: "keycloak", Checker: kcClient},
	)
	doc, err := openapi.Load(openapi.ProvisioningSpec)
	if err != nil {
		logger.Error("Ошибка загрузки OpenAPI", slog.String("error", err.Error()))
		os.Exit(1)
	}
	apiDoc, err := openapi.Handler(doc)
	if err != nil {
		logger.Error("Ошибка подготовки OpenAPI", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 12. Создание и запуск HTTP-сервера
	srv := server.NewProvisioning(&cfg.Server, logger,
		healthHandler,
		apiDoc,
		handlers.NewProvisioningHandler(provisioningSvc, logger),
		jwtAuth,
	)
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 13. Остановка фоновых задач
	if dephealthSvc != nil {
		dephealthSvc.Stop()
	}

	logger.Info("Account Provisioner остановлен")
}
