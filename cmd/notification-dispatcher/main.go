// Точка входа Notification Dispatcher — отправка писем владельцу сайта
// с контактной формы, формы запроса предложения и подписки на рассылку.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/solescopeai/site-backend/internal/api/handlers"
	"github.com/solescopeai/site-backend/internal/api/openapi"
	"github.com/solescopeai/site-backend/internal/config"
	"github.com/solescopeai/site-backend/internal/mailer"
	"github.com/solescopeai/site-backend/internal/server"
	"github.com/solescopeai/site-backend/internal/service"
	"github.com/solescopeai/site-backend/internal/telemetry"
)

const serviceName = "notification-dispatcher"

func main() {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.LoadNotify()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(&cfg.Server)
	logger.Info("Notification Dispatcher запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Server.Port),
	)

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

	// 4. Клиент почтового API
	mailClient := mailer.New(cfg.MailAPIURL, cfg.MailAPIKey, cfg.MailTimeout, logger)
	logger.Info("Почтовый клиент создан",
		slog.String("url", cfg.MailAPIURL),
		slog.Int("recipients", len(cfg.MailTo)),
	)

	// 5. Ограничение частоты отправок
	throttle := service.NewThrottle(cfg.RateLimit, cfg.RateWindow, cfg.RateCacheSize)
	if cfg.RateLimit <= 0 {
		logger.Warn("Ограничение частоты отправок выключено")
	}

	// 6. Services
	notificationSvc := service.NewNotificationService(mailClient, cfg.MailFrom, cfg.MailTo, throttle, logger)

	// 7. topologymetrics — мониторинг почтового API
	dephealthSvc, dephealthErr := service.NewNotifierDephealth(
		serviceName,
		cfg.Server.DephealthGroup,
		cfg.MailAPIURL,
		cfg.Server.DephealthCheckInterval,
		logger,
	)
	if dephealthErr != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", dephealthErr.Error()),
		)
	} else if startErr := dephealthSvc.Start(ctx); startErr != nil {
		logger.Warn("Ошибка запуска topologymetrics", slog.String("error", startErr.Error()))
	}

	// 8. Health и OpenAPI
	healthHandler := handlers.NewHealthHandler(serviceName,
		handlers.Dependency{Name: "mail_api", Checker: mailClient},
	)
	doc, err := openapi.Load(openapi.NotifySpec)
	if err != nil {
		logger.Error("Ошибка загрузки OpenAPI", slog.String("error", err.Error()))
		os.Exit(1)
	}
	apiDoc, err := openapi.Handler(doc)
	if err != nil {
		logger.Error("Ошибка подготовки OpenAPI", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 9. Создание и запуск HTTP-сервера
	srv := server.NewNotify(&cfg.Server, logger,
		healthHandler,
		apiDoc,
		handlers.NewNotifyHandler(notificationSvc, logger),
	)
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if dephealthSvc != nil {
		dephealthSvc.Stop()
	}

	logger.Info("Notification Dispatcher остановлен")
}
