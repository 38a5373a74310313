// Пакет server — HTTP-серверы Account Provisioner и Notification Dispatcher
// с graceful shutdown.
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
	chimw "github.com/go-chi/chi/v5/middleware"

	apierrors "github.com/solescopeai/site-backend/internal/api/errors"
	"github.com/solescopeai/site-backend/internal/api/handlers"
	"github.com/solescopeai/site-backend/internal/api/middleware"
	"github.com/solescopeai/site-backend/internal/config"
)

// Пути эндпоинтов.
const (
	ManageUsersPath = "/functions/v1/manage-users"
	SendEmailPath   = "/functions/v1/send-email"
)

// errorWriter — формат ответа с ошибкой для 404/405 конкретного сервиса.
type errorWriter func(w http.ResponseWriter, statusCode int, message string)

// Server — HTTP-сервер сервиса.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.ServerConfig
}

// NewProvisioning создаёт сервер Account Provisioner.
// jwtAuth — JWT middleware (может быть nil для тестирования без auth).
func NewProvisioning(
	cfg *config.ServerConfig,
	logger *slog.Logger,
	health *handlers.HealthHandler,
	apiDoc http.Handler,
	handler *handlers.ProvisioningHandler,
	jwtAuth *middleware.JWTAuth,
) *Server {
	router := newRouter(logger, jwtAuth, apierrors.WriteError)
	mountCommon(router, health, apiDoc)
	router.Post(ManageUsersPath, handler.ManageUsers)

	return newServer(cfg, logger, router)
}

// NewNotify создаёт сервер Notification Dispatcher.
// Вызывающий не аутентифицируется: формы сайта публичные.
func NewNotify(
	cfg *config.ServerConfig,
	logger *slog.Logger,
	health *handlers.HealthHandler,
	apiDoc http.Handler,
	handler *handlers.NotifyHandler,
) *Server {
	router := newRouter(logger, nil, apierrors.WriteNotifyError)
	mountCommon(router, health, apiDoc)
	router.Post(SendEmailPath, handler.SendEmail)

	return newServer(cfg, logger, router)
}

// newRouter создаёт chi-роутер с глобальными middleware.
func newRouter(logger *slog.Logger, jwtAuth *middleware.JWTAuth, writeError errorWriter) chi.Router {
	router := chi.NewRouter()

	// Глобальные middleware (применяются ко ВСЕМ маршрутам)
	router.Use(chimw.RealIP)
	router.Use(chimw.Recoverer)
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.CORS())

	// JWT middleware с исключениями для публичных endpoints.
	// Health и metrics проверяются Kubernetes напрямую, без API Gateway.
	if jwtAuth != nil {
		router.Use(jwtAuthWithExclusions(jwtAuth, "/health/", "/metrics", "/openapi.json"))
	}

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	return router
}

// mountCommon регистрирует health, metrics и OpenAPI.
func mountCommon(router chi.Router, health *handlers.HealthHandler, apiDoc http.Handler) {
	router.Get("/health/live", health.HealthLive)
	router.Get("/health/ready", health.HealthReady)
	router.Get("/metrics", health.GetMetrics)
	if apiDoc != nil {
		router.Method(http.MethodGet, "/openapi.json", apiDoc)
	}
}

func newServer(cfg *config.ServerConfig, logger *slog.Logger, router http.Handler) *Server {
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

// Handler возвращает корневой обработчик (используется в тестах).
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// jwtAuthWithExclusions оборачивает JWTAuth.Middleware(), пропуская указанные пути.
// Запросы к путям, начинающимся с любого из excludePrefixes, проходят без JWT.
func jwtAuthWithExclusions(jwtAuth *middleware.JWTAuth, excludePrefixes ...string) func(http.Handler) http.Handler {
	jwtMiddleware := jwtAuth.Middleware()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, prefix := range excludePrefixes {
				if strings.HasPrefix(r.URL.Path, prefix) {
					next.ServeHTTP(w, r)
					return
				}
			}

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

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}
