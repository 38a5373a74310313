package service

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Prometheus-метрики сервисного слоя.
var (
	provisioningRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sb_provisioning_requests_total",
		Help: "Количество запросов управления учётными записями по действию и результату.",
	}, []string{"action", "outcome"})

	provisioningAnonymousTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sb_provisioning_anonymous_requests_total",
		Help: "Количество анонимных вызовов create_user / migrate_user.",
	}, []string{"action"})

	compensationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sb_provisioning_compensations_total",
		Help: "Количество компенсирующих удалений identity по результату.",
	}, []string{"action", "result"})

	orphanedIdentitiesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sb_provisioning_orphaned_identities_total",
		Help: "Количество identity, оставшихся без профиля после неудачной компенсации.",
	})

	notificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sb_notifications_total",
		Help: "Количество запросов отправки уведомлений по типу и результату.",
	}, []string{"type", "outcome"})

	notifyThrottledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sb_notify_throttled_total",
		Help: "Количество отправок, отклонённых ограничителем частоты.",
	})
)

// tracer — трассировщик внешних вызовов сервисного слоя.
var tracer = otel.Tracer("github.com/solescopeai/site-backend/internal/service")

// withSpan выполняет fn внутри span и отмечает в нём ошибку.
func withSpan(ctx context.Context, name string, fn func(ctx context.Context) error, attrs ...attribute.KeyValue) error {
	ctx, span := tracer.Start(ctx, name, trace.WithAttributes(attrs...))
	defer span.End()

	err := fn(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// outcome возвращает метку результата для метрик по виду ошибки.
func outcome(err error) string {
	if err == nil {
		return "success"
	}
	for _, k := range []struct {
		kind  error
		label string
	}{
		{ErrValidation, "validation"},
		{ErrUnauthenticated, "unauthenticated"},
		{ErrForbidden, "forbidden"},
		{ErrNotFound, "not_found"},
		{ErrConflict, "conflict"},
		{ErrConsistency, "consistency"},
		{ErrThrottled, "throttled"},
		{ErrTransport, "transport"},
		{ErrProvider, "provider"},
	} {
		if errors.Is(err, k.kind) {
			return k.label
		}
	}
	return "error"
}
