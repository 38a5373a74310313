// dispatch.go — сервис отправки уведомлений через почтовый транспорт.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"github.com/solescopeai/site-backend/internal/mailer"
	"github.com/solescopeai/site-backend/internal/mailtmpl"
)

// MailSender — почтовый транспорт.
type MailSender interface {
	Send(ctx context.Context, msg mailer.Message) (string, error)
}

// DispatchResult — результат отправки уведомления.
type DispatchResult struct {
	// ID — идентификатор письма, присвоенный транспортом
	ID string
}

// NotificationService — сервис отправки уведомлений с форм сайта.
// Получатели и отправитель фиксированы конфигурацией.
type NotificationService struct {
	sender   MailSender
	from     string
	to       []string
	throttle *Throttle
	logger   *slog.Logger
}

// NewNotificationService создаёт сервис отправки уведомлений.
// throttle может быть nil — ограничение частоты отключено.
func NewNotificationService(sender MailSender, from string, to []string, throttle *Throttle, logger *slog.Logger) *NotificationService {
	return &NotificationService{
		sender:   sender,
		from:     from,
		to:       to,
		throttle: throttle,
		logger:   logger.With(slog.String("component", "notification_service")),
	}
}

// Dispatch проверяет уведомление, отрисовывает письмо и отправляет его одним вызовом транспорта.
// clientKey — ключ ограничения частоты (IP клиента).
func (s *NotificationService) Dispatch(ctx context.Context, clientKey string, n Notification) (*DispatchResult, error) {
	result, err := s.dispatch(ctx, clientKey, n)
	notificationsTotal.WithLabelValues(n.Type(), outcome(err)).Inc()
	if err != nil {
		s.logger.Warn("Уведомление не отправлено",
			slog.String("type", n.Type()),
			slog.String("outcome", outcome(err)),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	s.logger.Info("Уведомление отправлено",
		slog.String("type", n.Type()),
		slog.String("id", result.ID),
	)
	return result, nil
}

func (s *NotificationService) dispatch(ctx context.Context, clientKey string, n Notification) (*DispatchResult, error) {
	if err := n.validate(); err != nil {
		return nil, err
	}

	if !s.throttle.Allow(clientKey) {
		notifyThrottledTotal.Inc()
		return nil, newError(ErrThrottled, "too many submissions, please try again later", nil)
	}

	html, err := mailtmpl.Render(ctx, n.body())
	if err != nil {
		return nil, newError(ErrProvider, "failed to render email", fmt.Errorf("рендеринг письма %s: %w", n.Type(), err))
	}

	msg := mailer.Message{
		From:    s.from,
		To:      s.to,
		Subject: n.subject(),
		HTML:    html,
		ReplyTo: n.replyTo(),
	}

	var id string
	err = withSpan(ctx, "mail.send", func(ctx context.Context) error {
		var sendErr error
		id, sendErr = s.sender.Send(ctx, msg)
		return sendErr
	}, attribute.String("notification.type", n.Type()))
	if err != nil {
		return nil, newError(ErrTransport, err.Error(), err)
	}

	return &DispatchResult{ID: id}, nil
}
