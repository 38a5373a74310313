package handlers

import (
	"log/slog"
	"net/http"

	apierrors "github.com/solescopeai/site-backend/internal/api/errors"
	"github.com/solescopeai/site-backend/internal/api/middleware"
	"github.com/solescopeai/site-backend/internal/service"
)

// notifyResponse — ответ об успешной отправке.
type notifyResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	ID      string `json:"id,omitempty"`
}

// NotifyHandler — обработчик POST /functions/v1/send-email.
type NotifyHandler struct {
	svc    *service.NotificationService
	logger *slog.Logger
}

// NewNotifyHandler создаёт обработчик отправки уведомлений.
func NewNotifyHandler(svc *service.NotificationService, logger *slog.Logger) *NotifyHandler {
	return &NotifyHandler{
		svc:    svc,
		logger: logger.With(slog.String("component", "notify_handler")),
	}
}

// SendEmail отправляет уведомление с формы сайта.
func (h *NotifyHandler) SendEmail(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		apierrors.WriteNotifyError(w, http.StatusBadRequest, "request body is too large or unreadable")
		return
	}

	n, err := service.DecodeNotification(body)
	if err != nil {
		apierrors.NotifyFromService(w, err)
		return
	}

	result, err := h.svc.Dispatch(r.Context(), middleware.ClientIP(r), n)
	if err != nil {
		if apierrors.StatusCode(err) >= http.StatusInternalServerError {
			h.logger.Error("Ошибка отправки письма",
				slog.String("type", n.Type()),
				slog.String("error", err.Error()),
			)
		}
		apierrors.NotifyFromService(w, err)
		return
	}

	writeJSON(w, http.StatusOK, notifyResponse{
		Success: true,
		Message: "Email sent successfully",
		ID:      result.ID,
	})
}
