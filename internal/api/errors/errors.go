// Пакет errors — формирование ответов с ошибками.
// Формат provisioning: {"error": "..."}.
// Формат notification: {"success": false, "error": "..."}.
package errors

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/solescopeai/site-backend/internal/service"
)

// errorBody — тело ответа ошибки provisioning-эндпоинта.
type errorBody struct {
	Error string `json:"error"`
}

// notifyErrorBody — тело ответа ошибки notification-эндпоинта.
type notifyErrorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// WriteError записывает ответ ошибки {"error": message}.
func WriteError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, errorBody{Error: message})
}

// WriteNotifyError записывает ответ ошибки {"success": false, "error": message}.
func WriteNotifyError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, notifyErrorBody{Success: false, Error: message})
}

// StatusCode возвращает HTTP-статус для ошибки сервисного слоя.
// Ошибка неизвестного вида — 500.
func StatusCode(err error) int {
	switch {
	case stderrors.Is(err, service.ErrValidation):
		return http.StatusBadRequest
	case stderrors.Is(err, service.ErrUnauthenticated):
		return http.StatusUnauthorized
	case stderrors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case stderrors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case stderrors.Is(err, service.ErrConflict):
		return http.StatusConflict
	case stderrors.Is(err, service.ErrThrottled):
		return http.StatusTooManyRequests
	}
	return http.StatusInternalServerError
}

// FromService записывает ошибку сервисного слоя в формате provisioning.
func FromService(w http.ResponseWriter, err error) {
	WriteError(w, StatusCode(err), message(err))
}

// NotifyFromService записывает ошибку сервисного слоя в формате notification.
func NotifyFromService(w http.ResponseWriter, err error) {
	WriteNotifyError(w, StatusCode(err), message(err))
}

// message — текст для клиента. Ошибки вне сервисного слоя не раскрываются.
func message(err error) string {
	var svcErr *service.Error
	if stderrors.As(err, &svcErr) {
		return svcErr.Error()
	}
	return "internal server error"
}

// --- Конструкторы для ошибок уровня HTTP ---

// Unauthorized — 401 требуется аутентификация.
func Unauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, message)
}

// ValidationError — 400 некорректные входные данные.
func ValidationError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, message)
}

// MethodNotAllowed — 405 метод не поддерживается.
func MethodNotAllowed(w http.ResponseWriter) {
	WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
