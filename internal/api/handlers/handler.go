// Пакет handlers — HTTP-обработчики account-provisioner и notification-dispatcher.
// Обработчики разбирают запрос, делегируют в сервисный слой и
// преобразуют ошибки в ответ в одном месте на эндпоинт.
package handlers

import (
	"encoding/json"
	"io"
	"net/http"
)

// maxBodySize — ограничение размера тела запроса.
const maxBodySize = 1 << 20

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// readBody читает тело запроса с ограничением размера.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	return io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
}
