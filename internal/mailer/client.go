// Пакет mailer — HTTP-клиент транзакционного почтового API.
// Совместим с Resend: POST {baseURL}/emails, авторизация Bearer API-ключом.
// Одна попытка отправки на вызов, без повторов.
package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Message — письмо, готовое к отправке.
type Message struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
	ReplyTo string   `json:"reply_to,omitempty"`
}

// sendResponse — ответ API при успешном приёме письма.
type sendResponse struct {
	ID string `json:"id"`
}

// errorResponse — тело ошибки API.
type errorResponse struct {
	StatusCode int    `json:"statusCode"`
	Name       string `json:"name"`
	Message    string `json:"message"`
}

// APIError — отказ почтового API. Message передаётся вызывающему без изменений.
type APIError struct {
	Status  int
	Name    string
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// Client — клиент почтового API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// New создаёт клиент почтового API.
// timeout ограничивает один запрос отправки.
func New(baseURL, apiKey string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With(slog.String("component", "mailer")),
	}
}

// NewWithHTTPClient создаёт клиент с заданным HTTP-клиентом.
// Используется в тестах для подстановки httptest-сервера.
func NewWithHTTPClient(baseURL, apiKey string, httpClient *http.Client, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: httpClient,
		logger:     logger.With(slog.String("component", "mailer")),
	}
}

// Send отправляет письмо. Возвращает ID, присвоенный транспортом.
// Отказ API возвращается как *APIError, сетевые ошибки — как есть.
func (c *Client) Send(ctx context.Context, msg Message) (string, error) {
	if len(msg.To) == 0 {
		return "", errors.New("не указан ни один получатель")
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("сериализация письма: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/emails", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("создание запроса: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("запрос к почтовому API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := readAPIError(resp)
		c.logger.Warn("Почтовый API отклонил письмо",
			slog.Int("status", apiErr.Status),
			slog.String("name", apiErr.Name),
			slog.String("message", apiErr.Message),
		)
		return "", apiErr
	}

	var sr sendResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return "", fmt.Errorf("декодирование ответа почтового API: %w", err)
	}

	c.logger.Debug("Письмо принято транспортом", slog.String("id", sr.ID))
	return sr.ID, nil
}

// CheckReady проверяет доступность почтового API.
// Любой HTTP-ответ, кроме 5xx, означает, что API принимает запросы.
func (c *Client) CheckReady() (string, string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/domains", http.NoBody)
	if err != nil {
		return "fail", "ошибка создания запроса: " + err.Error()
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "fail", fmt.Sprintf("почтовый API недоступен: %v", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode >= 500:
		return "fail", fmt.Sprintf("почтовый API вернул статус %d", resp.StatusCode)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "degraded", "почтовый API отклоняет API-ключ"
	}
	return "ok", "почтовый API доступен"
}

// readAPIError разбирает тело ошибки. Если JSON не распознан — текст тела целиком.
func readAPIError(resp *http.Response) *APIError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	apiErr := &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(body))}

	var er errorResponse
	if json.Unmarshal(body, &er) == nil && er.Message != "" {
		apiErr.Name = er.Name
		apiErr.Message = er.Message
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}
