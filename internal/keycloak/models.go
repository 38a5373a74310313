// Пакет keycloak — HTTP-клиент к Keycloak Admin REST API.
// models.go — модели данных Keycloak.
package keycloak

import (
	"fmt"
	"net/http"
)

// TokenResponse — ответ на запрос токена через Client Credentials flow.
type TokenResponse struct {
	AccessToken string `json:"access_token"` //nolint:gosec // G117: структура токена OAuth2
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// RealmRepresentation — краткая информация о realm.
type RealmRepresentation struct {
	Realm   string `json:"realm"`
	Enabled bool   `json:"enabled"`
}

// credentialRepresentation — учётные данные пользователя.
type credentialRepresentation struct {
	Type      string `json:"type"`
	Value     string `json:"value"`
	Temporary bool   `json:"temporary"`
}

// userCreateRequest — запрос на создание пользователя в Keycloak.
type userCreateRequest struct {
	Username      string                     `json:"username"`
	Email         string                     `json:"email"`
	FirstName     string                     `json:"firstName,omitempty"`
	LastName      string                     `json:"lastName,omitempty"`
	Enabled       bool                       `json:"enabled"`
	EmailVerified bool                       `json:"emailVerified"`
	Attributes    map[string][]string        `json:"attributes,omitempty"`
	Credentials   []credentialRepresentation `json:"credentials,omitempty"`
}

// errorRepresentation — тело ошибки Admin REST API.
// Keycloak возвращает либо errorMessage, либо пару error/error_description.
type errorRepresentation struct {
	ErrorMessage     string `json:"errorMessage"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// APIError — ошибка, возвращённая Keycloak с HTTP-статусом.
// Message — текст из тела ответа без изменений.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Keycloak API вернул статус %d: %s", e.Status, e.Message)
}

// IsConflict — пользователь с таким username/email уже существует.
func (e *APIError) IsConflict() bool { return e.Status == http.StatusConflict }

// IsNotFound — объект не найден.
func (e *APIError) IsNotFound() bool { return e.Status == http.StatusNotFound }

// IsBadRequest — Keycloak отклонил данные (например, политика паролей).
func (e *APIError) IsBadRequest() bool { return e.Status == http.StatusBadRequest }
