// errors.go — ошибки бизнес-логики сервисного слоя.
// Вид ошибки проверяется через errors.Is, текст Error() показывается клиенту.
package service

import "errors"

var (
	// ErrValidation — некорректные входные данные.
	ErrValidation = errors.New("ошибка валидации")
	// ErrUnauthenticated — требуется аутентификация.
	ErrUnauthenticated = errors.New("требуется аутентификация")
	// ErrForbidden — недостаточно прав.
	ErrForbidden = errors.New("недостаточно прав")
	// ErrNotFound — профиль или identity не найдены.
	ErrNotFound = errors.New("ресурс не найден")
	// ErrConflict — ресурс уже существует или уже привязан.
	ErrConflict = errors.New("конфликт — ресурс уже существует")
	// ErrProvider — отказ Identity Provider или хранилища профилей.
	ErrProvider = errors.New("ошибка внешнего сервиса")
	// ErrTransport — отказ почтового транспорта.
	ErrTransport = errors.New("ошибка почтового транспорта")
	// ErrConsistency — identity создана, но не привязана и не удалена.
	ErrConsistency = errors.New("нарушена согласованность identity и профиля")
	// ErrThrottled — превышен лимит отправок.
	ErrThrottled = errors.New("превышен лимит запросов")
)

// Сообщения для клиента.
const (
	msgInsufficientPermissions = "insufficient permissions"
	msgAuthenticationRequired  = "authentication required"
)

// Error — ошибка сервисного слоя с видом и сообщением для клиента.
type Error struct {
	kind    error
	message string
	cause   error
}

func (e *Error) Error() string {
	return e.message
}

// Is сообщает, относится ли ошибка к виду target.
func (e *Error) Is(target error) bool {
	return target == e.kind
}

func (e *Error) Unwrap() error {
	return e.cause
}

func newError(kind error, message string, cause error) *Error {
	return &Error{kind: kind, message: message, cause: cause}
}

func validationError(message string) error {
	return newError(ErrValidation, message, nil)
}

func forbiddenError() error {
	return newError(ErrForbidden, msgInsufficientPermissions, nil)
}

func unauthenticatedError() error {
	return newError(ErrUnauthenticated, msgAuthenticationRequired, nil)
}
