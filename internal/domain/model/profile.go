// Пакет model — доменные модели сервиса учётных записей.
package model

import "time"

// UserType — вид профиля, к которому привязывается identity.
type UserType string

const (
	// UserTypeAdmin — администратор сайта (таблица admin_profiles).
	UserTypeAdmin UserType = "admin"
	// UserTypeClient — пользователь клиентского дашборда (таблица client_profiles).
	UserTypeClient UserType = "client"
)

// Valid проверяет, что вид профиля входит в закрытый набор.
func (t UserType) Valid() bool {
	return t == UserTypeAdmin || t == UserTypeClient
}

// AdminProfile — профиль администратора.
// Хранится в таблице admin_profiles.
type AdminProfile struct {
	// ID — UUID записи
	ID string
	// AuthUserID — ID identity в Keycloak (пусто, если не привязан)
	AuthUserID string
	// Email — адрес электронной почты
	Email string
	// FullName — отображаемое имя
	FullName string
	// Role — owner или admin
	Role string
	// IsActive — разрешены ли действия от имени профиля
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ClientProfile — профиль пользователя клиентской организации.
// Хранится в таблице client_profiles.
type ClientProfile struct {
	// ID — UUID записи
	ID string
	// ClientID — UUID организации (clients.id)
	ClientID string
	// AuthUserID — ID identity в Keycloak (пусто, если не привязан)
	AuthUserID             string
	Email                  string
	FullName               string
	IsActive               bool
	EmailVerified          bool
	RequiresPasswordChange bool
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// Identity — параметры создаваемой учётной записи в Keycloak.
type Identity struct {
	Email    string
	Password string
	FullName string
	UserType UserType
	// Role заполняется только для администраторов.
	Role string
}
