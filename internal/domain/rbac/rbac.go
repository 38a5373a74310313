// Пакет rbac — правила авторизации действий над учётными записями.
// Роли администраторов упорядочены по весу: owner > admin.
// Решение принимается по профилю вызывающего из admin_profiles.
package rbac

import "github.com/solescopeai/site-backend/internal/domain/model"

// Роли в порядке возрастания привилегий.
const (
	RoleAdmin = "admin"
	RoleOwner = "owner"
)

// roleWeight — вес роли для сравнения.
var roleWeight = map[string]int{
	RoleAdmin: 1,
	RoleOwner: 2,
}

// IsValidRole проверяет, является ли строка допустимой ролью администратора.
func IsValidRole(role string) bool {
	_, ok := roleWeight[role]
	return ok
}

// AtLeast проверяет, что роль role не ниже required.
// Неизвестная роль не удовлетворяет ни одному требованию.
func AtLeast(role, required string) bool {
	w, ok := roleWeight[role]
	if !ok {
		return false
	}
	return w >= roleWeight[required]
}

// RequiredRoleToCreate возвращает минимальную роль вызывающего,
// необходимую для создания пользователя указанного вида.
func RequiredRoleToCreate(userType model.UserType) string {
	if userType == model.UserTypeAdmin {
		return RoleOwner
	}
	return RoleAdmin
}

// CanCreate проверяет, может ли администратор caller создать пользователя вида userType.
// Неактивный профиль не может ничего.
func CanCreate(caller *model.AdminProfile, userType model.UserType) bool {
	if caller == nil || !caller.IsActive {
		return false
	}
	return AtLeast(caller.Role, RequiredRoleToCreate(userType))
}

// CanDelete проверяет, может ли администратор caller удалять identity.
func CanDelete(caller *model.AdminProfile) bool {
	if caller == nil || !caller.IsActive {
		return false
	}
	return AtLeast(caller.Role, RoleOwner)
}
