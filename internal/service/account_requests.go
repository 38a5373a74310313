// account_requests.go — варианты запросов управления учётными записями.
// Набор вариантов закрыт: AccountRequest реализуется только типами этого пакета.
package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/google/uuid"

	"github.com/solescopeai/site-backend/internal/domain/model"
	"github.com/solescopeai/site-backend/internal/domain/rbac"
)

// Действия запроса.
const (
	ActionCreateUser  = "create_user"
	ActionMigrateUser = "migrate_user"
	ActionDeleteUser  = "delete_user"
)

// AccountRequest — запрос управления учётной записью.
// Каждый вариант сам проверяет поля и выполняет свои шаги.
type AccountRequest interface {
	Action() string
	// validate проверяет обязательные поля и подставляет значения по умолчанию.
	validate() error
	execute(ctx context.Context, s *ProvisioningService, cred Credentials) (any, error)
}

// accountActions — конструкторы вариантов по значению action.
var accountActions = map[string]func() AccountRequest{
	ActionCreateUser:  func() AccountRequest { return &CreateUserRequest{} },
	ActionMigrateUser: func() AccountRequest { return &MigrateUserRequest{} },
	ActionDeleteUser:  func() AccountRequest { return &DeleteUserRequest{} },
}

// DecodeAccountRequest разбирает тело запроса {action, ...поля} в вариант.
// Неизвестное действие — ошибка валидации.
func DecodeAccountRequest(body []byte) (AccountRequest, error) {
	var envelope struct {
		Action string `json:"action"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, validationError("invalid JSON body")
	}
	if envelope.Action == "" {
		return nil, validationError("action is required")
	}

	newRequest, ok := accountActions[envelope.Action]
	if !ok {
		return nil, validationError("unknown action")
	}

	req := newRequest()
	if err := json.Unmarshal(body, req); err != nil {
		return nil, validationError("invalid JSON body")
	}
	return req, nil
}

// CreateUserRequest — создание identity и профиля.
type CreateUserRequest struct {
	Email    string         `json:"email"`
	Password string         `json:"password"`
	FullName string         `json:"full_name"`
	UserType model.UserType `json:"user_type"`
	// Role — только для администраторов, по умолчанию admin.
	Role string `json:"role"`
	// ClientID — обязателен для клиентов.
	ClientID string `json:"client_id"`
}

// CreateUserResult — результат create_user.
type CreateUserResult struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

func (r *CreateUserRequest) Action() string { return ActionCreateUser }

func (r *CreateUserRequest) validate() error {
	r.Email = strings.TrimSpace(r.Email)
	r.FullName = strings.TrimSpace(r.FullName)
	r.ClientID = strings.TrimSpace(r.ClientID)

	if err := requireFields(
		requiredField{"email", r.Email},
		requiredField{"password", r.Password},
		requiredField{"full_name", r.FullName},
		requiredField{"user_type", string(r.UserType)},
	); err != nil {
		return err
	}
	if err := validateEmail(r.Email); err != nil {
		return err
	}
	if !r.UserType.Valid() {
		return validationError("user_type must be admin or client")
	}

	switch r.UserType {
	case model.UserTypeAdmin:
		if r.Role == "" {
			r.Role = rbac.RoleAdmin
		}
		if !rbac.IsValidRole(r.Role) {
			return validationError("role must be owner or admin")
		}
	case model.UserTypeClient:
		if r.ClientID == "" {
			return validationError("client_id is required for client users")
		}
		if _, err := uuid.Parse(r.ClientID); err != nil {
			return validationError("client_id must be a UUID")
		}
		// Роль у клиентов не хранится
		r.Role = ""
	}
	return nil
}

func (r *CreateUserRequest) execute(ctx context.Context, s *ProvisioningService, cred Credentials) (any, error) {
	if err := s.authorizeCreate(ctx, cred, r.Action(), r.UserType); err != nil {
		return nil, err
	}

	identity := model.Identity{
		Email:    r.Email,
		Password: r.Password,
		FullName: r.FullName,
		UserType: r.UserType,
		Role:     r.Role,
	}

	userID, err := s.createThenLink(ctx, r.Action(), identity, func(ctx context.Context, authUserID string) error {
		return s.insertProfile(ctx, r, authUserID)
	})
	if err != nil {
		return nil, err
	}

	return &CreateUserResult{UserID: userID, Email: r.Email}, nil
}

// MigrateUserRequest — создание identity для существующего профиля без привязки.
type MigrateUserRequest struct {
	Email     string         `json:"email"`
	Password  string         `json:"password"`
	UserType  model.UserType `json:"user_type"`
	ProfileID string         `json:"profile_id"`
}

// MigrateUserResult — результат migrate_user.
type MigrateUserResult struct {
	UserID   string `json:"user_id"`
	Migrated bool   `json:"migrated"`
}

func (r *MigrateUserRequest) Action() string { return ActionMigrateUser }

func (r *MigrateUserRequest) validate() error {
	r.Email = strings.TrimSpace(r.Email)
	r.ProfileID = strings.TrimSpace(r.ProfileID)

	if err := requireFields(
		requiredField{"email", r.Email},
		requiredField{"password", r.Password},
		requiredField{"user_type", string(r.UserType)},
		requiredField{"profile_id", r.ProfileID},
	); err != nil {
		return err
	}
	if err := validateEmail(r.Email); err != nil {
		return err
	}
	if !r.UserType.Valid() {
		return validationError("user_type must be admin or client")
	}
	if _, err := uuid.Parse(r.ProfileID); err != nil {
		return validationError("profile_id must be a UUID")
	}
	return nil
}

func (r *MigrateUserRequest) execute(ctx context.Context, s *ProvisioningService, cred Credentials) (any, error) {
	if cred.Caller == nil {
		if err := s.checkBootstrap(r.Action(), cred.BootstrapToken); err != nil {
			return nil, err
		}
	}

	identity, err := s.migrationIdentity(ctx, r)
	if err != nil {
		return nil, err
	}

	userID, err := s.createThenLink(ctx, r.Action(), identity, func(ctx context.Context, authUserID string) error {
		return s.linkProfile(ctx, r.UserType, r.ProfileID, authUserID)
	})
	if err != nil {
		return nil, err
	}

	return &MigrateUserResult{UserID: userID, Migrated: true}, nil
}

// DeleteUserRequest — удаление identity. Профиль не удаляется.
type DeleteUserRequest struct {
	AuthUserID string `json:"auth_user_id"`
}

// DeleteUserResult — результат delete_user.
type DeleteUserResult struct {
	Deleted bool `json:"deleted"`
}

func (r *DeleteUserRequest) Action() string { return ActionDeleteUser }

func (r *DeleteUserRequest) validate() error {
	r.AuthUserID = strings.TrimSpace(r.AuthUserID)
	return requireFields(requiredField{"auth_user_id", r.AuthUserID})
}

func (r *DeleteUserRequest) execute(ctx context.Context, s *ProvisioningService, cred Credentials) (any, error) {
	if cred.Caller == nil {
		return nil, unauthenticatedError()
	}
	caller, err := s.resolveAdmin(ctx, cred.Caller)
	if err != nil {
		return nil, err
	}
	if !rbac.CanDelete(caller) {
		s.logger.Warn("Недостаточно прав на удаление identity",
			slog.String("caller_id", cred.Caller.Subject),
			slog.String("caller_role", caller.Role),
		)
		return nil, forbiddenError()
	}

	if err := s.deleteIdentity(ctx, r.AuthUserID); err != nil {
		return nil, err
	}
	return &DeleteUserResult{Deleted: true}, nil
}

// requiredField — имя поля и его значение для проверки заполненности.
type requiredField struct {
	name  string
	value string
}

// requireFields возвращает ошибку для первого пустого поля.
func requireFields(fields ...requiredField) error {
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return validationError(f.name + " is required")
		}
	}
	return nil
}

// validateEmail проверяет, что строка — голый адрес без отображаемого имени.
func validateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return validationError("email is invalid")
	}
	return nil
}
