// provisioning.go — сервис управления учётными записями (Keycloak + профили в PostgreSQL).
// Каждый запрос — не более двух внешних изменений и одно компенсирующее действие.
package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/solescopeai/site-backend/internal/domain/model"
	"github.com/solescopeai/site-backend/internal/domain/rbac"
	"github.com/solescopeai/site-backend/internal/keycloak"
	"github.com/solescopeai/site-backend/internal/repository"
)

// defaultCompensationTimeout — ограничение компенсирующего удаления identity.
const defaultCompensationTimeout = 10 * time.Second

// IdentityProvider — операции с identity во внешнем Identity Provider.
type IdentityProvider interface {
	CreateUser(ctx context.Context, identity model.Identity) (string, error)
	DeleteUser(ctx context.Context, id string) error
}

// Caller — вызывающий, определённый по bearer JWT.
type Caller struct {
	// Subject — sub из JWT (ID identity в Keycloak)
	Subject string
	Email   string
}

// Credentials — сведения о вызывающем для авторизации запроса.
type Credentials struct {
	// Caller — nil, если запрос без bearer-токена
	Caller *Caller
	// BootstrapToken — значение заголовка X-Bootstrap-Token
	BootstrapToken string
}

// ProvisioningService — сервис create_user / migrate_user / delete_user.
type ProvisioningService struct {
	identities          IdentityProvider
	admins              repository.AdminProfileRepository
	clients             repository.ClientProfileRepository
	bootstrapToken      string
	compensationTimeout time.Duration
	logger              *slog.Logger
}

// NewProvisioningService создаёт сервис управления учётными записями.
// bootstrapToken — пустая строка оставляет анонимный путь открытым.
func NewProvisioningService(
	identities IdentityProvider,
	admins repository.AdminProfileRepository,
	clients repository.ClientProfileRepository,
	bootstrapToken string,
	compensationTimeout time.Duration,
	logger *slog.Logger,
) *ProvisioningService {
	if compensationTimeout <= 0 {
		compensationTimeout = defaultCompensationTimeout
	}
	return &ProvisioningService{
		identities:          identities,
		admins:              admins,
		clients:             clients,
		bootstrapToken:      bootstrapToken,
		compensationTimeout: compensationTimeout,
		logger:              logger.With(slog.String("component", "provisioning_service")),
	}
}

// Execute проверяет запрос, авторизует вызывающего и выполняет действие.
// Ошибка валидации возвращается до любого внешнего вызова.
func (s *ProvisioningService) Execute(ctx context.Context, cred Credentials, req AccountRequest) (any, error) {
	action := req.Action()

	var result any
	err := req.validate()
	if err == nil {
		result, err = req.execute(ctx, s, cred)
	}

	provisioningRequestsTotal.WithLabelValues(action, outcome(err)).Inc()
	if err != nil {
		s.logger.Info("Запрос отклонён",
			slog.String("action", action),
			slog.String("outcome", outcome(err)),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	s.logger.Info("Запрос выполнен", slog.String("action", action))
	return result, nil
}

// authorizeCreate — авторизация create_user.
// Без вызывающего выполняется проверка bootstrap-пути.
func (s *ProvisioningService) authorizeCreate(ctx context.Context, cred Credentials, action string, userType model.UserType) error {
	if cred.Caller == nil {
		return s.checkBootstrap(action, cred.BootstrapToken)
	}

	caller, err := s.resolveAdmin(ctx, cred.Caller)
	if err != nil {
		return err
	}
	if !rbac.CanCreate(caller, userType) {
		s.logger.Warn("Недостаточно прав на создание пользователя",
			slog.String("caller_id", cred.Caller.Subject),
			slog.String("caller_role", caller.Role),
			slog.String("user_type", string(userType)),
		)
		return forbiddenError()
	}
	return nil
}

// checkBootstrap — анонимный вызов create_user / migrate_user.
// Если задан bootstrap-токен, заголовок должен совпасть с ним.
func (s *ProvisioningService) checkBootstrap(action, token string) error {
	if s.bootstrapToken != "" {
		if subtle.ConstantTimeCompare([]byte(token), []byte(s.bootstrapToken)) != 1 {
			return unauthenticatedError()
		}
		provisioningAnonymousTotal.WithLabelValues(action).Inc()
		s.logger.Info("Анонимный вызов по bootstrap-токену", slog.String("action", action))
		return nil
	}

	provisioningAnonymousTotal.WithLabelValues(action).Inc()
	s.logger.Warn("Анонимный вызов без авторизации: bootstrap-токен не настроен",
		slog.String("action", action),
	)
	return nil
}

// resolveAdmin возвращает активный профиль администратора вызывающего.
// Отсутствие профиля — отказ в доступе без уточнения причины.
func (s *ProvisioningService) resolveAdmin(ctx context.Context, caller *Caller) (*model.AdminProfile, error) {
	admin, err := s.admins.GetActiveByAuthUserID(ctx, caller.Subject)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.logger.Warn("Вызывающий не является активным администратором",
				slog.String("caller_id", caller.Subject),
			)
			return nil, forbiddenError()
		}
		return nil, storeError(err)
	}
	return admin, nil
}

// migrationIdentity читает профиль migrate_user и собирает параметры identity.
// Отсутствующий или уже привязанный профиль отклоняется до создания identity.
func (s *ProvisioningService) migrationIdentity(ctx context.Context, r *MigrateUserRequest) (model.Identity, error) {
	identity := model.Identity{
		Email:    r.Email,
		Password: r.Password,
		UserType: r.UserType,
	}

	var linked string
	switch r.UserType {
	case model.UserTypeAdmin:
		p, err := s.admins.GetByID(ctx, r.ProfileID)
		if err != nil {
			return identity, storeError(err)
		}
		identity.FullName = p.FullName
		identity.Role = p.Role
		linked = p.AuthUserID
	case model.UserTypeClient:
		p, err := s.clients.GetByID(ctx, r.ProfileID)
		if err != nil {
			return identity, storeError(err)
		}
		identity.FullName = p.FullName
		linked = p.AuthUserID
	}

	if linked != "" {
		return identity, newError(ErrConflict, "profile is already linked to an identity", nil)
	}
	return identity, nil
}

// createThenLink создаёт identity и выполняет link.
// При ошибке link identity удаляется на контексте, не зависящем от отмены запроса.
// Если удаление тоже не удалось — ошибка согласованности.
func (s *ProvisioningService) createThenLink(
	ctx context.Context,
	action string,
	identity model.Identity,
	link func(ctx context.Context, authUserID string) error,
) (string, error) {
	authUserID, err := s.createIdentity(ctx, identity)
	if err != nil {
		return "", err
	}

	linkErr := withSpan(ctx, "profile.link", func(ctx context.Context) error {
		return link(ctx, authUserID)
	}, attribute.String("user_type", string(identity.UserType)))
	if linkErr == nil {
		s.logger.Info("Identity создана и привязана к профилю",
			slog.String("action", action),
			slog.String("user_id", authUserID),
			slog.String("user_type", string(identity.UserType)),
		)
		return authUserID, nil
	}

	s.logger.Warn("Профиль не сохранён, удаляем созданную identity",
		slog.String("action", action),
		slog.String("user_id", authUserID),
		slog.String("error", linkErr.Error()),
	)

	if compErr := s.compensate(ctx, action, authUserID); compErr != nil {
		orphanedIdentitiesTotal.Inc()
		s.logger.Error("Identity осталась без профиля: компенсирующее удаление не выполнено",
			slog.String("action", action),
			slog.String("user_id", authUserID),
			slog.String("email", identity.Email),
			slog.String("link_error", linkErr.Error()),
			slog.String("compensation_error", compErr.Error()),
		)
		msg := fmt.Sprintf("%s; identity %s could not be rolled back", storeError(linkErr).Error(), authUserID)
		return "", newError(ErrConsistency, msg, errors.Join(linkErr, compErr))
	}

	return "", storeError(linkErr)
}

// compensate удаляет identity после неудачной привязки.
func (s *ProvisioningService) compensate(ctx context.Context, action, authUserID string) error {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.compensationTimeout)
	defer cancel()

	err := withSpan(cctx, "identity.delete.compensate", func(ctx context.Context) error {
		return s.identities.DeleteUser(ctx, authUserID)
	}, attribute.String("user_id", authUserID))

	result := "ok"
	if err != nil {
		result = "failed"
	}
	compensationsTotal.WithLabelValues(action, result).Inc()
	return err
}

func (s *ProvisioningService) createIdentity(ctx context.Context, identity model.Identity) (string, error) {
	var id string
	err := withSpan(ctx, "identity.create", func(ctx context.Context) error {
		var err error
		id, err = s.identities.CreateUser(ctx, identity)
		return err
	}, attribute.String("user_type", string(identity.UserType)))
	if err != nil {
		return "", identityError(err)
	}
	return id, nil
}

func (s *ProvisioningService) deleteIdentity(ctx context.Context, id string) error {
	err := withSpan(ctx, "identity.delete", func(ctx context.Context) error {
		return s.identities.DeleteUser(ctx, id)
	}, attribute.String("user_id", id))
	if err != nil {
		return identityError(err)
	}
	s.logger.Info("Identity удалена", slog.String("user_id", id))
	return nil
}

// insertProfile создаёт профиль create_user, привязанный к identity.
func (s *ProvisioningService) insertProfile(ctx context.Context, r *CreateUserRequest, authUserID string) error {
	if r.UserType == model.UserTypeAdmin {
		return s.admins.Create(ctx, &model.AdminProfile{
			AuthUserID: authUserID,
			Email:      r.Email,
			FullName:   r.FullName,
			Role:       r.Role,
			IsActive:   true,
		})
	}
	return s.clients.Create(ctx, &model.ClientProfile{
		ClientID:               r.ClientID,
		AuthUserID:             authUserID,
		Email:                  r.Email,
		FullName:               r.FullName,
		IsActive:               true,
		EmailVerified:          true,
		RequiresPasswordChange: true,
	})
}

// linkProfile привязывает identity к существующему профилю.
func (s *ProvisioningService) linkProfile(ctx context.Context, userType model.UserType, profileID, authUserID string) error {
	if userType == model.UserTypeAdmin {
		return s.admins.LinkAuthUser(ctx, profileID, authUserID)
	}
	return s.clients.LinkAuthUser(ctx, profileID, authUserID)
}

// identityError переводит ошибку Identity Provider в ошибку сервиса.
// Текст ответа Keycloak передаётся клиенту без изменений.
func identityError(err error) error {
	var apiErr *keycloak.APIError
	if !errors.As(err, &apiErr) {
		return newError(ErrProvider, err.Error(), err)
	}

	msg := apiErr.Message
	if msg == "" {
		msg = http.StatusText(apiErr.Status)
	}
	switch {
	case apiErr.IsConflict():
		return newError(ErrConflict, msg, err)
	case apiErr.IsNotFound():
		return newError(ErrNotFound, msg, err)
	case apiErr.IsBadRequest():
		return newError(ErrValidation, msg, err)
	}
	return newError(ErrProvider, msg, err)
}

// storeError переводит ошибку репозитория профилей в ошибку сервиса.
func storeError(err error) error {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr
	}
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return newError(ErrNotFound, "profile not found", err)
	case errors.Is(err, repository.ErrConflict):
		return newError(ErrConflict, "profile already exists or is already linked", err)
	case errors.Is(err, repository.ErrInvalidReference):
		return newError(ErrValidation, "client_id does not reference an existing client", err)
	}
	return newError(ErrProvider, err.Error(), err)
}
