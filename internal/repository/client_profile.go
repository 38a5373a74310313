package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/solescopeai/site-backend/internal/domain/model"
)

// ClientProfileRepository — операции с таблицей client_profiles.
type ClientProfileRepository interface {
	// Create вставляет профиль и заполняет ID, CreatedAt, UpdatedAt.
	// Несуществующий client_id — ErrInvalidReference.
	Create(ctx context.Context, p *model.ClientProfile) error
	// GetByID возвращает профиль по UUID.
	GetByID(ctx context.Context, id string) (*model.ClientProfile, error)
	// LinkAuthUser привязывает identity к профилю без привязки
	// и отмечает email как подтверждённый.
	LinkAuthUser(ctx context.Context, id, authUserID string) error
}

type clientProfileRepo struct {
	db DBTX
}

// NewClientProfileRepository создаёт репозиторий профилей клиентов.
func NewClientProfileRepository(db DBTX) ClientProfileRepository {
	return &clientProfileRepo{db: db}
}

const cpColumns = `id, client_id, auth_user_id, email, full_name, is_active,
	email_verified, requires_password_change, created_at, updated_at`

func (r *clientProfileRepo) Create(ctx context.Context, p *model.ClientProfile) error {
	query := `
		INSERT INTO client_profiles
			(client_id, auth_user_id, email, full_name, is_active, email_verified, requires_password_change)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		p.ClientID, nullable(p.AuthUserID), p.Email, p.FullName,
		p.IsActive, p.EmailVerified, p.RequiresPasswordChange,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return fmt.Errorf("профиль клиента для identity %s: %w", p.AuthUserID, ErrConflict)
		case isInvalidReference(err):
			return fmt.Errorf("клиент %s: %w", p.ClientID, ErrInvalidReference)
		}
		return fmt.Errorf("ошибка создания профиля клиента: %w", err)
	}
	return nil
}

func (r *clientProfileRepo) GetByID(ctx context.Context, id string) (*model.ClientProfile, error) {
	query := fmt.Sprintf(`SELECT %s FROM client_profiles WHERE id = $1`, cpColumns)

	p := &model.ClientProfile{}
	var authUserID *string
	err := r.db.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.ClientID, &authUserID, &p.Email, &p.FullName, &p.IsActive,
		&p.EmailVerified, &p.RequiresPasswordChange, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidText(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения профиля клиента: %w", err)
	}
	p.AuthUserID = fromNullable(authUserID)
	return p, nil
}

func (r *clientProfileRepo) LinkAuthUser(ctx context.Context, id, authUserID string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE client_profiles
		SET auth_user_id = $2, email_verified = TRUE
		WHERE id = $1 AND auth_user_id IS NULL`,
		id, authUserID,
	)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return fmt.Errorf("identity %s уже привязана: %w", authUserID, ErrConflict)
		case isInvalidText(err):
			return ErrNotFound
		}
		return fmt.Errorf("ошибка привязки identity к профилю клиента: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return getErr
		}
		return fmt.Errorf("профиль %s уже привязан к identity: %w", id, ErrConflict)
	}
	return nil
}
