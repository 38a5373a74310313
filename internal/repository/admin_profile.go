package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/solescopeai/site-backend/internal/domain/model"
)

// AdminProfileRepository — операции с таблицей admin_profiles.
type AdminProfileRepository interface {
	// Create вставляет профиль и заполняет ID, CreatedAt, UpdatedAt.
	Create(ctx context.Context, p *model.AdminProfile) error
	// GetByID возвращает профиль по UUID.
	GetByID(ctx context.Context, id string) (*model.AdminProfile, error)
	// GetActiveByAuthUserID возвращает активный профиль, привязанный к identity.
	GetActiveByAuthUserID(ctx context.Context, authUserID string) (*model.AdminProfile, error)
	// LinkAuthUser привязывает identity к профилю без привязки.
	LinkAuthUser(ctx context.Context, id, authUserID string) error
}

// adminProfileRepo — реализация AdminProfileRepository.
type adminProfileRepo struct {
	db DBTX
}

// NewAdminProfileRepository создаёт репозиторий профилей администраторов.
func NewAdminProfileRepository(db DBTX) AdminProfileRepository {
	return &adminProfileRepo{db: db}
}

const apColumns = `id, auth_user_id, email, full_name, role, is_active, created_at, updated_at`

func (r *adminProfileRepo) Create(ctx context.Context, p *model.AdminProfile) error {
	query := `
		INSERT INTO admin_profiles (auth_user_id, email, full_name, role, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		nullable(p.AuthUserID), p.Email, p.FullName, p.Role, p.IsActive,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("профиль администратора для identity %s: %w", p.AuthUserID, ErrConflict)
		}
		return fmt.Errorf("ошибка создания профиля администратора: %w", err)
	}
	return nil
}

func (r *adminProfileRepo) GetByID(ctx context.Context, id string) (*model.AdminProfile, error) {
	query := fmt.Sprintf(`SELECT %s FROM admin_profiles WHERE id = $1`, apColumns)
	p, err := scanAdminProfile(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if isInvalidText(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *adminProfileRepo) GetActiveByAuthUserID(ctx context.Context, authUserID string) (*model.AdminProfile, error) {
	query := fmt.Sprintf(`SELECT %s FROM admin_profiles WHERE auth_user_id = $1 AND is_active`, apColumns)
	return scanAdminProfile(r.db.QueryRow(ctx, query, authUserID))
}

func (r *adminProfileRepo) LinkAuthUser(ctx context.Context, id, authUserID string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE admin_profiles SET auth_user_id = $2 WHERE id = $1 AND auth_user_id IS NULL`,
		id, authUserID,
	)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return fmt.Errorf("identity %s уже привязана: %w", authUserID, ErrConflict)
		case isInvalidText(err):
			return ErrNotFound
		}
		return fmt.Errorf("ошибка привязки identity к профилю администратора: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Различаем отсутствие строки и уже привязанный профиль
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return getErr
		}
		return fmt.Errorf("профиль %s уже привязан к identity: %w", id, ErrConflict)
	}
	return nil
}

// scanAdminProfile сканирует одну строку admin_profiles.
func scanAdminProfile(row pgx.Row) (*model.AdminProfile, error) {
	p := &model.AdminProfile{}
	var authUserID *string
	err := row.Scan(
		&p.ID, &authUserID, &p.Email, &p.FullName, &p.Role,
		&p.IsActive, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения профиля администратора: %w", err)
	}
	p.AuthUserID = fromNullable(authUserID)
	return p, nil
}
