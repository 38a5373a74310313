// Пакет repository — слой доступа к профилям в PostgreSQL.
// Все запросы — чистый SQL через pgx, без ORM.
package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Ошибки слоя репозиториев.
var (
	// ErrNotFound — запись не найдена.
	ErrNotFound = errors.New("запись не найдена")
	// ErrConflict — конфликт уникальности (дублирующийся ресурс).
	ErrConflict = errors.New("конфликт — запись уже существует")
	// ErrInvalidReference — ссылка на несуществующую запись или некорректный идентификатор.
	ErrInvalidReference = errors.New("некорректная ссылка на связанную запись")
)

// DBTX — интерфейс для выполнения SQL-запросов.
// Реализуется как *pgxpool.Pool, так и pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Коды ошибок PostgreSQL, которые репозитории переводят в sentinel-ошибки.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgInvalidTextRepr     = "22P02"
)

// pgCode возвращает SQLSTATE ошибки PostgreSQL или пустую строку.
func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// isUniqueViolation проверяет, является ли ошибка нарушением уникальности PostgreSQL.
func isUniqueViolation(err error) bool {
	return pgCode(err) == pgUniqueViolation
}

// isInvalidReference — нарушение внешнего ключа или невалидный UUID в параметре.
func isInvalidReference(err error) bool {
	code := pgCode(err)
	return code == pgForeignKeyViolation || code == pgInvalidTextRepr
}

// isInvalidText — параметр не приводится к типу столбца (например, не UUID).
func isInvalidText(err error) bool {
	return pgCode(err) == pgInvalidTextRepr
}

// nullable преобразует пустую строку в NULL.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// fromNullable преобразует NULL в пустую строку.
func fromNullable(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
