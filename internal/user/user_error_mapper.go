package user

import (
	"errors"

	"go-conge/internal/shared/apperror"
	usererrors "go-conge/internal/user/errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const pgUniqueViolation = "23505"

func mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return usererrors.ErrUserNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return usererrors.ErrUserAlreadyExists
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return usererrors.ErrUserAlreadyExists
	}
	return apperror.Storage(err)
}
