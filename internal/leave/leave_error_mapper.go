package leave

import (
	"errors"

	leaveerrors "go-conge/internal/leave/errors"
	"go-conge/internal/shared/apperror"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const pgForeignKeyViolation = "23503"

// mapRepositoryError turns persistence failures into domain errors. Anything not
// recognized becomes a storage error.
func mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}

	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return err
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return leaveerrors.ErrLeaveNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
		return leaveerrors.ErrUserNotFound
	}

	return apperror.Storage(err)
}
