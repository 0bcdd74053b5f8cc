package postgres

import (
	stderrors "errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/turtacn/shieldgate/pkg/errors"
)

// PostgreSQL SQLSTATE codes the repositories react to.
const (
	pgUniqueViolation       = "23505"
	pgInsufficientPrivilege = "42501"
)

// mapDBErr converts driver errors into AppErrors. Row-level security rejections surface as
// isolation violations; connectivity problems as storage outages.
func mapDBErr(err error, resource, id string) error {
	if err == nil {
		return nil
	}
	if _, ok := errors.AsAppError(err); ok {
		return err
	}
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return errors.ErrNotFound(resource, id)
	}

	var pgErr *pgconn.PgError
	if stderrors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return errors.ErrInvalidRequest(resource + " already exists").WithCause(err)
		case pgInsufficientPrivilege:
			return errors.ErrIsolationViolation("", "").WithCause(err)
		}
		return errors.ErrInternal("database error").WithCause(err)
	}
	// connect errors, timeouts and cancellation
	return errors.ErrStorageUnavailable("database", err)
}
