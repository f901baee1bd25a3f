package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrQuery         = errors.New("repository: query failed")
	ErrDuplicateName = errors.New("repository: smtp service name already exists")
	ErrSecondDefault = errors.New("repository: another smtp service is already the default")
)

const uniqueViolation = "23505"

// mapConstraint turns unique violations on the service indexes into sentinels.
func mapConstraint(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		switch pgErr.ConstraintName {
		case "smtp_services_name_key":
			return errors.Join(ErrDuplicateName, err)
		case "smtp_services_single_default":
			return errors.Join(ErrSecondDefault, err)
		}
	}
	return errors.Join(ErrQuery, err)
}
