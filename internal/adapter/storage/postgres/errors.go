package postgres

import (
	"errors"
	"fmt"

	"mockbank/internal/core/ports"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgUniqueViolation = "23505"
	constraintEmail   = "users_email_key"
)

// mapWriteError turns unique violations into the storage sentinels.
func mapWriteError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		if pgErr.ConstraintName == constraintEmail {
			return fmt.Errorf("%s: %w", op, ports.ErrEmailTaken)
		}
		return fmt.Errorf("%s: %s: %w", op, pgErr.ConstraintName, ports.ErrIdentifierTaken)
	}
	return fmt.Errorf("%s: %w", op, err)
}
