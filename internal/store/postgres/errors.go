package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	uniqueViolation = "23505"

	constraintUserEmail  = "users_email_key"
	constraintOnePending = "join_requests_one_pending_key"
)

// uniqueViolationOn reports whether err is a unique constraint violation on
// the named constraint or index.
func uniqueViolationOn(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == uniqueViolation && pgErr.ConstraintName == constraint
}
