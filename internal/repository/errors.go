package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound is returned when a requested record does not exist in the database.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert collides with a uniqueness
// constraint. Callers that rely on constraint-guarded idempotency (webhook
// dedup, one-time badge grants) treat it as "already exists", not a failure.
var ErrDuplicate = errors.New("duplicate")

// uniqueViolation reports whether err is a PostgreSQL unique_violation (23505).
func uniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
