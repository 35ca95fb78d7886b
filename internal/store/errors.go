package store

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound means the target row does not exist (or is outside the
	// caller's scope in list paths, where filtered rows simply never appear).
	ErrNotFound = errors.New("record not found")

	// ErrForbidden means the row exists but belongs to another tenant's
	// ownership subtree.
	ErrForbidden = errors.New("record outside principal scope")

	// ErrDuplicate is returned when a unique constraint rejects a write.
	// The application-level pre-checks are a UX layer; these constraints
	// are the authoritative guard.
	ErrDuplicate = errors.New("duplicate record")
)

const uniqueViolation = "23505"

func translateUnique(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrDuplicate
	}
	return err
}
