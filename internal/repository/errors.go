package repository

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound is returned when the addressed record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrStatusConflict is returned when a conditional status update finds the
	// record in a state the transition does not start from.
	ErrStatusConflict = errors.New("record status does not allow this change")
	// ErrDuplicateActive is returned when the buyer already has an active
	// request for the product.
	ErrDuplicateActive = errors.New("an active contact request already exists for this product")
	// ErrDuplicateCompany is returned when the tax or MERSIS number is taken.
	ErrDuplicateCompany = errors.New("a company with this tax or MERSIS number already exists")
)

const uniqueViolation = "23505"

type scanner interface {
	Scan(dest ...any) error
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
