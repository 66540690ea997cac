package repository

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	ErrNotFound        = errors.New("record not found")
	ErrNegativeBalance = errors.New("stock balance would become negative")
	ErrConflict        = errors.New("persistence conflict")
)

const (
	pgUniqueViolation = "23505"
	pgCheckViolation  = "23514"

	nonNegativeBalanceConstraint = "chk_stock_balances_non_negative"
)

// translateError maps driver errors onto the package sentinels so callers
// never need to know about postgres error codes.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%w: %s", ErrConflict, pgErr.ConstraintName)
		case pgCheckViolation:
			if pgErr.ConstraintName == nonNegativeBalanceConstraint {
				return ErrNegativeBalance
			}
		}
	}
	return err
}
