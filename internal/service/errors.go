package service

import (
	"errors"
	"fmt"

	"magirls/internal/repository"

	"github.com/google/uuid"
)

var (
	ErrEmptyCart          = errors.New("Cart is empty")
	ErrInvalidCredentials = errors.New("Invalid credentials")
	ErrInvalidQuantity    = errors.New("Quantity must be greater than zero")
	ErrNegativePrice      = errors.New("Prices must not be negative")
)

// NotFoundError reports a missing entity by kind, e.g. "Variant not found".
type NotFoundError struct {
	Entity string
}

func (e *NotFoundError) Error() string { return e.Entity + " not found" }

func (e *NotFoundError) Unwrap() error { return repository.ErrNotFound }

// UnknownCodeError is returned when a scanned code resolves to no active variant.
type UnknownCodeError struct {
	Code string
}

func (e *UnknownCodeError) Error() string { return "Code not found: " + e.Code }

func (e *UnknownCodeError) Unwrap() error { return repository.ErrNotFound }

type OutOfStockError struct {
	Product string
}

func (e *OutOfStockError) Error() string { return "Out of stock: " + e.Product }

type InsufficientStockError struct {
	Product   string
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("Insufficient stock for %s. Available: %d", e.Product, e.Available)
}

// NoBatchesError means the variant was never received at the location.
type NoBatchesError struct {
	Product string
}

func (e *NoBatchesError) Error() string { return "No available stock batches for " + e.Product }

// StockRaceError means stock that passed validation was consumed by a
// concurrent checkout before this one could allocate it.
type StockRaceError struct {
	Product string
}

func (e *StockRaceError) Error() string { return "Stock race detected for " + e.Product }

// NegativeBalanceError is a ledger refusal that validation and row locking
// should have made impossible. Seeing one means an invariant is broken.
type NegativeBalanceError struct {
	WarehouseID uuid.UUID
	BatchID     uuid.UUID
	Delta       int
}

func (e *NegativeBalanceError) Error() string {
	return fmt.Sprintf("negative balance refused for batch %s (delta %d)", e.BatchID, e.Delta)
}

func (e *NegativeBalanceError) Unwrap() error { return repository.ErrNegativeBalance }

// CheckoutFailedError wraps any failure of the checkout unit of work other
// than a stock race. The sale and every allocation were rolled back.
type CheckoutFailedError struct {
	Cause error
}

func (e *CheckoutFailedError) Error() string { return "Checkout failed: " + e.Cause.Error() }

func (e *CheckoutFailedError) Unwrap() error { return e.Cause }
