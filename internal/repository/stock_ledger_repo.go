package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StockLedger holds the per-(warehouse, batch) on-hand counters.
type StockLedger interface {
	// Adjust adds delta to the balance and returns the new value. The row is
	// created at zero on first use. A delta that would drive the balance below
	// zero changes nothing and returns ErrNegativeBalance.
	Adjust(ctx context.Context, warehouseID, batchID uuid.UUID, delta int) (int, error)
	Balance(ctx context.Context, warehouseID, batchID uuid.UUID) (int, error)
	// SumForVariant is the on-hand of a variant at a warehouse: the sum of
	// its batch balances there.
	SumForVariant(ctx context.Context, warehouseID, variantID uuid.UUID) (int, error)
}

type stockLedger struct{ db *gorm.DB }

func NewStockLedger(db *gorm.DB) StockLedger { return &stockLedger{db: db} }

type balanceRow struct{ QtyOnHand int }

func (l *stockLedger) Adjust(ctx context.Context, warehouseID, batchID uuid.UUID, delta int) (int, error) {
	db := getDB(ctx, l.db)
	var rows []balanceRow

	if delta >= 0 {
		err := db.Raw(`
			INSERT INTO stock_balances (warehouse_id, batch_id, qty_on_hand, updated_at)
			VALUES (?, ?, ?, now())
			ON CONFLICT (warehouse_id, batch_id)
			DO UPDATE SET qty_on_hand = stock_balances.qty_on_hand + EXCLUDED.qty_on_hand,
			              updated_at = now()
			RETURNING qty_on_hand`, warehouseID, batchID, delta).
			Scan(&rows).Error
		if err != nil {
			return 0, translateError(err)
		}
		if len(rows) == 0 {
			return 0, ErrNotFound
		}
		return rows[0].QtyOnHand, nil
	}

	// Conditional decrement: one statement, no read-modify-write.
	err := db.Raw(`
		UPDATE stock_balances
		SET qty_on_hand = qty_on_hand + ?, updated_at = now()
		WHERE warehouse_id = ? AND batch_id = ? AND qty_on_hand + ? >= 0
		RETURNING qty_on_hand`, delta, warehouseID, batchID, delta).
		Scan(&rows).Error
	if err != nil {
		return 0, translateError(err)
	}
	if len(rows) == 0 {
		return 0, ErrNegativeBalance
	}
	return rows[0].QtyOnHand, nil
}

func (l *stockLedger) Balance(ctx context.Context, warehouseID, batchID uuid.UUID) (int, error) {
	var qty int
	err := getDB(ctx, l.db).Raw(`
		SELECT COALESCE(SUM(qty_on_hand), 0)
		FROM stock_balances
		WHERE warehouse_id = ? AND batch_id = ?`, warehouseID, batchID).
		Scan(&qty).Error
	return qty, translateError(err)
}

func (l *stockLedger) SumForVariant(ctx context.Context, warehouseID, variantID uuid.UUID) (int, error) {
	var qty int
	err := getDB(ctx, l.db).Raw(`
		SELECT COALESCE(SUM(sb.qty_on_hand), 0)
		FROM stock_balances sb
		JOIN inventory_batches ib ON ib.id = sb.batch_id
		WHERE sb.warehouse_id = ? AND ib.variant_id = ?`, warehouseID, variantID).
		Scan(&qty).Error
	return qty, translateError(err)
}
