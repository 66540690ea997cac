package service

import (
	"context"
	"fmt"
	"time"

	"magirls/internal/model"
	"magirls/internal/repository"

	"github.com/google/uuid"
)

// ReceiptRequest adds stock to a batch. An empty BatchCode means the
// default batch of the variant at the warehouse.
type ReceiptRequest struct {
	WarehouseID uuid.UUID
	VariantID   uuid.UUID
	Qty         int
	Actor       uuid.UUID
	Reason      string
	BatchCode   string
	ExpiresAt   *time.Time
}

type ReceiptResult struct {
	Batch        *model.InventoryBatch
	BatchBalance int
}

// StockReceiver pairs every ledger increase with one INCREASE_SCAN movement.
// Like the allocator it expects to run inside the caller's unit of work.
type StockReceiver struct {
	batches   repository.BatchRepository
	ledger    repository.StockLedger
	movements repository.StockMovementRepository
}

func NewStockReceiver(
	batches repository.BatchRepository,
	ledger repository.StockLedger,
	movements repository.StockMovementRepository,
) *StockReceiver {
	return &StockReceiver{batches: batches, ledger: ledger, movements: movements}
}

func (r *StockReceiver) Receive(ctx context.Context, req ReceiptRequest) (*ReceiptResult, error) {
	if req.Qty <= 0 {
		return nil, ErrInvalidQuantity
	}
	code := req.BatchCode
	expires := req.ExpiresAt
	if code == "" {
		code = model.DefaultBatchCode
		expires = nil
	}

	batch, err := r.batches.Ensure(ctx, req.WarehouseID, req.VariantID, code, expires)
	if err != nil {
		return nil, fmt.Errorf("ensure batch %s: %w", code, err)
	}

	balance, err := r.ledger.Adjust(ctx, req.WarehouseID, batch.ID, req.Qty)
	if err != nil {
		return nil, fmt.Errorf("increase batch %s: %w", batch.ID, err)
	}

	reason := req.Reason
	mov := &model.StockMovement{
		WarehouseID: req.WarehouseID,
		BatchID:     batch.ID,
		VariantID:   req.VariantID,
		Kind:        model.MovementIncreaseScan,
		QtyDelta:    req.Qty,
		Reason:      &reason,
		PerformedBy: req.Actor,
	}
	if err := r.movements.Create(ctx, mov); err != nil {
		return nil, fmt.Errorf("record movement for batch %s: %w", batch.ID, err)
	}

	return &ReceiptResult{Batch: batch, BatchBalance: balance}, nil
}
