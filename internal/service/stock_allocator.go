package service

import (
	"context"
	"errors"
	"fmt"

	"magirls/internal/infra"
	"magirls/internal/model"
	"magirls/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const saleCheckoutReason = "Sale checkout"

// AllocationRequest asks for qty units of one variant at one warehouse on
// behalf of a sale.
type AllocationRequest struct {
	WarehouseID uuid.UUID
	VariantID   uuid.UUID
	Product     string
	Qty         int
	Actor       uuid.UUID
	SaleID      uuid.UUID
}

// BatchTake is the part of an allocation served by a single batch.
type BatchTake struct {
	BatchID      uuid.UUID
	Qty          int
	BalanceAfter int
}

type AllocationResult struct {
	VariantID uuid.UUID
	Takes     []BatchTake
}

// StockAllocator consumes batches oldest first. It must run inside the
// caller's unit of work: an error leaves partial decrements behind that only
// the enclosing rollback undoes.
type StockAllocator struct {
	batches   repository.BatchRepository
	ledger    repository.StockLedger
	movements repository.StockMovementRepository
}

func NewStockAllocator(
	batches repository.BatchRepository,
	ledger repository.StockLedger,
	movements repository.StockMovementRepository,
) *StockAllocator {
	return &StockAllocator{batches: batches, ledger: ledger, movements: movements}
}

func (a *StockAllocator) Allocate(ctx context.Context, req AllocationRequest) (*AllocationResult, error) {
	if req.Qty <= 0 {
		return nil, ErrInvalidQuantity
	}

	available, err := a.batches.ListAvailableFIFO(ctx, req.WarehouseID, req.VariantID)
	if err != nil {
		return nil, fmt.Errorf("list batches for %s: %w", req.Product, err)
	}
	if len(available) == 0 {
		n, err := a.batches.CountForVariant(ctx, req.WarehouseID, req.VariantID)
		if err != nil {
			return nil, fmt.Errorf("count batches for %s: %w", req.Product, err)
		}
		if n == 0 {
			return nil, &NoBatchesError{Product: req.Product}
		}
		return nil, &StockRaceError{Product: req.Product}
	}

	result := &AllocationResult{VariantID: req.VariantID}
	remaining := req.Qty
	saleID := req.SaleID
	reason := saleCheckoutReason

	for _, b := range available {
		if remaining == 0 {
			break
		}
		take := min(b.QtyOnHand, remaining)

		after, err := a.ledger.Adjust(ctx, req.WarehouseID, b.BatchID, -take)
		if errors.Is(err, repository.ErrNegativeBalance) {
			infra.NegativeBalanceRejections.Inc()
			log.Error().
				Bool("alert", true).
				Str("warehouse_id", req.WarehouseID.String()).
				Str("batch_id", b.BatchID.String()).
				Int("delta", -take).
				Msg("ledger refused negative balance during allocation")
			return nil, &NegativeBalanceError{WarehouseID: req.WarehouseID, BatchID: b.BatchID, Delta: -take}
		}
		if err != nil {
			return nil, fmt.Errorf("decrement batch %s: %w", b.BatchID, err)
		}

		mov := &model.StockMovement{
			WarehouseID:     req.WarehouseID,
			BatchID:         b.BatchID,
			VariantID:       req.VariantID,
			Kind:            model.MovementDecreaseSale,
			QtyDelta:        -take,
			Reason:          &reason,
			ReferenceSaleID: &saleID,
			PerformedBy:     req.Actor,
		}
		if err := a.movements.Create(ctx, mov); err != nil {
			return nil, fmt.Errorf("record movement for batch %s: %w", b.BatchID, err)
		}

		result.Takes = append(result.Takes, BatchTake{BatchID: b.BatchID, Qty: take, BalanceAfter: after})
		remaining -= take
	}

	if remaining > 0 {
		log.Warn().
			Str("variant_id", req.VariantID.String()).
			Int("requested", req.Qty).
			Int("missing", remaining).
			Msg("stock race during allocation")
		return nil, &StockRaceError{Product: req.Product}
	}
	return result, nil
}
