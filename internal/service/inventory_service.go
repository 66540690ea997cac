package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"magirls/internal/config"
	"magirls/internal/dto"
	"magirls/internal/infra"
	"magirls/internal/model"
	"magirls/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	scanIncreaseReason = "Stock increase from mobile scan"
	exportPageSize     = 500
	exportMaxRows      = 50000
)

type InventoryService interface {
	ScanIncrease(ctx context.Context, actor uuid.UUID, req dto.ScanIncreaseRequest) (*dto.ScanIncreaseResponse, error)
	ReceiveStock(ctx context.Context, actor uuid.UUID, req dto.ReceiveStockRequest) (*dto.ReceiveStockResponse, error)
	ListMovements(ctx context.Context, filter dto.MovementFilter) (*dto.MovementListResponse, error)
	ExportMovements(ctx context.Context, filter dto.MovementFilter) ([]byte, error)
	AuditBatch(ctx context.Context, batchID uuid.UUID) (*dto.BatchAuditResponse, error)
}

type inventoryService struct {
	tx         repository.TxManager
	catalog    repository.CatalogRepository
	warehouses repository.WarehouseRepository
	batches    repository.BatchRepository
	ledger     repository.StockLedger
	movements  repository.StockMovementRepository
	receiver   *StockReceiver
	events     EventPublisher
	cfg        *config.Config
}

// NewInventoryService wires stock receipt and the movement audit. events may
// be nil.
func NewInventoryService(
	tx repository.TxManager,
	catalog repository.CatalogRepository,
	warehouses repository.WarehouseRepository,
	batches repository.BatchRepository,
	ledger repository.StockLedger,
	movements repository.StockMovementRepository,
	receiver *StockReceiver,
	events EventPublisher,
	cfg *config.Config,
) InventoryService {
	return &inventoryService{
		tx:         tx,
		catalog:    catalog,
		warehouses: warehouses,
		batches:    batches,
		ledger:     ledger,
		movements:  movements,
		receiver:   receiver,
		events:     events,
		cfg:        cfg,
	}
}

// ScanIncrease receives qty units of a scanned code into the default batch
// of the default warehouse.
func (s *inventoryService) ScanIncrease(ctx context.Context, actor uuid.UUID, req dto.ScanIncreaseRequest) (*dto.ScanIncreaseResponse, error) {
	if req.Qty <= 0 {
		return nil, ErrInvalidQuantity
	}
	v, err := s.catalog.FindByCode(ctx, req.Code)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, &UnknownCodeError{Code: req.Code}
	}
	if err != nil {
		return nil, err
	}

	reason := scanIncreaseReason
	if req.Reason != nil && *req.Reason != "" {
		reason = *req.Reason
	}

	total, _, err := s.receive(ctx, ReceiptRequest{
		VariantID: v.VariantID,
		Qty:       req.Qty,
		Actor:     actor,
		Reason:    reason,
	})
	if err != nil {
		return nil, err
	}
	return &dto.ScanIncreaseResponse{OK: true, UpdatedStock: total}, nil
}

// ReceiveStock is the lot-tracked receipt: a named batch is created on first
// use and reused afterwards.
func (s *inventoryService) ReceiveStock(ctx context.Context, actor uuid.UUID, req dto.ReceiveStockRequest) (*dto.ReceiveStockResponse, error) {
	if req.Qty <= 0 {
		return nil, ErrInvalidQuantity
	}
	variantID, err := uuid.Parse(req.VariantID)
	if err != nil {
		return nil, &NotFoundError{Entity: "Variant"}
	}
	variant, err := s.catalog.FindVariant(ctx, variantID)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && !variant.IsActive) {
		return nil, &NotFoundError{Entity: "Variant"}
	}
	if err != nil {
		return nil, err
	}

	reason := scanIncreaseReason
	if req.Reason != nil && *req.Reason != "" {
		reason = *req.Reason
	}

	total, res, err := s.receive(ctx, ReceiptRequest{
		VariantID: variantID,
		Qty:       req.Qty,
		Actor:     actor,
		Reason:    reason,
		BatchCode: req.BatchCode,
		ExpiresAt: req.ExpiresAt,
	})
	if err != nil {
		return nil, err
	}
	return &dto.ReceiveStockResponse{
		BatchID:      res.Batch.ID.String(),
		BatchCode:    res.Batch.BatchCode,
		BatchBalance: res.BatchBalance,
		UpdatedStock: total,
	}, nil
}

// receive runs one receipt at the default warehouse in its own unit of work
// and returns the variant's new on-hand there.
func (s *inventoryService) receive(ctx context.Context, req ReceiptRequest) (int, *ReceiptResult, error) {
	warehouse, err := s.warehouses.EnsureDefault(ctx, s.cfg.DefaultWarehouseName)
	if err != nil {
		return 0, nil, fmt.Errorf("resolve default warehouse: %w", err)
	}
	req.WarehouseID = warehouse.ID

	var res *ReceiptResult
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		res, err = s.receiver.Receive(txCtx, req)
		return err
	})
	if err != nil {
		return 0, nil, err
	}
	infra.StockMovementsTotal.WithLabelValues(string(model.MovementIncreaseScan)).Inc()

	total, err := s.ledger.SumForVariant(ctx, warehouse.ID, req.VariantID)
	if err != nil {
		return 0, nil, err
	}

	log.Info().
		Str("variant_id", req.VariantID.String()).
		Str("batch_id", res.Batch.ID.String()).
		Int("qty", req.Qty).
		Int("on_hand", total).
		Msg("stock received")

	if s.events != nil {
		s.events.Publish(EventStockUpdated, StockUpdatedEvent{VariantID: req.VariantID.String(), QtyOnHand: total})
	}
	return total, res, nil
}

func (s *inventoryService) ListMovements(ctx context.Context, filter dto.MovementFilter) (*dto.MovementListResponse, error) {
	rows, total, err := s.movements.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	data := make([]dto.MovementResponse, len(rows))
	for i := range rows {
		data[i] = movementToResponse(&rows[i])
	}
	return &dto.MovementListResponse{Data: data, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

// ExportMovements renders every movement matching the filter, newest first,
// ignoring the filter's paging.
func (s *inventoryService) ExportMovements(ctx context.Context, filter dto.MovementFilter) ([]byte, error) {
	var all []model.StockMovement
	filter.Limit = exportPageSize
	for page := 1; len(all) < exportMaxRows; page++ {
		filter.Page = page
		rows, total, err := s.movements.List(ctx, filter)
		if err != nil {
			return nil, err
		}
		all = append(all, rows...)
		if len(rows) < exportPageSize || int64(len(all)) >= total {
			break
		}
	}
	return infra.MovementsXLSX(all)
}

// AuditBatch checks that a batch balance equals the sum of its movements.
func (s *inventoryService) AuditBatch(ctx context.Context, batchID uuid.UUID) (*dto.BatchAuditResponse, error) {
	batch, err := s.batches.FindByID(ctx, batchID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, &NotFoundError{Entity: "Batch"}
	}
	if err != nil {
		return nil, err
	}
	balance, err := s.ledger.Balance(ctx, batch.WarehouseID, batch.ID)
	if err != nil {
		return nil, err
	}
	sum, err := s.movements.SumDeltasForBatch(ctx, batch.WarehouseID, batch.ID)
	if err != nil {
		return nil, err
	}
	if balance != sum {
		log.Error().
			Str("batch_id", batch.ID.String()).
			Int("balance", balance).
			Int("movement_sum", sum).
			Bool("alert", true).
			Msg("batch balance does not match its movements")
	}
	return &dto.BatchAuditResponse{
		BatchID:     batch.ID.String(),
		WarehouseID: batch.WarehouseID.String(),
		Balance:     balance,
		MovementSum: sum,
		Consistent:  balance == sum,
	}, nil
}

func movementToResponse(m *model.StockMovement) dto.MovementResponse {
	var saleRef *string
	if m.ReferenceSaleID != nil {
		id := m.ReferenceSaleID.String()
		saleRef = &id
	}
	return dto.MovementResponse{
		ID:              m.ID.String(),
		WarehouseID:     m.WarehouseID.String(),
		BatchID:         m.BatchID.String(),
		VariantID:       m.VariantID.String(),
		Kind:            string(m.Kind),
		QtyDelta:        m.QtyDelta,
		Reason:          m.Reason,
		ReferenceSaleID: saleRef,
		PerformedBy:     m.PerformedBy.String(),
		CreatedAt:       m.CreatedAt.Format(time.RFC3339),
	}
}
