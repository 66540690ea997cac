package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"magirls/internal/config"
	"magirls/internal/dto"
	"magirls/internal/infra"
	"magirls/internal/model"
	"magirls/internal/repository"
	"magirls/internal/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

type SaleService interface {
	Checkout(ctx context.Context, actor uuid.UUID, req dto.CheckoutRequest) (*dto.CheckoutResponse, error)
	GetSale(ctx context.Context, id uuid.UUID) (*dto.SaleResponse, error)
	ListSales(ctx context.Context, filter dto.SaleFilter) (*dto.SaleListResponse, error)
	// ReceiptPDF returns the path of the sale's PDF receipt, rendering it
	// when the worker has not done so yet.
	ReceiptPDF(ctx context.Context, id uuid.UUID) (string, error)
}

type saleService struct {
	tx         repository.TxManager
	warehouses repository.WarehouseRepository
	catalog    repository.CatalogRepository
	ledger     repository.StockLedger
	customers  repository.CustomerRepository
	sales      repository.SaleRepository
	allocator  *StockAllocator
	jobs       JobQueue
	events     EventPublisher
	cfg        *config.Config
}

// NewSaleService wires the checkout engine. jobs and events may be nil.
func NewSaleService(
	tx repository.TxManager,
	warehouses repository.WarehouseRepository,
	catalog repository.CatalogRepository,
	ledger repository.StockLedger,
	customers repository.CustomerRepository,
	sales repository.SaleRepository,
	allocator *StockAllocator,
	jobs JobQueue,
	events EventPublisher,
	cfg *config.Config,
) SaleService {
	return &saleService{
		tx:         tx,
		warehouses: warehouses,
		catalog:    catalog,
		ledger:     ledger,
		customers:  customers,
		sales:      sales,
		allocator:  allocator,
		jobs:       jobs,
		events:     events,
		cfg:        cfg,
	}
}

// pricedLine is a validated cart line with its price frozen.
type pricedLine struct {
	code      string
	variant   *model.VariantSnapshot
	qty       int
	unitPrice decimal.Decimal
	lineTotal decimal.Decimal
}

// ── Checkout ─────────────────────────────────────────────────────────────────
//   1. Validate every line against catalog and ledger (read only)
//   2. Freeze unit prices, compute subtotal = total
//   3. One unit of work: customer, ticket number, sale + items, FIFO allocation
//   4. After commit: metrics, live events, receipt and low stock jobs

func (s *saleService) Checkout(ctx context.Context, actor uuid.UUID, req dto.CheckoutRequest) (*dto.CheckoutResponse, error) {
	start := time.Now()
	resp, err := s.checkout(ctx, actor, req)

	var race *StockRaceError
	var failed *CheckoutFailedError
	switch {
	case err == nil:
		infra.CheckoutsTotal.WithLabelValues(infra.CheckoutConfirmed).Inc()
		infra.CheckoutDuration.Observe(time.Since(start).Seconds())
	case errors.As(err, &race):
		infra.CheckoutsTotal.WithLabelValues(infra.CheckoutStockRace).Inc()
	case errors.As(err, &failed):
		infra.CheckoutsTotal.WithLabelValues(infra.CheckoutFailed).Inc()
	default:
		infra.CheckoutsTotal.WithLabelValues(infra.CheckoutRejected).Inc()
	}
	return resp, err
}

func (s *saleService) checkout(ctx context.Context, actor uuid.UUID, req dto.CheckoutRequest) (*dto.CheckoutResponse, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyCart
	}

	warehouse, err := s.warehouses.EnsureDefault(ctx, s.cfg.DefaultWarehouseName)
	if err != nil {
		return nil, fmt.Errorf("resolve default warehouse: %w", err)
	}

	lines, subtotal, err := s.priceCart(ctx, warehouse.ID, req.Items)
	if err != nil {
		return nil, err
	}

	customerName := trimmed(req.CustomerName)
	sale := model.Sale{
		WarehouseID:     warehouse.ID,
		CustomerName:    customerName,
		Subtotal:        subtotal,
		Total:           subtotal,
		Currency:        s.cfg.Currency,
		Status:          model.SaleConfirmed,
		CreatedByUserID: actor,
	}
	for _, l := range lines {
		sale.Items = append(sale.Items, model.SaleItem{
			VariantID:   l.variant.VariantID,
			BarcodeCode: l.code,
			ProductName: l.variant.ProductName,
			Qty:         l.qty,
			UnitPrice:   l.unitPrice,
			LineTotal:   l.lineTotal,
		})
	}

	var allocations []*AllocationResult
	txErr := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if customerName != nil {
			c, err := s.customers.FindOrCreate(txCtx, *customerName, trimmed(req.CustomerPhone), trimmed(req.CustomerEmail))
			if err != nil {
				return fmt.Errorf("resolve customer: %w", err)
			}
			sale.CustomerID = &c.ID
		}

		ticket, err := s.sales.NextTicketNumber(txCtx)
		if err != nil {
			return fmt.Errorf("next ticket number: %w", err)
		}
		sale.TicketNumber = ticket

		if err := s.sales.Create(txCtx, &sale); err != nil {
			return fmt.Errorf("create sale: %w", err)
		}

		for _, l := range lines {
			res, err := s.allocator.Allocate(txCtx, AllocationRequest{
				WarehouseID: warehouse.ID,
				VariantID:   l.variant.VariantID,
				Product:     l.variant.ProductName,
				Qty:         l.qty,
				Actor:       actor,
				SaleID:      sale.ID,
			})
			if err != nil {
				return err
			}
			allocations = append(allocations, res)
		}
		return nil
	})
	if txErr != nil {
		var race *StockRaceError
		if errors.As(txErr, &race) {
			return nil, race
		}
		log.Error().Err(txErr).Str("actor", actor.String()).Msg("checkout rolled back")
		return nil, &CheckoutFailedError{Cause: txErr}
	}

	log.Info().
		Str("sale_id", sale.ID.String()).
		Int64("ticket_number", sale.TicketNumber).
		Str("total", sale.Total.StringFixed(2)).
		Int("lines", len(sale.Items)).
		Msg("sale confirmed")

	s.afterCommit(ctx, warehouse.ID, &sale, allocations, trimmed(req.CustomerEmail))

	return &dto.CheckoutResponse{
		SaleID:       sale.ID.String(),
		TicketNumber: sale.TicketNumber,
		Subtotal:     sale.Subtotal,
		Total:        sale.Total,
		Currency:     sale.Currency,
	}, nil
}

// priceCart validates all lines before anything is written. Lines repeating
// a variant are checked against the combined quantity.
func (s *saleService) priceCart(ctx context.Context, warehouseID uuid.UUID, items []dto.CartLineRequest) ([]pricedLine, decimal.Decimal, error) {
	lines := make([]pricedLine, 0, len(items))
	requested := make(map[uuid.UUID]int, len(items))
	subtotal := decimal.Zero

	for _, item := range items {
		if item.Qty <= 0 {
			return nil, decimal.Zero, ErrInvalidQuantity
		}
		v, err := s.catalog.FindByCode(ctx, item.Code)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, decimal.Zero, &UnknownCodeError{Code: item.Code}
		}
		if err != nil {
			return nil, decimal.Zero, fmt.Errorf("resolve code %s: %w", item.Code, err)
		}

		available, err := s.ledger.SumForVariant(ctx, warehouseID, v.VariantID)
		if err != nil {
			return nil, decimal.Zero, fmt.Errorf("stock of %s: %w", v.ProductName, err)
		}
		if available <= 0 {
			return nil, decimal.Zero, &OutOfStockError{Product: v.ProductName}
		}
		requested[v.VariantID] += item.Qty
		if requested[v.VariantID] > available {
			return nil, decimal.Zero, &InsufficientStockError{Product: v.ProductName, Available: available}
		}

		lineTotal := v.SalePrice.Mul(decimal.NewFromInt(int64(item.Qty)))
		subtotal = subtotal.Add(lineTotal)
		lines = append(lines, pricedLine{
			code:      item.Code,
			variant:   v,
			qty:       item.Qty,
			unitPrice: v.SalePrice,
			lineTotal: lineTotal,
		})
	}
	return lines, subtotal, nil
}

// afterCommit runs best-effort side effects. Failures are logged only; the
// sale is already durable.
func (s *saleService) afterCommit(ctx context.Context, warehouseID uuid.UUID, sale *model.Sale, allocations []*AllocationResult, customerEmail *string) {
	variants := make(map[uuid.UUID]string)
	for _, a := range allocations {
		infra.StockMovementsTotal.WithLabelValues(string(model.MovementDecreaseSale)).Add(float64(len(a.Takes)))
	}
	for _, it := range sale.Items {
		variants[it.VariantID] = it.ProductName
	}

	if s.events != nil {
		s.events.Publish(EventSaleConfirmed, SaleConfirmedEvent{
			SaleID:       sale.ID.String(),
			TicketNumber: sale.TicketNumber,
			Total:        sale.Total,
			Currency:     sale.Currency,
		})
	}

	var low []worker.LowStockItem
	for variantID, name := range variants {
		qty, err := s.ledger.SumForVariant(ctx, warehouseID, variantID)
		if err != nil {
			log.Warn().Err(err).Str("variant_id", variantID.String()).Msg("post-commit stock read failed")
			continue
		}
		if s.events != nil {
			s.events.Publish(EventStockUpdated, StockUpdatedEvent{VariantID: variantID.String(), QtyOnHand: qty})
		}
		if qty <= s.cfg.LowStockThreshold {
			low = append(low, worker.LowStockItem{ProductName: name, QtyOnHand: qty})
		}
	}

	if s.jobs == nil {
		return
	}
	if err := s.jobs.EnqueueReceipt(ctx, worker.ReceiptJobPayload{
		SaleID:        sale.ID.String(),
		CustomerEmail: customerEmail,
	}); err != nil {
		log.Warn().Err(err).Str("sale_id", sale.ID.String()).Msg("enqueue receipt failed")
	}
	if len(low) > 0 {
		if err := s.jobs.EnqueueLowStockAlert(ctx, worker.LowStockJobPayload{
			TicketNumber: sale.TicketNumber,
			Items:        low,
		}); err != nil {
			log.Warn().Err(err).Msg("enqueue low stock alert failed")
		}
	}
}

// ── Read side ────────────────────────────────────────────────────────────────

func (s *saleService) GetSale(ctx context.Context, id uuid.UUID) (*dto.SaleResponse, error) {
	sale, err := s.sales.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, &NotFoundError{Entity: "Sale"}
	}
	if err != nil {
		return nil, err
	}
	resp := saleToResponse(sale)
	return &resp, nil
}

func (s *saleService) ListSales(ctx context.Context, filter dto.SaleFilter) (*dto.SaleListResponse, error) {
	sales, total, err := s.sales.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	data := make([]dto.SaleResponse, 0, len(sales))
	for i := range sales {
		data = append(data, saleToResponse(&sales[i]))
	}
	return &dto.SaleListResponse{Data: data, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

func (s *saleService) ReceiptPDF(ctx context.Context, id uuid.UUID) (string, error) {
	sale, err := s.sales.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return "", &NotFoundError{Entity: "Sale"}
	}
	if err != nil {
		return "", err
	}
	path := infra.ReceiptPath(s.cfg.ReceiptStoragePath, sale.TicketNumber)
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	return infra.GenerateReceiptPDF(sale, s.cfg.StoreName, s.cfg.ReceiptStoragePath)
}

func saleToResponse(s *model.Sale) dto.SaleResponse {
	items := make([]dto.SaleItemResponse, 0, len(s.Items))
	for _, it := range s.Items {
		items = append(items, dto.SaleItemResponse{
			VariantID:   it.VariantID.String(),
			BarcodeCode: it.BarcodeCode,
			ProductName: it.ProductName,
			Qty:         it.Qty,
			UnitPrice:   it.UnitPrice,
			LineTotal:   it.LineTotal,
		})
	}
	return dto.SaleResponse{
		ID:           s.ID.String(),
		TicketNumber: s.TicketNumber,
		CustomerName: s.CustomerName,
		Subtotal:     s.Subtotal,
		Total:        s.Total,
		Currency:     s.Currency,
		Status:       string(s.Status),
		CreatedBy:    s.CreatedByUserID.String(),
		CreatedAt:    s.CreatedAt.Format(time.RFC3339),
		Items:        items,
	}
}

// trimmed returns nil for nil or blank strings.
func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}
