package service

import (
	"context"
	"errors"
	"fmt"

	"magirls/internal/config"
	"magirls/internal/dto"
	"magirls/internal/model"
	"magirls/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const initialStockReason = "Initial stock on scan upsert"

// PriceCache is the lookup cache behind the public price check.
// Implemented by infra.PriceCache.
type PriceCache interface {
	Get(ctx context.Context, code string, dst interface{}) bool
	Set(ctx context.Context, code string, v interface{}) error
	Evict(ctx context.Context, codes ...string) error
}

type CatalogService interface {
	ScanUpsert(ctx context.Context, actor uuid.UUID, req dto.ScanUpsertRequest) (*dto.ScanUpsertResponse, error)
	GetByCode(ctx context.Context, code string) (*dto.VariantResponse, error)
	PriceCheck(ctx context.Context, code string) (*dto.PriceCheckResponse, error)
	ListItems(ctx context.Context) ([]dto.InventoryItemResponse, error)
	UpdateItem(ctx context.Context, variantID uuid.UUID, req dto.UpdateItemRequest) (*dto.InventoryItemResponse, error)
	DeleteItem(ctx context.Context, variantID uuid.UUID) (*dto.DeleteItemResponse, error)
	LowStock(ctx context.Context) ([]dto.LowStockItemResponse, error)
}

type catalogService struct {
	tx         repository.TxManager
	catalog    repository.CatalogRepository
	warehouses repository.WarehouseRepository
	batches    repository.BatchRepository
	receiver   *StockReceiver
	cache      PriceCache
	cfg        *config.Config
}

// NewCatalogService wires catalog maintenance. cache may be nil.
func NewCatalogService(
	tx repository.TxManager,
	catalog repository.CatalogRepository,
	warehouses repository.WarehouseRepository,
	batches repository.BatchRepository,
	receiver *StockReceiver,
	cache PriceCache,
	cfg *config.Config,
) CatalogService {
	return &catalogService{
		tx:         tx,
		catalog:    catalog,
		warehouses: warehouses,
		batches:    batches,
		receiver:   receiver,
		cache:      cache,
		cfg:        cfg,
	}
}

// ScanUpsert registers an unknown code as a new product with one variant,
// its primary barcode and the default batch. Known codes are returned as is.
func (s *catalogService) ScanUpsert(ctx context.Context, actor uuid.UUID, req dto.ScanUpsertRequest) (*dto.ScanUpsertResponse, error) {
	existing, err := s.catalog.FindByCode(ctx, req.Code)
	if err == nil {
		return &dto.ScanUpsertResponse{Created: false, Message: "Code already exists", Variant: snapshotToResponse(existing)}, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if req.PurchasePrice.IsNegative() || req.SalePrice.IsNegative() {
		return nil, ErrNegativePrice
	}
	if req.InitialQty < 0 {
		return nil, ErrInvalidQuantity
	}

	warehouse, err := s.warehouses.EnsureDefault(ctx, s.cfg.DefaultWarehouseName)
	if err != nil {
		return nil, fmt.Errorf("resolve default warehouse: %w", err)
	}

	product := &model.Product{
		Name:        req.ProductName,
		Brand:       req.Brand,
		Category:    req.Category,
		Description: req.Description,
		PhotoURL:    req.PhotoURL,
		IsActive:    true,
		Variants: []model.ProductVariant{{
			VariantName:   req.VariantName,
			Color:         req.Color,
			Size:          req.Size,
			Location:      req.Location,
			PurchasePrice: req.PurchasePrice,
			SalePrice:     req.SalePrice,
			IsActive:      true,
		}},
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.catalog.CreateProduct(txCtx, product); err != nil {
			return fmt.Errorf("create product: %w", err)
		}
		variantID := product.Variants[0].ID
		if err := s.catalog.CreateBarcode(txCtx, &model.VariantBarcode{
			BarcodeCode: req.Code,
			VariantID:   variantID,
			IsPrimary:   true,
		}); err != nil {
			return fmt.Errorf("link code %s: %w", req.Code, err)
		}

		if req.InitialQty == 0 {
			_, err := s.batches.Ensure(txCtx, warehouse.ID, variantID, model.DefaultBatchCode, nil)
			return err
		}
		_, err := s.receiver.Receive(txCtx, ReceiptRequest{
			WarehouseID: warehouse.ID,
			VariantID:   variantID,
			Qty:         req.InitialQty,
			Actor:       actor,
			Reason:      initialStockReason,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("code", req.Code).
		Str("variant_id", product.Variants[0].ID.String()).
		Int("initial_qty", req.InitialQty).
		Msg("catalog item created from scan")

	created, err := s.catalog.FindByCode(ctx, req.Code)
	if err != nil {
		return nil, err
	}
	return &dto.ScanUpsertResponse{Created: true, Variant: snapshotToResponse(created)}, nil
}

func (s *catalogService) GetByCode(ctx context.Context, code string) (*dto.VariantResponse, error) {
	v, err := s.catalog.FindByCode(ctx, code)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, &UnknownCodeError{Code: code}
	}
	if err != nil {
		return nil, err
	}
	resp := snapshotToResponse(v)
	return &resp, nil
}

// PriceCheck answers the public price lookup, served from cache when warm.
func (s *catalogService) PriceCheck(ctx context.Context, code string) (*dto.PriceCheckResponse, error) {
	var cached dto.PriceCheckResponse
	if s.cache != nil && s.cache.Get(ctx, code, &cached) {
		return &cached, nil
	}

	v, err := s.catalog.FindByCode(ctx, code)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, &UnknownCodeError{Code: code}
	}
	if err != nil {
		return nil, err
	}
	resp := &dto.PriceCheckResponse{
		ProductName: v.ProductName,
		VariantName: v.VariantName,
		SalePrice:   v.SalePrice,
		InStock:     v.QtyOnHand > 0,
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, code, resp); err != nil {
			log.Debug().Err(err).Str("code", code).Msg("price cache set failed")
		}
	}
	return resp, nil
}

func (s *catalogService) ListItems(ctx context.Context) ([]dto.InventoryItemResponse, error) {
	items, err := s.catalog.ListItems(ctx)
	if err != nil {
		return nil, err
	}
	resp := make([]dto.InventoryItemResponse, len(items))
	for i := range items {
		resp[i] = itemToResponse(&items[i])
	}
	return resp, nil
}

// UpdateItem applies a partial update to a variant and its product. Past
// sales keep their frozen unit prices.
func (s *catalogService) UpdateItem(ctx context.Context, variantID uuid.UUID, req dto.UpdateItemRequest) (*dto.InventoryItemResponse, error) {
	if (req.PurchasePrice != nil && req.PurchasePrice.IsNegative()) ||
		(req.SalePrice != nil && req.SalePrice.IsNegative()) {
		return nil, ErrNegativePrice
	}
	if _, err := s.catalog.FindItem(ctx, variantID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &NotFoundError{Entity: "Variant"}
		}
		return nil, err
	}

	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		v, err := s.catalog.FindVariant(txCtx, variantID)
		if err != nil {
			return err
		}
		p := v.Product
		setIfPresent(&p.Name, req.ProductName)
		setOptional(&p.Brand, req.Brand)
		setOptional(&p.Category, req.Category)
		setOptional(&p.Description, req.Description)
		setOptional(&p.PhotoURL, req.PhotoURL)
		setOptional(&v.VariantName, req.VariantName)
		setOptional(&v.Color, req.Color)
		setOptional(&v.Size, req.Size)
		setOptional(&v.Location, req.Location)
		if req.PurchasePrice != nil {
			v.PurchasePrice = *req.PurchasePrice
		}
		if req.SalePrice != nil {
			v.SalePrice = *req.SalePrice
		}

		if err := s.catalog.SaveProduct(txCtx, p); err != nil {
			return fmt.Errorf("save product: %w", err)
		}
		if err := s.catalog.SaveVariant(txCtx, v); err != nil {
			return fmt.Errorf("save variant: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.evictPrices(ctx, variantID)

	item, err := s.catalog.FindItem(ctx, variantID)
	if err != nil {
		return nil, err
	}
	resp := itemToResponse(item)
	return &resp, nil
}

// DeleteItem soft-deletes the variant; the product follows once it has no
// active variant left. Movements and sales referencing it are untouched.
func (s *catalogService) DeleteItem(ctx context.Context, variantID uuid.UUID) (*dto.DeleteItemResponse, error) {
	var productDeactivated bool
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		productDeactivated, err = s.catalog.DeactivateVariant(txCtx, variantID)
		return err
	})
	if errors.Is(err, repository.ErrNotFound) {
		return nil, &NotFoundError{Entity: "Variant"}
	}
	if err != nil {
		return nil, err
	}
	s.evictPrices(ctx, variantID)

	log.Info().
		Str("variant_id", variantID.String()).
		Bool("product_deactivated", productDeactivated).
		Msg("variant deactivated")

	return &dto.DeleteItemResponse{OK: true, DeletedVariantID: variantID.String()}, nil
}

func (s *catalogService) LowStock(ctx context.Context) ([]dto.LowStockItemResponse, error) {
	items, err := s.catalog.ListLowStock(ctx, s.cfg.LowStockThreshold)
	if err != nil {
		return nil, err
	}
	resp := make([]dto.LowStockItemResponse, len(items))
	for i, it := range items {
		resp[i] = dto.LowStockItemResponse{
			VariantID:   it.VariantID.String(),
			ProductName: it.ProductName,
			VariantName: it.VariantName,
			QtyOnHand:   it.QtyOnHand,
			PrimaryCode: it.PrimaryCode,
		}
	}
	return resp, nil
}

func (s *catalogService) evictPrices(ctx context.Context, variantID uuid.UUID) {
	if s.cache == nil {
		return
	}
	codes, err := s.catalog.CodesForVariant(ctx, variantID)
	if err == nil {
		err = s.cache.Evict(ctx, codes...)
	}
	if err != nil {
		log.Warn().Err(err).Str("variant_id", variantID.String()).Msg("price cache eviction failed")
	}
}

func snapshotToResponse(v *model.VariantSnapshot) dto.VariantResponse {
	return dto.VariantResponse{
		Code:          v.Code,
		VariantID:     v.VariantID.String(),
		ProductName:   v.ProductName,
		VariantName:   v.VariantName,
		SalePrice:     v.SalePrice,
		PurchasePrice: v.PurchasePrice,
		QtyOnHand:     v.QtyOnHand,
	}
}

func itemToResponse(it *model.InventoryItem) dto.InventoryItemResponse {
	return dto.InventoryItemResponse{
		VariantID:     it.VariantID.String(),
		ProductName:   it.ProductName,
		VariantName:   it.VariantName,
		Category:      it.Category,
		Brand:         it.Brand,
		Location:      it.Location,
		PhotoURL:      it.PhotoURL,
		SalePrice:     it.SalePrice,
		PurchasePrice: it.PurchasePrice,
		QtyOnHand:     it.QtyOnHand,
		PrimaryCode:   it.PrimaryCode,
	}
}

func setIfPresent(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

// setOptional replaces a nullable column; an empty string clears it.
func setOptional(dst **string, v *string) {
	if v == nil {
		return
	}
	if *v == "" {
		*dst = nil
		return
	}
	val := *v
	*dst = &val
}
