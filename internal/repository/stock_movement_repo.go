package repository

import (
	"context"

	"magirls/internal/dto"
	"magirls/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StockMovementRepository is append-only: there is no update or delete.
type StockMovementRepository interface {
	Create(ctx context.Context, m *model.StockMovement) error
	List(ctx context.Context, filter dto.MovementFilter) ([]model.StockMovement, int64, error)
	SumDeltasForBatch(ctx context.Context, warehouseID, batchID uuid.UUID) (int, error)
}

type stockMovementRepo struct{ db *gorm.DB }

func NewStockMovementRepository(db *gorm.DB) StockMovementRepository {
	return &stockMovementRepo{db: db}
}

func (r *stockMovementRepo) Create(ctx context.Context, m *model.StockMovement) error {
	return translateError(getDB(ctx, r.db).Create(m).Error)
}

func (r *stockMovementRepo) List(ctx context.Context, filter dto.MovementFilter) ([]model.StockMovement, int64, error) {
	q := getDB(ctx, r.db).Model(&model.StockMovement{})
	if filter.VariantID != "" {
		q = q.Where("variant_id = ?", filter.VariantID)
	}
	if filter.SaleID != "" {
		q = q.Where("reference_sale_id = ?", filter.SaleID)
	}
	if filter.Kind != "" {
		q = q.Where("movement_type = ?", filter.Kind)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, translateError(err)
	}

	page := filter.Page
	limit := filter.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 500 {
		limit = 100
	}
	offset := (page - 1) * limit

	var movements []model.StockMovement
	err := q.Order("created_at DESC, id DESC").Offset(offset).Limit(limit).Find(&movements).Error
	return movements, total, translateError(err)
}

func (r *stockMovementRepo) SumDeltasForBatch(ctx context.Context, warehouseID, batchID uuid.UUID) (int, error) {
	var sum int
	err := getDB(ctx, r.db).Model(&model.StockMovement{}).
		Select("COALESCE(SUM(qty_delta), 0)").
		Where("warehouse_id = ? AND batch_id = ?", warehouseID, batchID).
		Scan(&sum).Error
	return sum, translateError(err)
}
