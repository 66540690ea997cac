package repository

import (
	"context"
	"time"

	"magirls/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BatchRepository interface {
	// Ensure returns the batch identified by (warehouse, variant, code),
	// creating it on first use. expiresAt only applies on creation.
	Ensure(ctx context.Context, warehouseID, variantID uuid.UUID, code string, expiresAt *time.Time) (*model.InventoryBatch, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.InventoryBatch, error)
	// ListAvailableFIFO returns the batches of a variant that still hold stock,
	// oldest first, and row-locks their balances for the rest of the transaction.
	ListAvailableFIFO(ctx context.Context, warehouseID, variantID uuid.UUID) ([]model.AvailableBatch, error)
	CountForVariant(ctx context.Context, warehouseID, variantID uuid.UUID) (int64, error)
}

type batchRepo struct{ db *gorm.DB }

func NewBatchRepository(db *gorm.DB) BatchRepository { return &batchRepo{db: db} }

func (r *batchRepo) Ensure(ctx context.Context, warehouseID, variantID uuid.UUID, code string, expiresAt *time.Time) (*model.InventoryBatch, error) {
	db := getDB(ctx, r.db)
	b := model.InventoryBatch{
		WarehouseID: warehouseID,
		VariantID:   variantID,
		BatchCode:   code,
		ExpiresAt:   expiresAt,
	}
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "warehouse_id"}, {Name: "variant_id"}, {Name: "batch_code"}},
		DoNothing: true,
	}).Create(&b).Error
	if err != nil {
		return nil, translateError(err)
	}

	var existing model.InventoryBatch
	err = db.Where("warehouse_id = ? AND variant_id = ? AND batch_code = ?", warehouseID, variantID, code).
		First(&existing).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &existing, nil
}

func (r *batchRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.InventoryBatch, error) {
	var b model.InventoryBatch
	if err := getDB(ctx, r.db).First(&b, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return &b, nil
}

func (r *batchRepo) ListAvailableFIFO(ctx context.Context, warehouseID, variantID uuid.UUID) ([]model.AvailableBatch, error) {
	var rows []model.AvailableBatch
	err := getDB(ctx, r.db).
		Table("stock_balances AS sb").
		Select("sb.batch_id, ib.batch_code, sb.qty_on_hand, ib.created_at").
		Joins("JOIN inventory_batches ib ON ib.id = sb.batch_id").
		Where("sb.warehouse_id = ? AND ib.variant_id = ? AND sb.qty_on_hand > 0", warehouseID, variantID).
		Order("ib.created_at ASC, ib.id ASC").
		Clauses(clause.Locking{Strength: "UPDATE", Table: clause.Table{Name: "sb"}}).
		Find(&rows).Error
	return rows, translateError(err)
}

func (r *batchRepo) CountForVariant(ctx context.Context, warehouseID, variantID uuid.UUID) (int64, error) {
	var n int64
	err := getDB(ctx, r.db).Model(&model.InventoryBatch{}).
		Where("warehouse_id = ? AND variant_id = ?", warehouseID, variantID).
		Count(&n).Error
	return n, translateError(err)
}
