package repository

import (
	"context"
	"errors"

	"magirls/internal/model"

	"gorm.io/gorm"
)

type WarehouseRepository interface {
	// EnsureDefault returns the oldest warehouse, creating one named name
	// when none exists yet.
	EnsureDefault(ctx context.Context, name string) (*model.Warehouse, error)
}

type warehouseRepo struct{ db *gorm.DB }

func NewWarehouseRepository(db *gorm.DB) WarehouseRepository { return &warehouseRepo{db: db} }

func (r *warehouseRepo) EnsureDefault(ctx context.Context, name string) (*model.Warehouse, error) {
	db := getDB(ctx, r.db)
	var w model.Warehouse
	err := db.Order("created_at ASC, id ASC").First(&w).Error
	if err == nil {
		return &w, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, translateError(err)
	}
	w = model.Warehouse{Name: name}
	if err := db.Create(&w).Error; err != nil {
		return nil, translateError(err)
	}
	return &w, nil
}
