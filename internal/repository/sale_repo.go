package repository

import (
	"context"

	"magirls/internal/dto"
	"magirls/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SaleRepository interface {
	NextTicketNumber(ctx context.Context) (int64, error)
	Create(ctx context.Context, s *model.Sale) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Sale, error)
	List(ctx context.Context, filter dto.SaleFilter) ([]model.Sale, int64, error)
}

type saleRepo struct{ db *gorm.DB }

func NewSaleRepository(db *gorm.DB) SaleRepository { return &saleRepo{db: db} }

func (r *saleRepo) NextTicketNumber(ctx context.Context) (int64, error) {
	// Sequence values are never reused; a rolled back checkout leaves a gap.
	var num int64
	err := getDB(ctx, r.db).Raw("SELECT nextval('sales_ticket_number_seq')").Scan(&num).Error
	return num, translateError(err)
}

// Create inserts the sale header together with its items.
func (r *saleRepo) Create(ctx context.Context, s *model.Sale) error {
	return translateError(getDB(ctx, r.db).Create(s).Error)
}

func (r *saleRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Sale, error) {
	var s model.Sale
	err := getDB(ctx, r.db).Preload("Items").First(&s, "id = ?", id).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &s, nil
}

func (r *saleRepo) List(ctx context.Context, filter dto.SaleFilter) ([]model.Sale, int64, error) {
	var sales []model.Sale
	var total int64

	page := filter.Page
	limit := filter.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 200 {
		limit = 50
	}
	offset := (page - 1) * limit

	q := getDB(ctx, r.db).Model(&model.Sale{})
	if filter.Date != "" {
		q = q.Where("DATE(created_at) = ?", filter.Date)
	} else {
		q = q.Where("DATE(created_at) = CURRENT_DATE")
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, translateError(err)
	}

	err := q.Preload("Items").
		Order("ticket_number DESC").
		Offset(offset).Limit(limit).
		Find(&sales).Error
	return sales, total, translateError(err)
}
