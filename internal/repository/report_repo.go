package repository

import (
	"context"

	"magirls/internal/model"

	"gorm.io/gorm"
)

type ReportRepository interface {
	DashboardSummary(ctx context.Context) (*model.DashboardSummary, error)
}

type reportRepo struct{ db *gorm.DB }

func NewReportRepository(db *gorm.DB) ReportRepository { return &reportRepo{db: db} }

// DashboardSummary values stock at current purchase prices and measures
// confirmed sales only.
func (r *reportRepo) DashboardSummary(ctx context.Context) (*model.DashboardSummary, error) {
	var s model.DashboardSummary
	err := getDB(ctx, r.db).Raw(`
		WITH invested AS (
		  SELECT COALESCE(SUM(vs.qty_on_hand * pv.purchase_price), 0) AS amount
		  FROM v_variant_stock vs
		  JOIN product_variants pv ON pv.id = vs.variant_id
		  JOIN products p ON p.id = pv.product_id
		  WHERE pv.is_active = TRUE AND p.is_active = TRUE AND vs.qty_on_hand > 0
		),
		sales_gross AS (
		  SELECT COALESCE(SUM(total), 0) AS amount
		  FROM sales
		  WHERE status = 'CONFIRMED'
		),
		cogs AS (
		  SELECT COALESCE(SUM(si.qty * pv.purchase_price), 0) AS amount
		  FROM sale_items si
		  JOIN sales s ON s.id = si.sale_id
		  JOIN product_variants pv ON pv.id = si.variant_id
		  WHERE s.status = 'CONFIRMED'
		)
		SELECT invested.amount AS invested_amount,
		       sales_gross.amount AS gross_sales,
		       cogs.amount AS cost_of_goods_sold,
		       (sales_gross.amount - cogs.amount) AS profit
		FROM invested, sales_gross, cogs`).
		Scan(&s).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &s, nil
}
