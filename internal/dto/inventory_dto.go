package dto

import "time"

// ─── Filter / List ──────────────────────────────────────────────────────────

// MovementFilter is bound from the query string of GET /v1/inventory/movements.
type MovementFilter struct {
	VariantID string `form:"variant_id" validate:"omitempty,uuid"`
	SaleID    string `form:"sale_id"    validate:"omitempty,uuid"`
	Kind      string `form:"kind"       validate:"omitempty,oneof=INCREASE_SCAN DECREASE_SALE"`
	Page      int    `form:"page,default=1"   validate:"min=1"`
	Limit     int    `form:"limit,default=50" validate:"min=1,max=500"`
}

// ─── Request DTOs ────────────────────────────────────────────────────────────

type ScanIncreaseRequest struct {
	Code   string  `json:"code"   validate:"required,min=1"`
	Qty    int     `json:"qty"    validate:"required,gt=0"`
	Reason *string `json:"reason" validate:"omitempty,max=250"`
}

// ReceiveStockRequest receives stock into a named lot. An empty BatchCode
// falls back to the default batch.
type ReceiveStockRequest struct {
	VariantID string     `json:"variant_id" validate:"required,uuid"`
	Qty       int        `json:"qty"        validate:"required,gt=0"`
	Reason    *string    `json:"reason"     validate:"omitempty,max=250"`
	BatchCode string     `json:"batch_code" validate:"omitempty,max=100"`
	ExpiresAt *time.Time `json:"expires_at"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type ScanIncreaseResponse struct {
	OK           bool `json:"ok"`
	UpdatedStock int  `json:"updated_stock"`
}

type ReceiveStockResponse struct {
	BatchID      string `json:"batch_id"`
	BatchCode    string `json:"batch_code"`
	BatchBalance int    `json:"batch_balance"`
	UpdatedStock int    `json:"updated_stock"`
}

type MovementResponse struct {
	ID              string  `json:"id"`
	WarehouseID     string  `json:"warehouse_id"`
	BatchID         string  `json:"batch_id"`
	VariantID       string  `json:"variant_id"`
	Kind            string  `json:"movement_type"`
	QtyDelta        int     `json:"qty_delta"`
	Reason          *string `json:"reason"`
	ReferenceSaleID *string `json:"reference_sale_id"`
	PerformedBy     string  `json:"performed_by_user_id"`
	CreatedAt       string  `json:"created_at"`
}

type MovementListResponse struct {
	Data  []MovementResponse `json:"data"`
	Total int64              `json:"total"`
	Page  int                `json:"page"`
	Limit int                `json:"limit"`
}

// BatchAuditResponse compares a batch balance with the sum of its movements.
type BatchAuditResponse struct {
	BatchID     string `json:"batch_id"`
	WarehouseID string `json:"warehouse_id"`
	Balance     int    `json:"balance"`
	MovementSum int    `json:"movement_sum"`
	Consistent  bool   `json:"consistent"`
}
