package dto

import "github.com/shopspring/decimal"

// ─── Filter / List ──────────────────────────────────────────────────────────

// SaleFilter is bound from the query string of GET /v1/sales.
type SaleFilter struct {
	Date  string `form:"date"            validate:"omitempty,datetime=2006-01-02"` // empty = today
	Page  int    `form:"page,default=1"   validate:"min=1"`
	Limit int    `form:"limit,default=50" validate:"min=1,max=200"`
}

type SaleListResponse struct {
	Data  []SaleResponse `json:"data"`
	Total int64          `json:"total"`
	Page  int            `json:"page"`
	Limit int            `json:"limit"`
}

// ─── Request DTOs ────────────────────────────────────────────────────────────

type CartLineRequest struct {
	Code string `json:"code" validate:"required,min=1"`
	Qty  int    `json:"qty"  validate:"required,gt=0"`
}

// CheckoutRequest allows an empty item list through validation so the
// service can answer with its own "Cart is empty" error.
type CheckoutRequest struct {
	CustomerName  *string           `json:"customer_name"  validate:"omitempty,max=200"`
	CustomerPhone *string           `json:"customer_phone" validate:"omitempty,max=50"`
	CustomerEmail *string           `json:"customer_email" validate:"omitempty,email"`
	Items         []CartLineRequest `json:"items"          validate:"dive"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type CheckoutResponse struct {
	SaleID       string          `json:"sale_id"`
	TicketNumber int64           `json:"ticket_number"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	Total        decimal.Decimal `json:"total"`
	Currency     string          `json:"currency"`
}

type SaleItemResponse struct {
	VariantID   string          `json:"variant_id"`
	BarcodeCode string          `json:"barcode_code"`
	ProductName string          `json:"product_name"`
	Qty         int             `json:"qty"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

type SaleResponse struct {
	ID           string             `json:"id"`
	TicketNumber int64              `json:"ticket_number"`
	CustomerName *string            `json:"customer_name"`
	Subtotal     decimal.Decimal    `json:"subtotal"`
	Total        decimal.Decimal    `json:"total"`
	Currency     string             `json:"currency"`
	Status       string             `json:"status"`
	CreatedBy    string             `json:"created_by_user_id"`
	CreatedAt    string             `json:"created_at"`
	Items        []SaleItemResponse `json:"items"`
}

type DashboardSummaryResponse struct {
	InvestedAmount  decimal.Decimal `json:"invested_amount"`
	GrossSales      decimal.Decimal `json:"gross_sales"`
	CostOfGoodsSold decimal.Decimal `json:"cost_of_goods_sold"`
	Profit          decimal.Decimal `json:"profit"`
}
