package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

// ScanUpsertRequest registers a scanned code that is not yet in the catalog.
type ScanUpsertRequest struct {
	Code          string          `json:"code"           validate:"required,min=1,max=200"`
	ProductName   string          `json:"product_name"   validate:"required,min=1,max=250"`
	Brand         *string         `json:"brand"`
	Category      *string         `json:"category"`
	Description   *string         `json:"description"`
	PhotoURL      *string         `json:"photo_url"      validate:"omitempty,url"`
	VariantName   *string         `json:"variant_name"`
	Color         *string         `json:"color"`
	Size          *string         `json:"size"`
	Location      *string         `json:"location"`
	PurchasePrice decimal.Decimal `json:"purchase_price" validate:"min=0"`
	SalePrice     decimal.Decimal `json:"sale_price"     validate:"min=0"`
	InitialQty    int             `json:"initial_qty"    validate:"min=0"`
}

// UpdateItemRequest is a partial update: nil fields keep their current value.
type UpdateItemRequest struct {
	ProductName   *string          `json:"product_name"   validate:"omitempty,min=1,max=250"`
	Brand         *string          `json:"brand"`
	Category      *string          `json:"category"`
	Description   *string          `json:"description"`
	PhotoURL      *string          `json:"photo_url"`
	VariantName   *string          `json:"variant_name"`
	Color         *string          `json:"color"`
	Size          *string          `json:"size"`
	Location      *string          `json:"location"`
	PurchasePrice *decimal.Decimal `json:"purchase_price" validate:"omitempty,min=0"`
	SalePrice     *decimal.Decimal `json:"sale_price"     validate:"omitempty,min=0"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type VariantResponse struct {
	Code          string          `json:"code"`
	VariantID     string          `json:"variant_id"`
	ProductName   string          `json:"product_name"`
	VariantName   *string         `json:"variant_name"`
	SalePrice     decimal.Decimal `json:"sale_price"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
	QtyOnHand     int             `json:"qty_on_hand"`
}

type ScanUpsertResponse struct {
	Created bool            `json:"created"`
	Message string          `json:"message,omitempty"`
	Variant VariantResponse `json:"variant"`
}

type InventoryItemResponse struct {
	VariantID     string          `json:"variant_id"`
	ProductName   string          `json:"product_name"`
	VariantName   *string         `json:"variant_name"`
	Category      *string         `json:"category"`
	Brand         *string         `json:"brand"`
	Location      *string         `json:"location"`
	PhotoURL      *string         `json:"photo_url"`
	SalePrice     decimal.Decimal `json:"sale_price"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
	QtyOnHand     int             `json:"qty_on_hand"`
	PrimaryCode   *string         `json:"primary_code"`
}

type LowStockItemResponse struct {
	VariantID   string  `json:"variant_id"`
	ProductName string  `json:"product_name"`
	VariantName *string `json:"variant_name"`
	QtyOnHand   int     `json:"qty_on_hand"`
	PrimaryCode *string `json:"primary_code"`
}

type DeleteItemResponse struct {
	OK               bool   `json:"ok"`
	DeletedVariantID string `json:"deleted_variant_id"`
}

// PriceCheckResponse is served by the public price lookup and cached in Redis.
type PriceCheckResponse struct {
	ProductName string          `json:"product_name"`
	VariantName *string         `json:"variant_name"`
	SalePrice   decimal.Decimal `json:"sale_price"`
	InStock     bool            `json:"in_stock"`
}
