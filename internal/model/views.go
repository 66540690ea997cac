package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// VariantSnapshot is the read model returned by barcode lookup: pricing plus
// on-hand summed over every batch of the variant.
type VariantSnapshot struct {
	Code          string
	VariantID     uuid.UUID
	ProductName   string
	VariantName   *string
	SalePrice     decimal.Decimal
	PurchasePrice decimal.Decimal
	QtyOnHand     int
}

// InventoryItem is one row of the inventory listing.
type InventoryItem struct {
	VariantID     uuid.UUID
	ProductID     uuid.UUID
	ProductName   string
	VariantName   *string
	Brand         *string
	Category      *string
	Description   *string
	PhotoURL      *string
	Color         *string
	Size          *string
	Location      *string
	SalePrice     decimal.Decimal
	PurchasePrice decimal.Decimal
	QtyOnHand     int
	PrimaryCode   *string
}

// DashboardSummary aggregates confirmed sales and stock valuation.
type DashboardSummary struct {
	InvestedAmount  decimal.Decimal
	GrossSales      decimal.Decimal
	CostOfGoodsSold decimal.Decimal
	Profit          decimal.Decimal
}
