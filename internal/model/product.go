package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product groups one or more sellable variants (e.g. a dress in several sizes).
type Product struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name        string    `gorm:"index;not null"`
	Brand       *string
	Category    *string
	Description *string
	PhotoURL    *string
	IsActive    bool `gorm:"not null;default:true"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Variants []ProductVariant `gorm:"foreignKey:ProductID"`
}

// ProductVariant is the unit that is priced, stocked and sold.
// Inactive variants are invisible to barcode lookup and checkout.
type ProductVariant struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProductID     uuid.UUID `gorm:"type:uuid;not null;index"`
	VariantName   *string
	Color         *string
	Size          *string
	Location      *string
	PurchasePrice decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0"`
	SalePrice     decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0"`
	IsActive      bool            `gorm:"not null;default:true"`
	CreatedAt     time.Time
	UpdatedAt     time.Time

	Product *Product `gorm:"foreignKey:ProductID"`
}

// DisplayName returns the explicit variant name, or "color / size" when only
// those attributes are set. Returns nil when nothing describes the variant.
func (v *ProductVariant) DisplayName() *string {
	if v.VariantName != nil {
		return v.VariantName
	}
	var parts []string
	for _, p := range []*string{v.Color, v.Size} {
		if p != nil {
			parts = append(parts, *p)
		}
	}
	if len(parts) == 0 {
		return nil
	}
	name := strings.Join(parts, " / ")
	return &name
}

// VariantBarcode links a scanned code to a variant. A variant may carry several
// codes; IsPrimary marks the one shown in listings.
type VariantBarcode struct {
	BarcodeCode string    `gorm:"primaryKey"`
	VariantID   uuid.UUID `gorm:"type:uuid;not null;index"`
	IsPrimary   bool      `gorm:"not null;default:false"`
	CreatedAt   time.Time
}

// TableName keeps the join table name used by the SQL migrations.
func (VariantBarcode) TableName() string { return "barcode_variants" }
