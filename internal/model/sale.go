package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SaleStatus is only ever CONFIRMED once persisted; pending sales live in memory.
type SaleStatus string

const SaleConfirmed SaleStatus = "CONFIRMED"

type Sale struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	TicketNumber    int64      `gorm:"uniqueIndex;not null"`
	WarehouseID     uuid.UUID  `gorm:"type:uuid;not null"`
	CustomerID      *uuid.UUID `gorm:"type:uuid"`
	CustomerName    *string
	Subtotal        decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	Total           decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	Currency        string          `gorm:"type:char(3);not null"`
	Status          SaleStatus      `gorm:"type:varchar(20);not null"`
	CreatedByUserID uuid.UUID       `gorm:"type:uuid;not null"`
	CreatedAt       time.Time

	Items []SaleItem `gorm:"foreignKey:SaleID"`
}

// SaleItem freezes the unit price and product name at checkout time; later
// catalog edits never touch it.
type SaleItem struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SaleID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	VariantID   uuid.UUID       `gorm:"type:uuid;not null"`
	BarcodeCode string          `gorm:"not null"`
	ProductName string          `gorm:"not null"`
	Qty         int             `gorm:"not null"`
	UnitPrice   decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	LineTotal   decimal.Decimal `gorm:"type:numeric(12,2);not null"`
}
