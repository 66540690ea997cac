package model

import (
	"time"

	"github.com/google/uuid"
)

// MovementKind classifies why stock changed.
type MovementKind string

const (
	MovementIncreaseScan MovementKind = "INCREASE_SCAN"
	MovementDecreaseSale MovementKind = "DECREASE_SALE"
)

// StockMovement is an append-only audit row. Every ledger adjustment has
// exactly one movement carrying the same signed delta.
type StockMovement struct {
	ID              uuid.UUID    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	WarehouseID     uuid.UUID    `gorm:"type:uuid;not null"`
	BatchID         uuid.UUID    `gorm:"type:uuid;not null;index"`
	VariantID       uuid.UUID    `gorm:"type:uuid;not null;index"`
	Kind            MovementKind `gorm:"column:movement_type;type:varchar(20);not null"`
	QtyDelta        int          `gorm:"not null"`
	Reason          *string
	ReferenceSaleID *uuid.UUID `gorm:"type:uuid;index"`
	PerformedBy     uuid.UUID  `gorm:"column:performed_by_user_id;type:uuid;not null"`
	CreatedAt       time.Time
}
