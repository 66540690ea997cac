package model

import (
	"time"

	"github.com/google/uuid"
)

// DefaultBatchCode identifies the implicit batch used when stock is received
// without lot tracking.
const DefaultBatchCode = "DEFAULT"

// Warehouse is a stock location. The oldest warehouse is the default one.
type Warehouse struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name      string    `gorm:"not null"`
	CreatedAt time.Time
}

// InventoryBatch is a lot of one variant at one warehouse. Batches are created
// lazily on first receipt and never deleted; CreatedAt (then ID) is the FIFO key.
type InventoryBatch struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	WarehouseID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_batch_identity"`
	VariantID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_batch_identity"`
	BatchCode   string    `gorm:"not null;uniqueIndex:idx_batch_identity"`
	ExpiresAt   *time.Time
	CreatedAt   time.Time
}

// StockBalance is the on-hand counter for one batch at one warehouse.
// The store enforces qty_on_hand >= 0 with a CHECK constraint.
type StockBalance struct {
	WarehouseID uuid.UUID `gorm:"type:uuid;primaryKey"`
	BatchID     uuid.UUID `gorm:"type:uuid;primaryKey"`
	QtyOnHand   int       `gorm:"not null;default:0"`
	UpdatedAt   time.Time
}

// AvailableBatch is a row of the FIFO consumption list.
type AvailableBatch struct {
	BatchID   uuid.UUID
	BatchCode string
	QtyOnHand int
	CreatedAt time.Time
}
