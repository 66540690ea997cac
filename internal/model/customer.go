package model

import (
	"time"

	"github.com/google/uuid"
)

// Customer is deduplicated by (full name, phone); an empty phone equals none.
type Customer struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	FullName  string    `gorm:"not null"`
	Phone     *string
	Email     *string
	CreatedAt time.Time
}
