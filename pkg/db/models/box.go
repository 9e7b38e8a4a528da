package models

import (
	"time"

	"github.com/google/uuid"
)

// Box is a packed juice box. Its primary key is the printed label token,
// which embeds the owning order id so a scan alone can identify the order.
type Box struct {
	ID         string     `gorm:"column:id;type:text;primaryKey"`
	OrderID    uuid.UUID  `gorm:"column:order_id;type:uuid;not null;index"`
	CustomerID *uuid.UUID `gorm:"column:customer_id;type:uuid;index"`
	Ordinal    int        `gorm:"column:ordinal;not null;default:0"`
	PalletID   *uuid.UUID `gorm:"column:pallet_id;type:uuid;index"`
	ShelfID    *uuid.UUID `gorm:"column:shelf_id;type:uuid;index"`
	CreatedAt  time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
