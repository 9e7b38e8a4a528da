package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/vincentbui21/SmartJuiceSystem/pkg/enums"
)

// Crate is one physical intake crate tied to an order. Sequence and Total
// render the "3/5" position printed on the crate label.
type Crate struct {
	ID        uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	OrderID   uuid.UUID         `gorm:"column:order_id;type:uuid;not null;index"`
	Sequence  int               `gorm:"column:sequence;not null;default:0"`
	Total     int               `gorm:"column:total;not null;default:0"`
	Status    enums.CrateStatus `gorm:"column:status;type:text;not null;default:'waiting'"`
	CreatedAt time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
