package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/vincentbui21/SmartJuiceSystem/pkg/enums"
)

// Pallet is a movable box container on the warehouse floor.
type Pallet struct {
	ID        uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	Location  string                `gorm:"column:location;type:text;not null;default:''"`
	Capacity  int                   `gorm:"column:capacity;not null"`
	Holding   int                   `gorm:"column:holding;not null;default:0"`
	Status    enums.ContainerStatus `gorm:"column:status;type:text;not null;default:'available'"`
	ShelfID   *uuid.UUID            `gorm:"column:shelf_id;type:uuid;index"`
	Boxes     []Box                 `gorm:"foreignKey:PalletID"`
	CreatedAt time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
