package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/vincentbui21/SmartJuiceSystem/pkg/enums"
)

// Shelf is a fixed pickup location slot.
type Shelf struct {
	ID        uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	Label     string                `gorm:"column:label;type:text;not null"`
	Location  string                `gorm:"column:location;type:text;not null;index"`
	Capacity  int                   `gorm:"column:capacity;not null"`
	Holding   int                   `gorm:"column:holding;not null;default:0"`
	Status    enums.ContainerStatus `gorm:"column:status;type:text;not null;default:'available'"`
	Boxes     []Box                 `gorm:"foreignKey:ShelfID"`
	CreatedAt time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
