package models

import (
	"time"

	"github.com/google/uuid"
)

// Customer is a person who drops off fruit for pressing.
type Customer struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name      string    `gorm:"column:name;type:text;not null"`
	Phone     string    `gorm:"column:phone;type:text;not null"`
	Email     *string   `gorm:"column:email;type:text"`
	City      *string   `gorm:"column:city;type:text"`
	Orders    []Order   `gorm:"foreignKey:CustomerID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
