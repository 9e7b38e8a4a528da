package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vincentbui21/SmartJuiceSystem/pkg/enums"
)

// Order is one pressing job for a customer's fruit intake.
type Order struct {
	ID         uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	CustomerID uuid.UUID         `gorm:"column:customer_id;type:uuid;not null;index"`
	Customer   *Customer         `gorm:"foreignKey:CustomerID"`
	WeightKg   decimal.Decimal   `gorm:"column:weight_kg;type:numeric(10,2);not null"`
	Status     enums.OrderStatus `gorm:"column:status;type:text;not null;default:'created'"`
	EstPouches int               `gorm:"column:est_pouches;not null;default:0"`
	BoxesCount int               `gorm:"column:boxes_count;not null;default:0"`
	// Operator-entered counts; when set they beat the derived estimates.
	PouchesOverride *int       `gorm:"column:pouches_override"`
	BoxesOverride   *int       `gorm:"column:boxes_override"`
	CrateCount      int        `gorm:"column:crate_count;not null;default:0"`
	Notes           *string    `gorm:"column:notes;type:text"`
	ReadyAt         *time.Time `gorm:"column:ready_at"`
	PickedUpAt      *time.Time `gorm:"column:picked_up_at"`
	Crates          []Crate    `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Boxes           []Box      `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
