package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/vincentbui21/SmartJuiceSystem/pkg/enums"
)

// Account is a staff login for the warehouse app.
type Account struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Username     string          `gorm:"column:username;type:text;not null;uniqueIndex"`
	PasswordHash string          `gorm:"column:password_hash;type:text;not null"`
	Role         enums.StaffRole `gorm:"column:role;type:text;not null;default:'employee'"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
