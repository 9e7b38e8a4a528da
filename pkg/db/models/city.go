package models

import (
	"time"

	"github.com/google/uuid"
)

// City is a pickup city offered on the intake form.
type City struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name      string    `gorm:"column:name;type:text;not null;uniqueIndex"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
