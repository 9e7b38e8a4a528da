package models

import (
	"time"

	"github.com/google/uuid"
)

// SmsTemplate holds the pickup message body for one shelf location.
// LocationKey "default" is the fallback when no location matches.
type SmsTemplate struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	LocationKey string    `gorm:"column:location_key;type:text;not null;uniqueIndex"`
	Body        string    `gorm:"column:body;type:text;not null"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
