package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/vincentbui21/SmartJuiceSystem/pkg/enums"
)

// ActivityEvent is one row on the dashboard activity feed. Rows are written
// in the same transaction as the change they describe.
type ActivityEvent struct {
	ID        uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	Type      enums.ActivityType `gorm:"column:type;type:text;not null"`
	Message   string             `gorm:"column:message;type:text;not null"`
	EntityID  *string            `gorm:"column:entity_id;type:text"`
	CreatedAt time.Time          `gorm:"column:created_at;autoCreateTime;index"`
}
