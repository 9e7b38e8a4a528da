package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/vincentbui21/SmartJuiceSystem/pkg/enums"
)

// SmsStatus tracks pickup-notification delivery per customer.
type SmsStatus struct {
	CustomerID uuid.UUID               `gorm:"column:customer_id;type:uuid;primaryKey"`
	SentCount  int                     `gorm:"column:sent_count;not null;default:0"`
	LastStatus enums.SmsDeliveryStatus `gorm:"column:last_status;type:text;not null;default:'not_sent'"`
	LastSentAt *time.Time              `gorm:"column:last_sent_at"`
	UpdatedAt  time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}
