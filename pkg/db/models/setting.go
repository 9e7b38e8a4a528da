package models

import "time"

// Setting is one key/value processing parameter (pouch size, juice ratio, ...).
type Setting struct {
	Key       string    `gorm:"column:key;type:text;primaryKey"`
	Value     string    `gorm:"column:value;type:text;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
