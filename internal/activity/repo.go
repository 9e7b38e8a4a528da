// Package activity persists the dashboard feed. Every state change on an
// order or container records one event in the same transaction.
package activity

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vincentbui21/SmartJuiceSystem/pkg/db/models"
	"github.com/vincentbui21/SmartJuiceSystem/pkg/enums"
	"github.com/vincentbui21/SmartJuiceSystem/pkg/pagination"
)

// Repository exposes persistence helpers for activity events.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Record(ctx context.Context, eventType enums.ActivityType, message string, entityID string) error
	Recordf(ctx context.Context, eventType enums.ActivityType, entityID string, format string, args ...any) error
	ListRecent(ctx context.Context, limit int) ([]models.ActivityEvent, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns an activity repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Record(ctx context.Context, eventType enums.ActivityType, message string, entityID string) error {
	event := models.ActivityEvent{
		ID:      uuid.New(),
		Type:    eventType,
		Message: message,
	}
	if entityID != "" {
		event.EntityID = &entityID
	}
	return r.db.WithContext(ctx).Create(&event).Error
}

// Recordf is Record with a formatted message.
func (r *repositoryImpl) Recordf(ctx context.Context, eventType enums.ActivityType, entityID string, format string, args ...any) error {
	return r.Record(ctx, eventType, fmt.Sprintf(format, args...), entityID)
}

func (r *repositoryImpl) ListRecent(ctx context.Context, limit int) ([]models.ActivityEvent, error) {
	normalized := pagination.NormalizeLimit(limit)
	var events []models.ActivityEvent
	err := r.db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Limit(normalized).
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}
