// Package dispatch sends pickup notifications when boxes land on a shelf. A
// short-lived redis guard collapses duplicate scanner submissions of the
// same load into one send.
package dispatch

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vincentbui21/SmartJuiceSystem/pkg/db/models"
	"github.com/vincentbui21/SmartJuiceSystem/pkg/enums"
)

// Repository exposes persistence helpers for notification bookkeeping.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Template(ctx context.Context, locationKey string) (*models.SmsTemplate, error)
	RecordDelivery(ctx context.Context, customerID uuid.UUID, status enums.SmsDeliveryStatus, at time.Time) error
	CustomerWithReadyOrders(ctx context.Context, customerID uuid.UUID) (*models.Customer, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a dispatch repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

// Template loads the body for a shelf location, falling back to the
// "default" row.
func (r *repositoryImpl) Template(ctx context.Context, locationKey string) (*models.SmsTemplate, error) {
	var template models.SmsTemplate
	err := r.db.WithContext(ctx).First(&template, "location_key = ?", locationKey).Error
	if err == nil {
		return &template, nil
	}
	if locationKey == defaultTemplateKey {
		return nil, err
	}
	return r.Template(ctx, defaultTemplateKey)
}

// RecordDelivery upserts the per-customer SMS counters. A successful send
// increments sent_count and stamps last_sent_at.
func (r *repositoryImpl) RecordDelivery(ctx context.Context, customerID uuid.UUID, status enums.SmsDeliveryStatus, at time.Time) error {
	row := models.SmsStatus{
		CustomerID: customerID,
		LastStatus: status,
	}
	assignments := map[string]any{"last_status": status}
	if status == enums.SmsDeliveryStatusSent {
		row.SentCount = 1
		row.LastSentAt = &at
		assignments["sent_count"] = gorm.Expr("sent_count + 1")
		assignments["last_sent_at"] = at
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "customer_id"}},
			DoUpdates: clause.Assignments(assignments),
		}).
		Create(&row).Error
}

func (r *repositoryImpl) CustomerWithReadyOrders(ctx context.Context, customerID uuid.UUID) (*models.Customer, error) {
	var customer models.Customer
	err := r.db.WithContext(ctx).
		Preload("Orders", "status = ?", enums.OrderStatusReadyForPickup).
		First(&customer, "id = ?", customerID).Error
	if err != nil {
		return nil, err
	}
	return &customer, nil
}
