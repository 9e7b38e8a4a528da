// Package dashboard aggregates warehouse counters for the staff overview.
package dashboard

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/vincentbui21/SmartJuiceSystem/pkg/db/models"
	"github.com/vincentbui21/SmartJuiceSystem/pkg/enums"
)

// Repository exposes aggregate queries for the dashboard.
type Repository interface {
	OrderCountsByStatus(ctx context.Context) (map[enums.OrderStatus]int64, error)
	CustomerCount(ctx context.Context) (int64, error)
	BoxCount(ctx context.Context) (int64, error)
	ShelvedBoxCount(ctx context.Context) (int64, error)
	ContainerCounts(ctx context.Context) (pallets, shelves int64, err error)
	BoxesPackedSince(ctx context.Context, since time.Time) (int64, error)
	DailyBoxCounts(ctx context.Context, since time.Time) ([]DailyCount, error)
}

// DailyCount is one day's packed box total.
type DailyCount struct {
	Day   string `json:"day"`
	Boxes int64  `json:"boxes"`
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a dashboard repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) OrderCountsByStatus(ctx context.Context) (map[enums.OrderStatus]int64, error) {
	type row struct {
		Status enums.OrderStatus
		Total  int64
	}
	var rows []row
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[enums.OrderStatus]int64, len(rows))
	for _, entry := range rows {
		counts[entry.Status] = entry.Total
	}
	return counts, nil
}

func (r *repositoryImpl) CustomerCount(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Customer{}).Count(&count).Error
	return count, err
}

func (r *repositoryImpl) BoxCount(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Box{}).Count(&count).Error
	return count, err
}

func (r *repositoryImpl) ShelvedBoxCount(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Box{}).
		Where("shelf_id IS NOT NULL").
		Count(&count).Error
	return count, err
}

func (r *repositoryImpl) ContainerCounts(ctx context.Context) (int64, int64, error) {
	var pallets, shelves int64
	if err := r.db.WithContext(ctx).Model(&models.Pallet{}).Count(&pallets).Error; err != nil {
		return 0, 0, err
	}
	if err := r.db.WithContext(ctx).Model(&models.Shelf{}).Count(&shelves).Error; err != nil {
		return 0, 0, err
	}
	return pallets, shelves, nil
}

func (r *repositoryImpl) BoxesPackedSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Box{}).
		Where("created_at >= ?", since).
		Count(&count).Error
	return count, err
}

func (r *repositoryImpl) DailyBoxCounts(ctx context.Context, since time.Time) ([]DailyCount, error) {
	var rows []DailyCount
	err := r.db.WithContext(ctx).
		Model(&models.Box{}).
		Select("DATE(created_at) AS day, COUNT(*) AS boxes").
		Where("created_at >= ?", since).
		Group("DATE(created_at)").
		Order("day ASC").
		Scan(&rows).Error
	return rows, err
}
