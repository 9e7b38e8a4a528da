// Package orders owns the pressing lifecycle from intake to pickup.
package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vincentbui21/SmartJuiceSystem/pkg/db/models"
	"github.com/vincentbui21/SmartJuiceSystem/pkg/enums"
	"github.com/vincentbui21/SmartJuiceSystem/pkg/pagination"
)

// Repository exposes persistence helpers for orders, crates and boxes.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Get(ctx context.Context, id uuid.UUID) (*models.Order, error)
	GetWithDetails(ctx context.Context, id uuid.UUID) (*models.Order, error)
	Save(ctx context.Context, order *models.Order) error
	ListByStatus(ctx context.Context, params listOrdersParams) ([]models.Order, *pagination.Cursor, error)
	SearchReady(ctx context.Context, query string) ([]models.Order, error)

	CreateBoxes(ctx context.Context, boxes []models.Box) error
	DeleteBoxes(ctx context.Context, orderID uuid.UUID) error
	BoxByID(ctx context.Context, id string) (*models.Box, error)
	LatestOrderForCustomer(ctx context.Context, customerID uuid.UUID) (*models.Order, error)
	CreateCrates(ctx context.Context, crates []models.Crate) error
	DeleteCrates(ctx context.Context, orderID uuid.UUID) error
	GetCrate(ctx context.Context, id uuid.UUID) (*models.Crate, error)
	UpdateCrateStatus(ctx context.Context, ids []uuid.UUID, status enums.CrateStatus) (int64, error)
	SetCratesStatusForOrder(ctx context.Context, orderID uuid.UUID, status enums.CrateStatus) error

	MarkReady(ctx context.Context, id uuid.UUID, now time.Time) (int64, error)
	MarkPickedUp(ctx context.Context, id uuid.UUID, now time.Time) (int64, error)
}

type listOrdersParams struct {
	Statuses []enums.OrderStatus
	Limit    int
	Cursor   *pagination.Cursor
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns an orders repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Get(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repositoryImpl) GetWithDetails(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Customer").
		Preload("Crates").
		Preload("Boxes").
		First(&order, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repositoryImpl) Save(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Save(order).Error
}

func (r *repositoryImpl) ListByStatus(ctx context.Context, params listOrdersParams) ([]models.Order, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)

	query := r.db.WithContext(ctx).Model(&models.Order{}).Preload("Customer")
	if len(params.Statuses) > 0 {
		query = query.Where("status IN ?", params.Statuses)
	} else {
		query = query.Where("status <> ?", enums.OrderStatusDeleted)
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var orders []models.Order
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&orders).Error; err != nil {
		return nil, nil, err
	}

	if len(orders) > normalized {
		next := orders[normalized]
		orders = orders[:normalized]
		return orders, &pagination.Cursor{CreatedAt: next.CreatedAt, ID: next.ID}, nil
	}
	return orders, nil, nil
}

func (r *repositoryImpl) SearchReady(ctx context.Context, query string) ([]models.Order, error) {
	like := "%" + query + "%"
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Preload("Customer").
		Joins("JOIN customers ON customers.id = orders.customer_id").
		Where("orders.status = ?", enums.OrderStatusReadyForPickup).
		Where("LOWER(customers.name) LIKE LOWER(?) OR customers.phone LIKE ?", like, like).
		Order("orders.ready_at ASC, orders.id ASC").
		Find(&orders).Error
	return orders, err
}

// CreateBoxes inserts labeled box rows. The label is the primary key, so a
// re-run of box assignment simply skips rows that already exist.
func (r *repositoryImpl) CreateBoxes(ctx context.Context, boxes []models.Box) error {
	if len(boxes) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&boxes).Error
}

func (r *repositoryImpl) DeleteBoxes(ctx context.Context, orderID uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Box{}, "order_id = ?", orderID).Error
}

func (r *repositoryImpl) BoxByID(ctx context.Context, id string) (*models.Box, error) {
	var box models.Box
	if err := r.db.WithContext(ctx).First(&box, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &box, nil
}

func (r *repositoryImpl) LatestOrderForCustomer(ctx context.Context, customerID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Where("customer_id = ? AND status <> ?", customerID, enums.OrderStatusDeleted).
		Order("created_at DESC, id DESC").
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repositoryImpl) CreateCrates(ctx context.Context, crates []models.Crate) error {
	if len(crates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&crates).Error
}

func (r *repositoryImpl) DeleteCrates(ctx context.Context, orderID uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Crate{}, "order_id = ?", orderID).Error
}

func (r *repositoryImpl) GetCrate(ctx context.Context, id uuid.UUID) (*models.Crate, error) {
	var crate models.Crate
	if err := r.db.WithContext(ctx).First(&crate, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &crate, nil
}

func (r *repositoryImpl) UpdateCrateStatus(ctx context.Context, ids []uuid.UUID, status enums.CrateStatus) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Model(&models.Crate{}).
		Where("id IN ?", ids).
		Update("status", status)
	return result.RowsAffected, result.Error
}

func (r *repositoryImpl) SetCratesStatusForOrder(ctx context.Context, orderID uuid.UUID, status enums.CrateStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Crate{}).
		Where("order_id = ?", orderID).
		Update("status", status).Error
}

// MarkReady is idempotent: the first call stamps ready_at and reports one
// row, repeats match nothing and report zero.
func (r *repositoryImpl) MarkReady(ctx context.Context, id uuid.UUID, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status NOT IN ?", id, []enums.OrderStatus{
			enums.OrderStatusReadyForPickup,
			enums.OrderStatusPickedUp,
			enums.OrderStatusDeleted,
		}).
		Updates(map[string]any{
			"status":   enums.OrderStatusReadyForPickup,
			"ready_at": gorm.Expr("COALESCE(ready_at, ?)", now),
		})
	return result.RowsAffected, result.Error
}

func (r *repositoryImpl) MarkPickedUp(ctx context.Context, id uuid.UUID, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", id, enums.OrderStatusReadyForPickup).
		Updates(map[string]any{
			"status":       enums.OrderStatusPickedUp,
			"picked_up_at": now,
		})
	return result.RowsAffected, result.Error
}
