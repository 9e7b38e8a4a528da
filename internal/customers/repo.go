// Package customers handles fruit intake: the people dropping off crates and
// the entries that open their pressing orders.
package customers

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vincentbui21/SmartJuiceSystem/pkg/db/models"
	"github.com/vincentbui21/SmartJuiceSystem/pkg/pagination"
)

// Repository exposes persistence helpers for customers.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, customer *models.Customer) error
	Get(ctx context.Context, id uuid.UUID) (*models.Customer, error)
	GetWithOrders(ctx context.Context, id uuid.UUID) (*models.Customer, error)
	Save(ctx context.Context, customer *models.Customer) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, params listCustomersParams) ([]models.Customer, *pagination.Cursor, error)
	FindByPhone(ctx context.Context, phone string) (*models.Customer, error)
	OrderIDs(ctx context.Context, customerID uuid.UUID) ([]uuid.UUID, error)
	SmsStatus(ctx context.Context, customerID uuid.UUID) (*models.SmsStatus, error)
	DeleteSmsStatus(ctx context.Context, customerID uuid.UUID) error

	CreateOrder(ctx context.Context, order *models.Order) error
	CreateCrates(ctx context.Context, crates []models.Crate) error
	DeleteBoxesForOrders(ctx context.Context, orderIDs []uuid.UUID) error
	DeleteCratesForOrders(ctx context.Context, orderIDs []uuid.UUID) error
	DeleteOrders(ctx context.Context, customerID uuid.UUID) error
}

type listCustomersParams struct {
	Search string
	Limit  int
	Cursor *pagination.Cursor
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a customers repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, customer *models.Customer) error {
	return r.db.WithContext(ctx).Create(customer).Error
}

func (r *repositoryImpl) Get(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	var customer models.Customer
	if err := r.db.WithContext(ctx).First(&customer, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *repositoryImpl) GetWithOrders(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	var customer models.Customer
	err := r.db.WithContext(ctx).
		Preload("Orders", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC")
		}).
		First(&customer, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *repositoryImpl) Save(ctx context.Context, customer *models.Customer) error {
	return r.db.WithContext(ctx).Save(customer).Error
}

func (r *repositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Customer{}, "id = ?", id).Error
}

func (r *repositoryImpl) List(ctx context.Context, params listCustomersParams) ([]models.Customer, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)

	query := r.db.WithContext(ctx).Model(&models.Customer{})
	if params.Search != "" {
		like := "%" + params.Search + "%"
		query = query.Where("LOWER(name) LIKE LOWER(?) OR phone LIKE ?", like, like)
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var customers []models.Customer
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&customers).Error; err != nil {
		return nil, nil, err
	}

	if len(customers) > normalized {
		next := customers[normalized]
		customers = customers[:normalized]
		return customers, &pagination.Cursor{CreatedAt: next.CreatedAt, ID: next.ID}, nil
	}
	return customers, nil, nil
}

func (r *repositoryImpl) FindByPhone(ctx context.Context, phone string) (*models.Customer, error) {
	var customer models.Customer
	if err := r.db.WithContext(ctx).First(&customer, "phone = ?", phone).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *repositoryImpl) OrderIDs(ctx context.Context, customerID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("customer_id = ?", customerID).
		Pluck("id", &ids).Error
	return ids, err
}

func (r *repositoryImpl) SmsStatus(ctx context.Context, customerID uuid.UUID) (*models.SmsStatus, error) {
	var status models.SmsStatus
	if err := r.db.WithContext(ctx).First(&status, "customer_id = ?", customerID).Error; err != nil {
		return nil, err
	}
	return &status, nil
}

func (r *repositoryImpl) DeleteSmsStatus(ctx context.Context, customerID uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.SmsStatus{}, "customer_id = ?", customerID).Error
}

func (r *repositoryImpl) CreateOrder(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repositoryImpl) CreateCrates(ctx context.Context, crates []models.Crate) error {
	if len(crates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&crates).Error
}

func (r *repositoryImpl) DeleteBoxesForOrders(ctx context.Context, orderIDs []uuid.UUID) error {
	if len(orderIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Delete(&models.Box{}, "order_id IN ?", orderIDs).Error
}

func (r *repositoryImpl) DeleteCratesForOrders(ctx context.Context, orderIDs []uuid.UUID) error {
	if len(orderIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Delete(&models.Crate{}, "order_id IN ?", orderIDs).Error
}

func (r *repositoryImpl) DeleteOrders(ctx context.Context, customerID uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Order{}, "customer_id = ?", customerID).Error
}
