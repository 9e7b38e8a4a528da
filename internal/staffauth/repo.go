// Package staffauth authenticates warehouse staff and issues access tokens.
package staffauth

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vincentbui21/SmartJuiceSystem/pkg/db/models"
)

// Repository exposes persistence helpers for staff accounts.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ByUsername(ctx context.Context, username string) (*models.Account, error)
	ByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
	Create(ctx context.Context, account *models.Account) error
	Save(ctx context.Context, account *models.Account) error
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns an accounts repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) ByUsername(ctx context.Context, username string) (*models.Account, error) {
	var account models.Account
	if err := r.db.WithContext(ctx).First(&account, "username = ?", username).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *repositoryImpl) ByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	var account models.Account
	if err := r.db.WithContext(ctx).First(&account, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *repositoryImpl) Create(ctx context.Context, account *models.Account) error {
	return r.db.WithContext(ctx).Create(account).Error
}

func (r *repositoryImpl) Save(ctx context.Context, account *models.Account) error {
	return r.db.WithContext(ctx).Save(account).Error
}
