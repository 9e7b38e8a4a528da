// Package settings stores the tunable processing parameters, pickup cities
// and SMS templates, guarded by an admin credential check.
package settings

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vincentbui21/SmartJuiceSystem/pkg/db/models"
)

// Repository exposes persistence helpers for settings rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Get(ctx context.Context, key string) (*models.Setting, error)
	GetAll(ctx context.Context) ([]models.Setting, error)
	Upsert(ctx context.Context, key, value string) error

	ListCities(ctx context.Context) ([]models.City, error)
	CreateCity(ctx context.Context, city *models.City) error
	DeleteCity(ctx context.Context, id uuid.UUID) error

	ListTemplates(ctx context.Context) ([]models.SmsTemplate, error)
	UpsertTemplate(ctx context.Context, locationKey, body string) error
	DeleteTemplate(ctx context.Context, locationKey string) error

	AccountByUsername(ctx context.Context, username string) (*models.Account, error)
	SaveAccount(ctx context.Context, account *models.Account) error
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a settings repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Get(ctx context.Context, key string) (*models.Setting, error) {
	var setting models.Setting
	if err := r.db.WithContext(ctx).First(&setting, "key = ?", key).Error; err != nil {
		return nil, err
	}
	return &setting, nil
}

func (r *repositoryImpl) GetAll(ctx context.Context) ([]models.Setting, error) {
	var settings []models.Setting
	err := r.db.WithContext(ctx).Order("key ASC").Find(&settings).Error
	return settings, err
}

func (r *repositoryImpl) Upsert(ctx context.Context, key, value string) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.Assignments(map[string]any{"value": value}),
		}).
		Create(&models.Setting{Key: key, Value: value}).Error
}

func (r *repositoryImpl) ListCities(ctx context.Context) ([]models.City, error) {
	var cities []models.City
	err := r.db.WithContext(ctx).Order("name ASC").Find(&cities).Error
	return cities, err
}

func (r *repositoryImpl) CreateCity(ctx context.Context, city *models.City) error {
	return r.db.WithContext(ctx).Create(city).Error
}

func (r *repositoryImpl) DeleteCity(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.City{}, "id = ?", id).Error
}

func (r *repositoryImpl) ListTemplates(ctx context.Context) ([]models.SmsTemplate, error) {
	var templates []models.SmsTemplate
	err := r.db.WithContext(ctx).Order("location_key ASC").Find(&templates).Error
	return templates, err
}

func (r *repositoryImpl) UpsertTemplate(ctx context.Context, locationKey, body string) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "location_key"}},
			DoUpdates: clause.Assignments(map[string]any{"body": body}),
		}).
		Create(&models.SmsTemplate{ID: uuid.New(), LocationKey: locationKey, Body: body}).Error
}

func (r *repositoryImpl) DeleteTemplate(ctx context.Context, locationKey string) error {
	return r.db.WithContext(ctx).Delete(&models.SmsTemplate{}, "location_key = ?", locationKey).Error
}

func (r *repositoryImpl) AccountByUsername(ctx context.Context, username string) (*models.Account, error) {
	var account models.Account
	if err := r.db.WithContext(ctx).First(&account, "username = ?", username).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *repositoryImpl) SaveAccount(ctx context.Context, account *models.Account) error {
	return r.db.WithContext(ctx).Save(account).Error
}
