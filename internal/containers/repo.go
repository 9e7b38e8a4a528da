// Package containers keeps the pallet and shelf ledger consistent: every box
// placement goes through slot reservation and a holding recount.
package containers

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vincentbui21/SmartJuiceSystem/pkg/db/models"
	"github.com/vincentbui21/SmartJuiceSystem/pkg/enums"
)

// Repository exposes persistence helpers for pallets, shelves and box rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreatePallet(ctx context.Context, pallet *models.Pallet) error
	CreateShelf(ctx context.Context, shelf *models.Shelf) error
	GetPallet(ctx context.Context, id uuid.UUID) (*models.Pallet, error)
	GetShelf(ctx context.Context, id uuid.UUID) (*models.Shelf, error)
	LockPallet(ctx context.Context, id uuid.UUID) (*models.Pallet, error)
	LockShelf(ctx context.Context, id uuid.UUID) (*models.Shelf, error)
	SavePallet(ctx context.Context, pallet *models.Pallet) error
	SaveShelf(ctx context.Context, shelf *models.Shelf) error
	ListPallets(ctx context.Context, location string) ([]models.Pallet, error)
	ListShelves(ctx context.Context, location string) ([]models.Shelf, error)
	ShelfLocations(ctx context.Context) ([]string, error)
	DetachBoxesFromPallet(ctx context.Context, id uuid.UUID) error
	DetachBoxesFromShelf(ctx context.Context, id uuid.UUID) error
	DeletePallet(ctx context.Context, id uuid.UUID) error
	DeleteShelf(ctx context.Context, id uuid.UUID) error

	GetBox(ctx context.Context, id string) (*models.Box, error)
	LockBox(ctx context.Context, id string) (*models.Box, error)
	SaveBox(ctx context.Context, box *models.Box) error
	CreateBoxIfAbsent(ctx context.Context, box *models.Box) error
	GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	CountShelvedBoxes(ctx context.Context, orderID uuid.UUID) (int64, error)
	CountBoxes(ctx context.Context, kind enums.ContainerKind, id uuid.UUID) (int64, error)
	BoxesOn(ctx context.Context, kind enums.ContainerKind, id uuid.UUID) ([]models.Box, error)
	OrdersForBoxes(ctx context.Context, orderIDs []uuid.UUID) ([]models.Order, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a containers repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

// locked adds a row lock on dialects that support it. The sqlite test
// harness runs the same queries without the clause.
func (r *repositoryImpl) locked(query *gorm.DB) *gorm.DB {
	if r.db.Dialector.Name() == "postgres" {
		return query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return query
}

func (r *repositoryImpl) CreatePallet(ctx context.Context, pallet *models.Pallet) error {
	return r.db.WithContext(ctx).Create(pallet).Error
}

func (r *repositoryImpl) CreateShelf(ctx context.Context, shelf *models.Shelf) error {
	return r.db.WithContext(ctx).Create(shelf).Error
}

func (r *repositoryImpl) GetPallet(ctx context.Context, id uuid.UUID) (*models.Pallet, error) {
	var pallet models.Pallet
	if err := r.db.WithContext(ctx).First(&pallet, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &pallet, nil
}

func (r *repositoryImpl) GetShelf(ctx context.Context, id uuid.UUID) (*models.Shelf, error) {
	var shelf models.Shelf
	if err := r.db.WithContext(ctx).First(&shelf, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &shelf, nil
}

func (r *repositoryImpl) LockPallet(ctx context.Context, id uuid.UUID) (*models.Pallet, error) {
	var pallet models.Pallet
	if err := r.locked(r.db.WithContext(ctx)).First(&pallet, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &pallet, nil
}

func (r *repositoryImpl) LockShelf(ctx context.Context, id uuid.UUID) (*models.Shelf, error) {
	var shelf models.Shelf
	if err := r.locked(r.db.WithContext(ctx)).First(&shelf, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &shelf, nil
}

func (r *repositoryImpl) SavePallet(ctx context.Context, pallet *models.Pallet) error {
	return r.db.WithContext(ctx).Save(pallet).Error
}

func (r *repositoryImpl) SaveShelf(ctx context.Context, shelf *models.Shelf) error {
	return r.db.WithContext(ctx).Save(shelf).Error
}

func (r *repositoryImpl) ListPallets(ctx context.Context, location string) ([]models.Pallet, error) {
	query := r.db.WithContext(ctx).Preload("Boxes")
	if location != "" {
		query = query.Where("location = ?", location)
	}
	var pallets []models.Pallet
	err := query.Order("created_at ASC, id ASC").Find(&pallets).Error
	return pallets, err
}

func (r *repositoryImpl) ListShelves(ctx context.Context, location string) ([]models.Shelf, error) {
	query := r.db.WithContext(ctx).Preload("Boxes")
	if location != "" {
		query = query.Where("location = ?", location)
	}
	var shelves []models.Shelf
	err := query.Order("location ASC, label ASC, id ASC").Find(&shelves).Error
	return shelves, err
}

func (r *repositoryImpl) ShelfLocations(ctx context.Context) ([]string, error) {
	var locations []string
	err := r.db.WithContext(ctx).
		Model(&models.Shelf{}).
		Distinct("location").
		Order("location ASC").
		Pluck("location", &locations).Error
	return locations, err
}

func (r *repositoryImpl) DetachBoxesFromPallet(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Box{}).
		Where("pallet_id = ?", id).
		Update("pallet_id", nil).Error
}

func (r *repositoryImpl) DetachBoxesFromShelf(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Box{}).
		Where("shelf_id = ?", id).
		Update("shelf_id", nil).Error
}

func (r *repositoryImpl) DeletePallet(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Pallet{}, "id = ?", id).Error
}

func (r *repositoryImpl) DeleteShelf(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Shelf{}, "id = ?", id).Error
}

func (r *repositoryImpl) GetBox(ctx context.Context, id string) (*models.Box, error) {
	var box models.Box
	if err := r.db.WithContext(ctx).First(&box, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &box, nil
}

func (r *repositoryImpl) LockBox(ctx context.Context, id string) (*models.Box, error) {
	var box models.Box
	if err := r.locked(r.db.WithContext(ctx)).First(&box, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &box, nil
}

func (r *repositoryImpl) SaveBox(ctx context.Context, box *models.Box) error {
	return r.db.WithContext(ctx).Save(box).Error
}

func (r *repositoryImpl) CountBoxes(ctx context.Context, kind enums.ContainerKind, id uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Box{}).
		Where(containerColumn(kind)+" = ?", id).
		Count(&count).Error
	return count, err
}

func (r *repositoryImpl) BoxesOn(ctx context.Context, kind enums.ContainerKind, id uuid.UUID) ([]models.Box, error) {
	var boxes []models.Box
	err := r.db.WithContext(ctx).
		Where(containerColumn(kind)+" = ?", id).
		Order("order_id ASC, ordinal ASC").
		Find(&boxes).Error
	return boxes, err
}

func (r *repositoryImpl) OrdersForBoxes(ctx context.Context, orderIDs []uuid.UUID) ([]models.Order, error) {
	if len(orderIDs) == 0 {
		return nil, nil
	}
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Preload("Customer").
		Where("id IN ?", orderIDs).
		Find(&orders).Error
	return orders, err
}

func containerColumn(kind enums.ContainerKind) string {
	if kind == enums.ContainerKindShelf {
		return "shelf_id"
	}
	return "pallet_id"
}

// CreateBoxIfAbsent materializes a box row decoded from a scanned label.
// The label is the primary key, so an existing row wins.
func (r *repositoryImpl) CreateBoxIfAbsent(ctx context.Context, box *models.Box) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(box).Error
}

func (r *repositoryImpl) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// CountShelvedBoxes counts an order's boxes that sit on any shelf.
func (r *repositoryImpl) CountShelvedBoxes(ctx context.Context, orderID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Box{}).
		Where("order_id = ? AND shelf_id IS NOT NULL", orderID).
		Count(&count).Error
	return count, err
}
