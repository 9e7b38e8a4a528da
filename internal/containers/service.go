package containers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vincentbui21/SmartJuiceSystem/internal/token"
	"github.com/vincentbui21/SmartJuiceSystem/pkg/db/models"
	"github.com/vincentbui21/SmartJuiceSystem/pkg/enums"
	pkgerrors "github.com/vincentbui21/SmartJuiceSystem/pkg/errors"
	"github.com/vincentbui21/SmartJuiceSystem/pkg/realtime"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Target names one container.
type Target struct {
	Kind enums.ContainerKind
	ID   uuid.UUID
}

// State is a container's ledger position after a mutation.
type State struct {
	Holding int
	Status  enums.ContainerStatus
}

// ContentEntry joins a stored box with its order and customer.
type ContentEntry struct {
	Box      models.Box       `json:"box"`
	Order    *models.Order    `json:"order,omitempty"`
	Customer *models.Customer `json:"customer,omitempty"`
}

// Service maintains the container ledger.
type Service interface {
	CreatePallet(ctx context.Context, location string, capacity int) (*models.Pallet, error)
	CreateShelf(ctx context.Context, label, location string, capacity int) (*models.Shelf, error)
	ListPallets(ctx context.Context, location string) ([]models.Pallet, error)
	ListShelves(ctx context.Context, location string) ([]models.Shelf, error)
	Locations(ctx context.Context) ([]string, error)
	DeletePallet(ctx context.Context, id uuid.UUID) error
	DeleteShelf(ctx context.Context, id uuid.UUID) error
	Contents(ctx context.Context, target Target) ([]ContentEntry, error)
	MoveBox(ctx context.Context, rawToken string, target Target) (*State, error)

	// ReserveSlots and RecomputeHolding run inside a caller-owned
	// transaction and are shared with the assignment coordinator.
	ReserveSlots(ctx context.Context, tx *gorm.DB, target Target, n int) (*State, error)
	RecomputeHolding(ctx context.Context, tx *gorm.DB, target Target) (*State, error)
}

type service struct {
	tx     txRunner
	repo   Repository
	events realtime.Publisher
}

// NewService wires container ledger dependencies.
func NewService(tx txRunner, repo Repository, events realtime.Publisher) (Service, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "containers tx runner required")
	}
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "containers repository required")
	}
	return &service{tx: tx, repo: repo, events: events}, nil
}

func (s *service) CreatePallet(ctx context.Context, location string, capacity int) (*models.Pallet, error) {
	if capacity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pallet capacity must be positive")
	}
	pallet := &models.Pallet{
		ID:       uuid.New(),
		Location: strings.TrimSpace(location),
		Capacity: capacity,
		Status:   enums.ContainerStatusAvailable,
	}
	if err := s.repo.CreatePallet(ctx, pallet); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create pallet")
	}
	s.publish(realtime.EventPalletUpdated, pallet)
	return pallet, nil
}

func (s *service) CreateShelf(ctx context.Context, label, location string, capacity int) (*models.Shelf, error) {
	label = strings.TrimSpace(label)
	location = strings.TrimSpace(location)
	if label == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shelf label required")
	}
	if location == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shelf location required")
	}
	if capacity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shelf capacity must be positive")
	}
	shelf := &models.Shelf{
		ID:       uuid.New(),
		Label:    label,
		Location: location,
		Capacity: capacity,
		Status:   enums.ContainerStatusAvailable,
	}
	if err := s.repo.CreateShelf(ctx, shelf); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create shelf")
	}
	s.publish(realtime.EventShelfUpdated, shelf)
	return shelf, nil
}

func (s *service) ListPallets(ctx context.Context, location string) ([]models.Pallet, error) {
	pallets, err := s.repo.ListPallets(ctx, strings.TrimSpace(location))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list pallets")
	}
	return pallets, nil
}

func (s *service) ListShelves(ctx context.Context, location string) ([]models.Shelf, error) {
	shelves, err := s.repo.ListShelves(ctx, strings.TrimSpace(location))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list shelves")
	}
	return shelves, nil
}

func (s *service) Locations(ctx context.Context) ([]string, error) {
	locations, err := s.repo.ShelfLocations(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list shelf locations")
	}
	return locations, nil
}

// DeletePallet detaches any stored boxes before removing the pallet row so
// box labels stay resolvable.
func (s *service) DeletePallet(ctx context.Context, id uuid.UUID) error {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.LockPallet(ctx, id); err != nil {
			return translateNotFound(err, "pallet not found")
		}
		if err := repo.DetachBoxesFromPallet(ctx, id); err != nil {
			return err
		}
		return repo.DeletePallet(ctx, id)
	})
	if err != nil {
		return wrapLedgerErr(err, "delete pallet")
	}
	s.publish(realtime.EventPalletUpdated, map[string]any{"id": id, "deleted": true})
	return nil
}

func (s *service) DeleteShelf(ctx context.Context, id uuid.UUID) error {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.LockShelf(ctx, id); err != nil {
			return translateNotFound(err, "shelf not found")
		}
		if err := repo.DetachBoxesFromShelf(ctx, id); err != nil {
			return err
		}
		return repo.DeleteShelf(ctx, id)
	})
	if err != nil {
		return wrapLedgerErr(err, "delete shelf")
	}
	s.publish(realtime.EventShelfUpdated, map[string]any{"id": id, "deleted": true})
	return nil
}

func (s *service) Contents(ctx context.Context, target Target) ([]ContentEntry, error) {
	if err := s.checkTarget(ctx, target); err != nil {
		return nil, err
	}
	boxes, err := s.repo.BoxesOn(ctx, target.Kind, target.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load container boxes")
	}

	orderIDs := make([]uuid.UUID, 0, len(boxes))
	seen := map[uuid.UUID]struct{}{}
	for _, box := range boxes {
		if _, ok := seen[box.OrderID]; ok {
			continue
		}
		seen[box.OrderID] = struct{}{}
		orderIDs = append(orderIDs, box.OrderID)
	}
	orders, err := s.repo.OrdersForBoxes(ctx, orderIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load container orders")
	}
	byOrder := make(map[uuid.UUID]models.Order, len(orders))
	for _, order := range orders {
		byOrder[order.ID] = order
	}

	entries := make([]ContentEntry, 0, len(boxes))
	for _, box := range boxes {
		entry := ContentEntry{Box: box}
		if order, ok := byOrder[box.OrderID]; ok {
			entry.Order = &order
			entry.Customer = order.Customer
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// ReserveSlots row-locks the target container and fails the whole request
// when the batch would overflow it.
func (s *service) ReserveSlots(ctx context.Context, tx *gorm.DB, target Target, n int) (*State, error) {
	if n <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "slot count must be positive")
	}
	repo := s.repo.WithTx(tx)

	var capacity, holding int
	switch target.Kind {
	case enums.ContainerKindShelf:
		shelf, err := repo.LockShelf(ctx, target.ID)
		if err != nil {
			return nil, translateNotFound(err, "shelf not found")
		}
		capacity, holding = shelf.Capacity, shelf.Holding
	default:
		pallet, err := repo.LockPallet(ctx, target.ID)
		if err != nil {
			return nil, translateNotFound(err, "pallet not found")
		}
		capacity, holding = pallet.Capacity, pallet.Holding
	}

	if holding+n > capacity {
		return nil, pkgerrors.New(pkgerrors.CodeCapacity, "capacity exceeded").WithDetails(map[string]any{
			"kind":      target.Kind,
			"id":        target.ID,
			"capacity":  capacity,
			"holding":   holding,
			"requested": n,
		})
	}
	return &State{Holding: holding, Status: enums.ContainerStatusFor(holding, capacity)}, nil
}

// RecomputeHolding recounts box membership and rewrites holding and status.
// It corrects any drift instead of trusting incremental math.
func (s *service) RecomputeHolding(ctx context.Context, tx *gorm.DB, target Target) (*State, error) {
	repo := s.repo.WithTx(tx)
	count, err := repo.CountBoxes(ctx, target.Kind, target.ID)
	if err != nil {
		return nil, err
	}
	holding := int(count)

	switch target.Kind {
	case enums.ContainerKindShelf:
		shelf, err := repo.GetShelf(ctx, target.ID)
		if err != nil {
			return nil, translateNotFound(err, "shelf not found")
		}
		shelf.Holding = holding
		shelf.Status = enums.ContainerStatusFor(holding, shelf.Capacity)
		if err := repo.SaveShelf(ctx, shelf); err != nil {
			return nil, err
		}
		return &State{Holding: holding, Status: shelf.Status}, nil
	default:
		pallet, err := repo.GetPallet(ctx, target.ID)
		if err != nil {
			return nil, translateNotFound(err, "pallet not found")
		}
		pallet.Holding = holding
		pallet.Status = enums.ContainerStatusFor(holding, pallet.Capacity)
		if err := repo.SavePallet(ctx, pallet); err != nil {
			return nil, err
		}
		return &State{Holding: holding, Status: pallet.Status}, nil
	}
}

// MoveBox relocates one labeled box onto a target container. Moving a box
// already on the target is a no-op.
func (s *service) MoveBox(ctx context.Context, rawToken string, target Target) (*State, error) {
	boxID, err := token.NormalizeBox(rawToken)
	if err != nil {
		return nil, err
	}

	var state *State
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		box, err := repo.LockBox(ctx, boxID)
		if err != nil {
			return translateNotFound(err, "box not found")
		}

		source, onTarget := boxLocation(box)
		if onTarget != nil && *onTarget == target {
			current, err := s.RecomputeHolding(ctx, tx, target)
			if err != nil {
				return err
			}
			state = current
			return nil
		}

		if _, err := s.ReserveSlots(ctx, tx, target, 1); err != nil {
			return err
		}
		placeBox(box, target)
		if err := repo.SaveBox(ctx, box); err != nil {
			return err
		}

		if source != nil {
			if _, err := s.RecomputeHolding(ctx, tx, *source); err != nil {
				return err
			}
		}
		current, err := s.RecomputeHolding(ctx, tx, target)
		if err != nil {
			return err
		}
		state = current
		return nil
	})
	if err != nil {
		return nil, wrapLedgerErr(err, "move box")
	}

	s.publishTarget(target)
	return state, nil
}

func (s *service) checkTarget(ctx context.Context, target Target) error {
	var err error
	switch target.Kind {
	case enums.ContainerKindShelf:
		_, err = s.repo.GetShelf(ctx, target.ID)
	default:
		_, err = s.repo.GetPallet(ctx, target.ID)
	}
	if err != nil {
		return wrapLedgerErr(translateNotFound(err, "container not found"), "load container")
	}
	return nil
}

func (s *service) publishTarget(target Target) {
	name := realtime.EventPalletUpdated
	if target.Kind == enums.ContainerKindShelf {
		name = realtime.EventShelfUpdated
	}
	s.publish(name, map[string]any{"id": target.ID})
}

func (s *service) publish(name string, payload any) {
	if s.events == nil {
		return
	}
	s.events.Publish(realtime.Event{Name: name, Payload: payload, At: time.Now()})
}

// boxLocation reports where the box currently sits. The second value is set
// when the box is on any container at all.
func boxLocation(box *models.Box) (*Target, *Target) {
	if box.ShelfID != nil {
		t := Target{Kind: enums.ContainerKindShelf, ID: *box.ShelfID}
		return &t, &t
	}
	if box.PalletID != nil {
		t := Target{Kind: enums.ContainerKindPallet, ID: *box.PalletID}
		return &t, &t
	}
	return nil, nil
}

// placeBox sets the target FK and clears the other so a box is never on a
// pallet and a shelf at once.
func placeBox(box *models.Box, target Target) {
	id := target.ID
	if target.Kind == enums.ContainerKindShelf {
		box.ShelfID = &id
		box.PalletID = nil
		return
	}
	box.PalletID = &id
	box.ShelfID = nil
}

func translateNotFound(err error, message string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, message)
	}
	return err
}

func wrapLedgerErr(err error, message string) error {
	if err == nil {
		return nil
	}
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, message)
}
