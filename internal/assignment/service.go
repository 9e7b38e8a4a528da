// Package assignment coordinates scanned box batches onto pallets and
// shelves: capacity is enforced atomically across the whole batch, and shelf
// loads can trigger pickup notifications.
package assignment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vincentbui21/SmartJuiceSystem/internal/activity"
	"github.com/vincentbui21/SmartJuiceSystem/internal/containers"
	"github.com/vincentbui21/SmartJuiceSystem/internal/dispatch"
	"github.com/vincentbui21/SmartJuiceSystem/internal/orders"
	"github.com/vincentbui21/SmartJuiceSystem/internal/token"
	"github.com/vincentbui21/SmartJuiceSystem/pkg/db/models"
	"github.com/vincentbui21/SmartJuiceSystem/pkg/enums"
	pkgerrors "github.com/vincentbui21/SmartJuiceSystem/pkg/errors"
	"github.com/vincentbui21/SmartJuiceSystem/pkg/metrics"
	"github.com/vincentbui21/SmartJuiceSystem/pkg/realtime"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// AssignRequest is one scanner submission: a batch of box labels bound for
// one container.
type AssignRequest struct {
	TargetKind enums.ContainerKind
	TargetID   uuid.UUID
	BoxTokens  []string
	Notify     bool
}

// AssignResult reports the outcome of a batch.
type AssignResult struct {
	AssignedCount    int                   `json:"assignedCount"`
	ResultingHolding int                   `json:"resultingHolding"`
	Status           enums.ContainerStatus `json:"status"`
	ReadyOrders      []uuid.UUID           `json:"readyOrders"`
	Dispatch         *dispatch.Result      `json:"dispatch,omitempty"`

	// every distinct order with a box in the batch, ready or not; the
	// dispatcher notifies all of their customers
	implicatedOrders []uuid.UUID
}

// Service places box batches onto containers.
type Service interface {
	AssignBatch(ctx context.Context, req AssignRequest) (*AssignResult, error)
	AssignPalletToShelf(ctx context.Context, palletID, shelfID uuid.UUID, notify bool) (*AssignResult, error)
}

type service struct {
	tx         txRunner
	repo       containers.Repository
	ledger     containers.Service
	orders     orders.Service
	dispatcher dispatch.Service
	feed       activity.Repository
	events     realtime.Publisher
	metrics    *metrics.EngineMetrics
}

// NewService wires the assignment coordinator. The dispatcher, feed, events
// and metrics are optional.
func NewService(tx txRunner, repo containers.Repository, ledger containers.Service, orderSvc orders.Service, dispatcher dispatch.Service, feed activity.Repository, events realtime.Publisher, engineMetrics *metrics.EngineMetrics) (Service, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "assignment tx runner required")
	}
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "assignment repository required")
	}
	if ledger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "assignment container ledger required")
	}
	if orderSvc == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "assignment orders service required")
	}
	return &service{
		tx:         tx,
		repo:       repo,
		ledger:     ledger,
		orders:     orderSvc,
		dispatcher: dispatcher,
		feed:       feed,
		events:     events,
		metrics:    engineMetrics,
	}, nil
}

// resolvedBox pairs a canonical label with its parsed token.
type resolvedBox struct {
	Label string
	Token token.BoxToken
}

func (s *service) AssignBatch(ctx context.Context, req AssignRequest) (*AssignResult, error) {
	if !req.TargetKind.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid container kind")
	}

	// An empty batch is an accepted no-op; the holding recompute below
	// still runs so the container self-corrects.
	batch, err := normalizeBatch(req.BoxTokens)
	if err != nil {
		s.metrics.IncAssignmentBatch(req.TargetKind.String(), "invalid")
		return nil, err
	}

	result, err := s.assign(ctx, req.TargetKind, req.TargetID, batch, nil)
	if err != nil {
		s.metrics.IncAssignmentBatch(req.TargetKind.String(), failureLabel(err))
		return nil, err
	}
	s.metrics.IncAssignmentBatch(req.TargetKind.String(), "ok")
	s.metrics.AddBoxesAssigned(req.TargetKind.String(), result.AssignedCount)

	s.announce(ctx, req.TargetKind, req.TargetID, result)
	if req.TargetKind == enums.ContainerKindShelf && len(batch) > 0 {
		s.notify(ctx, req.TargetID, batchLabels(batch), result, req.Notify)
	}
	return result, nil
}

// AssignPalletToShelf moves a loaded pallet onto a shelf: every box on the
// pallet lands on the shelf and the pallet empties.
func (s *service) AssignPalletToShelf(ctx context.Context, palletID, shelfID uuid.UUID, notify bool) (*AssignResult, error) {
	boxes, err := s.repo.BoxesOn(ctx, enums.ContainerKindPallet, palletID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load pallet boxes")
	}
	if len(boxes) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "pallet holds no boxes")
	}

	batch := make([]resolvedBox, 0, len(boxes))
	for _, box := range boxes {
		batch = append(batch, resolvedBox{
			Label: box.ID,
			Token: token.BoxToken{OrderID: box.OrderID, Ordinal: box.Ordinal},
		})
	}

	result, err := s.assign(ctx, enums.ContainerKindShelf, shelfID, batch, &palletID)
	if err != nil {
		s.metrics.IncAssignmentBatch("pallet_to_shelf", failureLabel(err))
		return nil, err
	}
	s.metrics.IncAssignmentBatch("pallet_to_shelf", "ok")
	s.metrics.AddBoxesAssigned(enums.ContainerKindShelf.String(), result.AssignedCount)

	s.announce(ctx, enums.ContainerKindShelf, shelfID, result)
	s.publish(realtime.EventPalletUpdated, map[string]any{"id": palletID, "holding": 0})
	s.notify(ctx, shelfID, batchLabels(batch), result, notify)
	return result, nil
}

// assign runs the transactional core: reserve, move, recount, flip ready.
// sourcePallet, when set, is additionally parked on the target shelf.
func (s *service) assign(ctx context.Context, kind enums.ContainerKind, targetID uuid.UUID, batch []resolvedBox, sourcePallet *uuid.UUID) (*AssignResult, error) {
	target := containers.Target{Kind: kind, ID: targetID}
	result := &AssignResult{}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		boxes := make([]*models.Box, 0, len(batch))
		moving := 0
		touched := map[containers.Target]struct{}{}
		for _, item := range batch {
			box, err := s.resolveBox(ctx, repo, item)
			if err != nil {
				return err
			}
			boxes = append(boxes, box)
			if onTarget(box, target) {
				continue
			}
			moving++
			if source := currentTarget(box); source != nil {
				touched[*source] = struct{}{}
			}
		}

		if moving > 0 {
			if _, err := s.ledger.ReserveSlots(ctx, tx, target, moving); err != nil {
				return err
			}
		}

		orderIDs := make([]uuid.UUID, 0, len(boxes))
		seenOrders := map[uuid.UUID]struct{}{}
		for _, box := range boxes {
			if !onTarget(box, target) {
				place(box, target)
				if err := repo.SaveBox(ctx, box); err != nil {
					return err
				}
				result.AssignedCount++
			}
			if _, ok := seenOrders[box.OrderID]; !ok {
				seenOrders[box.OrderID] = struct{}{}
				orderIDs = append(orderIDs, box.OrderID)
			}
		}

		for source := range touched {
			if _, err := s.ledger.RecomputeHolding(ctx, tx, source); err != nil {
				return err
			}
		}
		state, err := s.ledger.RecomputeHolding(ctx, tx, target)
		if err != nil {
			return err
		}
		result.ResultingHolding = state.Holding
		result.Status = state.Status
		result.implicatedOrders = orderIDs

		if sourcePallet != nil {
			pallet, err := repo.GetPallet(ctx, *sourcePallet)
			if err != nil {
				return err
			}
			shelf := targetID
			pallet.ShelfID = &shelf
			if err := repo.SavePallet(ctx, pallet); err != nil {
				return err
			}
		}

		if kind != enums.ContainerKindShelf {
			return nil
		}
		for _, orderID := range orderIDs {
			order, err := repo.GetOrder(ctx, orderID)
			if err != nil {
				return err
			}
			if order.BoxesCount == 0 {
				continue
			}
			shelved, err := repo.CountShelvedBoxes(ctx, orderID)
			if err != nil {
				return err
			}
			if int(shelved) < order.BoxesCount {
				continue
			}
			updated, err := s.orders.MarkReadyInTx(ctx, tx, orderID)
			if err != nil {
				return err
			}
			if updated {
				result.ReadyOrders = append(result.ReadyOrders, orderID)
			}
		}
		return nil
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "assign boxes")
	}
	return result, nil
}

// resolveBox loads the scanned box row, materializing it from the label's
// embedded order id when pressing never created it.
func (s *service) resolveBox(ctx context.Context, repo containers.Repository, item resolvedBox) (*models.Box, error) {
	box, err := repo.LockBox(ctx, item.Label)
	if err == nil {
		return box, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	order, err := repo.GetOrder(ctx, item.Token.OrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no order for box "+item.Label)
		}
		return nil, err
	}

	fresh := &models.Box{
		ID:         item.Label,
		OrderID:    order.ID,
		CustomerID: &order.CustomerID,
		Ordinal:    item.Token.Ordinal,
	}
	if err := repo.CreateBoxIfAbsent(ctx, fresh); err != nil {
		return nil, err
	}
	return repo.GetBox(ctx, item.Label)
}

func (s *service) announce(ctx context.Context, kind enums.ContainerKind, id uuid.UUID, result *AssignResult) {
	name := realtime.EventPalletUpdated
	if kind == enums.ContainerKindShelf {
		name = realtime.EventShelfUpdated
	}
	s.publish(name, map[string]any{
		"id":      id,
		"holding": result.ResultingHolding,
		"status":  result.Status,
	})
	for _, orderID := range result.ReadyOrders {
		s.publish(realtime.EventOrderStatusUpdated, map[string]any{
			"orderId": orderID,
			"status":  enums.OrderStatusReadyForPickup,
		})
	}
	if s.feed != nil && result.AssignedCount > 0 {
		_ = s.feed.Recordf(ctx, enums.ActivityTypeBoxesAssigned, id.String(),
			"%d boxes placed on %s %s", result.AssignedCount, kind, id)
	}
}

// notify hands the shelf load to the dispatcher. Every customer with a box
// in the batch is implicated, not only those whose order just went ready.
// Dispatch failures do not void the completed assignment; the outcome rides
// along in the result.
func (s *service) notify(ctx context.Context, shelfID uuid.UUID, labels []string, result *AssignResult, send bool) {
	if s.dispatcher == nil || len(result.implicatedOrders) == 0 {
		return
	}
	shelf, err := s.repo.GetShelf(ctx, shelfID)
	if err != nil {
		return
	}
	orders, err := s.repo.OrdersForBoxes(ctx, result.implicatedOrders)
	if err != nil {
		return
	}

	dispatchResult, _ := s.dispatcher.NotifyShelfLoad(ctx, dispatch.ShelfLoadNotice{
		ShelfID:       shelfID,
		ShelfLabel:    shelf.Label,
		ShelfLocation: shelf.Location,
		BoxTokens:     labels,
		Orders:        orders,
		Send:          send,
	})
	result.Dispatch = dispatchResult
}

func (s *service) publish(name string, payload any) {
	if s.events == nil {
		return
	}
	s.events.Publish(realtime.Event{Name: name, Payload: payload, At: time.Now()})
}

// normalizeBatch canonicalizes and dedupes scanned labels. Any invalid label
// rejects the whole batch.
func normalizeBatch(raw []string) ([]resolvedBox, error) {
	seen := map[string]struct{}{}
	batch := make([]resolvedBox, 0, len(raw))
	for _, entry := range raw {
		tok, err := token.ParseBox(entry)
		if err != nil {
			return nil, err
		}
		label := tok.String()
		if _, ok := seen[label]; ok {
			continue
		}
		seen[label] = struct{}{}
		batch = append(batch, resolvedBox{Label: label, Token: tok})
	}
	return batch, nil
}

func batchLabels(batch []resolvedBox) []string {
	labels := make([]string, 0, len(batch))
	for _, item := range batch {
		labels = append(labels, item.Label)
	}
	return labels
}

func onTarget(box *models.Box, target containers.Target) bool {
	if target.Kind == enums.ContainerKindShelf {
		return box.ShelfID != nil && *box.ShelfID == target.ID
	}
	return box.PalletID != nil && *box.PalletID == target.ID
}

func currentTarget(box *models.Box) *containers.Target {
	if box.ShelfID != nil {
		return &containers.Target{Kind: enums.ContainerKindShelf, ID: *box.ShelfID}
	}
	if box.PalletID != nil {
		return &containers.Target{Kind: enums.ContainerKindPallet, ID: *box.PalletID}
	}
	return nil
}

func place(box *models.Box, target containers.Target) {
	id := target.ID
	if target.Kind == enums.ContainerKindShelf {
		box.ShelfID = &id
		box.PalletID = nil
		return
	}
	box.PalletID = &id
	box.ShelfID = nil
}

func failureLabel(err error) string {
	if typed := pkgerrors.As(err); typed != nil {
		switch typed.Code() {
		case pkgerrors.CodeCapacity:
			return "capacity"
		case pkgerrors.CodeValidation:
			return "invalid"
		case pkgerrors.CodeNotFound:
			return "not_found"
		}
	}
	return "error"
}
