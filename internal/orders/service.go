package orders

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/vincentbui21/SmartJuiceSystem/internal/activity"
	"github.com/vincentbui21/SmartJuiceSystem/internal/token"
	"github.com/vincentbui21/SmartJuiceSystem/pkg/db/models"
	"github.com/vincentbui21/SmartJuiceSystem/pkg/enums"
	pkgerrors "github.com/vincentbui21/SmartJuiceSystem/pkg/errors"
	"github.com/vincentbui21/SmartJuiceSystem/pkg/metrics"
	"github.com/vincentbui21/SmartJuiceSystem/pkg/pagination"
	"github.com/vincentbui21/SmartJuiceSystem/pkg/realtime"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ListParams configures status filtering and pagination.
type ListParams struct {
	Status string
	Limit  int
	Cursor string
}

// ListResult wraps returned orders and the cursor for the next page.
type ListResult struct {
	Items  []models.Order `json:"items"`
	Cursor string         `json:"cursor"`
}

// UpdateInput carries optional order field changes. PouchesCount and
// BoxesCount are operator overrides that beat the derived estimates from
// then on; CrateCount reissues the order's crate labels.
type UpdateInput struct {
	WeightKg     *decimal.Decimal
	Notes        *string
	Status       *string
	PouchesCount *int
	BoxesCount   *int
	CrateCount   *int
}

// PressResult reports the outcome of completing an order's pressing run.
type PressResult struct {
	Order     *models.Order `json:"order"`
	Pouches   int           `json:"pouches"`
	Boxes     int           `json:"boxes"`
	BoxLabels []string      `json:"boxLabels"`
}

// ScanInfoResult resolves a scanned box label to its order and the sibling
// labels belonging to the same order.
type ScanInfoResult struct {
	Box      string        `json:"box"`
	Order    *models.Order `json:"order"`
	BoxCount int           `json:"boxCount"`
	Boxes    []string      `json:"boxes"`
}

// CrateUpdateResult reports a bulk crate status change.
type CrateUpdateResult struct {
	UpdatedCrates  int         `json:"updatedCrates"`
	StartedOrders  []uuid.UUID `json:"startedOrders"`
	AffectedOrders []uuid.UUID `json:"affectedOrders"`
}

// Service drives the order lifecycle.
type Service interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Order, error)
	List(ctx context.Context, params ListParams) (*ListResult, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.Order, error)
	Delete(ctx context.Context, id uuid.UUID) error

	UpdateCrates(ctx context.Context, rawTokens []string, status enums.CrateStatus) (*CrateUpdateResult, error)
	MarkDone(ctx context.Context, id uuid.UUID) (*PressResult, error)
	MarkReady(ctx context.Context, id uuid.UUID) (bool, error)
	MarkReadyInTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (bool, error)
	MarkPickedUp(ctx context.Context, id uuid.UUID) (*models.Order, error)

	PickupSearch(ctx context.Context, query string) ([]models.Order, error)
	ExpectedBoxes(ctx context.Context, id uuid.UUID) ([]string, error)
	ScanInfo(ctx context.Context, raw string) (*ScanInfoResult, error)
}

type service struct {
	tx      txRunner
	repo    Repository
	params  ParamsSource
	feed    activity.Repository
	events  realtime.Publisher
	metrics *metrics.EngineMetrics
}

// NewService wires order lifecycle dependencies. The activity feed, event
// hub and metrics are optional.
func NewService(tx txRunner, repo Repository, params ParamsSource, feed activity.Repository, events realtime.Publisher, engineMetrics *metrics.EngineMetrics) (Service, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "orders tx runner required")
	}
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "orders repository required")
	}
	if params == nil {
		params = StaticParams{Params: DefaultProcessingParams()}
	}
	return &service{tx: tx, repo: repo, params: params, feed: feed, events: events, metrics: engineMetrics}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, err := s.repo.GetWithDetails(ctx, id)
	if err != nil {
		return nil, orderNotFound(err)
	}
	return order, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	query := listOrdersParams{Limit: params.Limit}
	if params.Status != "" {
		status, err := enums.ParseOrderStatus(params.Status)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order status filter")
		}
		query.Statuses = []enums.OrderStatus{status}
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.ListByStatus(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}
	return &ListResult{Items: rows, Cursor: cursor}, nil
}

// Update applies administrative edits. Status may move in any direction
// here: the admin form is the escape hatch for fixing a mis-scanned order,
// so the forward-only rule is deliberately not enforced.
func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.Order, error) {
	if input.WeightKg != nil && input.WeightKg.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "weight must not be negative")
	}
	if input.PouchesCount != nil && *input.PouchesCount < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pouches count must not be negative")
	}
	if input.BoxesCount != nil && *input.BoxesCount < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "boxes count must not be negative")
	}
	if input.CrateCount != nil && *input.CrateCount < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one crate required")
	}

	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := repo.Get(ctx, id)
		if err != nil {
			return orderNotFound(err)
		}
		if current.Status == enums.OrderStatusDeleted {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is deleted")
		}

		if input.WeightKg != nil {
			current.WeightKg = *input.WeightKg
		}
		if input.Notes != nil {
			current.Notes = input.Notes
		}
		if input.Status != nil {
			status, err := enums.ParseOrderStatus(*input.Status)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order status")
			}
			current.Status = status
		}
		if input.PouchesCount != nil {
			current.EstPouches = *input.PouchesCount
			current.PouchesOverride = input.PouchesCount
		}
		if input.BoxesCount != nil {
			current.BoxesCount = *input.BoxesCount
			current.BoxesOverride = input.BoxesCount
		}

		// A crate count change reissues every label so sequence/total pairs
		// stay consistent.
		if input.CrateCount != nil && *input.CrateCount != current.CrateCount {
			if err := repo.DeleteCrates(ctx, current.ID); err != nil {
				return err
			}
			crates := make([]models.Crate, 0, *input.CrateCount)
			for i := 1; i <= *input.CrateCount; i++ {
				crates = append(crates, models.Crate{
					ID:       uuid.New(),
					OrderID:  current.ID,
					Sequence: i,
					Total:    *input.CrateCount,
					Status:   enums.CrateStatusWaiting,
				})
			}
			if err := repo.CreateCrates(ctx, crates); err != nil {
				return err
			}
			current.CrateCount = *input.CrateCount
		}

		if err := repo.Save(ctx, current); err != nil {
			return err
		}
		order = current
		return nil
	})
	if err != nil {
		return nil, wrapOrderErr(err, "update order")
	}
	s.record(ctx, enums.ActivityTypeOrderUpdated, order.ID, "order %s updated", order.ID)
	s.publishOrder(order.ID, order.Status)
	return order, nil
}

// Delete is a soft delete: the order row keeps status deleted while its
// crate and box rows are removed so labels can be reissued.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.Get(ctx, id)
		if err != nil {
			return orderNotFound(err)
		}
		if err := repo.DeleteBoxes(ctx, id); err != nil {
			return err
		}
		if err := repo.DeleteCrates(ctx, id); err != nil {
			return err
		}
		order.Status = enums.OrderStatusDeleted
		return repo.Save(ctx, order)
	})
	if err != nil {
		return wrapOrderErr(err, "delete order")
	}
	s.record(ctx, enums.ActivityTypeOrderUpdated, id, "order %s deleted", id)
	s.publishOrder(id, enums.OrderStatusDeleted)
	return nil
}

// UpdateCrates applies one status to a batch of scanned crates. The first
// crate going in progress flips its created order to in_progress.
func (s *service) UpdateCrates(ctx context.Context, rawTokens []string, status enums.CrateStatus) (*CrateUpdateResult, error) {
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid crate status")
	}
	if len(rawTokens) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one crate token required")
	}

	crateIDs := make([]uuid.UUID, 0, len(rawTokens))
	seen := map[uuid.UUID]struct{}{}
	for _, raw := range rawTokens {
		tok, err := token.ParseCrate(raw)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[tok.CrateID]; ok {
			continue
		}
		seen[tok.CrateID] = struct{}{}
		crateIDs = append(crateIDs, tok.CrateID)
	}

	result := &CrateUpdateResult{}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		orderSeen := map[uuid.UUID]struct{}{}
		for _, crateID := range crateIDs {
			crate, err := repo.GetCrate(ctx, crateID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return pkgerrors.New(pkgerrors.CodeNotFound, "crate not found")
				}
				return err
			}
			if _, ok := orderSeen[crate.OrderID]; !ok {
				orderSeen[crate.OrderID] = struct{}{}
				result.AffectedOrders = append(result.AffectedOrders, crate.OrderID)
			}
		}

		updated, err := repo.UpdateCrateStatus(ctx, crateIDs, status)
		if err != nil {
			return err
		}
		result.UpdatedCrates = int(updated)

		if status != enums.CrateStatusInProgress {
			return nil
		}
		for _, orderID := range result.AffectedOrders {
			order, err := repo.Get(ctx, orderID)
			if err != nil {
				return err
			}
			if order.Status != enums.OrderStatusCreated {
				continue
			}
			order.Status = enums.OrderStatusInProgress
			if err := repo.Save(ctx, order); err != nil {
				return err
			}
			result.StartedOrders = append(result.StartedOrders, orderID)
		}
		return nil
	})
	if err != nil {
		return nil, wrapOrderErr(err, "update crates")
	}

	for _, orderID := range result.StartedOrders {
		s.record(ctx, enums.ActivityTypeOrderUpdated, orderID, "order %s pressing started", orderID)
		s.publishOrder(orderID, enums.OrderStatusInProgress)
	}
	return result, nil
}

// MarkDone finishes pressing: estimates pouches from intake weight, creates
// the labeled box rows and moves the order to processing_complete.
// Re-running never duplicates boxes because their labels are deterministic.
func (s *service) MarkDone(ctx context.Context, id uuid.UUID) (*PressResult, error) {
	params, err := s.params.ProcessingParams(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load processing params")
	}

	result := &PressResult{}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.Get(ctx, id)
		if err != nil {
			return orderNotFound(err)
		}
		switch order.Status {
		case enums.OrderStatusDeleted:
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is deleted")
		case enums.OrderStatusPickedUp:
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order already picked up")
		}

		pouches, boxCount := pressCounts(order, params)
		boxes := make([]models.Box, 0, boxCount)
		labels := make([]string, 0, boxCount)
		customerID := order.CustomerID
		for i := 1; i <= boxCount; i++ {
			label := token.CanonicalBox(order.ID, i)
			boxes = append(boxes, models.Box{ID: label, OrderID: order.ID, CustomerID: &customerID, Ordinal: i})
			labels = append(labels, label)
		}
		if err := repo.CreateBoxes(ctx, boxes); err != nil {
			return err
		}

		order.EstPouches = pouches
		order.BoxesCount = boxCount
		if order.Status != enums.OrderStatusReadyForPickup {
			order.Status = enums.OrderStatusProcessingComplete
		}
		if err := repo.Save(ctx, order); err != nil {
			return err
		}
		if err := repo.SetCratesStatusForOrder(ctx, order.ID, enums.CrateStatusProcessed); err != nil {
			return err
		}

		result.Order = order
		result.Pouches = pouches
		result.Boxes = boxCount
		result.BoxLabels = labels
		return nil
	})
	if err != nil {
		return nil, wrapOrderErr(err, "mark order done")
	}

	s.record(ctx, enums.ActivityTypeOrderDone, id, "order %s pressed: %d pouches in %d boxes", id, result.Pouches, result.Boxes)
	s.publishOrder(id, result.Order.Status)
	return result, nil
}

func (s *service) MarkReady(ctx context.Context, id uuid.UUID) (bool, error) {
	var updated bool
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		changed, err := s.MarkReadyInTx(ctx, tx, id)
		if err != nil {
			return err
		}
		updated = changed
		return nil
	})
	if err != nil {
		return false, wrapOrderErr(err, "mark order ready")
	}
	if updated {
		s.record(ctx, enums.ActivityTypeOrderReady, id, "order %s ready for pickup", id)
		s.publishOrder(id, enums.OrderStatusReadyForPickup)
	}
	return updated, nil
}

// MarkReadyInTx performs the guarded ready transition inside a caller-owned
// transaction. The first transition stamps ready_at, repeats keep it.
func (s *service) MarkReadyInTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (bool, error) {
	repo := s.repo.WithTx(tx)
	if _, err := repo.Get(ctx, id); err != nil {
		return false, orderNotFound(err)
	}
	rows, err := repo.MarkReady(ctx, id, time.Now())
	if err != nil {
		return false, err
	}
	if rows > 0 {
		s.metrics.IncOrdersReady()
	}
	return rows > 0, nil
}

func (s *service) MarkPickedUp(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := repo.Get(ctx, id)
		if err != nil {
			return orderNotFound(err)
		}
		if current.Status != enums.OrderStatusReadyForPickup {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not ready for pickup").WithDetails(map[string]any{
				"status": current.Status,
			})
		}
		if _, err := repo.MarkPickedUp(ctx, id, time.Now()); err != nil {
			return err
		}
		order, err = repo.Get(ctx, id)
		return err
	})
	if err != nil {
		return nil, wrapOrderErr(err, "mark order picked up")
	}
	s.record(ctx, enums.ActivityTypeOrderPickedUp, id, "order %s picked up", id)
	s.publishOrder(id, enums.OrderStatusPickedUp)
	return order, nil
}

func (s *service) PickupSearch(ctx context.Context, query string) ([]models.Order, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "search query required")
	}
	orders, err := s.repo.SearchReady(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "pickup search")
	}
	return orders, nil
}

// ExpectedBoxes lists the canonical labels an order's boxes carry. For
// orders not yet pressed the count is estimated from the current params.
func (s *service) ExpectedBoxes(ctx context.Context, id uuid.UUID) ([]string, error) {
	order, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, orderNotFound(err)
	}

	count := order.BoxesCount
	if count == 0 {
		params, err := s.params.ProcessingParams(ctx)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load processing params")
		}
		_, count = pressMath(order.WeightKg, params)
	}

	labels := make([]string, 0, count)
	for i := 1; i <= count; i++ {
		labels = append(labels, token.CanonicalBox(order.ID, i))
	}
	return labels, nil
}

// ScanInfo resolves a raw box scan to its order. The label's embedded uuid
// takes precedence; when it names no order the stored box row's customer
// leads to that customer's most recent order instead.
func (s *service) ScanInfo(ctx context.Context, raw string) (*ScanInfoResult, error) {
	tok, err := token.ParseBox(raw)
	if err != nil {
		return nil, err
	}
	canonical := tok.String()

	order, err := s.repo.GetWithDetails(ctx, tok.OrderID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		order, err = s.orderViaBoxRow(ctx, canonical)
	}
	if err != nil {
		return nil, wrapOrderErr(err, "resolve scanned box")
	}

	labels := make([]string, 0, len(order.Boxes))
	for _, box := range order.Boxes {
		labels = append(labels, box.ID)
	}
	if len(labels) == 0 {
		for i := 1; i <= order.BoxesCount; i++ {
			labels = append(labels, token.CanonicalBox(order.ID, i))
		}
	}

	return &ScanInfoResult{
		Box:      canonical,
		Order:    order,
		BoxCount: order.BoxesCount,
		Boxes:    labels,
	}, nil
}

func (s *service) orderViaBoxRow(ctx context.Context, label string) (*models.Order, error) {
	box, err := s.repo.BoxByID(ctx, label)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no order found for scanned box")
		}
		return nil, err
	}
	if box.CustomerID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no order found for scanned box")
	}
	latest, err := s.repo.LatestOrderForCustomer(ctx, *box.CustomerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no order found for scanned box")
		}
		return nil, err
	}
	return s.repo.GetWithDetails(ctx, latest.ID)
}

// pressCounts resolves the pouch and box counts for an order: operator
// overrides win, everything else derives from intake weight.
func pressCounts(order *models.Order, params ProcessingParams) (pouches, boxes int) {
	pouches, boxes = pressMath(order.WeightKg, params)
	if order.PouchesOverride != nil {
		pouches = *order.PouchesOverride
		boxes = boxesFor(pouches, params)
	}
	if order.BoxesOverride != nil {
		boxes = *order.BoxesOverride
	}
	return pouches, boxes
}

// pressMath converts intake weight into pouch and box counts. Pouches round
// down; even a zero-pouch order still ships one box.
func pressMath(weightKg decimal.Decimal, params ProcessingParams) (pouches, boxes int) {
	liters := weightKg.Mul(decimal.NewFromFloat(params.JuiceRatio))
	pouches = int(liters.Div(decimal.NewFromFloat(params.PouchLiters)).Floor().IntPart())
	if pouches < 0 {
		pouches = 0
	}
	return pouches, boxesFor(pouches, params)
}

func boxesFor(pouches int, params ProcessingParams) int {
	capacity := params.BoxCapacity
	if capacity <= 0 {
		capacity = DefaultProcessingParams().BoxCapacity
	}
	boxes := (pouches + capacity - 1) / capacity
	if boxes < 1 {
		boxes = 1
	}
	return boxes
}

func (s *service) record(ctx context.Context, eventType enums.ActivityType, entityID uuid.UUID, format string, args ...any) {
	if s.feed == nil {
		return
	}
	_ = s.feed.Recordf(ctx, eventType, entityID.String(), format, args...)
}

func (s *service) publishOrder(id uuid.UUID, status enums.OrderStatus) {
	if s.events == nil {
		return
	}
	s.events.Publish(realtime.Event{
		Name: realtime.EventOrderStatusUpdated,
		Payload: map[string]any{
			"orderId": id,
			"status":  status,
			"display": status.Display(),
		},
		At: time.Now(),
	})
}

func orderNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return err
}

func wrapOrderErr(err error, message string) error {
	if err == nil {
		return nil
	}
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, message)
}
