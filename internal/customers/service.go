package customers

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
	"github.com/vincentbui21/SmartJuiceSystem/pkg/pagination"
	"github.com/vincentbui21/SmartJuiceSystem/pkg/realtime"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// EntryInput opens a pressing order at the intake desk.
type EntryInput struct {
	Name       string
	Phone      string
	Email      *string
	City       *string
	WeightKg   decimal.Decimal
	CrateCount int
	Notes      *string
}

// EntryResult returns the created rows plus the crate labels to print.
type EntryResult struct {
	Customer    *models.Customer `json:"customer"`
	Order       *models.Order    `json:"order"`
	CrateTokens []string         `json:"crateTokens"`
}

// ListParams configures customer search and pagination.
type ListParams struct {
	Search string
	Limit  int
	Cursor string
}

// ListResult wraps returned customers and the cursor for the next page.
type ListResult struct {
	Items  []models.Customer `json:"items"`
	Cursor string            `json:"cursor"`
}

// UpdateInput carries optional customer field changes.
type UpdateInput struct {
	Name  *string
	Phone *string
	Email *string
	City  *string
}

// Service manages customers and intake entries.
type Service interface {
	CreateEntry(ctx context.Context, input EntryInput) (*EntryResult, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Customer, error)
	List(ctx context.Context, params ListParams) (*ListResult, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.Customer, error)
	Delete(ctx context.Context, id uuid.UUID) error
	SmsStatus(ctx context.Context, id uuid.UUID) (*models.SmsStatus, error)
	ResetSmsStatus(ctx context.Context, id uuid.UUID) error
}

type service struct {
	tx     txRunner
	repo   Repository
	feed   activity.Repository
	events realtime.Publisher
}

// NewService wires customer intake dependencies.
func NewService(tx txRunner, repo Repository, feed activity.Repository, events realtime.Publisher) (Service, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "customers tx runner required")
	}
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "customers repository required")
	}
	return &service{tx: tx, repo: repo, feed: feed, events: events}, nil
}

// CreateEntry creates the customer (reusing an existing one with the same
// phone), the order and one crate row per physical crate, atomically.
func (s *service) CreateEntry(ctx context.Context, input EntryInput) (*EntryResult, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Phone = strings.TrimSpace(input.Phone)
	if input.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer name required")
	}
	if input.Phone == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer phone required")
	}
	if input.WeightKg.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "weight must not be negative")
	}
	if input.CrateCount < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one crate required")
	}

	result := &EntryResult{}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		customer, err := repo.FindByPhone(ctx, input.Phone)
		switch {
		case err == nil:
			customer.Name = input.Name
			if input.Email != nil {
				customer.Email = input.Email
			}
			if input.City != nil {
				customer.City = input.City
			}
			if err := repo.Save(ctx, customer); err != nil {
				return err
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			customer = &models.Customer{
				ID:    uuid.New(),
				Name:  input.Name,
				Phone: input.Phone,
				Email: input.Email,
				City:  input.City,
			}
			if err := repo.Create(ctx, customer); err != nil {
				return err
			}
		default:
			return err
		}

		order := &models.Order{
			ID:         uuid.New(),
			CustomerID: customer.ID,
			WeightKg:   input.WeightKg,
			Status:     enums.OrderStatusCreated,
			CrateCount: input.CrateCount,
			Notes:      input.Notes,
		}
		if err := repo.CreateOrder(ctx, order); err != nil {
			return err
		}

		crates := make([]models.Crate, 0, input.CrateCount)
		tokens := make([]string, 0, input.CrateCount)
		for i := 0; i < input.CrateCount; i++ {
			crate := models.Crate{
				ID:       uuid.New(),
				OrderID:  order.ID,
				Sequence: i + 1,
				Total:    input.CrateCount,
				Status:   enums.CrateStatusWaiting,
			}
			crates = append(crates, crate)
			tokens = append(tokens, token.CrateToken{CrateID: crate.ID}.String())
		}
		if err := repo.CreateCrates(ctx, crates); err != nil {
			return err
		}

		result.Customer = customer
		result.Order = order
		result.CrateTokens = tokens
		return nil
	})
	if err != nil {
		return nil, wrapCustomerErr(err, "create entry")
	}

	if s.feed != nil {
		_ = s.feed.Recordf(ctx, enums.ActivityTypeEntryCreated, result.Order.ID.String(),
			"entry created for %s: %s kg in %d crates", result.Customer.Name, result.Order.WeightKg.String(), result.Order.CrateCount)
	}
	if s.events != nil {
		s.events.Publish(realtime.Event{
			Name:    realtime.EventOrderStatusUpdated,
			Payload: map[string]any{"orderId": result.Order.ID, "status": result.Order.Status},
			At:      time.Now(),
		})
	}
	return result, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	customer, err := s.repo.GetWithOrders(ctx, id)
	if err != nil {
		return nil, customerNotFound(err)
	}
	return customer, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	query := listCustomersParams{Search: strings.TrimSpace(params.Search), Limit: params.Limit}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list customers")
	}
	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}
	return &ListResult{Items: rows, Cursor: cursor}, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.Customer, error) {
	customer, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, customerNotFound(err)
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer name required")
		}
		customer.Name = name
	}
	if input.Phone != nil {
		phone := strings.TrimSpace(*input.Phone)
		if phone == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer phone required")
		}
		customer.Phone = phone
	}
	if input.Email != nil {
		customer.Email = input.Email
	}
	if input.City != nil {
		customer.City = input.City
	}

	if err := s.repo.Save(ctx, customer); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update customer")
	}
	return customer, nil
}

// Delete removes the customer together with their orders, crates, boxes and
// SMS bookkeeping.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.Get(ctx, id); err != nil {
			return customerNotFound(err)
		}
		orderIDs, err := repo.OrderIDs(ctx, id)
		if err != nil {
			return err
		}
		if err := repo.DeleteBoxesForOrders(ctx, orderIDs); err != nil {
			return err
		}
		if err := repo.DeleteCratesForOrders(ctx, orderIDs); err != nil {
			return err
		}
		if err := repo.DeleteOrders(ctx, id); err != nil {
			return err
		}
		if err := repo.DeleteSmsStatus(ctx, id); err != nil {
			return err
		}
		return repo.Delete(ctx, id)
	})
	return wrapCustomerErr(err, "delete customer")
}

func (s *service) SmsStatus(ctx context.Context, id uuid.UUID) (*models.SmsStatus, error) {
	status, err := s.repo.SmsStatus(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// never notified yet
		return &models.SmsStatus{CustomerID: id, LastStatus: enums.SmsDeliveryStatusNotSent}, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sms status")
	}
	return status, nil
}

func (s *service) ResetSmsStatus(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return customerNotFound(err)
	}
	if err := s.repo.DeleteSmsStatus(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reset sms status")
	}
	return nil
}

func customerNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
	}
	return err
}

func wrapCustomerErr(err error, message string) error {
	if err == nil {
		return nil
	}
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, message)
}
