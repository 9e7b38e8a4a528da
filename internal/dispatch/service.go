package dispatch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/vincentbui21/SmartJuiceSystem/internal/activity"
	"github.com/vincentbui21/SmartJuiceSystem/internal/token"
	"github.com/vincentbui21/SmartJuiceSystem/pkg/config"
	"github.com/vincentbui21/SmartJuiceSystem/pkg/db/models"
	"github.com/vincentbui21/SmartJuiceSystem/pkg/enums"
	pkgerrors "github.com/vincentbui21/SmartJuiceSystem/pkg/errors"
	"github.com/vincentbui21/SmartJuiceSystem/pkg/logger"
	"github.com/vincentbui21/SmartJuiceSystem/pkg/metrics"
	"github.com/vincentbui21/SmartJuiceSystem/pkg/redis"
	"github.com/vincentbui21/SmartJuiceSystem/pkg/sms"
)

const (
	defaultTemplateKey  = "default"
	defaultTemplateBody = "Hei {name}! Mehunne on valmis noudettavaksi. Noutopiste: {location}, hylly {shelf}. Tervetuloa!"
)

// ShelfLoadNotice describes one shelf load to announce. Orders must carry
// their customers. Send false records a not_sent status for every distinct
// customer without touching the gateway.
type ShelfLoadNotice struct {
	ShelfID       uuid.UUID
	ShelfLabel    string
	ShelfLocation string
	BoxTokens     []string
	Orders        []models.Order
	Send          bool
}

// RecipientOutcome is the per-customer result of one dispatch run.
type RecipientOutcome struct {
	CustomerID uuid.UUID               `json:"customerId"`
	Name       string                  `json:"name"`
	Phone      string                  `json:"phone"`
	Status     enums.SmsDeliveryStatus `json:"status"`
	Error      string                  `json:"error,omitempty"`
}

// Result reports a dispatch run.
type Result struct {
	Deduped    bool               `json:"deduped"`
	Sent       int                `json:"sent"`
	Recipients []RecipientOutcome `json:"recipients"`
}

// Service sends pickup notifications.
type Service interface {
	NotifyShelfLoad(ctx context.Context, notice ShelfLoadNotice) (*Result, error)
	NotifyCustomer(ctx context.Context, customerID uuid.UUID, location string) (*RecipientOutcome, error)
}

type service struct {
	cfg     config.DispatchConfig
	repo    Repository
	sender  sms.Sender
	guard   redis.IdempotencyStore
	feed    activity.Repository
	logger  *logger.Logger
	metrics *metrics.EngineMetrics
}

// NewService wires the notification dispatcher. The guard is optional; with
// no redis every submission sends.
func NewService(cfg config.DispatchConfig, repo Repository, sender sms.Sender, guard redis.IdempotencyStore, feed activity.Repository, logg *logger.Logger, engineMetrics *metrics.EngineMetrics) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "dispatch repository required")
	}
	if sender == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "dispatch sms sender required")
	}
	if cfg.IdempotencyTTL <= 0 {
		cfg.IdempotencyTTL = 10 * time.Second
	}
	return &service{cfg: cfg, repo: repo, sender: sender, guard: guard, feed: feed, logger: logg, metrics: engineMetrics}, nil
}

func (s *service) NotifyShelfLoad(ctx context.Context, notice ShelfLoadNotice) (*Result, error) {
	recipients, failed := s.resolveRecipients(notice.Orders)
	if len(recipients) == 0 && len(failed) == 0 {
		return &Result{}, nil
	}

	fresh, err := s.claimGuard(ctx, notice, recipients)
	if err != nil {
		return nil, err
	}
	if !fresh {
		if s.logger != nil {
			s.logger.Info(s.logger.WithField(ctx, "shelf_id", notice.ShelfID.String()), "dispatch.deduped")
		}
		return &Result{Deduped: true}, nil
	}

	result := &Result{Recipients: make([]RecipientOutcome, 0, len(recipients)+len(failed))}

	if !notice.Send {
		now := time.Now()
		for _, r := range recipients {
			result.Recipients = append(result.Recipients, s.recordSkipped(ctx, RecipientOutcome{
				CustomerID: r.CustomerID,
				Name:       r.Name,
				Phone:      r.Phone,
				Status:     enums.SmsDeliveryStatusNotSent,
			}, now))
		}
		for _, outcome := range failed {
			result.Recipients = append(result.Recipients, s.recordSkipped(ctx, outcome, now))
		}
		return result, nil
	}

	body, err := s.templateBody(ctx, notice.ShelfLocation)
	if err != nil {
		return nil, err
	}

	var sendErrs error
	now := time.Now()
	for _, outcome := range failed {
		result.Recipients = append(result.Recipients, s.recordSkipped(ctx, outcome, now))
		sendErrs = multierr.Append(sendErrs, errors.New(outcome.Error))
	}
	for _, recipient := range recipients {
		outcome := s.sendOne(ctx, recipient, body, notice)
		result.Recipients = append(result.Recipients, outcome)
		if outcome.Status == enums.SmsDeliveryStatusSent {
			result.Sent++
		} else {
			sendErrs = multierr.Append(sendErrs, errors.New(outcome.Error))
		}
	}

	if result.Sent == 0 && sendErrs != nil {
		return result, pkgerrors.Wrap(pkgerrors.CodeDependency, sendErrs, "all pickup notifications failed")
	}
	return result, nil
}

// recordSkipped books a not_sent status without touching the gateway.
func (s *service) recordSkipped(ctx context.Context, outcome RecipientOutcome, now time.Time) RecipientOutcome {
	outcome.Status = enums.SmsDeliveryStatusNotSent
	_ = s.repo.RecordDelivery(ctx, outcome.CustomerID, enums.SmsDeliveryStatusNotSent, now)
	s.metrics.IncSMS(enums.SmsDeliveryStatusNotSent.String())
	return outcome
}

// NotifyCustomer sends a single pickup message outside the shelf-load flow.
func (s *service) NotifyCustomer(ctx context.Context, customerID uuid.UUID, location string) (*RecipientOutcome, error) {
	customer, err := s.repo.CustomerWithReadyOrders(ctx, customerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load customer")
	}

	phone, err := NormalizePhone(customer.Phone, s.cfg.DefaultRegion)
	if err != nil {
		return nil, err
	}

	body, err := s.templateBody(ctx, location)
	if err != nil {
		return nil, err
	}

	recipient := recipient{CustomerID: customer.ID, Name: customer.Name, Phone: phone}
	outcome := s.sendOne(ctx, recipient, body, ShelfLoadNotice{ShelfLocation: location})
	if outcome.Status != enums.SmsDeliveryStatusSent {
		return &outcome, pkgerrors.New(pkgerrors.CodeDependency, "pickup notification failed")
	}
	return &outcome, nil
}

type recipient struct {
	CustomerID uuid.UUID
	Name       string
	Phone      string
}

// resolveRecipients dedupes first by customer id, then by normalized phone,
// so two customers sharing a phone get one message. A customer with an
// unusable phone comes back as a failed outcome instead of blocking the
// rest of the batch.
func (s *service) resolveRecipients(orders []models.Order) ([]recipient, []RecipientOutcome) {
	seenCustomer := map[uuid.UUID]struct{}{}
	seenPhone := map[string]struct{}{}
	recipients := make([]recipient, 0, len(orders))
	var failed []RecipientOutcome

	for _, order := range orders {
		if order.Customer == nil {
			continue
		}
		customer := order.Customer
		if _, ok := seenCustomer[customer.ID]; ok {
			continue
		}
		seenCustomer[customer.ID] = struct{}{}

		phone, err := NormalizePhone(customer.Phone, s.cfg.DefaultRegion)
		if err != nil {
			failed = append(failed, RecipientOutcome{
				CustomerID: customer.ID,
				Name:       customer.Name,
				Phone:      customer.Phone,
				Status:     enums.SmsDeliveryStatusNotSent,
				Error:      err.Error(),
			})
			continue
		}
		if _, ok := seenPhone[phone]; ok {
			continue
		}
		seenPhone[phone] = struct{}{}
		recipients = append(recipients, recipient{CustomerID: customer.ID, Name: customer.Name, Phone: phone})
	}
	return recipients, failed
}

// claimGuard reserves the dedupe slot for this exact load. Returns false
// when an identical submission claimed it within the TTL.
func (s *service) claimGuard(ctx context.Context, notice ShelfLoadNotice, recipients []recipient) (bool, error) {
	if s.guard == nil {
		return true, nil
	}

	boxes := make([]string, 0, len(notice.BoxTokens))
	for _, raw := range notice.BoxTokens {
		if canonical, err := token.NormalizeBox(raw); err == nil {
			boxes = append(boxes, canonical)
		}
	}
	sort.Strings(boxes)

	phones := make([]string, 0, len(recipients))
	for _, r := range recipients {
		phones = append(phones, r.Phone)
	}
	sort.Strings(phones)

	scope := strings.Join([]string{
		"load-boxes",
		notice.ShelfID.String(),
		strings.Join(boxes, ","),
		strings.Join(phones, ","),
	}, ":")
	sum := sha256.Sum256([]byte(scope))
	key := s.guard.IdempotencyKey("dispatch", hex.EncodeToString(sum[:]))

	fresh, err := s.guard.SetNX(ctx, key, "1", s.cfg.IdempotencyTTL)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "dispatch guard")
	}
	return fresh, nil
}

func (s *service) templateBody(ctx context.Context, location string) (string, error) {
	key := strings.TrimSpace(strings.ToLower(location))
	if key == "" {
		key = defaultTemplateKey
	}
	template, err := s.repo.Template(ctx, key)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return defaultTemplateBody, nil
		}
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sms template")
	}
	return template.Body, nil
}

func (s *service) sendOne(ctx context.Context, to recipient, body string, notice ShelfLoadNotice) RecipientOutcome {
	outcome := RecipientOutcome{CustomerID: to.CustomerID, Name: to.Name, Phone: to.Phone}
	message := sms.Message{To: to.Phone, Body: renderTemplate(body, to, notice)}

	now := time.Now()
	if err := s.sender.Send(ctx, message); err != nil {
		outcome.Status = enums.SmsDeliveryStatusNotSent
		outcome.Error = err.Error()
		_ = s.repo.RecordDelivery(ctx, to.CustomerID, enums.SmsDeliveryStatusNotSent, now)
		s.metrics.IncSMS(enums.SmsDeliveryStatusNotSent.String())
		if s.logger != nil {
			s.logger.Error(s.logger.WithCustomerID(ctx, to.CustomerID.String()), "dispatch.send_failed", err)
		}
		return outcome
	}

	outcome.Status = enums.SmsDeliveryStatusSent
	_ = s.repo.RecordDelivery(ctx, to.CustomerID, enums.SmsDeliveryStatusSent, now)
	s.metrics.IncSMS(enums.SmsDeliveryStatusSent.String())
	if s.feed != nil {
		_ = s.feed.Recordf(ctx, enums.ActivityTypeSmsSent, to.CustomerID.String(), "pickup SMS sent to %s", to.Name)
	}
	return outcome
}

func renderTemplate(body string, to recipient, notice ShelfLoadNotice) string {
	replacer := strings.NewReplacer(
		"{name}", to.Name,
		"{location}", notice.ShelfLocation,
		"{shelf}", notice.ShelfLabel,
	)
	return replacer.Replace(body)
}
