package dispatch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/vincentbui21/SmartJuiceSystem/internal/token"
	"github.com/vincentbui21/SmartJuiceSystem/pkg/config"
	"github.com/vincentbui21/SmartJuiceSystem/pkg/db/models"
	"github.com/vincentbui21/SmartJuiceSystem/pkg/enums"
	pkgerrors "github.com/vincentbui21/SmartJuiceSystem/pkg/errors"
	"github.com/vincentbui21/SmartJuiceSystem/pkg/sms"
)

type fakeSender struct {
	mu       sync.Mutex
	messages []sms.Message
	fail     bool
}

func (f *fakeSender) Send(_ context.Context, message sms.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return pkgerrors.New(pkgerrors.CodeDependency, "gateway down")
	}
	f.messages = append(f.messages, message)
	return nil
}

type fakeGuard struct {
	mu   sync.Mutex
	keys map[string]time.Time
}

func newFakeGuard() *fakeGuard {
	return &fakeGuard{keys: map[string]time.Time{}}
}

func (f *fakeGuard) Get(context.Context, string) (string, error) { return "", nil }

func (f *fakeGuard) SetNX(_ context.Context, key string, _ any, ttl time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if expiry, ok := f.keys[key]; ok && time.Now().Before(expiry) {
		return false, nil
	}
	f.keys[key] = time.Now().Add(ttl)
	return true, nil
}

func (f *fakeGuard) IdempotencyKey(scope, id string) string { return "sj:idem:" + scope + ":" + id }

func (f *fakeGuard) Del(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, key := range keys {
		delete(f.keys, key)
	}
	return nil
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:dispatch_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Customer{}, &models.Order{}, &models.SmsStatus{}, &models.SmsTemplate{},
	))
	t.Cleanup(func() {
		sqlDB, err := db.DB()
		require.NoError(t, err)
		require.NoError(t, sqlDB.Close())
	})
	return db
}

func seedReadyOrder(t *testing.T, db *gorm.DB, name, phone string) models.Order {
	t.Helper()
	customer := models.Customer{ID: uuid.New(), Name: name, Phone: phone}
	require.NoError(t, db.Create(&customer).Error)
	order := models.Order{ID: uuid.New(), CustomerID: customer.ID, Status: enums.OrderStatusReadyForPickup}
	require.NoError(t, db.Create(&order).Error)
	order.Customer = &customer
	return order
}

func testNotice(shelfID uuid.UUID, orders ...models.Order) ShelfLoadNotice {
	tokens := make([]string, 0, len(orders))
	for _, order := range orders {
		tokens = append(tokens, token.CanonicalBox(order.ID, 1))
	}
	return ShelfLoadNotice{
		ShelfID:       shelfID,
		ShelfLabel:    "A1",
		ShelfLocation: "Kuopio",
		BoxTokens:     tokens,
		Orders:        orders,
		Send:          true,
	}
}

func newTestService(t *testing.T, db *gorm.DB, sender sms.Sender, guard *fakeGuard) Service {
	t.Helper()
	var store *fakeGuard
	if guard != nil {
		store = guard
	}
	cfg := config.DispatchConfig{IdempotencyTTL: 10 * time.Second, DefaultRegion: "+358"}
	var svc Service
	var err error
	if store == nil {
		svc, err = NewService(cfg, NewRepository(db), sender, nil, nil, nil, nil)
	} else {
		svc, err = NewService(cfg, NewRepository(db), sender, store, nil, nil, nil)
	}
	require.NoError(t, err)
	return svc
}

func TestNotifyShelfLoadSendsAndRecords(t *testing.T) {
	db := newTestDB(t)
	sender := &fakeSender{}
	svc := newTestService(t, db, sender, nil)
	ctx := context.Background()

	order := seedReadyOrder(t, db, "Maija Virtanen", "0401234567")
	result, err := svc.NotifyShelfLoad(ctx, testNotice(uuid.New(), order))
	require.NoError(t, err)
	require.False(t, result.Deduped)
	require.Equal(t, 1, result.Sent)
	require.Len(t, sender.messages, 1)
	require.Equal(t, "+358401234567", sender.messages[0].To)
	require.Contains(t, sender.messages[0].Body, "Maija Virtanen")
	require.Contains(t, sender.messages[0].Body, "Kuopio")

	var status models.SmsStatus
	require.NoError(t, db.First(&status, "customer_id = ?", order.CustomerID).Error)
	require.Equal(t, 1, status.SentCount)
	require.Equal(t, enums.SmsDeliveryStatusSent, status.LastStatus)
	require.NotNil(t, status.LastSentAt)
}

func TestNotifyShelfLoadSharedPhoneOneMessage(t *testing.T) {
	db := newTestDB(t)
	sender := &fakeSender{}
	svc := newTestService(t, db, sender, nil)

	// same phone written two ways still collapses to one recipient
	first := seedReadyOrder(t, db, "Maija Virtanen", "0401234567")
	second := seedReadyOrder(t, db, "Pekka Virtanen", "+358 40 123 4567")

	result, err := svc.NotifyShelfLoad(context.Background(), testNotice(uuid.New(), first, second))
	require.NoError(t, err)
	require.Equal(t, 1, result.Sent)
	require.Len(t, sender.messages, 1)
}

func TestNotifyShelfLoadBadPhoneDoesNotBlockOthers(t *testing.T) {
	db := newTestDB(t)
	sender := &fakeSender{}
	svc := newTestService(t, db, sender, nil)

	broken := seedReadyOrder(t, db, "Maija Virtanen", "not-a-phone")
	fine := seedReadyOrder(t, db, "Pekka Virtanen", "0402222222")

	result, err := svc.NotifyShelfLoad(context.Background(), testNotice(uuid.New(), broken, fine))
	require.NoError(t, err)
	require.Equal(t, 1, result.Sent)
	require.Len(t, sender.messages, 1)
	require.Equal(t, "+358402222222", sender.messages[0].To)
	require.Len(t, result.Recipients, 2)

	var status models.SmsStatus
	require.NoError(t, db.First(&status, "customer_id = ?", broken.CustomerID).Error)
	require.Equal(t, enums.SmsDeliveryStatusNotSent, status.LastStatus)
	require.Zero(t, status.SentCount)
}

func TestNotifyShelfLoadSkipRecordsEveryCustomer(t *testing.T) {
	db := newTestDB(t)
	sender := &fakeSender{}
	svc := newTestService(t, db, sender, nil)

	first := seedReadyOrder(t, db, "Maija Virtanen", "0401234567")
	second := seedReadyOrder(t, db, "Pekka Virtanen", "0402222222")

	notice := testNotice(uuid.New(), first, second)
	notice.Send = false

	result, err := svc.NotifyShelfLoad(context.Background(), notice)
	require.NoError(t, err)
	require.Zero(t, result.Sent)
	require.Empty(t, sender.messages)
	require.Len(t, result.Recipients, 2)

	for _, order := range []models.Order{first, second} {
		var status models.SmsStatus
		require.NoError(t, db.First(&status, "customer_id = ?", order.CustomerID).Error)
		require.Equal(t, enums.SmsDeliveryStatusNotSent, status.LastStatus)
		require.Zero(t, status.SentCount)
	}
}

func TestNotifyShelfLoadDeduplicatesWithinTTL(t *testing.T) {
	db := newTestDB(t)
	sender := &fakeSender{}
	guard := newFakeGuard()
	svc := newTestService(t, db, sender, guard)
	ctx := context.Background()

	order := seedReadyOrder(t, db, "Maija Virtanen", "0401234567")
	notice := testNotice(uuid.New(), order)

	first, err := svc.NotifyShelfLoad(ctx, notice)
	require.NoError(t, err)
	require.False(t, first.Deduped)
	require.Equal(t, 1, first.Sent)

	second, err := svc.NotifyShelfLoad(ctx, notice)
	require.NoError(t, err)
	require.True(t, second.Deduped)
	require.Zero(t, second.Sent)
	require.Len(t, sender.messages, 1)

	// a different shelf is a different load
	other := notice
	other.ShelfID = uuid.New()
	third, err := svc.NotifyShelfLoad(ctx, other)
	require.NoError(t, err)
	require.False(t, third.Deduped)
}

func TestNotifyShelfLoadAllFailuresAggregate(t *testing.T) {
	db := newTestDB(t)
	sender := &fakeSender{fail: true}
	svc := newTestService(t, db, sender, nil)

	order := seedReadyOrder(t, db, "Maija Virtanen", "0401234567")
	result, err := svc.NotifyShelfLoad(context.Background(), testNotice(uuid.New(), order))
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeDependency, typed.Code())
	require.Zero(t, result.Sent)
	require.Len(t, result.Recipients, 1)
	require.Equal(t, enums.SmsDeliveryStatusNotSent, result.Recipients[0].Status)

	var status models.SmsStatus
	require.NoError(t, db.First(&status, "customer_id = ?", order.CustomerID).Error)
	require.Equal(t, enums.SmsDeliveryStatusNotSent, status.LastStatus)
	require.Zero(t, status.SentCount)
}

func TestTemplateLocationFallback(t *testing.T) {
	db := newTestDB(t)
	sender := &fakeSender{}
	svc := newTestService(t, db, sender, nil)
	ctx := context.Background()

	require.NoError(t, db.Create(&models.SmsTemplate{
		ID: uuid.New(), LocationKey: "default", Body: "Oletusviesti {name}",
	}).Error)
	require.NoError(t, db.Create(&models.SmsTemplate{
		ID: uuid.New(), LocationKey: "kuopio", Body: "Kuopion nouto {name}",
	}).Error)

	order := seedReadyOrder(t, db, "Maija", "0401234567")
	_, err := svc.NotifyShelfLoad(ctx, testNotice(uuid.New(), order))
	require.NoError(t, err)
	require.Contains(t, sender.messages[0].Body, "Kuopion nouto Maija")

	// location without its own template falls back to default
	other := seedReadyOrder(t, db, "Pekka", "0402222222")
	notice := testNotice(uuid.New(), other)
	notice.ShelfLocation = "Mikkeli"
	_, err = svc.NotifyShelfLoad(ctx, notice)
	require.NoError(t, err)
	require.Contains(t, sender.messages[1].Body, "Oletusviesti Pekka")
}

func TestNotifyCustomer(t *testing.T) {
	db := newTestDB(t)
	sender := &fakeSender{}
	svc := newTestService(t, db, sender, nil)

	order := seedReadyOrder(t, db, "Maija", "0401234567")
	outcome, err := svc.NotifyCustomer(context.Background(), order.CustomerID, "Kuopio")
	require.NoError(t, err)
	require.Equal(t, enums.SmsDeliveryStatusSent, outcome.Status)
	require.Len(t, sender.messages, 1)

	_, err = svc.NotifyCustomer(context.Background(), uuid.New(), "Kuopio")
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestRecordDeliveryIncrements(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	customerID := uuid.New()

	now := time.Now()
	require.NoError(t, repo.RecordDelivery(ctx, customerID, enums.SmsDeliveryStatusSent, now))
	require.NoError(t, repo.RecordDelivery(ctx, customerID, enums.SmsDeliveryStatusSent, now))
	require.NoError(t, repo.RecordDelivery(ctx, customerID, enums.SmsDeliveryStatusNotSent, now))

	var status models.SmsStatus
	require.NoError(t, db.First(&status, "customer_id = ?", customerID).Error)
	require.Equal(t, 2, status.SentCount)
	require.Equal(t, enums.SmsDeliveryStatusNotSent, status.LastStatus)
}
