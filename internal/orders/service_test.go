package orders

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/vincentbui21/SmartJuiceSystem/internal/token"
	"github.com/vincentbui21/SmartJuiceSystem/pkg/db/models"
	"github.com/vincentbui21/SmartJuiceSystem/pkg/enums"
	pkgerrors "github.com/vincentbui21/SmartJuiceSystem/pkg/errors"
)

type gormTx struct {
	db *gorm.DB
}

func (g gormTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return g.db.WithContext(ctx).Transaction(fn)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:orders_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Customer{}, &models.Order{}, &models.Crate{}, &models.Box{},
	))
	t.Cleanup(func() {
		sqlDB, err := db.DB()
		require.NoError(t, err)
		require.NoError(t, sqlDB.Close())
	})
	return db
}

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	svc, err := NewService(gormTx{db: db}, NewRepository(db), nil, nil, nil, nil)
	require.NoError(t, err)
	return svc, db
}

func seedOrder(t *testing.T, db *gorm.DB, weightKg string, status enums.OrderStatus) models.Order {
	t.Helper()
	customer := models.Customer{ID: uuid.New(), Name: "Maija Virtanen", Phone: "+358401234567"}
	require.NoError(t, db.Create(&customer).Error)
	order := models.Order{
		ID:         uuid.New(),
		CustomerID: customer.ID,
		WeightKg:   decimal.RequireFromString(weightKg),
		Status:     status,
	}
	require.NoError(t, db.Create(&order).Error)
	return order
}

func TestMarkDoneMath(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	// 30 kg * 0.65 = 19.5 L -> 6 pouches -> 1 box
	order := seedOrder(t, db, "30", enums.OrderStatusInProgress)

	result, err := svc.MarkDone(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, 6, result.Pouches)
	require.Equal(t, 1, result.Boxes)
	require.Equal(t, []string{token.CanonicalBox(order.ID, 1)}, result.BoxLabels)
	require.Equal(t, enums.OrderStatusProcessingComplete, result.Order.Status)

	var saved models.Order
	require.NoError(t, db.First(&saved, "id = ?", order.ID).Error)
	require.Equal(t, 6, saved.EstPouches)
	require.Equal(t, 1, saved.BoxesCount)
}

func TestMarkDoneZeroWeightStillOneBox(t *testing.T) {
	svc, db := newTestService(t)

	order := seedOrder(t, db, "0", enums.OrderStatusInProgress)
	result, err := svc.MarkDone(context.Background(), order.ID)
	require.NoError(t, err)
	require.Equal(t, 0, result.Pouches)
	require.Equal(t, 1, result.Boxes)
}

func TestMarkDoneRerunDoesNotDuplicateBoxes(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	// 150 kg * 0.65 = 97.5 L -> 32 pouches -> 4 boxes
	order := seedOrder(t, db, "150", enums.OrderStatusInProgress)

	first, err := svc.MarkDone(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, 4, first.Boxes)

	second, err := svc.MarkDone(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, 4, second.Boxes)

	var count int64
	require.NoError(t, db.Model(&models.Box{}).Where("order_id = ?", order.ID).Count(&count).Error)
	require.Equal(t, int64(4), count)
}

func TestMarkDoneDeletedOrder(t *testing.T) {
	svc, db := newTestService(t)

	order := seedOrder(t, db, "30", enums.OrderStatusDeleted)
	_, err := svc.MarkDone(context.Background(), order.ID)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
}

func TestMarkDoneMarksCratesProcessed(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	order := seedOrder(t, db, "30", enums.OrderStatusInProgress)
	crate := models.Crate{ID: uuid.New(), OrderID: order.ID, Status: enums.CrateStatusInProgress}
	require.NoError(t, db.Create(&crate).Error)

	_, err := svc.MarkDone(ctx, order.ID)
	require.NoError(t, err)

	var saved models.Crate
	require.NoError(t, db.First(&saved, "id = ?", crate.ID).Error)
	require.Equal(t, enums.CrateStatusProcessed, saved.Status)
}

func TestMarkDoneHonorsOperatorOverrides(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	// 30 kg would derive 6 pouches and 1 box
	order := seedOrder(t, db, "30", enums.OrderStatusInProgress)
	pouches, boxes := 20, 3
	_, err := svc.Update(ctx, order.ID, UpdateInput{PouchesCount: &pouches, BoxesCount: &boxes})
	require.NoError(t, err)

	result, err := svc.MarkDone(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, 20, result.Pouches)
	require.Equal(t, 3, result.Boxes)
	require.Len(t, result.BoxLabels, 3)

	var saved models.Order
	require.NoError(t, db.First(&saved, "id = ?", order.ID).Error)
	require.Equal(t, 20, saved.EstPouches)
	require.Equal(t, 3, saved.BoxesCount)
}

func TestMarkDoneStampsBoxCustomer(t *testing.T) {
	svc, db := newTestService(t)

	order := seedOrder(t, db, "30", enums.OrderStatusInProgress)
	_, err := svc.MarkDone(context.Background(), order.ID)
	require.NoError(t, err)

	var box models.Box
	require.NoError(t, db.First(&box, "order_id = ?", order.ID).Error)
	require.NotNil(t, box.CustomerID)
	require.Equal(t, order.CustomerID, *box.CustomerID)
}

func TestUpdateCrateCountReissuesLabels(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	order := seedOrder(t, db, "30", enums.OrderStatusCreated)
	for i := 1; i <= 2; i++ {
		crate := models.Crate{ID: uuid.New(), OrderID: order.ID, Sequence: i, Total: 2, Status: enums.CrateStatusWaiting}
		require.NoError(t, db.Create(&crate).Error)
	}

	count := 3
	updated, err := svc.Update(ctx, order.ID, UpdateInput{CrateCount: &count})
	require.NoError(t, err)
	require.Equal(t, 3, updated.CrateCount)

	var crates []models.Crate
	require.NoError(t, db.Order("sequence ASC").Find(&crates, "order_id = ?", order.ID).Error)
	require.Len(t, crates, 3)
	for i, crate := range crates {
		require.Equal(t, i+1, crate.Sequence)
		require.Equal(t, 3, crate.Total)
		require.Equal(t, enums.CrateStatusWaiting, crate.Status)
	}
}

func TestUpdateAllowsBackwardStatus(t *testing.T) {
	svc, db := newTestService(t)

	// the admin form may rewind a mis-scanned order
	order := seedOrder(t, db, "30", enums.OrderStatusProcessingComplete)
	status := "In progress"
	updated, err := svc.Update(context.Background(), order.ID, UpdateInput{Status: &status})
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusInProgress, updated.Status)
}

func TestScanInfoResolvesEmbeddedOrder(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	order := seedOrder(t, db, "150", enums.OrderStatusInProgress)
	_, err := svc.MarkDone(ctx, order.ID)
	require.NoError(t, err)

	info, err := svc.ScanInfo(ctx, "box_"+order.ID.String()+"_2")
	require.NoError(t, err)
	require.Equal(t, token.CanonicalBox(order.ID, 2), info.Box)
	require.Equal(t, order.ID, info.Order.ID)
	require.NotNil(t, info.Order.Customer)
	require.Equal(t, 4, info.BoxCount)
	require.Len(t, info.Boxes, 4)
}

func TestScanInfoFallsBackThroughCustomer(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	order := seedOrder(t, db, "30", enums.OrderStatusInProgress)
	// legacy label: the embedded uuid is not an order id
	stray := uuid.New()
	label := token.CanonicalBox(stray, 1)
	box := models.Box{ID: label, OrderID: order.ID, CustomerID: &order.CustomerID, Ordinal: 1}
	require.NoError(t, db.Create(&box).Error)

	info, err := svc.ScanInfo(ctx, label)
	require.NoError(t, err)
	require.Equal(t, order.ID, info.Order.ID)

	_, err = svc.ScanInfo(ctx, token.CanonicalBox(uuid.New(), 9))
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestMarkReadyIdempotent(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	order := seedOrder(t, db, "30", enums.OrderStatusProcessingComplete)

	updated, err := svc.MarkReady(ctx, order.ID)
	require.NoError(t, err)
	require.True(t, updated)

	var afterFirst models.Order
	require.NoError(t, db.First(&afterFirst, "id = ?", order.ID).Error)
	require.NotNil(t, afterFirst.ReadyAt)
	firstReadyAt := *afterFirst.ReadyAt

	updated, err = svc.MarkReady(ctx, order.ID)
	require.NoError(t, err)
	require.False(t, updated)

	var afterSecond models.Order
	require.NoError(t, db.First(&afterSecond, "id = ?", order.ID).Error)
	require.NotNil(t, afterSecond.ReadyAt)
	require.Equal(t, firstReadyAt.UTC(), afterSecond.ReadyAt.UTC())
}

func TestMarkReadyPickedUpOrderUnchanged(t *testing.T) {
	svc, db := newTestService(t)

	order := seedOrder(t, db, "30", enums.OrderStatusPickedUp)
	updated, err := svc.MarkReady(context.Background(), order.ID)
	require.NoError(t, err)
	require.False(t, updated)

	var saved models.Order
	require.NoError(t, db.First(&saved, "id = ?", order.ID).Error)
	require.Equal(t, enums.OrderStatusPickedUp, saved.Status)
}

func TestMarkPickedUpRequiresReady(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	order := seedOrder(t, db, "30", enums.OrderStatusProcessingComplete)
	_, err := svc.MarkPickedUp(ctx, order.ID)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeStateConflict, typed.Code())

	_, err = svc.MarkReady(ctx, order.ID)
	require.NoError(t, err)

	picked, err := svc.MarkPickedUp(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusPickedUp, picked.Status)
	require.NotNil(t, picked.PickedUpAt)
}

func TestUpdateCratesStartsOrder(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	order := seedOrder(t, db, "30", enums.OrderStatusCreated)
	crates := make([]models.Crate, 2)
	tokens := make([]string, 2)
	for i := range crates {
		crates[i] = models.Crate{ID: uuid.New(), OrderID: order.ID, Status: enums.CrateStatusWaiting}
		require.NoError(t, db.Create(&crates[i]).Error)
		tokens[i] = token.CrateToken{CrateID: crates[i].ID}.String()
	}

	result, err := svc.UpdateCrates(ctx, tokens, enums.CrateStatusInProgress)
	require.NoError(t, err)
	require.Equal(t, 2, result.UpdatedCrates)
	require.Equal(t, []uuid.UUID{order.ID}, result.StartedOrders)

	var saved models.Order
	require.NoError(t, db.First(&saved, "id = ?", order.ID).Error)
	require.Equal(t, enums.OrderStatusInProgress, saved.Status)

	// a second batch does not restart the order
	result, err = svc.UpdateCrates(ctx, tokens[:1], enums.CrateStatusInProgress)
	require.NoError(t, err)
	require.Empty(t, result.StartedOrders)
}

func TestUpdateCratesRejectsBadToken(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.UpdateCrates(context.Background(), []string{"CRATE_garbage"}, enums.CrateStatusInProgress)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestDeleteCascades(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	order := seedOrder(t, db, "30", enums.OrderStatusInProgress)
	_, err := svc.MarkDone(ctx, order.ID)
	require.NoError(t, err)
	crate := models.Crate{ID: uuid.New(), OrderID: order.ID}
	require.NoError(t, db.Create(&crate).Error)

	require.NoError(t, svc.Delete(ctx, order.ID))

	var boxCount, crateCount int64
	require.NoError(t, db.Model(&models.Box{}).Where("order_id = ?", order.ID).Count(&boxCount).Error)
	require.NoError(t, db.Model(&models.Crate{}).Where("order_id = ?", order.ID).Count(&crateCount).Error)
	require.Zero(t, boxCount)
	require.Zero(t, crateCount)

	var saved models.Order
	require.NoError(t, db.First(&saved, "id = ?", order.ID).Error)
	require.Equal(t, enums.OrderStatusDeleted, saved.Status)
}

func TestPickupSearchMatchesNameAndPhone(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	order := seedOrder(t, db, "30", enums.OrderStatusProcessingComplete)
	_, err := svc.MarkReady(ctx, order.ID)
	require.NoError(t, err)

	// searching by partial name
	found, err := svc.PickupSearch(ctx, "maija")
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.Equal(t, order.ID, found[0].ID)

	// searching by phone fragment
	found, err = svc.PickupSearch(ctx, "4012345")
	require.NoError(t, err)
	require.Len(t, found, 1)

	found, err = svc.PickupSearch(ctx, "nobody")
	require.NoError(t, err)
	require.Empty(t, found)
}

func TestExpectedBoxesEstimatesBeforePressing(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	// 150 kg -> 32 pouches -> 4 boxes
	order := seedOrder(t, db, "150", enums.OrderStatusCreated)

	labels, err := svc.ExpectedBoxes(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, labels, 4)
	require.Equal(t, token.CanonicalBox(order.ID, 1), labels[0])
}

func TestListFiltersByStatus(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	seedOrder(t, db, "10", enums.OrderStatusCreated)
	seedOrder(t, db, "20", enums.OrderStatusReadyForPickup)
	seedOrder(t, db, "30", enums.OrderStatusDeleted)

	result, err := svc.List(ctx, ListParams{Status: "Ready for pickup"})
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	require.Equal(t, enums.OrderStatusReadyForPickup, result.Items[0].Status)

	// no filter excludes deleted orders
	result, err = svc.List(ctx, ListParams{})
	require.NoError(t, err)
	require.Len(t, result.Items, 2)
}
