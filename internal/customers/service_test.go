package customers

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

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	dsn := "file:customers_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Customer{}, &models.Order{}, &models.Crate{}, &models.Box{}, &models.SmsStatus{},
	))
	t.Cleanup(func() {
		sqlDB, err := db.DB()
		require.NoError(t, err)
		require.NoError(t, sqlDB.Close())
	})
	svc, err := NewService(gormTx{db: db}, NewRepository(db), nil, nil)
	require.NoError(t, err)
	return svc, db
}

func TestCreateEntry(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	result, err := svc.CreateEntry(ctx, EntryInput{
		Name:       "Maija Virtanen",
		Phone:      "+358401234567",
		WeightKg:   decimal.RequireFromString("42.5"),
		CrateCount: 3,
	})
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusCreated, result.Order.Status)
	require.Equal(t, 3, result.Order.CrateCount)
	require.Len(t, result.CrateTokens, 3)

	for _, raw := range result.CrateTokens {
		tok, err := token.ParseCrate(raw)
		require.NoError(t, err)
		var crate models.Crate
		require.NoError(t, db.First(&crate, "id = ?", tok.CrateID).Error)
		require.Equal(t, result.Order.ID, crate.OrderID)
		require.Equal(t, enums.CrateStatusWaiting, crate.Status)
	}
}

func TestCreateEntryReusesCustomerByPhone(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	first, err := svc.CreateEntry(ctx, EntryInput{
		Name: "Maija Virtanen", Phone: "+358401234567",
		WeightKg: decimal.RequireFromString("10"), CrateCount: 1,
	})
	require.NoError(t, err)

	second, err := svc.CreateEntry(ctx, EntryInput{
		Name: "Maija Virtanen-Korhonen", Phone: "+358401234567",
		WeightKg: decimal.RequireFromString("20"), CrateCount: 2,
	})
	require.NoError(t, err)
	require.Equal(t, first.Customer.ID, second.Customer.ID)

	var count int64
	require.NoError(t, db.Model(&models.Customer{}).Count(&count).Error)
	require.Equal(t, int64(1), count)

	var saved models.Customer
	require.NoError(t, db.First(&saved, "id = ?", first.Customer.ID).Error)
	require.Equal(t, "Maija Virtanen-Korhonen", saved.Name)
}

func TestCreateEntryValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	cases := []EntryInput{
		{Phone: "+358401234567", WeightKg: decimal.NewFromInt(1), CrateCount: 1},
		{Name: "Maija", WeightKg: decimal.NewFromInt(1), CrateCount: 1},
		{Name: "Maija", Phone: "+358401234567", WeightKg: decimal.NewFromInt(1), CrateCount: 0},
		{Name: "Maija", Phone: "+358401234567", WeightKg: decimal.NewFromInt(-1), CrateCount: 1},
	}
	for _, input := range cases {
		_, err := svc.CreateEntry(ctx, input)
		require.Error(t, err)
		typed := pkgerrors.As(err)
		require.NotNil(t, typed)
		require.Equal(t, pkgerrors.CodeValidation, typed.Code())
	}
}

func TestDeleteCascades(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	result, err := svc.CreateEntry(ctx, EntryInput{
		Name: "Maija", Phone: "+358401234567",
		WeightKg: decimal.RequireFromString("30"), CrateCount: 2,
	})
	require.NoError(t, err)

	box := models.Box{ID: token.CanonicalBox(result.Order.ID, 1), OrderID: result.Order.ID, Ordinal: 1}
	require.NoError(t, db.Create(&box).Error)
	require.NoError(t, db.Create(&models.SmsStatus{CustomerID: result.Customer.ID, SentCount: 1, LastStatus: enums.SmsDeliveryStatusSent}).Error)

	require.NoError(t, svc.Delete(ctx, result.Customer.ID))

	for _, model := range []any{&models.Order{}, &models.Crate{}, &models.Box{}, &models.SmsStatus{}, &models.Customer{}} {
		var count int64
		require.NoError(t, db.Model(model).Count(&count).Error)
		require.Zero(t, count)
	}
}

func TestListSearchesNameAndPhone(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for _, entry := range []EntryInput{
		{Name: "Maija Virtanen", Phone: "+358401111111", WeightKg: decimal.NewFromInt(10), CrateCount: 1},
		{Name: "Pekka Korhonen", Phone: "+358402222222", WeightKg: decimal.NewFromInt(10), CrateCount: 1},
	} {
		_, err := svc.CreateEntry(ctx, entry)
		require.NoError(t, err)
	}

	result, err := svc.List(ctx, ListParams{Search: "virtanen"})
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	require.Equal(t, "Maija Virtanen", result.Items[0].Name)

	result, err = svc.List(ctx, ListParams{Search: "402222"})
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	require.Equal(t, "Pekka Korhonen", result.Items[0].Name)

	result, err = svc.List(ctx, ListParams{})
	require.NoError(t, err)
	require.Len(t, result.Items, 2)
}

func TestSmsStatusDefaultsWhenMissing(t *testing.T) {
	svc, _ := newTestService(t)

	id := uuid.New()
	status, err := svc.SmsStatus(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, id, status.CustomerID)
	require.Zero(t, status.SentCount)
	require.Equal(t, enums.SmsDeliveryStatusNotSent, status.LastStatus)
}
