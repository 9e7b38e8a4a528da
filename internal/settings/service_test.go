package settings

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/vincentbui21/SmartJuiceSystem/pkg/config"
	"github.com/vincentbui21/SmartJuiceSystem/pkg/db/models"
	pkgerrors "github.com/vincentbui21/SmartJuiceSystem/pkg/errors"
)

func testPasswordConfig() config.PasswordConfig {
	return config.PasswordConfig{ArgonMemoryKB: 8 * 1024, ArgonTime: 1, ArgonParallelism: 1, ArgonSaltLen: 16, ArgonKeyLen: 32}
}

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	dsn := "file:settings_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Setting{}, &models.City{}, &models.SmsTemplate{}, &models.Account{},
	))
	t.Cleanup(func() {
		sqlDB, err := db.DB()
		require.NoError(t, err)
		require.NoError(t, sqlDB.Close())
	})
	svc, err := NewService(NewRepository(db), testPasswordConfig())
	require.NoError(t, err)
	return svc, db
}

func seedAdmin(t *testing.T, db *gorm.DB, password string) models.Account {
	t.Helper()
	// legacy rows store the password in clear text
	account := models.Account{ID: uuid.New(), Username: "admin", PasswordHash: password, Role: "admin"}
	require.NoError(t, db.Create(&account).Error)
	return account
}

func TestProcessingParamsDefaults(t *testing.T) {
	svc, _ := newTestService(t)

	params, err := svc.ProcessingParams(context.Background())
	require.NoError(t, err)
	require.InDelta(t, 0.65, params.JuiceRatio, 1e-9)
	require.InDelta(t, 3.0, params.PouchLiters, 1e-9)
	require.Equal(t, 8, params.BoxCapacity)
}

func TestUpdateParamsRequiresAdmin(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	seedAdmin(t, db, "salasana123")

	ratio := 0.7
	_, err := svc.UpdateParams(ctx, AdminGate{Username: "admin", Password: "wrong"}, ParamsUpdate{JuiceRatio: &ratio})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeUnauthorized, typed.Code())

	params, err := svc.UpdateParams(ctx, AdminGate{Username: "admin", Password: "salasana123"}, ParamsUpdate{JuiceRatio: &ratio})
	require.NoError(t, err)
	require.InDelta(t, 0.7, params.JuiceRatio, 1e-9)
}

func TestUpdateParamsRehashesLegacyPassword(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	account := seedAdmin(t, db, "salasana123")

	capacity := 10
	_, err := svc.UpdateParams(ctx, AdminGate{Username: "admin", Password: "salasana123"}, ParamsUpdate{BoxCapacity: &capacity})
	require.NoError(t, err)

	var saved models.Account
	require.NoError(t, db.First(&saved, "id = ?", account.ID).Error)
	require.True(t, strings.HasPrefix(saved.PasswordHash, "$argon2id$"))

	// the rehashed credential still verifies
	_, err = svc.UpdateParams(ctx, AdminGate{Username: "admin", Password: "salasana123"}, ParamsUpdate{BoxCapacity: &capacity})
	require.NoError(t, err)
}

func TestUpdateParamsValidatesValues(t *testing.T) {
	svc, db := newTestService(t)
	seedAdmin(t, db, "salasana123")
	gate := AdminGate{Username: "admin", Password: "salasana123"}

	bad := 1.5
	_, err := svc.UpdateParams(context.Background(), gate, ParamsUpdate{JuiceRatio: &bad})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestCities(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	city, err := svc.AddCity(ctx, " Kuopio ")
	require.NoError(t, err)
	require.Equal(t, "Kuopio", city.Name)

	cities, err := svc.Cities(ctx)
	require.NoError(t, err)
	require.Len(t, cities, 1)

	require.NoError(t, svc.RemoveCity(ctx, city.ID))
	cities, err = svc.Cities(ctx)
	require.NoError(t, err)
	require.Empty(t, cities)
}

func TestTemplates(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.PutTemplate(ctx, "Kuopio", "Nouto Kuopiosta {name}"))
	require.NoError(t, svc.PutTemplate(ctx, "kuopio", "Nouto Kuopiosta, päivitetty"))

	templates, err := svc.Templates(ctx)
	require.NoError(t, err)
	require.Len(t, templates, 1)
	require.Equal(t, "kuopio", templates[0].LocationKey)
	require.Equal(t, "Nouto Kuopiosta, päivitetty", templates[0].Body)

	err = svc.RemoveTemplate(ctx, "default")
	require.Error(t, err)

	require.NoError(t, svc.RemoveTemplate(ctx, "kuopio"))
}
