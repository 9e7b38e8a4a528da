package staffauth

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/vincentbui21/SmartJuiceSystem/pkg/auth"
	"github.com/vincentbui21/SmartJuiceSystem/pkg/config"
	"github.com/vincentbui21/SmartJuiceSystem/pkg/db/models"
	"github.com/vincentbui21/SmartJuiceSystem/pkg/enums"
	pkgerrors "github.com/vincentbui21/SmartJuiceSystem/pkg/errors"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "test-secret", Issuer: "mehustaja-test", ExpirationMinutes: 60}
}

func testPasswordConfig() config.PasswordConfig {
	return config.PasswordConfig{ArgonMemoryKB: 8 * 1024, ArgonTime: 1, ArgonParallelism: 1, ArgonSaltLen: 16, ArgonKeyLen: 32}
}

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	dsn := "file:staffauth_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Account{}))
	t.Cleanup(func() {
		sqlDB, err := db.DB()
		require.NoError(t, err)
		require.NoError(t, sqlDB.Close())
	})
	svc, err := NewService(NewRepository(db), testJWTConfig(), testPasswordConfig())
	require.NoError(t, err)
	return svc, db
}

func TestLoginIssuesToken(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	account, err := svc.CreateAccount(ctx, CreateAccountInput{
		Username: "pekka", Password: "salasana123", Role: enums.StaffRoleEmployee,
	})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(account.PasswordHash, "$argon2id$"))

	result, err := svc.Login(ctx, "pekka", "salasana123")
	require.NoError(t, err)
	require.NotEmpty(t, result.Token)

	claims, err := auth.ParseAccessToken(testJWTConfig(), result.Token)
	require.NoError(t, err)
	require.Equal(t, account.ID, claims.AccountID)
	require.Equal(t, enums.StaffRoleEmployee, claims.Role)
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateAccount(ctx, CreateAccountInput{
		Username: "pekka", Password: "salasana123", Role: enums.StaffRoleEmployee,
	})
	require.NoError(t, err)

	_, err = svc.Login(ctx, "pekka", "wrong")
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeUnauthorized, typed.Code())

	_, err = svc.Login(ctx, "nobody", "salasana123")
	require.Error(t, err)
	typed = pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeUnauthorized, typed.Code())
}

func TestLoginRehashesLegacyPlaintext(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	legacy := models.Account{ID: uuid.New(), Username: "vanha", PasswordHash: "selkokielinen", Role: enums.StaffRoleAdmin}
	require.NoError(t, db.Create(&legacy).Error)

	result, err := svc.Login(ctx, "vanha", "selkokielinen")
	require.NoError(t, err)
	require.NotEmpty(t, result.Token)

	var saved models.Account
	require.NoError(t, db.First(&saved, "id = ?", legacy.ID).Error)
	require.True(t, strings.HasPrefix(saved.PasswordHash, "$argon2id$"))

	// second login verifies against the new hash
	_, err = svc.Login(ctx, "vanha", "selkokielinen")
	require.NoError(t, err)
}

func TestCreateAccountDuplicateUsername(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateAccount(ctx, CreateAccountInput{Username: "pekka", Password: "salasana123", Role: enums.StaffRoleEmployee})
	require.NoError(t, err)

	_, err = svc.CreateAccount(ctx, CreateAccountInput{Username: "pekka", Password: "salasana456", Role: enums.StaffRoleEmployee})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeConflict, typed.Code())
}
