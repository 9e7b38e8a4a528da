package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/vincentbui21/SmartJuiceSystem/pkg/config"
	"github.com/vincentbui21/SmartJuiceSystem/pkg/enums"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "test-secret", Issuer: "mehustaja", ExpirationMinutes: 60}
}

func TestMintAndParseAccessToken(t *testing.T) {
	cfg := testJWTConfig()
	accountID := uuid.New()
	now := time.Now()

	signed, err := MintAccessToken(cfg, now, AccessTokenPayload{
		AccountID: accountID,
		Username:  "etunimi",
		Role:      enums.StaffRoleAdmin,
	})
	require.NoError(t, err)
	require.NotEmpty(t, signed)

	claims, err := ParseAccessToken(cfg, signed)
	require.NoError(t, err)
	require.Equal(t, accountID, claims.AccountID)
	require.Equal(t, "etunimi", claims.Username)
	require.Equal(t, enums.StaffRoleAdmin, claims.Role)
	require.NotEmpty(t, claims.ID)
	require.WithinDuration(t, now.Add(time.Hour), claims.ExpiresAt.Time, 2*time.Second)
}

func TestMintAccessTokenRejectsBadInput(t *testing.T) {
	now := time.Now()

	_, err := MintAccessToken(config.JWTConfig{Issuer: "x", ExpirationMinutes: 1}, now, AccessTokenPayload{Role: enums.StaffRoleAdmin})
	require.Error(t, err)

	_, err = MintAccessToken(testJWTConfig(), now, AccessTokenPayload{Role: enums.StaffRole("boss")})
	require.Error(t, err)
}

func TestParseAccessTokenRejectsWrongSecret(t *testing.T) {
	cfg := testJWTConfig()
	signed, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{AccountID: uuid.New(), Role: enums.StaffRoleEmployee})
	require.NoError(t, err)

	cfg.Secret = "other-secret"
	_, err = ParseAccessToken(cfg, signed)
	require.Error(t, err)
}

func TestParseAccessTokenRejectsExpired(t *testing.T) {
	cfg := testJWTConfig()
	signed, err := MintAccessToken(cfg, time.Now().Add(-2*time.Hour), AccessTokenPayload{AccountID: uuid.New(), Role: enums.StaffRoleEmployee})
	require.NoError(t, err)

	_, err = ParseAccessToken(cfg, signed)
	require.Error(t, err)
}
