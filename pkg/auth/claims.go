package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/vincentbui21/SmartJuiceSystem/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	AccountID uuid.UUID
	Username  string
	Role      enums.StaffRole
	JTI       string
}

// AccessTokenClaims represents the typed JWT issued to staff clients.
type AccessTokenClaims struct {
	AccountID uuid.UUID       `json:"account_id"`
	Username  string          `json:"username"`
	Role      enums.StaffRole `json:"role"`
	jwt.RegisteredClaims
}
