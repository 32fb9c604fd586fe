package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/awesome-pro/subtrack/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID             uuid.UUID
	Email              string
	SubscriptionStatus enums.SubscriptionStatus
	JTI                string
}

// AccessTokenClaims represents the typed JWT issued to clients.
type AccessTokenClaims struct {
	UserID             uuid.UUID                `json:"user_id"`
	Email              string                   `json:"email"`
	SubscriptionStatus enums.SubscriptionStatus `json:"subscription_status"`
	jwt.RegisteredClaims
}
