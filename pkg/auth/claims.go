package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	HolderID    uuid.UUID
	DisplayName string
	JTI         string
}

// AccessTokenClaims represents the typed JWT issued to buyers.
type AccessTokenClaims struct {
	HolderID    uuid.UUID `json:"holder_id"`
	DisplayName string    `json:"display_name,omitempty"`
	jwt.RegisteredClaims
}
