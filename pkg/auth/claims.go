package auth

import (
	"github.com/craftora/backoffice/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenClaims represents the typed JWT presented by the admin frontend.
// Tokens are minted by the identity collaborator; this service only verifies
// and reads them.
type AccessTokenClaims struct {
	UserID uuid.UUID       `json:"user_id"`
	Role   enums.AdminRole `json:"role"`
	jwt.RegisteredClaims
}

// Capability is the injected authorization surface handed to the submission
// pipeline, replacing any ambient "current admin" global.
type Capability struct {
	UserID     uuid.UUID
	Role       enums.AdminRole
	Privileged bool
}

// CapabilityFromClaims derives the pipeline capability from verified claims.
func CapabilityFromClaims(claims *AccessTokenClaims) Capability {
	if claims == nil {
		return Capability{}
	}
	return Capability{
		UserID:     claims.UserID,
		Role:       claims.Role,
		Privileged: claims.Role.Privileged(),
	}
}
