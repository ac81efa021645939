package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/fireguard/booking-payments/pkg/enums"
	"github.com/fireguard/booking-payments/pkg/types"
)

// ActorClaims is the identity carried by bearer tokens. Tokens are minted by
// the platform's identity service; this module only verifies them.
type ActorClaims struct {
	ActorID uuid.UUID       `json:"actor_id"`
	Role    enums.ActorRole `json:"role"`
	jwt.RegisteredClaims
}

// Actor converts verified claims into the explicit identity services take.
func (c *ActorClaims) Actor() types.Actor {
	return types.Actor{ID: c.ActorID, Role: c.Role}
}
