package types

import (
	"github.com/google/uuid"

	"github.com/fireguard/booking-payments/pkg/enums"
)

// Actor is the explicit identity behind an operation. There is no ambient
// caller; every state-changing entry point receives one.
type Actor struct {
	ID   uuid.UUID       `json:"id"`
	Role enums.ActorRole `json:"role"`
}

// SystemActor identifies scheduled and gateway-driven transitions.
var SystemActor = Actor{ID: uuid.Nil, Role: enums.ActorRoleSystem}

func (a Actor) IsAdmin() bool {
	return a.Role == enums.ActorRoleAdmin && a.ID != uuid.Nil
}

// Valid reports whether the actor is usable for auditing.
func (a Actor) Valid() bool {
	if !a.Role.IsValid() {
		return false
	}
	if a.Role == enums.ActorRoleSystem {
		return true
	}
	return a.ID != uuid.Nil
}
