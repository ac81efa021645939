package enums

import (
	"fmt"
	"strings"
)

// ActorRole identifies who is acting on a booking.
type ActorRole string

const (
	ActorRoleAdmin        ActorRole = "admin"
	ActorRoleCustomer     ActorRole = "customer"
	ActorRoleProfessional ActorRole = "professional"
	ActorRoleSystem       ActorRole = "system"
)

func (r ActorRole) String() string {
	return string(r)
}

func (r ActorRole) IsValid() bool {
	switch r {
	case ActorRoleAdmin, ActorRoleCustomer, ActorRoleProfessional, ActorRoleSystem:
		return true
	default:
		return false
	}
}

// ParseActorRole converts raw input into an ActorRole, ignoring case.
func ParseActorRole(value string) (ActorRole, error) {
	role := ActorRole(strings.ToLower(strings.TrimSpace(value)))
	if !role.IsValid() {
		return "", fmt.Errorf("invalid actor role %q", value)
	}
	return role, nil
}
