package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fireguard/booking-payments/api/middleware"
	pkgerrors "github.com/fireguard/booking-payments/pkg/errors"
	"github.com/fireguard/booking-payments/pkg/types"
)

// UUIDParam parses a route parameter as a uuid.
func UUIDParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, name+" is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+name).
			WithDetails(map[string]any{"field": name})
	}
	return id, nil
}

// RequestActor returns the authenticated actor seeded by the auth middleware.
func RequestActor(r *http.Request) (types.Actor, error) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok || !actor.Valid() {
		return types.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	return actor, nil
}

func bookingAndActor(r *http.Request) (uuid.UUID, types.Actor, error) {
	id, err := UUIDParam(r, "bookingId")
	if err != nil {
		return uuid.Nil, types.Actor{}, err
	}
	actor, err := RequestActor(r)
	if err != nil {
		return uuid.Nil, types.Actor{}, err
	}
	return id, actor, nil
}
