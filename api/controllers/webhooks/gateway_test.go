package webhooks

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fireguard/booking-payments/internal/gateway"
	"github.com/fireguard/booking-payments/pkg/db/models"
	"github.com/fireguard/booking-payments/pkg/enums"
	pkgerrors "github.com/fireguard/booking-payments/pkg/errors"
	"github.com/fireguard/booking-payments/pkg/logger"
)

const secret = "whsec_unit"

type fakeOutcomes struct {
	calls []gateway.Outcome
	err   error
}

func (f *fakeOutcomes) ApplyGatewayResult(_ context.Context, bookingID uuid.UUID, outcome gateway.Outcome) (*models.Booking, error) {
	f.calls = append(f.calls, outcome)
	if f.err != nil {
		return nil, f.err
	}
	return &models.Booking{ID: bookingID, Status: enums.BookingStatusConfirmed}, nil
}

type fakeGuard struct {
	seen    map[string]bool
	deleted []string
}

func newFakeGuard() *fakeGuard { return &fakeGuard{seen: map[string]bool{}} }

func (g *fakeGuard) CheckAndMark(_ context.Context, eventID string) (bool, error) {
	if g.seen[eventID] {
		return true, nil
	}
	g.seen[eventID] = true
	return false, nil
}

func (g *fakeGuard) Delete(_ context.Context, eventID string) error {
	delete(g.seen, eventID)
	g.deleted = append(g.deleted, eventID)
	return nil
}

func serve(t *testing.T, handler http.HandlerFunc, bookingID uuid.UUID, body []byte, signature string) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	r.Post("/callbacks/{bookingId}", handler)
	req := httptest.NewRequest(http.MethodPost, "/callbacks/"+bookingID.String(), bytes.NewReader(body))
	if signature != "" {
		req.Header.Set(SignatureHeader, signature)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func signedBody(t *testing.T, payload map[string]any) ([]byte, string) {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return body, gateway.Sign(secret, body, time.Now())
}

func TestGatewayCallbackAppliesNormalizedOutcome(t *testing.T) {
	svc := &fakeOutcomes{}
	handler := GatewayCallback(svc, secret, newFakeGuard(), logger.Nop())
	body, sig := signedBody(t, map[string]any{"sessionRef": "cs_1", "paid": true, "eventId": "evt_1"})

	rec := serve(t, handler, uuid.New(), body, sig)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if len(svc.calls) != 1 {
		t.Fatalf("expected one apply call got %d", len(svc.calls))
	}
	if got := svc.calls[0]; got.Result != enums.GatewayResultSucceeded || got.SessionRef != "cs_1" {
		t.Fatalf("unexpected outcome %+v", got)
	}
}

func TestGatewayCallbackDeduplicatesEventIDs(t *testing.T) {
	svc := &fakeOutcomes{}
	handler := GatewayCallback(svc, secret, newFakeGuard(), logger.Nop())
	body, sig := signedBody(t, map[string]any{"sessionRef": "cs_1", "status": "captured", "eventId": "evt_dup"})
	id := uuid.New()

	serve(t, handler, id, body, sig)
	rec := serve(t, handler, id, body, sig)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if !bytes.Contains(rec.Body.Bytes(), []byte(`"duplicate":true`)) {
		t.Fatalf("expected duplicate ack got %s", rec.Body.String())
	}
	if len(svc.calls) != 1 {
		t.Fatalf("replay must not reach the service, got %d calls", len(svc.calls))
	}
}

func TestGatewayCallbackReleasesEventOnFailure(t *testing.T) {
	svc := &fakeOutcomes{err: pkgerrors.New(pkgerrors.CodeDependency, "store down")}
	guard := newFakeGuard()
	handler := GatewayCallback(svc, secret, guard, logger.Nop())
	body, sig := signedBody(t, map[string]any{"sessionRef": "cs_1", "status": "failed", "eventId": "evt_retry"})

	rec := serve(t, handler, uuid.New(), body, sig)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", rec.Code)
	}
	if len(guard.deleted) != 1 || guard.deleted[0] != "evt_retry" {
		t.Fatalf("expected event to be released, got %v", guard.deleted)
	}
	if guard.seen["evt_retry"] {
		t.Fatalf("event should be retryable")
	}
}

func TestGatewayCallbackRejections(t *testing.T) {
	valid, _ := json.Marshal(map[string]any{"sessionRef": "cs_1", "status": "succeeded"})
	unknown, _ := json.Marshal(map[string]any{"sessionRef": "cs_1", "status": "maybe"})
	cases := []struct {
		name      string
		body      []byte
		signature string
		want      int
	}{
		{"missing signature", valid, "", http.StatusUnauthorized},
		{"wrong secret", valid, gateway.Sign("other", valid, time.Now()), http.StatusUnauthorized},
		{"stale signature", valid, gateway.Sign(secret, valid, time.Now().Add(-time.Hour)), http.StatusUnauthorized},
		{"unknown status", unknown, gateway.Sign(secret, unknown, time.Now()), http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &fakeOutcomes{}
			rec := serve(t, GatewayCallback(svc, secret, nil, logger.Nop()), uuid.New(), tc.body, tc.signature)
			if rec.Code != tc.want {
				t.Fatalf("expected %d got %d: %s", tc.want, rec.Code, rec.Body.String())
			}
			if len(svc.calls) != 0 {
				t.Fatalf("rejected callback reached the service")
			}
		})
	}
}

func TestGatewayCallbackRequiresSecret(t *testing.T) {
	body, sig := signedBody(t, map[string]any{"sessionRef": "cs_1", "status": "succeeded"})
	rec := serve(t, GatewayCallback(&fakeOutcomes{}, "", nil, logger.Nop()), uuid.New(), body, sig)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", rec.Code)
	}
}
