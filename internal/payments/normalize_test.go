package payments

import (
	"encoding/json"
	"testing"

	"github.com/fireguard/booking-payments/pkg/enums"
	pkgerrors "github.com/fireguard/booking-payments/pkg/errors"
)

func TestNormalizeOutcomeAcceptsAliases(t *testing.T) {
	paid := true
	unpaid := false
	cases := []struct {
		name string
		raw  RawOutcome
		want enums.GatewayResult
	}{
		{"string succeeded", RawOutcome{SessionRef: "cs_1", Status: json.RawMessage(`"succeeded"`)}, enums.GatewayResultSucceeded},
		{"mixed case", RawOutcome{SessionRef: "cs_1", Status: json.RawMessage(`" Captured "`)}, enums.GatewayResultSucceeded},
		{"bool true", RawOutcome{SessionRef: "cs_1", Status: json.RawMessage(`true`)}, enums.GatewayResultSucceeded},
		{"bool false", RawOutcome{SessionRef: "cs_1", Status: json.RawMessage(`false`)}, enums.GatewayResultFailed},
		{"string true", RawOutcome{SessionRef: "cs_1", Status: json.RawMessage(`"true"`)}, enums.GatewayResultSucceeded},
		{"authorised", RawOutcome{SessionRef: "cs_1", Status: json.RawMessage(`"authorised"`)}, enums.GatewayResultAuthorized},
		{"declined", RawOutcome{SessionRef: "cs_1", Status: json.RawMessage(`"declined"`)}, enums.GatewayResultFailed},
		{"paid flag", RawOutcome{SessionRef: "cs_1", Paid: &paid}, enums.GatewayResultSucceeded},
		{"unpaid flag", RawOutcome{SessionRef: "cs_1", Paid: &unpaid}, enums.GatewayResultFailed},
		{"null status falls back", RawOutcome{SessionRef: "cs_1", Status: json.RawMessage(`null`), Paid: &paid}, enums.GatewayResultSucceeded},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := NormalizeOutcome(tc.raw)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if out.Result != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, out.Result)
			}
			if out.SessionRef != "cs_1" {
				t.Fatalf("unexpected session ref %q", out.SessionRef)
			}
		})
	}
}

func TestNormalizeOutcomeRejectsUnknownInput(t *testing.T) {
	cases := []struct {
		name string
		raw  RawOutcome
	}{
		{"missing session", RawOutcome{Status: json.RawMessage(`"succeeded"`)}},
		{"missing status", RawOutcome{SessionRef: "cs_1"}},
		{"unknown string", RawOutcome{SessionRef: "cs_1", Status: json.RawMessage(`"maybe"`)}},
		{"number", RawOutcome{SessionRef: "cs_1", Status: json.RawMessage(`1`)}},
		{"negative amount", RawOutcome{SessionRef: "cs_1", Status: json.RawMessage(`"paid"`), AmountCents: -1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NormalizeOutcome(tc.raw)
			if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestNormalizeOutcomeDecodesCallbackBody(t *testing.T) {
	body := []byte(`{"sessionRef":"cs_9","status":"paid","amountCents":30000,"eventId":" evt_1 ","failureReason":""}`)
	var raw RawOutcome
	if err := json.Unmarshal(body, &raw); err != nil {
		t.Fatalf("decode: %v", err)
	}
	out, err := NormalizeOutcome(raw)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if out.EventID != "evt_1" || out.AmountCents != 30000 || out.Result != enums.GatewayResultSucceeded {
		t.Fatalf("unexpected outcome %+v", out)
	}
}
