package payments

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/fireguard/booking-payments/internal/gateway"
	"github.com/fireguard/booking-payments/pkg/enums"
	pkgerrors "github.com/fireguard/booking-payments/pkg/errors"
)

// RawOutcome is a gateway callback as received. Processors disagree on
// where and how the result is reported, so Status and Paid are both
// accepted and Status may be a string or a boolean.
type RawOutcome struct {
	SessionRef    string          `json:"sessionRef"`
	Status        json.RawMessage `json:"status,omitempty"`
	Paid          *bool           `json:"paid,omitempty"`
	AmountCents   int64           `json:"amountCents"`
	EventID       string          `json:"eventId"`
	FailureReason string          `json:"failureReason,omitempty"`
}

var resultAliases = map[string]enums.GatewayResult{
	"succeeded":        enums.GatewayResultSucceeded,
	"success":          enums.GatewayResultSucceeded,
	"successful":       enums.GatewayResultSucceeded,
	"paid":             enums.GatewayResultSucceeded,
	"captured":         enums.GatewayResultSucceeded,
	"complete":         enums.GatewayResultSucceeded,
	"completed":        enums.GatewayResultSucceeded,
	"authorized":       enums.GatewayResultAuthorized,
	"authorised":       enums.GatewayResultAuthorized,
	"requires_capture": enums.GatewayResultAuthorized,
	"failed":           enums.GatewayResultFailed,
	"failure":          enums.GatewayResultFailed,
	"declined":         enums.GatewayResultFailed,
	"error":            enums.GatewayResultFailed,
	"canceled":         enums.GatewayResultFailed,
	"cancelled":        enums.GatewayResultFailed,
	"expired":          enums.GatewayResultFailed,
}

// NormalizeOutcome maps a loose callback onto the closed result enum.
// Anything unrecognized is rejected rather than guessed.
func NormalizeOutcome(raw RawOutcome) (gateway.Outcome, error) {
	sessionRef := strings.TrimSpace(raw.SessionRef)
	if sessionRef == "" {
		return gateway.Outcome{}, invalidOutcome("sessionRef is required")
	}
	if raw.AmountCents < 0 {
		return gateway.Outcome{}, invalidOutcome("amountCents must not be negative")
	}

	result, err := parseResult(raw)
	if err != nil {
		return gateway.Outcome{}, err
	}
	return gateway.Outcome{
		SessionRef:    sessionRef,
		Result:        result,
		AmountCents:   raw.AmountCents,
		EventID:       strings.TrimSpace(raw.EventID),
		FailureReason: strings.TrimSpace(raw.FailureReason),
	}, nil
}

func parseResult(raw RawOutcome) (enums.GatewayResult, error) {
	status := bytes.TrimSpace(raw.Status)
	if len(status) == 0 || bytes.Equal(status, []byte("null")) {
		if raw.Paid == nil {
			return "", invalidOutcome("status is required")
		}
		return boolResult(*raw.Paid), nil
	}

	var asBool bool
	if err := json.Unmarshal(status, &asBool); err == nil {
		return boolResult(asBool), nil
	}
	var asString string
	if err := json.Unmarshal(status, &asString); err != nil {
		return "", invalidOutcome("status must be a string or boolean")
	}
	key := strings.ToLower(strings.TrimSpace(asString))
	switch key {
	case "true":
		return enums.GatewayResultSucceeded, nil
	case "false":
		return enums.GatewayResultFailed, nil
	}
	result, ok := resultAliases[key]
	if !ok {
		return "", invalidOutcome("unrecognized status " + asString)
	}
	return result, nil
}

func boolResult(paid bool) enums.GatewayResult {
	if paid {
		return enums.GatewayResultSucceeded
	}
	return enums.GatewayResultFailed
}

func invalidOutcome(msg string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, "invalid gateway outcome: "+msg)
}
