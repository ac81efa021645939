package validators

import (
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	pkgerrors "github.com/fireguard/booking-payments/pkg/errors"
)

type refundBody struct {
	AmountCents int64  `json:"amount_cents" validate:"gt=0"`
	Reason      string `json:"reason" validate:"required"`
}

func TestDecodeJSONBodyValidates(t *testing.T) {
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"amount_cents":0}`))
	var body refundBody
	err := DecodeJSONBody(req, &body)
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	details, ok := pkgerrors.As(err).Details().(map[string]string)
	if !ok {
		t.Fatalf("expected field details, got %T", pkgerrors.As(err).Details())
	}
	if details["amount_cents"] != "must be greater than 0" || details["reason"] != "is required" {
		t.Fatalf("unexpected details %v", details)
	}
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"amount_cents":10,"reason":"other","status":"refunded"}`))
	var body refundBody
	if err := DecodeJSONBody(req, &body); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected unknown field to be rejected, got %v", err)
	}
}

func TestParseQueryIntBounds(t *testing.T) {
	req := httptest.NewRequest("GET", "/?limit=500", nil)
	if _, err := ParseQueryInt(req, "limit", 50, 1, 200); err == nil {
		t.Fatal("expected out of range error")
	}
	req = httptest.NewRequest("GET", "/", nil)
	if v, err := ParseQueryInt(req, "limit", 50, 1, 200); err != nil || v != 50 {
		t.Fatalf("expected default 50, got %d %v", v, err)
	}
}

func TestSanitizeStringKeepsRunesWhole(t *testing.T) {
	cases := []struct {
		in     string
		maxLen int
		want   string
	}{
		{"  plain note  ", 0, "plain note"},
		{"  plain note  ", 5, "plain"},
		{"héllo", 2, "h"},
		{"héllo", 3, "hé"},
		{"日本語", 4, "日"},
		{"日本語", 6, "日本"},
	}
	for _, tc := range cases {
		got := SanitizeString(tc.in, tc.maxLen)
		if got != tc.want {
			t.Fatalf("SanitizeString(%q, %d) = %q, want %q", tc.in, tc.maxLen, got, tc.want)
		}
		if !utf8.ValidString(got) {
			t.Fatalf("SanitizeString(%q, %d) produced invalid UTF-8", tc.in, tc.maxLen)
		}
	}
}
