package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation    Code = "VALIDATION_ERROR"
	CodeUnauthorized  Code = "UNAUTHORIZED"
	CodeForbidden     Code = "FORBIDDEN"
	CodeNotFound      Code = "NOT_FOUND"
	CodeConflict      Code = "CONFLICT"
	CodeIdempotency   Code = "IDEMPOTENCY_KEY_REUSED"
	CodeInternal      Code = "INTERNAL_ERROR"
	CodeDependency    Code = "DEPENDENCY_ERROR"
	CodeGateway       Code = "GATEWAY_ERROR"
	CodeInvalidPrice  Code = "INVALID_PRICING_INPUT"
	CodeInvalidRate   Code = "INVALID_RATE"
	CodeAlreadyPaid   Code = "ALREADY_PAID"
	CodeNotConfirm    Code = "BOOKING_NOT_CONFIRMABLE"
	CodeExceedsRefund Code = "EXCEEDS_REFUNDABLE_BALANCE"
	CodeInvalidState  Code = "INVALID_STATE"
	CodeNotEligible   Code = "NOT_ELIGIBLE"
	CodeNoAuthority   Code = "INSUFFICIENT_AUTHORITY"
)

type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

var metadataByCode = map[Code]Metadata{
	CodeValidation: {
		HTTPStatus:     http.StatusBadRequest,
		PublicMessage:  "validation failed",
		DetailsAllowed: true,
	},
	CodeUnauthorized: {
		HTTPStatus:    http.StatusUnauthorized,
		PublicMessage: "authentication required",
	},
	CodeForbidden: {
		HTTPStatus:    http.StatusForbidden,
		PublicMessage: "access denied",
	},
	CodeNotFound: {
		HTTPStatus:    http.StatusNotFound,
		PublicMessage: "resource not found",
	},
	CodeConflict: {
		HTTPStatus:    http.StatusConflict,
		Retryable:     true,
		PublicMessage: "concurrent update detected",
	},
	CodeIdempotency: {
		HTTPStatus:     http.StatusConflict,
		PublicMessage:  "idempotency key reused",
		DetailsAllowed: true,
	},
	CodeInternal: {
		HTTPStatus:    http.StatusInternalServerError,
		PublicMessage: "internal server error",
	},
	CodeDependency: {
		HTTPStatus:     http.StatusServiceUnavailable,
		Retryable:      true,
		PublicMessage:  "dependency unavailable",
		DetailsAllowed: true,
	},
	CodeGateway: {
		HTTPStatus:     http.StatusBadGateway,
		Retryable:      true,
		PublicMessage:  "payment gateway unavailable",
		DetailsAllowed: true,
	},
	CodeInvalidPrice: {
		HTTPStatus:     http.StatusBadRequest,
		PublicMessage:  "invalid pricing input",
		DetailsAllowed: true,
	},
	CodeInvalidRate: {
		HTTPStatus:     http.StatusBadRequest,
		PublicMessage:  "commission rate out of range",
		DetailsAllowed: true,
	},
	CodeAlreadyPaid: {
		HTTPStatus:     http.StatusConflict,
		PublicMessage:  "booking already paid",
		DetailsAllowed: true,
	},
	CodeNotConfirm: {
		HTTPStatus:     http.StatusUnprocessableEntity,
		PublicMessage:  "booking cannot be confirmed",
		DetailsAllowed: true,
	},
	CodeExceedsRefund: {
		HTTPStatus:     http.StatusUnprocessableEntity,
		PublicMessage:  "refund exceeds refundable balance",
		DetailsAllowed: true,
	},
	CodeInvalidState: {
		HTTPStatus:     http.StatusUnprocessableEntity,
		PublicMessage:  "state transition disallowed",
		DetailsAllowed: true,
	},
	CodeNotEligible: {
		HTTPStatus:     http.StatusUnprocessableEntity,
		PublicMessage:  "payout not eligible",
		DetailsAllowed: true,
	},
	CodeNoAuthority: {
		HTTPStatus:    http.StatusForbidden,
		PublicMessage: "insufficient authority",
	},
}

func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

// StateDetails is the details payload attached to state-machine rejections.
type StateDetails struct {
	Invariant string   `json:"invariant,omitempty"`
	Current   string   `json:"current,omitempty"`
	Expected  []string `json:"expected,omitempty"`
}

type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
	return &Error{code: code, message: message, cause: err}
}

// InvalidState builds a CodeInvalidState error with current/expected details.
func InvalidState(invariant, current string, expected ...string) *Error {
	msg := fmt.Sprintf("%s: current state %q", invariant, current)
	return New(CodeInvalidState, msg).WithDetails(StateDetails{
		Invariant: invariant,
		Current:   current,
		Expected:  expected,
	})
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e == nil {
		return nil
	}
	e.details = details
	return e
}

func (e *Error) Retryable() bool {
	return MetadataFor(e.Code()).Retryable
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// IsCode reports whether err carries the given code anywhere in its chain.
func IsCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.Code() == code
}
