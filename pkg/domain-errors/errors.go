// Package domainerrors defines coded errors shared across services and
// transports. Stores return sentinel errors; services translate those into
// coded errors here; the HTTP layer maps codes onto status lines.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies an error for transport mapping and assertions.
type Code string

const (
	CodeBadRequest   Code = "bad_request"
	CodeUnauthorized Code = "unauthorized"
	CodeNotFound     Code = "not_found"
	CodeConflict     Code = "conflict"
	CodeTimeout      Code = "timeout"
	CodeInternal     Code = "internal"

	CodeInvalidHandle            Code = "invalid_handle"
	CodeAlreadyExists            Code = "already_exists"
	CodeNotAuthorized            Code = "not_authorized"
	CodeInvalidMappingType       Code = "invalid_mapping_type"
	CodeMappingMismatch          Code = "mapping_mismatch"
	CodeInsufficientPoints       Code = "insufficient_points"
	CodeInvalidSessionID         Code = "invalid_session_id"
	CodeSessionExpired           Code = "session_expired"
	CodeSessionUsernameMismatch  Code = "session_username_mismatch"
	CodeUsernameMismatch         Code = "username_mismatch"
	CodeRecipientAddressMismatch Code = "recipient_address_mismatch"
	CodeInvalidTransferAmount    Code = "invalid_transfer_amount"
)

// Error is a coded error with an optional wrapped cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by code and message, so tests can use
// errors.Is(err, New(code, msg)) without comparing wrapped causes.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// Is reports whether any error in err's chain carries code. Alias for HasCode.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// HasCode reports whether any error in err's chain carries code.
func HasCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// CodeOf returns the code of the first coded error in err's chain, or
// CodeInternal when none is present.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a code onto its HTTP status line.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeBadRequest, CodeInvalidHandle, CodeInvalidMappingType,
		CodeInvalidSessionID, CodeInvalidTransferAmount:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeInsufficientPoints:
		return http.StatusPaymentRequired
	case CodeNotAuthorized:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeAlreadyExists, CodeUsernameMismatch,
		CodeMappingMismatch, CodeRecipientAddressMismatch,
		CodeSessionUsernameMismatch:
		return http.StatusConflict
	case CodeSessionExpired:
		return http.StatusGone
	case CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
