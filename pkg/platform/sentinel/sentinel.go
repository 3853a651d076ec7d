package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and infrastructure layers return
// these (optionally wrapped) so services can translate them into domain errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: entity does not exist in store
// - ErrConflict: another entity already occupies the derived key
// - ErrExpired: session already consumed or past its TTL
// - ErrAlreadyUsed: single-use resource already consumed
// - ErrInvalidState: entity in wrong state for requested operation
// - ErrInsufficient: ledger balance too low for the requested debit
// - ErrUnavailable: service or resource temporarily unavailable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrExpired      = errors.New("expired")
	ErrAlreadyUsed  = errors.New("already used")
	ErrInvalidState = errors.New("invalid state")
	ErrInsufficient = errors.New("insufficient balance")
	ErrUnavailable  = errors.New("unavailable")
)
