// Package models defines the handle mapping record: a named, typed pointer
// from a handle to an arbitrary address.
package models

import (
	"fmt"
	"time"

	"aliaspay/pkg/domain"
	dErrors "aliaspay/pkg/domain-errors"
)

// MaxTypeLen bounds the mapping type tag.
const MaxTypeLen = 16

// TypeHint is a client-side tag describing what the target address points at.
// The registry stores it verbatim and never interprets it.
type TypeHint uint8

const (
	HintWallet   TypeHint = 0
	HintToken    TypeHint = 1
	HintNFT      TypeHint = 2
	HintMetadata TypeHint = 3
	HintCustom   TypeHint = 4
)

// Mapping is one (handle, type) slot pointing at a target address.
type Mapping struct {
	Handle    string
	Type      string
	Target    domain.Address
	Hint      TypeHint
	UpdatedAt time.Time
}

// ValidateType enforces the mapping type rule: 1 to MaxTypeLen bytes,
// lowercase letters, digits, dot and hyphen only.
func ValidateType(mtype string) error {
	if len(mtype) == 0 {
		return dErrors.New(dErrors.CodeInvalidMappingType, "mapping type must not be empty")
	}
	if len(mtype) > MaxTypeLen {
		return dErrors.New(dErrors.CodeInvalidMappingType,
			fmt.Sprintf("mapping type must be at most %d bytes", MaxTypeLen))
	}
	for i := 0; i < len(mtype); i++ {
		c := mtype[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= '0' && c <= '9':
		case c == '.' || c == '-':
		default:
			return dErrors.New(dErrors.CodeInvalidMappingType,
				"mapping type may only contain lowercase letters, digits, '.' and '-'")
		}
	}
	return nil
}
