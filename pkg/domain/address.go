// Package domain holds shared domain primitives that enforce validity at
// parse time. Services accept these types instead of raw strings so invalid
// values cannot travel past the boundary.
package domain

import (
	"encoding/hex"
	"fmt"
)

// AddressLen is the raw byte length of an address.
const AddressLen = 32

// Address is a 32-byte account identifier on the host ledger, carried in its
// canonical lowercase-hex form (64 characters). The zero value is invalid.
type Address string

// ParseAddress validates and canonicalizes an address string.
func ParseAddress(s string) (Address, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return "", fmt.Errorf("address is not valid hex: %w", err)
	}
	if len(raw) != AddressLen {
		return "", fmt.Errorf("address must be %d bytes, got %d", AddressLen, len(raw))
	}
	return Address(hex.EncodeToString(raw)), nil
}

// AddressFromBytes builds an Address from raw bytes.
func AddressFromBytes(raw []byte) (Address, error) {
	if len(raw) != AddressLen {
		return "", fmt.Errorf("address must be %d bytes, got %d", AddressLen, len(raw))
	}
	return Address(hex.EncodeToString(raw)), nil
}

// String returns the canonical hex form.
func (a Address) String() string { return string(a) }

// IsZero reports whether the address is unset or the all-zero account, which
// is never a valid transfer participant.
func (a Address) IsZero() bool {
	if a == "" {
		return true
	}
	for _, c := range a {
		if c != '0' {
			return false
		}
	}
	return true
}
