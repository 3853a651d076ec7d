// Package models defines the identity registry records and their validation
// rules.
package models

import (
	"fmt"
	"time"

	"aliaspay/pkg/domain"
	dErrors "aliaspay/pkg/domain-errors"
)

// Limits on handles and profile fields. Profile fields are clipped rather
// than rejected; handles are rejected.
const (
	MaxHandleLen  = 32
	MaxBioLen     = 256
	MaxAvatarLen  = 128
	MaxTwitterLen = 32
	MaxDiscordLen = 32
	MaxWebsiteLen = 64
)

// Identity is the registry record for one handle. Authority controls the
// record; MainAddress is the default transfer target and starts equal to
// the authority.
type Identity struct {
	Handle      string
	Authority   domain.Address
	MainAddress domain.Address
	Details     Details
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Details are the optional profile fields attached to an identity.
type Details struct {
	Bio     string
	Avatar  string
	Twitter string
	Discord string
	Website string
}

// Clip truncates every field to its limit. Oversized input is stored
// truncated, not rejected.
func (d Details) Clip() Details {
	return Details{
		Bio:     clip(d.Bio, MaxBioLen),
		Avatar:  clip(d.Avatar, MaxAvatarLen),
		Twitter: clip(d.Twitter, MaxTwitterLen),
		Discord: clip(d.Discord, MaxDiscordLen),
		Website: clip(d.Website, MaxWebsiteLen),
	}
}

func clip(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}

// ReverseLookup maps an address back to the handle whose main address it is.
// A stale record is kept when the main address moves on; resolution always
// goes through the current Identity.
type ReverseLookup struct {
	Address   domain.Address
	Handle    string
	UpdatedAt time.Time
}

// ValidateHandle enforces the handle rule: 1 to MaxHandleLen bytes, lowercase
// letters, digits, dot, underscore and hyphen only.
func ValidateHandle(handle string) error {
	if len(handle) == 0 {
		return dErrors.New(dErrors.CodeInvalidHandle, "handle must not be empty")
	}
	if len(handle) > MaxHandleLen {
		return dErrors.New(dErrors.CodeInvalidHandle,
			fmt.Sprintf("handle must be at most %d bytes", MaxHandleLen))
	}
	for i := 0; i < len(handle); i++ {
		c := handle[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= '0' && c <= '9':
		case c == '.' || c == '_' || c == '-':
		default:
			return dErrors.New(dErrors.CodeInvalidHandle,
				"handle may only contain lowercase letters, digits, '.', '_' and '-'")
		}
	}
	return nil
}

// NewIdentity builds a fresh identity whose main address is the authority.
func NewIdentity(handle string, authority domain.Address, details Details, now time.Time) (*Identity, error) {
	if err := ValidateHandle(handle); err != nil {
		return nil, err
	}
	if authority.IsZero() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "authority address is required")
	}
	return &Identity{
		Handle:      handle,
		Authority:   authority,
		MainAddress: authority,
		Details:     details.Clip(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}
