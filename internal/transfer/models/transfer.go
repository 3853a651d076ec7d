// Package models defines the executed transfer record and the request shapes
// the authorization gateway accepts.
package models

import (
	"time"

	"aliaspay/pkg/domain"
)

const (
	// MaxMemoLen bounds the free-text memo; longer memos are clipped.
	MaxMemoLen = 100
	// MaxPageSize caps one history page.
	MaxPageSize = 50
)

// Transfer is the durable record of one executed, session-authorized value
// movement.
type Transfer struct {
	ID              int64
	SenderHandle    string
	RecipientHandle string
	MappingType     string
	From            domain.Address
	To              domain.Address
	Amount          uint64
	PointsSpent     uint32
	SessionID       string
	Memo            string
	ExecutedAt      time.Time
}

// Request describes a transfer to the recipient's main address.
// Caller is the authenticated address behind the request; it must hold the
// sender handle's authority. ExpectedRecipient optionally pins the resolved
// target; a pin that no longer matches aborts the transfer instead of paying
// the wrong account.
type Request struct {
	Caller            domain.Address
	SenderHandle      string
	RecipientHandle   string
	Amount            uint64
	SessionID         string
	Memo              string
	ExpectedRecipient domain.Address
}

// MappingRequest describes a transfer to one of the recipient's typed
// mappings instead of the main address.
type MappingRequest struct {
	Request
	MappingType string
}

// ClipMemo truncates a memo to MaxMemoLen bytes.
func ClipMemo(memo string) string {
	if len(memo) > MaxMemoLen {
		return memo[:MaxMemoLen]
	}
	return memo
}
