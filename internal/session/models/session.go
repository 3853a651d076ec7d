// Package models defines the single-use authentication session record.
package models

import (
	"fmt"
	"time"

	dErrors "aliaspay/pkg/domain-errors"
)

// MaxSessionIDLen bounds the caller-chosen session identifier.
const MaxSessionIDLen = 64

// Session is a single-use transfer authorization. It is created Active and
// flips to consumed exactly once; there is no way back.
type Session struct {
	Handle         string
	ID             string
	RequiredPoints uint32
	Device         string
	Active         bool
	CreatedAt      time.Time
	ConsumedAt     *time.Time
}

// ValidateSessionID enforces the id rule: non-empty, at most MaxSessionIDLen
// bytes. The id is otherwise opaque; the caller picks it.
func ValidateSessionID(sessionID string) error {
	if len(sessionID) == 0 {
		return dErrors.New(dErrors.CodeInvalidSessionID, "session id must not be empty")
	}
	if len(sessionID) > MaxSessionIDLen {
		return dErrors.New(dErrors.CodeInvalidSessionID,
			fmt.Sprintf("session id must be at most %d bytes", MaxSessionIDLen))
	}
	return nil
}

// Expired reports whether the session has outlived ttl at now. A zero ttl
// disables expiry.
func (s *Session) Expired(ttl time.Duration, now time.Time) bool {
	if ttl <= 0 {
		return false
	}
	return now.After(s.CreatedAt.Add(ttl))
}
