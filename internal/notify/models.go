package notify

import (
	"time"

	"aliaspay/pkg/domain"
)

// Event is emitted from domain logic to capture key account actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID        string         `json:"id"`
	Action    Action         `json:"action"`
	Handle    string         `json:"handle,omitempty"`
	Subject   string         `json:"subject,omitempty"`
	Actor     domain.Address `json:"actor,omitempty"`
	Amount    uint64         `json:"amount,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
	Device    string         `json:"device,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

type Action string

const (
	ActionIdentityCreated      Action = "identity_created"
	ActionIdentityUpdated      Action = "identity_updated"
	ActionMainAddressChanged   Action = "main_address_changed"
	ActionAuthorityTransferred Action = "authority_transferred"
	ActionMappingSet           Action = "mapping_set"
	ActionMappingCleared       Action = "mapping_cleared"
	ActionSessionCreated       Action = "session_created"
	ActionSessionConsumed      Action = "session_consumed"
	ActionPointsCredited       Action = "points_credited"
	ActionPointsDebited        Action = "points_debited"
	ActionTransferExecuted     Action = "transfer_executed"
)
