package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/helplane/helplane-backend/pkg/enums"
)

// ConversationAssignedEvent is emitted when a conversation gains an owner,
// either by round-robin dispatch or an explicit pickup.
type ConversationAssignedEvent struct {
	ConversationID uuid.UUID                  `json:"conversation_id"`
	InboxID        uuid.UUID                  `json:"inbox_id"`
	AgentID        uuid.UUID                  `json:"agent_id"`
	ActionType     enums.AssignmentActionType `json:"action_type"`
	AssignedAt     time.Time                  `json:"assigned_at"`
}

// ConversationTransferredEvent carries both sides of a reassignment.
type ConversationTransferredEvent struct {
	ConversationID uuid.UUID `json:"conversation_id"`
	InboxID        uuid.UUID `json:"inbox_id"`
	FromAgentID    uuid.UUID `json:"from_agent_id"`
	ToAgentID      uuid.UUID `json:"to_agent_id"`
	TransferredAt  time.Time `json:"transferred_at"`
}

// ConversationReleasedEvent signals a conversation returned to the unassigned pool.
type ConversationReleasedEvent struct {
	ConversationID uuid.UUID `json:"conversation_id"`
	InboxID        uuid.UUID `json:"inbox_id"`
	FromAgentID    uuid.UUID `json:"from_agent_id"`
	ReleasedAt     time.Time `json:"released_at"`
}

// AgentAvailabilitySetEvent reports an availability change for downstream dashboards.
type AgentAvailabilitySetEvent struct {
	AgentID      uuid.UUID          `json:"agent_id"`
	Availability enums.Availability `json:"availability"`
	SetAt        time.Time          `json:"set_at"`
}
