package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/helplane/helplane-backend/pkg/enums"
)

// AssignmentAction is the append-only audit record for every
// assignment-affecting action. Produced by the dispatch core, persisted by
// the audit sink; never updated or read back by the core itself.
type AssignmentAction struct {
	ID             uuid.UUID                  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ConversationID uuid.UUID                  `gorm:"column:conversation_id;type:uuid;not null;index"`
	InboxID        uuid.UUID                  `gorm:"column:inbox_id;type:uuid;not null"`
	ActionType     enums.AssignmentActionType `gorm:"column:action_type;type:assignment_action_type_enum;not null"`
	FromAgentID    *uuid.UUID                 `gorm:"column:from_agent_id;type:uuid"`
	ToAgentID      *uuid.UUID                 `gorm:"column:to_agent_id;type:uuid"`
	ActorID        uuid.UUID                  `gorm:"column:actor_id;type:uuid;not null"`
	CreatedAt      time.Time                  `gorm:"column:created_at;autoCreateTime;index"`
}
