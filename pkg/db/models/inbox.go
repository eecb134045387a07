package models

import (
	"time"

	"github.com/google/uuid"
)

// Inbox groups conversations and the agents permitted to serve them, and
// carries the dispatch policy knobs the assignment core consumes.
//
// LastAssignedAgentID is the round-robin cursor. It is written only on the
// successful auto-assignment path; selection re-resolves it against a fresh
// eligible list on every call, so a stale cursor is tolerated.
type Inbox struct {
	ID                       uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name                     string     `gorm:"type:text;not null"`
	AutoAssignmentEnabled    bool       `gorm:"column:auto_assignment_enabled;not null;default:false"`
	MaxConversationsPerAgent *int       `gorm:"column:max_conversations_per_agent"`
	LastAssignedAgentID      *uuid.UUID `gorm:"column:last_assigned_agent_id;type:uuid"`
	CreatedAt                time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt                time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
