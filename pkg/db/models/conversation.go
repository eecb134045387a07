package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/helplane/helplane-backend/pkg/enums"
)

// Conversation is a unit of customer-support work belonging to an inbox.
//
// AssignedAgentID is the only field the dispatch core mutates, and every
// mutation goes through the conditional-write primitive in
// internal/assignment; nil means unassigned. Status is orthogonal to
// assignment and never touched by the dispatch core.
type Conversation struct {
	ID              uuid.UUID                `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	InboxID         uuid.UUID                `gorm:"column:inbox_id;type:uuid;not null;index"`
	ContactEmail    string                   `gorm:"column:contact_email;not null"`
	Subject         string                   `gorm:"column:subject;not null"`
	Status          enums.ConversationStatus `gorm:"column:status;type:conversation_status_enum;not null;default:'open'"`
	AssignedAgentID *uuid.UUID               `gorm:"column:assigned_agent_id;type:uuid;index"`
	CreatedAt       time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}
