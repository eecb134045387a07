package inboxes

import (
	"time"

	"github.com/google/uuid"

	"github.com/helplane/helplane-backend/pkg/db/models"
)

// InboxDTO is the transport shape for inboxes.
type InboxDTO struct {
	ID                       uuid.UUID  `json:"id"`
	Name                     string     `json:"name"`
	AutoAssignmentEnabled    bool       `json:"auto_assignment_enabled"`
	MaxConversationsPerAgent *int       `json:"max_conversations_per_agent,omitempty"`
	LastAssignedAgentID      *uuid.UUID `json:"last_assigned_agent_id,omitempty"`
	CreatedAt                time.Time  `json:"created_at"`
	UpdatedAt                time.Time  `json:"updated_at"`
}

// CreateInboxInput carries the fields accepted on inbox creation.
type CreateInboxInput struct {
	Name                     string
	AutoAssignmentEnabled    bool
	MaxConversationsPerAgent *int
}

// UpdateSettingsInput carries the dispatch policy knobs.
type UpdateSettingsInput struct {
	AutoAssignmentEnabled    bool
	MaxConversationsPerAgent *int
}

func FromModel(inbox *models.Inbox) *InboxDTO {
	if inbox == nil {
		return nil
	}
	return &InboxDTO{
		ID:                       inbox.ID,
		Name:                     inbox.Name,
		AutoAssignmentEnabled:    inbox.AutoAssignmentEnabled,
		MaxConversationsPerAgent: inbox.MaxConversationsPerAgent,
		LastAssignedAgentID:      inbox.LastAssignedAgentID,
		CreatedAt:                inbox.CreatedAt,
		UpdatedAt:                inbox.UpdatedAt,
	}
}
