package conversations

import (
	"time"

	"github.com/google/uuid"

	"github.com/helplane/helplane-backend/pkg/db/models"
	"github.com/helplane/helplane-backend/pkg/enums"
)

// ConversationDTO is the transport shape for conversations.
type ConversationDTO struct {
	ID              uuid.UUID                `json:"id"`
	InboxID         uuid.UUID                `json:"inbox_id"`
	ContactEmail    string                   `json:"contact_email"`
	Subject         string                   `json:"subject"`
	Status          enums.ConversationStatus `json:"status"`
	AssignedAgentID *uuid.UUID               `json:"assigned_agent_id,omitempty"`
	CreatedAt       time.Time                `json:"created_at"`
	UpdatedAt       time.Time                `json:"updated_at"`
}

// CreateConversationInput carries the fields accepted on intake.
type CreateConversationInput struct {
	InboxID      uuid.UUID
	ContactEmail string
	Subject      string
}

// ListFilter narrows a conversation listing.
type ListFilter struct {
	InboxID    uuid.UUID
	Status     *enums.ConversationStatus
	Unassigned bool
	Mine       bool
}

// Page is one cursor page of conversations.
type Page struct {
	Items      []ConversationDTO `json:"items"`
	NextCursor string            `json:"next_cursor,omitempty"`
}

func FromModel(conversation *models.Conversation) *ConversationDTO {
	if conversation == nil {
		return nil
	}
	return &ConversationDTO{
		ID:              conversation.ID,
		InboxID:         conversation.InboxID,
		ContactEmail:    conversation.ContactEmail,
		Subject:         conversation.Subject,
		Status:          conversation.Status,
		AssignedAgentID: conversation.AssignedAgentID,
		CreatedAt:       conversation.CreatedAt,
		UpdatedAt:       conversation.UpdatedAt,
	}
}
