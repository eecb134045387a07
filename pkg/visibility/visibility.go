package visibility

import (
	"github.com/google/uuid"

	"github.com/helplane/helplane-backend/pkg/db/models"
	"github.com/helplane/helplane-backend/pkg/enums"
	pkgerrors "github.com/helplane/helplane-backend/pkg/errors"
)

// Viewer identifies the user a visibility check runs on behalf of.
type Viewer struct {
	UserID   uuid.UUID
	Role     enums.MemberRole
	IsMember bool
}

// ConversationVisible reports whether the viewer may read the conversation.
// Owners and admins see every conversation. Agents see conversations in
// inboxes they belong to when the conversation is unassigned or assigned
// to them.
func ConversationVisible(viewer Viewer, conversation *models.Conversation) bool {
	if conversation == nil {
		return false
	}
	if viewer.Role.IsElevated() {
		return true
	}
	if viewer.Role != enums.MemberRoleAgent {
		return false
	}
	if !viewer.IsMember {
		return false
	}
	if conversation.AssignedAgentID == nil {
		return true
	}
	return *conversation.AssignedAgentID == viewer.UserID
}

// EnsureConversationVisible enforces the canonical rules so hidden
// conversations never leak through read queries. Invisible conversations
// surface as not found rather than forbidden.
func EnsureConversationVisible(viewer Viewer, conversation *models.Conversation) error {
	if conversation == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "conversation not found")
	}
	if !ConversationVisible(viewer, conversation) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "conversation not found")
	}
	return nil
}
