package conversations

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/helplane/helplane-backend/internal/assignment"
	"github.com/helplane/helplane-backend/pkg/db/models"
	"github.com/helplane/helplane-backend/pkg/enums"
	pkgerrors "github.com/helplane/helplane-backend/pkg/errors"
	"github.com/helplane/helplane-backend/pkg/logger"
	"github.com/helplane/helplane-backend/pkg/pagination"
	"github.com/helplane/helplane-backend/pkg/visibility"
)

type conversationRepo interface {
	Create(ctx context.Context, conversation *models.Conversation) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Conversation, error)
	List(ctx context.Context, filter ListFilter, scopeAgentID *uuid.UUID, params pagination.Params) ([]models.Conversation, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.ConversationStatus) (bool, error)
}

type inboxReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Inbox, error)
}

type membershipChecker interface {
	IsMember(ctx context.Context, inboxID, userID uuid.UUID) (bool, error)
}

type autoAssigner interface {
	AutoAssign(ctx context.Context, conversationID uuid.UUID, actor assignment.Actor) (*assignment.Result, error)
}

// Service owns conversation intake, listing, and lifecycle. Assignment
// mutations live in internal/assignment; this service only triggers the
// initial auto-assign on intake.
type Service struct {
	repo     conversationRepo
	inboxes  inboxReader
	members  membershipChecker
	assigner autoAssigner
	logg     *logger.Logger
}

// NewService wires the conversation service.
func NewService(
	repo conversationRepo,
	inboxes inboxReader,
	members membershipChecker,
	assigner autoAssigner,
	logg *logger.Logger,
) (*Service, error) {
	if repo == nil {
		return nil, errors.New("conversation repo is required")
	}
	if inboxes == nil {
		return nil, errors.New("inbox repo is required")
	}
	if members == nil {
		return nil, errors.New("memberships repo is required")
	}
	if assigner == nil {
		return nil, errors.New("assignment service is required")
	}
	return &Service{
		repo:     repo,
		inboxes:  inboxes,
		members:  members,
		assigner: assigner,
		logg:     logg,
	}, nil
}

// Create takes in a new conversation and, when the inbox has auto
// assignment enabled, immediately tries to hand it to an agent. The
// intake commits regardless of the assignment outcome; a conversation
// nobody could take stays unassigned and visible to the whole inbox.
func (s *Service) Create(ctx context.Context, input CreateConversationInput, actor assignment.Actor) (*ConversationDTO, error) {
	contactEmail := strings.TrimSpace(strings.ToLower(input.ContactEmail))
	if contactEmail == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "contact email is required")
	}
	subject := strings.TrimSpace(input.Subject)
	if subject == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "subject is required")
	}
	if input.InboxID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "inbox id is required")
	}

	inbox, err := s.inboxes.GetByID(ctx, input.InboxID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "inbox not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading inbox")
	}

	conversation := &models.Conversation{
		InboxID:      inbox.ID,
		ContactEmail: contactEmail,
		Subject:      subject,
		Status:       enums.ConversationStatusOpen,
	}
	if err := s.repo.Create(ctx, conversation); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating conversation")
	}

	if inbox.AutoAssignmentEnabled {
		if result, err := s.assigner.AutoAssign(ctx, conversation.ID, actor); err != nil {
			if s.logg != nil {
				s.logg.Warn(s.logg.WithInboxID(ctx, inbox.ID.String()), "intake auto-assign skipped: "+err.Error())
			}
		} else {
			conversation.AssignedAgentID = result.AgentID
		}
	}

	return FromModel(conversation), nil
}

// GetByID loads a conversation the viewer is allowed to see. Conversations
// outside the viewer's scope read as not found.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID, actor assignment.Actor) (*ConversationDTO, error) {
	conversation, err := s.loadConversation(ctx, id)
	if err != nil {
		return nil, err
	}
	viewer, err := s.viewerFor(ctx, actor, conversation.InboxID)
	if err != nil {
		return nil, err
	}
	if err := visibility.EnsureConversationVisible(viewer, conversation); err != nil {
		return nil, err
	}
	return FromModel(conversation), nil
}

// List returns one cursor page of conversations in an inbox. Agents only
// receive rows within their visibility scope and must belong to the inbox;
// elevated roles see everything.
func (s *Service) List(ctx context.Context, filter ListFilter, actor assignment.Actor, params pagination.Params) (*Page, error) {
	if filter.InboxID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "inbox id is required")
	}

	var scopeAgentID *uuid.UUID
	if !actor.Role.IsElevated() {
		if actor.Role != enums.MemberRoleAgent {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "role may not list conversations")
		}
		member, err := s.members.IsMember(ctx, filter.InboxID, actor.UserID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "checking inbox membership")
		}
		if !member {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not a member of this inbox")
		}
		scopeAgentID = &actor.UserID
	}

	rows, err := s.repo.List(ctx, filter, scopeAgentID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing conversations")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	page := &Page{Items: make([]ConversationDTO, 0, len(rows))}
	for i := range rows {
		if i == limit {
			last := rows[limit-1]
			page.NextCursor = pagination.EncodeCursor(pagination.Cursor{
				CreatedAt: last.CreatedAt,
				ID:        last.ID,
			})
			break
		}
		page.Items = append(page.Items, *FromModel(&rows[i]))
	}
	return page, nil
}

// Resolve closes out an open or pending conversation. The assignee is
// left in place so history keeps its owner.
func (s *Service) Resolve(ctx context.Context, id uuid.UUID, actor assignment.Actor) (*ConversationDTO, error) {
	return s.transition(ctx, id, actor, enums.ConversationStatusResolved, func(current enums.ConversationStatus) bool {
		return current == enums.ConversationStatusOpen || current == enums.ConversationStatusPending
	})
}

// Reopen puts a resolved conversation back into the open pool.
func (s *Service) Reopen(ctx context.Context, id uuid.UUID, actor assignment.Actor) (*ConversationDTO, error) {
	return s.transition(ctx, id, actor, enums.ConversationStatusOpen, func(current enums.ConversationStatus) bool {
		return current == enums.ConversationStatusResolved
	})
}

func (s *Service) transition(
	ctx context.Context,
	id uuid.UUID,
	actor assignment.Actor,
	target enums.ConversationStatus,
	allowed func(enums.ConversationStatus) bool,
) (*ConversationDTO, error) {
	conversation, err := s.loadConversation(ctx, id)
	if err != nil {
		return nil, err
	}
	viewer, err := s.viewerFor(ctx, actor, conversation.InboxID)
	if err != nil {
		return nil, err
	}
	if err := visibility.EnsureConversationVisible(viewer, conversation); err != nil {
		return nil, err
	}
	if !allowed(conversation.Status) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "conversation cannot move to "+target.String()+" from "+conversation.Status.String())
	}

	updated, err := s.repo.UpdateStatus(ctx, conversation.ID, target)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating conversation status")
	}
	if !updated {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "conversation not found")
	}

	conversation.Status = target
	return FromModel(conversation), nil
}

func (s *Service) loadConversation(ctx context.Context, id uuid.UUID) (*models.Conversation, error) {
	conversation, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "conversation not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading conversation")
	}
	return conversation, nil
}

func (s *Service) viewerFor(ctx context.Context, actor assignment.Actor, inboxID uuid.UUID) (visibility.Viewer, error) {
	viewer := visibility.Viewer{UserID: actor.UserID, Role: actor.Role}
	if viewer.Role.IsElevated() {
		return viewer, nil
	}
	member, err := s.members.IsMember(ctx, inboxID, actor.UserID)
	if err != nil {
		return viewer, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "checking inbox membership")
	}
	viewer.IsMember = member
	return viewer, nil
}
