package inboxes

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/helplane/helplane-backend/internal/memberships"
	"github.com/helplane/helplane-backend/pkg/db/models"
	"github.com/helplane/helplane-backend/pkg/enums"
	pkgerrors "github.com/helplane/helplane-backend/pkg/errors"
)

type inboxRepo interface {
	Create(ctx context.Context, inbox *models.Inbox) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Inbox, error)
	List(ctx context.Context) ([]models.Inbox, error)
	UpdateSettings(ctx context.Context, id uuid.UUID, autoAssign bool, maxPerAgent *int) error
}

type memberRepo interface {
	ListInboxAgents(ctx context.Context, inboxID uuid.UUID) ([]memberships.InboxAgent, error)
	IsMember(ctx context.Context, inboxID, userID uuid.UUID) (bool, error)
	AddMember(ctx context.Context, inboxID, userID uuid.UUID) (*models.InboxMembership, error)
	RemoveMember(ctx context.Context, inboxID, userID uuid.UUID) (bool, error)
}

type userFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Service owns inbox configuration and membership management.
type Service struct {
	repo    inboxRepo
	members memberRepo
	users   userFinder
}

// NewService wires the inbox service.
func NewService(repo inboxRepo, members memberRepo, users userFinder) (*Service, error) {
	if repo == nil {
		return nil, errors.New("inbox repo is required")
	}
	if members == nil {
		return nil, errors.New("memberships repo is required")
	}
	if users == nil {
		return nil, errors.New("users repo is required")
	}
	return &Service{repo: repo, members: members, users: users}, nil
}

// Create validates and persists a new inbox.
func (s *Service) Create(ctx context.Context, input CreateInboxInput) (*InboxDTO, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "inbox name is required")
	}
	if input.MaxConversationsPerAgent != nil && *input.MaxConversationsPerAgent <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "max conversations per agent must be positive")
	}

	inbox := &models.Inbox{
		Name:                     name,
		AutoAssignmentEnabled:    input.AutoAssignmentEnabled,
		MaxConversationsPerAgent: input.MaxConversationsPerAgent,
	}
	if err := s.repo.Create(ctx, inbox); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating inbox")
	}
	return FromModel(inbox), nil
}

// GetByID loads one inbox.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*InboxDTO, error) {
	inbox, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "inbox not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading inbox")
	}
	return FromModel(inbox), nil
}

// List returns all inboxes.
func (s *Service) List(ctx context.Context) ([]InboxDTO, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing inboxes")
	}
	out := make([]InboxDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out, nil
}

// UpdateSettings changes the dispatch policy knobs for an inbox.
func (s *Service) UpdateSettings(ctx context.Context, id uuid.UUID, input UpdateSettingsInput) (*InboxDTO, error) {
	if input.MaxConversationsPerAgent != nil && *input.MaxConversationsPerAgent <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "max conversations per agent must be positive")
	}
	if _, err := s.GetByID(ctx, id); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateSettings(ctx, id, input.AutoAssignmentEnabled, input.MaxConversationsPerAgent); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating inbox settings")
	}
	return s.GetByID(ctx, id)
}

// ListAgents returns the inbox's active agents in membership order.
func (s *Service) ListAgents(ctx context.Context, inboxID uuid.UUID) ([]memberships.InboxAgent, error) {
	if _, err := s.GetByID(ctx, inboxID); err != nil {
		return nil, err
	}
	agents, err := s.members.ListInboxAgents(ctx, inboxID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing inbox agents")
	}
	return agents, nil
}

// AddAgent grants an agent access to the inbox.
func (s *Service) AddAgent(ctx context.Context, inboxID, userID uuid.UUID) error {
	if _, err := s.GetByID(ctx, inboxID); err != nil {
		return err
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading user")
	}
	if user.Role != enums.MemberRoleAgent {
		return pkgerrors.New(pkgerrors.CodeValidation, "only agents can be inbox members")
	}
	if !user.IsActive {
		return pkgerrors.New(pkgerrors.CodeValidation, "user is inactive")
	}

	member, err := s.members.IsMember(ctx, inboxID, userID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "checking membership")
	}
	if member {
		return pkgerrors.New(pkgerrors.CodeConflict, "agent is already a member")
	}

	if _, err := s.members.AddMember(ctx, inboxID, userID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "adding member")
	}
	return nil
}

// RemoveAgent revokes the agent's inbox access.
func (s *Service) RemoveAgent(ctx context.Context, inboxID, userID uuid.UUID) error {
	removed, err := s.members.RemoveMember(ctx, inboxID, userID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "removing member")
	}
	if !removed {
		return pkgerrors.New(pkgerrors.CodeNotFound, "membership not found")
	}
	return nil
}
