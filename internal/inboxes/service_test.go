package inboxes

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/helplane/helplane-backend/internal/memberships"
	"github.com/helplane/helplane-backend/pkg/db/models"
	"github.com/helplane/helplane-backend/pkg/enums"
	pkgerrors "github.com/helplane/helplane-backend/pkg/errors"
)

type stubInboxRepo struct {
	inboxes map[uuid.UUID]*models.Inbox
}

func newStubInboxRepo() *stubInboxRepo {
	return &stubInboxRepo{inboxes: make(map[uuid.UUID]*models.Inbox)}
}

func (s *stubInboxRepo) Create(_ context.Context, inbox *models.Inbox) error {
	if inbox.ID == uuid.Nil {
		inbox.ID = uuid.New()
	}
	copied := *inbox
	s.inboxes[inbox.ID] = &copied
	return nil
}

func (s *stubInboxRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Inbox, error) {
	inbox, ok := s.inboxes[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *inbox
	return &copied, nil
}

func (s *stubInboxRepo) List(_ context.Context) ([]models.Inbox, error) {
	out := make([]models.Inbox, 0, len(s.inboxes))
	for _, inbox := range s.inboxes {
		out = append(out, *inbox)
	}
	return out, nil
}

func (s *stubInboxRepo) UpdateSettings(_ context.Context, id uuid.UUID, autoAssign bool, maxPerAgent *int) error {
	inbox, ok := s.inboxes[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	inbox.AutoAssignmentEnabled = autoAssign
	inbox.MaxConversationsPerAgent = maxPerAgent
	return nil
}

type stubMemberRepo struct {
	members map[uuid.UUID]map[uuid.UUID]bool
	agents  []memberships.InboxAgent
}

func newStubMemberRepo() *stubMemberRepo {
	return &stubMemberRepo{members: make(map[uuid.UUID]map[uuid.UUID]bool)}
}

func (s *stubMemberRepo) ListInboxAgents(_ context.Context, _ uuid.UUID) ([]memberships.InboxAgent, error) {
	return s.agents, nil
}

func (s *stubMemberRepo) IsMember(_ context.Context, inboxID, userID uuid.UUID) (bool, error) {
	return s.members[inboxID][userID], nil
}

func (s *stubMemberRepo) AddMember(_ context.Context, inboxID, userID uuid.UUID) (*models.InboxMembership, error) {
	if s.members[inboxID] == nil {
		s.members[inboxID] = make(map[uuid.UUID]bool)
	}
	s.members[inboxID][userID] = true
	return &models.InboxMembership{InboxID: inboxID, UserID: userID}, nil
}

func (s *stubMemberRepo) RemoveMember(_ context.Context, inboxID, userID uuid.UUID) (bool, error) {
	if !s.members[inboxID][userID] {
		return false, nil
	}
	delete(s.members[inboxID], userID)
	return true, nil
}

type stubUserFinder struct {
	users map[uuid.UUID]*models.User
}

func (s *stubUserFinder) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	user, ok := s.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

func newInboxService(t *testing.T, repo *stubInboxRepo, members *stubMemberRepo, users *stubUserFinder) *Service {
	t.Helper()
	if users == nil {
		users = &stubUserFinder{users: map[uuid.UUID]*models.User{}}
	}
	svc, err := NewService(repo, members, users)
	require.NoError(t, err)
	return svc
}

func TestCreateValidatesInput(t *testing.T) {
	svc := newInboxService(t, newStubInboxRepo(), newStubMemberRepo(), nil)

	_, err := svc.Create(context.Background(), CreateInboxInput{Name: "   "})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	zero := 0
	_, err = svc.Create(context.Background(), CreateInboxInput{Name: "support", MaxConversationsPerAgent: &zero})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestCreatePersistsSettings(t *testing.T) {
	repo := newStubInboxRepo()
	svc := newInboxService(t, repo, newStubMemberRepo(), nil)

	cap := 5
	dto, err := svc.Create(context.Background(), CreateInboxInput{
		Name:                     "  support  ",
		AutoAssignmentEnabled:    true,
		MaxConversationsPerAgent: &cap,
	})
	require.NoError(t, err)
	assert.Equal(t, "support", dto.Name)
	assert.True(t, dto.AutoAssignmentEnabled)
	require.NotNil(t, dto.MaxConversationsPerAgent)
	assert.Equal(t, 5, *dto.MaxConversationsPerAgent)
}

func TestUpdateSettingsUnknownInbox(t *testing.T) {
	svc := newInboxService(t, newStubInboxRepo(), newStubMemberRepo(), nil)

	_, err := svc.UpdateSettings(context.Background(), uuid.New(), UpdateSettingsInput{})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestUpdateSettingsClearsCapacity(t *testing.T) {
	repo := newStubInboxRepo()
	svc := newInboxService(t, repo, newStubMemberRepo(), nil)

	cap := 3
	created, err := svc.Create(context.Background(), CreateInboxInput{Name: "support", MaxConversationsPerAgent: &cap})
	require.NoError(t, err)

	updated, err := svc.UpdateSettings(context.Background(), created.ID, UpdateSettingsInput{AutoAssignmentEnabled: true})
	require.NoError(t, err)
	assert.True(t, updated.AutoAssignmentEnabled)
	assert.Nil(t, updated.MaxConversationsPerAgent)
}

func TestAddAgentChecks(t *testing.T) {
	repo := newStubInboxRepo()
	members := newStubMemberRepo()
	agentID := uuid.New()
	adminID := uuid.New()
	inactiveID := uuid.New()
	users := &stubUserFinder{users: map[uuid.UUID]*models.User{
		agentID:    {ID: agentID, Role: enums.MemberRoleAgent, IsActive: true},
		adminID:    {ID: adminID, Role: enums.MemberRoleAdmin, IsActive: true},
		inactiveID: {ID: inactiveID, Role: enums.MemberRoleAgent, IsActive: false},
	}}
	svc := newInboxService(t, repo, members, users)

	created, err := svc.Create(context.Background(), CreateInboxInput{Name: "support"})
	require.NoError(t, err)

	require.NoError(t, svc.AddAgent(context.Background(), created.ID, agentID))

	err = svc.AddAgent(context.Background(), created.ID, agentID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code())

	err = svc.AddAgent(context.Background(), created.ID, adminID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	err = svc.AddAgent(context.Background(), created.ID, inactiveID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	err = svc.AddAgent(context.Background(), created.ID, uuid.New())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestRemoveAgent(t *testing.T) {
	repo := newStubInboxRepo()
	members := newStubMemberRepo()
	agentID := uuid.New()
	users := &stubUserFinder{users: map[uuid.UUID]*models.User{
		agentID: {ID: agentID, Role: enums.MemberRoleAgent, IsActive: true},
	}}
	svc := newInboxService(t, repo, members, users)

	created, err := svc.Create(context.Background(), CreateInboxInput{Name: "support"})
	require.NoError(t, err)
	require.NoError(t, svc.AddAgent(context.Background(), created.ID, agentID))

	require.NoError(t, svc.RemoveAgent(context.Background(), created.ID, agentID))

	err = svc.RemoveAgent(context.Background(), created.ID, agentID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}
