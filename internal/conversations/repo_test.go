package conversations

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/helplane/helplane-backend/pkg/db/models"
	"github.com/helplane/helplane-backend/pkg/enums"
	"github.com/helplane/helplane-backend/pkg/pagination"
)

func setupConversationsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS conversations (
  id TEXT PRIMARY KEY,
  inbox_id TEXT NOT NULL,
  contact_email TEXT NOT NULL,
  subject TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'open',
  assigned_agent_id TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

func insertConversation(t *testing.T, db *gorm.DB, inboxID uuid.UUID, agentID *uuid.UUID, status string, createdAt time.Time) uuid.UUID {
	t.Helper()
	id := uuid.New()
	var agent any
	if agentID != nil {
		agent = agentID.String()
	}
	err := db.Exec(
		`INSERT INTO conversations (id, inbox_id, contact_email, subject, status, assigned_agent_id, created_at, updated_at)
		 VALUES (?, ?, 'contact@example.com', 'Help', ?, ?, ?, ?)`,
		id.String(), inboxID.String(), status, agent, createdAt, createdAt,
	).Error
	require.NoError(t, err)
	return id
}

func TestCreateAndGetConversation(t *testing.T) {
	db := setupConversationsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	conversation := &models.Conversation{
		ID:           uuid.New(),
		InboxID:      uuid.New(),
		ContactEmail: "sam@example.com",
		Subject:      "Cannot log in",
		Status:       enums.ConversationStatusOpen,
	}
	require.NoError(t, repo.Create(ctx, conversation))

	loaded, err := repo.GetByID(ctx, conversation.ID)
	require.NoError(t, err)
	assert.Equal(t, "sam@example.com", loaded.ContactEmail)
	assert.Equal(t, enums.ConversationStatusOpen, loaded.Status)
	assert.Nil(t, loaded.AssignedAgentID)
}

func TestListFiltersAndScope(t *testing.T) {
	db := setupConversationsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	inboxID := uuid.New()
	otherInbox := uuid.New()
	agentA := uuid.New()
	agentB := uuid.New()

	base := time.Now().Add(-time.Hour)
	unassigned := insertConversation(t, db, inboxID, nil, "open", base.Add(1*time.Minute))
	mine := insertConversation(t, db, inboxID, &agentA, "open", base.Add(2*time.Minute))
	theirs := insertConversation(t, db, inboxID, &agentB, "open", base.Add(3*time.Minute))
	resolved := insertConversation(t, db, inboxID, &agentA, "resolved", base.Add(4*time.Minute))
	insertConversation(t, db, otherInbox, nil, "open", base.Add(5*time.Minute))

	t.Run("elevated scope sees everything in the inbox", func(t *testing.T) {
		rows, err := repo.List(ctx, ListFilter{InboxID: inboxID}, nil, pagination.Params{})
		require.NoError(t, err)
		assert.Len(t, rows, 4)
	})

	t.Run("agent scope hides other agents' conversations", func(t *testing.T) {
		rows, err := repo.List(ctx, ListFilter{InboxID: inboxID}, &agentA, pagination.Params{})
		require.NoError(t, err)
		require.Len(t, rows, 3)
		for _, row := range rows {
			assert.NotEqual(t, theirs, row.ID)
		}
	})

	t.Run("status filter", func(t *testing.T) {
		status := enums.ConversationStatusResolved
		rows, err := repo.List(ctx, ListFilter{InboxID: inboxID, Status: &status}, nil, pagination.Params{})
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, resolved, rows[0].ID)
	})

	t.Run("unassigned filter", func(t *testing.T) {
		rows, err := repo.List(ctx, ListFilter{InboxID: inboxID, Unassigned: true}, &agentA, pagination.Params{})
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, unassigned, rows[0].ID)
	})

	t.Run("mine filter", func(t *testing.T) {
		rows, err := repo.List(ctx, ListFilter{InboxID: inboxID, Mine: true}, &agentA, pagination.Params{})
		require.NoError(t, err)
		require.Len(t, rows, 2)
		ids := []uuid.UUID{rows[0].ID, rows[1].ID}
		assert.Contains(t, ids, mine)
		assert.Contains(t, ids, resolved)
	})
}

func TestListCursorPagination(t *testing.T) {
	db := setupConversationsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	inboxID := uuid.New()
	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		insertConversation(t, db, inboxID, nil, "open", base.Add(time.Duration(i)*time.Minute))
	}

	first, err := repo.List(ctx, ListFilter{InboxID: inboxID}, nil, pagination.Params{Limit: 2})
	require.NoError(t, err)
	// LimitWithBuffer fetches one extra row to detect the next page.
	require.Len(t, first, 3)

	cursor := pagination.EncodeCursor(pagination.Cursor{
		CreatedAt: first[1].CreatedAt,
		ID:        first[1].ID,
	})
	second, err := repo.List(ctx, ListFilter{InboxID: inboxID}, nil, pagination.Params{Limit: 2, Cursor: cursor})
	require.NoError(t, err)
	require.Len(t, second, 3)
	assert.True(t, second[0].CreatedAt.Before(first[1].CreatedAt))

	for _, row := range second {
		assert.NotEqual(t, first[0].ID, row.ID)
		assert.NotEqual(t, first[1].ID, row.ID)
	}
}

func TestUpdateStatus(t *testing.T) {
	db := setupConversationsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	inboxID := uuid.New()
	id := insertConversation(t, db, inboxID, nil, "open", time.Now())

	updated, err := repo.UpdateStatus(ctx, id, enums.ConversationStatusResolved)
	require.NoError(t, err)
	assert.True(t, updated)

	loaded, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, enums.ConversationStatusResolved, loaded.Status)

	updated, err = repo.UpdateStatus(ctx, uuid.New(), enums.ConversationStatusResolved)
	require.NoError(t, err)
	assert.False(t, updated)
}
