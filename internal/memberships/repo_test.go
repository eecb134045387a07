package memberships

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupMembershipsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	users := `
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL,
  password_hash TEXT NOT NULL,
  display_name TEXT NOT NULL,
  role TEXT NOT NULL DEFAULT 'agent',
  is_active INTEGER NOT NULL DEFAULT 1,
  last_login_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	memberships := `
CREATE TABLE IF NOT EXISTS inbox_memberships (
  id TEXT PRIMARY KEY,
  inbox_id TEXT NOT NULL,
  user_id TEXT NOT NULL,
  created_at DATETIME
);`

	require.NoError(t, db.Exec(users).Error)
	require.NoError(t, db.Exec(memberships).Error)
	return db
}

func seedAgent(t *testing.T, db *gorm.DB, name string, role string, active bool) uuid.UUID {
	t.Helper()
	id := uuid.New()
	err := db.Exec(
		`INSERT INTO users (id, email, password_hash, display_name, role, is_active, created_at, updated_at)
		 VALUES (?, ?, 'hash', ?, ?, ?, ?, ?)`,
		id.String(), fmt.Sprintf("%s@example.com", id), name, role, active, time.Now(), time.Now(),
	).Error
	require.NoError(t, err)
	return id
}

func seedMembership(t *testing.T, db *gorm.DB, inboxID, userID uuid.UUID, joinedAt time.Time) {
	t.Helper()
	err := db.Exec(
		`INSERT INTO inbox_memberships (id, inbox_id, user_id, created_at) VALUES (?, ?, ?, ?)`,
		uuid.NewString(), inboxID.String(), userID.String(), joinedAt,
	).Error
	require.NoError(t, err)
}

func TestListInboxAgentsOrderedAndFiltered(t *testing.T) {
	db := setupMembershipsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	inboxID := uuid.New()

	base := time.Now().Add(-time.Hour)
	first := seedAgent(t, db, "Amara", "agent", true)
	second := seedAgent(t, db, "Bao", "agent", true)
	admin := seedAgent(t, db, "Admin", "admin", true)
	inactive := seedAgent(t, db, "Cleo", "agent", false)

	seedMembership(t, db, inboxID, second, base.Add(2*time.Minute))
	seedMembership(t, db, inboxID, first, base.Add(time.Minute))
	seedMembership(t, db, inboxID, admin, base)
	seedMembership(t, db, inboxID, inactive, base)

	agents, err := repo.ListInboxAgents(ctx, inboxID)
	require.NoError(t, err)
	require.Len(t, agents, 2)
	assert.Equal(t, first, agents[0].UserID)
	assert.Equal(t, second, agents[1].UserID)
	assert.Equal(t, "Amara", agents[0].DisplayName)
}

func TestIsMember(t *testing.T) {
	db := setupMembershipsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	inboxID := uuid.New()

	agent := seedAgent(t, db, "Member", "agent", true)
	seedMembership(t, db, inboxID, agent, time.Now())

	ok, err := repo.IsMember(ctx, inboxID, agent)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.IsMember(ctx, inboxID, uuid.New())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAddAndRemoveMember(t *testing.T) {
	db := setupMembershipsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	inboxID := uuid.New()

	agent := seedAgent(t, db, "Joiner", "agent", true)

	membership, err := repo.AddMember(ctx, inboxID, agent)
	require.NoError(t, err)
	assert.Equal(t, inboxID, membership.InboxID)

	removed, err := repo.RemoveMember(ctx, inboxID, agent)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = repo.RemoveMember(ctx, inboxID, agent)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestListForUser(t *testing.T) {
	db := setupMembershipsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	agent := seedAgent(t, db, "Multi", "agent", true)
	inboxA := uuid.New()
	inboxB := uuid.New()
	seedMembership(t, db, inboxA, agent, time.Now().Add(-time.Minute))
	seedMembership(t, db, inboxB, agent, time.Now())

	ids, err := repo.ListForUser(ctx, agent)
	require.NoError(t, err)
	require.Len(t, ids, 2)
	assert.Equal(t, inboxA, ids[0])
	assert.Equal(t, inboxB, ids[1])
}
