package inboxes

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/helplane/helplane-backend/pkg/db/models"
)

// Repository exposes inbox persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds the repo to the provided GORM connection.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new inbox.
func (r *Repository) Create(ctx context.Context, inbox *models.Inbox) error {
	return r.db.WithContext(ctx).Create(inbox).Error
}

// GetByID loads an inbox by its UUID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Inbox, error) {
	var inbox models.Inbox
	if err := r.db.WithContext(ctx).First(&inbox, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &inbox, nil
}

// List returns all inboxes ordered by name.
func (r *Repository) List(ctx context.Context) ([]models.Inbox, error) {
	var rows []models.Inbox
	err := r.db.WithContext(ctx).Order("name ASC").Find(&rows).Error
	return rows, err
}

// UpdateSettings overwrites the dispatch policy knobs.
func (r *Repository) UpdateSettings(ctx context.Context, id uuid.UUID, autoAssign bool, maxPerAgent *int) error {
	return r.db.WithContext(ctx).
		Model(&models.Inbox{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"auto_assignment_enabled":     autoAssign,
			"max_conversations_per_agent": maxPerAgent,
			"updated_at":                  time.Now().UTC(),
		}).Error
}

// UpdateCursor advances the round-robin cursor. Last writer wins: the
// cursor is a hint re-resolved on every selection, not a linearizable
// register, so concurrent writers are tolerated.
func (r *Repository) UpdateCursor(ctx context.Context, id uuid.UUID, agentID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Inbox{}).
		Where("id = ?", id).
		UpdateColumn("last_assigned_agent_id", agentID).Error
}
