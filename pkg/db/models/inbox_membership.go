package models

import (
	"time"

	"github.com/google/uuid"
)

// InboxMembership links an agent with an inbox they are permitted to serve.
type InboxMembership struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	InboxID   uuid.UUID `gorm:"column:inbox_id;type:uuid;not null;uniqueIndex:ux_inbox_memberships_inbox_user"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex:ux_inbox_memberships_inbox_user"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
