package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/helplane/helplane-backend/pkg/enums"
)

// User represents the canonical identity entity. Agents, admins, and owners
// are all users; inbox access is granted through InboxMembership rows.
type User struct {
	ID           uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Email        string           `gorm:"type:text;not null;uniqueIndex"`
	PasswordHash string           `gorm:"column:password_hash;not null"`
	DisplayName  string           `gorm:"column:display_name;not null"`
	Role         enums.MemberRole `gorm:"column:role;type:member_role_enum;not null"`
	IsActive     bool             `gorm:"column:is_active;not null;default:true"`
	LastLoginAt  *time.Time       `gorm:"column:last_login_at"`
	CreatedAt    time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
