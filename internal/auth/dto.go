package auth

import (
	"github.com/google/uuid"

	"github.com/helplane/helplane-backend/internal/users"
	"github.com/helplane/helplane-backend/pkg/enums"
)

// LoginRequest captures the user credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse contains the token pair and user produced by a successful login.
type LoginResponse struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	User         *users.UserDTO `json:"user"`
}

// RefreshRequest carries the expired access token and the refresh token to rotate.
type RefreshRequest struct {
	AccessToken  string `json:"access_token" validate:"required"`
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// RefreshResponse is the fresh token pair issued by a rotation.
type RefreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// LogoutInput identifies the session being terminated.
type LogoutInput struct {
	AccessID string
	UserID   uuid.UUID
	Role     enums.MemberRole
}

// RegisterRequest contains the payload for provisioning a new user.
type RegisterRequest struct {
	Email       string           `json:"email" validate:"required,email"`
	Password    string           `json:"password" validate:"required,min=12"`
	DisplayName string           `json:"display_name" validate:"required"`
	Role        enums.MemberRole `json:"role" validate:"required"`
}
