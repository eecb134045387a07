package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/helplane/helplane-backend/api/responses"
	"github.com/helplane/helplane-backend/api/validators"
	"github.com/helplane/helplane-backend/internal/inboxes"
	"github.com/helplane/helplane-backend/internal/memberships"
	pkgerrors "github.com/helplane/helplane-backend/pkg/errors"
	"github.com/helplane/helplane-backend/pkg/logger"
)

type inboxService interface {
	Create(ctx context.Context, input inboxes.CreateInboxInput) (*inboxes.InboxDTO, error)
	GetByID(ctx context.Context, id uuid.UUID) (*inboxes.InboxDTO, error)
	List(ctx context.Context) ([]inboxes.InboxDTO, error)
	UpdateSettings(ctx context.Context, id uuid.UUID, input inboxes.UpdateSettingsInput) (*inboxes.InboxDTO, error)
	ListAgents(ctx context.Context, inboxID uuid.UUID) ([]memberships.InboxAgent, error)
	AddAgent(ctx context.Context, inboxID, userID uuid.UUID) error
	RemoveAgent(ctx context.Context, inboxID, userID uuid.UUID) error
}

type createInboxRequest struct {
	Name                     string `json:"name" validate:"required,min=2,max=128"`
	AutoAssignmentEnabled    bool   `json:"auto_assignment_enabled"`
	MaxConversationsPerAgent *int   `json:"max_conversations_per_agent" validate:"omitempty,min=1"`
}

// InboxCreate provisions a new inbox.
func InboxCreate(svc inboxService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inboxes service unavailable"))
			return
		}

		var body createInboxRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := inboxes.CreateInboxInput{
			Name:                     validators.SanitizeString(body.Name, 128),
			AutoAssignmentEnabled:    body.AutoAssignmentEnabled,
			MaxConversationsPerAgent: body.MaxConversationsPerAgent,
		}
		inbox, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, inbox)
	}
}

// InboxList returns every inbox.
func InboxList(svc inboxService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inboxes service unavailable"))
			return
		}

		list, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"items": list})
	}
}

// InboxDetail returns a single inbox by id.
func InboxDetail(svc inboxService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inboxes service unavailable"))
			return
		}

		inboxID, err := parseUUIDParam(r, "inboxID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		inbox, err := svc.GetByID(r.Context(), inboxID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, inbox)
	}
}

type updateInboxSettingsRequest struct {
	AutoAssignmentEnabled    bool `json:"auto_assignment_enabled"`
	MaxConversationsPerAgent *int `json:"max_conversations_per_agent" validate:"omitempty,min=1"`
}

// InboxUpdateSettings changes the dispatch policy of an inbox.
func InboxUpdateSettings(svc inboxService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inboxes service unavailable"))
			return
		}

		inboxID, err := parseUUIDParam(r, "inboxID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body updateInboxSettingsRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := inboxes.UpdateSettingsInput{
			AutoAssignmentEnabled:    body.AutoAssignmentEnabled,
			MaxConversationsPerAgent: body.MaxConversationsPerAgent,
		}
		inbox, err := svc.UpdateSettings(r.Context(), inboxID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, inbox)
	}
}

// InboxAgents lists the agents who are members of an inbox.
func InboxAgents(svc inboxService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inboxes service unavailable"))
			return
		}

		inboxID, err := parseUUIDParam(r, "inboxID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		agents, err := svc.ListAgents(r.Context(), inboxID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"items": agents})
	}
}

type inboxAgentRequest struct {
	UserID string `json:"user_id" validate:"required,uuid"`
}

// InboxAddAgent enrolls an agent in an inbox.
func InboxAddAgent(svc inboxService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inboxes service unavailable"))
			return
		}

		inboxID, err := parseUUIDParam(r, "inboxID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body inboxAgentRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		userID, err := uuid.Parse(body.UserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user id"))
			return
		}

		if err := svc.AddAgent(r.Context(), inboxID, userID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]string{"status": "added"})
	}
}

// InboxRemoveAgent removes an agent from an inbox.
func InboxRemoveAgent(svc inboxService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inboxes service unavailable"))
			return
		}

		inboxID, err := parseUUIDParam(r, "inboxID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		userID, err := parseUUIDParam(r, "userID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.RemoveAgent(r.Context(), inboxID, userID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "removed"})
	}
}
