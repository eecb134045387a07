package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/helplane/helplane-backend/api/middleware"
	"github.com/helplane/helplane-backend/api/responses"
	"github.com/helplane/helplane-backend/api/validators"
	"github.com/helplane/helplane-backend/internal/assignment"
	"github.com/helplane/helplane-backend/internal/conversations"
	"github.com/helplane/helplane-backend/pkg/db/models"
	"github.com/helplane/helplane-backend/pkg/enums"
	pkgerrors "github.com/helplane/helplane-backend/pkg/errors"
	"github.com/helplane/helplane-backend/pkg/logger"
	"github.com/helplane/helplane-backend/pkg/pagination"
)

type conversationService interface {
	Create(ctx context.Context, input conversations.CreateConversationInput, actor assignment.Actor) (*conversations.ConversationDTO, error)
	GetByID(ctx context.Context, id uuid.UUID, actor assignment.Actor) (*conversations.ConversationDTO, error)
	List(ctx context.Context, filter conversations.ListFilter, actor assignment.Actor, params pagination.Params) (*conversations.Page, error)
	Resolve(ctx context.Context, id uuid.UUID, actor assignment.Actor) (*conversations.ConversationDTO, error)
	Reopen(ctx context.Context, id uuid.UUID, actor assignment.Actor) (*conversations.ConversationDTO, error)
}

type auditTrailReader interface {
	ListForConversation(ctx context.Context, conversationID uuid.UUID, limit int) ([]models.AssignmentAction, error)
}

// actorFromContext rebuilds the authenticated actor from the request context
// populated by the auth middleware.
func actorFromContext(r *http.Request) (assignment.Actor, error) {
	rawUserID := middleware.UserIDFromContext(r.Context())
	if rawUserID == "" {
		return assignment.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	userID, err := uuid.Parse(rawUserID)
	if err != nil {
		return assignment.Actor{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user id")
	}

	role, err := enums.ParseMemberRole(middleware.RoleFromContext(r.Context()))
	if err != nil {
		return assignment.Actor{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid role")
	}

	return assignment.Actor{UserID: userID, Role: role}, nil
}

func parseUUIDParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, name+" is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+name)
	}
	return id, nil
}

func paginationParams(r *http.Request) (pagination.Params, error) {
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{
		Limit:  limit,
		Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
	}, nil
}

type createConversationRequest struct {
	ContactEmail string `json:"contact_email" validate:"required,email"`
	Subject      string `json:"subject" validate:"required,max=512"`
}

// ConversationCreate handles intake of a new conversation.
func ConversationCreate(svc conversationService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "conversations service unavailable"))
			return
		}

		actor, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		inboxID, err := parseUUIDParam(r, "inboxID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body createConversationRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := conversations.CreateConversationInput{
			InboxID:      inboxID,
			ContactEmail: body.ContactEmail,
			Subject:      validators.SanitizeString(body.Subject, 512),
		}
		conversation, err := svc.Create(r.Context(), input, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, conversation)
	}
}

// ConversationList returns a cursor page of conversations in an inbox.
func ConversationList(svc conversationService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "conversations service unavailable"))
			return
		}

		actor, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		inboxID, err := parseUUIDParam(r, "inboxID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params, err := paginationParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filter := conversations.ListFilter{InboxID: inboxID}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseConversationStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
				return
			}
			filter.Status = &status
		}
		filter.Unassigned = r.URL.Query().Get("unassigned") == "true"
		filter.Mine = r.URL.Query().Get("mine") == "true"

		page, err := svc.List(r.Context(), filter, actor, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, page)
	}
}

// ConversationDetail returns a single conversation subject to visibility rules.
func ConversationDetail(svc conversationService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "conversations service unavailable"))
			return
		}

		actor, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		conversationID, err := parseUUIDParam(r, "conversationID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		conversation, err := svc.GetByID(r.Context(), conversationID, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, conversation)
	}
}

// ConversationResolve moves an open or pending conversation to resolved.
func ConversationResolve(svc conversationService, logg *logger.Logger) http.HandlerFunc {
	return conversationTransition(svc, logg, func(r *http.Request, id uuid.UUID, actor assignment.Actor) (*conversations.ConversationDTO, error) {
		return svc.Resolve(r.Context(), id, actor)
	})
}

// ConversationReopen moves a resolved conversation back to open.
func ConversationReopen(svc conversationService, logg *logger.Logger) http.HandlerFunc {
	return conversationTransition(svc, logg, func(r *http.Request, id uuid.UUID, actor assignment.Actor) (*conversations.ConversationDTO, error) {
		return svc.Reopen(r.Context(), id, actor)
	})
}

func conversationTransition(
	svc conversationService,
	logg *logger.Logger,
	apply func(r *http.Request, id uuid.UUID, actor assignment.Actor) (*conversations.ConversationDTO, error),
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "conversations service unavailable"))
			return
		}

		actor, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		conversationID, err := parseUUIDParam(r, "conversationID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		conversation, err := apply(r, conversationID, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, conversation)
	}
}

// ConversationAuditTrail returns the assignment history for a conversation,
// newest action first.
func ConversationAuditTrail(svc conversationService, repo auditTrailReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "audit repository unavailable"))
			return
		}

		actor, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		conversationID, err := parseUUIDParam(r, "conversationID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		// Visibility check happens here so the trail leaks nothing the
		// caller could not already read.
		if _, err := svc.GetByID(r.Context(), conversationID, actor); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actions, err := repo.ListForConversation(r.Context(), conversationID, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list audit trail"))
			return
		}

		responses.WriteSuccess(w, map[string]any{"items": actions})
	}
}
