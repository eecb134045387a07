package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/helplane/helplane-backend/api/responses"
	"github.com/helplane/helplane-backend/api/validators"
	"github.com/helplane/helplane-backend/internal/assignment"
	pkgerrors "github.com/helplane/helplane-backend/pkg/errors"
	"github.com/helplane/helplane-backend/pkg/logger"
)

type assignmentService interface {
	AutoAssign(ctx context.Context, conversationID uuid.UUID, actor assignment.Actor) (*assignment.Result, error)
	Pickup(ctx context.Context, conversationID uuid.UUID, actor assignment.Actor) (*assignment.Result, error)
	Transfer(ctx context.Context, input assignment.TransferInput, actor assignment.Actor) (*assignment.Result, error)
	Release(ctx context.Context, input assignment.ReleaseInput, actor assignment.Actor) (*assignment.Result, error)
}

// AssignmentAutoAssign dispatches an unassigned conversation to the next
// eligible online agent.
func AssignmentAutoAssign(svc assignmentService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "assignment service unavailable"))
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

		result, err := svc.AutoAssign(r.Context(), conversationID, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// AssignmentPickup lets an agent claim an unassigned conversation.
func AssignmentPickup(svc assignmentService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "assignment service unavailable"))
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

		result, err := svc.Pickup(r.Context(), conversationID, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

type transferRequest struct {
	ToAgentID   string `json:"to_agent_id" validate:"required,uuid"`
	FromAgentID string `json:"from_agent_id" validate:"omitempty,uuid"`
}

// AssignmentTransfer hands a conversation to another agent. The transfer only
// applies while the expected owner still holds it; a stale view surfaces as a
// conflict.
func AssignmentTransfer(svc assignmentService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "assignment service unavailable"))
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

		var body transferRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		toAgentID, err := uuid.Parse(body.ToAgentID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid to_agent_id"))
			return
		}

		// Agents transfer their own conversations; elevated roles may name
		// the current owner explicitly.
		fromAgentID := actor.UserID
		if body.FromAgentID != "" {
			fromAgentID, err = uuid.Parse(body.FromAgentID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid from_agent_id"))
				return
			}
			if fromAgentID != actor.UserID && !actor.Role.IsElevated() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "cannot transfer on behalf of another agent"))
				return
			}
		}

		input := assignment.TransferInput{
			ConversationID: conversationID,
			FromAgentID:    fromAgentID,
			ToAgentID:      toAgentID,
		}
		result, err := svc.Transfer(r.Context(), input, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

type releaseRequest struct {
	FromAgentID string `json:"from_agent_id" validate:"omitempty,uuid"`
}

// AssignmentRelease returns a conversation to the unassigned pool.
func AssignmentRelease(svc assignmentService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "assignment service unavailable"))
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

		fromAgentID := actor.UserID
		if r.ContentLength > 0 {
			var body releaseRequest
			if err := validators.DecodeJSONBody(r, &body); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			if body.FromAgentID != "" {
				fromAgentID, err = uuid.Parse(body.FromAgentID)
				if err != nil {
					responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid from_agent_id"))
					return
				}
				if fromAgentID != actor.UserID && !actor.Role.IsElevated() {
					responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "cannot release on behalf of another agent"))
					return
				}
			}
		}

		input := assignment.ReleaseInput{
			ConversationID: conversationID,
			FromAgentID:    fromAgentID,
		}
		result, err := svc.Release(r.Context(), input, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}
