package middleware

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/helplane/helplane-backend/api/responses"
	"github.com/helplane/helplane-backend/pkg/enums"
	pkgerrors "github.com/helplane/helplane-backend/pkg/errors"
	"github.com/helplane/helplane-backend/pkg/logger"
)

type InboxMembershipChecker interface {
	IsMember(ctx context.Context, inboxID, userID uuid.UUID) (bool, error)
}

// RequireInboxMembership guards inbox-scoped routes. Elevated roles pass
// through; agents must belong to the inbox named by the {inboxID} route
// parameter.
func RequireInboxMembership(checker InboxMembershipChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if checker == nil {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "membership checker unavailable"))
				return
			}

			role, err := enums.ParseMemberRole(RoleFromContext(ctx))
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "role context missing"))
				return
			}
			if role.IsElevated() {
				next.ServeHTTP(w, r)
				return
			}

			userID, err := uuid.Parse(UserIDFromContext(ctx))
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
				return
			}
			inboxID, err := uuid.Parse(chi.URLParam(r, "inboxID"))
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid inbox id"))
				return
			}

			ok, err := checker.IsMember(ctx, inboxID, userID)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check inbox membership"))
				return
			}
			if !ok {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "not a member of this inbox"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
