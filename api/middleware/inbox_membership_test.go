package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/helplane/helplane-backend/pkg/enums"
)

type stubMembershipChecker struct {
	member bool
	err    error

	gotInboxID uuid.UUID
	gotUserID  uuid.UUID
}

func (s *stubMembershipChecker) IsMember(_ context.Context, inboxID, userID uuid.UUID) (bool, error) {
	s.gotInboxID = inboxID
	s.gotUserID = userID
	return s.member, s.err
}

func membershipRouter(checker InboxMembershipChecker) http.Handler {
	r := chi.NewRouter()
	r.With(RequireInboxMembership(checker, nil)).Get("/inboxes/{inboxID}/conversations", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return r
}

func membershipRequest(target string, userID uuid.UUID, role enums.MemberRole) *http.Request {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	ctx := WithUserID(req.Context(), userID.String())
	ctx = WithRole(ctx, string(role))
	return req.WithContext(ctx)
}

func TestRequireInboxMembershipAllowsMember(t *testing.T) {
	checker := &stubMembershipChecker{member: true}
	handler := membershipRouter(checker)

	inboxID := uuid.New()
	userID := uuid.New()
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, membershipRequest("/inboxes/"+inboxID.String()+"/conversations", userID, enums.MemberRoleAgent))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if checker.gotInboxID != inboxID {
		t.Fatalf("expected inbox %s got %s", inboxID, checker.gotInboxID)
	}
	if checker.gotUserID != userID {
		t.Fatalf("expected user %s got %s", userID, checker.gotUserID)
	}
}

func TestRequireInboxMembershipRejectsOutsider(t *testing.T) {
	handler := membershipRouter(&stubMembershipChecker{member: false})

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, membershipRequest("/inboxes/"+uuid.NewString()+"/conversations", uuid.New(), enums.MemberRoleAgent))

	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}

func TestRequireInboxMembershipElevatedRoleBypassesCheck(t *testing.T) {
	checker := &stubMembershipChecker{member: false}
	handler := membershipRouter(checker)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, membershipRequest("/inboxes/"+uuid.NewString()+"/conversations", uuid.New(), enums.MemberRoleAdmin))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if checker.gotInboxID != uuid.Nil {
		t.Fatal("expected membership check to be skipped for elevated role")
	}
}

func TestRequireInboxMembershipRejectsMissingRole(t *testing.T) {
	handler := membershipRouter(&stubMembershipChecker{member: true})

	req := httptest.NewRequest(http.MethodGet, "/inboxes/"+uuid.NewString()+"/conversations", nil)
	req = req.WithContext(WithUserID(req.Context(), uuid.NewString()))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestRequireInboxMembershipRejectsInvalidInboxID(t *testing.T) {
	handler := membershipRouter(&stubMembershipChecker{member: true})

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, membershipRequest("/inboxes/not-a-uuid/conversations", uuid.New(), enums.MemberRoleAgent))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestRequireInboxMembershipReportsCheckerFailure(t *testing.T) {
	handler := membershipRouter(&stubMembershipChecker{err: errors.New("db down")})

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, membershipRequest("/inboxes/"+uuid.NewString()+"/conversations", uuid.New(), enums.MemberRoleAgent))

	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
}
