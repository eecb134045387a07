package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/helplane/helplane-backend/internal/auth"
	"github.com/helplane/helplane-backend/internal/users"
	pkgAuth "github.com/helplane/helplane-backend/pkg/auth"
	"github.com/helplane/helplane-backend/pkg/config"
	"github.com/helplane/helplane-backend/pkg/enums"
	pkgerrors "github.com/helplane/helplane-backend/pkg/errors"
)

type stubAuthService struct {
	loginFn   func(ctx context.Context, req auth.LoginRequest) (*auth.LoginResponse, error)
	refreshFn func(ctx context.Context, req auth.RefreshRequest) (*auth.RefreshResponse, error)
	logoutFn  func(ctx context.Context, input auth.LogoutInput) error
}

func (s stubAuthService) Login(ctx context.Context, req auth.LoginRequest) (*auth.LoginResponse, error) {
	if s.loginFn != nil {
		return s.loginFn(ctx, req)
	}
	return nil, nil
}

func (s stubAuthService) Refresh(ctx context.Context, req auth.RefreshRequest) (*auth.RefreshResponse, error) {
	if s.refreshFn != nil {
		return s.refreshFn(ctx, req)
	}
	return nil, nil
}

func (s stubAuthService) Logout(ctx context.Context, input auth.LogoutInput) error {
	if s.logoutFn != nil {
		return s.logoutFn(ctx, input)
	}
	return nil
}

type stubRegisterService struct {
	registerFn func(ctx context.Context, req auth.RegisterRequest) (*users.UserDTO, error)
}

func (s stubRegisterService) Register(ctx context.Context, req auth.RegisterRequest) (*users.UserDTO, error) {
	if s.registerFn != nil {
		return s.registerFn(ctx, req)
	}
	return nil, nil
}

func controllerJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "secret",
		Issuer:            "helplane",
		ExpirationMinutes: 30,
	}
}

func TestAuthLoginSetsTokenHeader(t *testing.T) {
	svc := stubAuthService{
		loginFn: func(ctx context.Context, req auth.LoginRequest) (*auth.LoginResponse, error) {
			if req.Email != "agent@helplane.io" {
				t.Fatalf("unexpected email %q", req.Email)
			}
			return &auth.LoginResponse{
				AccessToken:  "access-token",
				RefreshToken: "refresh-token",
				User:         &users.UserDTO{Email: req.Email},
			}, nil
		},
	}

	body := `{"email":"agent@helplane.io","password":"correct horse battery"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	resp := httptest.NewRecorder()
	AuthLogin(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if got := resp.Header().Get("X-HL-Token"); got != "access-token" {
		t.Fatalf("unexpected token header %q", got)
	}

	var envelope struct {
		Data auth.LoginResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.RefreshToken != "refresh-token" {
		t.Fatalf("unexpected payload %+v", envelope.Data)
	}
}

func TestAuthLoginRejectsBadBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"not-an-email"}`))
	resp := httptest.NewRecorder()
	AuthLogin(stubAuthService{}, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestAuthLoginPassesThroughUnauthorized(t *testing.T) {
	svc := stubAuthService{
		loginFn: func(ctx context.Context, req auth.LoginRequest) (*auth.LoginResponse, error) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
		},
	}

	body := `{"email":"agent@helplane.io","password":"wrong"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	resp := httptest.NewRecorder()
	AuthLogin(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthRefresh(t *testing.T) {
	svc := stubAuthService{
		refreshFn: func(ctx context.Context, req auth.RefreshRequest) (*auth.RefreshResponse, error) {
			if req.RefreshToken != "old-refresh" {
				t.Fatalf("unexpected refresh token %q", req.RefreshToken)
			}
			return &auth.RefreshResponse{AccessToken: "new-access", RefreshToken: "new-refresh"}, nil
		},
	}

	body := `{"access_token":"expired-access","refresh_token":"old-refresh"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	resp := httptest.NewRecorder()
	AuthRefresh(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if got := resp.Header().Get("X-HL-Token"); got != "new-access" {
		t.Fatalf("unexpected token header %q", got)
	}
}

func TestAuthLogout(t *testing.T) {
	cfg := controllerJWTConfig()
	userID := uuid.New()
	token, err := pkgAuth.MintAccessToken(cfg, time.Now().UTC(), pkgAuth.AccessTokenPayload{
		UserID: userID,
		Role:   enums.MemberRoleAgent,
		JTI:    "session-1",
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}

	var gotInput auth.LogoutInput
	svc := stubAuthService{
		logoutFn: func(ctx context.Context, input auth.LogoutInput) error {
			gotInput = input
			return nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	AuthLogout(svc, cfg, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if gotInput.AccessID != "session-1" || gotInput.UserID != userID || gotInput.Role != enums.MemberRoleAgent {
		t.Fatalf("unexpected logout input %+v", gotInput)
	}
}

func TestAuthLogoutRejectsMissingToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	resp := httptest.NewRecorder()
	AuthLogout(stubAuthService{}, controllerJWTConfig(), nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthRegister(t *testing.T) {
	created := &users.UserDTO{ID: uuid.New(), Email: "new@helplane.io"}
	reg := stubRegisterService{
		registerFn: func(ctx context.Context, req auth.RegisterRequest) (*users.UserDTO, error) {
			if req.Role != enums.MemberRoleAgent {
				t.Fatalf("unexpected role %s", req.Role)
			}
			return created, nil
		},
	}

	body := `{"email":"new@helplane.io","password":"a long enough password","display_name":"New Agent","role":"agent"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	resp := httptest.NewRecorder()
	AuthRegister(reg, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}

	var envelope struct {
		Data struct {
			User users.UserDTO `json:"user"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.User.ID != created.ID {
		t.Fatalf("unexpected user %+v", envelope.Data.User)
	}
}

func TestAuthRegisterDuplicateEmail(t *testing.T) {
	reg := stubRegisterService{
		registerFn: func(ctx context.Context, req auth.RegisterRequest) (*users.UserDTO, error) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		},
	}

	body := `{"email":"dup@helplane.io","password":"a long enough password","display_name":"Dup","role":"agent"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	resp := httptest.NewRecorder()
	AuthRegister(reg, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
}
