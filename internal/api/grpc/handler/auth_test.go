package handler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dtroode/authlib-server/internal/api/grpc/authapi"
	"github.com/dtroode/authlib-server/internal/mocks"
	"github.com/dtroode/authlib-server/internal/model"
	"github.com/dtroode/authlib-server/internal/testutil"
)

func testSession() model.Session {
	now := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
	return model.Session{
		Account: model.AccountView{ID: 3, Email: "a@x.com", GivenName: "Ada", Active: true, CreatedAt: now, UpdatedAt: now},
		Tokens: model.TokenPair{
			AccessToken:      "acc",
			RefreshToken:     "ref",
			AccessExpiresAt:  now.Add(15 * time.Minute),
			RefreshExpiresAt: now.Add(720 * time.Hour),
		},
	}
}

func TestAuth_Register(t *testing.T) {
	t.Parallel()

	svc := mocks.NewAuthService(t)
	svc.On("Register", mock.Anything, "a@x.com", "Secr3t!pw", model.Profile{GivenName: "Ada", FamilyName: "Lovelace"}).
		Return(testSession(), nil).Once()

	h := NewAuth(svc, testutil.MakeNoopLogger())
	out, err := h.Register(context.Background(), &authapi.RegisterRequest{
		Email:      "a@x.com",
		Password:   "Secr3t!pw",
		GivenName:  "Ada",
		FamilyName: "Lovelace",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), out.GetAccount().GetId())
	assert.Equal(t, "acc", out.GetTokens().GetAccessToken())
	assert.Equal(t, "ref", out.GetTokens().GetRefreshToken())
	assert.Equal(t, testSession().Tokens.RefreshExpiresAt, out.GetTokens().GetRefreshExpiresAt().AsTime())
}

func TestAuth_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		setup    func(*mocks.AuthService)
		call     func(*Auth) error
		wantCode codes.Code
	}{
		{
			name: "register duplicate",
			setup: func(s *mocks.AuthService) {
				s.On("Register", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
					Return(model.Session{}, model.NewAlreadyExistsError("email is already registered")).Once()
			},
			call: func(h *Auth) error {
				_, err := h.Register(context.Background(), &authapi.RegisterRequest{Email: "a@x.com", Password: "x"})
				return err
			},
			wantCode: codes.AlreadyExists,
		},
		{
			name: "login bad credentials",
			setup: func(s *mocks.AuthService) {
				s.On("Login", mock.Anything, "a@x.com", "nope").
					Return(model.Session{}, model.NewInvalidCredentialsError()).Once()
			},
			call: func(h *Auth) error {
				_, err := h.Login(context.Background(), &authapi.LoginRequest{Email: "a@x.com", Password: "nope"})
				return err
			},
			wantCode: codes.Unauthenticated,
		},
		{
			name: "refresh revoked",
			setup: func(s *mocks.AuthService) {
				s.On("Refresh", mock.Anything, "ref").
					Return(model.AccessGrant{}, model.NewInvalidTokenError("revoked", nil)).Once()
			},
			call: func(h *Auth) error {
				_, err := h.Refresh(context.Background(), &authapi.RefreshRequest{RefreshToken: "ref"})
				return err
			},
			wantCode: codes.Unauthenticated,
		},
		{
			name: "logout storage down",
			setup: func(s *mocks.AuthService) {
				s.On("Logout", mock.Anything, "acc", "ref").
					Return(model.NewStorageError(assert.AnError)).Once()
			},
			call: func(h *Auth) error {
				_, err := h.Logout(context.Background(), &authapi.LogoutRequest{AccessToken: "acc", RefreshToken: "ref"})
				return err
			},
			wantCode: codes.Unavailable,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			svc := mocks.NewAuthService(t)
			tt.setup(svc)

			err := tt.call(NewAuth(svc, testutil.MakeNoopLogger()))
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, status.Code(err))
		})
	}
}

func TestAuth_RefreshAndLogout(t *testing.T) {
	t.Parallel()

	exp := time.Now().Add(time.Minute).UTC()
	svc := mocks.NewAuthService(t)
	svc.On("Refresh", mock.Anything, "ref").Return(model.AccessGrant{AccessToken: "acc2", ExpiresAt: exp}, nil).Once()
	svc.On("Logout", mock.Anything, "acc2", "ref").Return(nil).Once()

	h := NewAuth(svc, testutil.MakeNoopLogger())

	out, err := h.Refresh(context.Background(), &authapi.RefreshRequest{RefreshToken: "ref"})
	require.NoError(t, err)
	assert.Equal(t, "acc2", out.AccessToken)
	assert.Equal(t, exp, out.GetExpiresAt().AsTime())

	_, err = h.Logout(context.Background(), &authapi.LogoutRequest{AccessToken: "acc2", RefreshToken: "ref"})
	assert.NoError(t, err)
}

func TestToAccount_Timestamps(t *testing.T) {
	t.Parallel()

	view := testSession().Account
	assert.Nil(t, toAccount(view).GetLastLoginAt())

	login := view.CreatedAt.Add(time.Hour)
	view.LastLoginAt = &login
	out := toAccount(view)
	require.NotNil(t, out.GetLastLoginAt())
	assert.Equal(t, login, out.GetLastLoginAt().AsTime())
	assert.Equal(t, view.CreatedAt, out.GetCreatedAt().AsTime())
}
