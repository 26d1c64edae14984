package handler

import (
	"context"
	"time"

	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/dtroode/authlib-server/internal/api/grpc/authapi"
	"github.com/dtroode/authlib-server/internal/logger"
	"github.com/dtroode/authlib-server/internal/model"
)

// AuthService defines the token lifecycle operations exposed over gRPC.
type AuthService interface {
	Register(ctx context.Context, email, password string, profile model.Profile) (model.Session, error)
	Login(ctx context.Context, email, password string) (model.Session, error)
	Refresh(ctx context.Context, refreshToken string) (model.AccessGrant, error)
	Logout(ctx context.Context, accessToken, refreshToken string) error
}

var _ authapi.AuthServer = (*Auth)(nil)

// Auth handles gRPC endpoints for authentication.
type Auth struct {
	authapi.UnimplementedAuthServer

	authService AuthService
	logger      *logger.Logger
}

// NewAuth creates a new Auth handler.
func NewAuth(authService AuthService, logger *logger.Logger) *Auth {
	return &Auth{
		authService: authService,
		logger:      logger,
	}
}

// Register creates an account and returns its first token pair.
func (h *Auth) Register(ctx context.Context, req *authapi.RegisterRequest) (*authapi.SessionResponse, error) {
	session, err := h.authService.Register(ctx, req.GetEmail(), req.GetPassword(), model.Profile{
		GivenName:  req.GetGivenName(),
		FamilyName: req.GetFamilyName(),
	})
	if err != nil {
		h.logger.Debug("Auth handler: registration failed", "kind", model.KindOf(err))
		return nil, handleError(err)
	}

	h.logger.Info("Auth handler: registration completed", "account_id", session.Account.ID)

	return toSessionResponse(session), nil
}

// Login exchanges email and password for a token pair.
func (h *Auth) Login(ctx context.Context, req *authapi.LoginRequest) (*authapi.SessionResponse, error) {
	session, err := h.authService.Login(ctx, req.GetEmail(), req.GetPassword())
	if err != nil {
		h.logger.Debug("Auth handler: login failed", "kind", model.KindOf(err))
		return nil, handleError(err)
	}

	h.logger.Info("Auth handler: login completed", "account_id", session.Account.ID)

	return toSessionResponse(session), nil
}

// Refresh issues a new access token for a valid refresh token.
func (h *Auth) Refresh(ctx context.Context, req *authapi.RefreshRequest) (*authapi.RefreshResponse, error) {
	grant, err := h.authService.Refresh(ctx, req.GetRefreshToken())
	if err != nil {
		h.logger.Debug("Auth handler: refresh failed", "kind", model.KindOf(err))
		return nil, handleError(err)
	}

	return &authapi.RefreshResponse{
		AccessToken: grant.AccessToken,
		ExpiresAt:   timestamppb.New(grant.ExpiresAt),
	}, nil
}

// Logout revokes both tokens of a session.
func (h *Auth) Logout(ctx context.Context, req *authapi.LogoutRequest) (*emptypb.Empty, error) {
	if err := h.authService.Logout(ctx, req.GetAccessToken(), req.GetRefreshToken()); err != nil {
		h.logger.Debug("Auth handler: logout failed", "kind", model.KindOf(err))
		return nil, handleError(err)
	}

	return &emptypb.Empty{}, nil
}

func toSessionResponse(s model.Session) *authapi.SessionResponse {
	return &authapi.SessionResponse{
		Account: toAccount(s.Account),
		Tokens: &authapi.Tokens{
			AccessToken:      s.Tokens.AccessToken,
			RefreshToken:     s.Tokens.RefreshToken,
			AccessExpiresAt:  timestamppb.New(s.Tokens.AccessExpiresAt),
			RefreshExpiresAt: timestamppb.New(s.Tokens.RefreshExpiresAt),
		},
	}
}

func toAccount(v model.AccountView) *authapi.Account {
	return &authapi.Account{
		Id:          v.ID,
		Email:       v.Email,
		GivenName:   v.GivenName,
		FamilyName:  v.FamilyName,
		Active:      v.Active,
		Verified:    v.Verified,
		CreatedAt:   timestamppb.New(v.CreatedAt),
		UpdatedAt:   timestamppb.New(v.UpdatedAt),
		LastLoginAt: optionalTimestamp(v.LastLoginAt),
	}
}

// optionalTimestamp keeps a missing time absent on the wire.
func optionalTimestamp(t *time.Time) *timestamppb.Timestamp {
	if t == nil {
		return nil
	}
	return timestamppb.New(*t)
}
