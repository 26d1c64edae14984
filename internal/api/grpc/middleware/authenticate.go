package middleware

import (
	"context"

	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/auth"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dtroode/authlib-server/internal/logger"
	"github.com/dtroode/authlib-server/internal/model"
)

// Authenticator checks an access token and returns its claims.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (model.TokenClaims, error)
}

// Authenticate validates bearer tokens and injects claims into context.
type Authenticate struct {
	authenticator  Authenticator
	contextManager model.ContextManager
	logger         *logger.Logger
}

// NewAuthenticate creates a new Authenticate middleware instance.
func NewAuthenticate(authenticator Authenticator, contextManager model.ContextManager, logger *logger.Logger) *Authenticate {
	return &Authenticate{authenticator: authenticator, contextManager: contextManager, logger: logger}
}

// AuthFunc reads the bearer token, validates it and returns a context with the token claims.
func (m *Authenticate) AuthFunc(ctx context.Context) (context.Context, error) {
	token, err := auth.AuthFromMD(ctx, "bearer")
	if err != nil {
		return nil, status.Error(codes.Unauthenticated, "missing authorization token")
	}

	claims, err := m.authenticator.Authenticate(ctx, token)
	if err != nil {
		if model.KindOf(err) == model.KindStorage {
			m.logger.Error("Authenticate middleware: revocation check failed", "error", err)
			return nil, status.Error(codes.Unavailable, err.Error())
		}
		m.logger.Debug("Authenticate middleware: token rejected", "error", err)
		return nil, status.Error(codes.Unauthenticated, "invalid authorization token")
	}

	return m.contextManager.SetClaimsToContext(ctx, claims), nil
}
