package handler

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/dtroode/authlib-server/internal/api/grpc/authapi"
	"github.com/dtroode/authlib-server/internal/logger"
	"github.com/dtroode/authlib-server/internal/model"
)

// AccountService reads accounts for authenticated callers.
type AccountService interface {
	FindByID(ctx context.Context, id int64) (model.Account, error)
}

var _ authapi.AccountsServer = (*Account)(nil)

// Account handles gRPC endpoints that need a bearer token.
type Account struct {
	authapi.UnimplementedAccountsServer

	accountService AccountService
	contextManager model.ContextManager
	logger         *logger.Logger
}

// NewAccount creates a new Account handler.
func NewAccount(accountService AccountService, contextManager model.ContextManager, logger *logger.Logger) *Account {
	return &Account{
		accountService: accountService,
		contextManager: contextManager,
		logger:         logger,
	}
}

// Me returns the account the access token was issued for.
func (h *Account) Me(ctx context.Context, _ *emptypb.Empty) (*authapi.Account, error) {
	claims, ok := h.contextManager.GetClaimsFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing token claims")
	}

	account, err := h.accountService.FindByID(ctx, claims.AccountID)
	if err != nil {
		h.logger.Debug("Account handler: lookup failed", "account_id", claims.AccountID, "kind", model.KindOf(err))
		return nil, handleError(err)
	}

	return toAccount(account.View()), nil
}
