package router

import (
	"context"
	"strings"

	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors"
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/auth"
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/recovery"
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/selector"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dtroode/authlib-server/internal/api/grpc/authapi"
	"github.com/dtroode/authlib-server/internal/api/grpc/handler"
	"github.com/dtroode/authlib-server/internal/api/grpc/middleware"
	"github.com/dtroode/authlib-server/internal/logger"
	"github.com/dtroode/authlib-server/internal/model"
)

// Router wires handlers and interceptors into a gRPC server.
type Router struct {
	authService    handler.AuthService
	accountService handler.AccountService
	authenticator  middleware.Authenticator
	contextManager model.ContextManager
	logger         *logger.Logger
}

// New creates new gRPC Router instance.
func New(
	authService handler.AuthService,
	accountService handler.AccountService,
	authenticator middleware.Authenticator,
	contextManager model.ContextManager,
	logger *logger.Logger,
) *Router {
	return &Router{
		authService:    authService,
		accountService: accountService,
		authenticator:  authenticator,
		contextManager: contextManager,
		logger:         logger,
	}
}

// authSkip selects the methods that need a bearer token: everything outside the Auth service.
func authSkip(_ context.Context, c interceptors.CallMeta) bool {
	return !strings.HasPrefix(c.FullMethod(), "/"+authapi.Auth_ServiceDesc.ServiceName+"/")
}

// Register registers all gRPC services and middleware.
func (r *Router) Register(opts ...grpc.ServerOption) *grpc.Server {
	logging := middleware.NewLogging(r.logger)
	authenticate := middleware.NewAuthenticate(r.authenticator, r.contextManager, r.logger)

	recoverFrom := recovery.WithRecoveryHandler(func(p any) error {
		r.logger.Error("gRPC handler panicked", "panic", p)
		return status.Error(codes.Internal, "internal server error")
	})

	opts = append(opts,
		grpc.ChainUnaryInterceptor(
			logging.HandleGRPC,
			recovery.UnaryServerInterceptor(recoverFrom),
			selector.UnaryServerInterceptor(
				auth.UnaryServerInterceptor(authenticate.AuthFunc),
				selector.MatchFunc(authSkip),
			),
		),
	)

	s := grpc.NewServer(opts...)
	authapi.RegisterAuthServer(s, handler.NewAuth(r.authService, r.logger))
	authapi.RegisterAccountsServer(s, handler.NewAccount(r.accountService, r.contextManager, r.logger))

	return s
}
