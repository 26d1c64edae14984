package middleware

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	grpcctx "github.com/dtroode/authlib-server/internal/api/grpc/context"
	"github.com/dtroode/authlib-server/internal/logger"
)

// Logging is a unary interceptor that logs gRPC requests and results.
type Logging struct {
	logger *logger.Logger
}

// NewLogging creates a new Logging middleware.
func NewLogging(logger *logger.Logger) *Logging {
	return &Logging{logger: logger}
}

// HandleGRPC logs method name, duration and status for each unary request.
// Request payloads carry passwords and tokens and are never logged.
func (l *Logging) HandleGRPC(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()

	log := l.logger.With("method", info.FullMethod)
	if id, ok := grpcctx.RequestID(ctx); ok {
		log = log.With("request_id", id)
	}

	log.Debug("gRPC request started")

	resp, err := handler(ctx, req)

	statusCode := codes.OK
	if err != nil {
		statusCode = status.Code(err)
		if _, ok := status.FromError(err); !ok {
			statusCode = codes.Internal
		}
	}

	attrs := []any{
		"duration_ms", time.Since(start).Milliseconds(),
		"status", statusCode.String(),
	}

	switch statusCode {
	case codes.OK:
		log.Info("gRPC request completed", attrs...)
	case codes.Internal, codes.Unavailable, codes.Unknown:
		log.Error("gRPC request failed", append(attrs, "error", err.Error())...)
	default:
		log.Warn("gRPC request rejected", append(attrs, "error", err.Error())...)
	}

	return resp, err
}
