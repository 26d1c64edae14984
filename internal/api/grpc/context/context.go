package context

import (
	"context"

	"google.golang.org/grpc/metadata"

	"github.com/dtroode/authlib-server/internal/model"
)

// RequestIDKey is the metadata key clients may use to correlate calls.
const RequestIDKey = "x-request-id"

type claimsKey struct{}

// Manager carries verified token claims through a gRPC request context.
// Claims live in a context value, never in incoming metadata, so a client
// cannot forge them with its own headers.
type Manager struct{}

// NewManager creates a new gRPC context manager instance.
func NewManager() *Manager {
	return &Manager{}
}

// SetClaimsToContext returns a child context holding claims.
func (m *Manager) SetClaimsToContext(ctx context.Context, claims model.TokenClaims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// GetClaimsFromContext returns the claims stored by SetClaimsToContext.
func (m *Manager) GetClaimsFromContext(ctx context.Context) (model.TokenClaims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(model.TokenClaims)
	if !ok || claims.AccountID == 0 {
		return model.TokenClaims{}, false
	}
	return claims, true
}

// RequestID returns the caller supplied request id, if any.
func RequestID(ctx context.Context) (string, bool) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", false
	}
	ids := md.Get(RequestIDKey)
	if len(ids) == 0 || ids[0] == "" {
		return "", false
	}
	return ids[0], true
}
