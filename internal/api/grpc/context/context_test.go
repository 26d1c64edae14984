package context

import (
	stdctx "context"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/metadata"

	"github.com/dtroode/authlib-server/internal/model"
)

func TestManager_SetAndGetClaims(t *testing.T) {
	m := NewManager()
	claims := model.TokenClaims{ID: "jti", AccountID: 7, Email: "a@x.com", Class: model.TokenClassAccess}
	ctx := m.SetClaimsToContext(stdctx.Background(), claims)

	got, ok := m.GetClaimsFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, claims, got)
}

func TestManager_GetClaims_NotFound(t *testing.T) {
	m := NewManager()
	_, ok := m.GetClaimsFromContext(stdctx.Background())
	assert.False(t, ok)

	_, ok = m.GetClaimsFromContext(m.SetClaimsToContext(stdctx.Background(), model.TokenClaims{}))
	assert.False(t, ok, "claims without an account are ignored")
}

func TestManager_ClaimsNotReadFromMetadata(t *testing.T) {
	m := NewManager()
	md := metadata.New(map[string]string{"account_id": "7"})
	ctx := metadata.NewIncomingContext(stdctx.Background(), md)

	_, ok := m.GetClaimsFromContext(ctx)
	assert.False(t, ok)
}

func TestRequestID(t *testing.T) {
	_, ok := RequestID(stdctx.Background())
	assert.False(t, ok)

	ctx := metadata.NewIncomingContext(stdctx.Background(), metadata.Pairs(RequestIDKey, "req-1"))
	id, ok := RequestID(ctx)
	assert.True(t, ok)
	assert.Equal(t, "req-1", id)
}
