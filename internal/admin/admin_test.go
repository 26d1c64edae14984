package admin

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/authlib-server/internal/hasher"
	"github.com/dtroode/authlib-server/internal/metrics"
	"github.com/dtroode/authlib-server/internal/model"
	"github.com/dtroode/authlib-server/internal/repository/memory"
	"github.com/dtroode/authlib-server/internal/service"
	"github.com/dtroode/authlib-server/internal/testutil"
	"github.com/dtroode/authlib-server/internal/token"
)

func newTestTool(t *testing.T) (*Tool, *bytes.Buffer, *memory.RevocationRepository) {
	t.Helper()

	log := testutil.MakeNoopLogger()
	m := metrics.NewNoop()
	h := hasher.NewArgon2(hasher.Params{Time: 1, MemKiB: 1024, Par: 1})

	codec, err := token.NewJWT("0123456789abcdef0123456789abcdef", "HS256")
	require.NoError(t, err)

	revocations := memory.NewRevocationRepository()
	accounts := service.NewAccount(memory.NewAccountRepository(), time.Second, log)
	ledger, err := service.NewLedger(revocations, 8, m, log)
	require.NoError(t, err)
	auth := service.NewAuth(accounts, h, codec, ledger, service.AuthConfig{AccessTTL: time.Minute, RefreshTTL: time.Hour}, m, log)
	pruner := service.NewPruner(revocations, nil, time.Second, m, log)

	var out bytes.Buffer
	return New(auth, accounts, h, pruner, &out), &out, revocations
}

func stubPassword(t *testing.T, pw string, err error) {
	t.Helper()
	prev := readPassword
	readPassword = func() ([]byte, error) { return []byte(pw), err }
	t.Cleanup(func() { readPassword = prev })
}

func lastJSON(t *testing.T, out *bytes.Buffer) model.AccountView {
	t.Helper()
	s := out.String()
	i := strings.Index(s, "{")
	require.GreaterOrEqual(t, i, 0, s)
	var v model.AccountView
	require.NoError(t, json.Unmarshal([]byte(s[i:]), &v))
	out.Reset()
	return v
}

func TestTool_AccountLifecycle(t *testing.T) {
	tool, out, _ := newTestTool(t)
	ctx := context.Background()
	stubPassword(t, "Adm1n!pass\n", nil)

	require.NoError(t, tool.Run(ctx, []string{"register", "-email", "ops@x.com", "-given", "Ops"}))
	created := lastJSON(t, out)
	assert.Equal(t, "ops@x.com", created.Email)
	assert.Equal(t, "Ops", created.GivenName)
	assert.True(t, created.Active)
	assert.False(t, created.Verified)

	require.NoError(t, tool.Run(ctx, []string{"verify", "-id", "1"}))
	assert.True(t, lastJSON(t, out).Verified)

	require.NoError(t, tool.Run(ctx, []string{"deactivate", "-id", "1"}))
	assert.False(t, lastJSON(t, out).Active)

	require.NoError(t, tool.Run(ctx, []string{"activate", "-id", "1"}))
	assert.True(t, lastJSON(t, out).Active)

	require.NoError(t, tool.Run(ctx, []string{"show", "-email", "ops@x.com"}))
	shown := lastJSON(t, out)
	assert.Equal(t, int64(1), shown.ID)

	err := tool.Run(ctx, []string{"show", "-id", "42"})
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestTool_Usage(t *testing.T) {
	tool, out, _ := newTestTool(t)
	ctx := context.Background()

	tests := []struct {
		name string
		args []string
	}{
		{name: "no command", args: nil},
		{name: "unknown command", args: []string{"drop-all"}},
		{name: "missing id", args: []string{"activate"}},
		{name: "bad flag", args: []string{"show", "-nope"}},
		{name: "show without selector", args: []string{"show"}},
		{name: "register without email", args: []string{"register"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tool.Run(ctx, tt.args)
			assert.ErrorIs(t, err, ErrUsage)
		})
	}

	out.Reset()
	require.NoError(t, tool.Run(ctx, []string{"help"}))
	assert.Contains(t, out.String(), "usage: authctl")
}

func TestTool_Hash(t *testing.T) {
	tool, out, _ := newTestTool(t)
	stubPassword(t, "Adm1n!pass", nil)

	require.NoError(t, tool.Run(context.Background(), []string{"hash"}))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.True(t, strings.HasPrefix(lines[len(lines)-1], "$argon2id$"))

	stubPassword(t, "", errors.New("inappropriate ioctl for device"))
	err := tool.Run(context.Background(), []string{"hash"})
	assert.ErrorContains(t, err, "failed to read password")
}

func TestTool_Prune(t *testing.T) {
	tool, out, revocations := newTestTool(t)
	ctx := context.Background()

	require.NoError(t, revocations.Put(ctx, "old", model.RevocationRecord{ExpiresAt: time.Now().Add(-time.Hour)}))
	require.NoError(t, revocations.Put(ctx, "live", model.RevocationRecord{ExpiresAt: time.Now().Add(time.Hour)}))

	require.NoError(t, tool.Run(ctx, []string{"prune"}))
	assert.Contains(t, out.String(), "pruned 1 revocation records")
	assert.Equal(t, 1, revocations.Len())
}
