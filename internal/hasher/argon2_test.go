package hasher

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dtroode/authlib-server/internal/model"
)

var testParams = Params{Time: 1, MemKiB: 1024, Par: 1}

func TestArgon2_HashVerify_Roundtrip(t *testing.T) {
	t.Parallel()

	h := NewArgon2(testParams)
	ctx := context.Background()

	secrets := []string{"Abc12345!", "pässwörd-Ü1!", strings.Repeat("Xy9#", 32)}
	for _, s := range secrets {
		digest, err := h.Hash(ctx, s)
		require.NoError(t, err)
		assert.NotEqual(t, s, digest)
		assert.True(t, strings.HasPrefix(digest, "$argon2id$v=19$m=1024,t=1,p=1$"))

		ok, err := h.Verify(ctx, s, digest)
		require.NoError(t, err)
		assert.True(t, ok)
	}
}

func TestArgon2_Hash_FreshSalt(t *testing.T) {
	t.Parallel()

	h := NewArgon2(testParams)
	ctx := context.Background()

	d1, err := h.Hash(ctx, "Abc12345!")
	require.NoError(t, err)
	d2, err := h.Hash(ctx, "Abc12345!")
	require.NoError(t, err)

	assert.NotEqual(t, d1, d2)
}

func TestArgon2_Verify_WrongSecret(t *testing.T) {
	t.Parallel()

	h := NewArgon2(testParams)
	ctx := context.Background()

	digest, err := h.Hash(ctx, "Abc12345!")
	require.NoError(t, err)

	for _, wrong := range []string{"abc12345!", "Abc12345", "", "Abc12345!!"} {
		ok, err := h.Verify(ctx, wrong, digest)
		require.NoError(t, err)
		assert.False(t, ok, wrong)
	}
}

func TestArgon2_Hash_EmptySecret(t *testing.T) {
	t.Parallel()

	_, err := NewArgon2(testParams).Hash(context.Background(), "")
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestArgon2_Verify_MalformedDigest(t *testing.T) {
	t.Parallel()

	h := NewArgon2(testParams)
	tests := []struct {
		name   string
		digest string
	}{
		{name: "empty", digest: ""},
		{name: "plain text", digest: "not-a-digest"},
		{name: "wrong algorithm", digest: "$argon2i$v=19$m=1024,t=1,p=1$c2FsdA$a2V5"},
		{name: "bad version", digest: "$argon2id$v=16$m=1024,t=1,p=1$c2FsdA$a2V5"},
		{name: "bad params", digest: "$argon2id$v=19$m=x,t=1,p=1$c2FsdA$a2V5"},
		{name: "zero params", digest: "$argon2id$v=19$m=0,t=1,p=1$c2FsdA$a2V5"},
		{name: "memory above ceiling", digest: "$argon2id$v=19$m=4294967295,t=1,p=1$c2FsdA$a2V5"},
		{name: "passes above ceiling", digest: "$argon2id$v=19$m=1024,t=65,p=1$c2FsdA$a2V5"},
		{name: "bad salt", digest: "$argon2id$v=19$m=1024,t=1,p=1$!!$a2V5"},
		{name: "truncated bcrypt", digest: "$2a$10$short"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ok, err := h.Verify(context.Background(), "Abc12345!", tt.digest)
			assert.False(t, ok)
			require.Error(t, err)
			assert.ErrorIs(t, err, model.ErrStorage)
		})
	}
}

func TestArgon2_NeedsUpgrade(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	weak := NewArgon2(testParams)
	digest, err := weak.Hash(ctx, "Abc12345!")
	require.NoError(t, err)

	assert.False(t, weak.NeedsUpgrade(digest))

	strong := NewArgon2(testParams, WithMinimum(Params{Time: 2, MemKiB: 1024, Par: 1}))
	assert.True(t, strong.NeedsUpgrade(digest))

	ok, err := strong.Verify(ctx, "Abc12345!", digest)
	require.NoError(t, err)
	assert.True(t, ok, "old digests keep verifying after the work factor is raised")

	assert.False(t, strong.NeedsUpgrade("garbage"))
}

func TestArgon2_Bcrypt_Legacy(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := NewArgon2(testParams)

	legacy, err := bcrypt.GenerateFromPassword([]byte("Abc12345!"), bcrypt.MinCost)
	require.NoError(t, err)

	ok, err := h.Verify(ctx, "Abc12345!", string(legacy))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify(ctx, "wrong", string(legacy))
	require.NoError(t, err)
	assert.False(t, ok)

	assert.True(t, h.NeedsUpgrade(string(legacy)))
}

func TestArgon2_CancelledContext(t *testing.T) {
	t.Parallel()

	h := NewArgon2(testParams, WithConcurrency(1))
	require.True(t, h.sem.TryAcquire(1))
	defer h.sem.Release(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.Hash(ctx, "Abc12345!")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, err, model.ErrStorageTimeout)
	assert.Equal(t, model.KindStorage, model.KindOf(err))
	assert.Equal(t, "storage timeout", err.Error())

	digest := "$argon2id$v=19$m=1024,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$a2V5a2V5a2V5a2V5a2V5a2V5a2V5a2V5a2V5a2V5a2U"
	_, err = h.Verify(ctx, "Abc12345!", digest)
	assert.ErrorIs(t, err, model.ErrStorageTimeout)

	legacy, err := bcrypt.GenerateFromPassword([]byte("Abc12345!"), bcrypt.MinCost)
	require.NoError(t, err)
	_, err = h.Verify(ctx, "Abc12345!", string(legacy))
	assert.ErrorIs(t, err, model.ErrStorageTimeout)
}

func TestArgon2_Verify_ParameterCeiling(t *testing.T) {
	t.Parallel()

	h := NewArgon2(testParams)
	digest := "$argon2id$v=19$m=4194304,t=64,p=1$c2FsdA$a2V5"
	params, _, _, err := decode(digest)
	require.NoError(t, err, "values at the ceiling are accepted")
	assert.Equal(t, uint32(maxMemKiB), params.MemKiB)

	assert.False(t, h.NeedsUpgrade("$argon2id$v=19$m=4194305,t=1,p=1$c2FsdA$a2V5"))
}
