// Package hasher implements the credential hashing boundary.
//
// New digests use Argon2id and embed their own parameters and salt, so the work
// factor can be raised at any time without invalidating stored digests. Digests
// produced by bcrypt are still accepted and always reported as needing upgrade.
package hasher

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"runtime"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"

	"github.com/dtroode/authlib-server/internal/model"
)

const (
	saltLength = 16
	keyLength  = 32
	prefix     = "$argon2id$"

	// Ceilings for parameters read back from stored digests.
	maxMemKiB = 4 << 20
	maxTime   = 64
)

var errMalformedDigest = errors.New("malformed credential digest")

var _ model.CredentialHasher = (*Argon2)(nil)

// Params is the Argon2id work factor.
type Params struct {
	Time   uint32
	MemKiB uint32
	Par    uint8
}

// Argon2 hashes and verifies credentials.
type Argon2 struct {
	params  Params
	minimum Params
	sem     *semaphore.Weighted
}

// Option configures Argon2.
type Option func(*Argon2)

// WithMinimum sets the work factor below which stored digests need upgrade.
// Defaults to the hashing params.
func WithMinimum(p Params) Option {
	return func(a *Argon2) {
		a.minimum = p
	}
}

// WithConcurrency bounds how many hash or verify calls may run at once.
func WithConcurrency(n int) Option {
	return func(a *Argon2) {
		if n > 0 {
			a.sem = semaphore.NewWeighted(int64(n))
		}
	}
}

// NewArgon2 creates a hasher producing digests with params.
func NewArgon2(params Params, opts ...Option) *Argon2 {
	a := &Argon2{
		params:  params,
		minimum: params,
		sem:     semaphore.NewWeighted(int64(runtime.GOMAXPROCS(0))),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Hash derives a fresh salted digest for secret.
func (a *Argon2) Hash(ctx context.Context, secret string) (string, error) {
	if secret == "" {
		return "", model.NewValidationError("secret must not be empty")
	}

	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	if err := a.acquire(ctx); err != nil {
		return "", err
	}
	key := argon2.IDKey([]byte(secret), salt, a.params.Time, a.params.MemKiB, a.params.Par, keyLength)
	a.sem.Release(1)

	return encode(a.params, salt, key), nil
}

// Verify reports whether secret matches digest. A wrong secret is not an error;
// a digest that cannot be parsed is reported as a storage error.
func (a *Argon2) Verify(ctx context.Context, secret, digest string) (bool, error) {
	if isBcrypt(digest) {
		return a.verifyBcrypt(ctx, secret, digest)
	}

	params, salt, key, err := decode(digest)
	if err != nil {
		return false, model.NewStorageError(err)
	}

	if err := a.acquire(ctx); err != nil {
		return false, err
	}
	candidate := argon2.IDKey([]byte(secret), salt, params.Time, params.MemKiB, params.Par, uint32(len(key)))
	a.sem.Release(1)

	return subtle.ConstantTimeCompare(key, candidate) == 1, nil
}

// NeedsUpgrade reports whether digest was produced below the configured minimum.
func (a *Argon2) NeedsUpgrade(digest string) bool {
	if isBcrypt(digest) {
		return true
	}
	params, _, _, err := decode(digest)
	if err != nil {
		return false
	}
	return params.Time < a.minimum.Time || params.MemKiB < a.minimum.MemKiB
}

// acquire waits for a hashing slot. Giving up on ctx is reported as a storage timeout.
func (a *Argon2) acquire(ctx context.Context) error {
	if err := a.sem.Acquire(ctx, 1); err != nil {
		return model.NewStorageError(fmt.Errorf("failed to acquire hashing slot: %w", err))
	}
	return nil
}

func (a *Argon2) verifyBcrypt(ctx context.Context, secret, digest string) (bool, error) {
	if _, err := bcrypt.Cost([]byte(digest)); err != nil {
		return false, model.NewStorageError(fmt.Errorf("%w: %v", errMalformedDigest, err))
	}

	if err := a.acquire(ctx); err != nil {
		return false, err
	}
	defer a.sem.Release(1)

	err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(secret))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword), errors.Is(err, bcrypt.ErrPasswordTooLong):
		return false, nil
	default:
		return false, model.NewStorageError(fmt.Errorf("%w: %v", errMalformedDigest, err))
	}
}

func isBcrypt(digest string) bool {
	return strings.HasPrefix(digest, "$2a$") || strings.HasPrefix(digest, "$2b$") || strings.HasPrefix(digest, "$2y$")
}

func encode(p Params, salt, key []byte) string {
	return fmt.Sprintf("%sv=%d$m=%d,t=%d,p=%d$%s$%s",
		prefix,
		argon2.Version,
		p.MemKiB, p.Time, p.Par,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	)
}

func decode(digest string) (Params, []byte, []byte, error) {
	parts := strings.Split(digest, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return Params{}, nil, nil, errMalformedDigest
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return Params{}, nil, nil, fmt.Errorf("%w: %v", errMalformedDigest, err)
	}
	if version != argon2.Version {
		return Params{}, nil, nil, fmt.Errorf("%w: unsupported version %d", errMalformedDigest, version)
	}

	var p Params
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.MemKiB, &p.Time, &p.Par); err != nil {
		return Params{}, nil, nil, fmt.Errorf("%w: %v", errMalformedDigest, err)
	}
	if p.Time == 0 || p.MemKiB == 0 || p.Par == 0 {
		return Params{}, nil, nil, fmt.Errorf("%w: zero parameter", errMalformedDigest)
	}
	if p.MemKiB > maxMemKiB || p.Time > maxTime {
		return Params{}, nil, nil, fmt.Errorf("%w: parameters out of range", errMalformedDigest)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return Params{}, nil, nil, fmt.Errorf("%w: bad salt", errMalformedDigest)
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return Params{}, nil, nil, fmt.Errorf("%w: bad key", errMalformedDigest)
	}

	return p, salt, key, nil
}
