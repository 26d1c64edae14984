package model

import "context"

// CredentialHasher turns secrets into verifiable digests.
type CredentialHasher interface {
	Hash(ctx context.Context, secret string) (string, error)
	Verify(ctx context.Context, secret, digest string) (bool, error)
	NeedsUpgrade(digest string) bool
}
