package model

import "time"

// TokenClass separates short-lived access tokens from refresh tokens.
type TokenClass string

const (
	TokenClassAccess  TokenClass = "access"
	TokenClassRefresh TokenClass = "refresh"
)

// Valid reports whether c is a known class.
func (c TokenClass) Valid() bool {
	return c == TokenClassAccess || c == TokenClassRefresh
}

// TokenCodec creates and parses signed tokens. It is class-agnostic.
type TokenCodec interface {
	Issue(accountID int64, email string, class TokenClass, ttl time.Duration) (string, error)
	Verify(token string) (TokenClaims, error)
	Peek(token string) (TokenClaims, bool)
}

// TokenClaims are the identity fields carried inside a token.
// Email is a snapshot taken at issuance.
type TokenClaims struct {
	ID         string
	AccountID  int64
	Email      string
	Class      TokenClass
	IssuedAt   time.Time
	ExpiresAt  time.Time
	Extensions map[string]string
}

// TokenPair is what register and login hand out.
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// Session is the outcome of register and login.
type Session struct {
	Account AccountView `json:"account"`
	Tokens  TokenPair   `json:"tokens"`
}

// AccessGrant is the outcome of refresh. The refresh token is not rotated.
type AccessGrant struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}
