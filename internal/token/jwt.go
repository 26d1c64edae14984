package token

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/dtroode/authlib-server/internal/model"
)

// Claims represents JWT claims with token class and account identity.
type Claims struct {
	jwt.RegisteredClaims
	AccountID  int64             `json:"account_id"`
	Email      string            `json:"email"`
	Class      string            `json:"typ"`
	Extensions map[string]string `json:"ext,omitempty"`
}

// SupportedAlgorithms lists the signing algorithms a codec may be pinned to.
var SupportedAlgorithms = map[string]jwt.SigningMethod{
	jwt.SigningMethodHS256.Alg(): jwt.SigningMethodHS256,
	jwt.SigningMethodHS384.Alg(): jwt.SigningMethodHS384,
	jwt.SigningMethodHS512.Alg(): jwt.SigningMethodHS512,
}

var _ model.TokenCodec = (*JWT)(nil)

// JWT implements TokenCodec backed by a symmetric HMAC key and a single pinned algorithm.
type JWT struct {
	secretKey []byte
	method    jwt.SigningMethod
	issuer    string
	now       func() time.Time
}

// Option configures JWT.
type Option func(*JWT)

// WithIssuer sets the iss claim on issued tokens and requires it on verification.
func WithIssuer(issuer string) Option {
	return func(j *JWT) {
		j.issuer = issuer
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(j *JWT) {
		if now != nil {
			j.now = now
		}
	}
}

// NewJWT creates a token codec signing with secretKey under algorithm alg.
func NewJWT(secretKey string, alg string, opts ...Option) (*JWT, error) {
	method, ok := SupportedAlgorithms[alg]
	if !ok {
		return nil, fmt.Errorf("unsupported signing algorithm %q", alg)
	}
	if secretKey == "" {
		return nil, errors.New("signing key must not be empty")
	}

	j := &JWT{
		secretKey: []byte(secretKey),
		method:    method,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j, nil
}

// Issue signs a token of the given class valid for ttl.
func (j *JWT) Issue(accountID int64, email string, class model.TokenClass, ttl time.Duration) (string, error) {
	return j.IssueWithExtensions(accountID, email, class, ttl, nil)
}

// IssueWithExtensions is Issue with a typed extension map embedded under "ext".
func (j *JWT) IssueWithExtensions(accountID int64, email string, class model.TokenClass, ttl time.Duration, ext map[string]string) (string, error) {
	if !class.Valid() {
		return "", fmt.Errorf("unknown token class %q", class)
	}

	now := j.now()
	token := jwt.NewWithClaims(j.method, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    j.issuer,
			Subject:   strconv.FormatInt(accountID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		AccountID:  accountID,
		Email:      email,
		Class:      string(class),
		Extensions: ext,
	})

	tokenString, err := token.SignedString(j.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", class, err)
	}

	return tokenString, nil
}

// Verify checks signature, algorithm and expiry and returns the claims.
func (j *JWT) Verify(tokenString string) (model.TokenClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{j.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.now),
	}
	if j.issuer != "" {
		opts = append(opts, jwt.WithIssuer(j.issuer))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != j.method.Alg() {
			return nil, fmt.Errorf("wrong signing method %v", t.Header["alg"])
		}
		return j.secretKey, nil
	}, opts...)
	if err != nil {
		return model.TokenClaims{}, model.NewInvalidTokenError(reason(err), err)
	}
	if !token.Valid {
		return model.TokenClaims{}, model.NewInvalidTokenError("invalid", nil)
	}

	out, err := claims.toModel()
	if err != nil {
		return model.TokenClaims{}, model.NewInvalidTokenError("malformed", err)
	}
	return out, nil
}

// Peek decodes claims without checking the signature or expiry.
// It is meant for diagnostics and for revoking tokens on logout.
func (j *JWT) Peek(tokenString string) (model.TokenClaims, bool) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return model.TokenClaims{}, false
	}
	out, err := claims.toModel()
	if err != nil {
		return model.TokenClaims{}, false
	}
	return out, true
}

func (c *Claims) toModel() (model.TokenClaims, error) {
	class := model.TokenClass(c.Class)
	if !class.Valid() {
		return model.TokenClaims{}, fmt.Errorf("token class %q", c.Class)
	}
	if c.Subject != strconv.FormatInt(c.AccountID, 10) {
		return model.TokenClaims{}, fmt.Errorf("subject %q does not match account id", c.Subject)
	}

	out := model.TokenClaims{
		ID:         c.ID,
		AccountID:  c.AccountID,
		Email:      c.Email,
		Class:      class,
		Extensions: c.Extensions,
	}
	if c.IssuedAt != nil {
		out.IssuedAt = c.IssuedAt.Time
	}
	if c.ExpiresAt != nil {
		out.ExpiresAt = c.ExpiresAt.Time
	}
	return out, nil
}

func reason(err error) string {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return "expired"
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return "bad signature"
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return "unexpected signing method"
	case errors.Is(err, jwt.ErrTokenMalformed):
		return "malformed"
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return "wrong issuer"
	case errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		return "missing claim"
	default:
		return "invalid"
	}
}
