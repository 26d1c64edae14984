package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dtroode/authlib-server/internal/logger"
	"github.com/dtroode/authlib-server/internal/metrics"
	"github.com/dtroode/authlib-server/internal/model"
)

// Operation names used in logs and metrics.
const (
	OpRegister     = "register"
	OpLogin        = "login"
	OpRefresh      = "refresh"
	OpLogout       = "logout"
	OpAuthenticate = "authenticate"
)

const dummySecret = "dummy-secret-for-timing"

// AuthConfig holds token lifetimes and orchestration switches.
type AuthConfig struct {
	AccessTTL               time.Duration
	RefreshTTL              time.Duration
	EnforceAccessRevocation bool
	RefreshChecksAccount    bool
}

// Auth composes accounts, hashing, tokens and the ledger into the session workflows.
type Auth struct {
	accounts *Account
	hasher   model.CredentialHasher
	codec    model.TokenCodec
	ledger   *Ledger
	cfg      AuthConfig
	metrics  *metrics.Metrics
	logger   *logger.Logger

	dummyMu     sync.Mutex
	dummyDigest string
}

// NewAuth creates the authentication orchestrator.
func NewAuth(
	accounts *Account,
	hasher model.CredentialHasher,
	codec model.TokenCodec,
	ledger *Ledger,
	cfg AuthConfig,
	m *metrics.Metrics,
	logger *logger.Logger,
) *Auth {
	return &Auth{
		accounts: accounts,
		hasher:   hasher,
		codec:    codec,
		ledger:   ledger,
		cfg:      cfg,
		metrics:  m,
		logger:   logger,
	}
}

// Register creates an account and opens a session for it.
func (a *Auth) Register(ctx context.Context, email, password string, profile model.Profile) (session model.Session, err error) {
	defer func() { a.record(OpRegister, err) }()

	a.logger.Debug("Auth service: starting registration",
		"email", email)

	if err := validateCredentials(email, password); err != nil {
		a.logger.Info("Auth service: registration rejected",
			"email", email,
			"error", err.Error())
		return model.Session{}, err
	}

	if err := a.accounts.CheckEmailAvailable(ctx, email); err != nil {
		a.logger.Info("Auth service: registration rejected",
			"email", email,
			"error", err.Error())
		return model.Session{}, err
	}

	digest, err := a.hash(ctx, password)
	if err != nil {
		a.logger.Error("Auth service: failed to hash credential",
			"email", email,
			"error", err.Error())
		return model.Session{}, err
	}

	account, err := a.accounts.Create(ctx, email, digest, profile)
	if err != nil {
		return model.Session{}, err
	}

	tokens, err := a.issuePair(account)
	if err != nil {
		a.logger.Error("Auth service: account created but token issuance failed",
			"account_id", account.ID,
			"error", err.Error())
		return model.Session{}, err
	}

	a.logger.Info("Auth service: registration completed",
		"account_id", account.ID)

	return model.Session{Account: account.View(), Tokens: tokens}, nil
}

// Login checks credentials and opens a session. Unknown email, wrong password
// and inactive account all fail with the same InvalidCredentials error.
func (a *Auth) Login(ctx context.Context, email, password string) (session model.Session, err error) {
	defer func() { a.record(OpLogin, err) }()

	a.logger.Debug("Auth service: starting login",
		"email", email)

	if err := validateEmail(email); err != nil {
		return model.Session{}, err
	}

	account, err := a.accounts.FindByEmail(ctx, email)
	if errors.Is(err, model.ErrNotFound) {
		a.burnVerify(ctx, password)
		a.logger.Info("Auth service: login failed",
			"email", email,
			"reason", "unknown email")
		return model.Session{}, model.NewInvalidCredentialsError()
	}
	if err != nil {
		return model.Session{}, err
	}

	ok, err := a.verify(ctx, password, account.CredentialHash)
	if err != nil {
		a.logger.Error("Auth service: failed to verify credential",
			"account_id", account.ID,
			"error", err.Error())
		return model.Session{}, err
	}
	if !ok {
		a.logger.Info("Auth service: login failed",
			"account_id", account.ID,
			"reason", "wrong password")
		return model.Session{}, model.NewInvalidCredentialsError()
	}
	if !account.Active {
		a.logger.Info("Auth service: login failed",
			"account_id", account.ID,
			"reason", "inactive account")
		return model.Session{}, model.NewInvalidCredentialsError()
	}

	account, err = a.accounts.TouchLastLogin(ctx, account.ID)
	if err != nil {
		return model.Session{}, err
	}

	if a.hasher.NeedsUpgrade(account.CredentialHash) {
		a.upgradeDigest(ctx, account.ID, password)
	}

	tokens, err := a.issuePair(account)
	if err != nil {
		a.logger.Error("Auth service: failed to issue tokens",
			"account_id", account.ID,
			"error", err.Error())
		return model.Session{}, err
	}

	a.logger.Info("Auth service: login completed",
		"account_id", account.ID)

	return model.Session{Account: account.View(), Tokens: tokens}, nil
}

// Refresh exchanges a refresh token for a new access token. The refresh token is kept.
func (a *Auth) Refresh(ctx context.Context, refreshToken string) (grant model.AccessGrant, err error) {
	defer func() { a.record(OpRefresh, err) }()

	claims, err := a.codec.Verify(refreshToken)
	if err != nil {
		a.logger.Info("Auth service: refresh rejected",
			"error", err.Error())
		return model.AccessGrant{}, err
	}
	if claims.Class != model.TokenClassRefresh {
		a.logger.Info("Auth service: refresh rejected",
			"account_id", claims.AccountID,
			"reason", "wrong token class")
		return model.AccessGrant{}, model.NewInvalidTokenError("not a refresh token", nil)
	}

	revoked, err := a.ledger.IsRevoked(ctx, refreshToken)
	if err != nil {
		return model.AccessGrant{}, err
	}
	if revoked {
		a.logger.Info("Auth service: refresh rejected",
			"account_id", claims.AccountID,
			"reason", "revoked")
		return model.AccessGrant{}, model.NewInvalidTokenError("revoked", nil)
	}

	email := claims.Email
	if a.cfg.RefreshChecksAccount {
		account, err := a.accounts.FindByID(ctx, claims.AccountID)
		if errors.Is(err, model.ErrNotFound) {
			return model.AccessGrant{}, model.NewInvalidTokenError("account not found", nil)
		}
		if err != nil {
			return model.AccessGrant{}, err
		}
		if !account.Active {
			return model.AccessGrant{}, model.NewInvalidTokenError("account inactive", nil)
		}
		email = account.Email
	}

	access, expiresAt, err := a.issue(claims.AccountID, email, model.TokenClassAccess, a.cfg.AccessTTL)
	if err != nil {
		return model.AccessGrant{}, err
	}

	a.logger.Info("Auth service: access token refreshed",
		"account_id", claims.AccountID)

	return model.AccessGrant{AccessToken: access, ExpiresAt: expiresAt}, nil
}

// Logout revokes both tokens of a session. Tokens only need to decode;
// expired or foreign-signed tokens are recorded as well.
func (a *Auth) Logout(ctx context.Context, accessToken, refreshToken string) (err error) {
	defer func() { a.record(OpLogout, err) }()

	accessClaims, ok := a.codec.Peek(accessToken)
	if !ok {
		return model.NewInvalidTokenError("access token cannot be decoded", nil)
	}
	refreshClaims, ok := a.codec.Peek(refreshToken)
	if !ok {
		return model.NewInvalidTokenError("refresh token cannot be decoded", nil)
	}

	if err := a.ledger.Revoke(ctx, accessToken, accessClaims.AccountID, accessClaims.ExpiresAt); err != nil {
		return err
	}
	if err := a.ledger.Revoke(ctx, refreshToken, refreshClaims.AccountID, refreshClaims.ExpiresAt); err != nil {
		return err
	}

	a.logger.Info("Auth service: logout completed",
		"account_id", refreshClaims.AccountID)

	return nil
}

// Authenticate checks an access token presented for resource use.
func (a *Auth) Authenticate(ctx context.Context, accessToken string) (claims model.TokenClaims, err error) {
	defer func() { a.record(OpAuthenticate, err) }()

	claims, err = a.codec.Verify(accessToken)
	if err != nil {
		return model.TokenClaims{}, err
	}
	if claims.Class != model.TokenClassAccess {
		return model.TokenClaims{}, model.NewInvalidTokenError("not an access token", nil)
	}

	if a.cfg.EnforceAccessRevocation {
		revoked, err := a.ledger.IsRevoked(ctx, accessToken)
		if err != nil {
			return model.TokenClaims{}, err
		}
		if revoked {
			return model.TokenClaims{}, model.NewInvalidTokenError("revoked", nil)
		}
	}

	return claims, nil
}

func (a *Auth) issuePair(account model.Account) (model.TokenPair, error) {
	access, accessExp, err := a.issue(account.ID, account.Email, model.TokenClassAccess, a.cfg.AccessTTL)
	if err != nil {
		return model.TokenPair{}, err
	}
	refresh, refreshExp, err := a.issue(account.ID, account.Email, model.TokenClassRefresh, a.cfg.RefreshTTL)
	if err != nil {
		return model.TokenPair{}, err
	}

	return model.TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

func (a *Auth) issue(accountID int64, email string, class model.TokenClass, ttl time.Duration) (string, time.Time, error) {
	token, err := a.codec.Issue(accountID, email, class, ttl)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to issue %s token: %w", class, err)
	}
	claims, ok := a.codec.Peek(token)
	if !ok {
		return "", time.Time{}, fmt.Errorf("failed to decode issued %s token", class)
	}
	return token, claims.ExpiresAt, nil
}

func (a *Auth) hash(ctx context.Context, secret string) (string, error) {
	start := time.Now()
	defer a.metrics.ObserveHash("hash", start)
	return a.hasher.Hash(ctx, secret)
}

func (a *Auth) verify(ctx context.Context, secret, digest string) (bool, error) {
	start := time.Now()
	defer a.metrics.ObserveHash("verify", start)
	return a.hasher.Verify(ctx, secret, digest)
}

// burnVerify spends one verification against a throwaway digest so that an
// unknown email costs about as much as a wrong password.
func (a *Auth) burnVerify(ctx context.Context, secret string) {
	digest := a.dummy(ctx)
	if digest == "" {
		return
	}
	_, _ = a.verify(ctx, secret, digest)
}

// dummy returns the throwaway digest, deriving it on first use. The derivation
// ignores the caller's cancellation and is retried on the next call if it fails.
func (a *Auth) dummy(ctx context.Context) string {
	a.dummyMu.Lock()
	defer a.dummyMu.Unlock()

	if a.dummyDigest != "" {
		return a.dummyDigest
	}

	digest, err := a.hasher.Hash(context.WithoutCancel(ctx), dummySecret)
	if err != nil {
		a.logger.Warn("Auth service: failed to prepare dummy digest",
			"error", err.Error())
		return ""
	}
	a.dummyDigest = digest
	return digest
}

func (a *Auth) upgradeDigest(ctx context.Context, accountID int64, secret string) {
	digest, err := a.hash(ctx, secret)
	if err != nil {
		a.logger.Warn("Auth service: failed to re-hash credential",
			"account_id", accountID,
			"error", err.Error())
		return
	}
	if _, err := a.accounts.ReplaceCredentialHash(ctx, accountID, digest); err != nil {
		a.logger.Warn("Auth service: failed to store upgraded credential",
			"account_id", accountID,
			"error", err.Error())
		return
	}
	a.logger.Info("Auth service: credential digest upgraded",
		"account_id", accountID)
}

func (a *Auth) record(operation string, err error) {
	switch {
	case err == nil:
		a.metrics.RecordOperation(operation, metrics.ResultSuccess)
	case model.IsDomainError(err):
		a.metrics.RecordOperation(operation, metrics.ResultFailure)
	default:
		a.metrics.RecordOperation(operation, metrics.ResultError)
	}
}
