// Package app assembles the services from configuration. Both the server
// and authctl build on it so they always agree on backends and parameters.
package app

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/dtroode/authlib-server/internal/config"
	"github.com/dtroode/authlib-server/internal/hasher"
	"github.com/dtroode/authlib-server/internal/logger"
	"github.com/dtroode/authlib-server/internal/metrics"
	"github.com/dtroode/authlib-server/internal/model"
	"github.com/dtroode/authlib-server/internal/repository/memory"
	"github.com/dtroode/authlib-server/internal/repository/postgres"
	redisrepo "github.com/dtroode/authlib-server/internal/repository/redis"
	"github.com/dtroode/authlib-server/internal/service"
	storage "github.com/dtroode/authlib-server/internal/storage/minio"
	"github.com/dtroode/authlib-server/internal/token"
)

// Deps holds the wired services.
type Deps struct {
	Accounts *service.Account
	Auth     *service.Auth
	Hasher   *hasher.Argon2
	Ledger   *service.Ledger
	Pruner   *service.Pruner

	closers []func() error
}

// Close releases backend connections in reverse order of opening.
func (d *Deps) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Build opens the configured backends and wires the services.
//
// LEDGER_BACKEND picks the stores: "memory" keeps accounts and revocations in
// process, "postgres" keeps both in Postgres, "redis" keeps accounts in
// Postgres and revocations in Redis.
func Build(ctx context.Context, cfg *config.Config, m *metrics.Metrics, log *logger.Logger) (*Deps, error) {
	d := &Deps{}

	accountStore, revocationStore, err := d.openStores(ctx, cfg, log)
	if err != nil {
		_ = d.Close()
		return nil, err
	}

	var archive model.RecordArchive
	if cfg.Archive.Enabled {
		archive, err = storage.Dial(ctx, cfg.Archive.Endpoint, cfg.Archive.AccessKey, cfg.Archive.SecretKey, cfg.Archive.UseSSL, cfg.Archive.Bucket)
		if err != nil {
			_ = d.Close()
			return nil, fmt.Errorf("failed to initialize archive: %w", err)
		}
	}

	concurrency := cfg.Auth.HashConcurrency
	if concurrency <= 0 {
		concurrency = runtime.GOMAXPROCS(0)
	}
	d.Hasher = hasher.NewArgon2(
		hasher.Params{Time: cfg.KDF.Time, MemKiB: cfg.KDF.MemKiB, Par: cfg.KDF.Par},
		hasher.WithMinimum(hasher.Params{Time: cfg.KDF.MinTime, MemKiB: cfg.KDF.MinMemKiB}),
		hasher.WithConcurrency(concurrency),
	)

	codec, err := token.NewJWT(cfg.JWT.Secret, cfg.JWT.Algorithm, token.WithIssuer(cfg.JWT.Issuer))
	if err != nil {
		_ = d.Close()
		return nil, fmt.Errorf("failed to initialize token codec: %w", err)
	}

	d.Ledger, err = service.NewLedger(revocationStore, cfg.Ledger.CacheSize, m, log,
		service.WithLedgerTimeout(cfg.Database.QueryTimeout),
		service.WithMaxRetention(cfg.JWT.RefreshTTL),
	)
	if err != nil {
		_ = d.Close()
		return nil, fmt.Errorf("failed to initialize ledger: %w", err)
	}

	d.Accounts = service.NewAccount(accountStore, cfg.Database.QueryTimeout, log)
	d.Pruner = service.NewPruner(revocationStore, archive, cfg.Database.QueryTimeout, m, log)
	d.Auth = service.NewAuth(d.Accounts, d.Hasher, codec, d.Ledger, service.AuthConfig{
		AccessTTL:               cfg.JWT.AccessTTL,
		RefreshTTL:              cfg.JWT.RefreshTTL,
		EnforceAccessRevocation: cfg.Auth.EnforceAccessRevocation,
		RefreshChecksAccount:    cfg.Auth.RefreshChecksAccount,
	}, m, log)

	return d, nil
}

func (d *Deps) openStores(ctx context.Context, cfg *config.Config, log *logger.Logger) (model.AccountStore, model.RevocationStore, error) {
	if cfg.Ledger.Backend == config.LedgerMemory {
		log.Warn("App: using in-memory stores, data is lost on exit")
		return memory.NewAccountRepository(), memory.NewRevocationRepository(), nil
	}

	db, err := postgres.NewConnection(ctx, cfg.Database.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	d.closers = append(d.closers, db.Close)

	accounts := postgres.NewAccountRepository(db)
	if cfg.Ledger.Backend == config.LedgerPostgres {
		return accounts, postgres.NewRevocationRepository(db), nil
	}

	client, err := redisrepo.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize redis: %w", err)
	}
	d.closers = append(d.closers, client.Close)

	return accounts, redisrepo.NewRevocationRepository(client, cfg.Redis.Prefix), nil
}
