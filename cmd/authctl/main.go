package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dtroode/authlib-server/internal/admin"
	"github.com/dtroode/authlib-server/internal/app"
	"github.com/dtroode/authlib-server/internal/config"
	"github.com/dtroode/authlib-server/internal/logger"
	"github.com/dtroode/authlib-server/internal/metrics"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string) int {
	cfg, err := config.NewConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	log := logger.NewWithWriter(os.Stderr, cfg.LogLevel)

	// operator runs are short-lived; their counters are not exported
	deps, err := app.Build(ctx, cfg, metrics.NewNoop(), log)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer deps.Close()

	tool := admin.New(deps.Auth, deps.Accounts, deps.Hasher, deps.Pruner, os.Stdout)
	if err := tool.Run(ctx, args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if errors.Is(err, admin.ErrUsage) {
			return 2
		}
		return 1
	}
	return 0
}
