package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/forgewalk/forge/internal/actions"
	"github.com/forgewalk/forge/internal/expressions"
	"github.com/forgewalk/forge/internal/secrets"
	"github.com/forgewalk/forge/internal/state"
	"github.com/forgewalk/forge/internal/validation"
	"github.com/forgewalk/forge/internal/walker"
	"github.com/forgewalk/forge/pkg/forge"
)

// app bundles every wired dependency a run/resume/serve subcommand
// needs: state -> action registry -> expression stack -> walker,
// narrowed to this domain's contract.
type app struct {
	cfg     Config
	logger  *slog.Logger
	store   forge.ForgeState
	closer  func() error
	registry *actions.Registry
	manager *walker.Manager
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func buildApp(ctx context.Context, cfg Config) (*app, error) {
	logger := newLogger(cfg.LogLevel)

	var (
		store  forge.ForgeState
		closer func() error
	)
	if cfg.DBPath != "" {
		lib, err := state.NewLibSQLState(ctx, cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open state store: %w", err)
		}
		store = lib
		closer = lib.Close
	} else {
		store = state.NewMemoryState()
		closer = func() error { return nil }
	}

	validator := validation.NewJSONSchemaValidator()

	reg := actions.NewRegistry()
	httpCfg := actions.HTTPConfig{}
	if err := actions.RegisterBuiltins(reg, validator, httpCfg); err != nil {
		return nil, fmt.Errorf("register builtin actions: %w", err)
	}

	exprExec := expressions.NewExprExecutor()
	scopeFn := func(ctx context.Context) map[string]any {
		session, _ := forge.SessionFromContext(ctx)
		return expressions.BuildScope(ctx, session)
	}
	celExec, err := expressions.NewCELExecutor(scopeFn)
	if err != nil {
		return nil, fmt.Errorf("build cel executor: %w", err)
	}
	gojqExec := expressions.NewGoJQExecutor(scopeFn)

	external := forge.ExternalExecutors{
		"cel|": celExec,
		"jq|":  gojqExec,
	}

	if cfg.VaultKey != "" {
		vaultCfg := secrets.VaultConfig{
			Passphrase: cfg.VaultKey,
			Salt:       []byte(cfg.VaultSalt),
		}
		vault, err := secrets.NewAESVault(store, "__vault__", vaultCfg)
		if err != nil {
			return nil, fmt.Errorf("build vault: %w", err)
		}
		external["vault|"] = &secrets.VaultExecutor{Vault: vault}
	}

	deps := forge.Dependencies{
		State:     store,
		Registry:  reg,
		Evaluator: exprExec,
		External:  external,
		Validator: validator,
	}

	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = 10
	}
	manager := walker.NewManager(deps, walker.WithLogger(logger), walker.WithPoolSize(poolSize))

	return &app{
		cfg: cfg, logger: logger, store: store, closer: closer,
		registry: reg, manager: manager,
	}, nil
}

func (a *app) Close() error {
	a.manager.Shutdown()
	return a.closer()
}
