// Command shop runs the interactive console shop. With -check (or when
// RAILWAY_ENVIRONMENT is set) it only verifies the store and exits.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/dwikikusuma/minishop/internal/bootstrap"
	"github.com/dwikikusuma/minishop/internal/console"
	"github.com/dwikikusuma/minishop/pkg/config"
	"github.com/dwikikusuma/minishop/pkg/logger"
	"github.com/dwikikusuma/minishop/pkg/shutdown"
)

func main() {
	configPath := flag.String("config", "", "optional YAML config file")
	check := flag.Bool("check", false, "connect, report the product count and exit")
	seed := flag.String("seed", "", "seed file (.yaml or .csv) loaded at startup")
	flag.Parse()

	if err := run(*configPath, *seed, *check || os.Getenv("RAILWAY_ENVIRONMENT") != ""); err != nil {
		fmt.Fprintln(os.Stderr, "shop:", err)
		os.Exit(1)
	}
}

func run(configPath, seed string, check bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if seed != "" {
		cfg.SeedFile = seed
	}

	opts := logger.Options{Service: "shop", Env: cfg.AppEnv, Level: cfg.LogLevel, File: cfg.LogFile}
	var log *zap.Logger
	if check {
		log = logger.New(opts)
	} else {
		log = logger.NewFile(opts)
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	backend, err := bootstrap.Open(ctx, cfg, bootstrap.Options{Log: log})
	if err != nil {
		return err
	}
	defer backend.Close()

	if check {
		return healthCheck(ctx, backend, log)
	}

	return console.New(os.Stdin, os.Stdout, backend.Accounts, backend.Catalog, backend.Cart, log).Run(ctx)
}

func healthCheck(ctx context.Context, backend *bootstrap.Backend, log *zap.Logger) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := backend.Ping(ctx); err != nil {
		return fmt.Errorf("store unreachable: %w", err)
	}
	n, err := backend.CountProducts(ctx)
	if err != nil {
		return err
	}
	log.Info("store reachable", zap.Int("products", n))
	fmt.Printf("Connected. %d products available.\n", n)
	return nil
}
