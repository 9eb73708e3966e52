package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"tariff-engine/internal/config"
	"tariff-engine/internal/formula"
	"tariff-engine/internal/pricing"
	"tariff-engine/internal/source"
	"tariff-engine/internal/storage"
	"tariff-engine/internal/storage/gcs"
	"tariff-engine/pkg/api"
	"tariff-engine/pkg/logger"
	"tariff-engine/pkg/redis"
)

// ENTRY POINT

// pricer reads a pricing request from the file named by its first argument
// or from stdin and prints the quote as JSON. "pricer clear-cache" drops the
// shared pricing cache instead, "pricer migrate-down" rolls back the last
// quote-store migration.
func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	zapLogger, err := logger.New(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = zapLogger.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cmd := command(os.Args[1:])
	if cmd == cmdMigrateDown {
		return migrateDown(ctx, cfg.Database, zapLogger)
	}

	store, closeStore, err := newObjectStore(ctx, cfg, zapLogger)
	if err != nil {
		return err
	}
	defer closeStore()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	loader := source.NewLoader(store, zapLogger,
		source.WithMaxElapsed(cfg.FetchMaxElapsed),
		source.WithLocation(loc))

	cache := pricing.NewMemoryCache()
	if cfg.RedisAddr != "" {
		redisClient := redis.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		defer redisClient.Close()
		if err := redisClient.Ping(ctx); err != nil {
			zapLogger.Warn("Redis unavailable, using in-process cache", zap.Error(err))
		} else {
			cache = pricing.NewRedisCache(redisClient, zapLogger)
		}
	}

	engine := pricing.NewEngine(pricing.EngineDeps{
		Loader:    loader,
		Cache:     cache,
		Evaluator: formula.NewCELEvaluator(),
		Logger:    zapLogger,
	})

	if cmd == cmdClearCache {
		engine.ClearCache(ctx)
		return nil
	}

	req, err := readRequest(os.Args[1:])
	if err != nil {
		return err
	}

	quote, err := engine.Price(ctx, req)
	if err != nil {
		return err
	}

	if cfg.Database.Enabled() {
		if err := saveQuote(ctx, cfg.Database, quote, zapLogger); err != nil {
			zapLogger.Error("Failed to save quote", zap.Error(err))
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(quote)
}

const (
	cmdPrice       = "price"
	cmdClearCache  = "clear-cache"
	cmdMigrateDown = "migrate-down"
)

// command maps the first argument to a subcommand; anything else is the
// request file of a pricing run.
func command(args []string) string {
	if len(args) == 0 {
		return cmdPrice
	}
	switch args[0] {
	case cmdClearCache, cmdMigrateDown:
		return args[0]
	}
	return cmdPrice
}

func migrateDown(ctx context.Context, dbCfg config.Database, log *zap.Logger) error {
	if !dbCfg.Enabled() {
		return errors.New("migrate-down: quote database is not configured")
	}
	quotes, err := storage.NewPostgresStorage(ctx, dbCfg, log)
	if err != nil {
		return err
	}
	defer quotes.Close()

	return storage.RollbackMigration(ctx, quotes.DB(), log)
}

func readRequest(args []string) (pricing.Request, error) {
	var r io.Reader = os.Stdin
	if len(args) > 0 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return pricing.Request{}, fmt.Errorf("open request: %w", err)
		}
		defer f.Close()
		r = f
	}

	var req pricing.Request
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return pricing.Request{}, fmt.Errorf("decode request: %w", err)
	}
	return req, nil
}

func newObjectStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (source.ObjectStore, func(), error) {
	if cfg.GCSBucket != "" {
		bucket, err := gcs.New(ctx, cfg.GCSBucket)
		if err != nil {
			return nil, nil, err
		}
		return bucket, func() { _ = bucket.Close() }, nil
	}
	return api.NewClient(cfg.StorageBaseURL, cfg.StorageToken, cfg.HTTPRequestTimeout, log), func() {}, nil
}

func saveQuote(ctx context.Context, dbCfg config.Database, quote pricing.Quote, log *zap.Logger) error {
	quotes, err := storage.NewPostgresStorage(ctx, dbCfg, log)
	if err != nil {
		return err
	}
	defer quotes.Close()

	if err := storage.RunMigrations(ctx, quotes.DB(), log); err != nil {
		return err
	}
	id, err := quotes.SaveQuote(ctx, quote)
	if err != nil {
		return err
	}
	log.Info("Quote stored", zap.Int64("quote_id", id))
	return nil
}
