package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/tradepost-hq/tradepost/internal/app"
	"github.com/tradepost-hq/tradepost/internal/docstore"
	"github.com/tradepost-hq/tradepost/internal/docstore/memory"
	"github.com/tradepost-hq/tradepost/internal/docstore/mongodb"
	"github.com/tradepost-hq/tradepost/internal/docstore/postgres"
	"github.com/tradepost-hq/tradepost/internal/ledger"
	"github.com/tradepost-hq/tradepost/internal/masterdata"
	"github.com/tradepost-hq/tradepost/internal/reports"
	"github.com/tradepost-hq/tradepost/internal/shared"
	"github.com/tradepost-hq/tradepost/internal/shipments"
)

func openStore(ctx context.Context, cfg *app.Config, logger *slog.Logger) (docstore.Store, error) {
	switch cfg.StoreDriver {
	case app.DriverPostgres:
		return postgres.New(ctx, cfg.PGDSN, logger)
	case app.DriverMongo:
		return mongodb.New(ctx, cfg.MongoURI, cfg.MongoDB, logger)
	default:
		return memory.New(), nil
	}
}

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("open document store", slog.String("driver", cfg.StoreDriver), slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			logger.Warn("store close", slog.Any("error", err))
		}
	}()

	replica := docstore.NewReplica(store, logger)
	if err := replica.Start(ctx); err != nil {
		logger.Error("start replica", slog.Any("error", err))
		os.Exit(1)
	}
	defer replica.Stop()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	idempotencyStore := shared.NewIdempotencyStore(redisClient, cfg.IdempotencyTTL)

	masterdataService := masterdata.NewService(store, replica)
	reportsService := reports.NewService(replica, masterdataService)
	ledgerService := ledger.NewService(store, replica, masterdataService, reportsService)
	shipmentsService := shipments.NewService(store, replica, masterdataService)

	masterdataHandler := masterdata.NewHandler(logger, masterdataService)
	ledgerHandler := ledger.NewHandler(logger, ledgerService, reportsService, idempotencyStore)
	shipmentsHandler := shipments.NewHandler(logger, shipmentsService, idempotencyStore)
	reportsHandler := reports.NewHandler(logger, reportsService)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		MasterdataHandler: masterdataHandler,
		LedgerHandler:     ledgerHandler,
		ShipmentsHandler:  shipmentsHandler,
		ReportsHandler:    reportsHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting http server",
			slog.String("addr", cfg.AppAddr), slog.String("store", cfg.StoreDriver))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server exited", slog.Any("error", err))
		os.Exit(1)
	}
}
