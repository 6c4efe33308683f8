package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/geodex/internal/config"
	"github.com/kailas-cloud/geodex/internal/db"
	"github.com/kailas-cloud/geodex/internal/db/memory"
	dbRedis "github.com/kailas-cloud/geodex/internal/db/redis"
	domcol "github.com/kailas-cloud/geodex/internal/domain/collection"
	logpkg "github.com/kailas-cloud/geodex/internal/logger"
	"github.com/kailas-cloud/geodex/internal/metrics"
	"github.com/kailas-cloud/geodex/internal/repository/aggregation"
	collectionrepo "github.com/kailas-cloud/geodex/internal/repository/collection"
	"github.com/kailas-cloud/geodex/internal/repository/cursor"
	imagerepo "github.com/kailas-cloud/geodex/internal/repository/image"
	"github.com/kailas-cloud/geodex/internal/repository/schema"
	siterepo "github.com/kailas-cloud/geodex/internal/repository/site"
	chiTransport "github.com/kailas-cloud/geodex/internal/transport/chi"
	batchuc "github.com/kailas-cloud/geodex/internal/usecase/batch"
	collectionuc "github.com/kailas-cloud/geodex/internal/usecase/collection"
	healthuc "github.com/kailas-cloud/geodex/internal/usecase/health"
	"github.com/kailas-cloud/geodex/internal/usecase/mapview"
	siteuc "github.com/kailas-cloud/geodex/internal/usecase/site"
	"github.com/kailas-cloud/geodex/internal/version"
)

func main() {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("geodex stopped with error", zap.Error(err))
	}
	logger.Info("Server stopped gracefully")
}

func run(cfg config.Config, logger *zap.Logger) error {
	logger.Info("Starting geodex API server",
		zap.String("version", version.String()),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	store, err := openStore(cfg.Database)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		return fmt.Errorf("database not ready: %w", err)
	}
	logger.Info("Connected to database")

	metrics.RegisterGeoMetrics()
	metrics.RegisterHTTPMetrics()

	layout := schema.New(cfg.Index.KeyPrefix)
	if err := schema.Ensure(ctx, store, logger, layout.All()...); err != nil {
		return fmt.Errorf("ensure indexes: %w", err)
	}

	cursorTTL := time.Duration(cfg.Cursor.TTLSec) * time.Second
	pages := cursor.New(store, logger)
	imageRepo := imagerepo.New(store, layout, pages, logger)
	if cfg.Cursor.DeletePageRate > 0 {
		imageRepo = imageRepo.WithDeleteRate(cfg.Cursor.DeletePageRate)
	}
	siteRepo := siterepo.New(store, layout, pages, cursorTTL, logger)
	collRepo := collectionrepo.New(store, layout, pages, cursorTTL)
	aggRepo := aggregation.New(store, layout.ImageIndex(), cfg.Map.MaxCells)

	directory := domcol.NewDirectory()
	collSvc := collectionuc.New(collRepo, imageRepo, directory, logger)
	siteSvc := siteuc.New(siteRepo, logger)
	batchSvc := batchuc.New(imageRepo, collRepo, siteSvc, logger).WithMaxBatchSize(cfg.Index.MaxBatchSize)
	healthSvc := healthuc.New(store, store, layout.ImageIndex(), layout.SiteIndex(), layout.CollectionIndex())
	mapSvc := mapview.New(mapview.Deps{Buckets: aggRepo, Sites: siteRepo, Images: imageRepo}, directory, mapview.Config{
		DefaultSamples:   cfg.Map.DefaultSamples,
		MaxSamples:       cfg.Map.MaxSamples,
		PinZoomThreshold: cfg.Map.PinZoomThreshold,
		SessionIdle:      time.Duration(cfg.Session.IdleTimeoutSec) * time.Second,
	}, logger)

	// Reference tables are small; a failed sync only degrades labels.
	if err := collSvc.Sync(ctx); err != nil {
		logger.Warn("Collection directory sync failed", zap.Error(err))
	}
	if err := siteSvc.Sync(ctx); err != nil {
		logger.Warn("Site cache sync failed", zap.Error(err))
	}

	server := chiTransport.NewServer(mapSvc, collSvc, siteSvc, batchSvc, healthSvc, logger)
	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      chiTransport.NewRouter(server, cfg.Auth.APIKeys, logger),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return mapSvc.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Received shutdown signal")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

func openStore(cfg config.DatabaseConfig) (db.Store, error) {
	switch cfg.Driver {
	case "redis":
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Addrs,
			Username: cfg.Username,
			Password: cfg.Password,
			DB:       cfg.DB,
		})
		if err != nil {
			return nil, fmt.Errorf("create redis store: %w", err)
		}
		return s, nil
	case "memory":
		return memory.NewStore(), nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}
