package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/JonMunkholm/bakery/internal/cache"
	"github.com/JonMunkholm/bakery/internal/config"
	"github.com/JonMunkholm/bakery/internal/loader"
	"github.com/JonMunkholm/bakery/internal/logging"
	"github.com/JonMunkholm/bakery/internal/publish"
	"github.com/JonMunkholm/bakery/internal/sheets"
	"github.com/JonMunkholm/bakery/internal/store"
	"github.com/JonMunkholm/bakery/internal/web"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("configuration loaded", "config", cfg.String())

	sheetClient, err := sheets.NewClient(sheets.Config{
		BaseURL:   cfg.Sheet.BaseURL,
		SheetID:   cfg.Sheet.ID,
		SheetName: cfg.Sheet.Name,
		Range:     cfg.Sheet.Range,
		MaxBytes:  cfg.Sheet.MaxBytes,
		Timeout:   cfg.Sheet.FetchTimeout,
	}, nil)
	if err != nil {
		slog.Error("failed to create sheet client", "error", err)
		os.Exit(1)
	}
	slog.Info("menu sheet configured", "url", sheetClient.URL())

	// Background jobs stop when jobCtx is cancelled.
	jobCtx, cancelJobs := context.WithCancel(context.Background())
	defer cancelJobs()
	var jobs sync.WaitGroup
	startJob := func(fn func()) {
		jobs.Add(1)
		go func() {
			defer jobs.Done()
			fn()
		}()
	}

	cacheOpts := []cache.Option{
		cache.WithCacheDuration(cfg.Cache.Duration),
		cache.WithSoftRefreshInterval(cfg.Cache.SoftRefreshInterval),
		cache.WithSingleFlight(cfg.Cache.SingleFlight),
		cache.WithLogger(logger),
	}

	var snapshots *store.Store
	if cfg.Database.Enabled() {
		pool, err := store.Open(jobCtx, cfg.Database)
		if err != nil {
			slog.Error("failed to open snapshot database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		slog.Info("connected to database", "name", store.DatabaseName(cfg.Database.URL))

		snapshots = store.New(pool)
		if err := snapshots.EnsureSchema(jobCtx); err != nil {
			slog.Error("failed to prepare snapshot table", "error", err)
			os.Exit(1)
		}
		cacheOpts = append(cacheOpts, cache.WithStore(snapshots))
	} else {
		slog.Info("snapshot persistence disabled (DATABASE_URL not set)")
	}

	menuCache := cache.New(sheetClient, cacheOpts...)
	if snapshots != nil {
		if err := menuCache.Warm(jobCtx); err != nil {
			slog.Warn("could not restore last menu snapshot", "error", err)
		}
		startJob(func() {
			snapshots.StartPruneScheduler(jobCtx, store.PruneConfig{
				Keep:     cfg.Database.SnapshotKeep,
				Interval: cfg.Database.PruneInterval,
			})
		})
	}

	menuLoader := loader.New(menuCache, loader.Config{
		SoftRefreshInterval: cfg.Cache.SoftRefreshInterval,
		Logger:              logger,
	})

	if cfg.Publish.Enabled() {
		s3Client, err := publish.NewS3Client(jobCtx, cfg.Publish.Region)
		if err != nil {
			slog.Error("failed to create S3 client", "error", err)
			os.Exit(1)
		}
		publisher, err := publish.New(s3Client, publish.Config{
			Bucket:       cfg.Publish.Bucket,
			Key:          cfg.Publish.Key,
			CacheControl: cfg.Publish.CacheControl,
			Timeout:      cfg.Publish.Timeout,
			Logger:       logger,
		})
		if err != nil {
			slog.Error("failed to create publisher", "error", err)
			os.Exit(1)
		}
		updates, unsubscribe := menuLoader.Subscribe()
		startJob(func() {
			defer unsubscribe()
			publisher.Follow(jobCtx, updates)
		})
		slog.Info("menu publishing enabled", "bucket", cfg.Publish.Bucket, "key", cfg.Publish.Key)
	}

	server := web.NewServer(menuLoader, menuCache, cfg)
	startJob(func() { server.RunHub(jobCtx) })
	startJob(func() { menuLoader.Run(jobCtx) })

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := menuLoader.WaitForRefresh(shutdownCtx); err != nil {
			slog.Warn("background menu refresh did not finish in time", "error", err)
		}
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	slog.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server failed", "error", err)
		cancelJobs()
		jobs.Wait()
		os.Exit(1)
	}

	jobs.Wait()
	menuCache.WaitForPersist()
	slog.Info("server stopped")
}
