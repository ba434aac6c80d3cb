package main

import (
	"context"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"

	"github.com/ewilliams-labs/nextsong/internal/adapters/analytics"
	"github.com/ewilliams-labs/nextsong/internal/adapters/catalog"
	"github.com/ewilliams-labs/nextsong/internal/adapters/memstore"
	"github.com/ewilliams-labs/nextsong/internal/adapters/metadata"
	"github.com/ewilliams-labs/nextsong/internal/adapters/rest"
	"github.com/ewilliams-labs/nextsong/internal/adapters/sqlite"
	"github.com/ewilliams-labs/nextsong/internal/config"
	"github.com/ewilliams-labs/nextsong/internal/core/ports"
	"github.com/ewilliams-labs/nextsong/internal/core/services"
	"github.com/ewilliams-labs/nextsong/internal/logging"
	"github.com/ewilliams-labs/nextsong/internal/worker"
)

func main() {
	// 1. Configuration
	cfg, err := config.Load()
	if err != nil {
		fallback := logging.New("info", "console", os.Stderr)
		fallback.Fatal().Err(err).Msg("failed to load configuration")
	}

	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)

	// 2. Initialize "Driven" Adapters
	// -- Behavior store
	var store ports.BehaviorStore
	var storeCloser func() error

	switch cfg.Storage.Driver {
	case "memory":
		store = memstore.New()
	case "sqlite":
		adapter, err := sqlite.NewAdapter(cfg.Storage.Path, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to initialize behavior store")
		}
		store = adapter
		storeCloser = adapter.Close
	default:
		logger.Fatal().Str("driver", cfg.Storage.Driver).Msg("unknown storage driver")
	}
	if storeCloser != nil {
		defer storeCloser()
	}

	// -- Song catalog
	songs, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load song catalog")
	}

	// -- Analytics sink (optional), fronted by the dispatch pool so the
	// request path never waits on the collector.
	var sink ports.AnalyticsSink
	if cfg.Analytics.Enabled {
		client := analytics.NewClient(analytics.Config{
			Endpoint:     cfg.Analytics.Endpoint,
			TokenURL:     cfg.Analytics.TokenURL,
			ClientID:     cfg.Analytics.ClientID,
			ClientSecret: cfg.Analytics.ClientSecret,
			MaxRetries:   cfg.Analytics.MaxRetries,
			BaseBackoff:  cfg.Analytics.BaseBackoff,
		}, logger)
		pool := worker.NewPool(client, cfg.Analytics.QueueSize, logger)
		pool.Start(cfg.Analytics.Workers)
		defer pool.Stop()
		sink = pool
	}

	// 3. Initialize Core Logic
	var rng *rand.Rand
	if cfg.Recommend.Seed != 0 {
		rng = rand.New(rand.NewSource(cfg.Recommend.Seed))
	}
	recommender := services.NewRecommender(rng)
	tracker := services.NewTracker(store, songs, recommender, sink, services.TrackerOptions{
		MinVisits:   cfg.Recommend.MinVisits,
		MinClicks:   cfg.Recommend.MinClicks,
		SuppressFor: cfg.Recommend.SuppressFor,
		SessionTTL:  cfg.Recommend.SessionTTL,
	}, logger)

	// 4. Scheduled purge of expired session state
	sched := cron.New()
	if _, err := sched.AddFunc(cfg.Recommend.PurgeSchedule, func() {
		if err := tracker.PurgeExpired(context.Background()); err != nil {
			logger.Warn().Err(err).Msg("session purge failed")
		}
	}); err != nil {
		logger.Fatal().Err(err).Str("schedule", cfg.Recommend.PurgeSchedule).Msg("invalid purge schedule")
	}
	sched.Start()
	defer sched.Stop()

	// 5. Initialize "Driving" Adapter and start the server
	extractor := metadata.NewExtractor(logger)
	handler := rest.NewHandler(tracker, extractor, logger)

	logger.Info().Str("addr", cfg.Server.Addr).Str("storage", cfg.Storage.Driver).Msg("NextSong API is running")

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		err := srv.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-serverErr:
		if err != nil {
			logger.Fatal().Err(err).Msg("server failed")
		}
	case <-ctx.Done():
		logger.Info().Msg("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("shutdown error")
		}
	}
}
