package app

import (
	"context"
	"fmt"

	"github.com/microarena/duelcore/internal/duel"
	"github.com/microarena/duelcore/internal/events"
	"github.com/microarena/duelcore/internal/ledger"
	"github.com/microarena/duelcore/internal/store"
	"github.com/microarena/duelcore/internal/stream"
	"github.com/microarena/duelcore/pkg/cache"
	"github.com/microarena/duelcore/pkg/config"
	"github.com/microarena/duelcore/pkg/healthprobe"
	"github.com/microarena/duelcore/pkg/httpserver"
	"go.uber.org/zap"
)

// New creates a new application instance.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	ctx, cancel := context.WithCancel(context.Background())

	healthChecker := healthprobe.New()

	engineStore, err := setupStore(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup store: %w", err)
	}

	hub := stream.NewHub(nil, logger)

	publisher, err := setupPublisher(cfg, logger, hub)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup publisher: %w", err)
	}

	accountLedger, err := ledger.New(&ledger.Config{
		Store:  engineStore,
		Logger: logger,
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup ledger: %w", err)
	}

	registry, err := duel.NewRegistry(&duel.Config{
		Store:     engineStore,
		Ledger:    accountLedger,
		Publisher: publisher,
		Logger:    logger,
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup registry: %w", err)
	}

	book, err := duel.NewBook(&duel.BookConfig{
		Store:            engineStore,
		Ledger:           accountLedger,
		Registry:         registry,
		Publisher:        publisher,
		Logger:           logger,
		AllowWaitingBets: cfg.BetsAllowWaiting,
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup wager book: %w", err)
	}

	duelCache, err := setupCache(logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup cache: %w", err)
	}

	httpServer := httpserver.New(&httpserver.Config{
		Port:           cfg.HTTPPort,
		Logger:         logger,
		HealthChecker:  healthChecker,
		Registry:       registry,
		Book:           book,
		Ledger:         accountLedger,
		Hub:            hub,
		DuelCache:      duelCache,
		DuelCacheTTL:   cfg.DuelCacheTTL,
		OpeningBalance: cfg.OpeningBalance,
	})

	return &App{
		cfg:           cfg,
		logger:        logger,
		healthChecker: healthChecker,
		httpServer:    httpServer,
		engineStore:   engineStore,
		ledger:        accountLedger,
		registry:      registry,
		book:          book,
		publisher:     publisher,
		hub:           hub,
		duelCache:     duelCache,
		ctx:           ctx,
		cancel:        cancel,
	}, nil
}

// SetupStore builds the configured store. Exposed for cmd tooling that needs
// direct store access (seeding).
func SetupStore(cfg *config.Config, logger *zap.Logger) (store.Store, error) {
	return setupStore(cfg, logger)
}

func setupStore(cfg *config.Config, logger *zap.Logger) (store.Store, error) {
	switch cfg.StoreMode {
	case "postgres":
		return store.NewPostgres(&store.PostgresConfig{
			Host:     cfg.PostgresHost,
			Port:     cfg.PostgresPort,
			User:     cfg.PostgresUser,
			Password: cfg.PostgresPass,
			Database: cfg.PostgresDB,
			SSLMode:  cfg.PostgresSSL,
			Logger:   logger,
		})
	default:
		return store.NewMemory(logger), nil
	}
}

func setupPublisher(cfg *config.Config, logger *zap.Logger, hub *stream.Hub) (events.Publisher, error) {
	fanout := events.Fanout{stream.NewHubPublisher(hub)}

	switch cfg.EventsMode {
	case "kafka":
		kafkaPublisher, err := events.NewKafkaPublisher(&events.KafkaConfig{
			Brokers: cfg.KafkaBrokers,
			Logger:  logger,
		})
		if err != nil {
			return nil, err
		}
		fanout = append(fanout, kafkaPublisher)
	default:
		fanout = append(fanout, events.NewConsolePublisher(logger))
	}

	return fanout, nil
}

func setupCache(logger *zap.Logger) (cache.Cache, error) {
	return cache.NewRistrettoCache(&cache.RistrettoConfig{
		NumCounters: 10_000,
		MaxCost:     1_000,
		BufferItems: 64,
		Logger:      logger,
	})
}
