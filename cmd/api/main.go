package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/repair-board/internal/ai"
	httptransport "github.com/spec-kit/repair-board/internal/api/http"
	"github.com/spec-kit/repair-board/internal/api/http/handlers"
	"github.com/spec-kit/repair-board/internal/cache"
	"github.com/spec-kit/repair-board/internal/config"
	"github.com/spec-kit/repair-board/internal/extraction"
	"github.com/spec-kit/repair-board/internal/hub"
	"github.com/spec-kit/repair-board/internal/observability"
	"github.com/spec-kit/repair-board/internal/persistence"
	"github.com/spec-kit/repair-board/internal/repository"
	"github.com/spec-kit/repair-board/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics("repair_board")

	pool := pg.PoolHandle()
	cardRepo := repository.NewCardRepository(pool)
	historyRepo := repository.NewHistoryRepository(pool)

	statsCache := cache.NewStatsCache(redis.Client, cfg.Stats.CacheTTL())
	coordinator := cache.NewCoordinator(statsCache, logger, metrics)
	defer coordinator.Close()

	eventHub := hub.NewHub(cfg.Hub, logger, metrics)
	defer eventHub.Close()

	workerPool := extraction.NewPool(cfg.Extraction.Workers, logger)
	defer workerPool.Close()

	capability := ai.NewCapability(cfg.Gemini, logger)
	orchestrator := extraction.NewOrchestrator(capability, workerPool, cfg.Extraction.Deadline(), logger, metrics)

	cardService := service.NewCardService(service.CardDependencies{
		CardRepo:    cardRepo,
		HistoryRepo: historyRepo,
		Listener:    coordinator,
		Events:      eventHub,
	})
	statsService := service.NewStatsService(cardRepo, statsCache, cfg.Stats, logger)

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: cfg.App.Env == "production",
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:     handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Cards:      handlers.NewCardsHandler(cardService),
		Stats:      handlers.NewStatsHandler(statsService),
		Extraction: handlers.NewExtractionHandler(orchestrator),
		WS:         handlers.NewWSHandler(eventHub, logger),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
