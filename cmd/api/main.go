package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/zapdesk/zapdesk/internal/api/http"
	"github.com/zapdesk/zapdesk/internal/api/http/handlers"
	"github.com/zapdesk/zapdesk/internal/auth"
	"github.com/zapdesk/zapdesk/internal/broadcast"
	"github.com/zapdesk/zapdesk/internal/classifier"
	"github.com/zapdesk/zapdesk/internal/config"
	"github.com/zapdesk/zapdesk/internal/observability"
	"github.com/zapdesk/zapdesk/internal/persistence"
	"github.com/zapdesk/zapdesk/internal/repository"
	"github.com/zapdesk/zapdesk/internal/router"
	"github.com/zapdesk/zapdesk/internal/service"
	"github.com/zapdesk/zapdesk/internal/transport"
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

	metrics := observability.NewMetrics()

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

	pool := pg.PoolHandle()
	ticketRepo := repository.NewTicketRepository(pool)
	messageRepo := repository.NewMessageRepository(pool)
	queueRepo := repository.NewQueueRepository(pool)
	technicianRepo := repository.NewTechnicianRepository(pool)

	hub := broadcast.NewHub(logger)
	backplane := broadcast.NewBackplane(redis.Client, hub, logger)
	defer backplane.Close()

	gateway := transport.NewBridgeGateway(cfg.Transport, logger)
	guard := transport.NewGuard(cfg.Transport.SessionStoreDir, cfg.Transport.FaultThreshold, gateway, hub, logger)

	classifierClient := classifier.NewClient(cfg.Classifier, logger, metrics)
	// Readiness is an explicit startup step; a failed probe just means the
	// rule engine handles everything until an operator re-probes through
	// POST /classifier/probe.
	if err := classifierClient.Probe(ctx); err != nil {
		logger.Warn("classifier unavailable, rule engine active", zap.Error(err))
	}

	lifecycle := service.NewLifecycleService(service.LifecycleDependencies{
		TicketRepo:     ticketRepo,
		MessageRepo:    messageRepo,
		QueueRepo:      queueRepo,
		TechnicianRepo: technicianRepo,
		Hub:            hub,
		Routing:        cfg.Routing,
		Logger:         logger,
	})

	conversationRouter := router.New(router.Dependencies{
		Classifier: classifierClient,
		Lifecycle:  lifecycle,
		Tickets:    ticketRepo,
		Gateway:    gateway,
		Notifier:   hub,
		Guard:      guard,
		Metrics:    metrics,
		Routing:    cfg.Routing,
		Transport:  cfg.Transport,
		Logger:     logger,
	})
	go conversationRouter.Run(ctx)

	authService := service.NewAuthService(*cfg, technicianRepo)
	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), technicianRepo)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:           handlers.NewAuthHandler(authService),
		Tickets:        handlers.NewTicketsHandler(lifecycle, gateway, logger),
		Transport:      handlers.NewTransportHandler(gateway, guard, logger),
		WS:             handlers.NewWSHandler(hub, authService.TokenManager(), logger),
		Metrics:        handlers.NewMetricsHandler(metrics, conversationRouter.Sessions()),
		Classifier:     handlers.NewClassifierHandler(classifierClient, logger),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
