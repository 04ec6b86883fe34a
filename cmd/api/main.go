package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/ticket-lifecycle/internal/api/http"
	"github.com/spec-kit/ticket-lifecycle/internal/api/http/handlers"
	"github.com/spec-kit/ticket-lifecycle/internal/auth"
	"github.com/spec-kit/ticket-lifecycle/internal/clock"
	"github.com/spec-kit/ticket-lifecycle/internal/config"
	"github.com/spec-kit/ticket-lifecycle/internal/events"
	"github.com/spec-kit/ticket-lifecycle/internal/lifecycle"
	"github.com/spec-kit/ticket-lifecycle/internal/observability"
	"github.com/spec-kit/ticket-lifecycle/internal/persistence"
	"github.com/spec-kit/ticket-lifecycle/internal/repository"
	"github.com/spec-kit/ticket-lifecycle/internal/sla"
	"github.com/spec-kit/ticket-lifecycle/internal/store"
	"github.com/spec-kit/ticket-lifecycle/internal/worker"
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

	systemClock := clock.System()
	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	var amqpPublisher *events.AMQPPublisher
	if cfg.AMQP.URL != "" {
		amqpPublisher, err = events.NewAMQPPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange, logger)
		if err != nil {
			logger.Fatal("failed to connect amqp", zap.Error(err))
		}
		defer amqpPublisher.Close()
		amqpPublisher.Attach(dispatcher)
	}
	subscribeMetrics(dispatcher, metrics)

	var st store.Store
	var resolver auth.RoleResolver
	if pool := pg.PoolHandle(); pool != nil {
		st = repository.NewPostgresStore(pool)
		resolver = auth.NewAgentResolver(repository.NewAgentRepository(pool))
	} else {
		logger.Warn("running with in-memory store; data will not survive restarts")
		st = store.NewMemoryStore()
		resolver = auth.StaticResolver{}
	}
	roleCache := auth.NewRoleCache(resolver, redis.Client, cfg.Auth.RoleCacheTTL(), systemClock, logger)

	engine := lifecycle.NewEngine(st, systemClock, dispatcher, logger)
	slaService := sla.NewService(st, systemClock, dispatcher, logger)

	if cfg.Evaluator.Enabled {
		evaluator := worker.NewBreachEvaluator(st, systemClock, dispatcher, logger,
			cfg.Evaluator.Interval(), cfg.Evaluator.EscalationThresholds)
		go evaluator.Run(ctx)
	}

	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTLMinutes)
	authMiddleware := auth.NewMiddleware(tokenManager, roleCache)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis, metrics),
		Lifecycle:      handlers.NewLifecycleHandler(engine),
		SLA:            handlers.NewSLAHandler(slaService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func subscribeMetrics(dispatcher events.Dispatcher, metrics *observability.Metrics) {
	dispatcher.Subscribe(events.EventStatusChanged, func(ctx context.Context, event events.Event) error {
		if payload, ok := event.Payload.(events.StatusChangedPayload); ok {
			metrics.RecordTransition(string(payload.OldStatus), string(payload.NewStatus))
		}
		return nil
	})
	dispatcher.Subscribe(events.EventSLABreached, func(ctx context.Context, event events.Event) error {
		if payload, ok := event.Payload.(events.SLABreachedPayload); ok {
			metrics.RecordSLABreach(payload.Kind)
		}
		return nil
	})
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
