package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/nidhogg/reviewflow/internal/api"
	"github.com/nidhogg/reviewflow/internal/config"
	"github.com/nidhogg/reviewflow/internal/engine"
	"github.com/nidhogg/reviewflow/internal/executor"
	"github.com/nidhogg/reviewflow/internal/gate"
	"github.com/nidhogg/reviewflow/internal/notify"
	"github.com/nidhogg/reviewflow/internal/orchestrator"
	"github.com/nidhogg/reviewflow/internal/planner"
	"github.com/nidhogg/reviewflow/internal/provider"
	"github.com/nidhogg/reviewflow/internal/review"
	"github.com/nidhogg/reviewflow/internal/store"
	"github.com/nidhogg/reviewflow/internal/tools"
	"github.com/nidhogg/reviewflow/internal/workflow"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	logger.Info("Starting reviewflow...")

	// Load configuration
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "configs/reviewflow.json"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Fatal("failed to load config", zap.String("path", cfgPath), zap.Error(err))
	}
	logger.Info("Config loaded", zap.String("path", cfgPath))

	// Initialize provider router
	router := provider.NewRouter(logger)
	for i, pc := range cfg.Providers {
		clientCfg := provider.ClientConfig{
			ID: pc.ID, Type: pc.Type, Name: pc.Name,
			Endpoint: pc.Endpoint, APIKey: pc.APIKey,
		}
		switch pc.Type {
		case "openai":
			router.Register(provider.NewOpenAIClient(clientCfg, logger))
		case "anthropic":
			router.Register(provider.NewAnthropicClient(clientCfg, logger))
		default:
			logger.Warn("unknown provider type", zap.String("id", pc.ID), zap.String("type", pc.Type))
			continue
		}
		if i == 0 {
			router.SetDefault(pc.ID)
		}
		for _, role := range pc.Roles {
			router.Bind(role, pc.ID)
		}
	}

	// Initialize PostgreSQL store
	pgStore, err := store.New(cfg.Database.Postgres.DSN, logger)
	if err != nil {
		logger.Fatal("PostgreSQL unavailable", zap.Error(err))
	}
	migrationsDir := cfg.Database.Postgres.MigrationsDir
	if migrationsDir == "" {
		migrationsDir = "migrations"
	}
	if err := pgStore.Migrate(context.Background(), migrationsDir); err != nil {
		logger.Fatal("migration failed", zap.Error(err))
	}

	// Initialize watchdog and lifecycle manager
	watchdog, err := workflow.NewRedisWatchdog(cfg.Database.Redis.URL, logger)
	if err != nil {
		logger.Fatal("Redis unavailable", zap.Error(err))
	}
	oc := cfg.Orchestrator
	ttl := time.Duration(oc.WatchdogTTLMinutes) * time.Minute
	manager := workflow.NewManager(pgStore, watchdog, ttl, logger)

	reaperCtx, stopReaper := context.WithCancel(context.Background())
	reaper := workflow.NewReaper(watchdog, manager,
		time.Duration(oc.ReaperIntervalSeconds)*time.Second, logger)
	go reaper.Run(reaperCtx)

	// Initialize security gate and command runner
	g := gate.New(cfg.Security.AllowedPrefixes, logger)
	runner := tools.ExecRunner{}

	// Initialize planner and executor
	planSessions := func(task review.Task) *engine.Session {
		reg := tools.ReadOnly(g, runner, task, logger)
		return engine.NewSession(router, "planner", oc.PlannerModel,
			oc.PlannerMaxTurns, oc.PlannerMaxTokens, reg, logger)
	}
	plnr := planner.New(planSessions, logger)
	exec := executor.New(router, g, runner, executor.Config{
		Model:     oc.ExecutorModel,
		MaxTurns:  oc.ExecutorMaxTurns,
		MaxTokens: oc.ExecutorMaxTokens,
	}, logger)

	// Initialize coordinator
	notifier := notify.NewSlack(cfg.Notify.SlackWebhookURL, logger)
	coord := orchestrator.New(plnr, exec, manager, pgStore, notifier, orchestrator.Config{
		WindowCapacity: oc.WindowCapacity,
		WindowEntryMax: oc.WindowEntryMaxChars,
		DigestStepMax:  oc.DigestStepMaxChars,
	}, logger)

	// Build HTTP handler
	handler := api.NewHandler(coord, manager, pgStore, logger)

	// Start server
	port := fmt.Sprintf("%d", cfg.Server.Port)
	if port == "0" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: handler.Router(),
	}

	go func() {
		logger.Info("reviewflow listening", zap.String("port", port))
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down reviewflow...")
	stopReaper()
	srv.Shutdown(context.Background())
	watchdog.Close()
	pgStore.Close()
}
