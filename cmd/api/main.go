package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/neumaticos-whatsapp/cmd/mainconfig"
	"github.com/wolfman30/neumaticos-whatsapp/internal/api/router"
	"github.com/wolfman30/neumaticos-whatsapp/internal/app/bootstrap"
	appconfig "github.com/wolfman30/neumaticos-whatsapp/internal/config"
	"github.com/wolfman30/neumaticos-whatsapp/internal/conversation"
	"github.com/wolfman30/neumaticos-whatsapp/internal/http/handlers"
	"github.com/wolfman30/neumaticos-whatsapp/internal/livefeed"
	"github.com/wolfman30/neumaticos-whatsapp/internal/messaging"
	"github.com/wolfman30/neumaticos-whatsapp/internal/observability/metrics"
	"github.com/wolfman30/neumaticos-whatsapp/internal/reporting"
	"github.com/wolfman30/neumaticos-whatsapp/internal/whatsapp"
	"github.com/wolfman30/neumaticos-whatsapp/pkg/logging"
)

type appMetrics struct {
	handler   http.Handler
	messaging *metrics.MessagingMetrics
	turns     *metrics.TurnMetrics
}

func setupMetrics() appMetrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return appMetrics{
		handler:   promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		messaging: metrics.NewMessagingMetrics(reg),
		turns:     metrics.NewTurnMetrics(reg),
	}
}

// adminDeps are what the operator API needs besides the repository.
type adminDeps struct {
	repo     whatsapp.Repository
	reports  *reporting.Store
	sender   conversation.ReplySender
	hub      *livefeed.Hub
	jobs     bootstrap.JobStore
	outbound conversation.OutboundObserver
}

// buildAdminHandlers returns nil handlers when ADMIN_JWT_SECRET is unset, which
// keeps /admin off the router.
func buildAdminHandlers(cfg *appconfig.Config, awsCfg aws.Config, deps adminDeps, logger *logging.Logger) (*handlers.AdminConversationsHandler, *handlers.AdminJobsHandler) {
	if cfg.AdminJWTSecret == "" {
		logger.Warn("ADMIN_JWT_SECRET is empty; admin API disabled")
		return nil, nil
	}

	convCfg := handlers.AdminConversationsConfig{
		Repo:     deps.repo,
		Sender:   deps.sender,
		Feed:     deps.hub,
		Outbound: deps.outbound,
		Logger:   logger,
	}
	if deps.reports != nil {
		convCfg.Reports = deps.reports
	}
	if archiver := bootstrap.BuildArchiver(cfg, awsCfg, deps.repo, logger); archiver != nil {
		convCfg.Archiver = archiver
	}
	return handlers.NewAdminConversationsHandler(convCfg), handlers.NewAdminJobsHandler(deps.jobs, logger)
}

// startInProcessWorker runs the turn workers inside the API when the memory queue
// is in use, since no other process can read it.
func startInProcessWorker(ctx context.Context, cfg *appconfig.Config, awsCfg aws.Config, deps bootstrap.WorkerDeps, logger *logging.Logger) (func(), error) {
	worker, err := bootstrap.BuildWorker(ctx, cfg, awsCfg, deps, logger, conversation.WithReceiveWaitSeconds(1))
	if err != nil {
		return nil, err
	}

	workerCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		bootstrap.RunWorker(workerCtx, worker, logger)
		close(done)
	}()
	return func() {
		cancel()
		<-done
	}, nil
}

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.NewWithFormat(cfg.LogLevel, cfg.LogFormat)
	logger.Info("starting neumaticos whatsapp API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"memory_queue", cfg.UseMemoryQueue,
	)

	if err := run(cfg, logger); err != nil {
		logger.Error("api server failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *appconfig.Config, logger *logging.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		return err
	}

	pool, err := bootstrap.BuildPostgresPool(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if pool != nil {
		defer pool.Close()
	}
	repo := bootstrap.BuildRepository(pool, logger)

	var reports *reporting.Store
	if cfg.DatabaseURL != "" {
		sqlDB, err := reporting.Open(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer sqlDB.Close()
		reports = reporting.NewStore(sqlDB)
	}

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		defer redisClient.Close()
	}

	telemetry := setupMetrics()

	queue, err := bootstrap.BuildQueue(cfg, awsCfg)
	if err != nil {
		return err
	}
	jobs := bootstrap.BuildJobStore(cfg, awsCfg, pool, logger)
	var recorder conversation.JobRecorder
	if jobs != nil {
		recorder = jobs
	}
	publisher := conversation.NewPublisher(queue, recorder, logger)

	webhookCfg, err := bootstrap.BuildWebhookConfig(cfg, logger)
	if err != nil {
		return err
	}
	messagingHandler := messaging.NewHandler(webhookCfg, publisher, bootstrap.BuildDeduper(redisClient, cfg), telemetry.messaging, logger)

	sender, err := bootstrap.BuildReplySender(cfg, logger)
	if err != nil {
		return err
	}
	hub := livefeed.NewHub(cfg.AdminAllowedOrigins, logger)

	adminConversations, adminJobs := buildAdminHandlers(cfg, awsCfg, adminDeps{
		repo:     repo,
		reports:  reports,
		sender:   sender,
		hub:      hub,
		jobs:     jobs,
		outbound: telemetry.messaging,
	}, logger)

	routerCfg := &router.Config{
		Logger:               logger,
		MessagingHandler:     messagingHandler,
		MetricsHandler:       telemetry.handler,
		AdminAuthSecret:      cfg.AdminJWTSecret,
		CORSAllowedOrigins:   cfg.AdminAllowedOrigins,
		AdminRateLimitPerMin: cfg.AdminRateLimitPerMin,
	}
	if adminConversations != nil {
		routerCfg.AdminConversations = adminConversations
		routerCfg.AdminJobs = adminJobs
		routerCfg.LiveFeed = hub
	}

	if cfg.UseMemoryQueue {
		stopWorker, err := startInProcessWorker(ctx, cfg, awsCfg, bootstrap.WorkerDeps{
			Pool:     pool,
			Repo:     repo,
			Redis:    redisClient,
			Queue:    queue,
			Jobs:     jobs,
			Sender:   sender,
			Feed:     hub,
			Turns:    telemetry.turns,
			Outbound: telemetry.messaging,
		}, logger)
		if err != nil {
			return err
		}
		defer stopWorker()
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router.New(routerCfg),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}
