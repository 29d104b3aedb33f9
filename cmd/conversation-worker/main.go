package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/neumaticos-whatsapp/cmd/mainconfig"
	"github.com/wolfman30/neumaticos-whatsapp/internal/app/bootstrap"
	appconfig "github.com/wolfman30/neumaticos-whatsapp/internal/config"
	"github.com/wolfman30/neumaticos-whatsapp/internal/observability/metrics"
	"github.com/wolfman30/neumaticos-whatsapp/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.NewWithFormat(cfg.LogLevel, cfg.LogFormat)

	if err := run(cfg, logger); err != nil {
		logger.Error("conversation worker failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *appconfig.Config, logger *logging.Logger) error {
	if cfg.UseMemoryQueue {
		return errors.New("USE_MEMORY_QUEUE is set; the API runs the workers in-process")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	awsConfig, err := mainconfig.LoadAWSConfig(ctx, cfg)
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
	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		defer redisClient.Close()
	}

	queue, err := bootstrap.BuildQueue(cfg, awsConfig)
	if err != nil {
		return err
	}
	sender, err := bootstrap.BuildReplySender(cfg, logger)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	messagingMetrics := metrics.NewMessagingMetrics(reg)
	worker, err := bootstrap.BuildWorker(ctx, cfg, awsConfig, bootstrap.WorkerDeps{
		Pool:     pool,
		Repo:     bootstrap.BuildRepository(pool, logger),
		Redis:    redisClient,
		Queue:    queue,
		Jobs:     bootstrap.BuildJobStore(cfg, awsConfig, pool, logger),
		Sender:   sender,
		Turns:    metrics.NewTurnMetrics(reg),
		Outbound: messagingMetrics,
	}, logger)
	if err != nil {
		return err
	}

	metricsSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           metricsMux(reg),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server error", "error", err)
		}
	}()

	worker.Start(ctx)
	logger.Info("conversation worker started", "workers", cfg.WorkerCount)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down conversation worker...")
	cancel()

	doneCtx, doneCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer doneCancel()
	_ = metricsSrv.Shutdown(doneCtx)

	waitCh := make(chan struct{})
	go func() {
		worker.Wait()
		close(waitCh)
	}()

	select {
	case <-waitCh:
		logger.Info("conversation worker stopped")
	case <-doneCtx.Done():
		logger.Error("conversation worker shutdown timed out", "error", doneCtx.Err())
	}
	return nil
}

func metricsMux(reg *prometheus.Registry) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}
