package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/antonvlasov/metapilot/internal/bootstrap"
	"github.com/antonvlasov/metapilot/internal/config"
	"github.com/antonvlasov/metapilot/internal/core/domain"
	"github.com/antonvlasov/metapilot/internal/core/ports"
	"github.com/antonvlasov/metapilot/internal/observability/logging"
	"github.com/antonvlasov/metapilot/internal/observability/metrics"
)

const service = "worker"

func main() {
	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLogger(service, cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics(service)
	app.RunnerUC.SetObserver(fileObserver{m: workerMetrics})
	var runner ports.BatchRunner = app.RunnerUC
	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: workerMetrics.Handler(),
	}
	go func() {
		log.Printf("worker metrics listening on :%s", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("worker metrics server error: %v", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	log.Printf("worker subscribed to %s", cfg.NATSSubject)
	err = app.Queue.SubscribeBatchQueued(ctx, func(handlerCtx context.Context, runID string) error {
		if run, err := app.Store.GetRun(handlerCtx, runID); err == nil {
			workerMetrics.ObserveQueueLag(service, time.Since(run.CreatedAt))
		}

		runErr := runner.Run(handlerCtx, runID)

		status := string(domain.RunFailed)
		if run, err := app.Store.GetRun(handlerCtx, runID); err == nil {
			status = string(run.Status)
		}
		workerMetrics.FinishRun(service, status)
		return runErr
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}
}

type fileObserver struct {
	m *metrics.WorkerMetrics
}

func (f fileObserver) StartFile() {
	f.m.StartFile()
}

func (f fileObserver) FinishFile(duration time.Duration, success, updated bool) {
	f.m.FinishFile(service, duration, success, updated)
}
