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

	httpadapter "github.com/antonvlasov/metapilot/internal/adapters/http"
	"github.com/antonvlasov/metapilot/internal/bootstrap"
	"github.com/antonvlasov/metapilot/internal/config"
	"github.com/antonvlasov/metapilot/internal/observability/logging"
	"github.com/antonvlasov/metapilot/internal/observability/metrics"
)

const service = "api"

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

	// Warm the template cache so classification can suggest templates from
	// the first request. Failure is not fatal; the refresh endpoint retries.
	if count, err := app.TemplatesUC.Refresh(ctx); err != nil {
		slog.Warn("initial_template_refresh_failed", "error", err)
	} else {
		slog.Info("initial_template_refresh", "templates", count)
	}

	httpMetrics := metrics.NewHTTPServerMetrics(service)
	router := httpadapter.NewRouter(app.TemplatesUC, app.ClassifyUC, app.SubmitUC, service, httpMetrics).Handler()
	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("api listening on :%s", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("api server error: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("api shutdown error: %v", err)
	}
}
