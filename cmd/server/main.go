package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/okian/mmx/internal/adapters/http/api"
	"github.com/okian/mmx/internal/adapters/http/swagger"
	"github.com/okian/mmx/internal/adapters/ingest"
	app "github.com/okian/mmx/internal/app"
	"github.com/okian/mmx/internal/config"
	"github.com/okian/mmx/internal/domain/mmm"
	"github.com/okian/mmx/pkg/logger"
	"github.com/okian/mmx/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// Disable default Go metrics collection to avoid duplicate metrics
	// We collect our own custom system metrics instead
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Initialize logging
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	// An orchestrator keys off the exit status; a refused startup must not
	// look like a clean shutdown.
	if err := run(ctx); err != nil {
		logger.Get().Error(ctx, "server failed", logger.Error(err))
		stop()
		logger.Sync() //nolint:errcheck // best-effort flush
		os.Exit(1)
	}
	stop()
	logger.Sync() //nolint:errcheck // best-effort flush
}

// run wires the service and serves HTTP until ctx is cancelled. Any error
// it returns means the process must exit non-zero.
func run(ctx context.Context) error {
	log := logger.Get()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	kind, err := mmm.ParseKind(cfg.ModelKind)
	if err != nil {
		return fmt.Errorf("invalid model_kind: %w", err)
	}

	svc := app.New(
		app.WithLogger(log),
		app.WithModelKind(kind),
		app.WithAdstockDecay(cfg.AdstockDecay),
		app.WithArtifactPath(cfg.ArtifactPath),
		app.WithProcessedDataDir(cfg.ProcessedDataDir),
		app.WithSampler(cfg.BayesDraws, cfg.BayesWarmup, cfg.BayesChains, cfg.BayesSeed),
		app.WithIngestOptions(
			ingest.WithSpendPattern(cfg.SpendFilePattern),
			ingest.WithSalesFileName(cfg.SalesFileName),
			ingest.WithMinRows(cfg.MinTrainingRows),
			ingest.WithMinChannels(cfg.MinChannels),
		),
	)

	// A serving process without a model is useless; fail fast so the
	// operator trains one instead of discovering 503s later.
	if err := svc.LoadArtifact(ctx); err != nil {
		return fmt.Errorf("load model artifact from %s (run the train command first): %w", cfg.ArtifactPath, err)
	}
	if err := svc.StartServing(); err != nil {
		return fmt.Errorf("start serving: %w", err)
	}

	// Start system metrics updater
	go startSystemMetricsUpdater(ctx)

	// HTTP mux and routes.
	mux := http.NewServeMux()

	// Register API documentation under /api-docs
	swagger.Register(ctx, mux)

	// Register business API routes with the service dependency.
	apiServer := api.NewServer(svc, svc, api.WithMaxUploadBytes(cfg.MaxUploadBytes))
	apiServer.Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	// Start the HTTP server
	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr), logger.String("model_kind", string(kind)))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	// Wait for a shutdown signal or a server failure
	select {
	case err := <-serveErr:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}
	log.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	log.Info(ctx, "server stopped")
	return nil
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)

	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}
