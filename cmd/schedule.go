package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jobvago/scraper/internal/scrape"
	"github.com/jobvago/scraper/internal/transport"
)

func newScheduleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "Run the pipeline on a recurring schedule",
		Long: `Runs a discovery-and-dispatch pass for all configured sites immediately
and then every schedule.interval_hours, exposing /healthz and /metrics
over HTTP until interrupted.`,
		Args: cobra.NoArgs,
		RunE: runSchedule,
	}
}

func runSchedule(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := transport.ConnectPubSub(ctx, transport.PubSubConfig{
		ProjectID:        cfg.PubSub.ProjectID,
		EnvelopeMaxBytes: cfg.PubSub.EnvelopeMaxBytes,
	})
	if err != nil {
		return err
	}
	defer func() {
		if cerr := client.Close(); cerr != nil {
			logger.Warn("failed to close transport client", zap.Error(cerr))
		}
	}()

	metrics := scrape.NewMetrics(prometheus.DefaultRegisterer)
	orchestrator, err := buildOrchestrator(cfg, client, metrics, logger)
	if err != nil {
		return err
	}

	var runMu sync.Mutex
	runOnce := func() {
		if !runMu.TryLock() {
			logger.Warn("previous run still in progress; skipping this tick")
			return
		}
		defer runMu.Unlock()
		if _, err := orchestrator.Run(ctx, nil); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("scheduled run failed", zap.Error(err))
		}
	}

	scheduler := cron.New()
	spec := fmt.Sprintf("@every %dh", cfg.Schedule.IntervalHours)
	if _, err := scheduler.AddFunc(spec, runOnce); err != nil {
		return fmt.Errorf("register cron job: %w", err)
	}
	scheduler.Start()
	defer scheduler.Stop()
	logger.Info("scheduler started", zap.String("spec", spec))

	// Run immediately so the queue is populated without waiting for the
	// first tick.
	go runOnce()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Schedule.Port),
		Handler:           newScheduleRouter(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Schedule.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	logger.Info("shutdown complete")
	return nil
}

func newScheduleRouter() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"status":  "ok",
			"service": "jobvago-scraper",
		})
	})
	r.Handle("/metrics", promhttp.Handler())
	return r
}
