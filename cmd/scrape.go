package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jobvago/scraper/internal/transport"
)

func newScrapeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scrape [site...]",
		Short: "Run one discovery-and-dispatch pass",
		Long: `Runs discovery for the named sites, or for every configured site when
none are given, and dispatches the collected records to the queue. The
command exits zero when the per-site loop completes, even if individual
sites recorded errors in the summary.`,
		Args: cobra.ArbitraryArgs,
		RunE: runScrape,
	}
}

func runScrape(cmd *cobra.Command, args []string) error {
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

	orchestrator, err := buildOrchestrator(cfg, client, nil, logger)
	if err != nil {
		return err
	}

	summary, err := orchestrator.Run(ctx, args)
	if err != nil {
		return fmt.Errorf("scrape run: %w", err)
	}
	logger.Info("scrape command finished",
		zap.String("run_id", summary.RunID),
		zap.Int("total_records", summary.Total),
		zap.Bool("dispatched", summary.Dispatched),
	)
	return nil
}
