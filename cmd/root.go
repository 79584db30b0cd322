// Package cmd defines and implements the CLI commands for the jobvago
// scraper executable.
package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jobvago/scraper/internal/browser"
	"github.com/jobvago/scraper/internal/config"
	"github.com/jobvago/scraper/internal/logging"
	"github.com/jobvago/scraper/internal/scrape"
	"github.com/jobvago/scraper/internal/sites"
	"github.com/jobvago/scraper/internal/transport"
)

var cfgFile string

// Execute is the main entry point. It exits non-zero on any error that
// reaches the top, including pre-flight and configuration failures.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobvago",
		Short: "Discovers job postings across sites and relays them to a queue.",
		Long: `jobvago drives headless-browser discovery of job postings across the
configured sites, normalizes them into job records, and dispatches them
as batched JSON messages to a Pub/Sub queue for downstream consumption.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (defaults to environment-only configuration)")

	cmd.AddCommand(newScrapeCmd(), newScheduleCmd())
	return cmd
}

// setup loads configuration and builds the run-scoped logger.
func setup() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return config.Config{}, nil, err
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger, nil
}

func buildOrchestrator(
	cfg config.Config,
	client transport.Client,
	metrics *scrape.Metrics,
	logger *zap.Logger,
) (*scrape.Orchestrator, error) {
	descriptors := sites.Descriptors()
	for i, desc := range descriptors {
		if limit, ok := cfg.Scrape.PageLimits[desc.SiteID]; ok && limit > 0 {
			descriptors[i].PageLimit = limit
		}
		params := map[string]string{
			"nav_timeout_seconds": strconv.Itoa(cfg.Scrape.NavTimeoutSeconds),
			"page_delay_ms":       strconv.Itoa(cfg.Scrape.PageDelayMs),
		}
		for name, value := range desc.Params {
			params[name] = value
		}
		descriptors[i].Params = params
	}

	registry, err := scrape.NewRegistry(descriptors...)
	if err != nil {
		return nil, fmt.Errorf("build site registry: %w", err)
	}
	factory := scrape.NewFactory(registry, logger)

	sessionFactory := func(_ context.Context) (browser.Session, error) {
		return browser.NewChromedpSession(browser.ChromedpConfig{
			Headless:  cfg.Browser.Headless,
			UserAgent: cfg.Browser.UserAgent,
		})
	}

	return scrape.NewOrchestrator(factory, client, cfg.PubSub.Queue, sessionFactory, metrics, logger), nil
}
