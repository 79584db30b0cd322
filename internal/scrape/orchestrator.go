package scrape

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jobvago/scraper/internal/browser"
	"github.com/jobvago/scraper/internal/transport"
)

const progressLogEvery = 25

// SessionFactory opens a browser session for one site's discovery.
type SessionFactory func(ctx context.Context) (browser.Session, error)

// SiteOutcome is the per-site result recorded in the run summary.
type SiteOutcome struct {
	Records int
	Err     error
}

// Summary aggregates one run: per-site outcomes in attempt order, the
// total record count, and whether dispatch happened.
type Summary struct {
	RunID      string
	Sites      []string
	Outcomes   map[string]SiteOutcome
	Total      int
	Envelopes  int
	Dispatched bool
}

// Orchestrator drives the end-to-end run: pre-flight transport check,
// sequential per-site discovery with failure isolation, a single ordered
// dispatch of everything collected, and a final summary.
type Orchestrator struct {
	factory  *Factory
	client   transport.Client
	queue    string
	sessions SessionFactory
	metrics  *Metrics
	logger   *zap.Logger
}

// NewOrchestrator wires the orchestrator's collaborators. metrics may be nil.
func NewOrchestrator(
	factory *Factory,
	client transport.Client,
	queue string,
	sessions SessionFactory,
	metrics *Metrics,
	logger *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		factory:  factory,
		client:   client,
		queue:    queue,
		sessions: sessions,
		metrics:  metrics,
		logger:   logger.Named("orchestrator"),
	}
}

// Run executes one scrape run over siteIDs, or over every configured site
// when siteIDs is empty. A per-site failure is recorded in the summary and
// the run continues; a transport failure aborts with an error.
func (o *Orchestrator) Run(ctx context.Context, siteIDs []string) (Summary, error) {
	runID := uuid.NewString()
	logger := o.logger.With(zap.String("run_id", runID))

	// Pre-flight: prove the queue is reachable before any discovery work.
	sender, err := o.client.OpenSender(ctx, o.queue)
	if err != nil {
		return Summary{RunID: runID}, fmt.Errorf("transport pre-flight: %w", err)
	}
	defer func() {
		if cerr := sender.Close(); cerr != nil {
			logger.Warn("failed to close sender", zap.Error(cerr))
		}
	}()
	logger.Info("transport pre-flight passed", zap.String("queue", o.queue))

	if len(siteIDs) == 0 {
		siteIDs = o.factory.SiteIDs()
	}
	summary := Summary{
		RunID:    runID,
		Sites:    append([]string(nil), siteIDs...),
		Outcomes: make(map[string]SiteOutcome, len(siteIDs)),
	}

	var collected []JobRecord
	for _, siteID := range siteIDs {
		if ctx.Err() != nil {
			return summary, fmt.Errorf("run canceled: %w", ctx.Err())
		}
		logger.Info("starting site discovery", zap.String("site", siteID))
		records, err := o.runSite(ctx, siteID, logger)
		if err != nil {
			logger.Error("site discovery failed", zap.String("site", siteID), zap.Error(err))
			o.metrics.siteFailed(siteID)
			summary.Outcomes[siteID] = SiteOutcome{Err: err}
			continue
		}
		logger.Info("site discovery finished",
			zap.String("site", siteID),
			zap.Int("records", len(records)),
		)
		summary.Outcomes[siteID] = SiteOutcome{Records: len(records)}
		collected = append(collected, records...)
	}
	summary.Total = len(collected)

	if len(collected) == 0 {
		logger.Warn("no records collected from any site; skipping dispatch")
		o.logSummary(logger, summary)
		o.metrics.runCompleted()
		return summary, nil
	}

	batcher := NewBatcher(sender, logger)
	for _, record := range collected {
		if err := batcher.Add(ctx, record); err != nil {
			return summary, fmt.Errorf("dispatch: %w", err)
		}
	}
	if err := batcher.Flush(ctx); err != nil {
		return summary, fmt.Errorf("dispatch: %w", err)
	}
	records, envelopes := batcher.Stats()
	summary.Dispatched = true
	summary.Envelopes = envelopes
	o.metrics.dispatched(records, envelopes)
	o.metrics.runCompleted()

	o.logSummary(logger, summary)
	return summary, nil
}

func (o *Orchestrator) runSite(ctx context.Context, siteID string, logger *zap.Logger) ([]JobRecord, error) {
	strategy, err := o.factory.Resolve(siteID)
	if err != nil {
		return nil, err
	}
	session, err := o.sessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("open browser session: %w", err)
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			logger.Warn("failed to close browser session",
				zap.String("site", siteID), zap.Error(cerr))
		}
	}()

	var records []JobRecord
	err = strategy.Discover(ctx, session, func(record JobRecord) {
		records = append(records, record)
		o.metrics.recordDiscovered(siteID)
		if len(records)%progressLogEvery == 0 {
			logger.Info("discovery progress",
				zap.String("site", siteID),
				zap.Int("records", len(records)),
			)
		}
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (o *Orchestrator) logSummary(logger *zap.Logger, summary Summary) {
	for _, siteID := range summary.Sites {
		outcome := summary.Outcomes[siteID]
		if outcome.Err != nil {
			logger.Info("site summary",
				zap.String("site", siteID),
				zap.String("result", "error"),
				zap.Error(outcome.Err),
			)
			continue
		}
		logger.Info("site summary",
			zap.String("site", siteID),
			zap.String("result", "ok"),
			zap.Int("records", outcome.Records),
		)
	}
	logger.Info("run summary",
		zap.Int("total_records", summary.Total),
		zap.Int("envelopes", summary.Envelopes),
		zap.Bool("dispatched", summary.Dispatched),
	)
}
