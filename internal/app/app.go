// Package app wires the pipeline together: collect candidates, score and
// filter them against the ledger, pull article content, summarize, format
// and publish to Telegram, then mark everything published.
package app

import (
	"context"
	"fmt"
	"time"

	"aidigest/internal/config"
	"aidigest/internal/digest"
	"aidigest/internal/extract"
	"aidigest/internal/fetch"
	"aidigest/internal/ledger"
	"aidigest/internal/logger"
	"aidigest/internal/metrics"
	"aidigest/internal/scheduler"
	"aidigest/internal/score"
	"aidigest/internal/sources"
	"aidigest/internal/summary"
	"aidigest/internal/telegram"
)

// App holds the long-lived pipeline components for one process.
type App struct {
	cfg        *config.Config
	ledger     ledger.Ledger
	selector   *digest.Selector
	extractor  *extract.Extractor
	summarizer *summary.Summarizer
	publisher  *telegram.Client
}

// New builds the pipeline from configuration. The caller owns Close.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	led, err := ledger.Open(cfg.LedgerDriver, cfg.LedgerDSN)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}

	client := fetch.NewClient(fetch.Policy{
		Timeout:     cfg.FetchTimeout,
		MaxAttempts: cfg.RetryAttempts,
		Backoff:     cfg.RetryDelay,
	})

	scorer, err := score.New(cfg.Scoring)
	if err != nil {
		led.Close()
		return nil, fmt.Errorf("build scorer: %w", err)
	}

	extractor := sources.NewExtractor(client, cfg.Sources, cfg.FetchConcurrency, cfg.SourceDelay)

	summarizer, err := summary.New(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.SummaryMaxWords, cfg.MaxAIRequests)
	if err != nil {
		led.Close()
		return nil, fmt.Errorf("build summarizer: %w", err)
	}

	return &App{
		cfg:        cfg,
		ledger:     led,
		selector:   digest.NewSelector(extractor, scorer, led, cfg.Sources),
		extractor:  extract.New(client, cfg.SourceDelay),
		summarizer: summarizer,
		publisher:  telegram.NewClient(cfg.TelegramToken, cfg.TelegramChatID),
	}, nil
}

func (a *App) Close() {
	a.summarizer.Close()
	if err := a.ledger.Close(); err != nil {
		logger.Error("close ledger", "error", err)
	}
}

// Run executes once or on the cron schedule, depending on configuration.
// In scheduled mode it blocks until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if a.cfg.RunOnce {
		return a.RunDigest(ctx)
	}

	sched, err := scheduler.New(a.cfg.CronSpec, func() {
		if err := a.RunDigest(ctx); err != nil {
			logger.Error("scheduled digest run failed", "error", err)
		}
	})
	if err != nil {
		return err
	}

	sched.Start()
	<-ctx.Done()
	sched.Stop()
	return nil
}

// RunDigest performs one full pipeline run.
func (a *App) RunDigest(ctx context.Context) error {
	started := time.Now()
	logger.Info("digest run started", "top_n", a.cfg.TopN, "dedup_mode", a.cfg.DedupMode)

	err := a.runDigest(ctx)
	metrics.Global.RecordRunDuration(time.Since(started))
	if err != nil {
		metrics.Global.SetError(err.Error())
		return err
	}

	metrics.Global.SetLastRun()
	logger.Info("digest run finished", "duration", time.Since(started).Round(time.Millisecond))
	return nil
}

func (a *App) runDigest(ctx context.Context) error {
	d, err := a.selector.BuildDigest(ctx, a.cfg.TopN, a.cfg.DedupMode)
	if err != nil {
		return fmt.Errorf("build digest: %w", err)
	}

	metrics.Global.AddCandidatesCollected(d.CandidatesCollected)
	metrics.Global.AddDuplicatesFiltered(d.DuplicatesFiltered)
	metrics.Global.AddSourcesFailed(len(d.SourceFailures))
	for name, ferr := range d.SourceFailures {
		logger.Warn("source failed this run", "source", name, "error", ferr)
	}

	if len(d.Articles) == 0 {
		logger.Info("no fresh articles, skipping publish")
		return nil
	}

	summaries := a.summarize(ctx, d)

	message := telegram.FormatDigest(d, summaries)
	if err := a.publisher.SendMessage(ctx, message); err != nil {
		return fmt.Errorf("publish digest: %w", err)
	}
	metrics.Global.IncrementDigestsPublished()

	if err := a.selector.MarkPublished(ctx, d); err != nil {
		// The message is out; an unpublished mark means potential repeats
		// next run, which beats losing the digest.
		logger.Error("mark published failed", "error", err)
	}

	if stats, err := a.ledger.Stats(ctx, 7*24*time.Hour); err == nil {
		logger.Info("ledger weekly stats",
			"seen", stats.Seen, "published", stats.Published,
			"mean_score", fmt.Sprintf("%.1f", stats.MeanScore))
	}
	return nil
}

// summarize pulls article content for the digest entries and condenses each
// one. Extraction and summarization failures degrade per article, never
// aborting the run.
func (a *App) summarize(ctx context.Context, d *digest.Digest) map[string]summary.Result {
	urls := make([]string, len(d.Articles))
	for i, art := range d.Articles {
		urls[i] = art.URL
	}
	articles := a.extractor.ExtractAll(ctx, urls, a.cfg.ExtractLimit)

	summaries := make(map[string]summary.Result, len(d.Articles))
	for _, art := range d.Articles {
		content := ""
		if full, ok := articles[art.URL]; ok {
			content = full.Content
		}

		res := a.summarizer.Summarize(ctx, art.Title, content)
		metrics.Global.IncrementSummaries(res.FromFallback)
		if res.FromFallback {
			logger.Debug("summary fell back", "url", art.URL, "reason", res.Reason)
		}
		summaries[art.URL] = res
	}
	return summaries
}
