package scraper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/annuaire/internal/common"
	"github.com/ternarybob/annuaire/internal/interfaces"
	"github.com/ternarybob/annuaire/internal/models"
	"github.com/ternarybob/annuaire/internal/services/output"
	"github.com/ternarybob/annuaire/internal/services/resume"
)

var (
	// ErrSessionUnavailable means no browser session could be started.
	ErrSessionUnavailable = errors.New("browser session unavailable")
	// ErrInitialNavigation means the directory home page could not be loaded.
	ErrInitialNavigation = errors.New("initial navigation failed")
	// ErrNoWindows means the browser lost every window mid-run.
	ErrNoWindows = errors.New("no browser windows remaining")
	// ErrResumeLoad means the resume file exists but could not be read.
	ErrResumeLoad = errors.New("failed to load resume file")
)

var errProfileFailed = errors.New("profile attempt failed")

// Orchestrator runs one scrape: search, pagination and per-profile retry.
type Orchestrator struct {
	config   *common.Config
	launcher interfaces.BrowserLauncher
	enricher interfaces.CompanyEnricher
	logger   arbor.ILogger
}

func NewOrchestrator(config *common.Config, launcher interfaces.BrowserLauncher, enricher interfaces.CompanyEnricher, logger arbor.ILogger) *Orchestrator {
	return &Orchestrator{
		config:   config,
		launcher: launcher,
		enricher: enricher,
		logger:   logger,
	}
}

// run holds the state of one Run call.
type run struct {
	config    *common.Config
	logger    arbor.ILogger
	browser   interfaces.Browser
	processor *Processor
	store     *resume.Store
	stats     models.RunStats
	retry     common.RetryPolicy
	stopped   bool
}

// Run performs a full scrape. Fatal conditions are returned as one of the
// Err* sentinels; the statistics gathered so far are returned in every case.
// Cancelling ctx stops the run between profiles and pages and is not an
// error. Whenever a session was started it is torn down and the pretty JSON
// document is rebuilt before returning.
func (o *Orchestrator) Run(ctx context.Context) (models.RunStats, error) {
	stats := models.RunStats{
		RunID:     common.NewRunID(),
		StartedAt: time.Now(),
	}
	logger := o.logger.WithCorrelationId(stats.RunID)

	scraper := o.config.Scraper
	paths := output.NewRunPaths(o.config.Storage.OutputDir, o.config.Storage.DoneDir, scraper.Keyword, scraper.Location)
	if err := paths.EnsureDirs(); err != nil {
		return stats, err
	}

	store := resume.NewStore(paths.Done, logger)
	if err := store.Load(); err != nil {
		return stats, fmt.Errorf("%w: %w", ErrResumeLoad, err)
	}

	logger.Info().
		Str("keyword", scraper.Keyword).
		Str("location", scraper.Location).
		Int("already_done", store.Len()).
		Msg("Starting scrape")

	writer := output.NewWriter(paths, logger)

	browser, err := o.launcher.Launch(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize browser, aborting scrape")
		return stats, fmt.Errorf("%w: %w", ErrSessionUnavailable, err)
	}

	r := &run{
		config:    o.config,
		logger:    logger,
		browser:   browser,
		processor: NewProcessor(browser, o.enricher, store, writer, logger),
		store:     store,
		stats:     stats,
		retry:     common.NewRetryPolicy(scraper.ProfileRetry, scraper.RetryDelayDuration()),
	}

	runErr := r.scrape(ctx)

	browser.Quit()
	writer.Finalize()

	r.stats.FinishedAt = time.Now()
	logger.Info().
		Int("processed", r.stats.Processed).
		Int("skipped", r.stats.Skipped).
		Int("failed", r.stats.Failed).
		Int("pages", r.stats.Pages).
		Dur("duration", r.stats.Duration()).
		Msg("Scrape finished, resources cleaned up")

	return r.stats, runErr
}

func (r *run) scrape(ctx context.Context) error {
	if !r.browser.Navigate(ctx, r.config.Scraper.BaseURL) {
		r.logger.Error().Str("url", r.config.Scraper.BaseURL).Msg("Initial navigation failed, aborting")
		return ErrInitialNavigation
	}
	r.logger.Info().Msg("Browser at start URL")

	r.submitSearch(ctx)

	maxPages := r.config.Scraper.MaxPages
	for page := 1; ; page++ {
		if r.interrupted(ctx) {
			return nil
		}

		links := r.browser.FindLinks(ctx, ResultLinksLocator)
		if len(links) == 0 {
			r.logger.Info().Int("page", page).Msg("No results found on page, ending pagination")
			return nil
		}
		r.stats.Pages++
		r.logger.Info().Int("page", page).Int("links", len(links)).Msg("Found profile links")

		if !r.browser.OpenTab(ctx) {
			r.logger.Error().Int("page", page).Msg("Failed to open tab for profiles, ending pagination")
			return nil
		}

		r.processLinks(ctx, links)

		r.browser.CloseTab()
		if !r.browser.SwitchToMain() {
			r.logger.Warn().Msg("Error switching back to results tab")
			if r.browser.WindowCount(ctx) == 0 {
				r.logger.Error().Msg("No browser windows remaining, aborting")
				return ErrNoWindows
			}
		}

		if r.interrupted(ctx) {
			return nil
		}
		if maxPages > 0 && page >= maxPages {
			r.logger.Info().Int("max_pages", maxPages).Msg("Page limit reached")
			return nil
		}

		if !r.browser.ElementExists(ctx, NextPageLocator, existsTimeout) {
			r.logger.Info().Msg("No more pages to process")
			return nil
		}
		r.logger.Info().Int("page", page).Msg("Navigating to next page")
		r.browser.ClickViaScript(ctx, NextPageLocator)
		r.browser.WaitWhileVisible(ctx, LoadingLocator, loadingTimeout)
	}
}

// submitSearch fills and submits the search form. Failures are logged only;
// an unsuccessful search shows up as an empty result page.
func (r *run) submitSearch(ctx context.Context) {
	if !r.browser.ClickViaScript(ctx, SearchSubmitLocator) {
		r.logger.Warn().Msg("Initial search focus click failed")
	}
	if !r.browser.TypeText(ctx, SearchKeywordLocator, r.config.Scraper.Keyword) {
		r.logger.Warn().Msg("Failed to enter search keyword")
	}
	if !r.browser.TypeText(ctx, SearchLocationLocator, r.config.Scraper.Location) {
		r.logger.Warn().Msg("Failed to enter search location")
	}
	if !r.browser.ClickViaScript(ctx, SearchSubmitLocator) {
		r.logger.Warn().Msg("Search submit click failed")
	}
	r.logger.Info().Msg("Search submitted")

	r.browser.WaitWhileVisible(ctx, LoadingLocator, loadingTimeout)
	r.logger.Info().Msg("Search results loaded")
}

func (r *run) processLinks(ctx context.Context, links []interfaces.Link) {
	for _, link := range links {
		if r.interrupted(ctx) {
			return
		}

		if r.store.MatchesAny(link.Href) || r.store.MatchesAny(link.Text) {
			r.stats.Skipped++
			r.logger.Info().Str("url", link.Href).Msg("Skipping, link indicates already processed")
			continue
		}

		result := r.processWithRetry(ctx, link.Href)
		switch result.Outcome {
		case models.OutcomePersisted:
			r.stats.Processed++
		case models.OutcomeSkipped:
			r.stats.Skipped++
		default:
			// A visit cut short by an interrupt is not a failure.
			if ctx.Err() == nil {
				r.stats.Failed++
			}
		}
	}
}

// processWithRetry retries failed visits; persisted and skipped outcomes are
// final.
func (r *run) processWithRetry(ctx context.Context, href string) models.ProfileResult {
	result := failed("not attempted")
	_ = r.retry.Do(ctx, nil, func(ctx context.Context, attempt int) error {
		result = r.processor.Process(ctx, href)
		if result.Outcome != models.OutcomeFailed {
			return nil
		}
		r.logger.Warn().
			Str("url", href).
			Int("attempt", attempt).
			Str("reason", result.Reason).
			Msg("Profile attempt failed")
		return errProfileFailed
	})
	return result
}

func (r *run) interrupted(ctx context.Context) bool {
	if ctx.Err() == nil {
		return false
	}
	if !r.stopped {
		r.stopped = true
		r.logger.Warn().Msg("Scrape interrupted, partial results preserved")
	}
	return true
}
