package app

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/annuaire/internal/common"
	"github.com/ternarybob/annuaire/internal/interfaces"
	"github.com/ternarybob/annuaire/internal/services/browser"
	"github.com/ternarybob/annuaire/internal/services/enrichment"
	"github.com/ternarybob/annuaire/internal/services/scheduler"
	"github.com/ternarybob/annuaire/internal/services/scraper"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	Launcher         interfaces.BrowserLauncher
	Enricher         interfaces.CompanyEnricher
	Orchestrator     *scraper.Orchestrator
	SchedulerService *scheduler.Service
}

// New initializes the application with all dependencies
func New(config *common.Config, logger arbor.ILogger) (*App, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	app := &App{
		Config: config,
		Logger: logger,
	}
	app.initServices()

	logger.Debug().
		Bool("scheduled", config.Schedule != "").
		Msg("Application initialized")
	return app, nil
}

func (a *App) initServices() {
	a.Launcher = browser.NewChromeLauncher(a.Config.Browser, a.Logger)
	a.Enricher = enrichment.NewClient(a.Config.Enrichment, a.Logger)
	a.Orchestrator = scraper.NewOrchestrator(a.Config, a.Launcher, a.Enricher, a.Logger)
	a.SchedulerService = scheduler.NewService(a.Logger)
}

// Run performs one scrape, or keeps scraping on the configured schedule
// until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if a.Config.Schedule != "" {
		return a.SchedulerService.Run(ctx, a.Config.Schedule, a.RunOnce)
	}
	return a.RunOnce(ctx)
}

// RunOnce performs a single scrape and returns its fatal error, if any.
func (a *App) RunOnce(ctx context.Context) error {
	stats, err := a.Orchestrator.Run(ctx)
	if err != nil {
		return fmt.Errorf("scrape %s aborted after %d processed profiles: %w", stats.RunID, stats.Processed, err)
	}
	return nil
}

// Close stops background services
func (a *App) Close() error {
	if a.SchedulerService != nil {
		a.SchedulerService.Stop()
	}
	a.Logger.Info().Msg("Application closed")
	return nil
}
