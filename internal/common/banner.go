package common

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/banner"
)

// PrintBanner displays the application banner and the resolved run settings
func PrintBanner(config *Config, logger arbor.ILogger) {
	banner.PrintSimple("Annuaire Scraper", CurrentBuild().Version)

	logger.Info().
		Str("keyword", config.Scraper.Keyword).
		Str("location", config.Scraper.Location).
		Bool("headless", config.Browser.Headless).
		Int("profile_retry", config.Scraper.ProfileRetry).
		Bool("sirene_configured", config.Enrichment.SirenAPIKey != "").
		Bool("pappers_configured", config.Enrichment.PapersAPIKey != "").
		Msg("Scraper configuration")
}
