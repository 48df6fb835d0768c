package enrichment

import (
	"context"
	"time"

	"github.com/ternarybob/annuaire/internal/common"
	"github.com/ternarybob/annuaire/internal/models"
	"github.com/ternarybob/arbor"
)

// Client picks the registry lookup for a profile: Sirene when the page shows a
// usable identifier and a Sirene key is configured, Pappers by name otherwise.
// It never returns an error; failures are logged and yield an empty bag.
type Client struct {
	sirene *SireneClient
	papers *PappersClient
	logger arbor.ILogger
}

// NewClient builds the lookups from configuration. A lookup whose key is
// empty is left unset and never called.
func NewClient(config common.EnrichmentConfig, logger arbor.ILogger) *Client {
	limiter := NewLimiter(config.RateLimit)
	timeout := config.RequestTimeoutDuration()

	c := &Client{logger: logger}
	if config.SirenAPIKey != "" {
		c.sirene = NewSireneClient(config.SireneBaseURL, config.SirenAPIKey, timeout, limiter, logger)
	}
	if config.PapersAPIKey != "" {
		c.papers = NewPappersClient(config.PappersBaseURL, config.PapersAPIKey, timeout, limiter, logger)
	}
	return c
}

// NormalizeSiren keeps the first nine digits of raw, or returns "" when it
// carries fewer than nine.
func NormalizeSiren(raw string) string {
	digits := onlyDigits(raw)
	if len(digits) < 9 {
		return ""
	}
	return digits[:9]
}

// FetchCompanyData returns the enrichment for a professional. The result is
// either empty or carries data; error markers are logged and dropped here.
func (c *Client) FetchCompanyData(ctx context.Context, name, siren string) models.CompanyEnrichment {
	start := time.Now()
	normalized := NormalizeSiren(siren)

	if normalized != "" && c.sirene != nil {
		// A SIRET displayed on the page selects the establishment query.
		id := normalized
		if digits := onlyDigits(siren); len(digits) == 14 {
			id = digits
		}

		result := c.sirene.Lookup(ctx, id)
		if result.Error != "" {
			c.logger.Error().
				Str("siren", normalized).
				Str("error", result.Error).
				Msg("Error fetching company data")
			return models.CompanyEnrichment{}
		}
		c.logger.Debug().
			Str("siren", normalized).
			Str("duration", time.Since(start).String()).
			Msg("Sirene lookup completed")
		return result
	}

	if c.papers == nil {
		if normalized != "" {
			c.logger.Warn().Str("siren", normalized).Msg("SIREN provided but no Sirene or Pappers key configured, skipping enrichment")
		} else {
			c.logger.Warn().Str("name", name).Msg("No valid SIREN and PAPERS_API_KEY not set, skipping enrichment")
		}
		return models.CompanyEnrichment{}
	}
	if name == "" {
		return models.CompanyEnrichment{}
	}

	result, err := c.papers.Search(ctx, name)
	if err != nil {
		c.logger.Error().Err(err).Str("name", name).Msg("Error fetching company data")
		return models.CompanyEnrichment{}
	}
	return result
}
