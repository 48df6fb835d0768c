package scraper

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/annuaire/internal/common"
	"github.com/ternarybob/annuaire/internal/interfaces"
	"github.com/ternarybob/annuaire/internal/models"
	"github.com/ternarybob/annuaire/internal/services/output"
	"github.com/ternarybob/annuaire/internal/services/parser"
	"github.com/ternarybob/annuaire/internal/services/resume"
)

// Processor extracts, enriches and persists one profile page.
type Processor struct {
	browser  interfaces.Browser
	enricher interfaces.CompanyEnricher
	store    *resume.Store
	writer   *output.Writer
	logger   arbor.ILogger
}

func NewProcessor(browser interfaces.Browser, enricher interfaces.CompanyEnricher, store *resume.Store, writer *output.Writer, logger arbor.ILogger) *Processor {
	return &Processor{
		browser:  browser,
		enricher: enricher,
		store:    store,
		writer:   writer,
		logger:   logger,
	}
}

// Process visits href in the focused tab. A panic anywhere in the visit is
// reported as OutcomeFailed.
func (p *Processor) Process(ctx context.Context, href string) (result models.ProfileResult) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error().
				Str("url", href).
				Str("panic", fmt.Sprintf("%v", r)).
				Str("stack", common.CurrentStack()).
				Msg("Unhandled error processing profile")
			result = models.ProfileResult{Outcome: models.OutcomeFailed, Reason: fmt.Sprintf("panic: %v", r)}
		}
	}()

	if !p.browser.Navigate(ctx, href) {
		p.logger.Warn().Str("url", href).Msg("Navigation failed")
		return failed("navigation failed")
	}

	p.browser.WaitWhileVisible(ctx, LoadingLocator, loadingTimeout)

	if p.browser.ElementExists(ctx, NoDataLocator, existsTimeout) {
		p.logger.Info().Str("url", href).Msg("No data found for profile")
		return skipped("no information published")
	}

	name := p.browser.ReadText(ctx, NameLocator, headerTimeout)
	rpps := parser.ValueAfterColon(p.browser.ReadText(ctx, RPPSLocator, headerTimeout))
	if p.store.Contains(rpps) {
		p.logger.Info().Str("rpps", rpps).Msg("RPPS already processed (detected post-load), skipping")
		return skipped("already processed")
	}

	phone := p.browser.ReadText(ctx, PhoneLocator, fieldTimeout)
	fax := p.browser.ReadText(ctx, FaxLocator, fieldTimeout)
	finess := p.browser.ReadText(ctx, FinessLocator, fieldTimeout)
	sirenText := p.browser.ReadText(ctx, SirenLocator, fieldTimeout)
	address := p.browser.ReadText(ctx, AddressLocator, fieldTimeout)
	secondaryAddress := p.browser.ReadText(ctx, SecondaryAddressLocator, fieldTimeout)
	region := p.browser.ReadText(ctx, RegionLocator, fieldTimeout)
	specialty := p.browser.ReadText(ctx, SpecialtyLocator, fieldTimeout)

	// Reads return "" once ctx is done; nothing read after that is trusted.
	if ctx.Err() != nil {
		return p.interrupted(href)
	}

	postalCode, city, _ := parser.ExtractPostalCodeAndCity(secondaryAddress)

	company := p.enricher.FetchCompanyData(ctx, name, sirenText)
	if !company.Available() {
		company = models.CompanyEnrichment{}
	}
	if ctx.Err() != nil {
		return p.interrupted(href)
	}

	profile := models.ScrapedProfile{
		Name:               name,
		RPPSNumber:         rpps,
		PhoneNumber:        phone,
		FaxNumber:          fax,
		FinessID:           finess,
		Address:            address,
		PostalCode:         postalCode,
		City:               city,
		Region:             region,
		Specialty:          specialty,
		CombinedSirenSiret: company.Combined(),
		DateCreation:       company.DateCreation,
		NafApeCode:         company.NafApeCode,
		SourceURL:          href,
	}

	if profile.RPPSNumber == "" {
		p.logger.Warn().Str("url", href).Msg("RPPS number missing, skipping persistence")
		return failed("missing RPPS number")
	}

	p.writer.Persist(profile)
	p.store.MarkDone(rpps)

	p.logger.Info().Str("rpps", rpps).Str("name", name).Msg("Processed profile")
	return models.ProfileResult{Outcome: models.OutcomePersisted, RPPSNumber: rpps}
}

// interrupted abandons a visit cut short by cancellation. The profile is not
// persisted or marked done, so the next run visits it again.
func (p *Processor) interrupted(href string) models.ProfileResult {
	p.logger.Info().Str("url", href).Msg("Profile visit interrupted, not persisted")
	return failed("interrupted")
}

func failed(reason string) models.ProfileResult {
	return models.ProfileResult{Outcome: models.OutcomeFailed, Reason: reason}
}

func skipped(reason string) models.ProfileResult {
	return models.ProfileResult{Outcome: models.OutcomeSkipped, Reason: reason}
}
