package enrichment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"github.com/ternarybob/annuaire/internal/models"
	"github.com/ternarybob/arbor"
)

const (
	DefaultSireneBaseURL = "https://api.insee.fr/api-sirene/3.11"

	sireneKeyHeader = "X-INSEE-Api-Key-Integration"

	siretFields = "siren, siret, dateCreationEtablissement, activitePrincipaleUniteLegale, codePostalEtablissement"
	sirenFields = "siren, dateCreationUniteLegale, activitePrincipaleUniteLegale"
)

// SireneClient queries the INSEE Sirene registry by identifier.
type SireneClient struct {
	client  *resty.Client
	apiKey  string
	limiter *rate.Limiter
	logger  arbor.ILogger
}

func NewSireneClient(baseURL, apiKey string, timeout time.Duration, limiter *rate.Limiter, logger arbor.ILogger) *SireneClient {
	if baseURL == "" {
		baseURL = DefaultSireneBaseURL
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("accept", "application/json")

	return &SireneClient{
		client:  client,
		apiKey:  apiKey,
		limiter: limiter,
		logger:  logger,
	}
}

// Lookup dispatches on the digit count of companyID: 14 digits query the
// establishment (SIRET), 9 digits the legal entity (SIREN). Any failure is
// reported through the Error marker of the returned bag.
func (c *SireneClient) Lookup(ctx context.Context, companyID string) models.CompanyEnrichment {
	digits := onlyDigits(companyID)
	switch len(digits) {
	case 14:
		return c.lookupSiret(ctx, digits)
	case 9:
		return c.lookupSiren(ctx, digits)
	default:
		return models.CompanyError("Invalid company ID format")
	}
}

func (c *SireneClient) lookupSiret(ctx context.Context, siret string) models.CompanyEnrichment {
	body, errMsg := c.get(ctx, "/siret/"+siret, siretFields)
	if errMsg != "" {
		return models.CompanyError(errMsg)
	}

	etab := gjson.GetBytes(body, "etablissement")
	return models.CompanyEnrichment{
		Siren:        etab.Get("siren").String(),
		Siret:        etab.Get("siret").String(),
		DateCreation: etab.Get("dateCreationEtablissement").String(),
		NafApeCode:   etab.Get("uniteLegale.activitePrincipaleUniteLegale").String(),
	}
}

func (c *SireneClient) lookupSiren(ctx context.Context, siren string) models.CompanyEnrichment {
	body, errMsg := c.get(ctx, "/siren/"+siren, sirenFields)
	if errMsg != "" {
		return models.CompanyError(errMsg)
	}

	unit := gjson.GetBytes(body, "uniteLegale")

	// periodesUniteLegale is a list in the current API, a single object in
	// older payloads.
	var naf string
	periods := unit.Get("periodesUniteLegale")
	switch {
	case periods.IsArray():
		naf = periods.Get("0.activitePrincipaleUniteLegale").String()
	case periods.IsObject():
		naf = periods.Get("activitePrincipaleUniteLegale").String()
	}

	return models.CompanyEnrichment{
		Siren:        unit.Get("siren").String(),
		DateCreation: unit.Get("dateCreationUniteLegale").String(),
		NafApeCode:   naf,
	}
}

// get returns the JSON body or a human-readable failure message.
func (c *SireneClient) get(ctx context.Context, path, fields string) ([]byte, string) {
	if err := wait(ctx, c.limiter); err != nil {
		return nil, fmt.Sprintf("Request failed: %v", err)
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader(sireneKeyHeader, c.apiKey).
		SetQueryParam("champs", fields).
		Get(path)
	if err != nil {
		return nil, fmt.Sprintf("Request failed: %v", err)
	}
	if !resp.IsSuccess() {
		c.logger.Debug().
			Str("path", path).
			Int("status", resp.StatusCode()).
			Msg("Sirene returned non-success status")
		return nil, fmt.Sprintf("Request failed: %s", resp.Status())
	}

	body := resp.Body()
	if !gjson.ValidBytes(body) {
		return nil, "Invalid JSON response"
	}
	return body, ""
}

func onlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
