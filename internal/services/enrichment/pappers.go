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

const DefaultPappersBaseURL = "https://api.pappers.fr"

// The search endpoint is fronted by the public web app; requests carry the
// same headers the site sends.
var pappersHeaders = map[string]string{
	"accept":             "application/json, text/plain, */*",
	"accept-language":    "en-US,en;q=0.9",
	"origin":             "https://www.pappers.fr",
	"priority":           "u=1, i",
	"referer":            "https://www.pappers.fr/",
	"sec-ch-ua":          `"Chromium";v="140", "Not=A?Brand";v="24", "Google Chrome";v="140"`,
	"sec-ch-ua-mobile":   "?0",
	"sec-ch-ua-platform": `"Windows"`,
	"sec-fetch-dest":     "empty",
	"sec-fetch-mode":     "cors",
	"sec-fetch-site":     "same-site",
	"user-agent":         "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/140.0.0.0 Safari/537.36",
}

// PappersClient performs free-text company searches.
type PappersClient struct {
	client  *resty.Client
	apiKey  string
	limiter *rate.Limiter
	logger  arbor.ILogger
}

func NewPappersClient(baseURL, apiKey string, timeout time.Duration, limiter *rate.Limiter, logger arbor.ILogger) *PappersClient {
	if baseURL == "" {
		baseURL = DefaultPappersBaseURL
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeaders(pappersHeaders)

	return &PappersClient{
		client:  client,
		apiKey:  apiKey,
		limiter: limiter,
		logger:  logger,
	}
}

// Search looks name up and maps the first result. No result or a non-success
// status yields an empty bag; transport and decoding failures are returned.
func (c *PappersClient) Search(ctx context.Context, name string) (models.CompanyEnrichment, error) {
	if err := wait(ctx, c.limiter); err != nil {
		return models.CompanyEnrichment{}, fmt.Errorf("rate limiter: %w", err)
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":              name,
			"api_token":      c.apiKey,
			"precision":      "standard",
			"bases":          "entreprises,dirigeants,publications",
			"page":           "1",
			"par_page":       "20",
			"case_sensitive": "false",
		}).
		Get("/v2/recherche")
	if err != nil {
		return models.CompanyEnrichment{}, fmt.Errorf("pappers request failed: %w", err)
	}

	c.logger.Debug().
		Str("query", name).
		Int("status", resp.StatusCode()).
		Msg("Pappers search completed")

	if !resp.IsSuccess() {
		return models.CompanyEnrichment{}, nil
	}
	body := resp.Body()
	if !gjson.ValidBytes(body) {
		return models.CompanyEnrichment{}, fmt.Errorf("pappers returned invalid JSON")
	}

	first := gjson.GetBytes(body, "resultats.0")
	if !first.Exists() {
		return models.CompanyEnrichment{}, nil
	}

	return models.CompanyEnrichment{
		Siren:        first.Get("siren").String(),
		Siret:        first.Get("siege.siret").String(),
		DateCreation: first.Get("date_creation").String(),
		NafApeCode:   first.Get("code_naf").String(),
	}, nil
}
