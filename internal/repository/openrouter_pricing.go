package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/imroc/req/v3"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"github.com/johnbean393/openrouter-inference-stats/internal/config"
	"github.com/johnbean393/openrouter-inference-stats/internal/pkg/httpclient"
	"github.com/johnbean393/openrouter-inference-stats/internal/service"
)

// OpenRouterPricingClient fetches the public model catalog. Prices arrive as
// per-token USD strings and are kept as decimals end to end.
type OpenRouterPricingClient struct {
	client     *req.Client
	apiBaseURL string
}

var _ service.PricingSource = (*OpenRouterPricingClient)(nil)

func NewOpenRouterPricingClient(cfg *config.Config) *OpenRouterPricingClient {
	return &OpenRouterPricingClient{
		client: httpclient.Get(httpclient.Options{
			Timeout:         cfg.Scrape.RequestTimeout,
			UserAgent:       cfg.Scrape.UserAgent,
			FollowRedirects: true,
		}),
		apiBaseURL: cfg.Scrape.APIBaseURL,
	}
}

func (c *OpenRouterPricingClient) FetchPricing(ctx context.Context) ([]service.ModelPricing, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		Get(c.apiBaseURL + "/models")
	if err != nil {
		return nil, fmt.Errorf("fetch model catalog: %w", err)
	}
	if resp.IsErrorState() {
		return nil, fmt.Errorf("fetch model catalog: unexpected status %s", resp.Status)
	}

	body := resp.Bytes()
	data := gjson.GetBytes(body, "data")
	if !data.Exists() || !data.IsArray() {
		return nil, fmt.Errorf("fetch model catalog: response has no data array")
	}

	var models []service.ModelPricing
	data.ForEach(func(_, item gjson.Result) bool {
		m := service.ModelPricing{
			ID:              item.Get("id").String(),
			CanonicalSlug:   item.Get("canonical_slug").String(),
			Name:            item.Get("name").String(),
			PromptPrice:     parsePrice(item.Get("pricing.prompt")),
			CompletionPrice: parsePrice(item.Get("pricing.completion")),
			ReasoningPrice:  parsePrice(item.Get("pricing.internal_reasoning")),
			CacheReadPrice:  parsePrice(item.Get("pricing.input_cache_read")),
			CacheWritePrice: parsePrice(item.Get("pricing.input_cache_write")),
			ImagePrice:      parsePrice(item.Get("pricing.image")),
			WebSearchPrice:  parsePrice(item.Get("pricing.web_search")),
		}
		if m.ID == "" && m.CanonicalSlug == "" {
			return true
		}
		m.Author = listingAuthor(m.CanonicalSlug, m.ID)
		if m.ReasoningPrice.IsZero() {
			m.ReasoningPrice = m.CompletionPrice
		}
		models = append(models, m)
		return true
	})
	return models, nil
}

// listingAuthor takes the author segment of the canonical slug, falling back
// to the listing ID for entries without one.
func listingAuthor(canonicalSlug, id string) string {
	for _, slug := range []string{canonicalSlug, id} {
		if author, _, found := strings.Cut(slug, "/"); found {
			return author
		}
	}
	return ""
}

// parsePrice reads a catalog price string; empty or malformed values price
// at zero rather than failing the whole catalog.
func parsePrice(result gjson.Result) decimal.Decimal {
	raw := result.String()
	if raw == "" {
		return decimal.Zero
	}
	price, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	return price
}
