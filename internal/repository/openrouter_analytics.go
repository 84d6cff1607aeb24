package repository

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/imroc/req/v3"

	"github.com/johnbean393/openrouter-inference-stats/internal/config"
	"github.com/johnbean393/openrouter-inference-stats/internal/pkg/httpclient"
	"github.com/johnbean393/openrouter-inference-stats/internal/pkg/tokenfmt"
	"github.com/johnbean393/openrouter-inference-stats/internal/service"
)

// Model pages embed their analytics rows in script payloads where quotes may
// appear escaped or bare depending on the nesting level.
const quote = `(?:\\"|")`

var (
	dailyRowPattern = regexp.MustCompile(
		quote + `date` + quote + `:` + quote + `(\d{4}-\d{2}-\d{2})[^"\\]*` + quote + `,` +
			quote + `model_permaslug` + quote + `:` + quote + `[^"\\]*` + quote + `,` +
			quote + `variant` + quote + `:` + quote + `[^"\\]*` + quote + `,` +
			quote + `total_completion_tokens` + quote + `:(\d+),` +
			quote + `total_prompt_tokens` + quote + `:(\d+),` +
			quote + `total_native_tokens_reasoning` + quote + `:(\d+),` +
			quote + `count` + quote + `:(\d+)`)

	cachedRowPattern = regexp.MustCompile(
		quote + `date` + quote + `:` + quote + `(\d{4}-\d{2}-\d{2})[^"\\]*` + quote + `,` +
			quote + `model_permaslug` + quote + `.*?` +
			quote + `total_native_tokens_cached` + quote + `:(\d+)`)
)

// OpenRouterActivityClient fetches a model page and extracts the embedded
// daily analytics rows.
type OpenRouterActivityClient struct {
	client  *req.Client
	baseURL string
}

var _ service.ActivitySource = (*OpenRouterActivityClient)(nil)

func NewOpenRouterActivityClient(cfg *config.Config) *OpenRouterActivityClient {
	return &OpenRouterActivityClient{
		client: httpclient.Get(httpclient.Options{
			Timeout:         cfg.Scrape.RequestTimeout,
			UserAgent:       cfg.Scrape.UserAgent,
			BrowserProfile:  true,
			FollowRedirects: true,
		}),
		baseURL: cfg.Scrape.BaseURL,
	}
}

func (c *OpenRouterActivityClient) FetchModelActivity(ctx context.Context, slug string) (*service.ModelActivity, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8").
		SetHeader("Accept-Language", "en-US,en;q=0.9").
		Get(c.baseURL + "/" + slug)
	if err != nil {
		return nil, fmt.Errorf("fetch model page %s: %w", slug, err)
	}
	if resp.IsErrorState() {
		return nil, fmt.Errorf("fetch model page %s: unexpected status %s", slug, resp.Status)
	}

	page := resp.String()
	daily := extractDailyUsage(page)
	if daily == nil {
		log.Printf("[Activity] no embedded analytics for %s, falling back to legend", slug)
		daily = extractLegendUsage(page, time.Now().UTC())
	}
	return &service.ModelActivity{
		Slug:  slug,
		Daily: daily,
	}, nil
}

// extractDailyUsage groups the page's analytics rows by date, summing across
// model variants. Cached token rows are matched separately because they sit
// in a different payload shape, and are merged only into dates that have a
// primary row.
func extractDailyUsage(page string) []service.DailyUsage {
	byDate := make(map[string]*service.DailyUsage)
	for _, m := range dailyRowPattern.FindAllStringSubmatch(page, -1) {
		date := m[1]
		day, ok := byDate[date]
		if !ok {
			day = &service.DailyUsage{Date: date}
			byDate[date] = day
		}
		day.CompletionTokens += parseCount(m[2])
		day.PromptTokens += parseCount(m[3])
		day.ReasoningTokens += parseCount(m[4])
		day.Requests += parseCount(m[5])
	}
	if len(byDate) == 0 {
		return nil
	}

	cachedByDate := make(map[string]int64)
	for _, m := range cachedRowPattern.FindAllStringSubmatch(page, -1) {
		cachedByDate[m[1]] += parseCount(m[2])
	}
	for date, cached := range cachedByDate {
		if day, ok := byDate[date]; ok {
			day.CachedTokens = cached
		}
	}

	daily := make([]service.DailyUsage, 0, len(byDate))
	for _, day := range byDate {
		daily = append(daily, *day)
	}
	sort.Slice(daily, func(i, j int) bool { return daily[i].Date < daily[j].Date })
	return daily
}

var legendPatterns = map[string]*regexp.Regexp{
	"Prompt":     legendPattern("Prompt"),
	"Completion": legendPattern("Completion"),
	"Reasoning":  legendPattern("Reasoning"),
}

func legendPattern(label string) *regexp.Regexp {
	return regexp.MustCompile(
		`(?s)aria-label="` + label + `".*?` +
			`<div class="font-medium[^"]*"[^>]*>` + label + `</div>` +
			`.*?<div>([0-9.]+[TGBMK]?)</div>`)
}

// extractLegendUsage scrapes the rendered activity legend when a page carries
// no embedded analytics rows. The legend only shows window totals, so they
// are recorded as a single day dated yesterday to land inside the current
// collection window.
func extractLegendUsage(page string, now time.Time) []service.DailyUsage {
	day := service.DailyUsage{Date: now.AddDate(0, 0, -1).Format("2006-01-02")}
	found := false
	for label, pattern := range legendPatterns {
		m := pattern.FindStringSubmatch(page)
		if m == nil {
			continue
		}
		tokens := tokenfmt.ParseTokenCount(m[1])
		if tokens == 0 {
			continue
		}
		found = true
		switch label {
		case "Prompt":
			day.PromptTokens = tokens
		case "Completion":
			day.CompletionTokens = tokens
		case "Reasoning":
			day.ReasoningTokens = tokens
		}
	}
	if !found {
		return nil
	}
	return []service.DailyUsage{day}
}

func parseCount(s string) int64 {
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}
