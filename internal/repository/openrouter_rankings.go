package repository

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/imroc/req/v3"
	"golang.org/x/net/html"

	"github.com/johnbean393/openrouter-inference-stats/internal/config"
	"github.com/johnbean393/openrouter-inference-stats/internal/pkg/httpclient"
	"github.com/johnbean393/openrouter-inference-stats/internal/pkg/tokenfmt"
	"github.com/johnbean393/openrouter-inference-stats/internal/service"
)

// navPrefixes are link targets on the rankings page that are not model slugs.
var navPrefixes = []string{
	"docs/", "chat/", "settings/", "compare/",
	"apps", "models", "rankings", "enterprise", "pricing",
}

var (
	scriptTagPattern  = regexp.MustCompile(`(?s)<script[^>]*>(.*?)</script>`)
	chartEntryPattern = regexp.MustCompile(`"x":"(\d{4}-\d{2}-\d{2})[^"]*","ys":\{`)
	chartPairPattern  = regexp.MustCompile(`"([^"]+)":(\d+(?:\.\d+)?)`)
	tokenColPattern   = regexp.MustCompile(`(?i)^([0-9.]+)([TGBMK])tokens`)
	percentPattern    = regexp.MustCompile(`(\d+)%`)
)

// minChartScriptLen filters out the small inline scripts that cannot hold
// chart payloads.
const minChartScriptLen = 1000

// maxChartObjectLen bounds the brace scan for one "ys" object.
const maxChartObjectLen = 10000

// OpenRouterRankingsClient scrapes the rankings page for the current
// leaderboard grid and the weekly chart history embedded in its scripts.
type OpenRouterRankingsClient struct {
	client  *req.Client
	baseURL string
}

var _ service.RankingsSource = (*OpenRouterRankingsClient)(nil)

func NewOpenRouterRankingsClient(cfg *config.Config) *OpenRouterRankingsClient {
	return &OpenRouterRankingsClient{
		client: httpclient.Get(httpclient.Options{
			Timeout:         cfg.Scrape.RequestTimeout,
			UserAgent:       cfg.Scrape.UserAgent,
			BrowserProfile:  true,
			FollowRedirects: true,
		}),
		baseURL: cfg.Scrape.BaseURL,
	}
}

func (c *OpenRouterRankingsClient) fetchPage(ctx context.Context) (string, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8").
		SetHeader("Accept-Language", "en-US,en;q=0.9").
		Get(c.baseURL + "/rankings")
	if err != nil {
		return "", fmt.Errorf("fetch rankings page: %w", err)
	}
	if resp.IsErrorState() {
		return "", fmt.Errorf("fetch rankings page: unexpected status %s", resp.Status)
	}
	return resp.String(), nil
}

func (c *OpenRouterRankingsClient) FetchRankings(ctx context.Context) ([]service.RankedModel, error) {
	page, err := c.fetchPage(ctx)
	if err != nil {
		return nil, err
	}
	return parseRankingsGrid(page)
}

func (c *OpenRouterRankingsClient) FetchWeeklyHistory(ctx context.Context) ([]service.ChartWeek, error) {
	page, err := c.fetchPage(ctx)
	if err != nil {
		return nil, err
	}
	return parseWeeklyChart(page), nil
}

// parseRankingsGrid walks the leaderboard DOM. Each ranked model sits in a
// twelve column grid row holding the model link and a token column.
func parseRankingsGrid(page string) ([]service.RankedModel, error) {
	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("parse rankings page: %w", err)
	}

	var ranked []service.RankedModel
	for _, row := range findAllNodes(doc, isGridRow) {
		link := findNode(row, func(n *html.Node) bool {
			return n.Type == html.ElementNode && n.Data == "a" && strings.Contains(nodeClass(n), "text-foreground")
		})
		if link == nil {
			continue
		}
		slug := strings.TrimPrefix(nodeAttr(link, "href"), "/")
		if slug == "" || isNavLink(slug) || !strings.Contains(slug, "/") {
			continue
		}

		model := service.RankedModel{
			Rank: len(ranked) + 1,
			Slug: slug,
			Name: strings.TrimSpace(collectText(link)),
		}

		if col := findNode(row, func(n *html.Node) bool {
			return n.Type == html.ElementNode && n.Data == "div" && strings.Contains(nodeClass(n), "col-span-4")
		}); col != nil {
			model.WeeklyTokens, model.WeeklyChangePct = parseTokenColumn(col)
		}
		ranked = append(ranked, model)
	}
	return ranked, nil
}

func parseTokenColumn(col *html.Node) (tokens int64, changePct float64) {
	text := strings.Join(strings.Fields(collectText(col)), "")

	if m := tokenColPattern.FindStringSubmatch(text); m != nil {
		tokens = tokenfmt.ParseTokenCount(m[1] + m[2])
	}
	if m := percentPattern.FindStringSubmatch(text); m != nil {
		pct, _ := strconv.Atoi(m[1])
		changePct = float64(pct)
	}

	// The trend arrow's color class is the only down-week marker.
	if svg := findNode(col, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == "svg" && strings.Contains(nodeClass(n), "text-red")
	}); svg != nil {
		changePct = -changePct
	}
	return tokens, changePct
}

// parseWeeklyChart pulls the stacked weekly token chart out of the page's
// script tags. Several charts are embedded; the model-level one is the
// script yielding the most entries whose keys look like model slugs.
func parseWeeklyChart(page string) []service.ChartWeek {
	var best []service.ChartWeek
	for _, m := range scriptTagPattern.FindAllStringSubmatch(page, -1) {
		script := m[1]
		if len(script) < minChartScriptLen {
			continue
		}
		// Payloads are JSON escaped inside the script text.
		unescaped := strings.ReplaceAll(script, `\"`, `"`)
		unescaped = strings.ReplaceAll(unescaped, `\\`, `\`)

		entries := parseChartScript(unescaped)
		if len(entries) > len(best) {
			best = entries
		}
	}
	sort.Slice(best, func(i, j int) bool { return best[i].WeekStart < best[j].WeekStart })
	return best
}

func parseChartScript(script string) []service.ChartWeek {
	var entries []service.ChartWeek
	for _, loc := range chartEntryPattern.FindAllStringSubmatchIndex(script, -1) {
		weekStart := script[loc[2]:loc[3]]
		braceStart := loc[1] - 1

		object, ok := matchBraces(script, braceStart)
		if !ok {
			continue
		}

		pairs := chartPairPattern.FindAllStringSubmatch(object, -1)
		if len(pairs) == 0 {
			continue
		}
		hasModelSlugs := false
		for _, pair := range pairs {
			if strings.Contains(pair[1], "/") {
				hasModelSlugs = true
				break
			}
		}
		if !hasModelSlugs {
			continue
		}

		week := service.ChartWeek{WeekStart: weekStart, Models: make(map[string]int64)}
		for _, pair := range pairs {
			value, err := strconv.ParseFloat(pair[2], 64)
			if err != nil {
				continue
			}
			tokens := int64(value)
			week.Total += tokens
			if pair[1] == "Others" {
				week.Others = tokens
			} else {
				week.Models[pair[1]] = tokens
			}
		}
		entries = append(entries, week)
	}
	return entries
}

// matchBraces returns the balanced object starting at the opening brace.
func matchBraces(s string, start int) (string, bool) {
	if start < 0 || start >= len(s) || s[start] != '{' {
		return "", false
	}
	limit := start + maxChartObjectLen
	if limit > len(s) {
		limit = len(s)
	}
	depth := 0
	for i := start; i < limit; i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

func isNavLink(slug string) bool {
	for _, prefix := range navPrefixes {
		if strings.HasPrefix(slug, prefix) {
			return true
		}
	}
	return false
}

func isGridRow(n *html.Node) bool {
	if n.Type != html.ElementNode || n.Data != "div" {
		return false
	}
	class := nodeClass(n)
	return strings.Contains(class, "grid") && strings.Contains(class, "grid-cols-12")
}

func nodeClass(n *html.Node) string {
	return nodeAttr(n, "class")
}

func nodeAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

func findNode(root *html.Node, pred func(*html.Node) bool) *html.Node {
	if pred(root) {
		return root
	}
	for child := root.FirstChild; child != nil; child = child.NextSibling {
		if found := findNode(child, pred); found != nil {
			return found
		}
	}
	return nil
}

// findAllNodes collects matching nodes without descending into matches, so
// nested grids cannot double-count a row.
func findAllNodes(root *html.Node, pred func(*html.Node) bool) []*html.Node {
	var matches []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if pred(n) {
			matches = append(matches, n)
			return
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(root)
	return matches
}

func collectText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return b.String()
}
