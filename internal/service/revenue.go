package service

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// defaultWindowDays is the collection window length when none is
	// configured. Chart weeks on the rankings page are always this long.
	defaultWindowDays = 7
	// slugSimilarityThreshold gates fuzzy pricing matches within one author.
	slugSimilarityThreshold = 0.7
)

// PricingIndex resolves a model slug to its pricing entry. Entries are keyed
// by both canonical slug and listing ID since the rankings grid links by
// either, and a fuzzy same-author match covers renamed listings.
type PricingIndex struct {
	byKey    map[string]ModelPricing
	byAuthor map[string][]ModelPricing
}

func NewPricingIndex(models []ModelPricing) *PricingIndex {
	idx := &PricingIndex{
		byKey:    make(map[string]ModelPricing, len(models)*2),
		byAuthor: make(map[string][]ModelPricing),
	}
	for _, m := range models {
		if m.CanonicalSlug != "" {
			idx.byKey[m.CanonicalSlug] = m
		}
		if m.ID != "" {
			idx.byKey[m.ID] = m
		}
		author := m.Author
		if author == "" {
			author = slugAuthor(m.CanonicalSlug)
		}
		if author == "" {
			author = slugAuthor(m.ID)
		}
		if author != "" {
			idx.byAuthor[author] = append(idx.byAuthor[author], m)
		}
	}
	return idx
}

func (idx *PricingIndex) Len() int {
	return len(idx.byKey)
}

// Lookup tries an exact match, then the slug with any ":variant" suffix
// stripped, then the closest same-author listing above the similarity
// threshold.
func (idx *PricingIndex) Lookup(slug string) (ModelPricing, bool) {
	if m, ok := idx.byKey[slug]; ok {
		return m, true
	}
	if base, _, found := strings.Cut(slug, ":"); found {
		if m, ok := idx.byKey[base]; ok {
			return m, true
		}
	}

	author := slugAuthor(slug)
	if author == "" {
		return ModelPricing{}, false
	}
	var (
		best      ModelPricing
		bestScore float64
	)
	for _, candidate := range idx.byAuthor[author] {
		key := candidate.CanonicalSlug
		if key == "" {
			key = candidate.ID
		}
		score := slugSimilarity(slug, key)
		if score > bestScore {
			best, bestScore = candidate, score
		}
	}
	if bestScore > slugSimilarityThreshold {
		return best, true
	}
	return ModelPricing{}, false
}

// DisplayName resolves a slug to its catalog name, deriving a title-cased
// name from the slug tail when the catalog has none.
func (idx *PricingIndex) DisplayName(slug string) string {
	if m, ok := idx.byKey[slug]; ok && m.Name != "" {
		return m.Name
	}
	if base, _, found := strings.Cut(slug, ":"); found {
		if m, ok := idx.byKey[base]; ok && m.Name != "" {
			return m.Name
		}
	}
	return nameFromSlug(slug)
}

func slugAuthor(slug string) string {
	author, _, found := strings.Cut(slug, "/")
	if !found {
		return ""
	}
	return author
}

// slugSimilarity is the Jaccard similarity of the token sets of two slugs.
func slugSimilarity(a, b string) float64 {
	setA := slugTokens(a)
	setB := slugTokens(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}
	intersection := 0
	for token := range setA {
		if _, ok := setB[token]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func slugTokens(slug string) map[string]struct{} {
	parts := strings.FieldsFunc(strings.ToLower(slug), func(r rune) bool {
		return r == '-' || r == '.' || r == ' ' || r == '/' || r == ':'
	})
	set := make(map[string]struct{}, len(parts))
	for _, p := range parts {
		if p != "" {
			set[p] = struct{}{}
		}
	}
	return set
}

// CollectionWindow returns the inclusive window of days days ending at
// endDate. When endDate is the current calendar day its analytics are still
// partial, so the window shifts one day back.
func CollectionWindow(endDate, now time.Time, days int) (start, end time.Time) {
	if days <= 0 {
		days = defaultWindowDays
	}
	end = truncateDay(endDate)
	if end.Equal(truncateDay(now)) {
		end = end.AddDate(0, 0, -1)
	}
	start = end.AddDate(0, 0, -(days - 1))
	return start, end
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// DateKey formats a time as the YYYY-MM-DD keys used throughout.
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// RevenueCalculator combines rankings, per-model activity and pricing into a
// snapshot. It is stateless and safe for concurrent use.
type RevenueCalculator struct{}

func NewRevenueCalculator() *RevenueCalculator {
	return &RevenueCalculator{}
}

// ModelRevenue computes one model's weekly result. activity may be nil when
// the model page yielded no analytics; the model still appears with its
// ranking tokens and zero revenue. An unmatched slug bills at zero prices.
func (c *RevenueCalculator) ModelRevenue(ranked RankedModel, activity *ModelActivity, pricing ModelPricing, matched bool, start, end time.Time) ModelRevenue {
	result := ModelRevenue{
		Rank:            ranked.Rank,
		Slug:            ranked.Slug,
		Name:            resolveName(ranked, pricing, matched),
		Author:          slugAuthor(ranked.Slug),
		WeeklyTokens:    ranked.WeeklyTokens,
		WeeklyChangePct: ranked.WeeklyChangePct,
		PricingMatched:  matched,
	}

	if activity != nil {
		startKey, endKey := DateKey(start), DateKey(end)
		for _, day := range activity.Daily {
			if day.Date < startKey || day.Date > endKey {
				continue
			}
			result.PromptTokens += day.PromptTokens
			result.CompletionTokens += day.CompletionTokens
			result.ReasoningTokens += day.ReasoningTokens
			result.CachedTokens += day.CachedTokens
			result.Requests += day.Requests
		}
	}

	analyticsTotal := result.PromptTokens + result.CompletionTokens
	result.HasAnalytics = analyticsTotal > 0
	if analyticsTotal > 0 {
		result.PromptRatio = round4(float64(result.PromptTokens) / float64(analyticsTotal))
		result.CompletionRatio = round4(float64(result.CompletionTokens) / float64(analyticsTotal))
		result.ReasoningRatio = round4(float64(result.ReasoningTokens) / float64(analyticsTotal))
	}

	if matched {
		result.PromptPrice, _ = pricing.PromptPrice.Float64()
		result.CompletionPrice, _ = pricing.CompletionPrice.Float64()
		result.CacheReadPrice, _ = pricing.CacheReadPrice.Float64()
		reasoningPrice := pricing.ReasoningPrice
		if reasoningPrice.IsZero() {
			reasoningPrice = pricing.CompletionPrice
		}
		result.ReasoningPrice, _ = reasoningPrice.Float64()
	}
	result.Free = !matched || pricing.IsFree()

	// Completion tokens already include reasoning output, so reasoning is
	// never billed on top.
	total := decimal.NewFromInt(result.PromptTokens).Mul(pricing.PromptPrice).
		Add(decimal.NewFromInt(result.CompletionTokens).Mul(pricing.CompletionPrice)).
		Add(decimal.NewFromInt(result.CachedTokens).Mul(pricing.CacheReadPrice))
	if !matched {
		total = decimal.Zero
	}
	result.Revenue, _ = total.Round(2).Float64()
	return result
}

// BuildSnapshot assembles and orders the final snapshot. Models are sorted
// by revenue descending; ties keep their ranking order.
func (c *RevenueCalculator) BuildSnapshot(models []ModelRevenue, start, end time.Time, generatedAt time.Time) *RevenueSnapshot {
	sorted := make([]ModelRevenue, len(models))
	copy(sorted, models)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Revenue > sorted[j].Revenue
	})

	snapshot := &RevenueSnapshot{
		WeekEnd:     DateKey(end),
		WindowStart: DateKey(start),
		WindowEnd:   DateKey(end),
		GeneratedAt: generatedAt,
		ModelCount:  len(sorted),
		Models:      sorted,
	}
	totalRevenue := decimal.Zero
	for _, m := range sorted {
		totalRevenue = totalRevenue.Add(decimal.NewFromFloat(m.Revenue))
		snapshot.TotalTokens += m.WeeklyTokens
		if m.Free {
			snapshot.FreeModels++
		} else {
			snapshot.PaidModels++
		}
		snapshot.Breakdown.PromptTokens += m.PromptTokens
		snapshot.Breakdown.CompletionTokens += m.CompletionTokens
		snapshot.Breakdown.ReasoningTokens += m.ReasoningTokens
		snapshot.Breakdown.CachedTokens += m.CachedTokens
	}
	snapshot.TotalRevenue, _ = totalRevenue.Round(2).Float64()
	return snapshot
}

// resolveName prefers the catalog name and otherwise derives a display name
// from the slug tail.
func resolveName(ranked RankedModel, pricing ModelPricing, matched bool) string {
	if matched && pricing.Name != "" {
		return pricing.Name
	}
	if ranked.Name != "" {
		return ranked.Name
	}
	return nameFromSlug(ranked.Slug)
}

func nameFromSlug(slug string) string {
	tail := slug
	if _, rest, found := strings.Cut(slug, "/"); found {
		tail = rest
	}
	tail, _, _ = strings.Cut(tail, ":")
	parts := strings.Split(tail, "-")
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, " ")
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
