package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// ModelPricing holds per-token USD prices for one model listing. Prices come
// from the public model catalog and are per single token, not per million.
type ModelPricing struct {
	ID              string
	CanonicalSlug   string
	Name            string
	Author          string
	PromptPrice     decimal.Decimal
	CompletionPrice decimal.Decimal
	ReasoningPrice  decimal.Decimal
	CacheReadPrice  decimal.Decimal
	CacheWritePrice decimal.Decimal
	ImagePrice      decimal.Decimal
	WebSearchPrice  decimal.Decimal
}

// IsFree reports whether both prompt and completion are priced at zero.
// Cache pricing is ignored on purpose: free variants bill nothing regardless.
func (p ModelPricing) IsFree() bool {
	return p.PromptPrice.IsZero() && p.CompletionPrice.IsZero()
}

// RankedModel is one row of the weekly rankings grid.
type RankedModel struct {
	Rank            int
	Slug            string
	Name            string
	WeeklyTokens    int64
	WeeklyChangePct float64
}

// DailyUsage is one day of aggregated token counts for a model, summed
// across variants. CompletionTokens already includes ReasoningTokens.
type DailyUsage struct {
	Date             string
	PromptTokens     int64
	CompletionTokens int64
	ReasoningTokens  int64
	CachedTokens     int64
	Requests         int64
}

// ModelActivity is the daily usage series extracted from one model page.
type ModelActivity struct {
	Slug  string
	Daily []DailyUsage
}

// ChartWeek is one week of the stacked token chart embedded in the rankings
// page. Models maps slug to tokens; the unnamed remainder lands in Others.
type ChartWeek struct {
	WeekStart string
	Models    map[string]int64
	Others    int64
	Total     int64
}

// ModelRevenue is the computed weekly result for one ranked model. Ratios
// are shares of the analytics total (prompt plus completion tokens).
type ModelRevenue struct {
	Rank             int
	Slug             string
	Name             string
	Author           string
	WeeklyTokens     int64
	WeeklyChangePct  float64
	PromptTokens     int64
	CompletionTokens int64
	ReasoningTokens  int64
	CachedTokens     int64
	Requests         int64
	PromptRatio      float64
	CompletionRatio  float64
	ReasoningRatio   float64
	PromptPrice      float64
	CompletionPrice  float64
	ReasoningPrice   float64
	CacheReadPrice   float64
	Revenue          float64
	Free             bool
	PricingMatched   bool
	HasAnalytics     bool
}

// TokenBreakdown aggregates analytics tokens across all models in a window.
type TokenBreakdown struct {
	PromptTokens     int64
	CompletionTokens int64
	ReasoningTokens  int64
	CachedTokens     int64
}

// RevenueSnapshot is one completed collection run over a seven day window.
type RevenueSnapshot struct {
	ID           int64
	WeekEnd      string
	WindowStart  string
	WindowEnd    string
	GeneratedAt  time.Time
	TotalRevenue float64
	TotalTokens  int64
	ModelCount   int
	PaidModels   int
	FreeModels   int
	Breakdown    TokenBreakdown
	Models       []ModelRevenue
}

// HistoryPoint is the condensed per-week view used for trend queries.
type HistoryPoint struct {
	WeekEnd      string
	GeneratedAt  time.Time
	TotalRevenue float64
	TotalTokens  int64
	ModelCount   int
	PaidModels   int
	FreeModels   int
}

// PricingSource fetches the live model catalog with prices.
type PricingSource interface {
	FetchPricing(ctx context.Context) ([]ModelPricing, error)
}

// RankingsSource scrapes the rankings page: the current leaderboard grid and
// the embedded weekly chart history.
type RankingsSource interface {
	FetchRankings(ctx context.Context) ([]RankedModel, error)
	FetchWeeklyHistory(ctx context.Context) ([]ChartWeek, error)
}

// ActivitySource extracts the daily usage series from a model page.
type ActivitySource interface {
	FetchModelActivity(ctx context.Context, slug string) (*ModelActivity, error)
}

// SnapshotStore persists completed snapshots and serves history queries.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, snapshot *RevenueSnapshot) (int64, error)
	SnapshotByWeekEnd(ctx context.Context, weekEnd string) (*RevenueSnapshot, error)
	LatestSnapshot(ctx context.Context) (*RevenueSnapshot, error)
	ListHistory(ctx context.Context, limit int) ([]HistoryPoint, error)
	HasSnapshotSince(ctx context.Context, since time.Time) (bool, error)
}
