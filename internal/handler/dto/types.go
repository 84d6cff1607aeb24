// Package dto defines the JSON shapes returned by the API and the mapping
// from domain types. Display fields carry human formatted values so clients
// do not reimplement token and dollar formatting.
package dto

import "time"

type Snapshot struct {
	WeekEnd             string         `json:"week_end"`
	WindowStart         string         `json:"window_start"`
	WindowEnd           string         `json:"window_end"`
	GeneratedAt         time.Time      `json:"generated_at"`
	TotalRevenue        float64        `json:"total_revenue"`
	TotalRevenueDisplay string         `json:"total_revenue_display"`
	TotalTokens         int64          `json:"total_tokens"`
	TotalTokensDisplay  string         `json:"total_tokens_display"`
	ModelCount          int            `json:"model_count"`
	PaidModels          int            `json:"paid_models"`
	FreeModels          int            `json:"free_models"`
	TokenBreakdown      TokenBreakdown `json:"token_breakdown"`
	Models              []Model        `json:"models"`
}

type TokenBreakdown struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	ReasoningTokens  int64 `json:"reasoning_tokens"`
	CachedTokens     int64 `json:"cached_tokens"`
}

type Model struct {
	Rank                   int     `json:"rank"`
	Slug                   string  `json:"slug"`
	Name                   string  `json:"name"`
	Author                 string  `json:"author"`
	WeeklyTokens           int64   `json:"weekly_tokens"`
	WeeklyTokensDisplay    string  `json:"weekly_tokens_display"`
	WeeklyChangePct        float64 `json:"weekly_change_pct"`
	PromptTokens           int64   `json:"prompt_tokens"`
	CompletionTokens       int64   `json:"completion_tokens"`
	ReasoningTokens        int64   `json:"reasoning_tokens"`
	CachedTokens           int64   `json:"cached_tokens"`
	Requests               int64   `json:"requests"`
	PromptRatio            float64 `json:"prompt_ratio"`
	CompletionRatio        float64 `json:"completion_ratio"`
	ReasoningRatio         float64 `json:"reasoning_ratio"`
	PromptPriceDisplay     string  `json:"prompt_price_display"`
	CompletionPriceDisplay string  `json:"completion_price_display"`
	Revenue                float64 `json:"revenue"`
	RevenueDisplay         string  `json:"revenue_display"`
	IsFree                 bool    `json:"is_free"`
	PricingMatched         bool    `json:"pricing_matched"`
	HasAnalytics           bool    `json:"has_analytics"`
}

// Summary is a Snapshot without the per-model table.
type Summary struct {
	WeekEnd             string         `json:"week_end"`
	WindowStart         string         `json:"window_start"`
	WindowEnd           string         `json:"window_end"`
	GeneratedAt         time.Time      `json:"generated_at"`
	TotalRevenue        float64        `json:"total_revenue"`
	TotalRevenueDisplay string         `json:"total_revenue_display"`
	TotalTokens         int64          `json:"total_tokens"`
	TotalTokensDisplay  string         `json:"total_tokens_display"`
	ModelCount          int            `json:"model_count"`
	PaidModels          int            `json:"paid_models"`
	FreeModels          int            `json:"free_models"`
	TokenBreakdown      TokenBreakdown `json:"token_breakdown"`
}

type ModelTable struct {
	WeekEnd string  `json:"week_end"`
	Models  []Model `json:"models"`
}

type HistoryPoint struct {
	WeekEnd             string    `json:"week_end"`
	GeneratedAt         time.Time `json:"generated_at"`
	TotalRevenue        float64   `json:"total_revenue"`
	TotalRevenueDisplay string    `json:"total_revenue_display"`
	TotalTokens         int64     `json:"total_tokens"`
	TotalTokensDisplay  string    `json:"total_tokens_display"`
	ModelCount          int       `json:"model_count"`
	PaidModels          int       `json:"paid_models"`
	FreeModels          int       `json:"free_models"`
	RevenueChangePct    float64   `json:"revenue_change_pct"`
}

type CollectResult struct {
	WeekEnd      string  `json:"week_end"`
	TotalRevenue float64 `json:"total_revenue"`
	TotalTokens  int64   `json:"total_tokens"`
	ModelCount   int     `json:"model_count"`
}

type BackfillRequest struct {
	Weeks int `json:"weeks"`
}

type BackfillResult struct {
	Snapshots []CollectResult `json:"snapshots"`
	Count     int             `json:"count"`
}

type PricingStatus struct {
	ModelCount  int       `json:"model_count"`
	RefreshedAt time.Time `json:"refreshed_at,omitzero"`
}
