package dto

import (
	"github.com/johnbean393/openrouter-inference-stats/internal/pkg/tokenfmt"
	"github.com/johnbean393/openrouter-inference-stats/internal/service"
)

func FromSnapshot(s *service.RevenueSnapshot) *Snapshot {
	if s == nil {
		return nil
	}
	out := &Snapshot{
		WeekEnd:             s.WeekEnd,
		WindowStart:         s.WindowStart,
		WindowEnd:           s.WindowEnd,
		GeneratedAt:         s.GeneratedAt,
		TotalRevenue:        s.TotalRevenue,
		TotalRevenueDisplay: tokenfmt.FormatDollars(s.TotalRevenue),
		TotalTokens:         s.TotalTokens,
		TotalTokensDisplay:  tokenfmt.FormatTokens(s.TotalTokens),
		ModelCount:          s.ModelCount,
		PaidModels:          s.PaidModels,
		FreeModels:          s.FreeModels,
		TokenBreakdown: TokenBreakdown{
			PromptTokens:     s.Breakdown.PromptTokens,
			CompletionTokens: s.Breakdown.CompletionTokens,
			ReasoningTokens:  s.Breakdown.ReasoningTokens,
			CachedTokens:     s.Breakdown.CachedTokens,
		},
		Models: make([]Model, 0, len(s.Models)),
	}
	for _, m := range s.Models {
		out.Models = append(out.Models, FromModelRevenue(m))
	}
	return out
}

func FromModelRevenue(m service.ModelRevenue) Model {
	return Model{
		Rank:                   m.Rank,
		Slug:                   m.Slug,
		Name:                   m.Name,
		Author:                 m.Author,
		WeeklyTokens:           m.WeeklyTokens,
		WeeklyTokensDisplay:    tokenfmt.FormatTokens(m.WeeklyTokens),
		WeeklyChangePct:        m.WeeklyChangePct,
		PromptTokens:           m.PromptTokens,
		CompletionTokens:       m.CompletionTokens,
		ReasoningTokens:        m.ReasoningTokens,
		CachedTokens:           m.CachedTokens,
		Requests:               m.Requests,
		PromptRatio:            m.PromptRatio,
		CompletionRatio:        m.CompletionRatio,
		ReasoningRatio:         m.ReasoningRatio,
		PromptPriceDisplay:     tokenfmt.FormatPricePerMillion(m.PromptPrice),
		CompletionPriceDisplay: tokenfmt.FormatPricePerMillion(m.CompletionPrice),
		Revenue:                m.Revenue,
		RevenueDisplay:         tokenfmt.FormatDollars(m.Revenue),
		IsFree:                 m.Free,
		PricingMatched:         m.PricingMatched,
		HasAnalytics:           m.HasAnalytics,
	}
}

// FromSummary maps a snapshot without its model table.
func FromSummary(s *service.RevenueSnapshot) *Summary {
	if s == nil {
		return nil
	}
	return &Summary{
		WeekEnd:             s.WeekEnd,
		WindowStart:         s.WindowStart,
		WindowEnd:           s.WindowEnd,
		GeneratedAt:         s.GeneratedAt,
		TotalRevenue:        s.TotalRevenue,
		TotalRevenueDisplay: tokenfmt.FormatDollars(s.TotalRevenue),
		TotalTokens:         s.TotalTokens,
		TotalTokensDisplay:  tokenfmt.FormatTokens(s.TotalTokens),
		ModelCount:          s.ModelCount,
		PaidModels:          s.PaidModels,
		FreeModels:          s.FreeModels,
		TokenBreakdown: TokenBreakdown{
			PromptTokens:     s.Breakdown.PromptTokens,
			CompletionTokens: s.Breakdown.CompletionTokens,
			ReasoningTokens:  s.Breakdown.ReasoningTokens,
			CachedTokens:     s.Breakdown.CachedTokens,
		},
	}
}

// FromModelTable maps just the ranked model rows of a snapshot.
func FromModelTable(s *service.RevenueSnapshot) *ModelTable {
	if s == nil {
		return nil
	}
	out := &ModelTable{WeekEnd: s.WeekEnd, Models: make([]Model, 0, len(s.Models))}
	for _, m := range s.Models {
		out.Models = append(out.Models, FromModelRevenue(m))
	}
	return out
}

// FromHistory maps the trend points, computing week over week revenue change
// against the preceding point.
func FromHistory(points []service.HistoryPoint) []HistoryPoint {
	out := make([]HistoryPoint, 0, len(points))
	for i, p := range points {
		dto := HistoryPoint{
			WeekEnd:             p.WeekEnd,
			GeneratedAt:         p.GeneratedAt,
			TotalRevenue:        p.TotalRevenue,
			TotalRevenueDisplay: tokenfmt.FormatDollars(p.TotalRevenue),
			TotalTokens:         p.TotalTokens,
			TotalTokensDisplay:  tokenfmt.FormatTokens(p.TotalTokens),
			ModelCount:          p.ModelCount,
			PaidModels:          p.PaidModels,
			FreeModels:          p.FreeModels,
		}
		if i > 0 && points[i-1].TotalRevenue > 0 {
			prev := points[i-1].TotalRevenue
			dto.RevenueChangePct = (p.TotalRevenue - prev) / prev * 100
		}
		out = append(out, dto)
	}
	return out
}

func FromSnapshotSummary(s *service.RevenueSnapshot) CollectResult {
	return CollectResult{
		WeekEnd:      s.WeekEnd,
		TotalRevenue: s.TotalRevenue,
		TotalTokens:  s.TotalTokens,
		ModelCount:   s.ModelCount,
	}
}
