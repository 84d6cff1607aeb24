//go:build unit

package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// Rows appear both escaped (inside script payloads) and bare, with multiple
// variants per date that must be summed.
const modelPageFixture = `<html><script>self.push("` +
	`{\"date\":\"2026-08-18T00:00:00\",\"model_permaslug\":\"anthropic/claude-sonnet-4\",\"variant\":\"standard\",` +
	`\"total_completion_tokens\":200000,\"total_prompt_tokens\":1000000,\"total_native_tokens_reasoning\":50000,\"count\":120,` +
	`\"total_native_tokens_cached\":400000},` +
	`{\"date\":\"2026-08-18T00:00:00\",\"model_permaslug\":\"anthropic/claude-sonnet-4\",\"variant\":\"free\",` +
	`\"total_completion_tokens\":50000,\"total_prompt_tokens\":250000,\"total_native_tokens_reasoning\":0,\"count\":30,` +
	`\"total_native_tokens_cached\":100000},` +
	`{\"date\":\"2026-08-19T00:00:00\",\"model_permaslug\":\"anthropic/claude-sonnet-4\",\"variant\":\"standard\",` +
	`\"total_completion_tokens\":300000,\"total_prompt_tokens\":2000000,\"total_native_tokens_reasoning\":100000,\"count\":180,` +
	`\"total_native_tokens_cached\":600000}` +
	`");</script></html>`

func TestExtractDailyUsage(t *testing.T) {
	t.Parallel()

	daily := extractDailyUsage(modelPageFixture)
	require.Len(t, daily, 2)

	first := daily[0]
	require.Equal(t, "2026-08-18", first.Date)
	// Variants summed per date.
	require.Equal(t, int64(1_250_000), first.PromptTokens)
	require.Equal(t, int64(250_000), first.CompletionTokens)
	require.Equal(t, int64(50_000), first.ReasoningTokens)
	require.Equal(t, int64(500_000), first.CachedTokens)
	require.Equal(t, int64(150), first.Requests)

	second := daily[1]
	require.Equal(t, "2026-08-19", second.Date)
	require.Equal(t, int64(2_000_000), second.PromptTokens)
	require.Equal(t, int64(600_000), second.CachedTokens)
}

func TestExtractDailyUsageBareQuotes(t *testing.T) {
	t.Parallel()

	page := `{"date":"2026-08-20","model_permaslug":"openai/gpt-4o-mini","variant":"standard",` +
		`"total_completion_tokens":10,"total_prompt_tokens":20,"total_native_tokens_reasoning":5,"count":2,` +
		`"total_native_tokens_cached":7}`
	daily := extractDailyUsage(page)
	require.Len(t, daily, 1)
	require.Equal(t, int64(20), daily[0].PromptTokens)
	require.Equal(t, int64(10), daily[0].CompletionTokens)
	require.Equal(t, int64(7), daily[0].CachedTokens)
}

func TestExtractDailyUsageNoData(t *testing.T) {
	t.Parallel()

	require.Nil(t, extractDailyUsage("<html><body>no analytics here</body></html>"))
}

func TestExtractDailyUsageCachedWithoutPrimaryRowIgnored(t *testing.T) {
	t.Parallel()

	page := `{"date":"2026-08-20","model_permaslug":"openai/gpt-4o-mini","variant":"standard",` +
		`"total_completion_tokens":10,"total_prompt_tokens":20,"total_native_tokens_reasoning":5,"count":2,` +
		`"total_native_tokens_cached":7}` +
		`{"date":"2026-08-21","model_permaslug":"openai/gpt-4o-mini","total_native_tokens_cached":99}`
	daily := extractDailyUsage(page)
	require.Len(t, daily, 1)
	require.Equal(t, "2026-08-20", daily[0].Date)
	require.Equal(t, int64(7), daily[0].CachedTokens)
}
func TestExtractLegendUsage(t *testing.T) {
	t.Parallel()

	page := `<html><body>` +
		`<div aria-label="Prompt"><span></span></div>` +
		`<div class="font-medium text-xs" title="Prompt">Prompt</div><div>1.2B</div>` +
		`<div aria-label="Completion"></div>` +
		`<div class="font-medium text-xs" title="Completion">Completion</div><div>350M</div>` +
		`<div aria-label="Reasoning"></div>` +
		`<div class="font-medium text-xs" title="Reasoning">Reasoning</div><div>0</div>` +
		`</body></html>`

	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	daily := extractLegendUsage(page, now)
	require.Len(t, daily, 1)
	require.Equal(t, "2026-08-24", daily[0].Date)
	require.Equal(t, int64(1_200_000_000), daily[0].PromptTokens)
	require.Equal(t, int64(350_000_000), daily[0].CompletionTokens)
	require.Zero(t, daily[0].ReasoningTokens)
}

func TestExtractLegendUsageNoLegend(t *testing.T) {
	t.Parallel()

	require.Nil(t, extractLegendUsage("<html><body>maintenance page</body></html>", time.Now().UTC()))
}
