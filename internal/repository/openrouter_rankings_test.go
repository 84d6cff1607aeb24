//go:build unit

package repository

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const rankingsGridFixture = `<!DOCTYPE html><html><body>
<div class="grid grid-cols-12 gap-2 py-3">
  <a class="font-medium text-foreground hover:underline" href="/moonshotai/kimi-k2.5">Kimi K2.5</a>
  <div class="col-span-4 flex items-center">
    <span>1.16T</span><span>tokens</span>
    <svg class="h-3 w-3 text-green-500"></svg><span>222%</span>
  </div>
</div>
<div class="grid grid-cols-12 gap-2 py-3">
  <a class="text-foreground" href="/anthropic/claude-sonnet-4">Claude Sonnet 4</a>
  <div class="col-span-4">
    <span>706B</span><span>tokens</span>
    <svg class="h-3 w-3 text-red-500"></svg><span>14%</span>
  </div>
</div>
<div class="grid grid-cols-12">
  <a class="text-foreground" href="/rankings/category">Category link</a>
</div>
<div class="grid grid-cols-12">
  <a class="text-foreground" href="/enterprise">Enterprise</a>
</div>
<div class="grid grid-cols-12">
  <a class="text-muted" href="/openai/gpt-4o-mini">No foreground class</a>
</div>
</body></html>`

func TestParseRankingsGrid(t *testing.T) {
	t.Parallel()

	ranked, err := parseRankingsGrid(rankingsGridFixture)
	require.NoError(t, err)
	require.Len(t, ranked, 2)

	first := ranked[0]
	require.Equal(t, 1, first.Rank)
	require.Equal(t, "moonshotai/kimi-k2.5", first.Slug)
	require.Equal(t, "Kimi K2.5", first.Name)
	require.Equal(t, int64(1_160_000_000_000), first.WeeklyTokens)
	require.InDelta(t, 222, first.WeeklyChangePct, 1e-9)

	second := ranked[1]
	require.Equal(t, 2, second.Rank)
	require.Equal(t, "anthropic/claude-sonnet-4", second.Slug)
	require.Equal(t, int64(706_000_000_000), second.WeeklyTokens)
	// Red trend arrow flips the sign.
	require.InDelta(t, -14, second.WeeklyChangePct, 1e-9)
}

func TestParseRankingsGridEmptyPage(t *testing.T) {
	t.Parallel()

	ranked, err := parseRankingsGrid("<html><body><p>nothing here</p></body></html>")
	require.NoError(t, err)
	require.Empty(t, ranked)
}

func chartScriptFixture() string {
	// Escaped payload the way the page embeds it, padded past the minimum
	// script length filter.
	payload := `{"data":[` +
		`{\"x\":\"2026-08-10\",\"ys\":{\"anthropic/claude-sonnet-4\":500000000,\"openai/gpt-4o-mini\":300000000,\"Others\":200000000}},` +
		`{\"x\":\"2026-08-17T00:00:00Z\",\"ys\":{\"anthropic/claude-sonnet-4\":800000000,\"Others\":100000000}}` +
		`]}`
	pad := make([]byte, minChartScriptLen)
	for i := range pad {
		pad[i] = 'x'
	}
	return `<html><script>var a=1;</script>` +
		`<script>self.push("` + payload + `");/*` + string(pad) + `*/</script>` +
		`<script>other("{\"x\":\"2026-08-10\",\"ys\":{\"nonmodel\":12}}");/*` + string(pad) + `*/</script>` +
		`</html>`
}

func TestParseWeeklyChart(t *testing.T) {
	t.Parallel()

	weeks := parseWeeklyChart(chartScriptFixture())
	require.Len(t, weeks, 2)

	require.Equal(t, "2026-08-10", weeks[0].WeekStart)
	require.Equal(t, int64(500_000_000), weeks[0].Models["anthropic/claude-sonnet-4"])
	require.Equal(t, int64(300_000_000), weeks[0].Models["openai/gpt-4o-mini"])
	require.Equal(t, int64(200_000_000), weeks[0].Others)
	require.Equal(t, int64(1_000_000_000), weeks[0].Total)

	require.Equal(t, "2026-08-17", weeks[1].WeekStart)
	require.Len(t, weeks[1].Models, 1)
}

func TestParseWeeklyChartIgnoresNonModelCharts(t *testing.T) {
	t.Parallel()

	pad := make([]byte, minChartScriptLen)
	for i := range pad {
		pad[i] = 'x'
	}
	page := `<script>chart("{\"x\":\"2026-08-10\",\"ys\":{\"requests\":500}}");/*` + string(pad) + `*/</script>`
	require.Empty(t, parseWeeklyChart(page))
}

func TestMatchBraces(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		input string
		start int
		want  string
		ok    bool
	}{
		{name: "flat object", input: `{"a":1}`, start: 0, want: `{"a":1}`, ok: true},
		{name: "nested object", input: `{"a":{"b":2}}tail`, start: 0, want: `{"a":{"b":2}}`, ok: true},
		{name: "unbalanced", input: `{"a":1`, start: 0, ok: false},
		{name: "not a brace", input: `x{"a":1}`, start: 0, ok: false},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, ok := matchBraces(tc.input, tc.start)
			require.Equal(t, tc.ok, ok)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestIsNavLink(t *testing.T) {
	t.Parallel()

	require.True(t, isNavLink("docs/quickstart"))
	require.True(t, isNavLink("apps"))
	require.False(t, isNavLink("anthropic/claude-sonnet-4"))
}
