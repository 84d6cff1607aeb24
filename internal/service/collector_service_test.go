//go:build unit

package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type stubRankings struct {
	models  []RankedModel
	history []ChartWeek
	err     error
}

func (s *stubRankings) FetchRankings(ctx context.Context) ([]RankedModel, error) {
	return s.models, s.err
}

func (s *stubRankings) FetchWeeklyHistory(ctx context.Context) ([]ChartWeek, error) {
	return s.history, s.err
}

type stubActivities struct {
	mu       sync.Mutex
	bySlug   map[string]*ModelActivity
	failing  map[string]error
	fetched  []string
	inflight int
	maxSeen  int
}

func (s *stubActivities) FetchModelActivity(ctx context.Context, slug string) (*ModelActivity, error) {
	s.mu.Lock()
	s.inflight++
	if s.inflight > s.maxSeen {
		s.maxSeen = s.inflight
	}
	s.fetched = append(s.fetched, slug)
	s.mu.Unlock()

	time.Sleep(5 * time.Millisecond)

	s.mu.Lock()
	s.inflight--
	s.mu.Unlock()

	if err, ok := s.failing[slug]; ok {
		return nil, err
	}
	return s.bySlug[slug], nil
}

type memorySnapshotStore struct {
	mu        sync.Mutex
	byWeekEnd map[string]*RevenueSnapshot
	saveErr   error
	nextID    int64
}

func newMemorySnapshotStore() *memorySnapshotStore {
	return &memorySnapshotStore{byWeekEnd: make(map[string]*RevenueSnapshot)}
}

func (s *memorySnapshotStore) SaveSnapshot(ctx context.Context, snapshot *RevenueSnapshot) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return 0, s.saveErr
	}
	s.nextID++
	clone := *snapshot
	clone.ID = s.nextID
	s.byWeekEnd[snapshot.WeekEnd] = &clone
	return s.nextID, nil
}

func (s *memorySnapshotStore) SnapshotByWeekEnd(ctx context.Context, weekEnd string) (*RevenueSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byWeekEnd[weekEnd], nil
}

func (s *memorySnapshotStore) LatestSnapshot(ctx context.Context) (*RevenueSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *RevenueSnapshot
	for _, snap := range s.byWeekEnd {
		if latest == nil || snap.WeekEnd > latest.WeekEnd {
			latest = snap
		}
	}
	return latest, nil
}

func (s *memorySnapshotStore) ListHistory(ctx context.Context, limit int) ([]HistoryPoint, error) {
	return nil, nil
}

func (s *memorySnapshotStore) HasSnapshotSince(ctx context.Context, since time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sinceKey := DateKey(since)
	for _, snap := range s.byWeekEnd {
		if DateKey(snap.GeneratedAt) >= sinceKey {
			return true, nil
		}
	}
	return false, nil
}

func recentDates(days int) []DailyUsage {
	now := time.Now().UTC()
	daily := make([]DailyUsage, 0, days)
	for i := days; i >= 1; i-- {
		daily = append(daily, DailyUsage{
			Date:             DateKey(now.AddDate(0, 0, -i)),
			PromptTokens:     1_000_000,
			CompletionTokens: 100_000,
			Requests:         50,
		})
	}
	return daily
}

func newTestCollector(t *testing.T, rankings *stubRankings, activities *stubActivities, store SnapshotStore, options CollectorOptions) *CollectorService {
	t.Helper()
	pricingSource := &stubPricingSource{models: []ModelPricing{
		pricedModel("anthropic/claude-sonnet-4", "Claude Sonnet 4", "0.000003", "0.000015", "0.0000003"),
		pricedModel("openai/gpt-4o-mini", "GPT-4o Mini", "0.00000015", "0.0000006", "0"),
	}}
	pricing := newTestPricingService(t, pricingSource)
	svc := NewCollectorService(pricing, rankings, activities, store, options)
	t.Cleanup(svc.Stop)
	return svc
}

func TestRunCurrentProducesSnapshot(t *testing.T) {
	t.Parallel()

	rankings := &stubRankings{models: []RankedModel{
		{Rank: 1, Slug: "anthropic/claude-sonnet-4", WeeklyTokens: 5_000_000_000},
		{Rank: 2, Slug: "openai/gpt-4o-mini", WeeklyTokens: 3_000_000_000},
	}}
	activities := &stubActivities{bySlug: map[string]*ModelActivity{
		"anthropic/claude-sonnet-4": {Slug: "anthropic/claude-sonnet-4", Daily: recentDates(10)},
		"openai/gpt-4o-mini":        {Slug: "openai/gpt-4o-mini", Daily: recentDates(10)},
	}}
	store := newMemorySnapshotStore()
	svc := newTestCollector(t, rankings, activities, store, CollectorOptions{})

	snapshot, err := svc.RunCurrent(context.Background(), false)
	require.NoError(t, err)
	require.NotNil(t, snapshot)
	require.Equal(t, 2, snapshot.ModelCount)
	require.Positive(t, snapshot.TotalRevenue)
	require.NotEmpty(t, snapshot.WeekEnd)
	require.Len(t, store.byWeekEnd, 1)

	state := svc.State()
	require.False(t, state.Running)
	require.Equal(t, "ok", state.LastRunStatus)
	require.Equal(t, snapshot.WeekEnd, state.LastWeekEnd)
}

func TestRunCurrentDedupes(t *testing.T) {
	t.Parallel()

	rankings := &stubRankings{models: []RankedModel{
		{Rank: 1, Slug: "anthropic/claude-sonnet-4", WeeklyTokens: 1_000},
	}}
	activities := &stubActivities{bySlug: map[string]*ModelActivity{}}
	store := newMemorySnapshotStore()
	svc := newTestCollector(t, rankings, activities, store, CollectorOptions{DedupeWindowDays: 6})

	_, err := svc.RunCurrent(context.Background(), false)
	require.NoError(t, err)

	_, err = svc.RunCurrent(context.Background(), false)
	require.ErrorIs(t, err, ErrRecentSnapshot)

	_, err = svc.RunCurrent(context.Background(), true)
	require.NoError(t, err)
}

func TestRunCurrentFailsOnEmptyRankings(t *testing.T) {
	t.Parallel()

	svc := newTestCollector(t, &stubRankings{}, &stubActivities{}, newMemorySnapshotStore(), CollectorOptions{})
	_, err := svc.RunCurrent(context.Background(), false)
	require.Error(t, err)
	require.Contains(t, err.Error(), "no models")

	state := svc.State()
	require.Equal(t, "failed", state.LastRunStatus)
	require.NotEmpty(t, state.LastRunError)
}

func TestRunCurrentSurvivesActivityFailures(t *testing.T) {
	t.Parallel()

	rankings := &stubRankings{models: []RankedModel{
		{Rank: 1, Slug: "anthropic/claude-sonnet-4", WeeklyTokens: 5_000},
		{Rank: 2, Slug: "openai/gpt-4o-mini", WeeklyTokens: 3_000},
	}}
	activities := &stubActivities{
		bySlug: map[string]*ModelActivity{
			"openai/gpt-4o-mini": {Slug: "openai/gpt-4o-mini", Daily: recentDates(10)},
		},
		failing: map[string]error{
			"anthropic/claude-sonnet-4": errors.New("page timeout"),
		},
	}
	svc := newTestCollector(t, rankings, activities, newMemorySnapshotStore(), CollectorOptions{})

	snapshot, err := svc.RunCurrent(context.Background(), false)
	require.NoError(t, err)
	require.Equal(t, 2, snapshot.ModelCount)

	var failed ModelRevenue
	for _, m := range snapshot.Models {
		if m.Slug == "anthropic/claude-sonnet-4" {
			failed = m
		}
	}
	require.False(t, failed.HasAnalytics)
	require.Zero(t, failed.Revenue)
	require.Equal(t, int64(5_000), failed.WeeklyTokens)
}

func TestRunCurrentHonorsTopN(t *testing.T) {
	t.Parallel()

	rankings := &stubRankings{models: []RankedModel{
		{Rank: 1, Slug: "anthropic/claude-sonnet-4", WeeklyTokens: 3},
		{Rank: 2, Slug: "openai/gpt-4o-mini", WeeklyTokens: 2},
		{Rank: 3, Slug: "other/model", WeeklyTokens: 1},
	}}
	activities := &stubActivities{bySlug: map[string]*ModelActivity{}}
	svc := newTestCollector(t, rankings, activities, newMemorySnapshotStore(), CollectorOptions{TopN: 2})

	snapshot, err := svc.RunCurrent(context.Background(), false)
	require.NoError(t, err)
	require.Equal(t, 2, snapshot.ModelCount)
}

func TestRunCurrentRespectsConcurrencyLimit(t *testing.T) {
	t.Parallel()

	models := make([]RankedModel, 0, 8)
	bySlug := make(map[string]*ModelActivity, 8)
	for i := 0; i < 8; i++ {
		slug := "anthropic/claude-sonnet-4"
		if i > 0 {
			slug = DateKey(time.Now()) + "/m" + string(rune('a'+i))
		}
		models = append(models, RankedModel{Rank: i + 1, Slug: slug, WeeklyTokens: 10})
		bySlug[slug] = &ModelActivity{Slug: slug}
	}
	rankings := &stubRankings{models: models}
	activities := &stubActivities{bySlug: bySlug}
	svc := newTestCollector(t, rankings, activities, newMemorySnapshotStore(), CollectorOptions{Concurrency: 2})

	_, err := svc.RunCurrent(context.Background(), false)
	require.NoError(t, err)
	require.LessOrEqual(t, activities.maxSeen, 2)
	require.Len(t, activities.fetched, 8)
}

func chartHistoryFixture() []ChartWeek {
	now := time.Now().UTC()
	weekStart := func(weeksBack int) string {
		return DateKey(now.AddDate(0, 0, -7*weeksBack))
	}
	return []ChartWeek{
		{
			WeekStart: weekStart(3),
			Models: map[string]int64{
				"anthropic/claude-sonnet-4": 500,
				"openai/gpt-4o-mini":        900,
			},
			Others: 100,
			Total:  1500,
		},
		{
			WeekStart: weekStart(2),
			Models: map[string]int64{
				"anthropic/claude-sonnet-4": 1_000,
				"openai/gpt-4o-mini":        600,
			},
			Others: 200,
			Total:  1800,
		},
		// Started less than seven days ago, still in progress.
		{
			WeekStart: weekStart(0),
			Models: map[string]int64{
				"anthropic/claude-sonnet-4": 50,
			},
		},
	}
}

func TestRunBackfillBuildsChartWeeks(t *testing.T) {
	t.Parallel()

	rankings := &stubRankings{history: chartHistoryFixture()}
	activities := &stubActivities{bySlug: map[string]*ModelActivity{
		"anthropic/claude-sonnet-4": {Slug: "anthropic/claude-sonnet-4", Daily: recentDates(30)},
		"openai/gpt-4o-mini":        {Slug: "openai/gpt-4o-mini", Daily: recentDates(30)},
	}}
	store := newMemorySnapshotStore()
	svc := newTestCollector(t, rankings, activities, store, CollectorOptions{})

	snapshots, err := svc.RunBackfill(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, snapshots, 2)
	require.Less(t, snapshots[0].WeekEnd, snapshots[1].WeekEnd)

	// Second week ranks by chart tokens, not the leaderboard.
	second := snapshots[1]
	require.Equal(t, 2, second.ModelCount)
	var sonnet ModelRevenue
	for _, m := range second.Models {
		if m.Slug == "anthropic/claude-sonnet-4" {
			sonnet = m
		}
	}
	require.Equal(t, 1, sonnet.Rank)
	require.Equal(t, int64(1_000), sonnet.WeeklyTokens)
	// 500 -> 1000 against the prior chart week.
	require.InDelta(t, 100, sonnet.WeeklyChangePct, 1e-9)
}

func TestRunBackfillLimitsWeeks(t *testing.T) {
	t.Parallel()

	rankings := &stubRankings{history: chartHistoryFixture()}
	activities := &stubActivities{bySlug: map[string]*ModelActivity{}}
	svc := newTestCollector(t, rankings, activities, newMemorySnapshotStore(), CollectorOptions{})

	snapshots, err := svc.RunBackfill(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, snapshots, 1)

	// Only the latest complete week, with change against the week before it.
	var sonnet ModelRevenue
	for _, m := range snapshots[0].Models {
		if m.Slug == "anthropic/claude-sonnet-4" {
			sonnet = m
		}
	}
	require.InDelta(t, 100, sonnet.WeeklyChangePct, 1e-9)
}

func TestRunBackfillFailsWithoutChartHistory(t *testing.T) {
	t.Parallel()

	svc := newTestCollector(t, &stubRankings{}, &stubActivities{}, newMemorySnapshotStore(), CollectorOptions{})
	_, err := svc.RunBackfill(context.Background(), 0)
	require.Error(t, err)
	require.Contains(t, err.Error(), "chart history")
}

func TestRunBackfillRejectsNegativeWeeks(t *testing.T) {
	t.Parallel()

	svc := newTestCollector(t, &stubRankings{}, &stubActivities{}, newMemorySnapshotStore(), CollectorOptions{})
	_, err := svc.RunBackfill(context.Background(), -1)
	require.Error(t, err)
}

func TestRunCurrentHonorsWindowDays(t *testing.T) {
	t.Parallel()

	rankings := &stubRankings{models: []RankedModel{
		{Rank: 1, Slug: "anthropic/claude-sonnet-4", WeeklyTokens: 5_000_000_000},
	}}
	activities := &stubActivities{bySlug: map[string]*ModelActivity{
		"anthropic/claude-sonnet-4": {Slug: "anthropic/claude-sonnet-4", Daily: recentDates(10)},
	}}
	store := newMemorySnapshotStore()
	svc := newTestCollector(t, rankings, activities, store, CollectorOptions{WindowDays: 3})

	snapshot, err := svc.RunCurrent(context.Background(), false)
	require.NoError(t, err)

	start, err := time.Parse("2006-01-02", snapshot.WindowStart)
	require.NoError(t, err)
	end, err := time.Parse("2006-01-02", snapshot.WindowEnd)
	require.NoError(t, err)
	require.Equal(t, 2*24*time.Hour, end.Sub(start))
}
