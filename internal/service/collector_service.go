package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrRunInProgress is returned when a collection run is already active.
	ErrRunInProgress = errors.New("collector: run already in progress")
	// ErrRecentSnapshot is returned when dedupe suppresses a new run.
	ErrRecentSnapshot = errors.New("collector: recent snapshot exists")
)

// CollectorOptions carries the scheduling and scraping knobs for runs.
// WindowDays sets the current-run window length; backfill windows always
// follow the chart's weekly cadence.
type CollectorOptions struct {
	Enabled          bool
	CronSpec         string
	DedupeWindowDays int
	WindowDays       int
	TopN             int
	Concurrency      int
	RequestDelay     time.Duration
	Location         *time.Location
}

// RunState is a point-in-time view of the collector for the ops surface.
type RunState struct {
	Running       bool      `json:"running"`
	LastRunID     string    `json:"last_run_id,omitempty"`
	LastRunAt     time.Time `json:"last_run_at,omitzero"`
	LastRunStatus string    `json:"last_run_status,omitempty"`
	LastRunError  string    `json:"last_run_error,omitempty"`
	LastWeekEnd   string    `json:"last_week_end,omitempty"`
	NextRunAt     time.Time `json:"next_run_at,omitzero"`
}

// CollectorService drives weekly collection runs: rankings, per-model
// activity, pricing and persistence. Runs are serialized; the cron schedule
// and manual triggers share the same entry points.
type CollectorService struct {
	pricing    *PricingService
	rankings   RankingsSource
	activities ActivitySource
	store      SnapshotStore
	calc       *RevenueCalculator
	options    CollectorOptions

	cron    *cron.Cron
	entryID cron.EntryID

	runMu sync.Mutex

	stateMu sync.RWMutex
	state   RunState

	startOnce sync.Once
	stopOnce  sync.Once
}

func NewCollectorService(pricing *PricingService, rankings RankingsSource, activities ActivitySource, store SnapshotStore, options CollectorOptions) *CollectorService {
	if options.Location == nil {
		options.Location = time.UTC
	}
	if options.WindowDays <= 0 {
		options.WindowDays = defaultWindowDays
	}
	if options.TopN <= 0 {
		options.TopN = 20
	}
	if options.Concurrency <= 0 {
		options.Concurrency = 3
	}
	return &CollectorService{
		pricing:    pricing,
		rankings:   rankings,
		activities: activities,
		store:      store,
		calc:       NewRevenueCalculator(),
		options:    options,
	}
}

// Start registers the cron schedule. Disabled collectors still serve manual
// runs through RunCurrent and RunBackfill.
func (s *CollectorService) Start() error {
	var startErr error
	s.startOnce.Do(func() {
		if !s.options.Enabled {
			log.Printf("[Collector] schedule disabled, manual runs only")
			return
		}
		parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
		s.cron = cron.New(cron.WithParser(parser), cron.WithLocation(s.options.Location))
		id, err := s.cron.AddFunc(s.options.CronSpec, s.scheduledRun)
		if err != nil {
			startErr = fmt.Errorf("collector: invalid cron spec %q: %w", s.options.CronSpec, err)
			return
		}
		s.entryID = id
		s.cron.Start()
		log.Printf("[Collector] scheduled, spec=%q tz=%s", s.options.CronSpec, s.options.Location)
	})
	return startErr
}

func (s *CollectorService) Stop() {
	s.stopOnce.Do(func() {
		if s.cron != nil {
			ctx := s.cron.Stop()
			<-ctx.Done()
		}
		log.Printf("[Collector] stopped")
	})
}

func (s *CollectorService) scheduledRun() {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Minute)
	defer cancel()
	if _, err := s.RunCurrent(ctx, false); err != nil {
		if errors.Is(err, ErrRecentSnapshot) || errors.Is(err, ErrRunInProgress) {
			log.Printf("[Collector] scheduled run skipped: %v", err)
			return
		}
		log.Printf("[Collector] scheduled run failed: %v", err)
	}
}

// State returns the current run state, including the next scheduled fire.
func (s *CollectorService) State() RunState {
	s.stateMu.RLock()
	state := s.state
	s.stateMu.RUnlock()
	if s.cron != nil {
		state.NextRunAt = s.cron.Entry(s.entryID).Next
	}
	return state
}

// RunCurrent collects the most recent complete window. force bypasses the
// dedupe check but never a run already in flight.
func (s *CollectorService) RunCurrent(ctx context.Context, force bool) (*RevenueSnapshot, error) {
	if !s.runMu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer s.runMu.Unlock()

	runID := uuid.NewString()
	now := time.Now().In(s.options.Location)

	if !force && s.options.DedupeWindowDays > 0 {
		since := now.AddDate(0, 0, -s.options.DedupeWindowDays)
		recent, err := s.store.HasSnapshotSince(ctx, since)
		if err != nil {
			return nil, fmt.Errorf("collector: dedupe check: %w", err)
		}
		if recent {
			return nil, ErrRecentSnapshot
		}
	}

	s.markRunning(runID)
	snapshot, err := s.collect(ctx, runID, now)
	s.markFinished(runID, snapshot, err)
	return snapshot, err
}

func (s *CollectorService) collect(ctx context.Context, runID string, now time.Time) (*RevenueSnapshot, error) {
	started := time.Now()
	log.Printf("[Collector] run %s started", runID)

	if err := s.pricing.Ensure(ctx); err != nil {
		return nil, fmt.Errorf("collector: pricing: %w", err)
	}

	ranked, err := s.fetchTopRankings(ctx)
	if err != nil {
		return nil, err
	}

	activities := s.fetchActivities(ctx, runID, ranked)

	start, end := CollectionWindow(now, now, s.options.WindowDays)
	models := make([]ModelRevenue, 0, len(ranked))
	for _, r := range ranked {
		pricing, matched := s.pricing.Lookup(r.Slug)
		if !matched {
			log.Printf("[Collector] run %s: no pricing for %s, counting as unpriced", runID, r.Slug)
		}
		models = append(models, s.calc.ModelRevenue(r, activities[r.Slug], pricing, matched, start, end))
	}

	snapshot := s.calc.BuildSnapshot(models, start, end, time.Now().In(s.options.Location))
	id, err := s.store.SaveSnapshot(ctx, snapshot)
	if err != nil {
		return nil, fmt.Errorf("collector: save snapshot: %w", err)
	}
	snapshot.ID = id

	log.Printf("[Collector] run %s finished, week_end=%s models=%d revenue=%.2f elapsed=%s",
		runID, snapshot.WeekEnd, snapshot.ModelCount, snapshot.TotalRevenue, time.Since(started).Round(time.Millisecond))
	return snapshot, nil
}

func (s *CollectorService) fetchTopRankings(ctx context.Context) ([]RankedModel, error) {
	ranked, err := s.rankings.FetchRankings(ctx)
	if err != nil {
		return nil, fmt.Errorf("collector: rankings: %w", err)
	}
	if len(ranked) == 0 {
		return nil, fmt.Errorf("collector: rankings page yielded no models")
	}
	if len(ranked) > s.options.TopN {
		ranked = ranked[:s.options.TopN]
	}
	return ranked, nil
}

// fetchActivities pulls model pages with bounded concurrency and a global
// pacing delay. A failed page only loses that model's analytics.
func (s *CollectorService) fetchActivities(ctx context.Context, runID string, ranked []RankedModel) map[string]*ModelActivity {
	var (
		mu         sync.Mutex
		activities = make(map[string]*ModelActivity, len(ranked))
		pace       = make(chan struct{}, 1)
	)

	go func() {
		for range ranked {
			select {
			case pace <- struct{}{}:
			case <-ctx.Done():
				return
			}
			if s.options.RequestDelay > 0 {
				select {
				case <-time.After(s.options.RequestDelay):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.options.Concurrency)
	for _, r := range ranked {
		r := r
		g.Go(func() error {
			select {
			case <-pace:
			case <-gctx.Done():
				return gctx.Err()
			}
			activity, err := s.activities.FetchModelActivity(gctx, r.Slug)
			if err != nil {
				log.Printf("[Collector] run %s: activity fetch failed for %s: %v", runID, r.Slug, err)
				return nil
			}
			mu.Lock()
			activities[r.Slug] = activity
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return activities
}

// RunBackfill rebuilds snapshots for past weeks from the rankings page's
// embedded weekly chart. Each chart week names that week's top models; daily
// analytics from their pages fill in the token mix for accurate pricing.
// weeks=0 backfills every complete week the chart covers; the in-progress
// week is always skipped.
func (s *CollectorService) RunBackfill(ctx context.Context, weeks int) ([]*RevenueSnapshot, error) {
	if weeks < 0 {
		return nil, fmt.Errorf("collector: weeks must not be negative")
	}
	if !s.runMu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer s.runMu.Unlock()

	runID := uuid.NewString()
	now := time.Now().In(s.options.Location)
	s.markRunning(runID)

	snapshots, err := s.backfill(ctx, runID, now, weeks)
	var last *RevenueSnapshot
	if len(snapshots) > 0 {
		last = snapshots[len(snapshots)-1]
	}
	s.markFinished(runID, last, err)
	return snapshots, err
}

func (s *CollectorService) backfill(ctx context.Context, runID string, now time.Time, weeks int) ([]*RevenueSnapshot, error) {
	log.Printf("[Collector] backfill %s started, weeks=%d", runID, weeks)

	if err := s.pricing.Ensure(ctx); err != nil {
		return nil, fmt.Errorf("collector: pricing: %w", err)
	}

	history, err := s.rankings.FetchWeeklyHistory(ctx)
	if err != nil {
		return nil, fmt.Errorf("collector: weekly history: %w", err)
	}
	if len(history) == 0 {
		return nil, fmt.Errorf("collector: rankings page yielded no chart history")
	}

	completeWeeks := dropPartialWeek(history, now)
	targetWeeks := completeWeeks
	if weeks > 0 && weeks < len(completeWeeks) {
		targetWeeks = completeWeeks[len(completeWeeks)-weeks:]
	}
	if len(targetWeeks) == 0 {
		return nil, fmt.Errorf("collector: no complete weeks to backfill")
	}

	activities := s.fetchActivities(ctx, runID, uniqueChartModels(targetWeeks, s.options.TopN))

	snapshots := make([]*RevenueSnapshot, 0, len(targetWeeks))
	firstTarget := len(completeWeeks) - len(targetWeeks)
	for i, week := range targetWeeks {
		var prevModels map[string]int64
		if idx := firstTarget + i - 1; idx >= 0 {
			prevModels = completeWeeks[idx].Models
		}

		snapshot, weekErr := s.backfillWeek(ctx, week, prevModels, activities)
		if weekErr != nil {
			return snapshots, weekErr
		}
		snapshots = append(snapshots, snapshot)
	}

	log.Printf("[Collector] backfill %s finished, snapshots=%d", runID, len(snapshots))
	return snapshots, nil
}

func (s *CollectorService) backfillWeek(ctx context.Context, week ChartWeek, prevModels map[string]int64, activities map[string]*ModelActivity) (*RevenueSnapshot, error) {
	start, err := time.ParseInLocation("2006-01-02", week.WeekStart, s.options.Location)
	if err != nil {
		return nil, fmt.Errorf("collector: bad chart week start %q: %w", week.WeekStart, err)
	}
	end := start.AddDate(0, 0, defaultWindowDays-1)

	ranked := rankChartWeek(week, prevModels)
	if len(ranked) > s.options.TopN {
		ranked = ranked[:s.options.TopN]
	}
	models := make([]ModelRevenue, 0, len(ranked))
	for _, r := range ranked {
		pricing, matched := s.pricing.Lookup(r.Slug)
		r.Name = s.pricing.DisplayName(r.Slug)
		models = append(models, s.calc.ModelRevenue(r, activities[r.Slug], pricing, matched, start, end))
	}

	snapshot := s.calc.BuildSnapshot(models, start, end, time.Now().In(s.options.Location))
	id, err := s.store.SaveSnapshot(ctx, snapshot)
	if err != nil {
		return nil, fmt.Errorf("collector: save backfill snapshot %s: %w", snapshot.WeekEnd, err)
	}
	snapshot.ID = id
	return snapshot, nil
}

// dropPartialWeek trims the trailing chart entry when its week has not
// finished yet.
func dropPartialWeek(history []ChartWeek, now time.Time) []ChartWeek {
	last := history[len(history)-1]
	start, err := time.Parse("2006-01-02", last.WeekStart)
	if err != nil {
		return history
	}
	if truncateDay(now.UTC()).Sub(start) < defaultWindowDays*24*time.Hour {
		return history[:len(history)-1]
	}
	return history
}

// rankChartWeek turns one chart week into a leaderboard ordered by token
// count, with change computed against the previous week's chart entry.
func rankChartWeek(week ChartWeek, prevModels map[string]int64) []RankedModel {
	slugs := make([]string, 0, len(week.Models))
	for slug := range week.Models {
		slugs = append(slugs, slug)
	}
	sort.Slice(slugs, func(i, j int) bool {
		if week.Models[slugs[i]] != week.Models[slugs[j]] {
			return week.Models[slugs[i]] > week.Models[slugs[j]]
		}
		return slugs[i] < slugs[j]
	})

	ranked := make([]RankedModel, 0, len(slugs))
	for i, slug := range slugs {
		tokens := week.Models[slug]
		var changePct float64
		if prev := prevModels[slug]; prev > 0 {
			changePct = math.Round(float64(tokens-prev) / float64(prev) * 100)
		}
		ranked = append(ranked, RankedModel{
			Rank:            i + 1,
			Slug:            slug,
			WeeklyTokens:    tokens,
			WeeklyChangePct: changePct,
		})
	}
	return ranked
}

// uniqueChartModels collects each target week's top models as a synthetic
// leaderboard, so activity fetching reuses the paced path. Models ranked
// below topN in every week are never fetched.
func uniqueChartModels(weeks []ChartWeek, topN int) []RankedModel {
	seen := make(map[string]struct{})
	var ranked []RankedModel
	for _, week := range weeks {
		top := rankChartWeek(week, nil)
		if len(top) > topN {
			top = top[:topN]
		}
		for _, r := range top {
			if _, ok := seen[r.Slug]; ok {
				continue
			}
			seen[r.Slug] = struct{}{}
			ranked = append(ranked, RankedModel{Slug: r.Slug})
		}
	}
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].Slug < ranked[j].Slug })
	return ranked
}

func (s *CollectorService) markRunning(runID string) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	s.state.Running = true
	s.state.LastRunID = runID
	s.state.LastRunAt = time.Now()
	s.state.LastRunStatus = "running"
	s.state.LastRunError = ""
}

func (s *CollectorService) markFinished(runID string, snapshot *RevenueSnapshot, err error) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	s.state.Running = false
	s.state.LastRunID = runID
	if err != nil {
		s.state.LastRunStatus = "failed"
		s.state.LastRunError = err.Error()
		return
	}
	s.state.LastRunStatus = "ok"
	if snapshot != nil {
		s.state.LastWeekEnd = snapshot.WeekEnd
	}
}
