package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/johnbean393/openrouter-inference-stats/internal/service"
)

// SnapshotRepository persists revenue snapshots in sqlite. Saving the same
// week twice replaces the earlier rows, which makes backfill re-runs and
// forced collections idempotent.
type SnapshotRepository struct {
	db *sql.DB
}

func NewSnapshotRepository(db *sql.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

var _ service.SnapshotStore = (*SnapshotRepository)(nil)

func (r *SnapshotRepository) SaveSnapshot(ctx context.Context, snapshot *service.RevenueSnapshot) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin snapshot tx: %w", err)
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO snapshots (
			week_end, window_start, window_end, generated_at,
			total_revenue, total_tokens, model_count, paid_models, free_models,
			prompt_tokens, completion_tokens, reasoning_tokens, cached_tokens
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(week_end) DO UPDATE SET
			window_start = excluded.window_start,
			window_end = excluded.window_end,
			generated_at = excluded.generated_at,
			total_revenue = excluded.total_revenue,
			total_tokens = excluded.total_tokens,
			model_count = excluded.model_count,
			paid_models = excluded.paid_models,
			free_models = excluded.free_models,
			prompt_tokens = excluded.prompt_tokens,
			completion_tokens = excluded.completion_tokens,
			reasoning_tokens = excluded.reasoning_tokens,
			cached_tokens = excluded.cached_tokens
		RETURNING id`,
		snapshot.WeekEnd, snapshot.WindowStart, snapshot.WindowEnd,
		snapshot.GeneratedAt.UTC().Format(time.RFC3339),
		snapshot.TotalRevenue, snapshot.TotalTokens, snapshot.ModelCount,
		snapshot.PaidModels, snapshot.FreeModels,
		snapshot.Breakdown.PromptTokens, snapshot.Breakdown.CompletionTokens,
		snapshot.Breakdown.ReasoningTokens, snapshot.Breakdown.CachedTokens,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert snapshot %s: %w", snapshot.WeekEnd, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM snapshot_models WHERE snapshot_id = ?`, id); err != nil {
		return 0, fmt.Errorf("clear snapshot models: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO snapshot_models (
			snapshot_id, position, rank, slug, name, author,
			weekly_tokens, weekly_change_pct,
			prompt_tokens, completion_tokens, reasoning_tokens, cached_tokens, requests,
			prompt_ratio, completion_ratio, reasoning_ratio,
			prompt_price, completion_price, reasoning_price, cache_read_price,
			revenue, is_free, pricing_matched, has_analytics
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare snapshot models insert: %w", err)
	}
	defer stmt.Close()

	for position, m := range snapshot.Models {
		_, err := stmt.ExecContext(ctx,
			id, position, m.Rank, m.Slug, m.Name, m.Author,
			m.WeeklyTokens, m.WeeklyChangePct,
			m.PromptTokens, m.CompletionTokens, m.ReasoningTokens, m.CachedTokens, m.Requests,
			m.PromptRatio, m.CompletionRatio, m.ReasoningRatio,
			m.PromptPrice, m.CompletionPrice, m.ReasoningPrice, m.CacheReadPrice,
			m.Revenue, boolToInt(m.Free), boolToInt(m.PricingMatched), boolToInt(m.HasAnalytics),
		)
		if err != nil {
			return 0, fmt.Errorf("insert snapshot model %s: %w", m.Slug, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit snapshot: %w", err)
	}
	return id, nil
}

const snapshotColumns = `
	id, week_end, window_start, window_end, generated_at,
	total_revenue, total_tokens, model_count, paid_models, free_models,
	prompt_tokens, completion_tokens, reasoning_tokens, cached_tokens`

func (r *SnapshotRepository) SnapshotByWeekEnd(ctx context.Context, weekEnd string) (*service.RevenueSnapshot, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT`+snapshotColumns+` FROM snapshots WHERE week_end = ?`, weekEnd)
	return r.scanSnapshotWithModels(ctx, row)
}

func (r *SnapshotRepository) LatestSnapshot(ctx context.Context) (*service.RevenueSnapshot, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT`+snapshotColumns+` FROM snapshots ORDER BY week_end DESC LIMIT 1`)
	return r.scanSnapshotWithModels(ctx, row)
}

func (r *SnapshotRepository) scanSnapshotWithModels(ctx context.Context, row *sql.Row) (*service.RevenueSnapshot, error) {
	snapshot, err := scanSnapshot(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT rank, slug, name, author,
			weekly_tokens, weekly_change_pct,
			prompt_tokens, completion_tokens, reasoning_tokens, cached_tokens, requests,
			prompt_ratio, completion_ratio, reasoning_ratio,
			prompt_price, completion_price, reasoning_price, cache_read_price,
			revenue, is_free, pricing_matched, has_analytics
		FROM snapshot_models WHERE snapshot_id = ? ORDER BY position`, snapshot.ID)
	if err != nil {
		return nil, fmt.Errorf("query snapshot models: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			m                         service.ModelRevenue
			free, matched, analytics int
		)
		err := rows.Scan(
			&m.Rank, &m.Slug, &m.Name, &m.Author,
			&m.WeeklyTokens, &m.WeeklyChangePct,
			&m.PromptTokens, &m.CompletionTokens, &m.ReasoningTokens, &m.CachedTokens, &m.Requests,
			&m.PromptRatio, &m.CompletionRatio, &m.ReasoningRatio,
			&m.PromptPrice, &m.CompletionPrice, &m.ReasoningPrice, &m.CacheReadPrice,
			&m.Revenue, &free, &matched, &analytics,
		)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot model: %w", err)
		}
		m.Free = free != 0
		m.PricingMatched = matched != 0
		m.HasAnalytics = analytics != 0
		snapshot.Models = append(snapshot.Models, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot models: %w", err)
	}
	return snapshot, nil
}

func (r *SnapshotRepository) ListHistory(ctx context.Context, limit int) ([]service.HistoryPoint, error) {
	query := `SELECT week_end, generated_at, total_revenue, total_tokens, model_count, paid_models, free_models
		FROM snapshots ORDER BY week_end ASC`
	args := []any{}
	if limit > 0 {
		// Most recent N weeks, still returned oldest first.
		query = `SELECT week_end, generated_at, total_revenue, total_tokens, model_count, paid_models, free_models
			FROM (
				SELECT week_end, generated_at, total_revenue, total_tokens, model_count, paid_models, free_models
				FROM snapshots ORDER BY week_end DESC LIMIT ?
			) ORDER BY week_end ASC`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var points []service.HistoryPoint
	for rows.Next() {
		var (
			p           service.HistoryPoint
			generatedAt string
		)
		if err := rows.Scan(&p.WeekEnd, &generatedAt, &p.TotalRevenue, &p.TotalTokens, &p.ModelCount, &p.PaidModels, &p.FreeModels); err != nil {
			return nil, fmt.Errorf("scan history point: %w", err)
		}
		p.GeneratedAt, _ = time.Parse(time.RFC3339, generatedAt)
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return points, nil
}

func (r *SnapshotRepository) HasSnapshotSince(ctx context.Context, since time.Time) (bool, error) {
	var exists int
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM snapshots WHERE generated_at >= ?)`,
		since.UTC().Format(time.RFC3339),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check recent snapshot: %w", err)
	}
	return exists != 0, nil
}

func scanSnapshot(row *sql.Row) (*service.RevenueSnapshot, error) {
	var (
		s           service.RevenueSnapshot
		generatedAt string
	)
	err := row.Scan(
		&s.ID, &s.WeekEnd, &s.WindowStart, &s.WindowEnd, &generatedAt,
		&s.TotalRevenue, &s.TotalTokens, &s.ModelCount, &s.PaidModels, &s.FreeModels,
		&s.Breakdown.PromptTokens, &s.Breakdown.CompletionTokens,
		&s.Breakdown.ReasoningTokens, &s.Breakdown.CachedTokens,
	)
	if err != nil {
		return nil, err
	}
	s.GeneratedAt, _ = time.Parse(time.RFC3339, generatedAt)
	return &s, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
