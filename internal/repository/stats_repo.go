package repository

import (
	"context"
	"errors"
	"fmt"

	"pixelcanvas/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type StatsRepository struct {
	db *pgxpool.Pool
}

func NewStatsRepository(db *pgxpool.Pool) *StatsRepository {
	return &StatsRepository{db: db}
}

// TopCounts returns the bucket entries ordered by count descending, uid ascending.
func (r *StatsRepository) TopCounts(ctx context.Context, b domain.Bucket, limit int) ([]domain.BucketCount, error) {
	rows, err := r.db.Query(ctx, `
		SELECT uid, count
		FROM stats_agg
		WHERE period = $1 AND period_id = $2
		ORDER BY count DESC, uid ASC
		LIMIT $3
	`, string(b.Period), b.PeriodID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.BucketCount, 0, limit)
	for rows.Next() {
		var c domain.BucketCount
		if err := rows.Scan(&c.UID, &c.Count); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// RankOf returns the 1-based position of uid in the bucket using the TopCounts order.
// A uid without placements in the bucket has rank 0.
func (r *StatsRepository) RankOf(ctx context.Context, b domain.Bucket, uid string) (int, int64, error) {
	var (
		rank  int
		count int64
	)
	err := r.db.QueryRow(ctx, `
		SELECT s.count,
		       (SELECT COUNT(*) FROM stats_agg o
		        WHERE o.period = s.period AND o.period_id = s.period_id
		          AND (o.count > s.count OR (o.count = s.count AND o.uid < s.uid))) + 1
		FROM stats_agg s
		WHERE s.period = $1 AND s.period_id = $2 AND s.uid = $3
	`, string(b.Period), b.PeriodID, uid).Scan(&count, &rank)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, 0, nil
		}
		return 0, 0, err
	}
	return rank, count, nil
}

// CanvasStats gathers the admin overview in one read-only transaction.
func (r *StatsRepository) CanvasStats(ctx context.Context, today domain.Bucket) (*domain.CanvasStats, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	s := &domain.CanvasStats{}

	// Users and balances in circulation
	err = tx.QueryRow(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE is_banned),
		       COALESCE(SUM(pixels_drawn_all_time), 0),
		       COALESCE(SUM(free_pixels), 0),
		       COALESCE(SUM(play_points), 0)
		FROM users
	`).Scan(&s.TotalUsers, &s.BannedUsers, &s.PlacementsAllTime, &s.FreePixelsHeld, &s.PlayPointsHeld)
	if err != nil {
		return nil, fmt.Errorf("user totals: %w", err)
	}

	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM pixels`).Scan(&s.PaintedPixels); err != nil {
		return nil, fmt.Errorf("pixel count: %w", err)
	}

	// Today's bucket
	err = tx.QueryRow(ctx, `
		SELECT COALESCE(SUM(count), 0), COUNT(*)
		FROM stats_agg
		WHERE period = $1 AND period_id = $2
	`, string(today.Period), today.PeriodID).Scan(&s.PlacementsToday, &s.ActiveUsersToday)
	if err != nil {
		return nil, fmt.Errorf("today bucket: %w", err)
	}

	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM chats`).Scan(&s.ChatMessages); err != nil {
		return nil, fmt.Errorf("chat count: %w", err)
	}

	return s, tx.Commit(ctx)
}
