package repository

import (
	"context"
	"fmt"

	"pixelcanvas/internal/domain"
	"pixelcanvas/internal/grid"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// balanceColumns whitelists the user columns a placement may debit.
var balanceColumns = map[domain.BalanceSource]string{
	domain.SourceFreePixels: "free_pixels",
	domain.SourcePlayPoints: "play_points",
}

const upsertBucketSQL = `
	INSERT INTO stats_agg (period, period_id, uid, count)
	VALUES ($1, $2, $3, 1)
	ON CONFLICT (period, period_id, uid) DO UPDATE SET count = stats_agg.count + 1
`

type PixelRepository struct {
	db *pgxpool.Pool
}

func NewPixelRepository(db *pgxpool.Pool) *PixelRepository {
	return &PixelRepository{db: db}
}

// ApplyPlacement runs a placement as one transaction: lock the user row, let admit decide,
// then write the pixel, debit the chosen source and bump the day/month/year counters.
// Nothing is written when admit refuses.
func (r *PixelRepository) ApplyPlacement(ctx context.Context, req domain.PlacementRequest, admit domain.AdmitFunc) (*domain.PlacementResult, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	u, err := scanUser(tx.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE uid = $1 FOR UPDATE`, req.UID))
	if err != nil {
		return nil, err
	}

	source, err := admit(u)
	if err != nil {
		return nil, err
	}
	col, ok := balanceColumns[source]
	if !ok {
		return nil, fmt.Errorf("unknown balance source %q", source)
	}

	px := domain.Pixel{
		X:         req.X,
		Y:         req.Y,
		Color:     req.Color,
		Owner:     u.UID,
		OwnerName: u.SnapshotName(),
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO pixels (x, y, color, owner, owner_name, filled_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (x, y) DO UPDATE
		SET color = EXCLUDED.color, owner = EXCLUDED.owner, owner_name = EXCLUDED.owner_name, filled_at = EXCLUDED.filled_at
		RETURNING filled_at
	`, px.X, px.Y, px.Color, px.Owner, px.OwnerName).Scan(&px.FilledAt)
	if err != nil {
		return nil, fmt.Errorf("upsert pixel: %w", err)
	}

	updated, err := scanUser(tx.QueryRow(ctx, fmt.Sprintf(`
		UPDATE users
		SET %[1]s = %[1]s - 1, pixels_drawn_all_time = pixels_drawn_all_time + 1, last_placed_at = $2
		WHERE uid = $1
		RETURNING `+userColumns, col), u.UID, req.Now.UnixMilli()))
	if err != nil {
		return nil, fmt.Errorf("debit %s: %w", col, err)
	}

	batch := &pgx.Batch{}
	for _, b := range domain.BucketsFor(req.Now) {
		batch.Queue(upsertBucketSQL, string(b.Period), b.PeriodID, u.UID)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return nil, fmt.Errorf("bump stats: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return &domain.PlacementResult{Pixel: px, Source: source, User: updated}, nil
}

// PixelsInBox returns filled cells inside the inclusive box ordered by x then y.
func (r *PixelRepository) PixelsInBox(ctx context.Context, box grid.Box, limit int) ([]domain.Pixel, error) {
	rows, err := r.db.Query(ctx, `
		SELECT x, y, color, owner, owner_name, filled_at
		FROM pixels
		WHERE x BETWEEN $1 AND $2 AND y BETWEEN $3 AND $4
		ORDER BY x, y
		LIMIT $5
	`, box.Left, box.Right, box.Top, box.Bottom, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	pixels := make([]domain.Pixel, 0)
	for rows.Next() {
		var p domain.Pixel
		if err := rows.Scan(&p.X, &p.Y, &p.Color, &p.Owner, &p.OwnerName, &p.FilledAt); err != nil {
			return nil, err
		}
		pixels = append(pixels, p)
	}
	return pixels, rows.Err()
}
