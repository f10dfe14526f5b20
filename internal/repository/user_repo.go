package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"pixelcanvas/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `uid, display_name, email, avatar_url, bio, unique_code,
	free_pixels, play_points, last_placed_at, pixels_drawn_all_time,
	color_pack, color_pack_expiry, allowed_colors, role, is_banned,
	stripe_customer_id, last_purchase_at, name_updated_at, created_at`

type UserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var (
		u          domain.User
		customerID *string
	)
	if err := row.Scan(
		&u.UID,
		&u.DisplayName,
		&u.Email,
		&u.AvatarURL,
		&u.Bio,
		&u.UniqueCode,
		&u.FreePixels,
		&u.PlayPoints,
		&u.LastPlacedAt,
		&u.PixelsDrawnAllTime,
		&u.ColorPack,
		&u.ColorPackExpiry,
		&u.AllowedColors,
		&u.Role,
		&u.IsBanned,
		&customerID,
		&u.LastPurchaseAt,
		&u.NameUpdatedAt,
		&u.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	if customerID != nil {
		u.StripeCustomerID = *customerID
	}
	return &u, nil
}

// CreateIfMissing inserts u unless a user with the same uid exists, and returns the stored row.
func (r *UserRepository) CreateIfMissing(ctx context.Context, u *domain.User) (*domain.User, bool, error) {
	tag, err := r.db.Exec(ctx,
		`INSERT INTO users (uid, display_name, email, avatar_url, unique_code, free_pixels, play_points,
		                    last_placed_at, color_pack, role)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (uid) DO NOTHING`,
		u.UID,
		u.DisplayName,
		u.Email,
		u.AvatarURL,
		u.UniqueCode,
		u.FreePixels,
		u.PlayPoints,
		u.LastPlacedAt,
		u.ColorPack,
		u.Role,
	)
	if err != nil {
		return nil, false, fmt.Errorf("insert user: %w", err)
	}

	stored, err := r.GetByUID(ctx, u.UID)
	if err != nil {
		return nil, false, err
	}
	return stored, tag.RowsAffected() == 1, nil
}

func (r *UserRepository) GetByUID(ctx context.Context, uid string) (*domain.User, error) {
	return scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE uid = $1`, uid))
}

func (r *UserRepository) GetByStripeCustomerID(ctx context.Context, customerID string) (*domain.User, error) {
	return scanUser(r.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE stripe_customer_id = $1 LIMIT 1`, customerID))
}

// DisplayNames resolves display names for a batch of uids. Unknown uids are absent from the map.
func (r *UserRepository) DisplayNames(ctx context.Context, uids []string) (map[string]string, error) {
	names := make(map[string]string, len(uids))
	if len(uids) == 0 {
		return names, nil
	}

	rows, err := r.db.Query(ctx, `SELECT uid, display_name FROM users WHERE uid = ANY($1)`, uids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var uid, name string
		if err := rows.Scan(&uid, &name); err != nil {
			return nil, err
		}
		names[uid] = name
	}
	return names, rows.Err()
}

func (r *UserRepository) UpdateBio(ctx context.Context, uid, bio string) error {
	tag, err := r.db.Exec(ctx, `UPDATE users SET bio = $2 WHERE uid = $1`, uid, bio)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// UpdateProfile changes the non-empty fields only.
func (r *UserRepository) UpdateProfile(ctx context.Context, uid, displayName, avatarURL string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE users
		 SET display_name    = COALESCE(NULLIF($2, ''), display_name),
		     avatar_url      = COALESCE(NULLIF($3, ''), avatar_url),
		     name_updated_at = CASE WHEN $2 <> '' THEN now() ELSE name_updated_at END
		 WHERE uid = $1`,
		uid, displayName, avatarURL,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// SearchByName returns users whose display name starts with prefix, ignoring case.
func (r *UserRepository) SearchByName(ctx context.Context, prefix string, limit int) ([]*domain.User, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+userColumns+`
		 FROM users
		 WHERE lower(display_name) LIKE $1 ESCAPE '\'
		 ORDER BY display_name, uid
		 LIMIT $2`,
		escapeLike(strings.ToLower(prefix))+"%", limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, u)
	}
	return res, rows.Err()
}

func (r *UserRepository) Delete(ctx context.Context, uid string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM users WHERE uid = $1`, uid)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) SetStripeCustomerID(ctx context.Context, uid, customerID string) error {
	tag, err := r.db.Exec(ctx, `UPDATE users SET stripe_customer_id = $2 WHERE uid = $1`, uid, customerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// ApplyEntitlement locks the user row and applies the grant atomically.
func (r *UserRepository) ApplyEntitlement(ctx context.Context, uid string, ent domain.Entitlement) (*domain.User, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	u, err := scanUser(tx.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE uid = $1 FOR UPDATE`, uid))
	if err != nil {
		return nil, err
	}

	ent.Apply(u)

	updated, err := scanUser(tx.QueryRow(ctx,
		`UPDATE users
		 SET color_pack = $2, color_pack_expiry = $3, free_pixels = $4, play_points = $5, last_purchase_at = $6
		 WHERE uid = $1
		 RETURNING `+userColumns,
		uid, u.ColorPack, u.ColorPackExpiry, u.FreePixels, u.PlayPoints, u.LastPurchaseAt,
	))
	if err != nil {
		return nil, fmt.Errorf("update entitlement: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return updated, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
