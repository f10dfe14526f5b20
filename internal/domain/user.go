package domain

import (
	"strings"
	"time"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"

	ColorPackFree    = "free"
	ColorPackPlus60  = "plus60"
	ColorPackPlus120 = "plus120"
	ColorPackAll     = "all"

	// DefaultFreePixels is granted to every new user.
	DefaultFreePixels = 100
)

type User struct {
	UID                string     `db:"uid" json:"uid"`
	DisplayName        string     `db:"display_name" json:"displayName"`
	Email              string     `db:"email" json:"email,omitempty"`
	AvatarURL          string     `db:"avatar_url" json:"avatarUrl"`
	Bio                string     `db:"bio" json:"bio"`
	UniqueCode         string     `db:"unique_code" json:"uniqueCode"`
	FreePixels         int64      `db:"free_pixels" json:"freePixels"`
	PlayPoints         int64      `db:"play_points" json:"playPoints"`
	LastPlacedAt       int64      `db:"last_placed_at" json:"lastPlacedAt"`
	PixelsDrawnAllTime int64      `db:"pixels_drawn_all_time" json:"pixelsDrawnAllTime"`
	ColorPack          string     `db:"color_pack" json:"colorPack"`
	ColorPackExpiry    *time.Time `db:"color_pack_expiry" json:"colorPackExpiry,omitempty"`
	AllowedColors      []string   `db:"allowed_colors" json:"allowedColors,omitempty"`
	Role               string     `db:"role" json:"role"`
	IsBanned           bool       `db:"is_banned" json:"isBanned"`
	StripeCustomerID   string     `db:"stripe_customer_id" json:"-"`
	LastPurchaseAt     *time.Time `db:"last_purchase_at" json:"lastPurchaseAt,omitempty"`
	NameUpdatedAt      time.Time  `db:"name_updated_at" json:"nameUpdatedAt"`
	CreatedAt          time.Time  `db:"created_at" json:"createdAt"`
}

// SnapshotName is the label denormalised onto pixels and chat messages.
func (u *User) SnapshotName() string {
	switch {
	case u.DisplayName != "":
		return u.DisplayName
	case u.Email != "":
		return u.Email
	default:
		return "anon"
	}
}

// IsAdmin reports whether the user may run moderation operations.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// ColorAllowed reports whether the user's plan lets them place color at now.
// A nil AllowedColors list means unrestricted; the "all" pack lifts restrictions until it expires.
func (u *User) ColorAllowed(color string, now time.Time) bool {
	if u.AllowedColors == nil {
		return true
	}
	if u.ColorPack == ColorPackAll && (u.ColorPackExpiry == nil || now.Before(*u.ColorPackExpiry)) {
		return true
	}
	for _, c := range u.AllowedColors {
		if strings.EqualFold(c, color) {
			return true
		}
	}
	return false
}

// Clone returns a deep copy.
func (u *User) Clone() *User {
	c := *u
	if u.AllowedColors != nil {
		c.AllowedColors = append([]string{}, u.AllowedColors...)
	}
	if u.ColorPackExpiry != nil {
		t := *u.ColorPackExpiry
		c.ColorPackExpiry = &t
	}
	if u.LastPurchaseAt != nil {
		t := *u.LastPurchaseAt
		c.LastPurchaseAt = &t
	}
	return &c
}

// UserStats is the self-service counter view.
type UserStats struct {
	PixelsDrawnAllTime int64 `json:"pixelsDrawnAllTime"`
	PlayPoints         int64 `json:"playPoints"`
	FreePixels         int64 `json:"freePixels"`
	LastPlacedAt       int64 `json:"lastPlacedAt"`
}

func (u *User) Stats() UserStats {
	return UserStats{
		PixelsDrawnAllTime: u.PixelsDrawnAllTime,
		PlayPoints:         u.PlayPoints,
		FreePixels:         u.FreePixels,
		LastPlacedAt:       u.LastPlacedAt,
	}
}
