package domain

// BalanceSource is one independently replenishable counter a placement can spend.
type BalanceSource string

const (
	SourceFreePixels BalanceSource = "free_pixels"
	SourcePlayPoints BalanceSource = "play_points"
)

// BalancePriority is the order in which sources are spent.
var BalancePriority = []BalanceSource{SourceFreePixels, SourcePlayPoints}

// Valid reports whether s is a known source.
func (s BalanceSource) Valid() bool {
	for _, known := range BalancePriority {
		if s == known {
			return true
		}
	}
	return false
}

// Balance returns the current amount in a source.
func (u *User) Balance(s BalanceSource) int64 {
	switch s {
	case SourceFreePixels:
		return u.FreePixels
	case SourcePlayPoints:
		return u.PlayPoints
	default:
		return 0
	}
}

// NextSource picks the first source in priority order with a positive balance.
func (u *User) NextSource() (BalanceSource, bool) {
	for _, s := range BalancePriority {
		if u.Balance(s) > 0 {
			return s, true
		}
	}
	return "", false
}

// Adjust adds delta to a source.
func (u *User) Adjust(s BalanceSource, delta int64) {
	switch s {
	case SourceFreePixels:
		u.FreePixels += delta
	case SourcePlayPoints:
		u.PlayPoints += delta
	}
}
