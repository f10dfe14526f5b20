package domain

import "time"

// Entitlement is a grant issued by the payment collaborator. Zero fields are left untouched.
type Entitlement struct {
	ColorPack string
	// ColorPackExpiry is only applied together with ColorPack.
	ColorPackExpiry *time.Time
	// ClearExpiry removes any existing expiry when set.
	ClearExpiry bool
	Credits     map[BalanceSource]int64
	PurchasedAt *time.Time
}

// Apply mutates u in place.
func (e Entitlement) Apply(u *User) {
	if e.ColorPack != "" {
		u.ColorPack = e.ColorPack
		if e.ColorPackExpiry != nil {
			t := *e.ColorPackExpiry
			u.ColorPackExpiry = &t
		}
	}
	if e.ClearExpiry {
		u.ColorPackExpiry = nil
	}
	for s, n := range e.Credits {
		u.Adjust(s, n)
	}
	if e.PurchasedAt != nil {
		t := *e.PurchasedAt
		u.LastPurchaseAt = &t
	}
}

// Empty reports whether applying e would change nothing.
func (e Entitlement) Empty() bool {
	return e.ColorPack == "" && !e.ClearExpiry && len(e.Credits) == 0 && e.PurchasedAt == nil
}
