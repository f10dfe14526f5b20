package domain

import "time"

// Pixel is the last write to a cell. OwnerName is a snapshot taken at FilledAt.
type Pixel struct {
	X         int       `db:"x" json:"x"`
	Y         int       `db:"y" json:"y"`
	Color     string    `db:"color" json:"color"`
	Owner     string    `db:"owner" json:"owner"`
	OwnerName string    `db:"owner_name" json:"ownerName"`
	FilledAt  time.Time `db:"filled_at" json:"filledAt"`
}

// PlacementRequest is a validated placement about to be admitted.
type PlacementRequest struct {
	UID   string
	X     int
	Y     int
	Color string
	Now   time.Time
}

// AdmitFunc inspects the locked user row and picks the balance source to debit,
// or returns the reason the placement is refused.
type AdmitFunc func(u *User) (BalanceSource, error)

// PlacementResult is what a committed placement produced.
type PlacementResult struct {
	Pixel  Pixel
	Source BalanceSource
	User   *User
}
